package repository

import (
	"database/sql"
	"fmt"
	"time"

	"guardianlink/internal/database"
	"guardianlink/internal/models"
)

// PlanningRepository handles database operations for term plans, topics
// and logged searches.
type PlanningRepository struct {
	db *database.DB
}

// NewPlanningRepository creates a new planning repository
func NewPlanningRepository(db *database.DB) *PlanningRepository {
	return &PlanningRepository{db: db}
}

// SaveTermPlan inserts or replaces the plan for an account and term
func (r *PlanningRepository) SaveTermPlan(accountID, term, subjects string) (*models.TermPlan, error) {
	existing, err := r.GetTermPlan(accountID, term)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		_, err := r.db.Exec("UPDATE term_plans SET subjects = ?, updated_at = ? WHERE id = ?",
			subjects, time.Now(), existing.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to update term plan: %w", err)
		}
		existing.Subjects = subjects
		return existing, nil
	}

	query := "INSERT INTO term_plans (account_id, term, subjects) VALUES (?, ?, ?)"
	id, err := r.db.ExecReturningID(query, accountID, term, subjects)
	if err != nil {
		return nil, fmt.Errorf("failed to create term plan: %w", err)
	}
	return &models.TermPlan{ID: id, AccountID: accountID, Term: term, Subjects: subjects}, nil
}

// GetTermPlan retrieves the plan for an account and term, nil when none exists
func (r *PlanningRepository) GetTermPlan(accountID, term string) (*models.TermPlan, error) {
	query := `
		SELECT id, account_id, term, subjects, created_at, updated_at
		FROM term_plans
		WHERE account_id = ? AND term = ?
	`
	plan := &models.TermPlan{}
	err := r.db.QueryRow(query, accountID, term).Scan(&plan.ID, &plan.AccountID,
		&plan.Term, &plan.Subjects, &plan.CreatedAt, &plan.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get term plan: %w", err)
	}
	return plan, nil
}

// CreateTopic inserts a study topic for a child
func (r *PlanningRepository) CreateTopic(childUID, name, status string) (*models.Topic, error) {
	query := "INSERT INTO topics (child_uid, name, status) VALUES (?, ?, ?)"
	id, err := r.db.ExecReturningID(query, childUID, name, status)
	if err != nil {
		return nil, fmt.Errorf("failed to create topic: %w", err)
	}
	return &models.Topic{ID: id, ChildUID: childUID, Name: name, Status: status}, nil
}

// GetTopicsByChild retrieves all topics for a child, oldest first
func (r *PlanningRepository) GetTopicsByChild(childUID string) ([]models.Topic, error) {
	query := `
		SELECT id, child_uid, name, status, created_at
		FROM topics
		WHERE child_uid = ?
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(query, childUID)
	if err != nil {
		return nil, fmt.Errorf("failed to query topics: %w", err)
	}
	defer rows.Close()

	var topics []models.Topic
	for rows.Next() {
		var t models.Topic
		if err := rows.Scan(&t.ID, &t.ChildUID, &t.Name, &t.Status, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan topic: %w", err)
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

// LogSearch records one search query for an account
func (r *PlanningRepository) LogSearch(accountID, q string) error {
	_, err := r.db.Exec("INSERT INTO searches (account_id, query) VALUES (?, ?)", accountID, q)
	if err != nil {
		return fmt.Errorf("failed to log search: %w", err)
	}
	return nil
}

// GetRecentSearches retrieves the newest searches for an account
func (r *PlanningRepository) GetRecentSearches(accountID string, limit int) ([]models.Search, error) {
	query := `
		SELECT id, account_id, query, created_at
		FROM searches
		WHERE account_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`
	rows, err := r.db.Query(query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query searches: %w", err)
	}
	defer rows.Close()

	var searches []models.Search
	for rows.Next() {
		var s models.Search
		if err := rows.Scan(&s.ID, &s.AccountID, &s.Query, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan search: %w", err)
		}
		searches = append(searches, s)
	}
	return searches, rows.Err()
}
