package repository

import (
	"database/sql"
	"fmt"

	"guardianlink/internal/database"
	"guardianlink/internal/models"
)

// GuardianRepository handles database operations for guardian links
type GuardianRepository struct {
	db *database.DB
}

// NewGuardianRepository creates a new guardian repository
func NewGuardianRepository(db *database.DB) *GuardianRepository {
	return &GuardianRepository{db: db}
}

// CreateLink inserts a guardian link row tying a guardian email to a child
func (r *GuardianRepository) CreateLink(guardianEmail, childUID string) (*models.GuardianLink, error) {
	query := `
		INSERT INTO guardians (guardian_email, child_uid, weekly_report, monthly_report)
		VALUES (?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query, guardianEmail, childUID, false, false)
	if err != nil {
		return nil, fmt.Errorf("failed to create guardian link: %w", err)
	}

	return &models.GuardianLink{
		ID:            id,
		GuardianEmail: guardianEmail,
		ChildUID:      childUID,
	}, nil
}

// GetLinksByGuardian retrieves all links for a guardian email, one per child
func (r *GuardianRepository) GetLinksByGuardian(guardianEmail string) ([]models.GuardianLink, error) {
	query := `
		SELECT id, guardian_email, child_uid, weekly_report, monthly_report, created_at
		FROM guardians
		WHERE guardian_email = ?
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(query, guardianEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to query guardian links: %w", err)
	}
	defer rows.Close()

	var links []models.GuardianLink
	for rows.Next() {
		var link models.GuardianLink
		if err := rows.Scan(&link.ID, &link.GuardianEmail, &link.ChildUID,
			&link.WeeklyReport, &link.MonthlyReport, &link.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan guardian link: %w", err)
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

// GetLinkByChild retrieves the guardian link for a child account
func (r *GuardianRepository) GetLinkByChild(childUID string) (*models.GuardianLink, error) {
	query := `
		SELECT id, guardian_email, child_uid, weekly_report, monthly_report, created_at
		FROM guardians
		WHERE child_uid = ?
	`
	link := &models.GuardianLink{}
	err := r.db.QueryRow(query, childUID).Scan(&link.ID, &link.GuardianEmail, &link.ChildUID,
		&link.WeeklyReport, &link.MonthlyReport, &link.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get guardian link: %w", err)
	}
	return link, nil
}

// UpdateReportSettings sets the report flags on a child's guardian link
func (r *GuardianRepository) UpdateReportSettings(childUID string, settings models.ReportSettings) error {
	query := "UPDATE guardians SET weekly_report = ?, monthly_report = ? WHERE child_uid = ?"
	_, err := r.db.Exec(query, settings.WeeklyReport, settings.MonthlyReport, childUID)
	if err != nil {
		return fmt.Errorf("failed to update report settings: %w", err)
	}
	return nil
}

// DeleteLinksByChild removes all guardian links for a child, used on rollback
func (r *GuardianRepository) DeleteLinksByChild(childUID string) error {
	_, err := r.db.Exec("DELETE FROM guardians WHERE child_uid = ?", childUID)
	if err != nil {
		return fmt.Errorf("failed to delete guardian links: %w", err)
	}
	return nil
}
