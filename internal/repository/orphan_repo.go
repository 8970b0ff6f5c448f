package repository

import (
	"fmt"

	"guardianlink/internal/database"
	"guardianlink/internal/models"
)

// OrphanRepository tracks provider accounts whose cleanup failed so a
// background sweep can retry the delete.
type OrphanRepository struct {
	db *database.DB
}

// NewOrphanRepository creates a new orphan repository
func NewOrphanRepository(db *database.DB) *OrphanRepository {
	return &OrphanRepository{db: db}
}

// Create records an account that could not be deleted during rollback
func (r *OrphanRepository) Create(accountID, reason string) error {
	query := "INSERT INTO orphan_accounts (account_id, reason, attempts) VALUES (?, ?, 0)"
	_, err := r.db.Exec(query, accountID, reason)
	if err != nil {
		return fmt.Errorf("failed to record orphan account: %w", err)
	}
	return nil
}

// List returns all pending orphan records, oldest first
func (r *OrphanRepository) List() ([]models.OrphanAccount, error) {
	query := `
		SELECT id, account_id, reason, attempts, created_at
		FROM orphan_accounts
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query orphan accounts: %w", err)
	}
	defer rows.Close()

	var orphans []models.OrphanAccount
	for rows.Next() {
		var o models.OrphanAccount
		if err := rows.Scan(&o.ID, &o.AccountID, &o.Reason, &o.Attempts, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan orphan account: %w", err)
		}
		orphans = append(orphans, o)
	}
	return orphans, rows.Err()
}

// IncrementAttempts bumps the retry counter after a failed sweep delete
func (r *OrphanRepository) IncrementAttempts(id int64) error {
	_, err := r.db.Exec("UPDATE orphan_accounts SET attempts = attempts + 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to increment orphan attempts: %w", err)
	}
	return nil
}

// Delete removes an orphan record once the provider delete succeeded
func (r *OrphanRepository) Delete(id int64) error {
	_, err := r.db.Exec("DELETE FROM orphan_accounts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete orphan record: %w", err)
	}
	return nil
}
