package repository

import (
	"database/sql"
	"fmt"

	"guardianlink/internal/database"
	"guardianlink/internal/models"
)

// ConsentRepository handles database operations for consent records
type ConsentRepository struct {
	db *database.DB
}

// NewConsentRepository creates a new consent repository
func NewConsentRepository(db *database.DB) *ConsentRepository {
	return &ConsentRepository{db: db}
}

// GetConsent retrieves the consent record for an account, nil when none exists
func (r *ConsentRepository) GetConsent(accountID string) (*models.ConsentRecord, error) {
	query := `
		SELECT account_id, privacy_policy, terms_of_service, marketing, child_data_usage, created_at
		FROM consents
		WHERE account_id = ?
	`
	rec := &models.ConsentRecord{}
	err := r.db.QueryRow(query, accountID).Scan(&rec.AccountID,
		&rec.Flags.PrivacyPolicyAccepted, &rec.Flags.TermsOfServiceAccepted,
		&rec.Flags.MarketingCommunication, &rec.Flags.ChildDataUsage, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get consent record: %w", err)
	}
	return rec, nil
}

// CreateConsent inserts a consent record for an account
func (r *ConsentRepository) CreateConsent(accountID string, flags models.ConsentFlags) error {
	query := `
		INSERT INTO consents (account_id, privacy_policy, terms_of_service, marketing, child_data_usage)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, accountID,
		flags.PrivacyPolicyAccepted, flags.TermsOfServiceAccepted,
		flags.MarketingCommunication, flags.ChildDataUsage)
	if err != nil {
		return fmt.Errorf("failed to create consent record: %w", err)
	}
	return nil
}
