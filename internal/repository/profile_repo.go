package repository

import (
	"database/sql"
	"fmt"
	"time"

	"guardianlink/internal/database"
	"guardianlink/internal/models"
)

// ProfileRepository handles database operations for profiles
type ProfileRepository struct {
	db *database.DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *database.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

const profileColumns = `account_id, full_name, role, age, grade,
	COALESCE(parent_id, ''), diagnostic_completed, is_active,
	COALESCE(passcode_hash, ''), COALESCE(idempotency_key, ''), created_at`

// CreateProfile inserts a new profile row
func (r *ProfileRepository) CreateProfile(p *models.Profile) error {
	query := `
		INSERT INTO profiles (account_id, full_name, role, age, grade, parent_id,
			diagnostic_completed, is_active, passcode_hash, idempotency_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query,
		p.AccountID, p.FullName, p.Role, p.Age, p.Grade, nullable(p.ParentID),
		p.DiagnosticCompleted, p.IsActive, nullable(p.PasscodeHash), nullable(p.IdempotencyKey))
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

// GetProfile retrieves a profile by account id
func (r *ProfileRepository) GetProfile(accountID string) (*models.Profile, error) {
	query := "SELECT " + profileColumns + " FROM profiles WHERE account_id = ?"
	return r.scanOne(r.db.QueryRow(query, accountID))
}

// GetProfileByIdempotencyKey retrieves the profile created by a prior
// registration attempt with the given key, if any.
func (r *ProfileRepository) GetProfileByIdempotencyKey(key string) (*models.Profile, error) {
	query := "SELECT " + profileColumns + " FROM profiles WHERE idempotency_key = ?"
	return r.scanOne(r.db.QueryRow(query, key))
}

// GetChildrenByParent retrieves all child profiles linked to a parent account
func (r *ProfileRepository) GetChildrenByParent(parentID string) ([]models.Profile, error) {
	query := "SELECT " + profileColumns + ` FROM profiles
		WHERE parent_id = ? AND role = ?
		ORDER BY created_at ASC`
	rows, err := r.db.Query(query, parentID, models.RoleChild)
	if err != nil {
		return nil, fmt.Errorf("failed to query children: %w", err)
	}
	defer rows.Close()

	var profiles []models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}

// GetChildByNickname finds a parent's child profile by nickname
func (r *ProfileRepository) GetChildByNickname(parentID, nickname string) (*models.Profile, error) {
	query := "SELECT " + profileColumns + ` FROM profiles
		WHERE parent_id = ? AND role = ? AND full_name = ?`
	return r.scanOne(r.db.QueryRow(query, parentID, models.RoleChild, nickname))
}

// UpdatePasscodeHash replaces a child's passcode hash
func (r *ProfileRepository) UpdatePasscodeHash(accountID, hash string) error {
	_, err := r.db.Exec("UPDATE profiles SET passcode_hash = ? WHERE account_id = ?", hash, accountID)
	if err != nil {
		return fmt.Errorf("failed to update passcode: %w", err)
	}
	return nil
}

// SetDiagnosticCompleted marks the diagnostic quiz as done
func (r *ProfileRepository) SetDiagnosticCompleted(accountID string, done bool) error {
	_, err := r.db.Exec("UPDATE profiles SET diagnostic_completed = ? WHERE account_id = ?", done, accountID)
	if err != nil {
		return fmt.Errorf("failed to update diagnostic flag: %w", err)
	}
	return nil
}

// DeleteProfile removes a profile row
func (r *ProfileRepository) DeleteProfile(accountID string) error {
	_, err := r.db.Exec("DELETE FROM profiles WHERE account_id = ?", accountID)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	return nil
}

func (r *ProfileRepository) scanOne(row *sql.Row) (*models.Profile, error) {
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProfile(row rowScanner) (*models.Profile, error) {
	p := &models.Profile{}
	var createdAt time.Time
	err := row.Scan(
		&p.AccountID, &p.FullName, &p.Role, &p.Age, &p.Grade,
		&p.ParentID, &p.DiagnosticCompleted, &p.IsActive,
		&p.PasscodeHash, &p.IdempotencyKey, &createdAt,
	)
	if err != nil {
		return nil, err
	}
	p.CreatedAt = createdAt
	return p, nil
}

// nullable turns an empty string into NULL so unique indexes on
// optional columns behave.
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
