package repository

import (
	"database/sql"
	"fmt"
	"time"

	"guardianlink/internal/database"
	"guardianlink/internal/models"
)

// SessionRepository handles database operations for sessions
type SessionRepository struct {
	db *database.DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// CreateSession inserts a new session row
func (r *SessionRepository) CreateSession(s *models.Session) error {
	query := `
		INSERT INTO sessions (id, account_id, refresh_token, expires_at)
		VALUES (?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, s.ID, s.AccountID, s.RefreshToken, s.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by id, nil when not found
func (r *SessionRepository) GetSession(id string) (*models.Session, error) {
	query := `
		SELECT id, account_id, refresh_token, expires_at, created_at
		FROM sessions
		WHERE id = ?
	`
	s := &models.Session{}
	err := r.db.QueryRow(query, id).Scan(&s.ID, &s.AccountID, &s.RefreshToken, &s.ExpiresAt, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return s, nil
}

// UpdateRefreshToken replaces the stored refresh token after a rotation
func (r *SessionRepository) UpdateRefreshToken(id, refreshToken string) error {
	_, err := r.db.Exec("UPDATE sessions SET refresh_token = ? WHERE id = ?", refreshToken, id)
	if err != nil {
		return fmt.Errorf("failed to update refresh token: %w", err)
	}
	return nil
}

// DeleteSession removes a session row
func (r *SessionRepository) DeleteSession(id string) error {
	_, err := r.db.Exec("DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes all sessions past their expiry and
// returns how many were deleted.
func (r *SessionRepository) DeleteExpiredSessions() (int64, error) {
	result, err := r.db.Exec("DELETE FROM sessions WHERE expires_at < ?", time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}
