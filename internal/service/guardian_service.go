package service

import (
	"sync"

	"guardianlink/internal/audit"
	"guardianlink/internal/models"
	"guardianlink/internal/tentative"
)

// GuardianLinkStore is the guardian-link surface for report settings
type GuardianLinkStore interface {
	GetLinkByChild(childUID string) (*models.GuardianLink, error)
	GetLinksByGuardian(guardianEmail string) ([]models.GuardianLink, error)
	UpdateReportSettings(childUID string, settings models.ReportSettings) error
}

// GuardianService manages report preferences on guardian links. Toggles
// are applied optimistically to the in-memory view and reverted if the
// database write fails, so readers never see a half-applied state.
type GuardianService struct {
	mu        sync.Mutex
	settings  map[string]models.ReportSettings
	guardians GuardianLinkStore
	audit     audit.Logger
}

// NewGuardianService creates a new guardian service
func NewGuardianService(guardians GuardianLinkStore, auditLog audit.Logger) *GuardianService {
	return &GuardianService{
		settings:  make(map[string]models.ReportSettings),
		guardians: guardians,
		audit:     auditLog,
	}
}

// GetLinks returns all of a guardian's child links
func (s *GuardianService) GetLinks(guardianEmail string) ([]models.GuardianLink, error) {
	return s.guardians.GetLinksByGuardian(guardianEmail)
}

// GetSettings returns the report settings for a child link, loading
// from the database on first access.
func (s *GuardianService) GetSettings(childUID string) (models.ReportSettings, error) {
	s.mu.Lock()
	if settings, ok := s.settings[childUID]; ok {
		s.mu.Unlock()
		return settings, nil
	}
	s.mu.Unlock()

	link, err := s.guardians.GetLinkByChild(childUID)
	if err != nil {
		return models.ReportSettings{}, err
	}
	settings := models.ReportSettings{}
	if link != nil {
		settings.WeeklyReport = link.WeeklyReport
		settings.MonthlyReport = link.MonthlyReport
	}

	s.mu.Lock()
	s.settings[childUID] = settings
	s.mu.Unlock()
	return settings, nil
}

// UpdateSettings writes new report settings for a child link. The
// in-memory view is updated first and rolled back if the write fails.
func (s *GuardianService) UpdateSettings(childUID string, settings models.ReportSettings) error {
	prev, err := s.GetSettings(childUID)
	if err != nil {
		return err
	}

	err = tentative.Apply(
		func() {
			s.mu.Lock()
			s.settings[childUID] = settings
			s.mu.Unlock()
		},
		func() {
			s.mu.Lock()
			s.settings[childUID] = prev
			s.mu.Unlock()
		},
		func() error {
			return s.guardians.UpdateReportSettings(childUID, settings)
		},
	)
	if err != nil {
		return err
	}

	s.audit.Record("report_settings_updated", map[string]interface{}{
		"child_uid": childUID,
		"weekly":    settings.WeeklyReport,
		"monthly":   settings.MonthlyReport,
	})
	return nil
}
