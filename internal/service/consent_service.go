package service

import (
	"guardianlink/internal/audit"
	"guardianlink/internal/models"
	"guardianlink/internal/validation"
)

// Post-consent destinations by role
const (
	RouteApp      = "/app"
	RouteTermPlan = "/setup/term-plan"
	RouteConsent  = "/consent"
)

// ConsentStore is the consent persistence surface
type ConsentStore interface {
	GetConsent(accountID string) (*models.ConsentRecord, error)
	CreateConsent(accountID string, flags models.ConsentFlags) error
}

// ConsentService gates authenticated accounts on recorded consent and
// decides where each role lands afterwards.
type ConsentService struct {
	consents ConsentStore
	audit    audit.Logger
}

// NewConsentService creates a new consent service
func NewConsentService(consents ConsentStore, auditLog audit.Logger) *ConsentService {
	return &ConsentService{consents: consents, audit: auditLog}
}

// RequiresConsent reports whether the account still has to pass the
// consent step.
func (s *ConsentService) RequiresConsent(accountID string) (bool, error) {
	rec, err := s.consents.GetConsent(accountID)
	if err != nil {
		return false, err
	}
	return rec == nil, nil
}

// RecordConsent validates and persists the consent flags, then returns
// the route the account should land on. Recording is idempotent: a
// second call for an account with recorded consent is a no-op success.
func (s *ConsentService) RecordConsent(accountID, role string, flags models.ConsentFlags) (string, error) {
	existing, err := s.consents.GetConsent(accountID)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return routeForRole(role), nil
	}

	if err := validation.ValidateConsentFlags(flags, role); err != nil {
		return "", err
	}

	if err := s.consents.CreateConsent(accountID, flags); err != nil {
		return "", err
	}

	s.audit.Record("consent_recorded", map[string]interface{}{
		"account_id": accountID,
		"role":       role,
		"marketing":  flags.MarketingCommunication,
	})

	return routeForRole(role), nil
}

// PostLoginRoute decides where an authenticated account goes: the
// consent page until consent is recorded, then the role's home.
func (s *ConsentService) PostLoginRoute(accountID, role string) (string, error) {
	required, err := s.RequiresConsent(accountID)
	if err != nil {
		return "", err
	}
	if required {
		return RouteConsent, nil
	}
	return routeForRole(role), nil
}

func routeForRole(role string) string {
	if role == models.RoleChild {
		return RouteApp
	}
	return RouteTermPlan
}
