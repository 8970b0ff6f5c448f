package service

import (
	"errors"
	"testing"

	"guardianlink/internal/audit"
	"guardianlink/internal/models"
	"guardianlink/internal/validation"
)

type fakeConsents struct {
	records map[string]*models.ConsentRecord
	writes  int
}

func newFakeConsents() *fakeConsents {
	return &fakeConsents{records: make(map[string]*models.ConsentRecord)}
}

func (f *fakeConsents) GetConsent(accountID string) (*models.ConsentRecord, error) {
	return f.records[accountID], nil
}

func (f *fakeConsents) CreateConsent(accountID string, flags models.ConsentFlags) error {
	f.writes++
	f.records[accountID] = &models.ConsentRecord{AccountID: accountID, Flags: flags}
	return nil
}

func acceptedFlags() models.ConsentFlags {
	return models.ConsentFlags{
		PrivacyPolicyAccepted:  true,
		TermsOfServiceAccepted: true,
		ChildDataUsage:         true,
	}
}

func TestRequiresConsent(t *testing.T) {
	store := newFakeConsents()
	svc := NewConsentService(store, audit.Nop{})

	required, err := svc.RequiresConsent("acct-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !required {
		t.Error("expected consent to be required for a fresh account")
	}

	if _, err := svc.RecordConsent("acct-1", models.RoleParent, acceptedFlags()); err != nil {
		t.Fatalf("failed to record consent: %v", err)
	}

	required, err = svc.RequiresConsent("acct-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if required {
		t.Error("expected consent to no longer be required")
	}
}

func TestRecordConsentValidation(t *testing.T) {
	tests := []struct {
		name  string
		role  string
		flags models.ConsentFlags
		ok    bool
	}{
		{"all accepted", models.RoleParent, acceptedFlags(), true},
		{"missing privacy", models.RoleParent, models.ConsentFlags{TermsOfServiceAccepted: true, ChildDataUsage: true}, false},
		{"missing terms", models.RoleParent, models.ConsentFlags{PrivacyPolicyAccepted: true, ChildDataUsage: true}, false},
		{"missing child data usage", models.RoleParent, models.ConsentFlags{PrivacyPolicyAccepted: true, TermsOfServiceAccepted: true}, false},
		{"child skips data usage", models.RoleChild, models.ConsentFlags{PrivacyPolicyAccepted: true, TermsOfServiceAccepted: true}, true},
		{"marketing stays optional", models.RoleParent, acceptedFlags(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewConsentService(newFakeConsents(), audit.Nop{})

			_, err := svc.RecordConsent("acct-1", tt.role, tt.flags)
			if tt.ok && err != nil {
				t.Errorf("expected success, got %v", err)
			}
			if !tt.ok {
				var vErr validation.ValidationError
				if !errors.As(err, &vErr) {
					t.Errorf("expected a validation error, got %v", err)
				}
			}
		})
	}
}

func TestRecordConsentIdempotent(t *testing.T) {
	store := newFakeConsents()
	svc := NewConsentService(store, audit.Nop{})

	if _, err := svc.RecordConsent("acct-1", models.RoleParent, acceptedFlags()); err != nil {
		t.Fatalf("first record failed: %v", err)
	}
	if _, err := svc.RecordConsent("acct-1", models.RoleParent, acceptedFlags()); err != nil {
		t.Fatalf("second record should be a no-op success, got %v", err)
	}
	if store.writes != 1 {
		t.Errorf("expected exactly 1 write, got %d", store.writes)
	}
}

func TestPostConsentRoutes(t *testing.T) {
	svc := NewConsentService(newFakeConsents(), audit.Nop{})

	route, err := svc.RecordConsent("parent-1", models.RoleParent, acceptedFlags())
	if err != nil {
		t.Fatalf("failed to record consent: %v", err)
	}
	if route != RouteTermPlan {
		t.Errorf("expected parents to land on %s, got %s", RouteTermPlan, route)
	}

	childFlags := models.ConsentFlags{PrivacyPolicyAccepted: true, TermsOfServiceAccepted: true}
	route, err = svc.RecordConsent("child-1", models.RoleChild, childFlags)
	if err != nil {
		t.Fatalf("failed to record consent: %v", err)
	}
	if route != RouteApp {
		t.Errorf("expected children to land on %s, got %s", RouteApp, route)
	}
}

func TestPostLoginRouteGates(t *testing.T) {
	store := newFakeConsents()
	svc := NewConsentService(store, audit.Nop{})

	route, err := svc.PostLoginRoute("acct-1", models.RoleParent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if route != RouteConsent {
		t.Errorf("expected the consent gate before consent is recorded, got %s", route)
	}

	if _, err := svc.RecordConsent("acct-1", models.RoleParent, acceptedFlags()); err != nil {
		t.Fatalf("failed to record consent: %v", err)
	}

	route, err = svc.PostLoginRoute("acct-1", models.RoleParent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if route != RouteTermPlan {
		t.Errorf("expected the role home after consent, got %s", route)
	}
}
