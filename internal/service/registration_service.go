package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"guardianlink/internal/audit"
	"guardianlink/internal/authstate"
	"guardianlink/internal/credentials"
	"guardianlink/internal/identity"
	"guardianlink/internal/localstore"
	"guardianlink/internal/models"
	"guardianlink/internal/security"
	"guardianlink/internal/validation"
)

// PendingNamespace is the local-store namespace holding child
// registrations queued while offline.
const PendingNamespace = "pending_children"

// PendingChild is one queued registration awaiting replay
type PendingChild struct {
	Descriptor  models.ChildDescriptor `json:"descriptor"`
	ParentID    string                 `json:"parent_id"`
	ParentEmail string                 `json:"parent_email"`
	QueuedAt    time.Time              `json:"queued_at"`
}

// ProfileStore is the profile persistence surface the orchestrator needs
type ProfileStore interface {
	CreateProfile(p *models.Profile) error
	GetProfileByIdempotencyKey(key string) (*models.Profile, error)
	GetChildrenByParent(parentID string) ([]models.Profile, error)
	DeleteProfile(accountID string) error
}

// GuardianStore is the guardian-link persistence surface
type GuardianStore interface {
	CreateLink(guardianEmail, childUID string) (*models.GuardianLink, error)
	DeleteLinksByChild(childUID string) error
}

// OrphanStore records provider accounts whose rollback delete failed
type OrphanStore interface {
	Create(accountID, reason string) error
}

// Mailer sends the generated child credentials to the guardian. Send
// failures are logged, never surfaced to the caller.
type Mailer interface {
	SendChildCredentials(ctx context.Context, to, nickname, username, passcode string) error
}

// RegistrationService orchestrates child account creation: provider
// account, local profile and guardian link, with rollback on partial
// failure.
type RegistrationService struct {
	admin     identity.Admin
	profiles  ProfileStore
	guardians GuardianStore
	orphans   OrphanStore
	cache     *authstate.Cache
	pending   *localstore.Store
	mailer    Mailer
	audit     audit.Logger
}

// NewRegistrationService creates a new registration service. mailer may
// be nil when outbound email is disabled.
func NewRegistrationService(admin identity.Admin, profiles ProfileStore, guardians GuardianStore,
	orphans OrphanStore, cache *authstate.Cache, pending *localstore.Store,
	mailer Mailer, auditLog audit.Logger) *RegistrationService {
	return &RegistrationService{
		admin:     admin,
		profiles:  profiles,
		guardians: guardians,
		orphans:   orphans,
		cache:     cache,
		pending:   pending,
		mailer:    mailer,
		audit:     auditLog,
	}
}

// RegisterChildren processes a batch of child descriptors for a parent.
// Items are attempted independently: a failed item is reported in
// Errors while the rest proceed. When the network is down the valid
// items are queued locally and the result is marked Offline.
func (s *RegistrationService) RegisterChildren(ctx context.Context, parentID, parentEmail string,
	batch []models.ChildDescriptor) *models.BatchResult {

	result := &models.BatchResult{}

	if s.cache != nil && s.cache.Offline() {
		return s.queueBatch(batch, 0, parentID, parentEmail, result)
	}

	for i, d := range batch {
		if err := validation.ValidateChildDescriptor(d); err != nil {
			result.Errors = append(result.Errors, models.ChildError{Index: i, Message: err.Error()})
			continue
		}

		if d.Key != "" {
			existing, err := s.profiles.GetProfileByIdempotencyKey(d.Key)
			if err != nil {
				result.Errors = append(result.Errors, models.ChildError{Index: i, Message: "Failed to create child account."})
				continue
			}
			if existing != nil {
				result.Results = append(result.Results, models.ChildResult{
					ChildUID: existing.AccountID,
					Nickname: existing.FullName,
				})
				continue
			}
		}

		res, err := s.registerOne(ctx, parentID, parentEmail, d)
		if err != nil {
			if identity.IsOffline(err) {
				if s.cache != nil {
					s.cache.SetOffline()
				}
				return s.queueBatch(batch[i:], i, parentID, parentEmail, result)
			}
			result.Errors = append(result.Errors, models.ChildError{Index: i, Message: identity.Classify(err)})
			continue
		}
		result.Results = append(result.Results, *res)
	}

	return result
}

// registerOne runs the three-step registration for a single child and
// rolls back the provider account if a later step fails.
func (s *RegistrationService) registerOne(ctx context.Context, parentID, parentEmail string,
	d models.ChildDescriptor) (*models.ChildResult, error) {

	password, err := credentials.GenerateAccountPassword()
	if err != nil {
		return nil, fmt.Errorf("failed to generate account password: %w", err)
	}

	account, err := s.admin.CreateUser(ctx, identity.CreateUserParams{
		Email:    credentials.SyntheticChildEmail(),
		Password: password,
		Metadata: identity.Metadata{
			Role:          models.RoleChild,
			Nickname:      d.Nickname,
			Age:           d.Age,
			Grade:         d.Grade,
			GuardianEmail: parentEmail,
		},
		EmailConfirm: true,
	})
	if err != nil {
		s.audit.Record("child_registration_failed", map[string]interface{}{
			"parent_id": parentID,
			"nickname":  d.Nickname,
			"stage":     "provider",
			"error":     err.Error(),
		})
		return nil, err
	}

	username, err := credentials.GenerateChildUsername()
	if err != nil {
		s.rollback(ctx, account.ID, "username generation failed")
		return nil, err
	}
	passcode, err := credentials.GenerateChildPasscode()
	if err != nil {
		s.rollback(ctx, account.ID, "passcode generation failed")
		return nil, err
	}
	passcodeHash, err := security.HashPassword(passcode)
	if err != nil {
		s.rollback(ctx, account.ID, "passcode hashing failed")
		return nil, err
	}

	key := d.Key
	if key == "" {
		key = uuid.New().String()
	}

	profile := &models.Profile{
		AccountID:      account.ID,
		FullName:       d.Nickname,
		Role:           models.RoleChild,
		Age:            d.Age,
		Grade:          d.Grade,
		ParentID:       parentID,
		IsActive:       true,
		PasscodeHash:   passcodeHash,
		IdempotencyKey: key,
	}
	if err := s.profiles.CreateProfile(profile); err != nil {
		s.rollback(ctx, account.ID, "profile insert failed")
		return nil, err
	}

	if _, err := s.guardians.CreateLink(parentEmail, account.ID); err != nil {
		if derr := s.profiles.DeleteProfile(account.ID); derr != nil {
			log.Printf("Failed to delete profile %s during rollback: %v", account.ID, derr)
		}
		s.rollback(ctx, account.ID, "guardian link insert failed")
		return nil, err
	}

	s.audit.Record("child_registered", map[string]interface{}{
		"parent_id": parentID,
		"child_uid": account.ID,
		"nickname":  d.Nickname,
	})

	if s.mailer != nil {
		if err := s.mailer.SendChildCredentials(ctx, parentEmail, d.Nickname, username, passcode); err != nil {
			log.Printf("Failed to send child credentials email: %v", err)
		}
	}

	return &models.ChildResult{
		ChildUID: account.ID,
		Nickname: d.Nickname,
		Username: username,
		Passcode: passcode,
	}, nil
}

// rollback deletes the provider account created earlier in the item.
// If the delete itself fails the account id is recorded for the orphan
// sweeper to retry.
func (s *RegistrationService) rollback(ctx context.Context, accountID, reason string) {
	if err := s.admin.DeleteUser(ctx, accountID); err != nil {
		log.Printf("Failed to delete account %s during rollback: %v", accountID, err)
		if oerr := s.orphans.Create(accountID, reason); oerr != nil {
			log.Printf("Failed to record orphan account %s: %v", accountID, oerr)
		}
		s.audit.Record("rollback_delete_failed", map[string]interface{}{
			"account_id": accountID,
			"reason":     reason,
		})
		return
	}
	s.audit.Record("child_registration_rolled_back", map[string]interface{}{
		"account_id": accountID,
		"reason":     reason,
	})
}

// queueBatch persists the remaining valid descriptors for later replay
// and marks the result offline. Invalid items are still reported as
// errors rather than queued. offset keeps error indices relative to the
// original batch when only a tail is queued.
func (s *RegistrationService) queueBatch(batch []models.ChildDescriptor, offset int, parentID, parentEmail string,
	result *models.BatchResult) *models.BatchResult {

	result.Offline = true
	if s.pending == nil {
		return result
	}

	for i, d := range batch {
		if err := validation.ValidateChildDescriptor(d); err != nil {
			result.Errors = append(result.Errors, models.ChildError{Index: offset + i, Message: err.Error()})
			continue
		}
		if d.Key == "" {
			d.Key = uuid.New().String()
		}
		entry := PendingChild{
			Descriptor:  d,
			ParentID:    parentID,
			ParentEmail: parentEmail,
			QueuedAt:    time.Now(),
		}
		if err := s.pending.Put(PendingNamespace, d.Key, entry); err != nil {
			log.Printf("Failed to queue pending child %q: %v", d.Nickname, err)
			result.Errors = append(result.Errors, models.ChildError{Index: offset + i, Message: "Failed to create child account."})
			continue
		}
		s.audit.Record("child_registration_queued", map[string]interface{}{
			"parent_id": parentID,
			"nickname":  d.Nickname,
			"key":       d.Key,
		})
	}
	return result
}

// ListChildren returns the parent's registered children
func (s *RegistrationService) ListChildren(parentID string) ([]models.Profile, error) {
	return s.profiles.GetChildrenByParent(parentID)
}
