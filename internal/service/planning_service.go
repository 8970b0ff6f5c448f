package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"guardianlink/internal/models"
)

// PlanningStore is the persistence surface for term plans and topics
type PlanningStore interface {
	SaveTermPlan(accountID, term, subjects string) (*models.TermPlan, error)
	GetTermPlan(accountID, term string) (*models.TermPlan, error)
	CreateTopic(childUID, name, status string) (*models.Topic, error)
	GetTopicsByChild(childUID string) ([]models.Topic, error)
	LogSearch(accountID, q string) error
	GetRecentSearches(accountID string, limit int) ([]models.Search, error)
}

// PlanningService manages term plans and child study topics
type PlanningService struct {
	plans PlanningStore
}

// NewPlanningService creates a new planning service
func NewPlanningService(plans PlanningStore) *PlanningService {
	return &PlanningService{plans: plans}
}

// SaveTermPlan validates and stores the subject list for a term
func (s *PlanningService) SaveTermPlan(accountID, term string, subjects []string) (*models.TermPlan, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, fmt.Errorf("term is required")
	}
	if len(subjects) == 0 {
		return nil, fmt.Errorf("at least one subject is required")
	}

	encoded, err := json.Marshal(subjects)
	if err != nil {
		return nil, fmt.Errorf("failed to encode subjects: %w", err)
	}
	return s.plans.SaveTermPlan(accountID, term, string(encoded))
}

// GetTermPlan returns the stored plan for a term, nil when none exists
func (s *PlanningService) GetTermPlan(accountID, term string) (*models.TermPlan, error) {
	return s.plans.GetTermPlan(accountID, strings.TrimSpace(term))
}

// AddTopic creates a study topic for a child
func (s *PlanningService) AddTopic(childUID, name string) (*models.Topic, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("topic name is required")
	}
	return s.plans.CreateTopic(childUID, name, "planned")
}

// ListTopics returns a child's study topics
func (s *PlanningService) ListTopics(childUID string) ([]models.Topic, error) {
	return s.plans.GetTopicsByChild(childUID)
}

// RecordSearch logs a search query and returns nothing to the caller
func (s *PlanningService) RecordSearch(accountID, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	return s.plans.LogSearch(accountID, query)
}

// RecentSearches returns the latest queries for an account
func (s *PlanningService) RecentSearches(accountID string) ([]models.Search, error) {
	return s.plans.GetRecentSearches(accountID, 20)
}
