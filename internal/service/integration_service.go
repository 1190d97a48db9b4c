package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/leadflow-backend/internal/errors"
	"github.com/unclebandit/leadflow-backend/internal/gate"
	"github.com/unclebandit/leadflow-backend/internal/model"
	"github.com/unclebandit/leadflow-backend/internal/repository"
)

type IntegrationService struct {
	Repo   repository.IntegrationRepositoryInterface
	Policy gate.Policy
}

// IntegrationSummary is an integration as listed back to its owner, key masked.
type IntegrationSummary struct {
	ServiceName model.ServiceName `json:"service_name"`
	MaskedKey   string            `json:"masked_key"`
	IsActive    bool              `json:"is_active"`
}

func parseService(raw string) (model.ServiceName, error) {
	name, ok := model.ParseServiceName(raw)
	if !ok {
		return "", appErrors.NewValidation("unknown service %q", raw)
	}
	return name, nil
}

// Gate evaluates the user's integrations as they are right now.
func (s *IntegrationService) Gate(ctx context.Context, userID string) (gate.Decision, error) {
	active, err := s.Repo.ListActiveServiceNames(ctx, userID)
	if err != nil {
		return gate.Decision{}, fmt.Errorf("load integrations: %w", err)
	}
	return s.Policy.Evaluate(active), nil
}

func (s *IntegrationService) List(ctx context.Context, userID string) ([]IntegrationSummary, gate.Decision, error) {
	list, err := s.Repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, gate.Decision{}, fmt.Errorf("list integrations: %w", err)
	}
	out := make([]IntegrationSummary, 0, len(list))
	active := map[model.ServiceName]bool{}
	for _, i := range list {
		out = append(out, IntegrationSummary{ServiceName: i.ServiceName, MaskedKey: i.MaskedKey(), IsActive: i.IsActive})
		if i.IsActive {
			active[i.ServiceName] = true
		}
	}
	return out, s.Policy.Evaluate(active), nil
}

// Get returns the full key; callers only ever ask for their own integration.
func (s *IntegrationService) Get(ctx context.Context, userID, service string) (*model.Integration, error) {
	name, err := parseService(service)
	if err != nil {
		return nil, err
	}
	return s.Repo.Get(ctx, userID, name)
}

// Save stores a key for the user. A key that is active under another account is a
// conflict and nothing is written. Re-saving one's own key succeeds.
func (s *IntegrationService) Save(ctx context.Context, userID, service, apiKey string) (*model.Integration, gate.Decision, error) {
	name, err := parseService(service)
	if err != nil {
		return nil, gate.Decision{}, err
	}
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, gate.Decision{}, appErrors.NewValidation("apiKey required")
	}

	owner, err := s.Repo.FindActiveOwner(ctx, name, apiKey)
	if err != nil {
		return nil, gate.Decision{}, fmt.Errorf("check key owner: %w", err)
	}
	if owner != "" && owner != userID {
		zap.L().Warn("rejected api key already used by another account",
			zap.String("user_id", userID), zap.String("service", string(name)))
		return nil, gate.Decision{}, appErrors.NewConflict("this %s API key is already in use by another account", name)
	}

	// The unique index still catches a concurrent save that slipped past the check above.
	integration, err := s.Repo.Upsert(ctx, userID, name, apiKey)
	if err != nil {
		return nil, gate.Decision{}, err
	}
	decision, err := s.Gate(ctx, userID)
	if err != nil {
		return nil, gate.Decision{}, err
	}
	zap.L().Info("integration saved",
		zap.String("user_id", userID), zap.String("service", string(name)), zap.Bool("gate_allowed", decision.Allowed))
	return integration, decision, nil
}

func (s *IntegrationService) Delete(ctx context.Context, userID, service string) (gate.Decision, error) {
	name, err := parseService(service)
	if err != nil {
		return gate.Decision{}, err
	}
	removed, err := s.Repo.Delete(ctx, userID, name)
	if err != nil {
		return gate.Decision{}, fmt.Errorf("delete integration: %w", err)
	}
	if !removed {
		return gate.Decision{}, appErrors.NewIntegrationNotFound(string(name))
	}
	return s.Gate(ctx, userID)
}
