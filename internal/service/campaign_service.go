// internal/service/campaign_service.go
package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/leadflow-backend/internal/errors"
	"github.com/unclebandit/leadflow-backend/internal/gate"
	"github.com/unclebandit/leadflow-backend/internal/metrics"
	"github.com/unclebandit/leadflow-backend/internal/model"
	"github.com/unclebandit/leadflow-backend/internal/queue"
	"github.com/unclebandit/leadflow-backend/internal/repository"
)

type CampaignService struct {
	CampaignRepo    repository.CampaignRepositoryInterface
	ContactRepo     repository.ContactRepositoryInterface
	IntegrationRepo repository.IntegrationRepositoryInterface
	UserRepo        repository.UserRepositoryInterface
	Policy          gate.Policy
	Dispatcher      *Dispatcher
	Events          *queue.EventPublisher
	// BillingEnforced makes creation depend on the stored subscription status.
	BillingEnforced bool
}

// CreateResult is what a create or resubmit returns. Warning is set when the
// campaign was saved but not handed to the engine.
type CreateResult struct {
	Campaign *model.Campaign `json:"campaign"`
	Warning  string          `json:"warning,omitempty"`
}

// CampaignView is the read model a poller follows.
type CampaignView struct {
	model.Campaign
	Contacts   []model.Contact `json:"contacts"`
	Progress   Progress        `json:"progress"`
	ShouldPoll bool            `json:"should_poll"`
}

// checkGate evaluates the user's current integrations; nothing is cached between calls.
func (s *CampaignService) checkGate(ctx context.Context, userID string) error {
	active, err := s.IntegrationRepo.ListActiveServiceNames(ctx, userID)
	if err != nil {
		return fmt.Errorf("load integrations: %w", err)
	}
	if err := s.Policy.Evaluate(active).Err(); err != nil {
		metrics.GateDenials.Inc()
		return err
	}
	return nil
}

func (s *CampaignService) checkBilling(ctx context.Context, userID string) error {
	if !s.BillingEnforced {
		return nil
	}
	ok, err := s.UserRepo.CanCreateCampaigns(ctx, userID)
	if err != nil {
		return fmt.Errorf("check subscription: %w", err)
	}
	if !ok {
		return &appErrors.SubscriptionRequiredError{UserID: userID}
	}
	return nil
}

// CreateCampaign persists a pending campaign and dispatches it. Once the row is
// written the call succeeds; dispatch problems only show up in status and warning.
func (s *CampaignService) CreateCampaign(ctx context.Context, userID, url, name string) (*CreateResult, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, appErrors.NewValidation("url required")
	}
	if err := s.checkBilling(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.checkGate(ctx, userID); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		count, err := s.CampaignRepo.CountByUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("count campaigns: %w", err)
		}
		name = fmt.Sprintf("Campaign %d", count+1)
	}

	c := &model.Campaign{
		UserID: userID,
		Name:   name,
		URL:    url,
		Status: model.CampaignPending,
	}
	if err := s.CampaignRepo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create campaign: %w", err)
	}
	metrics.CampaignsCreated.Inc()
	zap.L().Info("✅ campaign created",
		zap.String("campaign_id", c.ID), zap.String("user_id", userID))
	s.publish(queue.EventCampaignCreated, c, "")

	warning, err := s.Dispatcher.Dispatch(ctx, c)
	if err != nil {
		// The row was created a moment ago; a status that already moved on is kept as is.
		zap.L().Warn("new campaign was not dispatched",
			zap.String("campaign_id", c.ID), zap.Error(err))
	}
	return &CreateResult{Campaign: c, Warning: warning}, nil
}

// ResubmitCampaign dispatches an owned pending campaign again. The gate is re-checked
// because integrations may have changed since creation.
func (s *CampaignService) ResubmitCampaign(ctx context.Context, id, userID string) (*CreateResult, error) {
	c, err := s.CampaignRepo.GetOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if c.Status != model.CampaignPending {
		return nil, appErrors.NewConflict("campaign is %s; only pending campaigns can be dispatched", c.Status)
	}
	if err := s.checkBilling(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.checkGate(ctx, userID); err != nil {
		return nil, err
	}

	// The status check above is advisory; Dispatch claims the row with a conditional
	// write and reports a conflict when a concurrent request got there first.
	warning, err := s.Dispatcher.Dispatch(ctx, c)
	if err != nil {
		return nil, err
	}
	return &CreateResult{Campaign: c, Warning: warning}, nil
}

// UpdateStatus sets the status unconditionally.
func (s *CampaignService) UpdateStatus(ctx context.Context, id string, status model.CampaignStatus) error {
	if !status.Valid() {
		return appErrors.NewValidation("invalid status %q", status)
	}
	return s.CampaignRepo.UpdateStatus(ctx, id, status)
}

// ApplyEngineStatus records a status reported by the workflow engine.
func (s *CampaignService) ApplyEngineStatus(ctx context.Context, id, status string) error {
	st := model.CampaignStatus(strings.ToLower(strings.TrimSpace(status)))
	switch st {
	case model.CampaignProcessing, model.CampaignCompleted, model.CampaignFailed:
	default:
		return appErrors.NewValidation("invalid status %q", status)
	}
	if err := s.CampaignRepo.UpdateStatus(ctx, id, st); err != nil {
		return err
	}
	zap.L().Info("campaign status updated by engine",
		zap.String("campaign_id", id), zap.String("status", string(st)))
	s.Events.Publish(queue.CampaignEvent{
		Type:       queue.EventCampaignStatusUpdate,
		CampaignID: id,
		Status:     string(st),
	})
	return nil
}

// GetCampaignWithContacts returns NotFound for campaigns the user does not own.
func (s *CampaignService) GetCampaignWithContacts(ctx context.Context, id, userID string) (*CampaignView, error) {
	c, err := s.CampaignRepo.GetOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	contacts, err := s.ContactRepo.ListByCampaign(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	if contacts == nil {
		contacts = []model.Contact{}
	}

	progress := ComputeProgress(contacts)
	return &CampaignView{
		Campaign:   *c,
		Contacts:   contacts,
		Progress:   progress,
		ShouldPoll: ShouldPoll(c.Status, progress),
	}, nil
}

func (s *CampaignService) RenameCampaign(ctx context.Context, id, userID, name string) (*model.Campaign, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, appErrors.NewValidation("name required")
	}
	return s.CampaignRepo.Rename(ctx, id, userID, name)
}

func (s *CampaignService) DeleteCampaign(ctx context.Context, id, userID string) error {
	if err := s.CampaignRepo.Delete(ctx, id, userID); err != nil {
		return err
	}
	zap.L().Info("campaign deleted", zap.String("campaign_id", id), zap.String("user_id", userID))
	return nil
}

// ListCampaigns fetches the user's campaigns with pagination
func (s *CampaignService) ListCampaigns(ctx context.Context, userID string, page, pageSize int, status string) ([]model.Campaign, map[string]int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	if status != "" && !model.CampaignStatus(status).Valid() {
		return nil, nil, appErrors.NewValidation("invalid status filter %q", status)
	}
	offset := (page - 1) * pageSize

	ptrs, total, err := s.CampaignRepo.ListCampaigns(ctx, userID, offset, pageSize, status)
	if err != nil {
		return nil, nil, err
	}

	campaigns := make([]model.Campaign, len(ptrs))
	for i, c := range ptrs {
		campaigns[i] = *c
	}

	totalPages := (total + pageSize - 1) / pageSize
	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}

	return campaigns, pagination, nil
}

func (s *CampaignService) publish(eventType string, c *model.Campaign, detail string) {
	s.Events.Publish(queue.CampaignEvent{
		Type:       eventType,
		CampaignID: c.ID,
		UserID:     c.UserID,
		Status:     string(c.Status),
		Detail:     detail,
	})
}
