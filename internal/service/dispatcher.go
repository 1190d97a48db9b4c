package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/unclebandit/leadflow-backend/internal/engine"
	appErrors "github.com/unclebandit/leadflow-backend/internal/errors"
	"github.com/unclebandit/leadflow-backend/internal/metrics"
	"github.com/unclebandit/leadflow-backend/internal/model"
	"github.com/unclebandit/leadflow-backend/internal/queue"
)

const (
	DefaultDispatchTimeout = 30 * time.Second
	// RollbackTimeout bounds the pending write after a failed dispatch, which runs
	// detached from the request.
	RollbackTimeout = 5 * time.Second
)

// Warnings attached to a created campaign that could not be handed to the engine.
const (
	WarningEngineNotConfigured = "enrichment engine is not configured; campaign saved as pending"
	WarningDispatchNotStarted  = "campaign could not be marked as processing; saved as pending"
)

// StatusWriter is the slice of the campaign repository the dispatcher needs.
type StatusWriter interface {
	TransitionStatus(ctx context.Context, id string, from, to model.CampaignStatus) (bool, error)
	GetByID(ctx context.Context, id string) (*model.Campaign, error)
}

// Dispatcher hands a pending campaign to the workflow engine.
//
// It only ever moves pending to processing before the outbound call, and processing
// back to pending when the call does not succeed. Both writes are conditional on the
// stored status, so a terminal status reported by the engine is never overwritten.
type Dispatcher struct {
	Campaigns StatusWriter
	Engine    engine.Submitter
	Timeout   time.Duration
	Events    *queue.EventPublisher
}

var tracer = otel.Tracer("github.com/unclebandit/leadflow-backend/internal/service")

// Dispatch returns a ConflictError when the campaign is no longer pending in storage;
// the engine is not called in that case. Outbound failures are absorbed: c.Status
// reflects what was persisted when it returns, and the warning is empty unless the
// campaign was never handed over.
func (d *Dispatcher) Dispatch(ctx context.Context, c *model.Campaign) (warning string, err error) {
	if d == nil || d.Engine == nil || !d.Engine.Configured() {
		metrics.DispatchAttempts.WithLabelValues(metrics.OutcomeSkipped).Inc()
		zap.L().Warn("enrichment engine not configured, campaign left pending",
			zap.String("campaign_id", c.ID))
		d.publish(queue.EventDispatchSkipped, c, WarningEngineNotConfigured)
		return WarningEngineNotConfigured, nil
	}

	ctx, span := tracer.Start(ctx, "campaign.dispatch")
	span.SetAttributes(attribute.String("campaign.id", c.ID), attribute.String("user.id", c.UserID))
	defer span.End()

	claimed, werr := d.Campaigns.TransitionStatus(ctx, c.ID, model.CampaignPending, model.CampaignProcessing)
	if werr != nil {
		metrics.DispatchAttempts.WithLabelValues(metrics.OutcomeSkipped).Inc()
		span.RecordError(werr)
		span.SetStatus(codes.Error, "processing write failed")
		zap.L().Error("failed to mark campaign processing, not dispatching",
			zap.String("campaign_id", c.ID), zap.Error(werr))
		d.publish(queue.EventDispatchSkipped, c, werr.Error())
		return WarningDispatchNotStarted, nil
	}
	if !claimed {
		metrics.DispatchAttempts.WithLabelValues(metrics.OutcomeSkipped).Inc()
		d.refresh(ctx, c)
		span.SetStatus(codes.Error, "campaign not pending")
		zap.L().Warn("campaign no longer pending, not dispatching",
			zap.String("campaign_id", c.ID), zap.String("status", string(c.Status)))
		return "", appErrors.NewConflict("campaign is %s; only pending campaigns can be dispatched", c.Status)
	}
	c.Status = model.CampaignProcessing

	var callErr error
	defer func() {
		if r := recover(); r != nil {
			callErr = fmt.Errorf("panic during dispatch: %v", r)
		}
		if callErr == nil {
			return
		}
		span.RecordError(callErr)
		span.SetStatus(codes.Error, "dispatch failed")
		// The request context may already be cancelled; the rollback must still land.
		rbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), RollbackTimeout)
		defer cancel()
		d.rollback(rbCtx, c, callErr)
	}()

	callCtx, cancel := context.WithTimeout(ctx, d.timeout())
	defer cancel()

	start := time.Now()
	callErr = d.Engine.Submit(callCtx, engine.Job{
		CampaignID: c.ID,
		UserID:     c.UserID,
		SourceURL:  c.URL,
	})
	metrics.DispatchLatency.Observe(time.Since(start).Seconds())
	if callErr != nil {
		return "", nil
	}

	metrics.DispatchAttempts.WithLabelValues(metrics.OutcomeDispatched).Inc()
	zap.L().Info("🚀 campaign dispatched to enrichment engine", zap.String("campaign_id", c.ID))
	d.publish(queue.EventCampaignDispatched, c, "")
	return "", nil
}

func (d *Dispatcher) rollback(ctx context.Context, c *model.Campaign, cause error) {
	metrics.DispatchAttempts.WithLabelValues(metrics.OutcomeFailed).Inc()
	zap.L().Error("enrichment dispatch failed, reverting campaign to pending",
		zap.String("campaign_id", c.ID), zap.Error(cause))

	reverted, err := d.Campaigns.TransitionStatus(ctx, c.ID, model.CampaignProcessing, model.CampaignPending)
	switch {
	case err != nil:
		zap.L().Error("failed to revert campaign to pending",
			zap.String("campaign_id", c.ID), zap.Error(err))
	case reverted:
		c.Status = model.CampaignPending
	default:
		// The engine reported a status while the call was in flight; it wins.
		d.refresh(ctx, c)
		zap.L().Info("campaign left the processing state during dispatch, keeping it",
			zap.String("campaign_id", c.ID), zap.String("status", string(c.Status)))
	}
	d.publish(queue.EventDispatchFailed, c, cause.Error())
}

// refresh copies the stored status onto c; on a read error c is left as it was.
func (d *Dispatcher) refresh(ctx context.Context, c *model.Campaign) {
	stored, err := d.Campaigns.GetByID(ctx, c.ID)
	if err != nil {
		zap.L().Warn("failed to reload campaign status",
			zap.String("campaign_id", c.ID), zap.Error(err))
		return
	}
	c.Status = stored.Status
}

func (d *Dispatcher) timeout() time.Duration {
	if d.Timeout <= 0 {
		return DefaultDispatchTimeout
	}
	return d.Timeout
}

func (d *Dispatcher) publish(eventType string, c *model.Campaign, detail string) {
	if d == nil {
		return
	}
	d.Events.Publish(queue.CampaignEvent{
		Type:       eventType,
		CampaignID: c.ID,
		UserID:     c.UserID,
		Status:     string(c.Status),
		Detail:     detail,
	})
}
