package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/leadflow-backend/internal/engine"
	appErrors "github.com/unclebandit/leadflow-backend/internal/errors"
	"github.com/unclebandit/leadflow-backend/internal/model"
	"github.com/unclebandit/leadflow-backend/internal/service"
)

const sourceURL = "https://app.apollo.io/x"

func TestDispatch_Success(t *testing.T) {
	f := newFixture(t)

	res, err := f.campaign.CreateCampaign(context.Background(), f.userID, sourceURL, "")
	require.NoError(t, err)

	assert.Empty(t, res.Warning)
	assert.Equal(t, model.CampaignProcessing, res.Campaign.Status)
	assert.Equal(t, []model.CampaignStatus{model.CampaignProcessing}, f.statuses(res.Campaign.ID))

	require.Len(t, f.engine.jobs, 1)
	assert.Equal(t, engine.Job{CampaignID: res.Campaign.ID, UserID: f.userID, SourceURL: sourceURL}, f.engine.jobs[0])
	// processing is durable before the engine sees the job
	assert.Equal(t, []model.CampaignStatus{model.CampaignProcessing}, f.engine.seen)
}

func TestDispatch_EngineNotConfigured(t *testing.T) {
	f := newFixture(t)
	f.engine.configured = false

	res, err := f.campaign.CreateCampaign(context.Background(), f.userID, sourceURL, "")
	require.NoError(t, err)

	assert.Equal(t, service.WarningEngineNotConfigured, res.Warning)
	assert.Equal(t, model.CampaignPending, res.Campaign.Status)
	assert.Empty(t, f.statuses(res.Campaign.ID), "no status write when the engine is not configured")
	assert.Zero(t, f.engine.calls())
}

func TestDispatch_NilDispatcherDegrades(t *testing.T) {
	f := newFixture(t)
	f.campaign.Dispatcher = nil

	res, err := f.campaign.CreateCampaign(context.Background(), f.userID, sourceURL, "")
	require.NoError(t, err)
	assert.Equal(t, service.WarningEngineNotConfigured, res.Warning)
	assert.Equal(t, model.CampaignPending, res.Campaign.Status)
}

func TestDispatch_FailuresRollBackToPending(t *testing.T) {
	cases := map[string]func(ctx context.Context, job engine.Job) error{
		"transport error": func(context.Context, engine.Job) error {
			return errors.New("connection refused")
		},
		"non-2xx": func(context.Context, engine.Job) error {
			return &engine.StatusError{StatusCode: 502, Body: "bad gateway"}
		},
		"timeout": func(ctx context.Context, _ engine.Job) error {
			<-ctx.Done()
			return ctx.Err()
		},
		"panic": func(context.Context, engine.Job) error {
			panic("engine client blew up")
		},
	}

	for name, submit := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			f.engine.submit = submit
			f.campaign.Dispatcher.Timeout = 20 * time.Millisecond

			res, err := f.campaign.CreateCampaign(context.Background(), f.userID, sourceURL, "")
			require.NoError(t, err, "dispatch failures never fail creation")

			assert.Empty(t, res.Warning)
			assert.Equal(t, model.CampaignPending, res.Campaign.Status)
			assert.Equal(t,
				[]model.CampaignStatus{model.CampaignProcessing, model.CampaignPending},
				f.statuses(res.Campaign.ID))

			stored, ok := f.store.Campaign(res.Campaign.ID)
			require.True(t, ok)
			assert.Equal(t, model.CampaignPending, stored.Status)
		})
	}
}

func TestDispatch_RollbackSurvivesCancelledRequest(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	f.engine.submit = func(callCtx context.Context, _ engine.Job) error {
		cancel()
		<-callCtx.Done()
		return callCtx.Err()
	}
	c := &model.Campaign{UserID: f.userID, Name: "c", URL: sourceURL}
	require.NoError(t, f.store.Campaigns().Create(context.Background(), c))

	warning, err := f.campaign.Dispatcher.Dispatch(ctx, c)

	require.NoError(t, err)
	assert.Empty(t, warning)
	assert.Equal(t, model.CampaignPending, c.Status)
	stored, _ := f.store.Campaign(c.ID)
	assert.Equal(t, model.CampaignPending, stored.Status)
}

func TestDispatch_ProcessingWriteFails(t *testing.T) {
	f := newFixture(t)
	c := &model.Campaign{UserID: f.userID, Name: "c", URL: sourceURL}
	require.NoError(t, f.store.Campaigns().Create(context.Background(), c))
	f.store.FailStatusWrites = errors.New("db down")

	warning, err := f.campaign.Dispatcher.Dispatch(context.Background(), c)

	require.NoError(t, err)
	assert.Equal(t, service.WarningDispatchNotStarted, warning)
	assert.Equal(t, model.CampaignPending, c.Status)
	assert.Zero(t, f.engine.calls(), "engine must not be called without a durable processing write")
}

func TestDispatch_NeverWritesTerminalStatus(t *testing.T) {
	outcomes := []func(context.Context, engine.Job) error{
		nil,
		func(context.Context, engine.Job) error { return errors.New("boom") },
		func(context.Context, engine.Job) error { return &engine.StatusError{StatusCode: 500} },
	}
	for _, submit := range outcomes {
		f := newFixture(t)
		f.engine.submit = submit
		for i := 0; i < 3; i++ {
			_, err := f.campaign.CreateCampaign(context.Background(), f.userID, sourceURL, "")
			require.NoError(t, err)
		}
		for _, w := range f.store.StatusLog {
			assert.NotEqual(t, model.CampaignCompleted, w.Status)
			assert.NotEqual(t, model.CampaignFailed, w.Status)
		}
	}
}

func TestDispatch_EngineStatusDuringTimeoutIsKept(t *testing.T) {
	f := newFixture(t)
	f.campaign.Dispatcher.Timeout = 20 * time.Millisecond
	// The engine accepts the job and reports completion before the HTTP reply
	// reaches us, so our side only sees a timeout.
	f.engine.submit = func(ctx context.Context, job engine.Job) error {
		if err := f.campaign.ApplyEngineStatus(context.Background(), job.CampaignID, "completed"); err != nil {
			return err
		}
		<-ctx.Done()
		return ctx.Err()
	}

	res, err := f.campaign.CreateCampaign(context.Background(), f.userID, sourceURL, "")
	require.NoError(t, err)

	assert.Equal(t,
		[]model.CampaignStatus{model.CampaignProcessing, model.CampaignCompleted},
		f.statuses(res.Campaign.ID), "rollback must not overwrite the engine's status")
	stored, _ := f.store.Campaign(res.Campaign.ID)
	assert.Equal(t, model.CampaignCompleted, stored.Status)
	assert.Equal(t, model.CampaignCompleted, res.Campaign.Status)
}

func TestDispatch_NotPendingIsConflict(t *testing.T) {
	f := newFixture(t)
	c := &model.Campaign{UserID: f.userID, Name: "c", URL: sourceURL}
	require.NoError(t, f.store.Campaigns().Create(context.Background(), c))
	require.NoError(t, f.store.Campaigns().UpdateStatus(context.Background(), c.ID, model.CampaignFailed))

	// c still says pending; storage does not.
	warning, err := f.campaign.Dispatcher.Dispatch(context.Background(), c)

	var cErr *appErrors.ConflictError
	require.ErrorAs(t, err, &cErr)
	assert.Empty(t, warning)
	assert.Equal(t, model.CampaignFailed, c.Status)
	assert.Zero(t, f.engine.calls())
}

func TestResubmitCampaign_ConcurrentRequestsDispatchOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.engine.submit = func(context.Context, engine.Job) error { return errors.New("down") }
	res, err := f.campaign.CreateCampaign(ctx, f.userID, sourceURL, "")
	require.NoError(t, err)
	require.Equal(t, model.CampaignPending, res.Campaign.Status)
	f.engine.submit = nil

	// Both requests read the campaign as pending before either dispatches.
	var read sync.WaitGroup
	read.Add(2)
	f.store.OnGetOwned = func(string) {
		read.Done()
		read.Wait()
	}

	errs := make([]error, 2)
	var done sync.WaitGroup
	for i := range errs {
		done.Add(1)
		go func(i int) {
			defer done.Done()
			_, errs[i] = f.campaign.ResubmitCampaign(ctx, res.Campaign.ID, f.userID)
		}(i)
	}
	done.Wait()

	var ok, conflicts int
	for _, err := range errs {
		var cErr *appErrors.ConflictError
		switch {
		case err == nil:
			ok++
		case errors.As(err, &cErr):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflicts)
	assert.Equal(t, 2, f.engine.calls(), "one call from creation, one from the winning resubmit")
	stored, _ := f.store.Campaign(res.Campaign.ID)
	assert.Equal(t, model.CampaignProcessing, stored.Status)
}

// deadlineRecorder captures the context the rollback write runs under.
type deadlineRecorder struct {
	service.StatusWriter
	mu          sync.Mutex
	deadline    time.Time
	hasDeadline bool
	ctxErr      error
}

func (d *deadlineRecorder) TransitionStatus(ctx context.Context, id string, from, to model.CampaignStatus) (bool, error) {
	if to == model.CampaignPending {
		d.mu.Lock()
		d.deadline, d.hasDeadline = ctx.Deadline()
		d.ctxErr = ctx.Err()
		d.mu.Unlock()
	}
	return d.StatusWriter.TransitionStatus(ctx, id, from, to)
}

func TestDispatch_RollbackIsBounded(t *testing.T) {
	f := newFixture(t)
	rec := &deadlineRecorder{StatusWriter: f.store.Campaigns()}
	f.campaign.Dispatcher.Campaigns = rec

	ctx, cancel := context.WithCancel(context.Background())
	f.engine.submit = func(context.Context, engine.Job) error {
		cancel()
		return errors.New("connection reset")
	}
	c := &model.Campaign{UserID: f.userID, Name: "c", URL: sourceURL}
	require.NoError(t, f.store.Campaigns().Create(context.Background(), c))

	before := time.Now()
	_, err := f.campaign.Dispatcher.Dispatch(ctx, c)
	require.NoError(t, err)

	require.True(t, rec.hasDeadline, "rollback write needs its own deadline")
	assert.NoError(t, rec.ctxErr, "request cancellation must not reach the rollback")
	assert.False(t, rec.deadline.After(time.Now().Add(service.RollbackTimeout)))
	assert.True(t, rec.deadline.After(before))
	assert.Equal(t, model.CampaignPending, c.Status)
}
