package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/unclebandit/leadflow-backend/internal/engine"
	"github.com/unclebandit/leadflow-backend/internal/gate"
	"github.com/unclebandit/leadflow-backend/internal/model"
	"github.com/unclebandit/leadflow-backend/internal/repository/repotest"
	"github.com/unclebandit/leadflow-backend/internal/service"
)

// fakeEngine records submitted jobs and the campaign status seen at submit time.
type fakeEngine struct {
	mu         sync.Mutex
	configured bool
	submit     func(ctx context.Context, job engine.Job) error
	jobs       []engine.Job
	seen       []model.CampaignStatus
	store      *repotest.Store
}

func (f *fakeEngine) Configured() bool { return f.configured }

func (f *fakeEngine) Submit(ctx context.Context, job engine.Job) error {
	f.mu.Lock()
	f.jobs = append(f.jobs, job)
	if f.store != nil {
		c, _ := f.store.Campaign(job.CampaignID)
		f.seen = append(f.seen, c.Status)
	}
	f.mu.Unlock()
	if f.submit != nil {
		return f.submit(ctx, job)
	}
	return nil
}

func (f *fakeEngine) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.jobs)
}

type fixture struct {
	store    *repotest.Store
	engine   *fakeEngine
	campaign *service.CampaignService
	userID   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repotest.NewStore()
	eng := &fakeEngine{configured: true, store: store}
	svc := &service.CampaignService{
		CampaignRepo:    store.Campaigns(),
		ContactRepo:     store.Contacts(),
		IntegrationRepo: store.Integrations(),
		UserRepo:        store.Users(),
		Policy:          gate.DefaultPolicy,
		Dispatcher: &service.Dispatcher{
			Campaigns: store.Campaigns(),
			Engine:    eng,
		},
	}
	f := &fixture{store: store, engine: eng, campaign: svc}
	f.userID = f.newUser(t, "auth0|alice", model.ServiceApollo, model.ServiceIcyPeas)
	return f
}

// newUser creates a user holding one active integration per service.
func (f *fixture) newUser(t *testing.T, externalID string, services ...model.ServiceName) string {
	t.Helper()
	ctx := context.Background()
	u, err := f.store.Users().FindOrCreate(ctx, model.Identity{ExternalID: externalID, Email: externalID + "@mail.test"})
	require.NoError(t, err)
	for _, s := range services {
		_, err := f.store.Integrations().Upsert(ctx, u.ID, s, externalID+"-"+string(s))
		require.NoError(t, err)
	}
	return u.ID
}

func (f *fixture) statuses(campaignID string) []model.CampaignStatus {
	var out []model.CampaignStatus
	for _, w := range f.store.StatusLog {
		if w.CampaignID == campaignID {
			out = append(out, w.Status)
		}
	}
	return out
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }
