package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/leadflow-backend/internal/engine"
	appErrors "github.com/unclebandit/leadflow-backend/internal/errors"
	"github.com/unclebandit/leadflow-backend/internal/model"
)

func TestCreateCampaign_RequiresURL(t *testing.T) {
	f := newFixture(t)

	for _, url := range []string{"", "   "} {
		_, err := f.campaign.CreateCampaign(context.Background(), f.userID, url, "")
		var vErr *appErrors.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "url required", vErr.Message)
	}
	n, _ := f.store.Campaigns().CountByUser(context.Background(), f.userID)
	assert.Zero(t, n)
}

func TestCreateCampaign_DefaultNames(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.campaign.CreateCampaign(ctx, f.userID, sourceURL, "")
	require.NoError(t, err)
	second, err := f.campaign.CreateCampaign(ctx, f.userID, sourceURL, "  ")
	require.NoError(t, err)
	named, err := f.campaign.CreateCampaign(ctx, f.userID, sourceURL, " Q3 founders ")
	require.NoError(t, err)

	assert.Equal(t, "Campaign 1", first.Campaign.Name)
	assert.Equal(t, "Campaign 2", second.Campaign.Name)
	assert.Equal(t, "Q3 founders", named.Campaign.Name)
}

func TestCreateCampaign_GateDenied(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	leadOnly := f.newUser(t, "auth0|bob", model.ServiceIcyPeas, model.ServiceTryKitt)

	_, err := f.campaign.CreateCampaign(ctx, leadOnly, sourceURL, "")

	var gErr *appErrors.CredentialGateError
	require.ErrorAs(t, err, &gErr)
	assert.Equal(t, []string{"Apollo API"}, gErr.MissingMandatory)
	assert.True(t, gErr.LeadSourceSatisfied)
	n, _ := f.store.Campaigns().CountByUser(ctx, leadOnly)
	assert.Zero(t, n, "nothing persisted when the gate denies")
	assert.Zero(t, f.engine.calls())
}

func TestCreateCampaign_GateSeesIntegrationChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.store.Integrations().Delete(ctx, f.userID, model.ServiceIcyPeas)
	require.NoError(t, err)
	_, err = f.campaign.CreateCampaign(ctx, f.userID, sourceURL, "")
	var gErr *appErrors.CredentialGateError
	require.ErrorAs(t, err, &gErr)
	assert.False(t, gErr.LeadSourceSatisfied)

	_, err = f.store.Integrations().Upsert(ctx, f.userID, model.ServiceLeadMagic, "lm-key")
	require.NoError(t, err)
	_, err = f.campaign.CreateCampaign(ctx, f.userID, sourceURL, "")
	assert.NoError(t, err)
}

func TestCreateCampaign_Billing(t *testing.T) {
	f := newFixture(t)
	f.campaign.BillingEnforced = true
	ctx := context.Background()

	_, err := f.campaign.CreateCampaign(ctx, f.userID, sourceURL, "")
	var sErr *appErrors.SubscriptionRequiredError
	require.ErrorAs(t, err, &sErr)

	f.store.SetSubscription(f.userID, "trialing")
	_, err = f.campaign.CreateCampaign(ctx, f.userID, sourceURL, "")
	assert.NoError(t, err)

	f.store.SetSubscription(f.userID, "canceled")
	_, err = f.campaign.CreateCampaign(ctx, f.userID, sourceURL, "")
	assert.ErrorAs(t, err, &sErr)
}

func TestCampaigns_OwnershipIsolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := f.newUser(t, "auth0|mallory", model.ServiceApollo, model.ServiceLeadMagic)

	res, err := f.campaign.CreateCampaign(ctx, f.userID, sourceURL, "mine")
	require.NoError(t, err)
	id := res.Campaign.ID

	_, err = f.campaign.GetCampaignWithContacts(ctx, id, other)
	assert.True(t, appErrors.IsNotFound(err))
	_, err = f.campaign.RenameCampaign(ctx, id, other, "stolen")
	assert.True(t, appErrors.IsNotFound(err))
	err = f.campaign.DeleteCampaign(ctx, id, other)
	assert.True(t, appErrors.IsNotFound(err))
	_, err = f.campaign.ResubmitCampaign(ctx, id, other)
	assert.True(t, appErrors.IsNotFound(err))

	// a missing id looks exactly like a foreign one
	_, err = f.campaign.GetCampaignWithContacts(ctx, "8a4c1f1e-0000-4000-8000-000000000000", f.userID)
	assert.True(t, appErrors.IsNotFound(err))

	list, _, err := f.campaign.ListCampaigns(ctx, other, 1, 20, "")
	require.NoError(t, err)
	assert.Empty(t, list)

	stored, _ := f.store.Campaign(id)
	assert.Equal(t, "mine", stored.Name)
}

func TestGetCampaignWithContacts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.campaign.CreateCampaign(ctx, f.userID, sourceURL, "")
	require.NoError(t, err)
	id := res.Campaign.ID

	base := time.Now()
	f.store.AddContact(model.Contact{CampaignID: id, Email: strPtr("ceo@acme.io"), CreatedAt: base})
	f.store.AddContact(model.Contact{CampaignID: id, Email: strPtr("n/a"), CreatedAt: base.Add(time.Second)})
	f.store.AddContact(model.Contact{CampaignID: id, CreatedAt: base.Add(2 * time.Second)})

	view, err := f.campaign.GetCampaignWithContacts(ctx, id, f.userID)
	require.NoError(t, err)

	assert.Equal(t, model.CampaignProcessing, view.Status)
	require.Len(t, view.Contacts, 3)
	assert.True(t, view.Contacts[0].CreatedAt.After(view.Contacts[1].CreatedAt), "newest contact first")
	assert.Equal(t, 3, view.Progress.Total)
	assert.Equal(t, 1, view.Progress.Processed)
	assert.True(t, view.ShouldPoll)
}

func TestScenario_NewCampaignWithoutContactsDoesNotPoll(t *testing.T) {
	f := newFixture(t)
	f.engine.configured = false
	ctx := context.Background()

	res, err := f.campaign.CreateCampaign(ctx, f.userID, sourceURL, "")
	require.NoError(t, err)

	view, err := f.campaign.GetCampaignWithContacts(ctx, res.Campaign.ID, f.userID)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignPending, view.Status)
	assert.Equal(t, 0, view.Progress.Total)
	assert.Equal(t, 0, view.Progress.Processed)
	assert.NotNil(t, view.Contacts)
	assert.False(t, view.ShouldPoll)

	require.NoError(t, f.campaign.ApplyEngineStatus(ctx, res.Campaign.ID, "processing"))
	view, err = f.campaign.GetCampaignWithContacts(ctx, res.Campaign.ID, f.userID)
	require.NoError(t, err)
	assert.True(t, view.ShouldPoll)
}

func TestRenameCampaign(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.campaign.CreateCampaign(ctx, f.userID, sourceURL, "")
	require.NoError(t, err)

	_, err = f.campaign.RenameCampaign(ctx, res.Campaign.ID, f.userID, "  ")
	var vErr *appErrors.ValidationError
	assert.ErrorAs(t, err, &vErr)

	renamed, err := f.campaign.RenameCampaign(ctx, res.Campaign.ID, f.userID, " Fintech CTOs ")
	require.NoError(t, err)
	assert.Equal(t, "Fintech CTOs", renamed.Name)
}

func TestDeleteCampaign_RemovesContacts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.campaign.CreateCampaign(ctx, f.userID, sourceURL, "")
	require.NoError(t, err)
	f.store.AddContact(model.Contact{CampaignID: res.Campaign.ID, FirstName: strPtr("Ada")})

	require.NoError(t, f.campaign.DeleteCampaign(ctx, res.Campaign.ID, f.userID))

	_, ok := f.store.Campaign(res.Campaign.ID)
	assert.False(t, ok)
	assert.Zero(t, f.store.ContactCount(res.Campaign.ID))
	assert.True(t, appErrors.IsNotFound(f.campaign.DeleteCampaign(ctx, res.Campaign.ID, f.userID)))
}

func TestResubmitCampaign(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.engine.submit = func(context.Context, engine.Job) error { return errors.New("down") }

	res, err := f.campaign.CreateCampaign(ctx, f.userID, sourceURL, "")
	require.NoError(t, err)
	require.Equal(t, model.CampaignPending, res.Campaign.Status)

	f.engine.submit = nil
	again, err := f.campaign.ResubmitCampaign(ctx, res.Campaign.ID, f.userID)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignProcessing, again.Campaign.Status)
	assert.Equal(t, 2, f.engine.calls())

	_, err = f.campaign.ResubmitCampaign(ctx, res.Campaign.ID, f.userID)
	var cErr *appErrors.ConflictError
	assert.ErrorAs(t, err, &cErr)
	assert.Equal(t, 2, f.engine.calls())
}

func TestApplyEngineStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.campaign.CreateCampaign(ctx, f.userID, sourceURL, "")
	require.NoError(t, err)
	id := res.Campaign.ID

	require.NoError(t, f.campaign.ApplyEngineStatus(ctx, id, "Completed"))
	stored, _ := f.store.Campaign(id)
	assert.Equal(t, model.CampaignCompleted, stored.Status)

	var vErr *appErrors.ValidationError
	assert.ErrorAs(t, f.campaign.ApplyEngineStatus(ctx, id, "pending"), &vErr)
	assert.ErrorAs(t, f.campaign.ApplyEngineStatus(ctx, id, "archived"), &vErr)

	err = f.campaign.ApplyEngineStatus(ctx, "8a4c1f1e-0000-4000-8000-000000000000", "failed")
	assert.True(t, appErrors.IsNotFound(err))
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.campaign.CreateCampaign(ctx, f.userID, sourceURL, "")
	require.NoError(t, err)

	require.NoError(t, f.campaign.UpdateStatus(ctx, res.Campaign.ID, model.CampaignFailed))
	stored, _ := f.store.Campaign(res.Campaign.ID)
	assert.Equal(t, model.CampaignFailed, stored.Status)

	var vErr *appErrors.ValidationError
	assert.ErrorAs(t, f.campaign.UpdateStatus(ctx, res.Campaign.ID, "sending"), &vErr)
}
