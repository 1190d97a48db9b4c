// Package repotest provides in-memory repositories for tests.
package repotest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/unclebandit/leadflow-backend/internal/errors"
	"github.com/unclebandit/leadflow-backend/internal/model"
	"github.com/unclebandit/leadflow-backend/internal/repository"
)

// Store backs every repository interface with maps guarded by one mutex.
type Store struct {
	mu           sync.Mutex
	users        map[string]*model.User // keyed by external id
	integrations map[string]*model.Integration
	campaigns    map[string]*model.Campaign
	contacts     map[string][]model.Contact

	// StatusLog records every applied status write in order.
	StatusLog []StatusWrite
	// FailStatusWrites makes UpdateStatus and TransitionStatus return this error when set.
	FailStatusWrites error
	// OnGetOwned runs after GetOwned has read the campaign and released the lock.
	OnGetOwned func(id string)
}

type StatusWrite struct {
	CampaignID string
	Status     model.CampaignStatus
}

func NewStore() *Store {
	return &Store{
		users:        map[string]*model.User{},
		integrations: map[string]*model.Integration{},
		campaigns:    map[string]*model.Campaign{},
		contacts:     map[string][]model.Contact{},
	}
}

func (s *Store) Users() *UserRepo               { return &UserRepo{s} }
func (s *Store) Integrations() *IntegrationRepo { return &IntegrationRepo{s} }
func (s *Store) Campaigns() *CampaignRepo       { return &CampaignRepo{s} }
func (s *Store) Contacts() *ContactRepo         { return &ContactRepo{s} }

// AddContact stands in for the workflow engine writing a contact row.
func (s *Store) AddContact(c model.Contact) model.Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	s.contacts[c.CampaignID] = append(s.contacts[c.CampaignID], c)
	return c
}

// SetSubscription stands in for the billing webhook.
func (s *Store) SetSubscription(userID, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == userID {
			u.SubscriptionStatus = &status
		}
	}
}

// Campaign returns a copy of the stored campaign.
func (s *Store) Campaign(id string) (model.Campaign, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	if !ok {
		return model.Campaign{}, false
	}
	return *c, true
}

// SetCreatedAt overrides the creation time Create stamped on a campaign.
func (s *Store) SetCreatedAt(id string, t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.campaigns[id]; ok {
		c.CreatedAt = t
	}
}

func (s *Store) ContactCount(campaignID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.contacts[campaignID])
}

// ====================== Users ======================

type UserRepo struct{ s *Store }

func (r *UserRepo) FindOrCreate(_ context.Context, identity model.Identity) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u, ok := r.s.users[identity.ExternalID]; ok {
		if identity.Email != "" {
			u.Email = identity.Email
		}
		cp := *u
		return &cp, nil
	}
	now := time.Now()
	u := &model.User{
		ID:         uuid.NewString(),
		ExternalID: identity.ExternalID,
		Email:      identity.Email,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if identity.FirstName != "" {
		fn := identity.FirstName
		u.FirstName = &fn
	}
	r.s.users[identity.ExternalID] = u
	cp := *u
	return &cp, nil
}

func (r *UserRepo) CanCreateCampaigns(_ context.Context, userID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.ID == userID && u.SubscriptionStatus != nil {
			return repository.SubscriptionAllowsCampaigns(*u.SubscriptionStatus), nil
		}
	}
	return false, nil
}

// ====================== Integrations ======================

type IntegrationRepo struct{ s *Store }

func integrationKey(userID string, service model.ServiceName) string {
	return userID + "|" + string(service)
}

func (r *IntegrationRepo) ListByUser(_ context.Context, userID string) ([]model.Integration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.Integration{}
	for _, i := range r.s.integrations {
		if i.UserID == userID {
			out = append(out, *i)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ServiceName < out[b].ServiceName })
	return out, nil
}

func (r *IntegrationRepo) Get(_ context.Context, userID string, service model.ServiceName) (*model.Integration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i, ok := r.s.integrations[integrationKey(userID, service)]
	if !ok {
		return nil, appErrors.NewIntegrationNotFound(string(service))
	}
	cp := *i
	return &cp, nil
}

func (r *IntegrationRepo) ListActiveServiceNames(_ context.Context, userID string) (map[model.ServiceName]bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	active := map[model.ServiceName]bool{}
	for _, i := range r.s.integrations {
		if i.UserID == userID && i.IsActive {
			active[i.ServiceName] = true
		}
	}
	return active, nil
}

func (r *IntegrationRepo) FindActiveOwner(_ context.Context, service model.ServiceName, apiKey string) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, i := range r.s.integrations {
		if i.ServiceName == service && i.APIKey == apiKey && i.IsActive {
			return i.UserID, nil
		}
	}
	return "", nil
}

func (r *IntegrationRepo) Upsert(_ context.Context, userID string, service model.ServiceName, apiKey string) (*model.Integration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, i := range r.s.integrations {
		if i.ServiceName == service && i.APIKey == apiKey && i.IsActive && i.UserID != userID {
			return nil, appErrors.NewConflict("this %s API key is already in use by another account", service)
		}
	}
	now := time.Now()
	key := integrationKey(userID, service)
	i, ok := r.s.integrations[key]
	if !ok {
		i = &model.Integration{ID: uuid.NewString(), UserID: userID, ServiceName: service, CreatedAt: now}
		r.s.integrations[key] = i
	}
	i.APIKey = apiKey
	i.IsActive = true
	i.UpdatedAt = now
	cp := *i
	return &cp, nil
}

func (r *IntegrationRepo) Delete(_ context.Context, userID string, service model.ServiceName) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := integrationKey(userID, service)
	if _, ok := r.s.integrations[key]; !ok {
		return false, nil
	}
	delete(r.s.integrations, key)
	return true, nil
}

// ====================== Campaigns ======================

type CampaignRepo struct{ s *Store }

func (r *CampaignRepo) Create(_ context.Context, c *model.Campaign) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	if c.Status == "" {
		c.Status = model.CampaignPending
	}
	cp := *c
	r.s.campaigns[c.ID] = &cp
	return nil
}

func (r *CampaignRepo) CountByUser(_ context.Context, userID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, c := range r.s.campaigns {
		if c.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r *CampaignRepo) GetByID(_ context.Context, id string) (*model.Campaign, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.campaigns[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	cp := *c
	return &cp, nil
}

func (r *CampaignRepo) GetOwned(_ context.Context, id, userID string) (*model.Campaign, error) {
	r.s.mu.Lock()
	c, ok := r.s.campaigns[id]
	if !ok || c.UserID != userID {
		r.s.mu.Unlock()
		return nil, appErrors.NewCampaignNotFound(id)
	}
	cp := *c
	hook := r.s.OnGetOwned
	r.s.mu.Unlock()
	if hook != nil {
		hook(id)
	}
	return &cp, nil
}

func (r *CampaignRepo) UpdateStatus(_ context.Context, id string, status model.CampaignStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailStatusWrites != nil {
		return r.s.FailStatusWrites
	}
	c, ok := r.s.campaigns[id]
	if !ok {
		return appErrors.NewCampaignNotFound(id)
	}
	c.Status = status
	c.UpdatedAt = time.Now()
	r.s.StatusLog = append(r.s.StatusLog, StatusWrite{CampaignID: id, Status: status})
	return nil
}

func (r *CampaignRepo) TransitionStatus(_ context.Context, id string, from, to model.CampaignStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailStatusWrites != nil {
		return false, r.s.FailStatusWrites
	}
	c, ok := r.s.campaigns[id]
	if !ok || c.Status != from {
		return false, nil
	}
	c.Status = to
	c.UpdatedAt = time.Now()
	r.s.StatusLog = append(r.s.StatusLog, StatusWrite{CampaignID: id, Status: to})
	return true, nil
}

func (r *CampaignRepo) Rename(_ context.Context, id, userID, name string) (*model.Campaign, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.campaigns[id]
	if !ok || c.UserID != userID {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	c.Name = name
	c.UpdatedAt = time.Now()
	cp := *c
	return &cp, nil
}

func (r *CampaignRepo) Delete(_ context.Context, id, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.campaigns[id]
	if !ok || c.UserID != userID {
		return appErrors.NewCampaignNotFound(id)
	}
	delete(r.s.campaigns, id)
	delete(r.s.contacts, id)
	return nil
}

func (r *CampaignRepo) ListCampaigns(_ context.Context, userID string, offset, limit int, status string) ([]*model.Campaign, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var filtered []*model.Campaign
	for _, c := range r.s.campaigns {
		if c.UserID != userID {
			continue
		}
		if status != "" && string(c.Status) != status {
			continue
		}
		cp := *c
		filtered = append(filtered, &cp)
	}
	sort.Slice(filtered, func(i, j int) bool {
		if filtered[i].CreatedAt.Equal(filtered[j].CreatedAt) {
			return filtered[i].ID > filtered[j].ID
		}
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})
	total := len(filtered)
	if offset >= total {
		return []*model.Campaign{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return filtered[offset:end], total, nil
}

// ====================== Contacts ======================

type ContactRepo struct{ s *Store }

func (r *ContactRepo) ListByCampaign(_ context.Context, campaignID string) ([]model.Contact, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := append([]model.Contact{}, r.s.contacts[campaignID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

var (
	_ repository.UserRepositoryInterface        = (*UserRepo)(nil)
	_ repository.IntegrationRepositoryInterface = (*IntegrationRepo)(nil)
	_ repository.CampaignRepositoryInterface    = (*CampaignRepo)(nil)
	_ repository.ContactRepositoryInterface     = (*ContactRepo)(nil)
)
