package service

import (
	"context"
	"time"

	"github.com/unclebandit/leadflow-backend/internal/model"
)

const DefaultPollInterval = 3 * time.Second

// ShouldPoll tells a reader of the campaign view whether to fetch again.
// A pending campaign with no contacts does not poll.
func ShouldPoll(status model.CampaignStatus, p Progress) bool {
	return status == model.CampaignProcessing || p.Processed < p.Total
}

// Poller re-fetches a campaign view at a fixed interval until ShouldPoll turns false.
type Poller struct {
	Fetch    func(ctx context.Context) (*CampaignView, error)
	Interval time.Duration
	// Sleep waits between fetches; nil uses a timer bound to ctx.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnUpdate, when set, sees every fetched view.
	OnUpdate func(*CampaignView)
}

// Run returns the last view fetched once polling stops. Fetch errors end the loop.
func (p *Poller) Run(ctx context.Context) (*CampaignView, error) {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	for {
		view, err := p.Fetch(ctx)
		if err != nil {
			return nil, err
		}
		if p.OnUpdate != nil {
			p.OnUpdate(view)
		}
		if !view.ShouldPoll {
			return view, nil
		}
		if err := sleep(ctx, interval); err != nil {
			return view, err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
