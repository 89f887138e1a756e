package invitations

import (
	"context"
	"fmt"
	"time"

	"github.com/platinummonkey/quill/pkg/observability"
)

// Reaper deletes unaccepted invitations long after they expired
type Reaper struct {
	store   Store
	metrics *observability.Metrics
	now     func() time.Time
}

// NewReaper creates a new Reaper. metrics may be nil.
func NewReaper(store Store, metrics *observability.Metrics) *Reaper {
	return &Reaper{
		store:   store,
		metrics: metrics,
		now:     time.Now,
	}
}

// Reap deletes invitations whose expiry passed more than grace ago and
// returns how many were removed
func (r *Reaper) Reap(ctx context.Context, grace time.Duration) (int64, error) {
	if grace < 0 {
		return 0, fmt.Errorf("invalid reap grace period: %s", grace)
	}

	n, err := r.store.DeleteExpired(ctx, r.now().Add(-grace))
	if err != nil {
		return 0, err
	}
	r.metrics.AddInvitations("reaped", n)
	return n, nil
}
