package invitations

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/quill/pkg/rbac"
)

func TestReaper(t *testing.T) {
	f := newFixture(t)
	start := f.now
	f.create(t, "old@x.com", rbac.RoleViewer)

	reaper := NewReaper(f.store, nil)
	reaper.now = func() time.Time { return start.Add(7*24*time.Hour + time.Hour) }

	n, err := reaper.Reap(context.Background(), 2*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n, "still inside the grace period")

	n, err = reaper.Reap(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = reaper.Reap(context.Background(), -time.Hour)
	assert.Error(t, err)
}
