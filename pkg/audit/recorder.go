package audit

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/platinummonkey/quill/pkg/auth"
	"github.com/platinummonkey/quill/pkg/observability"
)

// DefaultWriteTimeout bounds a single activity insert
const DefaultWriteTimeout = 5 * time.Second

// Recorder appends activity entries and builds display feeds
type Recorder struct {
	store     Store
	directory auth.Directory
	metrics   *observability.Metrics

	writeTimeout time.Duration
}

// NewRecorder creates a new Recorder. metrics may be nil.
func NewRecorder(store Store, directory auth.Directory, metrics *observability.Metrics) *Recorder {
	return &Recorder{
		store:     store,
		directory: directory,
		metrics:   metrics,

		writeTimeout: DefaultWriteTimeout,
	}
}

// Append records an activity. Failures are logged and counted but never
// returned: the operation being recorded has already happened. The insert
// outlives cancellation of ctx and is bounded by its own timeout.
func (r *Recorder) Append(ctx context.Context, entry Entry) {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.writeTimeout)
	defer cancel()

	err := r.store.Insert(writeCtx, &entry)
	r.metrics.RecordActivityWrite(err)
	if err != nil {
		observability.FromContext(ctx).
			WithError(err).
			WithFields(map[string]interface{}{
				"workspace_id": entry.WorkspaceID,
				"action":       string(entry.Action),
			}).
			Warn("failed to record activity")
	}
}

// Feed returns the newest entries for a workspace with actor names and
// rendered messages. The limit is clamped with ClampLimit.
func (r *Recorder) Feed(ctx context.Context, workspaceID int64, limit int) (items []*FeedItem, err error) {
	ctx, span := observability.StartSpan(ctx, "audit.Feed",
		attribute.Int64("workspace.id", workspaceID))
	defer func() { observability.EndSpan(span, err) }()

	entries, err := r.store.Recent(ctx, workspaceID, ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to load activity: %w", err)
	}

	ids := make([]int64, 0, len(entries))
	seen := make(map[int64]bool, len(entries))
	for _, e := range entries {
		if !seen[e.UserID] {
			seen[e.UserID] = true
			ids = append(ids, e.UserID)
		}
	}

	users, err := r.directory.LookupUsers(ctx, ids)
	if err != nil {
		// Names are decoration; the feed is still useful without them.
		observability.FromContext(ctx).WithError(err).Warn("failed to resolve activity actors")
		users = map[int64]*auth.User{}
	}

	items = make([]*FeedItem, 0, len(entries))
	for _, e := range entries {
		item := &FeedItem{Entry: e}
		if u, ok := users[e.UserID]; ok {
			item.UserName = u.Name()
			item.UserEmail = u.Email
		}
		item.Message = Render(e, item.UserName)
		items = append(items, item)
	}

	return items, nil
}
