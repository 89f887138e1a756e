package workspaces

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/platinummonkey/quill/pkg/observability"
)

// Resolver determines the workspace and role a user operates under
type Resolver struct {
	store   Store
	metrics *observability.Metrics
}

// NewResolver creates a new Resolver. metrics may be nil.
func NewResolver(store Store, metrics *observability.Metrics) *Resolver {
	return &Resolver{store: store, metrics: metrics}
}

// Resolve returns the user's default workspace context, or
// ErrNoWorkspaceAccess when the user belongs nowhere. When the user can act
// in several workspaces, one they were invited into wins over one they own,
// and the most recently joined wins among equals.
func (r *Resolver) Resolve(ctx context.Context, userID int64) (*Context, error) {
	return r.resolve(ctx, userID, 0)
}

// ResolveIn returns the user's context in a specific workspace, or
// ErrNoWorkspaceAccess when the user is neither an active member nor the owner
func (r *Resolver) ResolveIn(ctx context.Context, userID, workspaceID int64) (*Context, error) {
	return r.resolve(ctx, userID, workspaceID)
}

func (r *Resolver) resolve(ctx context.Context, userID, workspaceID int64) (wsCtx *Context, err error) {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "workspaces.Resolve",
		attribute.Int64("user.id", userID),
		attribute.Int64("workspace.requested", workspaceID))
	defer func() {
		outcome := "found"
		switch {
		case errors.Is(err, ErrNoWorkspaceAccess):
			outcome = "no_access"
		case err != nil:
			outcome = "error"
		}
		r.metrics.ObserveResolve(outcome, time.Since(start))
		if outcome == "error" {
			observability.EndSpan(span, err)
		} else {
			span.SetAttributes(attribute.String("resolve.outcome", outcome))
			span.End()
		}
	}()

	candidates, err := r.store.ListCandidates(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace: %w", err)
	}

	if workspaceID != 0 {
		candidates = filterWorkspace(candidates, workspaceID)
	}

	best, ok := SelectCandidate(candidates)
	if !ok {
		return nil, ErrNoWorkspaceAccess
	}

	return &Context{
		WorkspaceID:   best.WorkspaceID,
		WorkspaceName: best.WorkspaceName,
		Role:          best.Role,
		IsOwner:       best.IsOwner,
	}, nil
}

// SelectCandidate picks the default workspace by the total order
// (IsOwner ascending, JoinedAt descending, WorkspaceID descending)
func SelectCandidate(candidates []Candidate) (Candidate, bool) {
	if len(candidates) == 0 {
		return Candidate{}, false
	}

	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return candidateLess(sorted[i], sorted[j])
	})
	return sorted[0], true
}

func candidateLess(a, b Candidate) bool {
	if a.IsOwner != b.IsOwner {
		return !a.IsOwner
	}
	if !a.JoinedAt.Equal(b.JoinedAt) {
		return a.JoinedAt.After(b.JoinedAt)
	}
	return a.WorkspaceID > b.WorkspaceID
}

func filterWorkspace(candidates []Candidate, workspaceID int64) []Candidate {
	var out []Candidate
	for _, c := range candidates {
		if c.WorkspaceID == workspaceID {
			out = append(out, c)
		}
	}
	return out
}
