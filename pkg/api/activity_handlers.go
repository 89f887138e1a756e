package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/platinummonkey/quill/pkg/audit"
	"github.com/platinummonkey/quill/pkg/httputil"
	"github.com/platinummonkey/quill/pkg/observability"
)

// ActivityHandlers serves the workspace activity feed
type ActivityHandlers struct {
	feed ActivityFeed
}

// ListActivity handles GET /api/workspace/activity?limit=
func (h *ActivityHandlers) ListActivity(w http.ResponseWriter, r *http.Request) {
	items, ok := h.load(w, r)
	if !ok {
		return
	}
	httputil.WriteSuccess(w, items)
}

// ExportActivity handles GET /api/workspace/activity/export?format=&limit=
func (h *ActivityHandlers) ExportActivity(w http.ResponseWriter, r *http.Request) {
	format, err := audit.ParseExportFormat(httputil.ParseQueryString(r, "format", ""))
	if err != nil {
		httputil.WriteBadRequest(w, "format must be json, ndjson or csv")
		return
	}

	items, ok := h.load(w, r)
	if !ok {
		return
	}

	_, ws := caller(r)
	filename := fmt.Sprintf("activity-%d-%s.%s", ws.WorkspaceID, time.Now().UTC().Format("20060102"), format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)

	if err := audit.Export(w, items, format); err != nil {
		// Headers are already sent; the truncated body is all we can do
		observability.FromContext(r.Context()).WithError(err).Warn("activity export failed")
	}
}

func (h *ActivityHandlers) load(w http.ResponseWriter, r *http.Request) ([]*audit.FeedItem, bool) {
	limit, err := httputil.ParseQueryInt(r, "limit", audit.DefaultFeedLimit)
	if err != nil {
		httputil.WriteBadRequest(w, "limit must be an integer")
		return nil, false
	}

	_, ws := caller(r)
	items, err := h.feed.Feed(r.Context(), ws.WorkspaceID, limit)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	if items == nil {
		items = []*audit.FeedItem{}
	}
	return items, true
}
