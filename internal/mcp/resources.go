package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

const recentSessionsLimit = 10

func (h *handlers) achievementCatalog(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	catalog, err := h.ds.AchievementCatalog(ctx)
	if err != nil {
		return nil, err
	}
	return jsonContents(req.Params.URI, catalog)
}

func (h *handlers) recentSessions(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uid := UserIDFromContext(ctx)

	sessions, err := h.ds.ListSessions(ctx, uid, recentSessionsLimit)
	if err != nil {
		return nil, err
	}

	active, err := h.ds.ActiveSession(ctx, uid)
	if err != nil {
		h.log.Warn("recent_sessions: active session lookup failed", "error", err)
	}

	return jsonContents(req.Params.URI, map[string]any{
		"active":   active,
		"sessions": sessions,
	})
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
