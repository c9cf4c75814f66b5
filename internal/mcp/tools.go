package mcp

import (
	"context"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

// --- Tool definitions ---

var toolGetActiveSession = mcp.NewTool("get_active_session",
	mcp.WithDescription("The user's live workout session: phase, current exercise and set, rest countdown, live stats, and every logged set. Returns null when no session is running."),
)

var toolGetSessionHistory = mcp.NewTool("get_session_history",
	mcp.WithDescription("Summaries of past sessions, newest first: workout, status, duration, volume, calories, completion and average RPE."),
	mcp.WithNumber("limit", mcp.Description("Maximum number of sessions. Defaults to 20.")),
)

var toolGetSessionDetail = mcp.NewTool("get_session_detail",
	mcp.WithDescription("One session with all exercise logs and sets."),
	mcp.WithString("session_id", mcp.Required(), mcp.Description("Session UUID as returned by get_session_history")),
)

var toolGetExerciseHistory = mcp.NewTool("get_exercise_history",
	mcp.WithDescription("Most recent completed sets of one exercise across finished sessions, newest first. Includes reps, weight and RPE."),
	mcp.WithString("exercise_id", mcp.Required(), mcp.Description("Exercise id from the workout catalog (e.g. bench_press)")),
	mcp.WithNumber("limit", mcp.Description("Maximum number of sets. Defaults to 50.")),
)

var toolGetAchievements = mcp.NewTool("get_achievements",
	mcp.WithDescription("Achievements the user has unlocked, newest first, plus the total points earned."),
)

var toolGetTrainingReadiness = mcp.NewTool("get_training_readiness",
	mcp.WithDescription("Recovery score (0-100), hours since the last session, workouts missed against the weekly target, and a train/light/rest recommendation."),
)

// --- Tool handlers ---

func (h *handlers) getActiveSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	view, err := h.ds.ActiveSession(ctx, UserIDFromContext(ctx))
	if err != nil {
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(view)
}

func (h *handlers) getSessionHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessions, err := h.ds.ListSessions(ctx, UserIDFromContext(ctx), req.GetInt("limit", 20))
	if err != nil {
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(sessions)
}

func (h *handlers) getSessionDetail(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id parameter is required"), nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return mcp.NewToolResultError("invalid session_id: " + err.Error()), nil
	}
	sess, err := h.ds.GetSession(ctx, UserIDFromContext(ctx), id)
	if err != nil {
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(sess)
}

func (h *handlers) getExerciseHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exerciseID, err := req.RequireString("exercise_id")
	if err != nil {
		return mcp.NewToolResultError("exercise_id parameter is required"), nil
	}
	sets, err := h.ds.GetExerciseHistory(ctx, UserIDFromContext(ctx), exerciseID, req.GetInt("limit", 50))
	if err != nil {
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(sets)
}

func (h *handlers) getAchievements(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := h.ds.ListAchievements(ctx, UserIDFromContext(ctx))
	if err != nil {
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	points := 0
	for _, a := range list {
		points += a.Points
	}
	return jsonResult(map[string]any{
		"unlocked":     list,
		"total_points": points,
	})
}

func (h *handlers) getTrainingReadiness(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rd, err := h.ds.Readiness(ctx, UserIDFromContext(ctx))
	if err != nil {
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(rd)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
