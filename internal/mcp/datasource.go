package mcp

import (
	"context"

	"github.com/claude/livereps/internal/models"
	"github.com/claude/livereps/internal/service"
	"github.com/claude/livereps/internal/session"
	"github.com/claude/livereps/internal/stats"
	"github.com/google/uuid"
)

// DataSource abstracts the data layer for MCP tools. Both *service.Service
// (in-process) and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	ActiveSession(ctx context.Context, userID int) (*session.View, error)
	ListSessions(ctx context.Context, userID, limit int) ([]models.SessionSummary, error)
	GetSession(ctx context.Context, userID int, id uuid.UUID) (*models.Session, error)
	GetExerciseHistory(ctx context.Context, userID int, exerciseID string, limit int) ([]models.HistoricalSet, error)
	ListAchievements(ctx context.Context, userID int) ([]models.Achievement, error)
	AchievementCatalog(ctx context.Context) ([]models.AchievementDescriptor, error)
	Readiness(ctx context.Context, userID int) (stats.Readiness, error)
}

// Compile-time check: *service.Service satisfies DataSource.
var _ DataSource = (*service.Service)(nil)
