package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/claude/livereps/internal/models"
	"github.com/claude/livereps/internal/session"
	"github.com/claude/livereps/internal/stats"
	"github.com/google/uuid"
)

var errNotFound = errors.New("not found")

// HTTPClient implements DataSource by calling the LiveReps REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server (accessed over Tailscale). The server
// identifies the caller, so userID arguments are ignored.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusNotFound:
		return nil, fmt.Errorf("httpclient: %s: %w", path, errNotFound)
	}
	return nil, fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
}

func getJSON[T any](ctx context.Context, c *HTTPClient, path string, params url.Values) (T, error) {
	var v T
	body, err := c.get(ctx, path, params)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return v, fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return v, nil
}

func limitParams(limit int) url.Values {
	v := url.Values{}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	return v
}

func (c *HTTPClient) ActiveSession(ctx context.Context, _ int) (*session.View, error) {
	v, err := getJSON[*session.View](ctx, c, "/api/v1/sessions/active", nil)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	return v, err
}

func (c *HTTPClient) ListSessions(ctx context.Context, _ int, limit int) ([]models.SessionSummary, error) {
	return getJSON[[]models.SessionSummary](ctx, c, "/api/v1/sessions", limitParams(limit))
}

func (c *HTTPClient) GetSession(ctx context.Context, _ int, id uuid.UUID) (*models.Session, error) {
	s, err := getJSON[*models.Session](ctx, c, "/api/v1/sessions/"+id.String(), nil)
	if errors.Is(err, errNotFound) {
		return nil, models.ErrSessionNotFound
	}
	return s, err
}

func (c *HTTPClient) GetExerciseHistory(ctx context.Context, _ int, exerciseID string, limit int) ([]models.HistoricalSet, error) {
	return getJSON[[]models.HistoricalSet](ctx, c, "/api/v1/exercises/"+url.PathEscape(exerciseID)+"/history", limitParams(limit))
}

func (c *HTTPClient) ListAchievements(ctx context.Context, _ int) ([]models.Achievement, error) {
	return getJSON[[]models.Achievement](ctx, c, "/api/v1/achievements", nil)
}

func (c *HTTPClient) AchievementCatalog(ctx context.Context) ([]models.AchievementDescriptor, error) {
	return getJSON[[]models.AchievementDescriptor](ctx, c, "/api/v1/achievements/catalog", nil)
}

func (c *HTTPClient) Readiness(ctx context.Context, _ int) (stats.Readiness, error) {
	return getJSON[stats.Readiness](ctx, c, "/api/v1/readiness", nil)
}
