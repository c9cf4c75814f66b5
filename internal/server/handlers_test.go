package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/claude/livereps/internal/ingest/alpha"
	"github.com/claude/livereps/internal/localstore"
	"github.com/claude/livereps/internal/metrics"
	"github.com/claude/livereps/internal/models"
	"github.com/claude/livereps/internal/service"
	"github.com/claude/livereps/internal/session"
)

const testAPIKey = "test-key"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestServer wires a Server to a fresh SQLite store holding the
// "push-a" workout (bench, row).
func newTestServer(t *testing.T) (*Server, *localstore.Store) {
	t.Helper()
	ctx := context.Background()
	store, err := localstore.Open(ctx, filepath.Join(t.TempDir(), "livereps.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	reps := 10
	defs := []models.ExerciseDefinition{
		{ExerciseID: "bench", Name: "Bench Press", TargetSets: 2, TargetReps: &reps, RestSeconds: 90},
		{ExerciseID: "row", Name: "Barbell Row", TargetSets: 2, TargetReps: &reps, RestSeconds: 90},
	}
	if err := store.ReplaceWorkout(ctx, "push-a", defs); err != nil {
		t.Fatalf("ReplaceWorkout: %v", err)
	}

	log := discardLogger()
	mm := metrics.NewTestManager()
	m := session.NewMachine(store, store, nil, mm, log, session.Config{})
	t.Cleanup(m.Close)
	svc := service.New(m, session.NewRegistry(), store, nil, 3, log)
	return New(svc, alpha.NewProvider(store, time.UTC, log), testAPIKey, mm, log), store
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}

// TestHandleMeDefault verifies the /api/v1/me endpoint returns the dev user
// identity when no Tailscale middleware is active.
func TestHandleMeDefault(t *testing.T) {
	s := &Server{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	ctx := context.WithValue(req.Context(), userInfoKey, UserInfo{Login: "local", DisplayName: "Local Dev User"})
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	s.handleMe(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var info UserInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if info.Login != "local" {
		t.Errorf("login = %q, want %q", info.Login, "local")
	}
	if info.DisplayName != "Local Dev User" {
		t.Errorf("display_name = %q, want %q", info.DisplayName, "Local Dev User")
	}
}

// TestHandleMeTailscaleUser verifies the /api/v1/me endpoint returns the
// Tailscale user identity when set in context.
func TestHandleMeTailscaleUser(t *testing.T) {
	s := &Server{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	ctx := context.WithValue(req.Context(), userInfoKey, UserInfo{Login: "alice@example.com", DisplayName: "Alice"})
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	s.handleMe(rec, req)

	var info UserInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if info.Login != "alice@example.com" {
		t.Errorf("login = %q, want %q", info.Login, "alice@example.com")
	}
	if info.DisplayName != "Alice" {
		t.Errorf("display_name = %q, want %q", info.DisplayName, "Alice")
	}
}

// TestStatusFor verifies the error kind to HTTP status mapping.
func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: reps", session.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("%w: paused", session.ErrInvalidState), http.StatusConflict},
		{fmt.Errorf("%w: active", session.ErrConflict), http.StatusConflict},
		{fmt.Errorf("%w: index 5", session.ErrBoundary), http.StatusUnprocessableEntity},
		{session.ErrNoActiveSession, http.StatusNotFound},
		{fmt.Errorf("loading: %w", models.ErrSessionNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: db down", session.ErrPersistence), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

// TestSessionLifecycleOverHTTP drives a whole session through the API and
// checks the read endpoints afterwards.
func TestSessionLifecycleOverHTTP(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/v1/sessions", `{"workout_id":"push-a"}`)
	expectStatus(t, rec, http.StatusCreated)
	view := decode[session.View](t, rec)
	if view.Phase != session.PhaseInProgress || view.CurrentExercise == nil || view.CurrentExercise.ExerciseID != "bench" {
		t.Fatalf("start view = %+v", view)
	}

	rec = do(t, s, http.MethodGet, "/api/v1/sessions/active", "")
	expectStatus(t, rec, http.StatusOK)

	rec = do(t, s, http.MethodPost, "/api/v1/sessions/active/sets", `{"reps_completed":10,"weight_kg":60,"rpe":8}`)
	expectStatus(t, rec, http.StatusOK)
	set := decode[setResponse](t, rec)
	if set.Result == nil || set.Result.Set.SetNumber != 1 || set.Session.Phase != session.PhaseResting {
		t.Fatalf("set response = %+v", set)
	}
	if set.Result.Rest.RecommendedRestSeconds <= 0 {
		t.Errorf("recommended rest = %d", set.Result.Rest.RecommendedRestSeconds)
	}

	rec = do(t, s, http.MethodPost, "/api/v1/sessions/active/rest/extend", `{"seconds":30}`)
	expectStatus(t, rec, http.StatusOK)
	extended := decode[session.View](t, rec)
	if !extended.RestEndsAt.Equal(set.Result.RestEndsAt.Add(30 * time.Second)) {
		t.Errorf("rest ends %v, want %v", extended.RestEndsAt, set.Result.RestEndsAt.Add(30*time.Second))
	}

	expectStatus(t, do(t, s, http.MethodPost, "/api/v1/sessions/active/rest/skip", ""), http.StatusOK)
	expectStatus(t, do(t, s, http.MethodPost, "/api/v1/sessions/active/pause", ""), http.StatusOK)
	expectStatus(t, do(t, s, http.MethodPost, "/api/v1/sessions/active/sets", `{"reps_completed":10}`), http.StatusConflict)
	expectStatus(t, do(t, s, http.MethodPost, "/api/v1/sessions/active/resume", ""), http.StatusOK)

	rec = do(t, s, http.MethodPost, "/api/v1/sessions/active/exercises/next", "")
	expectStatus(t, rec, http.StatusOK)
	if v := decode[session.View](t, rec); v.CurrentExerciseIndex != 1 {
		t.Errorf("index after next = %d, want 1", v.CurrentExerciseIndex)
	}
	expectStatus(t, do(t, s, http.MethodPost, "/api/v1/sessions/active/exercises/next", ""), http.StatusUnprocessableEntity)

	rec = do(t, s, http.MethodPost, "/api/v1/sessions/active/exercises/skip", `{"reason":"equipment"}`)
	expectStatus(t, rec, http.StatusOK)
	skipped := decode[session.View](t, rec)
	if !skipped.Exercises[len(skipped.Exercises)-1].Skipped {
		t.Error("row should be skipped")
	}

	rec = do(t, s, http.MethodPost, "/api/v1/sessions/active/complete", "")
	expectStatus(t, rec, http.StatusOK)
	done := decode[completeResponse](t, rec)
	if done.Session.Phase != session.PhaseCompleted {
		t.Errorf("phase = %s, want completed", done.Session.Phase)
	}
	if len(done.Achievements) == 0 {
		t.Error("expected achievements on the first workout")
	}

	expectStatus(t, do(t, s, http.MethodGet, "/api/v1/sessions/active", ""), http.StatusNotFound)

	rec = do(t, s, http.MethodGet, "/api/v1/sessions?limit=5", "")
	expectStatus(t, rec, http.StatusOK)
	sums := decode[[]models.SessionSummary](t, rec)
	if len(sums) != 1 || sums[0].Status != models.StatusCompleted || sums[0].TotalVolumeKg != 600 {
		t.Fatalf("summaries = %+v", sums)
	}

	rec = do(t, s, http.MethodGet, "/api/v1/sessions/"+sums[0].ID.String(), "")
	expectStatus(t, rec, http.StatusOK)
	if detail := decode[models.Session](t, rec); len(detail.Exercises) != 2 {
		t.Errorf("detail exercises = %d, want 2", len(detail.Exercises))
	}

	rec = do(t, s, http.MethodGet, "/api/v1/exercises/bench/history", "")
	expectStatus(t, rec, http.StatusOK)
	if hist := decode[[]models.HistoricalSet](t, rec); len(hist) != 1 || hist[0].Reps != 10 {
		t.Errorf("history = %+v", hist)
	}

	rec = do(t, s, http.MethodGet, "/api/v1/achievements", "")
	expectStatus(t, rec, http.StatusOK)
	if list := decode[[]models.Achievement](t, rec); len(list) != len(done.Achievements) {
		t.Errorf("achievements = %d, want %d", len(list), len(done.Achievements))
	}

	expectStatus(t, do(t, s, http.MethodGet, "/api/v1/achievements/catalog", ""), http.StatusOK)
	expectStatus(t, do(t, s, http.MethodGet, "/api/v1/readiness", ""), http.StatusOK)
}

// TestSessionErrors covers the error paths of the intent endpoints.
func TestSessionErrors(t *testing.T) {
	tests := []struct {
		name         string
		start        bool
		method, path string
		body         string
		want         int
	}{
		{"no session", false, http.MethodPost, "/api/v1/sessions/active/pause", "", http.StatusNotFound},
		{"unknown workout", false, http.MethodPost, "/api/v1/sessions", `{"workout_id":"nope"}`, http.StatusBadRequest},
		{"missing workout", false, http.MethodPost, "/api/v1/sessions", `{}`, http.StatusBadRequest},
		{"malformed JSON", false, http.MethodPost, "/api/v1/sessions", `{"workout_id":`, http.StatusBadRequest},
		{"second start", true, http.MethodPost, "/api/v1/sessions", `{"workout_id":"push-a"}`, http.StatusConflict},
		{"zero reps", true, http.MethodPost, "/api/v1/sessions/active/sets", `{"reps_completed":0}`, http.StatusBadRequest},
		{"rpe out of range", true, http.MethodPost, "/api/v1/sessions/active/sets", `{"reps_completed":5,"rpe":11}`, http.StatusBadRequest},
		{"extend without rest", true, http.MethodPost, "/api/v1/sessions/active/rest/extend", `{"seconds":30}`, http.StatusConflict},
		{"skip rest without rest", true, http.MethodPost, "/api/v1/sessions/active/rest/skip", "", http.StatusConflict},
		{"previous at first", true, http.MethodPost, "/api/v1/sessions/active/exercises/previous", "", http.StatusUnprocessableEntity},
		{"bad skip reason", true, http.MethodPost, "/api/v1/sessions/active/exercises/skip", `{"reason":"bored"}`, http.StatusBadRequest},
		{"resume while running", true, http.MethodPost, "/api/v1/sessions/active/resume", "", http.StatusConflict},
		{"bad session id", false, http.MethodGet, "/api/v1/sessions/not-a-uuid", "", http.StatusBadRequest},
		{"unknown session id", false, http.MethodGet, "/api/v1/sessions/7f7c1f5e-3f4e-4d4b-9b44-2f0f3f1f7a11", "", http.StatusNotFound},
		{"bad limit", false, http.MethodGet, "/api/v1/sessions?limit=abc", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t)
			if tt.start {
				expectStatus(t, do(t, s, http.MethodPost, "/api/v1/sessions", `{"workout_id":"push-a"}`), http.StatusCreated)
			}
			rec := do(t, s, tt.method, tt.path, tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("content type = %q", ct)
			}
		})
	}
}

// TestCancelOverHTTP verifies cancel ends the session and frees the slot
// for a new one.
func TestCancelOverHTTP(t *testing.T) {
	s, _ := newTestServer(t)
	expectStatus(t, do(t, s, http.MethodPost, "/api/v1/sessions", `{"workout_id":"push-a"}`), http.StatusCreated)

	rec := do(t, s, http.MethodPost, "/api/v1/sessions/active/cancel", "")
	expectStatus(t, rec, http.StatusOK)
	if v := decode[session.View](t, rec); v.Phase != session.PhaseCancelled {
		t.Errorf("phase = %s, want cancelled", v.Phase)
	}
	expectStatus(t, do(t, s, http.MethodPost, "/api/v1/sessions/active/cancel", ""), http.StatusNotFound)
	expectStatus(t, do(t, s, http.MethodPost, "/api/v1/sessions", `{"workout_id":"push-a"}`), http.StatusCreated)
}

// TestAlphaImportOverHTTP verifies the import route requires the API key
// and stores the uploaded workouts once.
func TestAlphaImportOverHTTP(t *testing.T) {
	s, store := newTestServer(t)
	csv := `"Push · Day 1";"2026-02-17 5:04 h";"1:12 hr"
"1. Bench Press · Barbell · 6 reps"
#;KG;REPS;RIR
1;100;6;1
2;100;6;0
`
	post := func(key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/import/alpha", strings.NewReader(csv))
		if key != "" {
			req.Header.Set("X-API-Key", key)
		}
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)
		return rec
	}

	expectStatus(t, post(""), http.StatusUnauthorized)
	expectStatus(t, post("wrong"), http.StatusForbidden)

	rec := post(testAPIKey)
	expectStatus(t, rec, http.StatusOK)
	var res struct {
		SessionsInserted int `json:"sessions_inserted"`
		SetsInserted     int `json:"sets_inserted"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if res.SessionsInserted != 1 || res.SetsInserted != 2 {
		t.Errorf("result = %+v", res)
	}

	expectStatus(t, post(testAPIKey), http.StatusOK)
	sums, err := store.ListSessions(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sums) != 1 || sums[0].WorkoutID != "push-day-1" {
		t.Errorf("sessions = %+v", sums)
	}
}
