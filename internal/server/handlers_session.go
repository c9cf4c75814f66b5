package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/claude/livereps/internal/models"
	"github.com/claude/livereps/internal/session"
)

type startRequest struct {
	WorkoutID string `json:"workout_id"`
}

type extendRestRequest struct {
	Seconds int `json:"seconds"`
}

type skipExerciseRequest struct {
	Reason string `json:"reason"`
}

type setResponse struct {
	Result  *session.SetResult `json:"result"`
	Session session.View       `json:"session"`
}

type completeResponse struct {
	Session      session.View         `json:"session"`
	Achievements []models.Achievement `json:"achievements"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	h, err := s.svc.Start(r.Context(), userIDFromContext(r), req.WorkoutID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.svc.Machine().View(r.Context(), h))
}

func (s *Server) handleActiveSession(w http.ResponseWriter, r *http.Request) {
	h, err := s.svc.Handle(r.Context(), userIDFromContext(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Machine().View(r.Context(), h))
}

// intent adapts a body-less Machine operation to a handler that responds
// with the updated view.
func (s *Server) intent(op func(context.Context, *session.Handle) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.withHandle(w, r, func(ctx context.Context, h *session.Handle) error {
			return op(ctx, h)
		})
	}
}

func (s *Server) withHandle(w http.ResponseWriter, r *http.Request, fn func(context.Context, *session.Handle) error) {
	ctx := r.Context()
	h, err := s.svc.Handle(ctx, userIDFromContext(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := fn(ctx, h); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Machine().View(ctx, h))
}

func (s *Server) handleExtendRest(w http.ResponseWriter, r *http.Request) {
	var req extendRestRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.withHandle(w, r, func(ctx context.Context, h *session.Handle) error {
		return s.svc.Machine().AddRestTime(ctx, h, req.Seconds)
	})
}

func (s *Server) handleSkipExercise(w http.ResponseWriter, r *http.Request) {
	req := skipExerciseRequest{Reason: string(models.SkipOther)}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	reason, err := models.ParseSkipReason(req.Reason)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %w", session.ErrValidation, err))
		return
	}
	s.withHandle(w, r, func(ctx context.Context, h *session.Handle) error {
		return s.svc.Machine().SkipExercise(ctx, h, reason)
	})
}

func (s *Server) handleCompleteSet(w http.ResponseWriter, r *http.Request) {
	var in models.SetInput
	if err := decodeBody(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	ctx := r.Context()
	h, err := s.svc.Handle(ctx, userIDFromContext(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.svc.Machine().CompleteSet(ctx, h, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, setResponse{Result: res, Session: s.svc.Machine().View(ctx, h)})
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	h, unlocked, err := s.svc.Complete(ctx, userIDFromContext(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if unlocked == nil {
		unlocked = []models.Achievement{}
	}
	writeJSON(w, http.StatusOK, completeResponse{Session: s.svc.Machine().View(ctx, h), Achievements: unlocked})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	h, err := s.svc.Cancel(ctx, userIDFromContext(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Machine().View(ctx, h))
}
