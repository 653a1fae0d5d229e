package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/flashcoach/backend/internal/domain"
	"github.com/flashcoach/backend/internal/service/study"
)

// studyService defines the minimal interface needed by StudyHandler.
type studyService interface {
	Queue() study.QueueState
	SetFilter(f domain.Filter) (study.QueueState, error)
	Current() (domain.Card, error)
	Advance(ctx context.Context, delta int) (study.QueueState, error)
	Grade(ctx context.Context, cardID string, grade domain.Grade) (domain.Card, error)
	ToggleMark(ctx context.Context, cardID string) (domain.Card, error)
	Rebuild(ctx context.Context) (study.QueueState, error)
	Mode() domain.Mode
	SetMode(ctx context.Context, m domain.Mode) error
}

// StudyHandler serves study-mode endpoints.
type StudyHandler struct {
	svc studyService
	log *slog.Logger
}

// NewStudyHandler creates a StudyHandler.
func NewStudyHandler(svc studyService, logger *slog.Logger) *StudyHandler {
	return &StudyHandler{svc: svc, log: logger.With("handler", "study")}
}

type queueResponse struct {
	study.QueueState
	Current *domain.Card `json:"current,omitempty"`
}

// Queue handles GET /api/study/queue. An optional ?filter= switches the
// active view before it is returned.
func (h *StudyHandler) Queue(w http.ResponseWriter, r *http.Request) {
	state := h.svc.Queue()

	if raw := r.URL.Query().Get("filter"); raw != "" {
		var err error
		state, err = h.svc.SetFilter(domain.Filter(raw))
		if err != nil {
			handleError(h.log, w, r, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, h.withCurrent(state))
}

type gradeRequest struct {
	CardID string `json:"card_id"`
	Grade  string `json:"grade"`
}

// Grade handles POST /api/study/grade.
func (h *StudyHandler) Grade(w http.ResponseWriter, r *http.Request) {
	var req gradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	card, err := h.svc.Grade(r.Context(), req.CardID, domain.Grade(req.Grade))
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"card":  card,
		"queue": h.withCurrent(h.svc.Queue()),
	})
}

type markRequest struct {
	CardID string `json:"card_id"`
}

// Mark handles POST /api/study/mark.
func (h *StudyHandler) Mark(w http.ResponseWriter, r *http.Request) {
	var req markRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	card, err := h.svc.ToggleMark(r.Context(), req.CardID)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

type advanceRequest struct {
	Delta int `json:"delta"`
}

// Advance handles POST /api/study/advance.
func (h *StudyHandler) Advance(w http.ResponseWriter, r *http.Request) {
	var req advanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	state, err := h.svc.Advance(r.Context(), req.Delta)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.withCurrent(state))
}

// Rebuild handles POST /api/study/rebuild. Rebuilds the queue when it
// has been exhausted.
func (h *StudyHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	state, err := h.svc.Rebuild(r.Context())
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.withCurrent(state))
}

// Mode handles GET /api/study/mode.
func (h *StudyHandler) Mode(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"mode": string(h.svc.Mode())})
}

type setModeRequest struct {
	Mode string `json:"mode"`
}

// SetMode handles POST /api/study/mode.
func (h *StudyHandler) SetMode(w http.ResponseWriter, r *http.Request) {
	var req setModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.svc.SetMode(r.Context(), domain.Mode(req.Mode)); err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"mode": req.Mode})
}

func (h *StudyHandler) withCurrent(state study.QueueState) queueResponse {
	resp := queueResponse{QueueState: state}
	if card, err := h.svc.Current(); err == nil {
		resp.Current = &card
	}
	return resp
}
