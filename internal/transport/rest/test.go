package rest

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/flashcoach/backend/internal/domain"
	"github.com/flashcoach/backend/internal/service/submit"
	"github.com/flashcoach/backend/internal/service/testmode"
)

// sessionController defines the minimal interface needed by TestHandler.
type sessionController interface {
	Start(ctx context.Context, cards []domain.Card) (testmode.State, error)
	Next(ctx context.Context) (testmode.State, error)
	State() testmode.State
	Reset(ctx context.Context) testmode.State
	Results() ([]domain.Card, map[string]domain.Artifact, error)
}

// cardSource supplies the deck snapshot a test run is started from.
type cardSource interface {
	Cards() []domain.Card
}

// evalClient assembles and sends submissions to the evaluation endpoint.
type evalClient interface {
	Build(cards []domain.Card, artifacts map[string]domain.Artifact) *submit.Submission
	Send(ctx context.Context, sub *submit.Submission) (domain.SubmissionReport, error)
}

// TestHandler serves test-mode session endpoints.
type TestHandler struct {
	ctrl  sessionController
	cards cardSource
	eval  evalClient
	log   *slog.Logger
}

// NewTestHandler creates a TestHandler.
func NewTestHandler(ctrl sessionController, cards cardSource, eval evalClient, logger *slog.Logger) *TestHandler {
	return &TestHandler{
		ctrl:  ctrl,
		cards: cards,
		eval:  eval,
		log:   logger.With("handler", "test"),
	}
}

// Start handles POST /api/test/start.
func (h *TestHandler) Start(w http.ResponseWriter, r *http.Request) {
	cards := h.cards.Cards()
	if len(cards) == 0 {
		handleError(h.log, w, r, domain.ErrNoDeck)
		return
	}

	state, err := h.ctrl.Start(r.Context(), cards)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// State handles GET /api/test/state.
func (h *TestHandler) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.State())
}

// Next handles POST /api/test/next.
func (h *TestHandler) Next(w http.ResponseWriter, r *http.Request) {
	state, err := h.ctrl.Next(r.Context())
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// Reset handles POST /api/test/reset.
func (h *TestHandler) Reset(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.Reset(r.Context()))
}

// Submit handles POST /api/test/submit. A transport or non-2xx failure
// from the evaluation endpoint comes back as 502 with the upstream
// detail verbatim; the recordings stay in the session for a retry.
func (h *TestHandler) Submit(w http.ResponseWriter, r *http.Request) {
	cards, artifacts, err := h.ctrl.Results()
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	sub := h.eval.Build(cards, artifacts)
	report, err := h.eval.Send(r.Context(), sub)
	if err != nil {
		h.log.WarnContext(r.Context(), "submission failed", slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}
