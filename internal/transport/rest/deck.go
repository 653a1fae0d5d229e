package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/flashcoach/backend/internal/domain"
	"github.com/flashcoach/backend/internal/service/deck"
)

// deckService defines the minimal study-service surface the deck
// endpoints need.
type deckService interface {
	LoadDeck(ctx context.Context, cards []domain.Card) error
	Cards() []domain.Card
}

// DeckHandler serves deck load/list endpoints.
type DeckHandler struct {
	svc             deckService
	defaultDuration int
	log             *slog.Logger
}

// NewDeckHandler creates a DeckHandler. defaultDuration fills in missing
// or non-positive per-card durations at parse time.
func NewDeckHandler(svc deckService, defaultDuration int, logger *slog.Logger) *DeckHandler {
	return &DeckHandler{
		svc:             svc,
		defaultDuration: defaultDuration,
		log:             logger.With("handler", "deck"),
	}
}

// loadDeckRequest accepts either structured rows or a raw text block
// (tab- or pipe-separated lines). Rows win when both are present.
type loadDeckRequest struct {
	Rows []deck.Row `json:"rows,omitempty"`
	Text string     `json:"text,omitempty"`
}

type loadDeckResponse struct {
	Cards     int `json:"cards"`
	Dropped   int `json:"dropped"`
	Defaulted int `json:"defaulted"`
}

// Load handles POST /api/deck.
func (h *DeckHandler) Load(w http.ResponseWriter, r *http.Request) {
	var req loadDeckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var (
		cards []domain.Card
		stats deck.Stats
	)
	switch {
	case len(req.Rows) > 0:
		cards, stats = deck.Parse(req.Rows, h.defaultDuration)
	case req.Text != "":
		cards, stats = deck.ParseText(req.Text, h.defaultDuration)
	default:
		writeError(w, http.StatusBadRequest, "either rows or text is required")
		return
	}

	if err := h.svc.LoadDeck(r.Context(), cards); err != nil {
		handleError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, loadDeckResponse{
		Cards:     len(cards),
		Dropped:   stats.Dropped,
		Defaulted: stats.Defaulted,
	})
}

// List handles GET /api/deck.
func (h *DeckHandler) List(w http.ResponseWriter, r *http.Request) {
	cards := h.svc.Cards()
	writeJSON(w, http.StatusOK, map[string]any{
		"cards": cards,
		"total": len(cards),
	})
}
