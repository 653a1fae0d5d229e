package rest

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashcoach/backend/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type deckServiceMock struct {
	loadFunc  func(ctx context.Context, cards []domain.Card) error
	cardsFunc func() []domain.Card
}

func (m *deckServiceMock) LoadDeck(ctx context.Context, cards []domain.Card) error {
	return m.loadFunc(ctx, cards)
}

func (m *deckServiceMock) Cards() []domain.Card {
	if m.cardsFunc == nil {
		return nil
	}
	return m.cardsFunc()
}

func TestDeckHandler_LoadText(t *testing.T) {
	t.Parallel()

	var loaded []domain.Card
	mock := &deckServiceMock{
		loadFunc: func(_ context.Context, cards []domain.Card) error {
			loaded = cards
			return nil
		},
	}
	h := NewDeckHandler(mock, 10, testLogger())

	body := `{"text": "abate\t减弱\nbanal\t陈腐\n\n| only front |"}`
	req := httptest.NewRequest(http.MethodPost, "/api/deck", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Load(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, loaded, 2, "blank and incomplete lines are dropped")
	assert.Equal(t, "abate", loaded[0].Front)
	assert.Equal(t, 10, loaded[0].DurationSec)

	var resp loadDeckResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Cards)
}

func TestDeckHandler_LoadRows(t *testing.T) {
	t.Parallel()

	var loaded []domain.Card
	mock := &deckServiceMock{
		loadFunc: func(_ context.Context, cards []domain.Card) error {
			loaded = cards
			return nil
		},
	}
	h := NewDeckHandler(mock, 15, testLogger())

	body := `{"rows": [
		{"front": "abate", "back": "减弱", "duration_sec": 20},
		{"front": "banal", "back": "陈腐"},
		{"front": "  ", "back": "dropped"}
	]}`
	req := httptest.NewRequest(http.MethodPost, "/api/deck", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Load(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, loaded, 2)
	assert.Equal(t, 20, loaded[0].DurationSec)
	assert.Equal(t, 15, loaded[1].DurationSec, "missing duration falls back to the default")

	var resp loadDeckResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Dropped)
	assert.Equal(t, 1, resp.Defaulted)
}

func TestDeckHandler_LoadEmptyBody(t *testing.T) {
	t.Parallel()

	h := NewDeckHandler(&deckServiceMock{}, 10, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/deck", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	h.Load(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeckHandler_LoadAllRowsInvalid(t *testing.T) {
	t.Parallel()

	mock := &deckServiceMock{
		loadFunc: func(_ context.Context, cards []domain.Card) error {
			return domain.NewValidationError("deck", "no valid cards")
		},
	}
	h := NewDeckHandler(mock, 10, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/deck",
		strings.NewReader(`{"text": "\n\n# just comments\n"}`))
	rec := httptest.NewRecorder()

	h.Load(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeckHandler_List(t *testing.T) {
	t.Parallel()

	mock := &deckServiceMock{
		cardsFunc: func() []domain.Card {
			return []domain.Card{{ID: "c1", Front: "abate"}}
		},
	}
	h := NewDeckHandler(mock, 10, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/deck", nil)
	rec := httptest.NewRecorder()

	h.List(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
}
