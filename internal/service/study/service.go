// Package study implements the review scheduler and the deck/queue
// manager for self-paced Study mode.
package study

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/flashcoach/backend/internal/domain"
)

// Snapshot store keys. The card collection, queue and mode selection are
// persisted on every mutation and hydrated at startup.
const (
	keyCards = "cards"
	keyQueue = "queue"
	keyMode  = "mode"
)

// snapshotStore is the persistence collaborator (consumer-defined).
type snapshotStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// queueSnapshot is the persisted shape of the working queue.
type queueSnapshot struct {
	IDs    []string `json:"ids"`
	Cursor int      `json:"cursor"`
}

// QueueState is the visible state of the active queue view.
type QueueState struct {
	Filter domain.Filter `json:"filter"`
	IDs    []string      `json:"ids"`
	Cursor int           `json:"cursor"`
}

// Service owns the card collection, the working queue, and the cursor.
// Scheduling fields are mutated only through Grade; order only through
// LoadDeck/Rebuild; Marked only through ToggleMark.
type Service struct {
	store     snapshotStore
	log       *slog.Logger
	advanceOn string
	now       func() time.Time

	mu           sync.RWMutex
	cards        map[string]*domain.Card
	order        []string // deck order, stable for the deck's lifetime
	queue        []string
	cursor       int
	filter       domain.Filter
	filterCursor int
	mode         domain.Mode
}

// NewService creates a Study service. advanceOn is the auto-advance
// policy: "know", "hard", or "never".
func NewService(logger *slog.Logger, store snapshotStore, advanceOn string) *Service {
	return &Service{
		store:        store,
		log:          logger.With("service", "study"),
		advanceOn:    strings.ToLower(advanceOn),
		now:          time.Now,
		cards:        make(map[string]*domain.Card),
		cursor:       -1,
		filter:       domain.FilterAll,
		filterCursor: -1,
		mode:         domain.ModeStudy,
	}
}

// Hydrate loads persisted snapshots. Missing keys are not errors: the
// service simply starts empty.
func (s *Service) Hydrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if raw, err := s.store.Get(ctx, keyCards); err == nil {
		var cards []domain.Card
		if err := json.Unmarshal(raw, &cards); err != nil {
			return fmt.Errorf("hydrate cards: %w", err)
		}
		s.replaceLocked(cards)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("hydrate cards: %w", err)
	}

	if raw, err := s.store.Get(ctx, keyQueue); err == nil {
		var snap queueSnapshot
		if err := json.Unmarshal(raw, &snap); err != nil {
			return fmt.Errorf("hydrate queue: %w", err)
		}
		s.queue = snap.IDs
		s.cursor = clampCursor(snap.Cursor, len(snap.IDs))
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("hydrate queue: %w", err)
	}

	if raw, err := s.store.Get(ctx, keyMode); err == nil {
		var mode domain.Mode
		if err := json.Unmarshal(raw, &mode); err == nil && mode.IsValid() {
			s.mode = mode
		}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("hydrate mode: %w", err)
	}

	// A stale snapshot can reference a deck that was never saved; rebuild
	// rather than study a queue of dangling ids.
	if len(s.queue) == 0 && len(s.order) > 0 {
		s.rebuildLocked()
	}

	s.log.InfoContext(ctx, "hydrated",
		slog.Int("cards", len(s.order)),
		slog.Int("queue", len(s.queue)),
		slog.String("mode", string(s.mode)),
	)
	return nil
}

// LoadDeck replaces the card collection wholesale and rebuilds the queue.
func (s *Service) LoadDeck(ctx context.Context, cards []domain.Card) error {
	if len(cards) == 0 {
		return domain.NewValidationError("deck", "no valid cards")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.replaceLocked(cards)
	s.rebuildLocked()
	s.filter = domain.FilterAll
	s.filterCursor = s.cursor

	if err := s.persistCardsLocked(ctx); err != nil {
		return err
	}
	if err := s.persistQueueLocked(ctx); err != nil {
		return err
	}

	s.log.InfoContext(ctx, "deck loaded",
		slog.Int("cards", len(cards)),
		slog.Int("queue", len(s.queue)),
	)
	return nil
}

// Cards returns the card collection in deck order.
func (s *Service) Cards() []domain.Card {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Card, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.cards[id])
	}
	return out
}

// Queue returns the active queue view (full queue for FilterAll,
// otherwise the filtered projection with its own cursor).
func (s *Service) Queue() QueueState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queueStateLocked()
}

func (s *Service) queueStateLocked() QueueState {
	if s.filter == domain.FilterAll {
		ids := make([]string, len(s.queue))
		copy(ids, s.queue)
		return QueueState{Filter: s.filter, IDs: ids, Cursor: s.cursor}
	}
	view := FilteredView(s.queue, s.cards, s.filter)
	return QueueState{Filter: s.filter, IDs: view, Cursor: clampCursor(s.filterCursor, len(view))}
}

// SetFilter switches the active filtered view. The visible cursor resets
// to a safe bound; the unfiltered cursor is untouched.
func (s *Service) SetFilter(f domain.Filter) (QueueState, error) {
	if !f.IsValid() {
		return QueueState{}, domain.NewValidationError("filter", "must be ALL, MARKED, or HARD")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if f != s.filter {
		s.filter = f
		view := FilteredView(s.queue, s.cards, f)
		s.filterCursor = clampCursor(0, len(view))
	}
	return s.queueStateLocked(), nil
}

// Current returns the card under the active view's cursor.
func (s *Service) Current() (domain.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := s.queueStateLocked()
	if state.Cursor < 0 || state.Cursor >= len(state.IDs) {
		return domain.Card{}, domain.ErrNotFound
	}
	c, ok := s.cards[state.IDs[state.Cursor]]
	if !ok {
		return domain.Card{}, domain.ErrNotFound
	}
	return *c, nil
}

// Advance moves the active view's cursor by delta, clamped to the view
// bounds. It never wraps.
func (s *Service) Advance(ctx context.Context, delta int) (QueueState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.filter == domain.FilterAll {
		s.cursor = clampCursor(s.cursor+delta, len(s.queue))
		if err := s.persistQueueLocked(ctx); err != nil {
			return QueueState{}, err
		}
	} else {
		view := FilteredView(s.queue, s.cards, s.filter)
		s.filterCursor = clampCursor(clampCursor(s.filterCursor, len(view))+delta, len(view))
	}
	return s.queueStateLocked(), nil
}

// Grade applies the review scheduler to a card and persists the result.
// Depending on the advance policy the cursor moves to the next card.
func (s *Service) Grade(ctx context.Context, cardID string, grade domain.Grade) (domain.Card, error) {
	if !grade.IsValid() {
		return domain.Card{}, domain.NewValidationError("grade", "must be AGAIN, HARD, or KNOW")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cards[cardID]
	if !ok {
		return domain.Card{}, fmt.Errorf("grade card %s: %w", cardID, domain.ErrNotFound)
	}

	*c = Schedule(*c, grade, s.now())

	if err := s.persistCardsLocked(ctx); err != nil {
		return domain.Card{}, err
	}

	if s.shouldAdvance(grade) {
		if s.filter == domain.FilterAll {
			s.cursor = clampCursor(s.cursor+1, len(s.queue))
			if err := s.persistQueueLocked(ctx); err != nil {
				return domain.Card{}, err
			}
		} else {
			view := FilteredView(s.queue, s.cards, s.filter)
			s.filterCursor = clampCursor(clampCursor(s.filterCursor, len(view))+1, len(view))
		}
	}

	s.log.InfoContext(ctx, "card graded",
		slog.String("card_id", cardID),
		slog.String("grade", grade.String()),
		slog.Float64("interval", c.Interval),
		slog.Int("reps", c.Reps),
	)
	return *c, nil
}

// ToggleMark flips the card's marked flag. Queue order is unaffected;
// filtered-view membership changes on the next recompute.
func (s *Service) ToggleMark(ctx context.Context, cardID string) (domain.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cards[cardID]
	if !ok {
		return domain.Card{}, fmt.Errorf("mark card %s: %w", cardID, domain.ErrNotFound)
	}

	c.Marked = !c.Marked
	if err := s.persistCardsLocked(ctx); err != nil {
		return domain.Card{}, err
	}
	return *c, nil
}

// Rebuild rebuilds the queue, but only when the current queue is empty;
// mid-session rebuilds would break order stability.
func (s *Service) Rebuild(ctx context.Context) (QueueState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) > 0 {
		return s.queueStateLocked(), nil
	}
	s.rebuildLocked()
	if err := s.persistQueueLocked(ctx); err != nil {
		return QueueState{}, err
	}
	return s.queueStateLocked(), nil
}

// Mode returns the persisted mode selection.
func (s *Service) Mode() domain.Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// SetMode persists the mode selection.
func (s *Service) SetMode(ctx context.Context, m domain.Mode) error {
	if !m.IsValid() {
		return domain.NewValidationError("mode", "must be STUDY or TEST")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.mode = m
	raw, _ := json.Marshal(m)
	if err := s.store.Set(ctx, keyMode, raw); err != nil {
		return fmt.Errorf("persist mode: %w", err)
	}
	return nil
}

func (s *Service) shouldAdvance(grade domain.Grade) bool {
	switch s.advanceOn {
	case "hard":
		return grade.Value() >= 3
	case "never":
		return false
	default: // "know"
		return grade == domain.GradeKnow
	}
}

func (s *Service) replaceLocked(cards []domain.Card) {
	s.cards = make(map[string]*domain.Card, len(cards))
	s.order = make([]string, 0, len(cards))
	for i := range cards {
		c := cards[i]
		s.cards[c.ID] = &c
		s.order = append(s.order, c.ID)
	}
	s.queue = nil
	s.cursor = -1
}

func (s *Service) rebuildLocked() {
	ordered := make([]domain.Card, 0, len(s.order))
	for _, id := range s.order {
		ordered = append(ordered, *s.cards[id])
	}
	s.queue = BuildQueue(ordered, s.now())
	s.cursor = clampCursor(0, len(s.queue))
}

func (s *Service) persistCardsLocked(ctx context.Context) error {
	out := make([]domain.Card, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.cards[id])
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshal cards: %w", err)
	}
	if err := s.store.Set(ctx, keyCards, raw); err != nil {
		return fmt.Errorf("persist cards: %w", err)
	}
	return nil
}

func (s *Service) persistQueueLocked(ctx context.Context) error {
	raw, err := json.Marshal(queueSnapshot{IDs: s.queue, Cursor: s.cursor})
	if err != nil {
		return fmt.Errorf("marshal queue: %w", err)
	}
	if err := s.store.Set(ctx, keyQueue, raw); err != nil {
		return fmt.Errorf("persist queue: %w", err)
	}
	return nil
}
