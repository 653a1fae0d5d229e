// Package testmode implements the timed, audio-recorded test session.
//
// The controller is the sole owner of the active capture handle and the
// active countdown ticker. Every exit path from a card (countdown hitting
// zero, an explicit next, a reset, shutdown) converges on the same
// teardown sequence, so at most one capture is live at any time and a
// late-arriving artifact always lands on the card that was active when
// teardown was requested.
package testmode

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/flashcoach/backend/internal/capture"
	"github.com/flashcoach/backend/internal/domain"
)

// finalizeTimeout bounds capture finalization after a stop request. The
// session does not wait on it; it only keeps an abandoned device from
// pinning a goroutine forever.
const finalizeTimeout = 10 * time.Second

// State is the externally visible session state.
type State struct {
	Phase     domain.SessionPhase `json:"phase"`
	Cursor    int                 `json:"cursor"`
	Total     int                 `json:"total"`
	Countdown int                 `json:"countdown"`
	Card      *domain.Card        `json:"card,omitempty"`
	Captured  []string            `json:"captured"`
	LastError string              `json:"last_error,omitempty"`
}

// Controller drives the test-mode state machine:
// Setup → Arming(i) → Recording(i) → Stopping(i) → Arming(i+1) | Review.
//
// gen is a generation counter bumped on every arm and reset; goroutines
// spawned for acquisition, settling and ticking carry the generation they
// were started under and become no-ops once it moves on.
type Controller struct {
	device capture.Device
	clock  clock.Clock
	log    *slog.Logger
	settle time.Duration

	mu         sync.Mutex
	gen        uint64
	phase      domain.SessionPhase
	cards      []domain.Card
	cursor     int
	countdown  int
	artifacts  map[string]domain.Artifact
	handle     capture.Handle
	ticker     *clock.Ticker
	tickerDone chan struct{}
	sessionCtx context.Context
	cancel     context.CancelFunc
	lastErr    error
	closed     bool

	finalizing sync.WaitGroup
}

// NewController creates a test session controller. settle is the delay
// between releasing one card's capture and acquiring the next; device
// re-acquisition races are the usual failure mode here, so it should not
// be zero against real hardware.
func NewController(logger *slog.Logger, device capture.Device, clk clock.Clock, settle time.Duration) *Controller {
	return &Controller{
		device:    device,
		clock:     clk,
		log:       logger.With("service", "testmode"),
		settle:    settle,
		phase:     domain.PhaseSetup,
		artifacts: make(map[string]domain.Artifact),
	}
}

// Start stages a snapshot of the deck and begins arming the first card.
// Any session already in flight is torn down first.
func (c *Controller) Start(ctx context.Context, cards []domain.Card) (State, error) {
	if len(cards) == 0 {
		return State{}, domain.NewValidationError("deck", "no cards to test")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return State{}, fmt.Errorf("start test: %w", domain.ErrConflict)
	}

	c.resetLocked()

	snapshot := make([]domain.Card, len(cards))
	copy(snapshot, cards)
	c.cards = snapshot
	c.sessionCtx, c.cancel = context.WithCancel(context.Background())

	c.armLocked()

	c.log.InfoContext(ctx, "test started", slog.Int("cards", len(snapshot)))
	return c.stateLocked(), nil
}

// Next advances past the current card. Outside Recording it is a no-op:
// a second press while teardown is in flight, or a press with no session
// running, must never double-stop anything.
func (c *Controller) Next(ctx context.Context) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.advanceLocked()
	return c.stateLocked(), nil
}

// State returns the current session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// Reset tears down whatever is running and returns to Setup with a
// cleared capture map. Valid from any phase.
func (c *Controller) Reset(ctx context.Context) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.resetLocked()
	c.log.InfoContext(ctx, "test reset")
	return c.stateLocked()
}

// Close tears the session down and refuses further starts. Called when
// the process shuts down so no capture handle outlives the controller.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.resetLocked()
	c.closed = true
}

// Results returns the deck snapshot and the captured artifacts once the
// session has reached Review. It waits out any finalization still in
// flight so the last card's artifact is not missed.
func (c *Controller) Results() ([]domain.Card, map[string]domain.Artifact, error) {
	c.mu.Lock()
	if c.phase != domain.PhaseReview {
		c.mu.Unlock()
		return nil, nil, fmt.Errorf("test not finished: %w", domain.ErrConflict)
	}
	gen := c.gen
	c.mu.Unlock()

	c.finalizing.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen || c.phase != domain.PhaseReview {
		return nil, nil, fmt.Errorf("test not finished: %w", domain.ErrConflict)
	}

	cards := make([]domain.Card, len(c.cards))
	copy(cards, c.cards)
	arts := make(map[string]domain.Artifact, len(c.artifacts))
	for id, a := range c.artifacts {
		arts[id] = a
	}
	return cards, arts, nil
}

// armLocked enters Arming for the card under the cursor and acquires the
// device off the lock. Acquisition may block for an arbitrary time; by
// the time it returns the session may have been reset, so the result is
// discarded unless the generation still matches.
func (c *Controller) armLocked() {
	c.gen++
	gen := c.gen
	c.phase = domain.PhaseArming
	c.countdown = 0

	ctx := c.sessionCtx
	idx := c.cursor

	go func() {
		h, err := c.device.Acquire(ctx)

		c.mu.Lock()
		defer c.mu.Unlock()

		if gen != c.gen || c.phase != domain.PhaseArming {
			if err == nil {
				h.Release()
			}
			return
		}

		if err != nil {
			// Recoverable: park in Setup, keep the error for display. The
			// user retries by restarting the test.
			c.phase = domain.PhaseSetup
			c.lastErr = err
			c.log.Warn("capture acquisition failed",
				slog.String("card_id", c.cards[idx].ID),
				slog.String("error", err.Error()),
			)
			return
		}

		c.handle = h
		c.lastErr = nil
		c.phase = domain.PhaseRecording
		c.countdown = c.cards[idx].DurationSec
		c.startTickerLocked(gen)
	}()
}

// advanceLocked is the single teardown+advance sequence shared by the
// countdown, the explicit next intent, and test-mode navigation. Valid
// only while Recording; any other phase makes it a no-op, which is what
// gives teardown its idempotence.
func (c *Controller) advanceLocked() {
	if c.phase != domain.PhaseRecording {
		return
	}
	c.phase = domain.PhaseStopping
	c.stopTickerLocked()
	c.finalizeHandleLocked(c.cards[c.cursor].ID)

	c.cursor++
	if c.cursor >= len(c.cards) {
		c.phase = domain.PhaseReview
		c.log.Info("test finished",
			slog.Int("cards", len(c.cards)),
			slog.Int("captured", len(c.artifacts)),
		)
		return
	}

	// Let the hardware release settle before re-acquisition.
	gen := c.gen
	go func() {
		if c.settle > 0 {
			c.clock.Sleep(c.settle)
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if gen != c.gen || c.phase != domain.PhaseStopping {
			return
		}
		c.armLocked()
	}()
}

// finalizeHandleLocked detaches the live handle and finalizes it off the
// lock. cardID is captured by value here: the cursor will have moved on
// by the time the artifact arrives, and it must not follow it.
func (c *Controller) finalizeHandleLocked(cardID string) {
	h := c.handle
	if h == nil {
		return
	}
	c.handle = nil

	arts := c.artifacts
	c.finalizing.Add(1)
	go func() {
		defer c.finalizing.Done()

		fctx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
		defer cancel()

		art, err := h.Finalize(fctx)
		h.Release()

		c.mu.Lock()
		defer c.mu.Unlock()
		if err != nil {
			c.log.Warn("capture finalize failed",
				slog.String("card_id", cardID),
				slog.String("error", err.Error()),
			)
			return
		}
		// arts may be an orphaned map if the session was reset meanwhile;
		// the write is then invisible, which is the correct outcome.
		arts[cardID] = art
	}()
}

func (c *Controller) startTickerLocked(gen uint64) {
	t := c.clock.Ticker(time.Second)
	done := make(chan struct{})
	c.ticker = t
	c.tickerDone = done

	go func() {
		for {
			select {
			case <-t.C:
				if !c.tick(gen) {
					return
				}
			case <-done:
				return
			}
		}
	}()
}

// tick decrements the countdown by one second. Reaching zero triggers the
// same teardown+advance as an explicit next. Returns false when the tick
// loop should stop.
func (c *Controller) tick(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen || c.phase != domain.PhaseRecording {
		return false
	}

	if c.countdown > 0 {
		c.countdown--
	}
	if c.countdown == 0 {
		c.advanceLocked()
		return false
	}
	return true
}

func (c *Controller) stopTickerLocked() {
	if c.ticker == nil {
		return
	}
	c.ticker.Stop()
	close(c.tickerDone)
	c.ticker = nil
	c.tickerDone = nil
}

// resetLocked runs the full teardown sequence and returns to Setup. The
// generation bump strands every outstanding goroutine of the old session.
func (c *Controller) resetLocked() {
	c.gen++
	c.stopTickerLocked()

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
		c.sessionCtx = nil
	}

	if h := c.handle; h != nil {
		c.handle = nil
		c.finalizing.Add(1)
		go func() {
			defer c.finalizing.Done()

			fctx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
			defer cancel()
			_, _ = h.Finalize(fctx)
			h.Release()
		}()
	}

	c.cards = nil
	c.cursor = 0
	c.countdown = 0
	c.artifacts = make(map[string]domain.Artifact)
	c.phase = domain.PhaseSetup
	c.lastErr = nil
}

func (c *Controller) stateLocked() State {
	st := State{
		Phase:     c.phase,
		Cursor:    c.cursor,
		Total:     len(c.cards),
		Countdown: c.countdown,
	}
	if c.cursor >= 0 && c.cursor < len(c.cards) {
		card := c.cards[c.cursor]
		st.Card = &card
	}
	for id := range c.artifacts {
		st.Captured = append(st.Captured, id)
	}
	sort.Strings(st.Captured)
	if c.lastErr != nil {
		st.LastError = c.lastErr.Error()
	}
	return st
}
