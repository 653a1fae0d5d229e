package study

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashcoach/backend/internal/domain"
)

func newCard() domain.Card {
	return domain.Card{
		ID:          "c1",
		Front:       "abate",
		Back:        "减弱",
		DurationSec: 10,
		Ease:        domain.DefaultEase,
		LastGrade:   domain.GradeUnseen,
	}
}

func TestSchedule_KnowProgression(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 2, 15, 12, 0, 0, 0, time.UTC)
	card := newCard()

	// First Know: interval 1 day, reps 1.
	card = Schedule(card, domain.GradeKnow, now)
	assert.Equal(t, 1.0, card.Interval)
	assert.Equal(t, 1, card.Reps)
	assert.Equal(t, now.Add(24*time.Hour), card.Due)
	assert.Equal(t, domain.GradeKnow, card.LastGrade)
	// Know leaves the ease delta at +0.1.
	assert.InDelta(t, 2.6, card.Ease, 1e-9)

	// Second Know: interval 3 days, reps 2.
	card = Schedule(card, domain.GradeKnow, now)
	assert.Equal(t, 3.0, card.Interval)
	assert.Equal(t, 2, card.Reps)

	// Third Know: interval = max(1, round(interval * ease)).
	card = Schedule(card, domain.GradeKnow, now)
	assert.Equal(t, 8.0, card.Interval, "round(3 * 2.7) = 8")
	assert.Equal(t, 3, card.Reps)
}

func TestSchedule_AgainResets(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 2, 15, 12, 0, 0, 0, time.UTC)

	card := newCard()
	card.Reps = 4
	card.Interval = 12
	card.Ease = 2.1

	card = Schedule(card, domain.GradeAgain, now)

	assert.Equal(t, 0, card.Reps)
	assert.Equal(t, 0.02, card.Interval)
	assert.Equal(t, 2.1, card.Ease, "Again leaves ease unchanged")
	assert.Equal(t, domain.GradeAgain, card.LastGrade)

	// 0.02 days is 1728 seconds, just under half an hour.
	assert.Equal(t, now.Add(1728*time.Second), card.Due)
}

func TestSchedule_HardEaseDelta(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 2, 15, 12, 0, 0, 0, time.UTC)

	card := newCard()
	card = Schedule(card, domain.GradeHard, now)

	// Hard: q = 2, delta = 0.1 - 2*(0.08 + 2*0.02) = -0.14.
	assert.InDelta(t, 2.36, card.Ease, 1e-9)
	assert.Equal(t, 1.0, card.Interval)
	assert.Equal(t, 1, card.Reps)
}

func TestSchedule_EaseFloor(t *testing.T) {
	t.Parallel()

	now := time.Now()

	for _, startEase := range []float64{1.3, 1.35, 1.5, 2.5, 3.0} {
		for _, grade := range []domain.Grade{domain.GradeAgain, domain.GradeHard, domain.GradeKnow} {
			card := newCard()
			card.Ease = startEase
			card.Reps = 2
			card.Interval = 5

			got := Schedule(card, grade, now)
			assert.GreaterOrEqual(t, got.Ease, domain.MinEase,
				"ease %v grade %s must stay above the floor", startEase, grade)
		}
	}
}

func TestSchedule_Deterministic(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 2, 15, 12, 0, 0, 0, time.UTC)
	card := newCard()
	card.Reps = 3
	card.Interval = 7
	card.Ease = 2.2

	first := Schedule(card, domain.GradeKnow, now)
	second := Schedule(card, domain.GradeKnow, now)

	require.Equal(t, first, second, "identical inputs must yield identical outputs")
}

func TestSchedule_IntervalFloorOnLowEase(t *testing.T) {
	t.Parallel()

	now := time.Now()

	card := newCard()
	card.Reps = 2
	card.Interval = 0.02 // just lapsed, then passed twice quickly
	card.Ease = 1.3

	got := Schedule(card, domain.GradeKnow, now)
	assert.GreaterOrEqual(t, got.Interval, 1.0, "interval never drops below one day after reps >= 2")
}
