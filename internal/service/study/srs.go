package study

import (
	"math"
	"time"

	"github.com/flashcoach/backend/internal/domain"
)

// againIntervalDays is the retry interval after an Again grade:
// 0.02 days ≈ 29 minutes.
const againIntervalDays = 0.02

// millisPerDay converts the day-denominated interval into the due offset.
const millisPerDay = 86_400_000

// Schedule is a pure function mapping (card, grade, now) to the card's
// updated scheduling state. No side effects; deterministic for fixed
// inputs.
//
// Grades map onto the numeric scale Again=1, Hard=3, Know=5. Below 3 the
// card lapses: reps reset, the interval drops to a short retry, ease is
// untouched. At 3 and above the interval grows 1 → 3 → round(interval ×
// ease) and ease moves by the SM-2 delta, floored at MinEase.
func Schedule(card domain.Card, grade domain.Grade, now time.Time) domain.Card {
	g := grade.Value()

	if g < 3 {
		card.Reps = 0
		card.Interval = againIntervalDays
	} else {
		switch card.Reps {
		case 0:
			card.Interval = 1
		case 1:
			card.Interval = 3
		default:
			card.Interval = math.Max(1, math.Round(card.Interval*card.Ease))
		}
		card.Reps++

		q := float64(5 - g)
		card.Ease = math.Max(domain.MinEase, card.Ease+(0.1-q*(0.08+q*0.02)))
	}

	card.Due = now.Add(time.Duration(card.Interval*millisPerDay) * time.Millisecond)
	card.LastGrade = grade
	return card
}
