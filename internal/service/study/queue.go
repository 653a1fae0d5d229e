package study

import (
	"sort"
	"time"

	"github.com/flashcoach/backend/internal/domain"
)

// BuildQueue partitions cards into the fixed working order:
//
//  1. scheduled cards that are due (due ≤ now),
//  2. cards never reviewed (reps == 0) not already in group 1,
//  3. everything else (reps > 0, due in the future), ascending by due.
//
// First match wins, so every input card lands in exactly one group and
// the result carries no duplicates. A card that has never been scheduled
// has a zero due and belongs to the unseen group, not the due group.
func BuildQueue(cards []domain.Card, now time.Time) []string {
	var due, unseen, rest []string

	restDue := make(map[string]time.Time)
	for _, c := range cards {
		switch {
		case !c.Due.IsZero() && c.IsDue(now):
			due = append(due, c.ID)
		case c.Reps == 0:
			unseen = append(unseen, c.ID)
		default:
			rest = append(rest, c.ID)
			restDue[c.ID] = c.Due
		}
	}

	sort.SliceStable(rest, func(i, j int) bool {
		return restDue[rest[i]].Before(restDue[rest[j]])
	})

	queue := make([]string, 0, len(cards))
	queue = append(queue, due...)
	queue = append(queue, unseen...)
	queue = append(queue, rest...)
	return queue
}

// FilteredView projects the queue through the filter, preserving queue
// order. The projection is pure and recomputed on demand; it owns no
// cursor of its own.
func FilteredView(queue []string, cards map[string]*domain.Card, f domain.Filter) []string {
	if f == domain.FilterAll {
		out := make([]string, len(queue))
		copy(out, queue)
		return out
	}

	var out []string
	for _, id := range queue {
		c, ok := cards[id]
		if ok && f.Matches(c) {
			out = append(out, id)
		}
	}
	return out
}

// clampCursor bounds cursor to [0, length-1]; an empty view clears the
// cursor to -1. Never wraps.
func clampCursor(cursor, length int) int {
	if length == 0 {
		return -1
	}
	if cursor < 0 {
		return 0
	}
	if cursor >= length {
		return length - 1
	}
	return cursor
}
