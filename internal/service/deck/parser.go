// Package deck turns deck-source rows into Cards.
//
// Parsing is deliberately lenient: rows missing a front or back are
// dropped silently, and a missing or non-positive duration takes the
// caller-supplied default. Malformed input is a filtering rule here, not
// an error.
package deck

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/flashcoach/backend/internal/domain"
)

// Row is one deck-source tuple before validation.
type Row struct {
	Front       string `json:"front"`
	Back        string `json:"back"`
	DurationSec int    `json:"duration_sec"`
}

// Stats holds parser counters for logging.
type Stats struct {
	Total     int
	Dropped   int
	Defaulted int
}

// Parse converts rows into Cards, minting a fresh id per card and seeding
// the scheduling state (ease 2.5, interval 0, reps 0, unseen).
func Parse(rows []Row, defaultDurationSec int) ([]domain.Card, Stats) {
	stats := Stats{Total: len(rows)}
	cards := make([]domain.Card, 0, len(rows))

	for _, r := range rows {
		front := strings.TrimSpace(r.Front)
		back := strings.TrimSpace(r.Back)
		if front == "" || back == "" {
			stats.Dropped++
			continue
		}

		duration := r.DurationSec
		if duration <= 0 {
			duration = defaultDurationSec
			stats.Defaulted++
		}

		cards = append(cards, domain.Card{
			ID:          uuid.New().String(),
			Front:       front,
			Back:        back,
			DurationSec: duration,
			Ease:        domain.DefaultEase,
			LastGrade:   domain.GradeUnseen,
		})
	}

	return cards, stats
}

// ParseText parses the plain-text deck format: one card per line,
// front/back/duration separated by a tab or "|". Blank lines and lines
// starting with "#" are skipped.
func ParseText(text string, defaultDurationSec int) ([]domain.Card, Stats) {
	var rows []Row

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		sep := "\t"
		if !strings.Contains(line, "\t") {
			sep = "|"
		}
		fields := strings.SplitN(line, sep, 3)

		row := Row{Front: fields[0]}
		if len(fields) > 1 {
			row.Back = fields[1]
		}
		if len(fields) > 2 {
			if n, err := strconv.Atoi(strings.TrimSpace(fields[2])); err == nil {
				row.DurationSec = n
			}
		}
		rows = append(rows, row)
	}

	return Parse(rows, defaultDurationSec)
}
