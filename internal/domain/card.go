package domain

import (
	"strings"
	"time"
)

// Card is one front/back fact plus its scheduling state.
// Scheduling fields are mutated only by the review scheduler;
// Marked is flipped directly by the user.
type Card struct {
	ID          string    `json:"id"`
	Front       string    `json:"front"`
	Back        string    `json:"back"`
	DurationSec int       `json:"duration_sec"`
	Ease        float64   `json:"ease"`
	Interval    float64   `json:"interval"` // days
	Reps        int       `json:"reps"`
	Due         time.Time `json:"due"`
	LastGrade   Grade     `json:"last_grade"`
	Marked      bool      `json:"marked"`
}

const (
	// DefaultEase is the starting ease factor for a fresh card.
	DefaultEase = 2.5
	// MinEase is the floor the scheduler never goes below.
	MinEase = 1.3
)

// IsDue returns true if the card is eligible for review at the given time.
func (c *Card) IsDue(now time.Time) bool {
	return !c.Due.After(now)
}

// Validate checks the construction constraints: front and back must be
// non-empty after trimming, duration must be positive.
func (c *Card) Validate() error {
	var errs []FieldError

	if strings.TrimSpace(c.Front) == "" {
		errs = append(errs, FieldError{Field: "front", Message: "required"})
	}
	if strings.TrimSpace(c.Back) == "" {
		errs = append(errs, FieldError{Field: "back", Message: "required"})
	}
	if c.DurationSec <= 0 {
		errs = append(errs, FieldError{Field: "duration_sec", Message: "must be positive"})
	}

	if len(errs) > 0 {
		return NewValidationErrors(errs)
	}
	return nil
}

// Artifact is the opaque binary blob yielded by a finished capture.
type Artifact struct {
	Data     []byte
	MIMEType string
}

// CardResult is the per-card evaluation document returned by the
// evaluation endpoint.
type CardResult struct {
	ID              string   `json:"id"`
	Front           string   `json:"front"`
	Back            string   `json:"back"`
	DurationSec     int      `json:"durationSec"`
	HasAudio        bool     `json:"has_audio"`
	Transcript      string   `json:"transcript"`
	Similarity      float64  `json:"similarity"`
	Precision       float64  `json:"precision"`
	Recall          float64  `json:"recall"`
	F1              float64  `json:"f1"`
	MissingKeywords []string `json:"missing_keywords"`
	ExtraTerms      []string `json:"extra_terms"`
	Feedback        string   `json:"feedback"`
	Score           float64  `json:"score"`
}

// SubmissionReport is the envelope the evaluation endpoint returns for a
// full test-run submission.
type SubmissionReport struct {
	OK        bool         `json:"ok"`
	SessionID string       `json:"session_id"`
	Results   []CardResult `json:"results"`
}
