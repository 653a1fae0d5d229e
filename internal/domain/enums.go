package domain

// Grade represents the user's self-assessed recall quality.
type Grade string

const (
	GradeUnseen Grade = "UNSEEN"
	GradeAgain  Grade = "AGAIN"
	GradeHard   Grade = "HARD"
	GradeKnow   Grade = "KNOW"
)

func (g Grade) String() string { return string(g) }

// IsValid reports whether g is a grade a user can actually submit.
// GradeUnseen is a lifecycle marker, not an input.
func (g Grade) IsValid() bool {
	switch g {
	case GradeAgain, GradeHard, GradeKnow:
		return true
	}
	return false
}

// Value maps the grade onto the numeric scale used by the scheduling
// formula: Again=1, Hard=3, Know=5.
func (g Grade) Value() int {
	switch g {
	case GradeAgain:
		return 1
	case GradeHard:
		return 3
	case GradeKnow:
		return 5
	}
	return 0
}

// Filter selects a derived view over the study queue.
type Filter string

const (
	FilterAll    Filter = "ALL"
	FilterMarked Filter = "MARKED"
	FilterHard   Filter = "HARD"
)

func (f Filter) String() string { return string(f) }

func (f Filter) IsValid() bool {
	switch f {
	case FilterAll, FilterMarked, FilterHard:
		return true
	}
	return false
}

// Matches reports whether the card belongs to the filtered view.
func (f Filter) Matches(c *Card) bool {
	switch f {
	case FilterMarked:
		return c.Marked
	case FilterHard:
		return c.LastGrade == GradeHard
	default:
		return true
	}
}

// Mode is the user's persisted mode selection.
type Mode string

const (
	ModeStudy Mode = "STUDY"
	ModeTest  Mode = "TEST"
)

func (m Mode) IsValid() bool {
	return m == ModeStudy || m == ModeTest
}

// SessionPhase is the lifecycle phase of a test-mode session.
type SessionPhase string

const (
	PhaseSetup     SessionPhase = "SETUP"
	PhaseArming    SessionPhase = "ARMING"
	PhaseRecording SessionPhase = "RECORDING"
	PhaseStopping  SessionPhase = "STOPPING"
	PhaseReview    SessionPhase = "REVIEW"
)

func (p SessionPhase) String() string { return string(p) }
