package workspace

import (
	"fmt"
	"time"
)

// NeverSeenDays is reported for a missing timestamp so that it classifies
// as Inactive.
const NeverSeenDays = 999

const (
	activeDays      = 30
	maybeActiveDays = 90
)

// Status buckets the days since a user or token was last seen.
type Status int

const (
	Active Status = iota
	MaybeActive
	Inactive
)

func (s Status) String() string {
	switch s {
	case Active:
		return "Active"
	case MaybeActive:
		return "Maybe Active"
	default:
		return "Inactive"
	}
}

// Badge is the colored marker shown next to the status.
func (s Status) Badge() string {
	switch s {
	case Active:
		return "🟢"
	case MaybeActive:
		return "🟡"
	default:
		return "🔴"
	}
}

// Classify maps a day count onto a Status. Each boundary belongs to the
// more recent bucket: 30 is Active, 90 is Maybe Active.
func Classify(days int) Status {
	switch {
	case days <= activeDays:
		return Active
	case days <= maybeActiveDays:
		return MaybeActive
	default:
		return Inactive
	}
}

// ParseError reports a timestamp that is present but not ISO-8601.
type ParseError struct {
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse timestamp %q: %v", e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// DaysSince returns whole days elapsed between ts and now, truncated.
// An empty ts yields NeverSeenDays.
func DaysSince(ts string, now time.Time) (int, error) {
	if ts == "" {
		return NeverSeenDays, nil
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return 0, &ParseError{Value: ts, Err: err}
	}
	return int(now.UTC().Sub(t) / (24 * time.Hour)), nil
}

// Recency is a day count with its classification.
type Recency struct {
	Days   int
	Status Status
}

// Of computes the Recency of ts relative to now.
func Of(ts string, now time.Time) (Recency, error) {
	days, err := DaysSince(ts, now)
	if err != nil {
		return Recency{}, err
	}
	return Recency{Days: days, Status: Classify(days)}, nil
}

// Label renders the status with its badge, e.g. "🟢 Active".
func (r Recency) Label() string {
	return r.Status.Badge() + " " + r.Status.String()
}
