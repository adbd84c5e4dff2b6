// Package query implements the filter, sort and paginate stages over resolved records.
package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/mwantia/sessionbrowser/pkg/records"
)

// NotesFilter restricts records by note presence.
type NotesFilter string

const (
	NotesAny     NotesFilter = ""
	NotesWith    NotesFilter = "with"
	NotesWithout NotesFilter = "without"
)

// TimeOfDay is a wall clock time in minutes after midnight.
type TimeOfDay int

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

func timeOfDay(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

// Filters is the active filter state. Zero values disable a predicate.
type Filters struct {
	Search       string
	PatientID    string
	PatientName  string
	Therapist    string
	SizeCategory records.SizeCategory
	Notes        NotesFilter

	// DateFrom and DateTo are compared by calendar day, both inclusive.
	DateFrom *time.Time
	DateTo   *time.Time

	// TimeFrom and TimeTo are inclusive and only apply to dated records.
	TimeFrom *TimeOfDay
	TimeTo   *TimeOfDay
}

// Active reports whether any predicate is enabled.
func (f Filters) Active() bool {
	return f.Search != "" || f.PatientID != "" || f.PatientName != "" || f.Therapist != "" ||
		f.SizeCategory != "" || f.Notes != NotesAny ||
		f.DateFrom != nil || f.DateTo != nil || f.TimeFrom != nil || f.TimeTo != nil
}

// Filter returns the records satisfying every active predicate, in input order.
func Filter(recs []records.ResolvedRecord, f Filters) []records.ResolvedRecord {
	out := make([]records.ResolvedRecord, 0, len(recs))
	if f.DateFrom != nil && f.DateTo != nil && day(*f.DateFrom).After(day(*f.DateTo)) {
		return out
	}

	search := strings.ToLower(strings.TrimSpace(f.Search))
	for _, r := range recs {
		if match(r, f, search) {
			out = append(out, r)
		}
	}
	return out
}

func match(r records.ResolvedRecord, f Filters, search string) bool {
	if search != "" &&
		!strings.Contains(strings.ToLower(r.Name), search) &&
		!strings.Contains(strings.ToLower(r.PatientName), search) {
		return false
	}

	if f.PatientID != "" && !strings.EqualFold(r.PatientID, strings.TrimSpace(f.PatientID)) {
		return false
	}
	if f.PatientName != "" && !containsFold(r.PatientName, f.PatientName) {
		return false
	}
	if f.Therapist != "" && !strings.EqualFold(r.TherapistDisplay, strings.TrimSpace(f.Therapist)) {
		return false
	}
	if f.SizeCategory != "" && r.SizeCategory != f.SizeCategory {
		return false
	}

	switch f.Notes {
	case NotesWith:
		if r.NotesCount == 0 {
			return false
		}
	case NotesWithout:
		if r.NotesCount > 0 {
			return false
		}
	}

	if f.DateFrom != nil || f.DateTo != nil {
		if r.SessionDateTime == nil {
			return false
		}
		d := day(*r.SessionDateTime)
		if f.DateFrom != nil && d.Before(day(*f.DateFrom)) {
			return false
		}
		if f.DateTo != nil && d.After(day(*f.DateTo)) {
			return false
		}
	}

	if r.SessionDateTime != nil && (f.TimeFrom != nil || f.TimeTo != nil) {
		tod := timeOfDay(*r.SessionDateTime)
		if f.TimeFrom != nil && tod < *f.TimeFrom {
			return false
		}
		if f.TimeTo != nil && tod > *f.TimeTo {
			return false
		}
	}

	return true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(strings.TrimSpace(substr)))
}

// day truncates t to its calendar date in t's own location.
func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
