package resolve

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/mwantia/sessionbrowser/pkg/records"
)

const (
	// DefaultPatientCodePattern matches codes such as "P005" delimited by
	// non-alphanumerics or the string edges.
	DefaultPatientCodePattern = `(?i)(?:^|[^a-z0-9])(p\d{3,})(?:[^0-9]|$)`

	// DefaultSmallMax is the largest size (inclusive) still considered small.
	DefaultSmallMax int64 = 2 * 1024 * 1024
	// DefaultMediumMax is the largest size (inclusive) still considered medium.
	DefaultMediumMax int64 = 10 * 1024 * 1024
)

// metadataPatientKeys are checked, case-insensitively, in this order.
var metadataPatientKeys = []string{"patient_code", "patient-code", "patientcode", "patient_id", "patient-id", "patientid"}

var fileNameDate = regexp.MustCompile(`(?:^|\D)(\d{4})-?(\d{2})-?(\d{2})(?:[_T ](\d{2})[-:]?(\d{2})[-:]?(\d{2}))?(?:\D|$)`)

// Config holds the fixed resolver parameters.
type Config struct {
	PatientCodePattern string
	SmallMax           int64
	MediumMax          int64
	NotesBucket        string
}

// Resolver holds the strategy chains. It is safe for concurrent use.
type Resolver struct {
	cfg         Config
	patientCode *regexp.Regexp

	patientID Chain[records.FileRecord, string]
}

type therapistInput struct {
	file   records.FileRecord
	lookup records.TherapistLookup
}

type sessionInput struct {
	file   records.FileRecord
	lookup records.SessionLookup
}

// New compiles the resolver configuration. Zero values fall back to defaults.
func New(cfg Config) (*Resolver, error) {
	if cfg.PatientCodePattern == "" {
		cfg.PatientCodePattern = DefaultPatientCodePattern
	}
	if cfg.SmallMax <= 0 {
		cfg.SmallMax = DefaultSmallMax
	}
	if cfg.MediumMax <= 0 {
		cfg.MediumMax = DefaultMediumMax
	}
	if cfg.MediumMax < cfg.SmallMax {
		return nil, fmt.Errorf("medium size threshold %d is below small threshold %d", cfg.MediumMax, cfg.SmallMax)
	}

	re, err := regexp.Compile(cfg.PatientCodePattern)
	if err != nil {
		return nil, fmt.Errorf("invalid patient code pattern: %w", err)
	}

	r := &Resolver{cfg: cfg, patientCode: re}
	r.patientID = Chain[records.FileRecord, string]{
		{Name: "file-name", Resolve: func(f records.FileRecord) (string, bool) { return r.ExtractPatientCode(f.Name) }},
		{Name: "metadata", Resolve: r.patientFromMetadata},
	}
	return r, nil
}

// MustNew is New for static configurations; it panics on error.
func MustNew(cfg Config) *Resolver {
	r, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return r
}

// ExtractPatientCode finds a patient code inside s.
func (r *Resolver) ExtractPatientCode(s string) (string, bool) {
	m := r.patientCode.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	code := m[0]
	if len(m) > 1 && m[1] != "" {
		code = m[1]
	}
	return strings.ToUpper(strings.TrimSpace(code)), code != ""
}

func (r *Resolver) patientFromMetadata(f records.FileRecord) (string, bool) {
	if len(f.Metadata) == 0 {
		return "", false
	}
	for _, want := range metadataPatientKeys {
		for k, v := range f.Metadata {
			if !strings.EqualFold(k, want) {
				continue
			}
			if code, ok := r.ExtractPatientCode(v); ok {
				return code, true
			}
			if v = strings.TrimSpace(v); v != "" {
				return strings.ToUpper(v), true
			}
		}
	}
	return "", false
}

// PatientID resolves the patient code of f, or records.UnknownPatient.
func (r *Resolver) PatientID(f records.FileRecord) string {
	return r.patientID.ResolveOr(f, records.UnknownPatient)
}

// PatientName resolves a display name for the patient of f: the name from the
// patient lookup when present, the patient id otherwise.
func (r *Resolver) PatientName(f records.FileRecord, patients records.PatientLookup) string {
	id := r.PatientID(f)
	if id == records.UnknownPatient {
		return id
	}
	if p, ok := patients[id]; ok {
		if name := p.FullName(); name != "" {
			return name
		}
	}
	return id
}

// TherapistDisplay resolves the therapist shown for f.
func (r *Resolver) TherapistDisplay(f records.FileRecord, lookup records.TherapistLookup) string {
	chain := Chain[therapistInput, string]{
		{Name: "file-name", Resolve: therapistByFileName},
		{Name: "patient-code", Resolve: r.therapistByPatientCode},
	}
	return chain.ResolveOr(therapistInput{file: f, lookup: lookup}, records.UnknownTherapist)
}

func therapistByFileName(in therapistInput) (string, bool) {
	t, ok := in.lookup[in.file.Name]
	if !ok {
		return "", false
	}
	return therapistName(t)
}

func (r *Resolver) therapistByPatientCode(in therapistInput) (string, bool) {
	if len(in.lookup) == 0 {
		return "", false
	}
	code := r.PatientID(in.file)
	if code == records.UnknownPatient {
		return "", false
	}
	if t, ok := in.lookup[code]; ok {
		if name, ok := therapistName(t); ok {
			return name, true
		}
	}

	// Scan for keys that embed the code; the smallest key wins so results do
	// not depend on map iteration order.
	needle := strings.ToUpper(code)
	best, found := "", false
	for key, t := range in.lookup {
		if !strings.Contains(strings.ToUpper(key), needle) {
			continue
		}
		if _, ok := therapistName(t); !ok {
			continue
		}
		if !found || key < best {
			best, found = key, true
		}
	}
	if !found {
		return "", false
	}
	return therapistName(in.lookup[best])
}

// therapistName applies display name > first+last name > short code.
func therapistName(t records.TherapistIdentity) (string, bool) {
	if name := strings.TrimSpace(t.DisplayName); name != "" {
		return name, true
	}
	if name := t.FullName(); name != "" {
		return name, true
	}
	if code := strings.TrimSpace(t.ShortCode); code != "" {
		return code, true
	}
	return "", false
}

// SessionDateTime resolves when the session of f took place, or nil.
func (r *Resolver) SessionDateTime(f records.FileRecord, lookup records.SessionLookup) *time.Time {
	chain := Chain[sessionInput, time.Time]{
		{Name: "session-timestamp", Resolve: func(in sessionInput) (time.Time, bool) {
			return deref(in.lookup[in.file.Name].SessionTimestamp)
		}},
		{Name: "metadata-time", Resolve: func(in sessionInput) (time.Time, bool) {
			return deref(in.lookup[in.file.Name].MetadataTime)
		}},
		{Name: "file-name", Resolve: func(in sessionInput) (time.Time, bool) {
			return ParseFileNameDate(in.file.Name)
		}},
	}

	t, _, ok := chain.Resolve(sessionInput{file: f, lookup: lookup})
	if !ok {
		return nil
	}
	return &t
}

func deref(t *time.Time) (time.Time, bool) {
	if t == nil || t.IsZero() {
		return time.Time{}, false
	}
	return *t, true
}

// ParseFileNameDate extracts a yyyymmdd (or yyyy-mm-dd) date and an optional
// hh-mm-ss time from the base name of a structured path. Times are UTC.
func ParseFileNameDate(name string) (time.Time, bool) {
	for _, m := range fileNameDate.FindAllStringSubmatch(path.Base(name), -1) {
		year, month, day := atoi(m[1]), atoi(m[2]), atoi(m[3])
		hour, minute, second := atoi(m[4]), atoi(m[5]), atoi(m[6])
		if month < 1 || month > 12 || day < 1 || day > 31 || hour > 23 || minute > 59 || second > 59 {
			continue
		}

		t := time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
		// Reject dates that normalize into another day, e.g. 20240231.
		if t.Day() != day || int(t.Month()) != month {
			continue
		}
		return t, true
	}
	return time.Time{}, false
}

func atoi(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	return n
}

// SizeCategory buckets a byte size using the configured thresholds.
func (r *Resolver) SizeCategory(size int64) records.SizeCategory {
	switch {
	case size <= r.cfg.SmallMax:
		return records.SizeSmall
	case size <= r.cfg.MediumMax:
		return records.SizeMedium
	default:
		return records.SizeLarge
	}
}

// Resolve computes all derived fields of f against the given lookups.
func (r *Resolver) Resolve(f records.FileRecord, lookups records.Lookups) records.ResolvedFields {
	return records.ResolvedFields{
		PatientID:        r.PatientID(f),
		PatientName:      r.PatientName(f, lookups.Patients),
		TherapistDisplay: r.TherapistDisplay(f, lookups.Therapists),
		SessionDateTime:  r.SessionDateTime(f, lookups.Sessions),
		SizeCategory:     r.SizeCategory(f.Size),
		NotesCount:       lookups.Notes.Count(f.Name, r.cfg.NotesBucket),
	}
}

// ResolveAll resolves every record in files, preserving order.
func (r *Resolver) ResolveAll(files []records.FileRecord, lookups records.Lookups) []records.ResolvedRecord {
	out := make([]records.ResolvedRecord, len(files))
	for i, f := range files {
		out[i] = records.ResolvedRecord{FileRecord: f, ResolvedFields: r.Resolve(f, lookups)}
	}
	return out
}
