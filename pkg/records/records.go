package records

import (
	"strings"
	"time"
)

// UnknownPatient is the patient id reported when no source yields a code.
const UnknownPatient = "Unknown"

// UnknownTherapist is the therapist display reported when no lookup matches.
const UnknownTherapist = "Unknown Therapist"

// FileRecord is a single listed session file as returned by the storage backend.
// The name is a structured path that may encode patient, therapist and date hints.
type FileRecord struct {
	ID        string
	Name      string
	Size      int64
	CreatedAt time.Time

	// Metadata holds optional per-file attributes supplied by the backend
	// (object metadata, sidecar tags). It may be nil.
	Metadata map[string]string
}

// SessionEntry is the auxiliary session information for one file.
type SessionEntry struct {
	SessionTimestamp *time.Time
	MetadataTime     *time.Time
}

// TherapistIdentity identifies the therapist responsible for a patient.
type TherapistIdentity struct {
	DisplayName string
	FirstName   string
	LastName    string
	ShortCode   string
}

// PatientIdentity identifies a patient.
type PatientIdentity struct {
	FirstName string
	LastName  string
}

// FullName joins first and last name, returning an empty string when both are blank.
func (p PatientIdentity) FullName() string {
	return joinName(p.FirstName, p.LastName)
}

// FullName joins first and last name, returning an empty string when both are blank.
func (t TherapistIdentity) FullName() string {
	return joinName(t.FirstName, t.LastName)
}

func joinName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}

// SessionLookup maps a file name to its session entry.
type SessionLookup map[string]SessionEntry

// TherapistLookup maps a file name or a patient code to a therapist identity.
type TherapistLookup map[string]TherapistIdentity

// PatientLookup maps a patient code to a patient identity.
type PatientLookup map[string]PatientIdentity

// NotesCounts maps a path variant (short name or bucket/name) to a note count.
type NotesCounts map[string]int

// SizeCategory buckets file sizes.
type SizeCategory string

const (
	SizeSmall  SizeCategory = "small"
	SizeMedium SizeCategory = "medium"
	SizeLarge  SizeCategory = "large"
)

// ResolvedFields is the derived view of a FileRecord. It is never persisted.
type ResolvedFields struct {
	PatientID        string
	PatientName      string
	TherapistDisplay string
	SessionDateTime  *time.Time
	SizeCategory     SizeCategory
	NotesCount       int
}

// ResolvedRecord pairs a FileRecord with its resolved fields.
type ResolvedRecord struct {
	FileRecord
	ResolvedFields
}

// LoadingState reports per-source loading activity.
type LoadingState struct {
	Files      bool `json:"files"`
	Sessions   bool `json:"sessions"`
	Therapists bool `json:"therapists"`
	Patients   bool `json:"patients"`
	Notes      bool `json:"notes"`
}

// Any reports whether any source is still loading.
func (s LoadingState) Any() bool {
	return s.Files || s.Sessions || s.Therapists || s.Patients || s.Notes
}

// Count returns the note count for name, trying the short key first and the
// legacy "bucket/name" key second.
func (n NotesCounts) Count(name, bucket string) int {
	if count, ok := n[name]; ok {
		return count
	}
	if bucket != "" {
		if count, ok := n[strings.TrimSuffix(bucket, "/")+"/"+strings.TrimPrefix(name, "/")]; ok {
			return count
		}
	}
	return 0
}

// Lookups bundles the auxiliary tables available to a query pass. Any table may
// be nil, meaning no enrichment is available from that source.
type Lookups struct {
	Sessions   SessionLookup
	Therapists TherapistLookup
	Patients   PatientLookup
	Notes      NotesCounts
}

// NormalizePath turns a storage name into the key used by the session tables:
// forward slashes, no surrounding blanks, no leading slash and no bucket prefix.
func NormalizePath(name, bucket string) string {
	p := strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	p = strings.TrimLeft(p, "/")
	if bucket = strings.Trim(bucket, "/"); bucket != "" {
		p = strings.TrimPrefix(p, bucket+"/")
	}
	return p
}
