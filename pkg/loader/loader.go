// Package loader fetches the session, therapist, patient and notes tables that
// enrich a listing. Each table is fetched with one batched call, cached under a
// key derived from the batch, and indexed for constant-time lookups.
package loader

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mwantia/sessionbrowser/pkg/cache"
	"github.com/mwantia/sessionbrowser/pkg/log"
	"github.com/mwantia/sessionbrowser/pkg/records"
	"github.com/mwantia/sessionbrowser/pkg/resolve"
)

// SessionSource returns session entries keyed by normalized path.
type SessionSource interface {
	GetSessionsByPaths(ctx context.Context, paths []string) (map[string]records.SessionEntry, error)
}

// TherapistSource returns therapist identities keyed by patient code.
type TherapistSource interface {
	ResolveTherapistsByPatientCodes(ctx context.Context, codes []string) (map[string]records.TherapistIdentity, error)
}

// PatientSource returns patient identities keyed by patient code.
type PatientSource interface {
	GetPatientsByCodes(ctx context.Context, codes []string) (records.PatientLookup, error)
}

// NotesSource returns note counts keyed by path variant.
type NotesSource interface {
	GetNotesCounts(ctx context.Context) (records.NotesCounts, error)
}

// Source identifies one auxiliary table.
type Source string

const (
	Sessions   Source = "sessions"
	Therapists Source = "therapists"
	Patients   Source = "patients"
	Notes      Source = "notes"
)

// Update reports the completion of one source. Only the field of Lookups that
// belongs to Source is set. Err is informational: the table is empty, never nil.
type Update struct {
	Source  Source
	Lookups records.Lookups
	Err     error
}

// Sources groups the collaborators. A nil source is skipped.
type Sources struct {
	Sessions   SessionSource
	Therapists TherapistSource
	Patients   PatientSource
	Notes      NotesSource
}

// DefaultFetchTimeout bounds a batch fetch that is shared between loads.
const DefaultFetchTimeout = 30 * time.Second

// Loader fetches auxiliary tables. It is safe for concurrent use.
type Loader struct {
	src      Sources
	cache    *cache.Cache[any]
	resolver *resolve.Resolver
	bucket   string
	timeout  time.Duration
	log      log.LoggerService
}

// New creates a Loader. bucket is stripped from file names before session lookups.
func New(src Sources, c *cache.Cache[any], resolver *resolve.Resolver, bucket string, logger log.LoggerService) *Loader {
	if logger == nil {
		logger = log.Nop()
	}
	return &Loader{
		src:      src,
		cache:    c,
		resolver: resolver,
		bucket:   bucket,
		timeout:  DefaultFetchTimeout,
		log:      logger,
	}
}

// SetFetchTimeout overrides DefaultFetchTimeout. Values <= 0 are ignored.
func (l *Loader) SetFetchTimeout(d time.Duration) {
	if d > 0 {
		l.timeout = d
	}
}

// Enabled reports whether a collaborator is configured for source.
func (l *Loader) Enabled(source Source) bool {
	switch source {
	case Sessions:
		return l.src.Sessions != nil
	case Therapists:
		return l.src.Therapists != nil
	case Patients:
		return l.src.Patients != nil
	case Notes:
		return l.src.Notes != nil
	}
	return false
}

// Load fetches every configured source concurrently. notify, when non-nil, is
// called once per source as soon as it completes and must be safe for
// concurrent use. A failing source is logged and yields an empty table; it
// never cancels the others.
func (l *Loader) Load(ctx context.Context, files []records.FileRecord, notify func(Update)) records.Lookups {
	var (
		g       errgroup.Group
		updates = make(chan Update, 4)
	)

	run := func(source Source, fn func() (records.Lookups, error)) {
		if !l.Enabled(source) {
			return
		}
		g.Go(func() error {
			lookups, err := fn()
			if err != nil {
				l.log.Warn("Failed to load %s, continuing without them: %v", source, err)
			}
			u := Update{Source: source, Lookups: lookups, Err: err}
			if notify != nil {
				notify(u)
			}
			updates <- u
			return nil
		})
	}

	run(Sessions, func() (records.Lookups, error) {
		t, err := l.LoadSessions(ctx, files)
		return records.Lookups{Sessions: t}, err
	})
	run(Therapists, func() (records.Lookups, error) {
		t, err := l.LoadTherapists(ctx, files)
		return records.Lookups{Therapists: t}, err
	})
	run(Patients, func() (records.Lookups, error) {
		t, err := l.LoadPatients(ctx, files)
		return records.Lookups{Patients: t}, err
	})
	run(Notes, func() (records.Lookups, error) {
		t, err := l.LoadNotes(ctx)
		return records.Lookups{Notes: t}, err
	})

	_ = g.Wait()
	close(updates)

	var result records.Lookups
	for u := range updates {
		Merge(&result, u)
	}
	return result
}

// Merge copies the table carried by u into dst, replacing the previous one.
func Merge(dst *records.Lookups, u Update) {
	switch u.Source {
	case Sessions:
		dst.Sessions = u.Lookups.Sessions
	case Therapists:
		dst.Therapists = u.Lookups.Therapists
	case Patients:
		dst.Patients = u.Lookups.Patients
	case Notes:
		dst.Notes = u.Lookups.Notes
	}
}

// LoadSessions fetches session entries for the paths of files and indexes
// them by file name.
func (l *Loader) LoadSessions(ctx context.Context, files []records.FileRecord) (records.SessionLookup, error) {
	lookup := make(records.SessionLookup)
	if l.src.Sessions == nil {
		return lookup, nil
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, records.NormalizePath(f.Name, l.bucket))
	}
	paths = unique(paths)
	if len(paths) == 0 {
		return lookup, nil
	}

	byPath, err := fetch(ctx, l, string(Sessions), paths, func(ctx context.Context) (map[string]records.SessionEntry, error) {
		return l.src.Sessions.GetSessionsByPaths(ctx, paths)
	})
	if err != nil {
		return lookup, err
	}

	for _, f := range files {
		if entry, ok := byPath[records.NormalizePath(f.Name, l.bucket)]; ok {
			lookup[f.Name] = entry
		}
	}
	return lookup, nil
}

// LoadTherapists fetches therapists for the patient codes found in files and
// indexes them by both patient code and file name.
func (l *Loader) LoadTherapists(ctx context.Context, files []records.FileRecord) (records.TherapistLookup, error) {
	lookup := make(records.TherapistLookup)
	if l.src.Therapists == nil {
		return lookup, nil
	}

	codes := l.patientCodes(files)
	if len(codes) == 0 {
		return lookup, nil
	}

	byCode, err := fetch(ctx, l, string(Therapists), codes, func(ctx context.Context) (map[string]records.TherapistIdentity, error) {
		return l.src.Therapists.ResolveTherapistsByPatientCodes(ctx, codes)
	})
	if err != nil {
		return lookup, err
	}

	for code, t := range byCode {
		lookup[strings.ToUpper(code)] = t
	}
	for _, f := range files {
		if t, ok := lookup[l.resolver.PatientID(f)]; ok {
			lookup[f.Name] = t
		}
	}
	return lookup, nil
}

// LoadPatients fetches patients for the patient codes found in files.
func (l *Loader) LoadPatients(ctx context.Context, files []records.FileRecord) (records.PatientLookup, error) {
	lookup := make(records.PatientLookup)
	if l.src.Patients == nil {
		return lookup, nil
	}

	codes := l.patientCodes(files)
	if len(codes) == 0 {
		return lookup, nil
	}

	byCode, err := fetch(ctx, l, string(Patients), codes, func(ctx context.Context) (records.PatientLookup, error) {
		return l.src.Patients.GetPatientsByCodes(ctx, codes)
	})
	if err != nil {
		return lookup, err
	}

	for code, p := range byCode {
		lookup[strings.ToUpper(code)] = p
	}
	return lookup, nil
}

// LoadNotes fetches the note counts of every path variant.
func (l *Loader) LoadNotes(ctx context.Context) (records.NotesCounts, error) {
	counts := make(records.NotesCounts)
	if l.src.Notes == nil {
		return counts, nil
	}

	result, err := fetch(ctx, l, string(Notes), nil, func(ctx context.Context) (records.NotesCounts, error) {
		return l.src.Notes.GetNotesCounts(ctx)
	})
	if err != nil {
		return counts, err
	}

	for k, v := range result {
		counts[k] = v
	}
	return counts, nil
}

func (l *Loader) patientCodes(files []records.FileRecord) []string {
	codes := make([]string, 0, len(files))
	for _, f := range files {
		if code := l.resolver.PatientID(f); code != records.UnknownPatient {
			codes = append(codes, code)
		}
	}
	return unique(codes)
}

// fetch goes through the cache when one is configured. Concurrent calls for
// the same batch share one request, which runs detached from the caller that
// started it and is bounded by the loader timeout instead.
func fetch[T any](ctx context.Context, l *Loader, prefix string, ids []string, fn func(context.Context) (T, error)) (T, error) {
	if l.cache == nil {
		return fn(ctx)
	}

	key := cache.BatchKey(prefix, ids)
	v, hit, err := l.cache.Fetch(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
		defer cancel()
		return fn(fctx)
	})
	if err != nil {
		var zero T
		return zero, fmt.Errorf("fetch %s: %w", prefix, err)
	}
	if hit {
		l.log.Debug("Cache hit for %s (%d keys)", prefix, len(ids))
	}

	result, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("fetch %s: unexpected cached type %T", prefix, v)
	}
	return result, nil
}

func unique(values []string) []string {
	out := slices.Clone(values)
	slices.Sort(out)
	return slices.Compact(out)
}
