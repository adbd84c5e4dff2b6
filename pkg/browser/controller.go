// Package browser orchestrates the recording browser: it lists recordings,
// loads the auxiliary tables that enrich them and answers queries over the
// resolved result set.
package browser

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mwantia/sessionbrowser/pkg/cache"
	"github.com/mwantia/sessionbrowser/pkg/loader"
	"github.com/mwantia/sessionbrowser/pkg/log"
	"github.com/mwantia/sessionbrowser/pkg/query"
	"github.com/mwantia/sessionbrowser/pkg/records"
	"github.com/mwantia/sessionbrowser/pkg/resolve"
	"github.com/mwantia/sessionbrowser/pkg/retry"
	"github.com/mwantia/sessionbrowser/pkg/storage"
)

// ErrSuperseded is returned by Load when a newer load started before it finished.
var ErrSuperseded = errors.New("load superseded by a newer request")

// Selection is forwarded to the selection callback.
type Selection struct {
	Name       string
	UploadDate *time.Time
	Record     *records.ResolvedRecord
}

// Config wires a Controller.
type Config struct {
	Storage     storage.Backend
	Loader      *loader.Loader
	Cache       *cache.Cache[any]
	Resolver    *resolve.Resolver
	Preferences Preferences
	Logger      log.LoggerService

	Retry        retry.Config
	RetryOptions []retry.Option[[]records.FileRecord]

	Role     Role
	PageSize int
	OnSelect func(Selection)
}

// Status is a snapshot of the controller state.
type Status struct {
	Phase      retry.State
	Attempts   int
	Err        error
	Loading    records.LoadingState
	Files      int
	Bytes      int64
	Generation uint64
	LoadedAt   time.Time
}

// Controller is safe for concurrent use.
type Controller struct {
	cfg      Config
	defaults RoleDefaults
	log      log.LoggerService

	mu         sync.RWMutex
	generation uint64
	cycle      *retry.Controller[[]records.FileRecord]
	files      []records.FileRecord
	lookups    records.Lookups
	loading    records.LoadingState
	err        error
	loadedAt   time.Time
	view       *query.View

	aux sync.WaitGroup
}

// New validates cfg and creates an idle controller.
func New(cfg Config) (*Controller, error) {
	if cfg.Storage == nil {
		return nil, fmt.Errorf("browser requires a storage backend")
	}
	if cfg.Resolver == nil {
		return nil, fmt.Errorf("browser requires a resolver")
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.New[any]()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Nop()
	}
	if cfg.Loader == nil {
		cfg.Loader = loader.New(loader.Sources{}, cfg.Cache, cfg.Resolver, cfg.Storage.Bucket(), cfg.Logger)
	}
	if cfg.Role == "" {
		cfg.Role = RoleTherapist
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = query.DefaultPageSize
	}

	defaults := DefaultsFor(cfg.Role)
	return &Controller{
		cfg:      cfg,
		defaults: defaults,
		log:      cfg.Logger,
		view:     query.NewView(defaults.Sort),
	}, nil
}

// Load lists recordings and, once the listing succeeds, starts the auxiliary
// loads in the background. A newer Load supersedes this one: its listing
// result is then discarded and ErrSuperseded returned.
func (c *Controller) Load(ctx context.Context) error {
	gen, cycle := c.begin()
	id := uuid.NewString()[:8]
	c.log.Debug("Load %s started (generation %d)", id, gen)

	if !c.cfg.Storage.IsConfigured() {
		err := records.NewError(records.ErrConfiguration, "list", errors.New("no storage backend configured"))
		c.finishListing(gen, nil, err)
		c.log.Error("Load %s failed: %v", id, err)
		return err
	}

	started := time.Now()
	files, err := cycle.Run(ctx, c.cfg.Storage.List)
	retained, ok := c.finishListing(gen, files, err)
	if !ok {
		c.log.Debug("Load %s superseded, dropping its result", id)
		return ErrSuperseded
	}
	if err != nil {
		c.log.Error("Load %s failed: %v (%s)", id, err, records.Remediation(err))
		if len(retained) > 0 {
			c.startAuxiliary(ctx, gen, retained)
		}
		return err
	}

	c.log.Info("Listed %d recordings in %s", len(files), time.Since(started).Round(time.Millisecond))
	c.startAuxiliary(ctx, gen, files)
	return nil
}

// Refresh drops every cached auxiliary table and loads again.
func (c *Controller) Refresh(ctx context.Context) error {
	c.cfg.Cache.Clear()
	return c.Load(ctx)
}

// Wait blocks until the auxiliary loads started so far have completed.
func (c *Controller) Wait() {
	c.aux.Wait()
}

// Close waits for background loads and clears the cache.
func (c *Controller) Close() {
	c.aux.Wait()
	c.cfg.Cache.Clear()
}

func (c *Controller) begin() (uint64, *retry.Controller[[]records.FileRecord]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	c.cycle = retry.New(c.cfg.Retry, c.cfg.RetryOptions...)
	c.loading = records.LoadingState{Files: true}
	c.err = nil
	return c.generation, c.cycle
}

// finishListing stores the listing outcome unless gen was superseded. A failed
// listing keeps the previous records so the caller can still show them; those
// are returned so their auxiliary data can be loaded under gen.
func (c *Controller) finishListing(gen uint64, files []records.FileRecord, err error) ([]records.FileRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		return nil, false
	}

	c.loading.Files = false
	if err != nil {
		c.err = err
		return c.files, true
	}

	c.files = files
	c.lookups = records.Lookups{}
	c.loadedAt = time.Now()
	return nil, true
}

func (c *Controller) startAuxiliary(ctx context.Context, gen uint64, files []records.FileRecord) {
	ldr := c.cfg.Loader

	c.mu.Lock()
	c.loading.Sessions = ldr.Enabled(loader.Sessions)
	c.loading.Therapists = ldr.Enabled(loader.Therapists)
	c.loading.Patients = ldr.Enabled(loader.Patients)
	c.loading.Notes = ldr.Enabled(loader.Notes)
	c.mu.Unlock()

	c.aux.Add(1)
	go func() {
		defer c.aux.Done()
		ldr.Load(ctx, files, func(u loader.Update) {
			c.applyUpdate(gen, u)
		})
	}()
}

func (c *Controller) applyUpdate(gen uint64, u loader.Update) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		return
	}

	loader.Merge(&c.lookups, u)
	switch u.Source {
	case loader.Sessions:
		c.loading.Sessions = false
	case loader.Therapists:
		c.loading.Therapists = false
	case loader.Patients:
		c.loading.Patients = false
	case loader.Notes:
		c.loading.Notes = false
	}
}

// LoadingState reports which sources are still loading.
func (c *Controller) LoadingState() records.LoadingState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

// Status returns a snapshot of the current load cycle.
func (c *Controller) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Status{
		Phase:      retry.Idle,
		Err:        c.err,
		Loading:    c.loading,
		Files:      len(c.files),
		Bytes:      totalSize(c.files),
		Generation: c.generation,
		LoadedAt:   c.loadedAt,
	}
	if c.cycle != nil {
		s.Phase, s.Attempts, _ = c.cycle.State()
	}
	if c.err != nil {
		s.Phase = retry.Failed
	}
	return s
}

func totalSize(files []records.FileRecord) int64 {
	var total int64
	for _, f := range files {
		total += f.Size
	}
	return total
}

// snapshot returns the resolved records of the current generation.
func (c *Controller) snapshot() []records.ResolvedRecord {
	c.mu.RLock()
	files, lookups := c.files, c.lookups
	c.mu.RUnlock()

	return c.cfg.Resolver.ResolveAll(files, lookups)
}

// Query filters, sorts and paginates the current records.
func (c *Controller) Query(filters query.Filters, sort query.SortSpec, page int) query.Page {
	return query.Run(c.snapshot(), filters, sort, page, c.cfg.PageSize)
}

// SetFilters updates the interactive view and returns to page 1.
func (c *Controller) SetFilters(f query.Filters) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view.SetFilters(f)
}

// SetSort updates the interactive view and returns to page 1.
func (c *Controller) SetSort(s query.SortSpec) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view.SetSort(s)
}

// SetPage moves the interactive view to page p.
func (c *Controller) SetPage(p int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view.SetPage(p)
}

// Current runs the query held by the interactive view.
func (c *Controller) Current() query.Page {
	c.mu.RLock()
	filters, sort, page := c.view.Filters(), c.view.Sort(), c.view.Page()
	c.mu.RUnlock()

	return c.Query(filters, sort, page)
}

// FilterOptions lists the distinct values available to categorical filters.
type FilterOptions struct {
	PatientIDs   []string
	PatientNames []string
	Therapists   []string
}

// Options collects the categorical filter values of the current records.
func (c *Controller) Options() FilterOptions {
	var opts FilterOptions
	for _, r := range c.snapshot() {
		opts.PatientIDs = append(opts.PatientIDs, r.PatientID)
		opts.PatientNames = append(opts.PatientNames, r.PatientName)
		opts.Therapists = append(opts.Therapists, r.TherapistDisplay)
	}

	for _, values := range []*[]string{&opts.PatientIDs, &opts.PatientNames, &opts.Therapists} {
		slices.Sort(*values)
		*values = slices.Compact(*values)
	}
	return opts
}

// SelectRecord forwards a selection to the configured callback. When record
// is nil the currently resolved record named name is attached; uploadDate
// defaults to the record's creation time.
func (c *Controller) SelectRecord(name string, uploadDate *time.Time, record *records.ResolvedRecord) error {
	if record == nil {
		for _, r := range c.snapshot() {
			if r.Name == name {
				r := r
				record = &r
				break
			}
		}
	}
	if record == nil {
		return records.NewError(records.ErrNotFound, "select", fmt.Errorf("recording %s is not listed", name))
	}

	if uploadDate == nil && !record.CreatedAt.IsZero() {
		created := record.CreatedAt
		uploadDate = &created
	}

	if c.cfg.OnSelect != nil {
		c.cfg.OnSelect(Selection{Name: name, UploadDate: uploadDate, Record: record})
	}
	return nil
}

// Download fetches the raw bytes of a recording.
func (c *Controller) Download(ctx context.Context, name string) ([]byte, error) {
	return c.cfg.Storage.Download(ctx, name)
}

// VerifyAccess performs a single listing attempt without retries and
// returns the number of recordings visible.
func (c *Controller) VerifyAccess(ctx context.Context) (int, error) {
	if !c.cfg.Storage.IsConfigured() {
		return 0, records.NewError(records.ErrConfiguration, "verify", errors.New("no storage backend configured"))
	}

	probe := c.cfg.Retry
	probe.MaxRetries = 0
	files, err := retry.New[[]records.FileRecord](probe).Run(ctx, c.cfg.Storage.List)
	if err != nil {
		var attempts *retry.AttemptsError
		if errors.As(err, &attempts) {
			err = attempts.Err
		}
		return 0, err
	}
	return len(files), nil
}
