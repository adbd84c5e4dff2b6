package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	config "github.com/mwantia/sessionbrowser/internal/config/server"
	"github.com/mwantia/sessionbrowser/pkg/browser"
	"github.com/mwantia/sessionbrowser/pkg/cache"
	"github.com/mwantia/sessionbrowser/pkg/db/store"
	"github.com/mwantia/sessionbrowser/pkg/loader"
	"github.com/mwantia/sessionbrowser/pkg/log"
	"github.com/mwantia/sessionbrowser/pkg/records"
	"github.com/mwantia/sessionbrowser/pkg/resolve"
	"github.com/mwantia/sessionbrowser/pkg/retry"
	"github.com/mwantia/sessionbrowser/pkg/storage"
	"github.com/mwantia/sessionbrowser/pkg/storage/local"
	"github.com/mwantia/sessionbrowser/pkg/storage/s3"
)

// Services holds everything built from the configuration.
type Services struct {
	Store    *store.SQLiteStore
	Storage  storage.Backend
	Cache    *cache.Cache[any]
	Resolver *resolve.Resolver
	Loader   *loader.Loader
	Browser  *browser.Controller
}

// Loggers returns the logger for a component name.
type Loggers func(name string) log.LoggerService

// NewServices builds the services described by cfg. A metadata store is
// opened and migrated unless metadata.type is "none".
func NewServices(ctx context.Context, cfg *config.BaseServerConfig, loggers Loggers, onSelect func(browser.Selection)) (*Services, error) {
	s := &Services{}

	backend, err := newStorage(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	s.Storage = backend

	if !strings.EqualFold(cfg.Metadata.Type, "none") {
		st, err := openStore(ctx, cfg.Metadata)
		if err != nil {
			return nil, err
		}
		s.Store = st
	}

	s.Resolver, err = resolve.New(resolve.Config{
		PatientCodePattern: cfg.Browser.PatientCodePattern,
		SmallMax:           cfg.Browser.SizeThresholds.Small,
		MediumMax:          cfg.Browser.SizeThresholds.Medium,
		NotesBucket:        cfg.Browser.NotesBucket,
	})
	if err != nil {
		return nil, errors.Join(fmt.Errorf("invalid browser settings: %w", err), s.Close())
	}

	s.Cache = cache.New[any](cache.WithTTL(config.Duration(cfg.Cache.TTL, cache.DefaultTTL)))
	s.Loader = loader.New(s.sources(cfg.Browser.NotesEnabled), s.Cache, s.Resolver, backend.Bucket(), loggers("loader"))
	s.Loader.SetFetchTimeout(config.Duration(cfg.Cache.FetchTimeout, loader.DefaultFetchTimeout))

	role, err := browser.ParseRole(cfg.Browser.Role)
	if err != nil {
		return nil, errors.Join(err, s.Close())
	}

	retryLog := loggers("retry")
	controller, err := browser.New(browser.Config{
		Storage:     backend,
		Loader:      s.Loader,
		Cache:       s.Cache,
		Resolver:    s.Resolver,
		Preferences: s.preferences(),
		Logger:      loggers("browser"),
		Retry:       retryConfig(cfg.Retry),
		RetryOptions: []retry.Option[[]records.FileRecord]{
			retry.WithOnRetry[[]records.FileRecord](func(attempt int, wait time.Duration, err error) {
				retryLog.Warn("Listing attempt %d failed, retrying in %s: %v", attempt, wait, err)
			}),
		},
		Role:     role,
		PageSize: cfg.Browser.PageSize,
		OnSelect: onSelect,
	})
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to create browser: %w", err), s.Close())
	}
	s.Browser = controller

	return s, nil
}

// Close waits for background loads and closes the metadata store.
func (s *Services) Close() error {
	if s.Browser != nil {
		s.Browser.Close()
	}
	if s.Store != nil {
		return s.Store.Close()
	}
	return nil
}

// sources avoids storing a nil *SQLiteStore in the loader interfaces.
func (s *Services) sources(notes bool) loader.Sources {
	if s.Store == nil {
		return loader.Sources{}
	}

	src := loader.Sources{
		Sessions:   s.Store,
		Therapists: s.Store,
		Patients:   s.Store,
	}
	if notes {
		src.Notes = s.Store
	}
	return src
}

func (s *Services) preferences() browser.Preferences {
	if s.Store == nil {
		return nil
	}
	return s.Store
}

func newStorage(ctx context.Context, cfg config.StorageServerConfig) (storage.Backend, error) {
	switch cfg.Type {
	case "local":
		return local.New(local.Config{
			Path:       cfg.Local.Path,
			Extensions: cfg.Local.Extensions,
		}), nil
	case "s3":
		backend, err := s3.New(ctx, s3.Config{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			Bucket:    cfg.S3.Bucket,
			Prefix:    cfg.S3.Prefix,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
		})
		if err != nil {
			return nil, records.NewError(records.ErrConfiguration, "storage", err)
		}
		return backend, nil
	default:
		return nil, records.NewError(records.ErrConfiguration, "storage", fmt.Errorf("unknown storage type '%s'", cfg.Type))
	}
}

func openStore(ctx context.Context, cfg config.MetadataServerConfig) (*store.SQLiteStore, error) {
	if cfg.Type != "" && cfg.Type != "sqlite" {
		return nil, fmt.Errorf("unsupported metadata store type '%s'", cfg.Type)
	}

	st, err := store.NewSQLiteStore(store.SQLiteConfig{Path: cfg.SQLite.Path})
	if err != nil {
		return nil, err
	}

	if err := st.Connect(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("failed to connect metadata store: %w", err), st.Close())
	}
	if err := st.Migrate(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("failed to migrate metadata store: %w", err), st.Close())
	}
	return st, nil
}

func retryConfig(cfg config.RetryServerConfig) retry.Config {
	defaults := retry.DefaultConfig()
	return retry.Config{
		Timeout:    config.Duration(cfg.Timeout, defaults.Timeout),
		MaxRetries: cfg.MaxRetries,
		Backoff:    config.Duration(cfg.Backoff, defaults.Backoff),
		MaxBackoff: config.Duration(cfg.MaxBackoff, defaults.MaxBackoff),
		Multiplier: cfg.Multiplier,
	}
}
