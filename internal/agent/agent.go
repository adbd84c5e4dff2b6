package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mwantia/fabric/pkg/container"

	config "github.com/mwantia/sessionbrowser/internal/config/server"
	"github.com/mwantia/sessionbrowser/pkg/browser"
	"github.com/mwantia/sessionbrowser/pkg/db/store"
	"github.com/mwantia/sessionbrowser/pkg/log"
)

type SessionBrowserAgent struct {
	mutex sync.RWMutex
	wait  sync.WaitGroup

	cfg      *config.BaseServerConfig
	sc       *container.ServiceContainer
	log      log.LoggerService
	loggers  *log.LoggerTagProcessor
	services *Services
}

func NewAgent(cfg *config.BaseServerConfig) *SessionBrowserAgent {
	return &SessionBrowserAgent{
		cfg:     cfg,
		sc:      container.NewServiceContainer(),
		log:     log.NewLoggerService("sessionbrowser", cfg.Log),
		loggers: log.NewLoggerTagProcessor(),
	}
}

// Setup builds and registers all services. It is called by Serve and by
// one-shot commands that need the browser without the refresh loop.
func (a *SessionBrowserAgent) Setup(ctx context.Context) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.services != nil {
		return nil
	}

	a.log.Debug("Registering 'LoggerService'...")
	if err := container.Register[log.LoggerServiceImpl](a.sc,
		container.With[log.LoggerService](),
		container.WithInstance(a.log)); err != nil {
		return fmt.Errorf("failed to register logger service: %w", err)
	}

	services, err := NewServices(ctx, a.cfg, a.named(ctx), a.onSelect(ctx))
	if err != nil {
		return err
	}

	errs := container.Errors{}
	if services.Store != nil {
		a.log.Debug("Registering 'MetadataStore'...")
		errs.Add(container.Register[store.SQLiteStore](a.sc,
			container.With[store.MetadataStore](),
			container.WithInstance(services.Store)))
	}

	if err := errs.Errors(); err != nil {
		return errors.Join(err, services.Close())
	}

	a.services = services
	return nil
}

// Services returns the services built by Setup, or nil before it ran.
func (a *SessionBrowserAgent) Services() *Services {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	return a.services
}

// named resolves component loggers through the container like a
// fabric:"logger:<name>" tag would, falling back to the root logger.
func (a *SessionBrowserAgent) named(ctx context.Context) Loggers {
	return func(name string) log.LoggerService {
		logger, err := a.loggers.Resolve(ctx, a.sc, name)
		if err != nil {
			a.log.Warn("Failed to resolve logger '%s': %v", name, err)
			return a.log.Named(name)
		}
		return logger
	}
}

func (a *SessionBrowserAgent) onSelect(ctx context.Context) func(browser.Selection) {
	logger := a.named(ctx)("selection")
	return func(s browser.Selection) {
		if s.Record == nil {
			logger.Info("Selected '%s'", s.Name)
			return
		}
		logger.Info("Selected '%s' (patient %s, therapist %s)", s.Name, s.Record.PatientID, s.Record.TherapistDisplay)
	}
}

func (a *SessionBrowserAgent) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := a.Setup(ctx); err != nil {
		return err
	}

	a.wait.Add(1)
	go a.refresh(ctx)

	<-ctx.Done()
	a.log.Info("Shutting down...")

	timeout := config.Duration(a.cfg.Agent.ShutdownTimeout, 10*time.Second)
	shutdown, cancelShutdown := context.WithTimeout(context.Background(), timeout)
	defer cancelShutdown()

	return a.Close(shutdown)
}

// Close waits for the refresh loop and background loads, then releases the
// container and the metadata store. It gives up when ctx is done.
func (a *SessionBrowserAgent) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.wait.Wait()
		if services := a.Services(); services != nil {
			services.Browser.Wait()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		a.log.Warn("Shutdown timeout reached before background loads finished")
	}

	var errs []error
	if err := a.sc.Cleanup(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to complete service container cleanup: %w", err))
	}
	if services := a.Services(); services != nil {
		if err := services.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close services: %w", err))
		}
	}
	return errors.Join(errs...)
}

// refresh loads once and then again every agent.refresh_interval. A zero
// interval disables periodic refreshes.
func (a *SessionBrowserAgent) refresh(ctx context.Context) {
	defer a.wait.Done()

	ctrl := a.Services().Browser
	a.load(ctx, ctrl.Load)

	interval := config.Duration(a.cfg.Agent.RefreshInterval, 0)
	if interval <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.load(ctx, ctrl.Refresh)
		}
	}
}

func (a *SessionBrowserAgent) load(ctx context.Context, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		if errors.Is(err, browser.ErrSuperseded) || ctx.Err() != nil {
			return
		}
		a.log.Error("Failed to load recordings: %v", err)
		return
	}

	ctrl := a.Services().Browser
	status := ctrl.Status()
	a.log.Info("Loaded %d recordings (%s) in %d attempt(s), waiting for auxiliary data",
		status.Files, humanize.Bytes(uint64(max(status.Bytes, 0))), status.Attempts)

	ctrl.Wait()

	page := ctrl.Current()
	a.log.Info("Browser ready: %d recordings on %d pages", page.TotalCount, page.TotalPages)
}
