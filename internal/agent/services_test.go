package agent

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/mwantia/sessionbrowser/internal/config/server"
	"github.com/mwantia/sessionbrowser/pkg/db/models"
	"github.com/mwantia/sessionbrowser/pkg/log"
	"github.com/mwantia/sessionbrowser/pkg/query"
	"github.com/mwantia/sessionbrowser/pkg/records"
)

func nopLoggers(string) log.LoggerService {
	return log.Nop()
}

func testConfig(t *testing.T) *config.BaseServerConfig {
	t.Helper()

	dir := t.TempDir()
	recordings := filepath.Join(dir, "recordings")
	require.NoError(t, os.MkdirAll(filepath.Join(recordings, "P001"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(recordings, "P001", "P001_walk_20240105.c3d"), []byte("c3d"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(recordings, "P002_run_20240210.c3d"), []byte("c3d!"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(recordings, "readme.txt"), []byte("skip"), 0644))

	cfg := config.GetServerDefault()
	cfg.Storage.Local.Path = recordings
	cfg.Metadata.SQLite.Path = filepath.Join(dir, "metadata.db")
	return &cfg
}

func TestNewServicesLoadsLocalRecordings(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	services, err := NewServices(ctx, cfg, nopLoggers, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = services.Close() })

	require.NotNil(t, services.Store)
	require.NoError(t, services.Store.CreatePatient(ctx, &models.Patient{Code: "P001", FirstName: "Ada", LastName: "Berg"}))

	require.NoError(t, services.Browser.Load(ctx))
	services.Browser.Wait()

	page := services.Browser.Query(query.Filters{}, query.SortSpec{Field: query.FieldName, Direction: query.Asc}, 1)
	require.Equal(t, 2, page.TotalCount)
	assert.Equal(t, "P001/P001_walk_20240105.c3d", page.Records[0].Name)
	assert.Equal(t, "Ada Berg", page.Records[0].PatientName)
	assert.Equal(t, records.UnknownTherapist, page.Records[0].TherapistDisplay)
}

func TestNewServicesWithoutMetadata(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metadata.Type = "none"

	services, err := NewServices(context.Background(), cfg, nopLoggers, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = services.Close() })

	assert.Nil(t, services.Store)
	_, err = services.Browser.Columns(context.Background())
	assert.NoError(t, err)
}

func TestNewServicesRejectsUnknownStorage(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Type = "ftp"

	_, err := NewServices(context.Background(), cfg, nopLoggers, nil)
	assert.ErrorIs(t, err, records.ErrConfiguration)
}

func TestRetryConfigFallsBackToDefaults(t *testing.T) {
	rc := retryConfig(config.RetryServerConfig{Timeout: "bogus", MaxRetries: 3, Backoff: "2s"})

	assert.Equal(t, 15*time.Second, rc.Timeout)
	assert.Equal(t, 3, rc.MaxRetries)
	assert.Equal(t, 2*time.Second, rc.Backoff)
}

func TestNewServicesReleasesStoreOnInvalidRole(t *testing.T) {
	cfg := testConfig(t)
	cfg.Browser.Role = "guest"

	_, err := NewServices(context.Background(), cfg, nopLoggers, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "guest")

	cfg.Browser.Role = "admin"
	services, err := NewServices(context.Background(), cfg, nopLoggers, nil)
	require.NoError(t, err)
	assert.NoError(t, services.Close())
}
