package migrations

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mwantia/sessionbrowser/pkg/db/models"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "metadata.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func hasIndex(t *testing.T, db *gorm.DB, name string) bool {
	t.Helper()

	var n int64
	require.NoError(t, db.Raw("SELECT count(*) FROM sqlite_master WHERE type = 'index' AND name = ?", name).Scan(&n).Error)
	return n > 0
}

func TestMigrator_MigrateIsIdempotent(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	m := NewMigrator(db)

	n, err := m.Migrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, m.Latest(), n)

	n, err = m.Migrate(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	for _, table := range []any{&models.Therapist{}, &models.Patient{}, &models.Session{}, &models.Note{}, &models.Preference{}} {
		assert.True(t, db.Migrator().HasTable(table), "%T", table)
	}
	assert.True(t, hasIndex(t, db, patientTherapistIndex.name))
	assert.True(t, hasIndex(t, db, sessionTimelineIndex.name))
}

func TestMigrator_StatusAndRollback(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	m := NewMigrator(db)

	statuses, err := m.Status(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, m.Latest())
	for _, st := range statuses {
		assert.False(t, st.Applied, "version %d", st.Version)
	}

	_, err = m.Migrate(ctx)
	require.NoError(t, err)

	version, err := m.Rollback(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, version)
	assert.False(t, hasIndex(t, db, sessionTimelineIndex.name))
	assert.True(t, db.Migrator().HasTable(&models.Session{}))

	version, err = m.Rollback(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, version)
	assert.False(t, db.Migrator().HasTable(&models.Preference{}))

	statuses, err = m.Status(ctx)
	require.NoError(t, err)
	for _, st := range statuses {
		assert.Equal(t, st.Version <= 3, st.Applied, "version %d", st.Version)
		if st.Applied {
			assert.False(t, st.AppliedAt.IsZero())
		}
	}

	n, err := m.Migrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, db.Migrator().HasTable(&models.Preference{}))
}

func TestMigrator_RollbackEmpty(t *testing.T) {
	_, err := NewMigrator(openDB(t)).Rollback(context.Background())
	assert.Error(t, err)
}

func TestMigrator_FailedStepIsNotRecorded(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	m := newMigrator(db, []Migration{
		{Version: 2, Description: "broken", Up: func(*gorm.DB) error { return errors.New("boom") }},
		{Version: 1, Description: "therapists", Up: createTables(&models.Therapist{}), Down: dropTables(&models.Therapist{})},
	})

	n, err := m.Migrate(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migration 2 (broken)")
	assert.Equal(t, 1, n, "steps run in version order")

	statuses, err := m.Status(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.True(t, statuses[0].Applied)
	assert.False(t, statuses[1].Applied)
}
