package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwantia/sessionbrowser/pkg/db/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := NewSQLiteStore(SQLiteConfig{Path: filepath.Join(t.TempDir(), "metadata.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	require.NoError(t, s.Connect(ctx))
	require.NoError(t, s.Migrate(ctx))
	return s
}

func seed(t *testing.T, s *SQLiteStore) {
	t.Helper()
	ctx := context.Background()

	ann := &models.Therapist{FirstName: "Ann", LastName: "Smith", ShortCode: "AS"}
	require.NoError(t, s.CreateTherapist(ctx, ann))

	p1 := &models.Patient{Code: "p001", FirstName: "Jane", LastName: "Doe"}
	require.NoError(t, s.CreatePatient(ctx, p1))
	require.NoError(t, s.CreatePatient(ctx, &models.Patient{Code: "P002", FirstName: "John"}))
	require.NoError(t, s.AssignTherapist(ctx, "P001", ann.ID))

	ts := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.UpsertSession(ctx, &models.Session{FilePath: "/P001/a.c3d", SessionTimestamp: &ts, PatientID: &p1.ID}))

	require.NoError(t, s.CreateNote(ctx, &models.Note{FilePath: "P001/a.c3d", Body: "good"}))
	require.NoError(t, s.CreateNote(ctx, &models.Note{FilePath: "P001/a.c3d", Body: "better"}))
	require.NoError(t, s.CreateNote(ctx, &models.Note{FilePath: "c3d-examples/P002/b.c3d", Body: "legacy"}))
}

func TestSQLiteStore_Lookups(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	ctx := context.Background()

	sessions, err := s.GetSessionsByPaths(ctx, []string{"P001/a.c3d", "P002/missing.c3d"})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.NotNil(t, sessions["P001/a.c3d"].SessionTimestamp)
	assert.True(t, sessions["P001/a.c3d"].SessionTimestamp.Equal(time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)))

	therapists, err := s.ResolveTherapistsByPatientCodes(ctx, []string{"p001", "P002"})
	require.NoError(t, err)
	require.Len(t, therapists, 1)
	assert.Equal(t, "AS", therapists["P001"].ShortCode)
	assert.Equal(t, "Ann Smith", therapists["P001"].FullName())

	patients, err := s.GetPatientsByCodes(ctx, []string{"P001", "P002", "P003"})
	require.NoError(t, err)
	assert.Len(t, patients, 2)
	assert.Equal(t, "Jane Doe", patients["P001"].FullName())

	notes, err := s.GetNotesCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, notes["P001/a.c3d"])
	assert.Equal(t, 1, notes["c3d-examples/P002/b.c3d"])
}

func TestSQLiteStore_UpsertSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	second := time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)
	require.NoError(t, s.UpsertSession(ctx, &models.Session{FilePath: "P001/a.c3d", SessionTimestamp: &first}))
	require.NoError(t, s.UpsertSession(ctx, &models.Session{FilePath: "P001/a.c3d", MetadataTime: &second}))

	sessions, err := s.GetSessionsByPaths(ctx, []string{"P001/a.c3d"})
	require.NoError(t, err)
	entry := sessions["P001/a.c3d"]
	assert.Nil(t, entry.SessionTimestamp)
	require.NotNil(t, entry.MetadataTime)
	assert.True(t, entry.MetadataTime.Equal(second))
}

func TestSQLiteStore_Preferences(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, ok, err := s.GetPreference(ctx, "browser.columns.therapist")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetPreference(ctx, "browser.columns.therapist", "a"))
	require.NoError(t, s.SetPreference(ctx, "browser.columns.therapist", "b"))

	v, ok, err := s.GetPreference(ctx, "browser.columns.therapist")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "b", v)
}

func TestSQLiteStore_AssignUnknownPatient(t *testing.T) {
	s := newTestStore(t)
	assert.Error(t, s.AssignTherapist(context.Background(), "P404", 1))
}

func TestChunks(t *testing.T) {
	values := make([]string, batchSize*2+1)
	got := chunks(values)
	require.Len(t, got, 3)
	assert.Len(t, got[2], 1)
	assert.Nil(t, chunks(nil))
}
