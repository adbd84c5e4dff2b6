package local

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwantia/sessionbrowser/pkg/records"
)

func newFs(t *testing.T) afero.Fs {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/data/recordings/P001/a_20240101.c3d", []byte("abc"), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "/data/recordings/P002/b.c3d", []byte("abcdef"), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "/data/recordings/readme.txt", []byte("x"), 0o644))
	return fsys
}

func TestStorage_List(t *testing.T) {
	s := NewWithFs(newFs(t), Config{Path: "/data/recordings", Extensions: []string{"c3d"}})

	files, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 2)

	byName := map[string]records.FileRecord{}
	for _, f := range files {
		byName[f.Name] = f
	}
	assert.Equal(t, int64(3), byName["P001/a_20240101.c3d"].Size)
	assert.Equal(t, int64(6), byName["P002/b.c3d"].Size)
	assert.Equal(t, "recordings", s.Bucket())
}

func TestStorage_ListAllExtensions(t *testing.T) {
	s := NewWithFs(newFs(t), Config{Path: "/data/recordings"})

	files, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, files, 3)
}

func TestStorage_Errors(t *testing.T) {
	_, err := NewWithFs(afero.NewMemMapFs(), Config{}).List(context.Background())
	assert.ErrorIs(t, err, records.ErrConfiguration)

	_, err = NewWithFs(afero.NewMemMapFs(), Config{Path: "/missing"}).List(context.Background())
	assert.ErrorIs(t, err, records.ErrNotFound)

	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll("/empty", 0o755))
	_, err = NewWithFs(fsys, Config{Path: "/empty"}).List(context.Background())
	assert.ErrorIs(t, err, records.ErrNotFound)
}

func TestStorage_Download(t *testing.T) {
	s := NewWithFs(newFs(t), Config{Path: "/data/recordings"})

	data, err := s.Download(context.Background(), "P002/b.c3d")
	require.NoError(t, err)
	assert.Equal(t, []byte("abcdef"), data)

	_, err = s.Download(context.Background(), "../../etc/passwd")
	assert.ErrorIs(t, err, records.ErrNotFound)
}
