package records

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotesCounts_DualKey(t *testing.T) {
	counts := NotesCounts{
		"P001/a.c3d":              2,
		"c3d-examples/P002/b.c3d": 5,
	}

	assert.Equal(t, 2, counts.Count("P001/a.c3d", "c3d-examples"))
	assert.Equal(t, 5, counts.Count("P002/b.c3d", "c3d-examples"))
	assert.Equal(t, 5, counts.Count("/P002/b.c3d", "c3d-examples/"))
	assert.Equal(t, 0, counts.Count("P002/b.c3d", ""))
	assert.Equal(t, 0, NotesCounts(nil).Count("x", "y"))
}

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "P001/a.c3d", NormalizePath(" /c3d-examples/P001/a.c3d ", "c3d-examples"))
	assert.Equal(t, "P001/a.c3d", NormalizePath(`P001\a.c3d`, ""))
	assert.Equal(t, "other/P001/a.c3d", NormalizePath("other/P001/a.c3d", "c3d-examples"))
}

func TestErrorKinds(t *testing.T) {
	err := fmt.Errorf("listing: %w", NewError(ErrAuth, "list", errors.New("token expired")))
	assert.ErrorIs(t, err, ErrAuth)
	assert.Equal(t, ErrAuth, Kind(err))
	assert.False(t, Retryable(err))
	assert.Contains(t, err.Error(), "token expired")

	assert.True(t, Retryable(NewError(ErrNetwork, "list", nil)))
	assert.True(t, Retryable(context.DeadlineExceeded))
	assert.False(t, Retryable(context.Canceled))
	assert.False(t, Retryable(errors.New("unclassified")))
	assert.Nil(t, Kind(errors.New("unclassified")))
}

func TestRemediation(t *testing.T) {
	assert.Contains(t, Remediation(NewError(ErrNotFound, "list", nil)), "access check")
	assert.Contains(t, Remediation(NewError(ErrConfiguration, "list", nil)), "configuration")
	assert.NotEqual(t,
		Remediation(NewError(ErrAuth, "list", nil)),
		Remediation(NewError(ErrPermission, "list", nil)))
}

func TestLoadingState_Any(t *testing.T) {
	assert.False(t, LoadingState{}.Any())
	assert.True(t, LoadingState{Therapists: true}.Any())
}
