// Package storage defines the recording listing collaborator.
package storage

import (
	"context"

	"github.com/mwantia/sessionbrowser/pkg/records"
)

// Backend lists and downloads recorded session files. Errors are classified
// with the records error kinds.
type Backend interface {
	// IsConfigured reports whether enough settings exist to attempt a listing.
	IsConfigured() bool

	List(ctx context.Context) ([]records.FileRecord, error)

	Download(ctx context.Context, name string) ([]byte, error)

	// Bucket names the container used for legacy composite keys, if any.
	Bucket() string
}
