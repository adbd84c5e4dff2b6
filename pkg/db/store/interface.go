package store

import (
	"context"

	"github.com/mwantia/sessionbrowser/pkg/db/models"
	"github.com/mwantia/sessionbrowser/pkg/records"
)

// MetadataStore defines the interface for database operations
type MetadataStore interface {
	// Lifecycle
	Connect(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error
	Health(ctx context.Context) error

	// Lookup batches consumed by the auxiliary loader
	GetSessionsByPaths(ctx context.Context, paths []string) (map[string]records.SessionEntry, error)
	ResolveTherapistsByPatientCodes(ctx context.Context, codes []string) (map[string]records.TherapistIdentity, error)
	GetPatientsByCodes(ctx context.Context, codes []string) (records.PatientLookup, error)
	GetNotesCounts(ctx context.Context) (records.NotesCounts, error)

	// Therapist operations
	CreateTherapist(ctx context.Context, therapist *models.Therapist) error
	ListTherapists(ctx context.Context) ([]models.Therapist, error)

	// Patient operations
	CreatePatient(ctx context.Context, patient *models.Patient) error
	GetPatient(ctx context.Context, code string) (*models.Patient, error)
	AssignTherapist(ctx context.Context, code string, therapistID uint) error

	// Session operations
	UpsertSession(ctx context.Context, session *models.Session) error

	// Note operations
	CreateNote(ctx context.Context, note *models.Note) error
	DeleteNote(ctx context.Context, id uint) error

	// Preference operations
	GetPreference(ctx context.Context, key string) (string, bool, error)
	SetPreference(ctx context.Context, key, value string) error
}
