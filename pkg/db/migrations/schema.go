package migrations

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/mwantia/sessionbrowser/pkg/db/models"
)

// index is a secondary index that gorm tags cannot express.
type index struct {
	name    string
	table   string
	columns string
}

func createIndexes(indexes ...index) func(*gorm.DB) error {
	return func(db *gorm.DB) error {
		for _, ix := range indexes {
			stmt := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)", ix.name, ix.table, ix.columns)
			if err := db.Exec(stmt).Error; err != nil {
				return fmt.Errorf("create index %s: %w", ix.name, err)
			}
		}
		return nil
	}
}

func dropIndexes(indexes ...index) func(*gorm.DB) error {
	return func(db *gorm.DB) error {
		for _, ix := range indexes {
			if err := db.Exec("DROP INDEX IF EXISTS " + ix.name).Error; err != nil {
				return fmt.Errorf("drop index %s: %w", ix.name, err)
			}
		}
		return nil
	}
}

func createTables(values ...any) func(*gorm.DB) error {
	return func(db *gorm.DB) error {
		return db.AutoMigrate(values...)
	}
}

func dropTables(values ...any) func(*gorm.DB) error {
	return func(db *gorm.DB) error {
		return db.Migrator().DropTable(values...)
	}
}

var (
	// Therapist resolution filters on code and a non-null therapist.
	patientTherapistIndex = index{"idx_patients_code_therapist", "patients", "code, therapist_id"}
	// Sessions of one patient in chronological order.
	sessionTimelineIndex = index{"idx_sessions_patient_timestamp", "sessions", "patient_id, session_timestamp"}
)

func schema() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Therapists and patients",
			Up:          createTables(&models.Therapist{}, &models.Patient{}),
			Down:        dropTables(&models.Patient{}, &models.Therapist{}),
		},
		{
			Version:     2,
			Description: "Recorded sessions",
			Up:          createTables(&models.Session{}),
			Down:        dropTables(&models.Session{}),
		},
		{
			Version:     3,
			Description: "Recording notes",
			Up:          createTables(&models.Note{}),
			Down:        dropTables(&models.Note{}),
		},
		{
			Version:     4,
			Description: "Browser preferences",
			Up:          createTables(&models.Preference{}),
			Down:        dropTables(&models.Preference{}),
		},
		{
			Version:     5,
			Description: "Patient and session lookup indexes",
			Up:          createIndexes(patientTherapistIndex, sessionTimelineIndex),
			Down:        dropIndexes(patientTherapistIndex, sessionTimelineIndex),
		},
	}
}
