// Package migrations versions the metadata schema. Each step is applied in its
// own transaction and recorded in the schema_versions table.
package migrations

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"gorm.io/gorm"
)

// Migration is one schema step. Down must undo exactly what Up created.
type Migration struct {
	Version     int
	Description string
	Up          func(*gorm.DB) error
	Down        func(*gorm.DB) error
}

type schemaVersion struct {
	Version     int    `gorm:"primaryKey;autoIncrement:false"`
	Description string `gorm:"type:text"`
	AppliedAt   time.Time
}

func (schemaVersion) TableName() string {
	return "schema_versions"
}

// MigrationStatus reports whether a version has been applied.
type MigrationStatus struct {
	Version     int
	Description string
	Applied     bool
	AppliedAt   time.Time
}

// Migrator applies and reverts the metadata schema.
type Migrator struct {
	db    *gorm.DB
	steps []Migration
}

// NewMigrator creates a Migrator for the built-in schema.
func NewMigrator(db *gorm.DB) *Migrator {
	return newMigrator(db, schema())
}

func newMigrator(db *gorm.DB, steps []Migration) *Migrator {
	steps = slices.Clone(steps)
	slices.SortFunc(steps, func(a, b Migration) int {
		return cmp.Compare(a.Version, b.Version)
	})
	return &Migrator{db: db, steps: steps}
}

// Latest returns the highest known version.
func (m *Migrator) Latest() int {
	if len(m.steps) == 0 {
		return 0
	}
	return m.steps[len(m.steps)-1].Version
}

// Migrate applies every pending version in ascending order and returns how
// many were applied.
func (m *Migrator) Migrate(ctx context.Context) (int, error) {
	applied, err := m.applied(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, step := range m.steps {
		if _, ok := applied[step.Version]; ok {
			continue
		}

		err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := step.Up(tx); err != nil {
				return err
			}
			return tx.Create(&schemaVersion{
				Version:     step.Version,
				Description: step.Description,
				AppliedAt:   time.Now().UTC(),
			}).Error
		})
		if err != nil {
			return count, fmt.Errorf("migration %d (%s) failed: %w", step.Version, step.Description, err)
		}
		count++
	}
	return count, nil
}

// Rollback reverts the most recently applied version.
func (m *Migrator) Rollback(ctx context.Context) (int, error) {
	applied, err := m.applied(ctx)
	if err != nil {
		return 0, err
	}
	if len(applied) == 0 {
		return 0, errors.New("no migrations to roll back")
	}

	last := slices.Max(mapKeys(applied))
	idx := slices.IndexFunc(m.steps, func(s Migration) bool { return s.Version == last })
	if idx < 0 {
		return 0, fmt.Errorf("applied version %d is unknown to this build", last)
	}
	step := m.steps[idx]

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := step.Down(tx); err != nil {
			return err
		}
		return tx.Delete(&schemaVersion{Version: last}).Error
	})
	if err != nil {
		return 0, fmt.Errorf("rollback of %d (%s) failed: %w", step.Version, step.Description, err)
	}
	return last, nil
}

// Status lists every known version in ascending order.
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	statuses := make([]MigrationStatus, 0, len(m.steps))
	for _, step := range m.steps {
		rec, ok := applied[step.Version]
		statuses = append(statuses, MigrationStatus{
			Version:     step.Version,
			Description: step.Description,
			Applied:     ok,
			AppliedAt:   rec.AppliedAt,
		})
	}
	return statuses, nil
}

func (m *Migrator) applied(ctx context.Context) (map[int]schemaVersion, error) {
	db := m.db.WithContext(ctx)
	if err := db.AutoMigrate(&schemaVersion{}); err != nil {
		return nil, fmt.Errorf("failed to create schema_versions table: %w", err)
	}

	var rows []schemaVersion
	if err := db.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to read schema_versions: %w", err)
	}

	out := make(map[int]schemaVersion, len(rows))
	for _, r := range rows {
		out[r.Version] = r
	}
	return out, nil
}

func mapKeys(m map[int]schemaVersion) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
