package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/mwantia/sessionbrowser/pkg/db/migrations"
	"github.com/mwantia/sessionbrowser/pkg/db/models"
	"github.com/mwantia/sessionbrowser/pkg/records"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// SQLite caps the number of bound parameters per statement.
const batchSize = 500

// SQLiteStore implements MetadataStore using SQLite
type SQLiteStore struct {
	db   *gorm.DB
	path string
}

// DB returns the underlying GORM database instance
func (s *SQLiteStore) DB() *gorm.DB {
	return s.db
}

// SQLiteConfig holds SQLite-specific configuration
type SQLiteConfig struct {
	Path         string
	MaxOpenConns int
	LogLevel     logger.LogLevel
}

// NewSQLiteStore creates a new SQLite-backed metadata store
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	// Default to silent logging
	if cfg.LogLevel == 0 {
		cfg.LogLevel = logger.Silent
	}

	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{
		Logger: logger.Default.LogMode(cfg.LogLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	return &SQLiteStore{
		db:   db,
		path: cfg.Path,
	}, nil
}

// Connect initializes the database connection
func (s *SQLiteStore) Connect(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(1) // SQLite only supports 1 writer
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}

// Migrate runs pending schema migrations
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := migrations.NewMigrator(s.db).Migrate(ctx)
	return err
}

// Health checks database connectivity
func (s *SQLiteStore) Health(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Lookup batches

func (s *SQLiteStore) GetSessionsByPaths(ctx context.Context, paths []string) (map[string]records.SessionEntry, error) {
	result := make(map[string]records.SessionEntry, len(paths))

	for _, chunk := range chunks(paths) {
		var sessions []models.Session
		if err := s.db.WithContext(ctx).Where("file_path IN ?", chunk).Find(&sessions).Error; err != nil {
			return nil, fmt.Errorf("failed to query sessions: %w", err)
		}
		for _, session := range sessions {
			result[session.FilePath] = records.SessionEntry{
				SessionTimestamp: session.SessionTimestamp,
				MetadataTime:     session.MetadataTime,
			}
		}
	}

	return result, nil
}

func (s *SQLiteStore) ResolveTherapistsByPatientCodes(ctx context.Context, codes []string) (map[string]records.TherapistIdentity, error) {
	result := make(map[string]records.TherapistIdentity, len(codes))

	for _, chunk := range chunks(upper(codes)) {
		var patients []models.Patient
		err := s.db.WithContext(ctx).
			Preload("Therapist").
			Where("code IN ? AND therapist_id IS NOT NULL", chunk).
			Find(&patients).Error
		if err != nil {
			return nil, fmt.Errorf("failed to query therapists: %w", err)
		}

		for _, patient := range patients {
			if patient.Therapist == nil {
				continue
			}
			result[patient.Code] = records.TherapistIdentity{
				DisplayName: patient.Therapist.DisplayName,
				FirstName:   patient.Therapist.FirstName,
				LastName:    patient.Therapist.LastName,
				ShortCode:   patient.Therapist.ShortCode,
			}
		}
	}

	return result, nil
}

func (s *SQLiteStore) GetPatientsByCodes(ctx context.Context, codes []string) (records.PatientLookup, error) {
	result := make(records.PatientLookup, len(codes))

	for _, chunk := range chunks(upper(codes)) {
		var patients []models.Patient
		if err := s.db.WithContext(ctx).Where("code IN ?", chunk).Find(&patients).Error; err != nil {
			return nil, fmt.Errorf("failed to query patients: %w", err)
		}
		for _, patient := range patients {
			result[patient.Code] = records.PatientIdentity{
				FirstName: patient.FirstName,
				LastName:  patient.LastName,
			}
		}
	}

	return result, nil
}

func (s *SQLiteStore) GetNotesCounts(ctx context.Context) (records.NotesCounts, error) {
	var rows []struct {
		FilePath string
		Count    int
	}

	err := s.db.WithContext(ctx).
		Model(&models.Note{}).
		Select("file_path, COUNT(*) AS count").
		Group("file_path").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count notes: %w", err)
	}

	result := make(records.NotesCounts, len(rows))
	for _, row := range rows {
		result[row.FilePath] = row.Count
	}
	return result, nil
}

// Therapist operations

func (s *SQLiteStore) CreateTherapist(ctx context.Context, therapist *models.Therapist) error {
	return s.db.WithContext(ctx).Create(therapist).Error
}

func (s *SQLiteStore) ListTherapists(ctx context.Context) ([]models.Therapist, error) {
	var therapists []models.Therapist
	err := s.db.WithContext(ctx).Order("id").Find(&therapists).Error
	return therapists, err
}

// Patient operations

func (s *SQLiteStore) CreatePatient(ctx context.Context, patient *models.Patient) error {
	patient.Code = strings.ToUpper(strings.TrimSpace(patient.Code))
	return s.db.WithContext(ctx).Create(patient).Error
}

func (s *SQLiteStore) GetPatient(ctx context.Context, code string) (*models.Patient, error) {
	var patient models.Patient
	err := s.db.WithContext(ctx).
		Preload("Therapist").
		Where("code = ?", strings.ToUpper(code)).
		First(&patient).Error
	if err != nil {
		return nil, err
	}
	return &patient, nil
}

func (s *SQLiteStore) AssignTherapist(ctx context.Context, code string, therapistID uint) error {
	res := s.db.WithContext(ctx).
		Model(&models.Patient{}).
		Where("code = ?", strings.ToUpper(code)).
		Update("therapist_id", therapistID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("patient %s: %w", code, gorm.ErrRecordNotFound)
	}
	return nil
}

// Session operations

func (s *SQLiteStore) UpsertSession(ctx context.Context, session *models.Session) error {
	session.FilePath = records.NormalizePath(session.FilePath, "")
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "file_path"}},
		DoUpdates: clause.AssignmentColumns([]string{"session_timestamp", "metadata_time", "patient_id", "updated_at"}),
	}).Create(session).Error
}

// Note operations

func (s *SQLiteStore) CreateNote(ctx context.Context, note *models.Note) error {
	return s.db.WithContext(ctx).Create(note).Error
}

func (s *SQLiteStore) DeleteNote(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Delete(&models.Note{}, id).Error
}

// Preference operations

func (s *SQLiteStore) GetPreference(ctx context.Context, key string) (string, bool, error) {
	var pref models.Preference
	err := s.db.WithContext(ctx).Where(&models.Preference{Key: key}).First(&pref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return pref.Value, true, nil
}

func (s *SQLiteStore) SetPreference(ctx context.Context, key, value string) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&models.Preference{Key: key, Value: value}).Error
}

func chunks(values []string) [][]string {
	var out [][]string
	for len(values) > batchSize {
		out = append(out, values[:batchSize])
		values = values[batchSize:]
	}
	if len(values) > 0 {
		out = append(out, values)
	}
	return out
}

func upper(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToUpper(v)
	}
	return out
}
