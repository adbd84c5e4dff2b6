package models

import (
	"time"

	"gorm.io/gorm"
)

// Session represents a recorded therapy session stored as a file
type Session struct {
	ID       uint   `gorm:"primaryKey"`
	FilePath string `gorm:"type:text;not null;uniqueIndex"` // Normalized path without bucket prefix

	SessionTimestamp *time.Time
	MetadataTime     *time.Time // Time embedded in the recording header

	PatientID *uint `gorm:"index"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`

	// Relationships
	Patient *Patient `gorm:"foreignKey:PatientID;references:ID"`
}
