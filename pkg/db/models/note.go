package models

import (
	"time"

	"gorm.io/gorm"
)

// Note represents a clinician note attached to a recording
type Note struct {
	ID       uint   `gorm:"primaryKey"`
	FilePath string `gorm:"type:text;not null;index"` // Either "name" or legacy "bucket/name"
	Author   string `gorm:"type:text"`
	Body     string `gorm:"type:text;not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}
