package models

import (
	"time"

	"gorm.io/gorm"
)

// Therapist represents a clinician responsible for one or more patients
type Therapist struct {
	ID          uint   `gorm:"primaryKey"`
	FirstName   string `gorm:"type:text"`
	LastName    string `gorm:"type:text"`
	DisplayName string `gorm:"type:text"`
	ShortCode   string `gorm:"type:text;index"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`

	// Relationships
	Patients []Patient `gorm:"foreignKey:TherapistID"`
}
