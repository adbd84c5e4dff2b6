package models

import (
	"time"

	"gorm.io/gorm"
)

// Patient represents a patient identified by a code such as "P005"
type Patient struct {
	ID          uint   `gorm:"primaryKey"`
	Code        string `gorm:"type:text;not null;uniqueIndex"`
	FirstName   string `gorm:"type:text"`
	LastName    string `gorm:"type:text"`
	TherapistID *uint  `gorm:"index"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`

	// Relationships
	Therapist *Therapist `gorm:"foreignKey:TherapistID;references:ID"`
}
