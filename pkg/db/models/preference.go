package models

import "time"

// Preference stores a user-facing setting such as column visibility
type Preference struct {
	Key   string `gorm:"primaryKey;type:text"`
	Value string `gorm:"type:text;not null"`

	UpdatedAt time.Time
}
