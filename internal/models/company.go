package models

import "time"

// CompanySettings holds the single organization context: the default
// currency for new leases and the calendar timezone in which "today" is
// evaluated for expiry classification. Single-company app, one row.
type CompanySettings struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	Name            string `gorm:"not null" json:"name"`
	DefaultCurrency string `gorm:"not null;default:'USD'" json:"default_currency"`
	Timezone        string `gorm:"not null;default:'UTC'" json:"timezone"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
