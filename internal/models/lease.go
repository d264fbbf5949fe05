package models

import "time"

// Lease statuses derived from the expiry classification.
const (
	LeaseStatusActive   = "active"
	LeaseStatusExpiring = "expiring"
	LeaseStatusExpired  = "expired"
)

// Unit types for the standard profile.
const (
	UnitTypeOffice    = "office"
	UnitTypeHousing   = "housing"
	UnitTypeWarehouse = "warehouse"
)

// UnitTypesStandard is the allowed unit_type set for the standard profile.
var UnitTypesStandard = []string{UnitTypeOffice, UnitTypeHousing, UnitTypeWarehouse}

// UnitTypesSite is the extended site-type set used by the site profile.
// "office" stays first: it is the default for both profiles.
var UnitTypesSite = []string{
	UnitTypeOffice,
	"contractors_office",
	"customer_service_office",
	"villa",
	"contractors_villa",
	"customer_service_villa",
	"apartment",
	"contractors_apartment",
	"customer_service_apartment",
}

// Lease is a contractual record for a rented unit with a fixed term and a
// total rental obligation. AmountPaid, RemainingBalance, DaysToExpiry,
// RenewalAlert and LeaseStatus are derived fields recomputed by the service
// layer; handlers never write them directly.
type Lease struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ContractNumber string    `gorm:"not null;uniqueIndex" json:"contract_number"`
	Region         string    `gorm:"not null" json:"region"`
	UnitType       string    `gorm:"not null;default:'office'" json:"unit_type"`
	StartDate      time.Time `gorm:"not null" json:"start_date"`
	EndDate        time.Time `gorm:"not null;index" json:"end_date"`

	InstallmentsPerYear int    `gorm:"default:1" json:"installments_per_year"` // informational only
	Currency            string `gorm:"not null" json:"currency"`               // defaults from CompanySettings

	TotalRentalAmount float64 `gorm:"not null;default:0" json:"total_rental_amount"`
	AmountPaid        float64 `json:"amount_paid"`        // derived: sum of payment amounts
	RemainingBalance  float64 `json:"remaining_balance"`  // derived: total - paid

	LandlordBankAccount string `json:"landlord_bank_account,omitempty"`
	Notes               string `json:"notes,omitempty"`

	DaysToExpiry int    `json:"days_to_expiry"` // derived, may be negative
	RenewalAlert bool   `json:"renewal_alert"`  // derived, true iff status is expiring
	LeaseStatus  string `gorm:"index" json:"lease_status"`

	// Site profile fields.
	PartnerName    string `json:"partner_name,omitempty"`
	Representative string `json:"representative,omitempty"`

	Payments []LeasePayment `gorm:"foreignKey:LeaseID;constraint:OnDelete:CASCADE" json:"payments,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
