package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// ErrInvalidPaymentAmount rejects payments with a non-positive amount.
var ErrInvalidPaymentAmount = errors.New("payment amount must be greater than zero")

// LeasePayment is a single recorded transfer against a lease's rental
// obligation. Currency mirrors the owning lease and is read-only.
type LeasePayment struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	LeaseID     uint      `gorm:"not null;index" json:"lease_id"`
	PaymentDate time.Time `gorm:"not null" json:"payment_date"`
	Amount      float64   `gorm:"not null" json:"amount"`
	Currency    string    `json:"currency"`

	// PaidBy is the acting user at creation time (standard profile);
	// immutable after creation.
	PaidBy string `json:"paid_by,omitempty"`

	Reference         string `json:"reference,omitempty"`          // standard profile
	InstallmentNumber string `json:"installment_number,omitempty"` // site profile
	Note              string `json:"note,omitempty"`

	Receipts []ReceiptAttachment `gorm:"many2many:lease_payment_receipts;" json:"receipts,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeSave enforces the positive-amount rule on every create and update.
// Returning an error aborts the surrounding transaction.
func (p *LeasePayment) BeforeSave(_ *gorm.DB) error {
	if p.Amount <= 0 {
		return ErrInvalidPaymentAmount
	}
	return nil
}
