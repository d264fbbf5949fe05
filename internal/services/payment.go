package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/noptechs/lease-app/internal/config"
	"github.com/noptechs/lease-app/internal/models"

	"gorm.io/gorm"
)

var (
	ErrPaymentNotFound = errors.New("payment not found")
	ErrReceiptNotFound = errors.New("receipt not found")
)

// PaymentInput carries the writable payment fields. Amount must be strictly
// positive; PaymentDate defaults to today in the company timezone.
type PaymentInput struct {
	LeaseID           uint      `json:"lease_id"`
	PaymentDate       time.Time `json:"payment_date"`
	Amount            float64   `json:"amount"`
	Reference         string    `json:"reference"`
	InstallmentNumber string    `json:"installment_number"`
	Note              string    `json:"note"`
}

// CreatePayment records a transfer against a lease and reconciles the lease
// amounts in the same transaction. The overpayment guard or the positive-
// amount rule failing rolls the whole attempt back, leaving stored amounts
// untouched.
func (s *LeaseService) CreatePayment(in PaymentInput, actor string) (*models.LeasePayment, error) {
	if in.Amount <= 0 {
		return nil, models.ErrInvalidPaymentAmount
	}
	if in.PaymentDate.IsZero() {
		in.PaymentDate = s.Today()
	}
	var payment models.LeasePayment
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var lease models.Lease
		if err := tx.First(&lease, in.LeaseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLeaseNotFound
			}
			return err
		}
		payment = models.LeasePayment{
			LeaseID:     lease.ID,
			PaymentDate: in.PaymentDate,
			Amount:      in.Amount,
			Currency:    lease.Currency, // read-only mirror of the lease currency
			Note:        in.Note,
		}
		switch s.Cfg.Profile {
		case config.ProfileSite:
			payment.InstallmentNumber = in.InstallmentNumber
			if payment.InstallmentNumber == "" {
				payment.InstallmentNumber = "1"
			}
		default:
			payment.PaidBy = actor
			payment.Reference = in.Reference
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}
		if err := s.reconcile(tx, &lease); err != nil {
			return err
		}
		if err := tx.Model(&lease).Updates(map[string]interface{}{
			"amount_paid":       lease.AmountPaid,
			"remaining_balance": lease.RemainingBalance,
		}).Error; err != nil {
			return err
		}
		s.audit(tx, actor, "LeasePayment", payment.ID, "create", "amount", "", fmt.Sprintf("%.2f", payment.Amount))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// PaymentUpdate carries a partial payment amendment. PaidBy is immutable and
// the currency mirror cannot be changed here.
type PaymentUpdate struct {
	PaymentDate       *time.Time `json:"payment_date"`
	Amount            *float64   `json:"amount"`
	Reference         *string    `json:"reference"`
	InstallmentNumber *string    `json:"installment_number"`
	Note              *string    `json:"note"`
}

// UpdatePayment amends a payment and reconciles the owning lease in the same
// transaction.
func (s *LeaseService) UpdatePayment(id uint, up PaymentUpdate, actor string) (*models.LeasePayment, error) {
	var payment models.LeasePayment
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&payment, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPaymentNotFound
			}
			return err
		}
		if up.Amount != nil {
			if *up.Amount <= 0 {
				return models.ErrInvalidPaymentAmount
			}
			if *up.Amount != payment.Amount {
				s.audit(tx, actor, "LeasePayment", payment.ID, "update", "amount",
					fmt.Sprintf("%.2f", payment.Amount), fmt.Sprintf("%.2f", *up.Amount))
			}
			payment.Amount = *up.Amount
		}
		if up.PaymentDate != nil {
			payment.PaymentDate = *up.PaymentDate
		}
		if up.Reference != nil {
			payment.Reference = *up.Reference
		}
		if up.InstallmentNumber != nil {
			payment.InstallmentNumber = *up.InstallmentNumber
		}
		if up.Note != nil {
			payment.Note = *up.Note
		}
		if err := tx.Save(&payment).Error; err != nil {
			return err
		}
		var lease models.Lease
		if err := tx.First(&lease, payment.LeaseID).Error; err != nil {
			return err
		}
		if err := s.reconcile(tx, &lease); err != nil {
			return err
		}
		return tx.Model(&lease).Updates(map[string]interface{}{
			"amount_paid":       lease.AmountPaid,
			"remaining_balance": lease.RemainingBalance,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// DeletePayment removes a payment and reconciles the owning lease.
func (s *LeaseService) DeletePayment(id uint, actor string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var payment models.LeasePayment
		if err := tx.First(&payment, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPaymentNotFound
			}
			return err
		}
		if err := tx.Delete(&payment).Error; err != nil {
			return err
		}
		var lease models.Lease
		if err := tx.First(&lease, payment.LeaseID).Error; err != nil {
			return err
		}
		if err := s.reconcile(tx, &lease); err != nil {
			return err
		}
		if err := tx.Model(&lease).Updates(map[string]interface{}{
			"amount_paid":       lease.AmountPaid,
			"remaining_balance": lease.RemainingBalance,
		}).Error; err != nil {
			return err
		}
		s.audit(tx, actor, "LeasePayment", id, "delete", "amount", fmt.Sprintf("%.2f", payment.Amount), "")
		return nil
	})
}

// ListPayments returns a lease's payments, newest first.
func (s *LeaseService) ListPayments(leaseID uint) ([]models.LeasePayment, error) {
	var payments []models.LeasePayment
	err := s.DB.Where("lease_id = ?", leaseID).
		Preload("Receipts").
		Order("payment_date desc, id desc").
		Find(&payments).Error
	return payments, err
}

// GetPayment fetches one payment with receipts preloaded.
func (s *LeaseService) GetPayment(id uint) (*models.LeasePayment, error) {
	var payment models.LeasePayment
	err := s.DB.Preload("Receipts").First(&payment, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetReceipt fetches a receipt attachment record by ID.
func (s *LeaseService) GetReceipt(id uint) (*models.ReceiptAttachment, error) {
	var att models.ReceiptAttachment
	err := s.DB.First(&att, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReceiptNotFound
	}
	if err != nil {
		return nil, err
	}
	return &att, nil
}

// AttachReceipt associates an uploaded receipt with a payment. The caller is
// responsible for having stored the content under att.ObjectKey first.
func (s *LeaseService) AttachReceipt(paymentID uint, att *models.ReceiptAttachment) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var payment models.LeasePayment
		if err := tx.First(&payment, paymentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPaymentNotFound
			}
			return err
		}
		if err := tx.Create(att).Error; err != nil {
			return err
		}
		return tx.Model(&payment).Association("Receipts").Append(att)
	})
}
