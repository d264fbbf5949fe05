package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/noptechs/lease-app/internal/config"
	"github.com/noptechs/lease-app/internal/models"

	"github.com/phuslu/log"
	"gorm.io/gorm"
)

// Sentinel errors surfaced to handlers. Dynamic details are wrapped around
// them with fmt.Errorf so errors.Is keeps working.
var (
	ErrOverpayment             = errors.New("overpayment")
	ErrDuplicateContractNumber = errors.New("contract number must be unique")
	ErrDateOrder               = errors.New("end date must not precede start date")
	ErrUnknownUnitType         = errors.New("unknown unit type")
	ErrLeaseNotFound           = errors.New("lease not found")
)

// ExpiringWindowDays is the renewal-alert window: a lease ending within this
// many days is "expiring".
const ExpiringWindowDays = 90

// LeaseService owns lease lifecycle, amount reconciliation and expiry
// classification. All multi-step mutations run inside a transaction so a
// constraint failure rolls the whole change back.
type LeaseService struct {
	DB  *gorm.DB
	Cfg config.Config

	// Now is the wall clock, overridable in tests.
	Now func() time.Time
}

func NewLeaseService(db *gorm.DB, cfg config.Config) *LeaseService {
	return &LeaseService{DB: db, Cfg: cfg, Now: time.Now}
}

// ReconcileAmounts computes the paid/remaining pair from a lease total and
// its payment set. An empty set counts as zero paid.
func ReconcileAmounts(totalRentalAmount float64, payments []models.LeasePayment) (amountPaid, remainingBalance float64) {
	for _, p := range payments {
		amountPaid += p.Amount
	}
	return amountPaid, totalRentalAmount - amountPaid
}

// ClassifyExpiry derives the days-to-expiry / renewal-alert / status triple
// from the end date and the caller-supplied "today". Both are truncated to
// civil dates before the day delta is taken. A zero end date classifies as
// active with zero days. The function is pure: re-running it with the same
// inputs always yields the same outputs.
func ClassifyExpiry(endDate, today time.Time) (daysToExpiry int, renewalAlert bool, status string) {
	if endDate.IsZero() {
		return 0, false, models.LeaseStatusActive
	}
	delta := int(truncateToDate(endDate).Sub(truncateToDate(today)).Hours() / 24)
	switch {
	case delta < 0:
		return delta, false, models.LeaseStatusExpired
	case delta < ExpiringWindowDays:
		return delta, true, models.LeaseStatusExpiring
	default:
		return delta, false, models.LeaseStatusActive
	}
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current date in the company's configured timezone.
func (s *LeaseService) Today() time.Time {
	loc := time.UTC
	var cs models.CompanySettings
	if err := s.DB.First(&cs).Error; err == nil && cs.Timezone != "" {
		if l, lerr := time.LoadLocation(cs.Timezone); lerr == nil {
			loc = l
		}
	}
	return truncateToDate(s.Now().In(loc))
}

// DefaultCurrency returns the company default currency, or USD when no
// company settings row exists yet.
func (s *LeaseService) DefaultCurrency() string {
	var cs models.CompanySettings
	if err := s.DB.First(&cs).Error; err == nil && cs.DefaultCurrency != "" {
		return cs.DefaultCurrency
	}
	return "USD"
}

// LeaseInput carries the writable lease fields.
type LeaseInput struct {
	ContractNumber      string    `json:"contract_number"`
	Region              string    `json:"region"`
	UnitType            string    `json:"unit_type"`
	StartDate           time.Time `json:"start_date"`
	EndDate             time.Time `json:"end_date"`
	InstallmentsPerYear int       `json:"installments_per_year"`
	Currency            string    `json:"currency"`
	TotalRentalAmount   float64   `json:"total_rental_amount"`
	LandlordBankAccount string    `json:"landlord_bank_account"`
	Notes               string    `json:"notes"`
	PartnerName         string    `json:"partner_name"`
	Representative      string    `json:"representative"`
}

// unitTypes returns the allowed unit_type values for the active profile.
func (s *LeaseService) unitTypes() []string {
	if s.Cfg.Profile == config.ProfileSite {
		return models.UnitTypesSite
	}
	return models.UnitTypesStandard
}

func (s *LeaseService) validateInput(in *LeaseInput) error {
	if in.UnitType == "" {
		in.UnitType = s.unitTypes()[0]
	}
	if !slices.Contains(s.unitTypes(), in.UnitType) {
		return fmt.Errorf("%w: %q", ErrUnknownUnitType, in.UnitType)
	}
	if s.Cfg.EnforceDateOrder && !in.EndDate.IsZero() && !in.StartDate.IsZero() && in.EndDate.Before(in.StartDate) {
		return ErrDateOrder
	}
	return nil
}

// CreateLease validates and persists a new lease, classifying its expiry
// against today's date. The contract number must be unique.
func (s *LeaseService) CreateLease(in LeaseInput, actor string) (*models.Lease, error) {
	if err := s.validateInput(&in); err != nil {
		return nil, err
	}
	if in.Currency == "" {
		in.Currency = s.DefaultCurrency()
	}
	if in.InstallmentsPerYear == 0 {
		in.InstallmentsPerYear = 1
	}
	lease := models.Lease{
		ContractNumber:      in.ContractNumber,
		Region:              in.Region,
		UnitType:            in.UnitType,
		StartDate:           in.StartDate,
		EndDate:             in.EndDate,
		InstallmentsPerYear: in.InstallmentsPerYear,
		Currency:            in.Currency,
		TotalRentalAmount:   in.TotalRentalAmount,
		LandlordBankAccount: in.LandlordBankAccount,
		Notes:               in.Notes,
		PartnerName:         in.PartnerName,
		Representative:      in.Representative,
	}
	lease.DaysToExpiry, lease.RenewalAlert, lease.LeaseStatus = ClassifyExpiry(lease.EndDate, s.Today())
	lease.RemainingBalance = lease.TotalRentalAmount

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&lease).Error; err != nil {
			return mapDuplicateErr(err)
		}
		s.audit(tx, actor, "Lease", lease.ID, "create", "", "", lease.ContractNumber)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &lease, nil
}

// LeaseUpdate carries a partial update; nil fields are left untouched.
type LeaseUpdate struct {
	ContractNumber      *string    `json:"contract_number"`
	Region              *string    `json:"region"`
	UnitType            *string    `json:"unit_type"`
	StartDate           *time.Time `json:"start_date"`
	EndDate             *time.Time `json:"end_date"`
	InstallmentsPerYear *int       `json:"installments_per_year"`
	Currency            *string    `json:"currency"`
	TotalRentalAmount   *float64   `json:"total_rental_amount"`
	LandlordBankAccount *string    `json:"landlord_bank_account"`
	Notes               *string    `json:"notes"`
	PartnerName         *string    `json:"partner_name"`
	Representative      *string    `json:"representative"`
}

// UpdateLease applies a partial update, then re-runs whichever derived
// computations the change touched: reconciliation when the total changed,
// classification when the end date changed. Everything happens in one
// transaction so an overpayment rejection leaves no partial state behind.
func (s *LeaseService) UpdateLease(id uint, up LeaseUpdate, actor string) (*models.Lease, error) {
	today := s.Today()
	var lease models.Lease
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&lease, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLeaseNotFound
			}
			return err
		}
		totalChanged := false
		endDateChanged := false

		if up.ContractNumber != nil && *up.ContractNumber != lease.ContractNumber {
			s.audit(tx, actor, "Lease", lease.ID, "update", "contract_number", lease.ContractNumber, *up.ContractNumber)
			lease.ContractNumber = *up.ContractNumber
		}
		if up.Region != nil {
			lease.Region = *up.Region
		}
		if up.UnitType != nil {
			if !slices.Contains(s.unitTypes(), *up.UnitType) {
				return fmt.Errorf("%w: %q", ErrUnknownUnitType, *up.UnitType)
			}
			lease.UnitType = *up.UnitType
		}
		if up.StartDate != nil {
			lease.StartDate = *up.StartDate
		}
		if up.EndDate != nil && !up.EndDate.Equal(lease.EndDate) {
			s.audit(tx, actor, "Lease", lease.ID, "update", "end_date",
				lease.EndDate.Format("2006-01-02"), up.EndDate.Format("2006-01-02"))
			lease.EndDate = *up.EndDate
			endDateChanged = true
		}
		if s.Cfg.EnforceDateOrder && lease.EndDate.Before(lease.StartDate) {
			return ErrDateOrder
		}
		if up.InstallmentsPerYear != nil {
			lease.InstallmentsPerYear = *up.InstallmentsPerYear
		}
		if up.Currency != nil {
			lease.Currency = *up.Currency
		}
		if up.TotalRentalAmount != nil && *up.TotalRentalAmount != lease.TotalRentalAmount {
			s.audit(tx, actor, "Lease", lease.ID, "update", "total_rental_amount",
				fmt.Sprintf("%.2f", lease.TotalRentalAmount), fmt.Sprintf("%.2f", *up.TotalRentalAmount))
			lease.TotalRentalAmount = *up.TotalRentalAmount
			totalChanged = true
		}
		if up.LandlordBankAccount != nil {
			lease.LandlordBankAccount = *up.LandlordBankAccount
		}
		if up.Notes != nil {
			lease.Notes = *up.Notes
		}
		if up.PartnerName != nil {
			lease.PartnerName = *up.PartnerName
		}
		if up.Representative != nil {
			lease.Representative = *up.Representative
		}

		if totalChanged {
			if err := s.reconcile(tx, &lease); err != nil {
				return err
			}
		}
		if endDateChanged {
			lease.DaysToExpiry, lease.RenewalAlert, lease.LeaseStatus = ClassifyExpiry(lease.EndDate, today)
		}
		if err := tx.Save(&lease).Error; err != nil {
			return mapDuplicateErr(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &lease, nil
}

// GetLease fetches a lease with its payments and receipts preloaded.
func (s *LeaseService) GetLease(id uint) (*models.Lease, error) {
	var lease models.Lease
	err := s.DB.Preload("Payments.Receipts").Preload("Payments").First(&lease, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrLeaseNotFound
	}
	if err != nil {
		return nil, err
	}
	return &lease, nil
}

// ListOptions narrows and pages a lease listing.
type ListOptions struct {
	Limit  int
	Offset int
	Query  string // matches contract number or region, case-insensitive
	Status string // optional lease_status filter
}

// ListLeases returns a page of leases ordered by end date (soonest first,
// matching how the register is reviewed) plus the unpaged total.
func (s *LeaseService) ListLeases(opts ListOptions) ([]models.Lease, int64, error) {
	if opts.Limit <= 0 || opts.Limit > 200 {
		opts.Limit = 50
	}
	dbq := s.DB.Model(&models.Lease{})
	if opts.Query != "" {
		like := "%" + opts.Query + "%"
		dbq = dbq.Where("contract_number LIKE ? OR region LIKE ?", like, like)
	}
	if opts.Status != "" {
		dbq = dbq.Where("lease_status = ?", opts.Status)
	}
	var total int64
	if err := dbq.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var leases []models.Lease
	if err := dbq.Order("end_date asc").Limit(opts.Limit).Offset(opts.Offset).Find(&leases).Error; err != nil {
		return nil, 0, err
	}
	return leases, total, nil
}

// DeleteLease removes a lease and all of its payments. Payments are deleted
// explicitly rather than relying on database-level cascade so the behavior
// is identical on sqlite and postgres.
func (s *LeaseService) DeleteLease(id uint, actor string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var lease models.Lease
		if err := tx.First(&lease, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLeaseNotFound
			}
			return err
		}
		if err := tx.Where("lease_id = ?", id).Delete(&models.LeasePayment{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&lease).Error; err != nil {
			return err
		}
		s.audit(tx, actor, "Lease", id, "delete", "", lease.ContractNumber, "")
		return nil
	})
}

// reconcile recomputes the paid/remaining pair from the stored payment set
// and applies the overpayment guard. Must run inside the mutating
// transaction: a returned error rolls back the triggering change.
func (s *LeaseService) reconcile(tx *gorm.DB, lease *models.Lease) error {
	var payments []models.LeasePayment
	if err := tx.Where("lease_id = ?", lease.ID).Find(&payments).Error; err != nil {
		return err
	}
	paid, remaining := ReconcileAmounts(lease.TotalRentalAmount, payments)
	if lease.TotalRentalAmount != 0 && paid > lease.TotalRentalAmount {
		return fmt.Errorf("%w: total paid (%.2f) cannot be greater than total rental amount (%.2f)",
			ErrOverpayment, paid, lease.TotalRentalAmount)
	}
	lease.AmountPaid = paid
	lease.RemainingBalance = remaining
	return nil
}

// RecomputeAllExpiry reclassifies every lease against today's date. This is
// the staleness remediation: stored classifications are only as fresh as the
// last edit, so the sweep re-derives them as days pass.
func (s *LeaseService) RecomputeAllExpiry(ctx context.Context) (int, error) {
	today := s.Today()
	updated := 0
	var leases []models.Lease
	if err := s.DB.WithContext(ctx).Find(&leases).Error; err != nil {
		return 0, err
	}
	for i := range leases {
		l := &leases[i]
		days, alert, status := ClassifyExpiry(l.EndDate, today)
		if days == l.DaysToExpiry && alert == l.RenewalAlert && status == l.LeaseStatus {
			continue
		}
		err := s.DB.WithContext(ctx).Model(l).Updates(map[string]interface{}{
			"days_to_expiry": days,
			"renewal_alert":  alert,
			"lease_status":   status,
		}).Error
		if err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}

// RunExpirySweep re-runs RecomputeAllExpiry on the configured interval until
// the context is cancelled. Call in a goroutine from main.
func (s *LeaseService) RunExpirySweep(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.RecomputeAllExpiry(ctx)
			if err != nil {
				log.Error().Err(err).Msg("expiry sweep failed")
				continue
			}
			log.Info().Int("updated", n).Msg("expiry sweep completed")
		}
	}
}

// mapDuplicateErr translates driver unique-violation errors into the
// duplicate contract number sentinel.
func mapDuplicateErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateContractNumber
	}
	return err
}
