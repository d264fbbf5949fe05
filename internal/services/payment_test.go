package services

import (
	"testing"

	"github.com/noptechs/lease-app/internal/config"
	"github.com/noptechs/lease-app/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedLease(t *testing.T, svc *LeaseService, total float64) *models.Lease {
	t.Helper()
	lease, err := svc.CreateLease(LeaseInput{
		ContractNumber:    "CN-" + t.Name(),
		Region:            "East",
		StartDate:         date(2026, 1, 1),
		EndDate:           date(2027, 1, 1),
		TotalRentalAmount: total,
	}, "alice")
	require.NoError(t, err)
	return lease
}

func TestCreatePaymentReconcilesLease(t *testing.T) {
	svc := newTestService(t, config.Config{Profile: config.ProfileStandard})
	lease := seedLease(t, svc, 1000)

	p, err := svc.CreatePayment(PaymentInput{LeaseID: lease.ID, Amount: 400, Reference: "TRX-1"}, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", p.PaidBy, "paid_by defaults to the acting user")
	assert.Equal(t, lease.Currency, p.Currency, "payment currency mirrors the lease")
	assert.Equal(t, date(2026, 3, 15), p.PaymentDate, "payment date defaults to today")

	var stored models.Lease
	require.NoError(t, svc.DB.First(&stored, lease.ID).Error)
	assert.Equal(t, 400.0, stored.AmountPaid)
	assert.Equal(t, 600.0, stored.RemainingBalance)
	assert.Equal(t, stored.TotalRentalAmount, stored.AmountPaid+stored.RemainingBalance)
}

func TestCreatePaymentRejectsNonPositiveAmounts(t *testing.T) {
	svc := newTestService(t, config.Config{})
	lease := seedLease(t, svc, 1000)

	for _, amount := range []float64{0, -50} {
		_, err := svc.CreatePayment(PaymentInput{LeaseID: lease.ID, Amount: amount}, "alice")
		require.ErrorIs(t, err, models.ErrInvalidPaymentAmount)
	}

	var count int64
	svc.DB.Model(&models.LeasePayment{}).Count(&count)
	assert.EqualValues(t, 0, count)
}

func TestPaymentBeforeSaveHook(t *testing.T) {
	svc := newTestService(t, config.Config{})
	lease := seedLease(t, svc, 1000)

	// Even a direct create that skips the service is rejected by the hook.
	err := svc.DB.Create(&models.LeasePayment{LeaseID: lease.ID, PaymentDate: date(2026, 3, 1), Amount: 0}).Error
	require.ErrorIs(t, err, models.ErrInvalidPaymentAmount)
}

func TestOverpaymentRollsBackWholeAttempt(t *testing.T) {
	svc := newTestService(t, config.Config{})
	lease := seedLease(t, svc, 1000)

	_, err := svc.CreatePayment(PaymentInput{LeaseID: lease.ID, Amount: 1000}, "alice")
	require.NoError(t, err)

	var stored models.Lease
	require.NoError(t, svc.DB.First(&stored, lease.ID).Error)
	require.Equal(t, 0.0, stored.RemainingBalance)

	_, err = svc.CreatePayment(PaymentInput{LeaseID: lease.ID, Amount: 1}, "alice")
	require.ErrorIs(t, err, ErrOverpayment)
	assert.Contains(t, err.Error(), "1001.00", "error names the attempted paid total")
	assert.Contains(t, err.Error(), "1000.00", "error names the allowed total")

	// the rejected payment left no trace
	require.NoError(t, svc.DB.First(&stored, lease.ID).Error)
	assert.Equal(t, 1000.0, stored.AmountPaid)
	assert.Equal(t, 0.0, stored.RemainingBalance)
	var count int64
	svc.DB.Model(&models.LeasePayment{}).Where("lease_id = ?", lease.ID).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestOverpaymentSkippedOnZeroTotal(t *testing.T) {
	svc := newTestService(t, config.Config{})
	lease := seedLease(t, svc, 0)

	// guard only applies to a non-zero total
	_, err := svc.CreatePayment(PaymentInput{LeaseID: lease.ID, Amount: 300}, "alice")
	require.NoError(t, err)

	var stored models.Lease
	require.NoError(t, svc.DB.First(&stored, lease.ID).Error)
	assert.Equal(t, 300.0, stored.AmountPaid)
	assert.Equal(t, -300.0, stored.RemainingBalance)
}

func TestUpdatePaymentAmountReconciles(t *testing.T) {
	svc := newTestService(t, config.Config{})
	lease := seedLease(t, svc, 1000)
	p, err := svc.CreatePayment(PaymentInput{LeaseID: lease.ID, Amount: 300}, "alice")
	require.NoError(t, err)

	amended := 500.0
	_, err = svc.UpdatePayment(p.ID, PaymentUpdate{Amount: &amended}, "bob")
	require.NoError(t, err)

	var stored models.Lease
	require.NoError(t, svc.DB.First(&stored, lease.ID).Error)
	assert.Equal(t, 500.0, stored.AmountPaid)
	assert.Equal(t, 500.0, stored.RemainingBalance)

	// amending beyond the total rolls the amendment back
	tooMuch := 1200.0
	_, err = svc.UpdatePayment(p.ID, PaymentUpdate{Amount: &tooMuch}, "bob")
	require.ErrorIs(t, err, ErrOverpayment)
	var storedPayment models.LeasePayment
	require.NoError(t, svc.DB.First(&storedPayment, p.ID).Error)
	assert.Equal(t, 500.0, storedPayment.Amount)
	assert.Equal(t, "alice", storedPayment.PaidBy, "paid_by never changes after creation")
}

func TestDeletePaymentReconciles(t *testing.T) {
	svc := newTestService(t, config.Config{})
	lease := seedLease(t, svc, 1000)
	p, err := svc.CreatePayment(PaymentInput{LeaseID: lease.ID, Amount: 300}, "alice")
	require.NoError(t, err)
	_, err = svc.CreatePayment(PaymentInput{LeaseID: lease.ID, Amount: 200}, "alice")
	require.NoError(t, err)

	require.NoError(t, svc.DeletePayment(p.ID, "alice"))

	var stored models.Lease
	require.NoError(t, svc.DB.First(&stored, lease.ID).Error)
	assert.Equal(t, 200.0, stored.AmountPaid)
	assert.Equal(t, 800.0, stored.RemainingBalance)

	require.ErrorIs(t, svc.DeletePayment(p.ID, "alice"), ErrPaymentNotFound)
}

func TestSiteProfilePaymentFields(t *testing.T) {
	svc := newTestService(t, config.Config{Profile: config.ProfileSite})
	lease := seedLease(t, svc, 1000)

	p, err := svc.CreatePayment(PaymentInput{LeaseID: lease.ID, Amount: 100}, "carol")
	require.NoError(t, err)
	assert.Equal(t, "1", p.InstallmentNumber, "installment number defaults to 1")
	assert.Empty(t, p.PaidBy, "site profile drops paid_by")
	assert.Empty(t, p.Reference, "site profile drops reference")
}

func TestSiteProfileWritesAuditTrail(t *testing.T) {
	svc := newTestService(t, config.Config{Profile: config.ProfileSite})
	lease := seedLease(t, svc, 1000)
	_, err := svc.CreatePayment(PaymentInput{LeaseID: lease.ID, Amount: 100}, "carol")
	require.NoError(t, err)

	var logs []models.AuditLog
	require.NoError(t, svc.DB.Order("id asc").Find(&logs).Error)
	require.NotEmpty(t, logs)
	assert.Equal(t, "Lease", logs[0].EntityType)
	assert.Equal(t, "create", logs[0].Action)
	last := logs[len(logs)-1]
	assert.Equal(t, "LeasePayment", last.EntityType)
	assert.Equal(t, "carol", last.Actor)
}

func TestStandardProfileSkipsAuditTrail(t *testing.T) {
	svc := newTestService(t, config.Config{Profile: config.ProfileStandard})
	lease := seedLease(t, svc, 1000)
	_, err := svc.CreatePayment(PaymentInput{LeaseID: lease.ID, Amount: 100}, "carol")
	require.NoError(t, err)

	var count int64
	svc.DB.Model(&models.AuditLog{}).Count(&count)
	assert.EqualValues(t, 0, count)
}

func TestAttachReceipt(t *testing.T) {
	svc := newTestService(t, config.Config{})
	lease := seedLease(t, svc, 1000)
	p, err := svc.CreatePayment(PaymentInput{LeaseID: lease.ID, Amount: 100}, "alice")
	require.NoError(t, err)

	att := models.ReceiptAttachment{
		FileName:    "wire.pdf",
		ContentType: "application/pdf",
		SizeBytes:   1234,
		ObjectKey:   "receipts/1/abc.pdf",
		UploadedBy:  "alice",
	}
	require.NoError(t, svc.AttachReceipt(p.ID, &att))

	got, err := svc.GetPayment(p.ID)
	require.NoError(t, err)
	require.Len(t, got.Receipts, 1)
	assert.Equal(t, "wire.pdf", got.Receipts[0].FileName)

	require.ErrorIs(t, svc.AttachReceipt(9999, &models.ReceiptAttachment{FileName: "x", ObjectKey: "k"}), ErrPaymentNotFound)
}

func TestListPaymentsNewestFirst(t *testing.T) {
	svc := newTestService(t, config.Config{})
	lease := seedLease(t, svc, 1000)
	older := date(2026, 1, 10)
	newer := date(2026, 2, 10)
	_, err := svc.CreatePayment(PaymentInput{LeaseID: lease.ID, Amount: 100, PaymentDate: older}, "alice")
	require.NoError(t, err)
	_, err = svc.CreatePayment(PaymentInput{LeaseID: lease.ID, Amount: 200, PaymentDate: newer}, "alice")
	require.NoError(t, err)

	payments, err := svc.ListPayments(lease.ID)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.True(t, payments[0].PaymentDate.Equal(newer) || payments[0].PaymentDate.After(payments[1].PaymentDate))
}
