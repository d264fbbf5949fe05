package models

import "time"

// AuditLog records a tracked field change on a lease or payment.
// Only written when the active profile enables tracking.
type AuditLog struct {
	ID         uint      `gorm:"primaryKey"`
	Actor      string    // who made the change
	EntityType string    // "Lease" or "LeasePayment"
	EntityID   uint      // ID of the changed record
	Action     string    // "create", "update", "delete"
	Field      string    // changed field (optional)
	OldValue   string    // previous value (optional)
	NewValue   string    // new value (optional)
	CreatedAt  time.Time // when
}
