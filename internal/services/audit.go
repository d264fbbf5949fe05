package services

import (
	"github.com/noptechs/lease-app/internal/config"
	"github.com/noptechs/lease-app/internal/models"

	"github.com/phuslu/log"
	"gorm.io/gorm"
)

// audit writes a change-tracking row when the site profile is active.
// Failures are logged, not fatal: tracking must never abort the business
// transaction it describes.
func (s *LeaseService) audit(tx *gorm.DB, actor, entityType string, entityID uint, action, field, oldValue, newValue string) {
	if s.Cfg.Profile != config.ProfileSite {
		return
	}
	entry := models.AuditLog{
		Actor:      actor,
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Field:      field,
		OldValue:   oldValue,
		NewValue:   newValue,
	}
	if err := tx.Create(&entry).Error; err != nil {
		log.Warn().Err(err).Str("entity", entityType).Uint64("id", uint64(entityID)).Msg("audit write failed")
	}
}
