package database

import (
	"task-tracker/internal/models"

	"gorm.io/gorm"
)

// helper для записи в журнал аудита; tx — транзакция бизнес-операции,
// чтобы запись откатывалась вместе с ней
func CreateAuditLog(tx *gorm.DB, userID uint, entity string, entityID uint, action, details string) {
	if tx == nil {
		return
	}
	record := models.AuditLog{
		UserID:   userID,
		Entity:   entity,
		EntityID: entityID,
		Action:   action,
		Details:  details,
	}
	_ = tx.Create(&record).Error
}
