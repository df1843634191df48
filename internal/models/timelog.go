package models

import (
	"time"

	"gorm.io/gorm"
)

// TimeLog — одна рабочая сессия. Открытая сессия = EndTime == nil,
// не больше одной открытой на пользователя глобально.
type TimeLog struct {
	gorm.Model
	CardID uint `gorm:"not null;index" json:"card_id"`
	Card   Card `json:"-"`

	// частичный уникальный индекс — страховка на уровне БД для правила
	// "один открытый таймер на пользователя"
	UserID uint `gorm:"not null;index;index:idx_open_timer_per_user,unique,where:end_time IS NULL" json:"user_id"`
	User   User `json:"-"`

	StartTime time.Time  `gorm:"not null" json:"start_time"`
	EndTime   *time.Time `json:"end_time"`

	// историческая особенность: поле хранит ЦЕЛЫЕ СЕКУНДЫ, не минуты;
	// единицу сохраняем ради совместимости с накопленными данными
	DurationMinutes *int `json:"duration_minutes"`
}
