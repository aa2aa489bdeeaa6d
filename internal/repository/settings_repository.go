package repository

import (
	"github.com/yukikurage/taskboard-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSettingsRepository is a GORM implementation of SettingsRepository
type GormSettingsRepository struct {
	db *gorm.DB
}

// NewSettingsRepository creates a new SettingsRepository
func NewSettingsRepository(db *gorm.DB) SettingsRepository {
	return &GormSettingsRepository{db: db}
}

// GetOrCreate returns the user's settings row, inserting the defaults on
// first access. The insert ignores the unique-index conflict and the row is
// re-read afterwards, so two racing first accesses converge on one row.
func (r *GormSettingsRepository) GetOrCreate(userID uint64) (*models.NotificationSettings, error) {
	defaults := models.DefaultNotificationSettings(userID)
	err := r.db.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(defaults).Error
	if err != nil {
		return nil, err
	}

	var settings models.NotificationSettings
	if err := r.db.Where("user_id = ?", userID).First(&settings).Error; err != nil {
		return nil, err
	}
	return &settings, nil
}

// Save persists the full settings row
func (r *GormSettingsRepository) Save(settings *models.NotificationSettings) error {
	return r.db.Save(settings).Error
}
