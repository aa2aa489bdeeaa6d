package repository

import (
	"github.com/yukikurage/taskboard-api/internal/database"
	"github.com/yukikurage/taskboard-api/internal/models"
	"github.com/yukikurage/taskboard-api/internal/utils"
	"gorm.io/gorm"
)

// GormNotificationRepository is a GORM implementation of NotificationRepository
type GormNotificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &GormNotificationRepository{db: db}
}

// Create appends a notification for its recipient
func (r *GormNotificationRepository) Create(notification *models.Notification) error {
	return r.db.Create(notification).Error
}

// List returns a recipient's notifications newest first. The sort key is
// created_at with the id as tiebreak, so page boundaries stay stable while
// new rows are being inserted concurrently.
func (r *GormNotificationRepository) List(recipientID uint64, read *bool, params utils.PaginationParams) ([]models.Notification, int64, error) {
	query := r.db.Model(&models.Notification{}).
		Where("recipient_id = ?", recipientID)

	if read != nil {
		query = query.Where("is_read = ?", *read)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var notifications []models.Notification
	err := query.Order("created_at DESC, id DESC").
		Scopes(database.Paginate(params)).
		Preload("Sender").
		Find(&notifications).Error
	if err != nil {
		return nil, 0, err
	}

	return notifications, total, nil
}

// MarkRead flips one notification to read. A row owned by someone else is
// indistinguishable from a missing one.
func (r *GormNotificationRepository) MarkRead(recipientID, id uint64) error {
	result := r.db.Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ?", id, recipientID).
		Update("is_read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkAllRead flips every unread notification of the recipient
func (r *GormNotificationRepository) MarkAllRead(recipientID uint64) error {
	return r.db.Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Update("is_read", true).Error
}

// Delete removes one notification owned by the recipient
func (r *GormNotificationRepository) Delete(recipientID, id uint64) error {
	result := r.db.Where("id = ? AND recipient_id = ?", id, recipientID).
		Delete(&models.Notification{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountUnread counts the recipient's unread notifications
func (r *GormNotificationRepository) CountUnread(recipientID uint64) (int64, error) {
	var count int64
	err := r.db.Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&count).Error
	return count, err
}
