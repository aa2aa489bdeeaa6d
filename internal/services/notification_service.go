package services

import (
	"errors"
	"fmt"

	"github.com/yukikurage/taskboard-api/internal/models"
	"github.com/yukikurage/taskboard-api/internal/repository"
	"github.com/yukikurage/taskboard-api/internal/utils"
	"gorm.io/gorm"
)

// ErrNotificationNotFound covers both a missing row and a row owned by a
// different recipient; the two cases are deliberately indistinguishable.
var ErrNotificationNotFound = errors.New("notification not found")

// NotificationService exposes the recipient-facing notification log.
type NotificationService struct {
	notificationRepo repository.NotificationRepository
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(notificationRepo repository.NotificationRepository) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
	}
}

// List returns the recipient's notifications newest first, optionally
// filtered by read state.
func (s *NotificationService) List(recipientID uint64, read *bool, params utils.PaginationParams) ([]models.Notification, int64, error) {
	notifications, total, err := s.notificationRepo.List(recipientID, read, params)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, total, nil
}

// CountUnread returns the number of stored notifications with read=false.
func (s *NotificationService) CountUnread(recipientID uint64) (int64, error) {
	count, err := s.notificationRepo.CountUnread(recipientID)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead flips one of the recipient's notifications to read.
func (s *NotificationService) MarkRead(recipientID, id uint64) error {
	if err := s.notificationRepo.MarkRead(recipientID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotificationNotFound
		}
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

// MarkAllRead flips every unread notification of the recipient.
func (s *NotificationService) MarkAllRead(recipientID uint64) error {
	if err := s.notificationRepo.MarkAllRead(recipientID); err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

// Delete removes one of the recipient's notifications.
func (s *NotificationService) Delete(recipientID, id uint64) error {
	if err := s.notificationRepo.Delete(recipientID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotificationNotFound
		}
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	return nil
}
