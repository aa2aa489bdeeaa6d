package dto

import (
	"time"

	"github.com/yukikurage/taskboard-api/internal/models"
	"github.com/yukikurage/taskboard-api/internal/utils"
)

// NotificationDTO represents a stored notification in API responses
type NotificationDTO struct {
	ID        uint64                  `json:"id"`
	Category  string                  `json:"category"`
	Title     string                  `json:"title"`
	Body      string                  `json:"body,omitempty"`
	Meta      models.NotificationMeta `json:"meta"`
	Read      bool                    `json:"read"`
	CreatedAt time.Time               `json:"created_at"`
	Sender    *UserDTO                `json:"sender,omitempty"`
}

// NotificationListResponse represents a paginated notification page
type NotificationListResponse struct {
	Notifications []NotificationDTO        `json:"notifications"`
	Pagination    utils.PaginationResponse `json:"pagination"`
}

// ToNotificationDTO converts a Notification model to NotificationDTO
func ToNotificationDTO(notification models.Notification) NotificationDTO {
	dto := NotificationDTO{
		ID:        notification.ID,
		Category:  notification.Category,
		Title:     notification.Title,
		Body:      notification.Body,
		Meta:      notification.Meta,
		Read:      notification.Read,
		CreatedAt: notification.CreatedAt,
	}
	if notification.Sender != nil && notification.Sender.ID != 0 {
		sender := ToUserDTO(*notification.Sender)
		dto.Sender = &sender
	}
	return dto
}

// ToNotificationListResponse converts a notification page to its response
func ToNotificationListResponse(notifications []models.Notification, params utils.PaginationParams, total int64) NotificationListResponse {
	items := make([]NotificationDTO, len(notifications))
	for i, n := range notifications {
		items[i] = ToNotificationDTO(n)
	}

	return NotificationListResponse{
		Notifications: items,
		Pagination: utils.PaginationResponse{
			Page:  params.Page,
			Limit: params.Limit,
			Total: total,
		},
	}
}
