package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskboard-api/internal/dto"
	apierrors "github.com/yukikurage/taskboard-api/internal/errors"
	"github.com/yukikurage/taskboard-api/internal/middleware"
	"github.com/yukikurage/taskboard-api/internal/services"
	"github.com/yukikurage/taskboard-api/internal/utils"
)

// NotificationHandler exposes the recipient-facing notification log. Every
// route is scoped to the session user; there is no way to address another
// user's rows.
type NotificationHandler struct {
	notificationService *services.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

// ListNotifications returns the user's notifications, newest first.
// Supports ?read=true|false and pagination.
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	var read *bool
	if readStr := c.Query("read"); readStr != "" {
		value, err := strconv.ParseBool(readStr)
		if err != nil {
			apierrors.BadRequest(c, "Invalid read filter")
			return
		}
		read = &value
	}

	params := utils.GetPaginationParams(c)

	notifications, total, err := h.notificationService.List(userID, read, params)
	if err != nil {
		apierrors.ServiceUnavailable(c, "Failed to fetch notifications")
		return
	}

	c.JSON(http.StatusOK, dto.ToNotificationListResponse(notifications, params, total))
}

// CountUnread returns the user's unread notification count.
func (h *NotificationHandler) CountUnread(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	count, err := h.notificationService.CountUnread(userID)
	if err != nil {
		apierrors.ServiceUnavailable(c, "Failed to count notifications")
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread": count})
}

// MarkRead flips one notification to read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid notification ID")
		return
	}

	if err := h.notificationService.MarkRead(userID, id); err != nil {
		if errors.Is(err, services.ErrNotificationNotFound) {
			apierrors.NotFound(c, err.Error())
			return
		}
		apierrors.InternalError(c, "Failed to mark notification read")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification marked read"})
}

// MarkAllRead flips all of the user's unread notifications.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	if err := h.notificationService.MarkAllRead(userID); err != nil {
		apierrors.InternalError(c, "Failed to mark notifications read")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked read"})
}

// DeleteNotification removes one notification.
func (h *NotificationHandler) DeleteNotification(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid notification ID")
		return
	}

	if err := h.notificationService.Delete(userID, id); err != nil {
		if errors.Is(err, services.ErrNotificationNotFound) {
			apierrors.NotFound(c, err.Error())
			return
		}
		apierrors.InternalError(c, "Failed to delete notification")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification deleted"})
}
