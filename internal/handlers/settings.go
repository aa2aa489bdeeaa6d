package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskboard-api/internal/dto"
	apierrors "github.com/yukikurage/taskboard-api/internal/errors"
	"github.com/yukikurage/taskboard-api/internal/middleware"
	"github.com/yukikurage/taskboard-api/internal/models"
	"github.com/yukikurage/taskboard-api/internal/services"
)

// SettingsHandler exposes the user's own notification preferences.
type SettingsHandler struct {
	settingsService *services.SettingsService
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(settingsService *services.SettingsService) *SettingsHandler {
	return &SettingsHandler{
		settingsService: settingsService,
	}
}

// GetSettings returns the user's settings, creating defaults on first access.
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	settings, err := h.settingsService.Get(userID)
	if err != nil {
		apierrors.ServiceUnavailable(c, "Failed to fetch settings")
		return
	}

	c.JSON(http.StatusOK, dto.ToSettingsDTO(*settings))
}

// UpdateSettings applies a partial patch to the user's settings.
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	type UpdateRequest struct {
		EmailEnabled      *bool                         `json:"email_enabled"`
		PushEnabled       *bool                         `json:"push_enabled"`
		SoundAlerts       *bool                         `json:"sound_alerts"`
		Frequency         *models.NotificationFrequency `json:"frequency"`
		QuietHoursEnabled *bool                         `json:"quiet_hours_enabled"`
		QuietHoursStart   *string                       `json:"quiet_hours_start"`
		QuietHoursEnd     *string                       `json:"quiet_hours_end"`
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	settings, err := h.settingsService.Update(userID, services.UpdateSettingsInput{
		EmailEnabled:      req.EmailEnabled,
		PushEnabled:       req.PushEnabled,
		SoundAlerts:       req.SoundAlerts,
		Frequency:         req.Frequency,
		QuietHoursEnabled: req.QuietHoursEnabled,
		QuietHoursStart:   req.QuietHoursStart,
		QuietHoursEnd:     req.QuietHoursEnd,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidFrequency),
			errors.Is(err, services.ErrInvalidQuietHours):
			apierrors.BadRequest(c, err.Error())
		default:
			apierrors.ServiceUnavailable(c, "Failed to update settings")
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToSettingsDTO(*settings))
}

// ToggleMute flips mute state for a project, task or sender.
func (h *SettingsHandler) ToggleMute(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	kind := services.MuteKind(c.Param("kind"))
	targetID, err := strconv.ParseUint(c.Param("target_id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid target ID")
		return
	}

	muted, err := h.settingsService.ToggleMute(userID, kind, targetID)
	if err != nil {
		if errors.Is(err, services.ErrInvalidMuteKind) {
			apierrors.BadRequest(c, err.Error())
			return
		}
		apierrors.ServiceUnavailable(c, "Failed to toggle mute")
		return
	}

	c.JSON(http.StatusOK, gin.H{"muted": muted})
}
