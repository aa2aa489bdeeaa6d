package dto

import "github.com/yukikurage/taskboard-api/internal/models"

// SettingsDTO represents notification settings in API responses
type SettingsDTO struct {
	EmailEnabled      bool                         `json:"email_enabled"`
	PushEnabled       bool                         `json:"push_enabled"`
	SoundAlerts       bool                         `json:"sound_alerts"`
	Frequency         models.NotificationFrequency `json:"frequency"`
	MutedProjects     models.IDSet                 `json:"muted_projects"`
	MutedTasks        models.IDSet                 `json:"muted_tasks"`
	MutedUsers        models.IDSet                 `json:"muted_users"`
	QuietHoursEnabled bool                         `json:"quiet_hours_enabled"`
	QuietHoursStart   string                       `json:"quiet_hours_start"`
	QuietHoursEnd     string                       `json:"quiet_hours_end"`
}

// ToSettingsDTO converts a NotificationSettings model to SettingsDTO
func ToSettingsDTO(settings models.NotificationSettings) SettingsDTO {
	return SettingsDTO{
		EmailEnabled:      settings.EmailEnabled,
		PushEnabled:       settings.PushEnabled,
		SoundAlerts:       settings.SoundAlerts,
		Frequency:         settings.Frequency,
		MutedProjects:     settings.MutedProjects,
		MutedTasks:        settings.MutedTasks,
		MutedUsers:        settings.MutedUsers,
		QuietHoursEnabled: settings.QuietHoursEnabled,
		QuietHoursStart:   settings.QuietHoursStart,
		QuietHoursEnd:     settings.QuietHoursEnd,
	}
}
