package models

import "time"

type NotificationFrequency string

const (
	FrequencyImmediate NotificationFrequency = "immediate"
	FrequencyDaily     NotificationFrequency = "daily"
	FrequencyNever     NotificationFrequency = "never"
)

// NotificationSettings is the one-per-user preference singleton. Rows are
// created lazily on first access with the defaults below.
type NotificationSettings struct {
	ID                uint64                `gorm:"primarykey" json:"id"`
	UserID            uint64                `gorm:"uniqueIndex;not null" json:"user_id"`
	EmailEnabled      bool                  `gorm:"not null" json:"email_enabled"`
	PushEnabled       bool                  `gorm:"not null" json:"push_enabled"`
	SoundAlerts       bool                  `gorm:"not null" json:"sound_alerts"`
	Frequency         NotificationFrequency `gorm:"type:varchar(20);not null" json:"frequency"`
	MutedProjects     IDSet                 `gorm:"serializer:json" json:"muted_projects"`
	MutedTasks        IDSet                 `gorm:"serializer:json" json:"muted_tasks"`
	MutedUsers        IDSet                 `gorm:"serializer:json" json:"muted_users"`
	QuietHoursEnabled bool                  `gorm:"not null" json:"quiet_hours_enabled"`
	QuietHoursStart   string                `gorm:"type:varchar(5)" json:"quiet_hours_start"`
	QuietHoursEnd     string                `gorm:"type:varchar(5)" json:"quiet_hours_end"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
}

// DefaultNotificationSettings returns the documented defaults: every channel
// on, immediate delivery, quiet hours disabled, nothing muted.
func DefaultNotificationSettings(userID uint64) *NotificationSettings {
	return &NotificationSettings{
		UserID:        userID,
		EmailEnabled:  true,
		PushEnabled:   true,
		SoundAlerts:   true,
		Frequency:     FrequencyImmediate,
		MutedProjects: IDSet{},
		MutedTasks:    IDSet{},
		MutedUsers:    IDSet{},
	}
}

// IDSet is a plain membership set of record ids, stored as a JSON array.
// There is no ordering or weighting among entries.
type IDSet []uint64

// Contains reports whether id is in the set.
func (s IDSet) Contains(id uint64) bool {
	for _, v := range s {
		if v == id {
			return true
		}
	}
	return false
}

// Toggle adds id if absent and removes it if present, returning the new set
// and whether id is a member afterwards. It never errors on either state.
func (s IDSet) Toggle(id uint64) (IDSet, bool) {
	for i, v := range s {
		if v == id {
			return append(s[:i:i], s[i+1:]...), false
		}
	}
	return append(s, id), true
}
