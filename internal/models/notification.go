package models

import "time"

// Notification is the stored copy of a delivered (or store-only) event.
// It belongs to exactly one recipient, who is the only actor allowed to
// flip its read flag or delete it.
type Notification struct {
	ID          uint64           `gorm:"primarykey" json:"id"`
	RecipientID uint64           `gorm:"not null;index" json:"recipient_id"`
	SenderID    *uint64          `json:"sender_id,omitempty"`
	Category    string           `gorm:"type:varchar(50);not null" json:"category"`
	Title       string           `gorm:"not null" json:"title"`
	Body        string           `gorm:"type:text" json:"body,omitempty"`
	Meta        NotificationMeta `gorm:"serializer:json" json:"meta"`
	Read        bool             `gorm:"column:is_read;not null;default:false" json:"read"`
	CreatedAt   time.Time        `gorm:"index" json:"created_at"`

	// Relations
	Sender *User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
}

// NotificationMeta is a weak reference bag used for routing and mute
// matching. It never implies ownership of the referenced records.
type NotificationMeta struct {
	TaskID    *uint64 `json:"task_id,omitempty"`
	ProjectID *uint64 `json:"project_id,omitempty"`
}
