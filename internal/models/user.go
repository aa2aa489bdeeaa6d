package models

import (
	"time"

	"gorm.io/gorm"
)

// UserRole is the coarse role tag carried on every user. Admins see and are
// notified about everything; members are scoped by project membership.
type UserRole string

const (
	UserRoleAdmin  UserRole = "admin"
	UserRoleMember UserRole = "member"
)

type User struct {
	ID           uint64         `gorm:"primarykey" json:"id"`
	Username     string         `gorm:"type:varchar(50);uniqueIndex;not null" json:"username"`
	PasswordHash string         `gorm:"type:varchar(255);not null" json:"-"`
	Role         UserRole       `gorm:"type:varchar(20);not null;default:'member'" json:"role"`
	RoleID       *uint64        `gorm:"index" json:"role_id,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	RoleGrant     *RoleGrant      `gorm:"foreignKey:RoleID" json:"-"`
	CreatedTasks  []Task          `gorm:"foreignKey:CreatorID" json:"-"`
	AssignedTasks []Task          `gorm:"foreignKey:AssigneeID" json:"-"`
	Projects      []ProjectMember `gorm:"foreignKey:UserID" json:"-"`
}

// IsAdmin reports whether the user carries the elevated role tag.
func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}
