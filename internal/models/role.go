package models

import (
	"time"

	"gorm.io/gorm"
)

// RoleGrant is the extensible permission-matrix entity. Users carry a coarse
// role tag for the fast-path elevated check; a RoleGrant row can additionally
// spell out per-resource actions. The two representations are deliberately
// kept separate.
type RoleGrant struct {
	ID          uint64           `gorm:"primarykey" json:"id"`
	Name        string           `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Permissions PermissionMatrix `gorm:"serializer:json" json:"permissions"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	DeletedAt   gorm.DeletedAt   `gorm:"index" json:"-"`
}

// PermissionMatrix maps a resource class to the actions allowed on it,
// e.g. {"task": ["read", "update"], "project": ["read"]}.
type PermissionMatrix map[string][]string

// Allows reports whether the matrix grants action on resource.
func (m PermissionMatrix) Allows(resource, action string) bool {
	for _, a := range m[resource] {
		if a == action {
			return true
		}
	}
	return false
}
