package models

import (
	"time"

	"github.com/google/uuid"
)

// GroupSeniorEditors is the group whose members may edit article titles
const GroupSeniorEditors = "Senior editors"

// Group is a named bundle of capabilities with many-to-many membership
type Group struct {
	ID          uint         `gorm:"primarykey" json:"id"`
	Name        string       `gorm:"uniqueIndex;not null" json:"name"`
	Permissions []Permission `gorm:"many2many:group_permissions" json:"permissions,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// GroupMembership links a user to a group
type GroupMembership struct {
	GroupID   uint      `gorm:"primaryKey" json:"group_id"`
	Group     Group     `gorm:"foreignKey:GroupID" json:"group,omitempty"`
	UserID    uuid.UUID `gorm:"type:text;primaryKey;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
