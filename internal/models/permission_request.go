package models

import (
	"time"

	"github.com/google/uuid"
)

// PermissionRequest records a user's submitted capability selection.
// A request is written once, together with the grants it produced.
type PermissionRequest struct {
	ID          uint         `gorm:"primarykey" json:"id"`
	UserID      uuid.UUID    `gorm:"type:text;not null;index" json:"user_id"`
	User        User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Permissions []Permission `gorm:"many2many:permission_request_permissions" json:"permissions"`
	CreatedAt   time.Time    `json:"created_at"`
}
