package audit

import (
	"encoding/json"
	"time"

	"github.com/brainwash-news/newsdesk/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LogAction records an audit log entry
func LogAction(db *gorm.DB, userID uuid.UUID, action, resource string, details interface{}) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		detailsJSON = []byte("{}")
	}

	log := models.AuditLog{
		UserID:      userID,
		Action:      action,
		Resource:    resource,
		DetailsJSON: string(detailsJSON),
		Timestamp:   time.Now(),
	}

	return db.Create(&log).Error
}

// Audit actions constants
const (
	ActionSignup            = "signup"
	ActionLogin             = "login"
	ActionMakeAdmin         = "make_admin"
	ActionRevokeAdmin       = "revoke_admin"
	ActionRequestPermission = "request_permission"
	ActionCreateGroup       = "create_group"
	ActionSetGroupPerms     = "set_group_permissions"
	ActionAddGroupMember    = "add_group_member"
	ActionRemoveGroupMember = "remove_group_member"
	ActionCreateArticle     = "create_article"
	ActionUpdateArticle     = "update_article"
	ActionDeleteArticle     = "delete_article"
)
