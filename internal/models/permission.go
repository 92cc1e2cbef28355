package models

import "time"

// Resource types that capabilities are attached to
const (
	ResourceArticle        = "article"
	ResourceSource         = "source"
	ResourceContactMessage = "contactmessage"
)

// Well-known capability codenames
const (
	PermAddArticle    = "add_article"
	PermChangeArticle = "change_article"
	PermDeleteArticle = "delete_article"
	PermViewArticle   = "view_article"
	PermEditTitle     = "edit_title"
)

// Permission is a named capability, addressed by its codename.
// Rows are seeded at migration time and never modified afterwards.
type Permission struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	Codename     string    `gorm:"uniqueIndex:idx_permission_resource_codename;not null" json:"codename"`
	Name         string    `gorm:"not null" json:"name"`
	ResourceType string    `gorm:"uniqueIndex:idx_permission_resource_codename;not null;index" json:"resource_type"`
	CreatedAt    time.Time `json:"created_at"`
}
