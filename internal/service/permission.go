package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/brainwash-news/newsdesk/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PermissionService owns the capability catalog and the permission request workflow.
type PermissionService struct {
	db *gorm.DB
}

// NewPermissionService creates a new PermissionService.
func NewPermissionService(db *gorm.DB) *PermissionService {
	return &PermissionService{db: db}
}

// Catalog returns the capabilities attached to a resource type, in catalog order.
func (s *PermissionService) Catalog(ctx context.Context, resourceType string) ([]models.Permission, error) {
	var perms []models.Permission
	if err := s.db.WithContext(ctx).Where("resource_type = ?", resourceType).Order("id").Find(&perms).Error; err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return perms, nil
}

// RequestPermissions records the request and grants every selected article
// capability to the user. Both writes share one transaction: either the request
// exists and the grants are in place, or neither is.
func (s *PermissionService) RequestPermissions(ctx context.Context, userID uuid.UUID, codenames []string) (*models.PermissionRequest, error) {
	codenames = normalizeCodenames(codenames)
	if len(codenames) == 0 {
		return nil, &ValidationError{Field: "permissions", Message: "This field is required."}
	}

	var req *models.PermissionRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var perms []models.Permission
		if err := tx.Where("resource_type = ? AND codename IN ?", models.ResourceArticle, codenames).
			Order("id").Find(&perms).Error; err != nil {
			return fmt.Errorf("load permissions: %w", err)
		}
		if missing := missingCodenames(codenames, perms); len(missing) > 0 {
			return &UnknownPermissionError{Codenames: missing}
		}

		req = &models.PermissionRequest{UserID: userID, Permissions: perms}
		if err := tx.Omit("Permissions.*").Create(req).Error; err != nil {
			return fmt.Errorf("create permission request: %w", err)
		}

		grants := make([]models.UserPermission, len(perms))
		for i, p := range perms {
			grants[i] = models.UserPermission{UserID: userID, PermissionID: p.ID}
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&grants).Error; err != nil {
			return fmt.Errorf("grant permissions: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return req, nil
}

// Requests lists permission requests, newest first. A nil userID lists everyone's.
func (s *PermissionService) Requests(ctx context.Context, userID *uuid.UUID) ([]models.PermissionRequest, error) {
	query := s.db.WithContext(ctx).Preload("Permissions").Preload("User").Order("created_at DESC, id DESC")
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}

	var reqs []models.PermissionRequest
	if err := query.Find(&reqs).Error; err != nil {
		return nil, err
	}
	return reqs, nil
}

// DirectPermissions returns the capabilities granted to the user itself.
func (s *PermissionService) DirectPermissions(ctx context.Context, userID uuid.UUID) ([]models.Permission, error) {
	var perms []models.Permission
	err := s.db.WithContext(ctx).
		Joins("JOIN user_permissions ON user_permissions.permission_id = permissions.id").
		Where("user_permissions.user_id = ?", userID).
		Order("permissions.id").
		Find(&perms).Error
	if err != nil {
		return nil, err
	}
	return perms, nil
}

// EffectiveCodenames returns the codenames the user holds directly or through groups.
func (s *PermissionService) EffectiveCodenames(ctx context.Context, userID uuid.UUID) ([]string, error) {
	var codenames []string
	err := s.db.WithContext(ctx).Raw(`
		SELECT p.codename FROM permissions p
		JOIN user_permissions up ON up.permission_id = p.id
		WHERE up.user_id = ?
		UNION
		SELECT p.codename FROM permissions p
		JOIN group_permissions gp ON gp.permission_id = p.id
		JOIN group_memberships gm ON gm.group_id = gp.group_id
		WHERE gm.user_id = ?
		ORDER BY 1`, userID, userID).Scan(&codenames).Error
	if err != nil {
		return nil, err
	}
	return codenames, nil
}

// HasCapability reports whether the user holds the codename directly or through a group.
func (s *PermissionService) HasCapability(ctx context.Context, userID uuid.UUID, codename string) (bool, error) {
	codenames, err := s.EffectiveCodenames(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, c := range codenames {
		if c == codename {
			return true, nil
		}
	}
	return false, nil
}

// normalizeCodenames trims, drops blanks and removes duplicates, keeping order.
func normalizeCodenames(codenames []string) []string {
	seen := make(map[string]bool, len(codenames))
	out := make([]string, 0, len(codenames))
	for _, c := range codenames {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

func missingCodenames(want []string, found []models.Permission) []string {
	have := make(map[string]bool, len(found))
	for _, p := range found {
		have[p.Codename] = true
	}
	var missing []string
	for _, c := range want {
		if !have[c] {
			missing = append(missing, c)
		}
	}
	return missing
}
