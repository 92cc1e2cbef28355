package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/brainwash-news/newsdesk/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GroupService manages groups, their capabilities and their members.
type GroupService struct {
	db *gorm.DB
}

// NewGroupService creates a new GroupService.
func NewGroupService(db *gorm.DB) *GroupService {
	return &GroupService{db: db}
}

// InGroup reports whether the user is currently a member of the named group.
// An unknown group or a missing membership is not an error.
func (s *GroupService) InGroup(ctx context.Context, userID uuid.UUID, groupName string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.GroupMembership{}).
		Joins("JOIN groups ON groups.id = group_memberships.group_id").
		Where("group_memberships.user_id = ? AND groups.name = ?", userID, groupName).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return count > 0, nil
}

// List returns all groups with their capabilities.
func (s *GroupService) List(ctx context.Context) ([]models.Group, error) {
	var groups []models.Group
	if err := s.db.WithContext(ctx).Preload("Permissions").Order("name").Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

// GroupsOf returns the groups the user belongs to.
func (s *GroupService) GroupsOf(ctx context.Context, userID uuid.UUID) ([]models.Group, error) {
	var groups []models.Group
	err := s.db.WithContext(ctx).
		Joins("JOIN group_memberships ON group_memberships.group_id = groups.id").
		Where("group_memberships.user_id = ?", userID).
		Order("groups.name").
		Find(&groups).Error
	if err != nil {
		return nil, err
	}
	return groups, nil
}

// Get returns a group by name.
func (s *GroupService) Get(ctx context.Context, name string) (*models.Group, error) {
	var group models.Group
	if err := s.db.WithContext(ctx).Preload("Permissions").Where("name = ?", name).First(&group).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &group, nil
}

// Create adds a new, empty group.
func (s *GroupService) Create(ctx context.Context, name string) (*models.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "This field is required."}
	}

	if _, err := s.Get(ctx, name); err == nil {
		return nil, &ConflictError{Message: fmt.Sprintf("group %q already exists", name)}
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	group := models.Group{Name: name}
	if err := s.db.WithContext(ctx).Create(&group).Error; err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	return &group, nil
}

// SetPermissions replaces the capabilities bundled by a group.
func (s *GroupService) SetPermissions(ctx context.Context, name string, codenames []string) (*models.Group, error) {
	group, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	codenames = normalizeCodenames(codenames)
	var perms []models.Permission
	if len(codenames) > 0 {
		if err := s.db.WithContext(ctx).Where("codename IN ?", codenames).Order("id").Find(&perms).Error; err != nil {
			return nil, err
		}
		if missing := missingCodenames(codenames, perms); len(missing) > 0 {
			return nil, &UnknownPermissionError{Codenames: missing}
		}
	}

	if err := s.db.WithContext(ctx).Model(group).Association("Permissions").Replace(perms); err != nil {
		return nil, fmt.Errorf("replace group permissions: %w", err)
	}
	group.Permissions = perms
	return group, nil
}

// AddMember puts a user into a group. Adding an existing member is a no-op.
func (s *GroupService) AddMember(ctx context.Context, name string, userID uuid.UUID) error {
	group, err := s.Get(ctx, name)
	if err != nil {
		return err
	}
	if err := s.userExists(ctx, userID); err != nil {
		return err
	}

	membership := models.GroupMembership{GroupID: group.ID, UserID: userID}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&membership).Error; err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

// RemoveMember takes a user out of a group.
func (s *GroupService) RemoveMember(ctx context.Context, name string, userID uuid.UUID) error {
	group, err := s.Get(ctx, name)
	if err != nil {
		return err
	}

	result := s.db.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", group.ID, userID).
		Delete(&models.GroupMembership{})
	if result.Error != nil {
		return fmt.Errorf("remove member: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Members lists the users in a group.
func (s *GroupService) Members(ctx context.Context, name string) ([]models.User, error) {
	group, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	var users []models.User
	err = s.db.WithContext(ctx).
		Joins("JOIN group_memberships ON group_memberships.user_id = users.id").
		Where("group_memberships.group_id = ?", group.ID).
		Order("users.username").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (s *GroupService) userExists(ctx context.Context, userID uuid.UUID) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}
