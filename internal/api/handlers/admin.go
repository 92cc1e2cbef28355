package handlers

import (
	"log/slog"
	"net/http"

	"github.com/brainwash-news/newsdesk/internal/audit"
	"github.com/brainwash-news/newsdesk/internal/models"
	"github.com/brainwash-news/newsdesk/internal/rbac"
	"github.com/brainwash-news/newsdesk/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AdminHandler struct {
	db          *gorm.DB
	groups      *service.GroupService
	permissions *service.PermissionService
}

func NewAdminHandler(db *gorm.DB, groups *service.GroupService, permissions *service.PermissionService) *AdminHandler {
	return &AdminHandler{db: db, groups: groups, permissions: permissions}
}

// ListUsers godoc
// @Summary List all users (admin only)
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Success 200 {array} UserWithAdminStatus
// @Router /admin/users [get]
func (h *AdminHandler) ListUsers(c *gin.Context) {
	var users []models.User
	if err := h.db.Order("username").Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch users"})
		return
	}

	// Get all admin user IDs in ONE Casbin call
	adminUserIDs, err := rbac.GetAllAdminUserIDs()
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to check admin status"})
		return
	}

	usersWithStatus := make([]UserWithAdminStatus, len(users))
	for i, user := range users {
		usersWithStatus[i] = UserWithAdminStatus{
			User:    user,
			IsAdmin: adminUserIDs[user.ID],
		}
	}

	c.JSON(http.StatusOK, usersWithStatus)
}

// ToggleAdmin godoc
// @Summary Toggle admin status for a user
// @Tags admin
// @Security BearerAuth
// @Param id path string true "User UUID"
// @Success 200 {object} UserWithAdminStatus
// @Router /admin/users/{id}/toggle-admin [post]
func (h *AdminHandler) ToggleAdmin(c *gin.Context) {
	adminUser := currentUser(c)

	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid user ID"})
		return
	}
	if userID == adminUser.ID {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Cannot change your own admin status"})
		return
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "User not found"})
		return
	}

	isAdmin, err := rbac.IsAdmin(user.ID)
	if err != nil {
		slog.Error("Failed to check admin status", "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to check admin status"})
		return
	}
	if isAdmin {
		if err := rbac.RevokeAdmin(user.ID); err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to revoke admin"})
			return
		}
		audit.LogAction(h.db, adminUser.ID, audit.ActionRevokeAdmin, "user:"+user.ID.String(), nil)
	} else {
		if err := rbac.MakeAdmin(user.ID); err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to make admin"})
			return
		}
		audit.LogAction(h.db, adminUser.ID, audit.ActionMakeAdmin, "user:"+user.ID.String(), nil)
	}

	c.JSON(http.StatusOK, UserWithAdminStatus{User: user, IsAdmin: !isAdmin})
}

// ListGroups godoc
// @Summary List groups with their capabilities (admin only)
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.Group
// @Router /admin/groups [get]
func (h *AdminHandler) ListGroups(c *gin.Context) {
	groups, err := h.groups.List(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, groups)
}

// CreateGroup godoc
// @Summary Create a group (admin only)
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param group body CreateGroupRequest true "Group"
// @Success 201 {object} models.Group
// @Failure 409 {object} ErrorResponse
// @Router /admin/groups [post]
func (h *AdminHandler) CreateGroup(c *gin.Context) {
	adminUser := currentUser(c)

	var req CreateGroupRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	group, err := h.groups.Create(c.Request.Context(), req.Name)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	audit.LogAction(h.db, adminUser.ID, audit.ActionCreateGroup, "group:"+group.Name, nil)
	c.JSON(http.StatusCreated, group)
}

// GetGroup godoc
// @Summary Get a group and its members (admin only)
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param name path string true "Group name"
// @Success 200 {object} GroupDetail
// @Failure 404 {object} ErrorResponse
// @Router /admin/groups/{name} [get]
func (h *AdminHandler) GetGroup(c *gin.Context) {
	ctx := c.Request.Context()
	group, err := h.groups.Get(ctx, c.Param("name"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	members, err := h.groups.Members(ctx, group.Name)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, GroupDetail{Group: *group, Members: members})
}

// SetGroupPermissions godoc
// @Summary Replace a group's capabilities (admin only)
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param name path string true "Group name"
// @Param permissions body SetGroupPermissionsRequest true "Codenames"
// @Success 200 {object} models.Group
// @Failure 404 {object} ErrorResponse
// @Router /admin/groups/{name}/permissions [put]
func (h *AdminHandler) SetGroupPermissions(c *gin.Context) {
	adminUser := currentUser(c)

	var req SetGroupPermissionsRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	group, err := h.groups.SetPermissions(c.Request.Context(), c.Param("name"), req.Permissions)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	audit.LogAction(h.db, adminUser.ID, audit.ActionSetGroupPerms, "group:"+group.Name, map[string]interface{}{
		"permissions": req.Permissions,
	})
	c.JSON(http.StatusOK, group)
}

// AddGroupMember godoc
// @Summary Add a user to a group (admin only)
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Param name path string true "Group name"
// @Param member body GroupMemberRequest true "User"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /admin/groups/{name}/members [post]
func (h *AdminHandler) AddGroupMember(c *gin.Context) {
	adminUser := currentUser(c)

	var req GroupMemberRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	name := c.Param("name")
	if err := h.groups.AddMember(c.Request.Context(), name, req.UserID); err != nil {
		handleServiceError(c, err)
		return
	}

	audit.LogAction(h.db, adminUser.ID, audit.ActionAddGroupMember, "group:"+name, map[string]interface{}{
		"user_id": req.UserID,
	})
	c.Status(http.StatusNoContent)
}

// RemoveGroupMember godoc
// @Summary Remove a user from a group (admin only)
// @Tags admin
// @Security BearerAuth
// @Param name path string true "Group name"
// @Param user_id path string true "User UUID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /admin/groups/{name}/members/{user_id} [delete]
func (h *AdminHandler) RemoveGroupMember(c *gin.Context) {
	adminUser := currentUser(c)

	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid user ID"})
		return
	}

	name := c.Param("name")
	if err := h.groups.RemoveMember(c.Request.Context(), name, userID); err != nil {
		handleServiceError(c, err)
		return
	}

	audit.LogAction(h.db, adminUser.ID, audit.ActionRemoveGroupMember, "group:"+name, map[string]interface{}{
		"user_id": userID,
	})
	c.Status(http.StatusNoContent)
}

// ListPermissionRequests godoc
// @Summary List permission requests (admin only)
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param user_id query string false "Filter by user"
// @Success 200 {array} models.PermissionRequest
// @Router /admin/permission-requests [get]
func (h *AdminHandler) ListPermissionRequests(c *gin.Context) {
	var userID *uuid.UUID
	if raw := c.Query("user_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid user ID"})
			return
		}
		userID = &id
	}

	reqs, err := h.permissions.Requests(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, reqs)
}

// ListPermissions godoc
// @Summary The capability catalog (admin only)
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param resource_type query string false "Resource type" default(article)
// @Success 200 {array} models.Permission
// @Router /admin/permissions [get]
func (h *AdminHandler) ListPermissions(c *gin.Context) {
	perms, err := h.permissions.Catalog(c.Request.Context(), c.DefaultQuery("resource_type", models.ResourceArticle))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, perms)
}

// ListAuditLogs godoc
// @Summary List audit logs (admin only)
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param user_id query string false "Filter by user ID"
// @Param action query string false "Filter by action"
// @Success 200 {array} models.AuditLog
// @Router /admin/audit-logs [get]
func (h *AdminHandler) ListAuditLogs(c *gin.Context) {
	query := h.db.Preload("User").Order("timestamp DESC").Limit(100)

	if userID := c.Query("user_id"); userID != "" {
		query = query.Where("user_id = ?", userID)
	}

	if action := c.Query("action"); action != "" {
		query = query.Where("action = ?", action)
	}

	var logs []models.AuditLog
	if err := query.Find(&logs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch audit logs"})
		return
	}

	c.JSON(http.StatusOK, logs)
}

// ListJobs godoc
// @Summary List ingest jobs (admin only)
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param status query string false "Filter by status"
// @Success 200 {array} models.Job
// @Router /admin/jobs [get]
func (h *AdminHandler) ListJobs(c *gin.Context) {
	query := h.db.Order("created_at DESC").Limit(100)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var jobs []models.Job
	if err := query.Find(&jobs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch jobs"})
		return
	}
	c.JSON(http.StatusOK, jobs)
}

// Request types
type CreateGroupRequest struct {
	Name string `json:"name" form:"name" binding:"required,max=150"`
}

type SetGroupPermissionsRequest struct {
	Permissions []string `json:"permissions" form:"permissions"`
}

type GroupMemberRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
}

type UserWithAdminStatus struct {
	models.User
	IsAdmin bool `json:"is_admin"`
}

type GroupDetail struct {
	models.Group
	Members []models.User `json:"members"`
}
