package handlers

import (
	"errors"
	"net/http"

	"github.com/brainwash-news/newsdesk/internal/audit"
	"github.com/brainwash-news/newsdesk/internal/auth"
	"github.com/brainwash-news/newsdesk/internal/models"
	"github.com/brainwash-news/newsdesk/internal/rbac"
	"github.com/brainwash-news/newsdesk/internal/service"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AccountHandler serves sign-in, sign-up and the account page
type AccountHandler struct {
	db          *gorm.DB
	auth        auth.Authenticator
	groups      *service.GroupService
	permissions *service.PermissionService
	cookieTTL   int
}

func NewAccountHandler(db *gorm.DB, authenticator auth.Authenticator, groups *service.GroupService, permissions *service.PermissionService, cookieTTLSeconds int) *AccountHandler {
	return &AccountHandler{
		db:          db,
		auth:        authenticator,
		groups:      groups,
		permissions: permissions,
		cookieTTL:   cookieTTLSeconds,
	}
}

// AccountResponse is the account page
type AccountResponse struct {
	User        *models.User        `json:"user"`
	IsAdmin     bool                `json:"is_admin"`
	Groups      []string            `json:"groups"`
	Permissions []models.Permission `json:"permissions"`
	Effective   []string            `json:"effective_permissions"`
}

// Login godoc
// @Summary User login
// @Description Authenticate user and return JWT token. The token is also set as a session cookie.
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body auth.LoginRequest true "Login credentials"
// @Success 200 {object} auth.LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /user/login [post]
func (h *AccountHandler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	resp, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	audit.LogAction(h.db, resp.User.ID, audit.ActionLogin, "user:"+resp.User.ID.String(), nil)
	h.setSession(c, resp.Token)
	c.JSON(http.StatusOK, resp)
}

// Signup godoc
// @Summary Create an account
// @Tags auth
// @Accept json
// @Produce json
// @Param account body auth.SignupRequest true "Account details"
// @Success 201 {object} auth.LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /user/signup [post]
func (h *AccountHandler) Signup(c *gin.Context) {
	var req auth.SignupRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	resp, err := h.auth.Signup(req)
	if err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to create account"})
		return
	}

	audit.LogAction(h.db, resp.User.ID, audit.ActionSignup, "user:"+resp.User.ID.String(), map[string]interface{}{
		"username": resp.User.Username,
	})
	h.setSession(c, resp.Token)
	c.JSON(http.StatusCreated, resp)
}

// Logout godoc
// @Summary Clear the session cookie
// @Tags auth
// @Success 200 {object} MessageResponse
// @Router /user/logout [post]
func (h *AccountHandler) Logout(c *gin.Context) {
	c.SetCookie(auth.TokenCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, MessageResponse{Message: "Logged out", Redirect: "/api/v1/news"})
}

func (h *AccountHandler) setSession(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.TokenCookie, token, h.cookieTTL, "/", "", false, true)
}

// Account godoc
// @Summary Current account
// @Description The signed-in user with groups and capabilities
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} AccountResponse
// @Failure 401 {object} ErrorResponse
// @Router /user/account [get]
func (h *AccountHandler) Account(c *gin.Context) {
	user := currentUser(c)
	ctx := c.Request.Context()

	groups, err := h.groups.GroupsOf(ctx, user.ID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	direct, err := h.permissions.DirectPermissions(ctx, user.ID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	effective, err := h.permissions.EffectiveCodenames(ctx, user.ID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	isAdmin, _ := rbac.IsAdmin(user.ID)

	names := make([]string, len(groups))
	for i, g := range groups {
		names[i] = g.Name
	}

	c.JSON(http.StatusOK, AccountResponse{
		User:        user,
		IsAdmin:     isAdmin,
		Groups:      names,
		Permissions: direct,
		Effective:   effective,
	})
}

// LoginForm godoc
// @Summary Login form
// @Description Where unauthenticated browsers land; next is carried through
// @Tags auth
// @Produce json
// @Param next query string false "Path to return to after signing in"
// @Success 200 {object} FormView
// @Router /user/login [get]
func (h *AccountHandler) LoginForm(c *gin.Context) {
	next := c.Query("next")
	if next != "" {
		next = safeReturnTo(next)
	}
	c.JSON(http.StatusOK, FormView{
		Template: formTemplate,
		Title:    "Log in",
		Header:   "Log in",
		URL:      "/api/v1/user/login",
		Form: FormBody{
			Fields:   []string{"username", "password"},
			Selected: []string{},
			Values:   map[string]interface{}{"next": next},
		},
	})
}
