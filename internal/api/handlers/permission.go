package handlers

import (
	"errors"
	"net/http"

	"github.com/brainwash-news/newsdesk/internal/audit"
	"github.com/brainwash-news/newsdesk/internal/models"
	"github.com/brainwash-news/newsdesk/internal/service"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	requestPermissionURL = "/api/v1/user/request-permission"
	accountURL           = "/api/v1/user/account"
)

// PermissionRequestHandler serves the self-service permission form
type PermissionRequestHandler struct {
	db          *gorm.DB
	permissions *service.PermissionService
}

func NewPermissionRequestHandler(db *gorm.DB, permissions *service.PermissionService) *PermissionRequestHandler {
	return &PermissionRequestHandler{db: db, permissions: permissions}
}

// RequestPermissionForm is the submitted selection
type RequestPermissionForm struct {
	Permissions []string `json:"permissions" form:"permissions"`
}

// PermissionRequestResponse confirms the grant
type PermissionRequestResponse struct {
	Message  string                    `json:"message"`
	Redirect string                    `json:"redirect"`
	Request  *models.PermissionRequest `json:"request"`
}

// Form godoc
// @Summary Permission request form
// @Description Lists the article capabilities a user can request
// @Tags permissions
// @Security BearerAuth
// @Produce json
// @Success 200 {object} FormView
// @Failure 401 {object} ErrorResponse
// @Router /user/request-permission [get]
func (h *PermissionRequestHandler) Form(c *gin.Context) {
	view, err := h.formView(c, nil)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Submit godoc
// @Summary Request permissions
// @Description Records the request and grants the selected capabilities immediately
// @Tags permissions
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param selection body RequestPermissionForm true "Selected codenames"
// @Success 201 {object} PermissionRequestResponse
// @Failure 400 {object} FormView
// @Failure 401 {object} ErrorResponse
// @Router /user/request-permission [post]
func (h *PermissionRequestHandler) Submit(c *gin.Context) {
	user := currentUser(c)

	var form RequestPermissionForm
	if err := c.ShouldBind(&form); err != nil {
		h.invalid(c, form.Permissions, "Enter a list of values.")
		return
	}

	req, err := h.permissions.RequestPermissions(c.Request.Context(), user.ID, form.Permissions)
	if err != nil {
		var validationErr *service.ValidationError
		var unknownErr *service.UnknownPermissionError
		switch {
		case errors.As(err, &validationErr):
			h.invalid(c, form.Permissions, validationErr.Message)
		case errors.As(err, &unknownErr):
			h.invalid(c, form.Permissions, "Select a valid choice. "+unknownErr.Codenames[0]+" is not one of the available choices.")
		default:
			handleServiceError(c, err)
		}
		return
	}

	codenames := make([]string, len(req.Permissions))
	for i, p := range req.Permissions {
		codenames[i] = p.Codename
	}
	audit.LogAction(h.db, user.ID, audit.ActionRequestPermission, "user:"+user.ID.String(), map[string]interface{}{
		"request_id":  req.ID,
		"permissions": codenames,
	})

	c.JSON(http.StatusCreated, PermissionRequestResponse{
		Message:  "Permissions granted successfully!",
		Redirect: accountURL,
		Request:  req,
	})
}

// invalid re-renders the form with the submitted selection and a field error
func (h *PermissionRequestHandler) invalid(c *gin.Context, selected []string, msg string) {
	view, err := h.formView(c, selected)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	view.Errors = map[string][]string{"permissions": {msg}}
	c.JSON(http.StatusBadRequest, view)
}

func (h *PermissionRequestHandler) formView(c *gin.Context, selected []string) (*FormView, error) {
	catalog, err := h.permissions.Catalog(c.Request.Context(), models.ResourceArticle)
	if err != nil {
		return nil, err
	}

	choices := make([]FormChoice, len(catalog))
	for i, p := range catalog {
		choices[i] = FormChoice{Value: p.Codename, Label: p.Name}
	}
	if selected == nil {
		selected = []string{}
	}

	return &FormView{
		Template: formTemplate,
		Title:    "Request Permission",
		Header:   "Request Permission",
		Legend:   "Choose the relevant permissions:",
		URL:      requestPermissionURL,
		Form:     FormBody{Choices: choices, Selected: selected},
	}, nil
}
