package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/brainwash-news/newsdesk/internal/models"
	"github.com/brainwash-news/newsdesk/internal/service"
	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields,omitempty"`
}

// MessageResponse acknowledges an action and tells the client where to go next
type MessageResponse struct {
	Message  string `json:"message"`
	Redirect string `json:"redirect,omitempty"`
}

// FormChoice is one selectable option of a form field
type FormChoice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// FormBody describes the fields, options and current values of a form
type FormBody struct {
	Fields   []string               `json:"fields,omitempty"`
	Choices  []FormChoice           `json:"choices,omitempty"`
	Selected []string               `json:"selected"`
	Values   map[string]interface{} `json:"values,omitempty"`
}

// FormView is everything a client needs to render the generic form page
type FormView struct {
	Template string              `json:"template"`
	Title    string              `json:"title"`
	Header   string              `json:"header"`
	Legend   string              `json:"legend,omitempty"`
	URL      string              `json:"url"`
	Form     FormBody            `json:"form"`
	Errors   map[string][]string `json:"errors,omitempty"`
}

const (
	formTemplate    = "form.html"
	defaultReturnTo = "/api/v1/news/general"
)

// handleServiceError maps service-layer errors to HTTP status codes.
func handleServiceError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Not found"})
		return
	}
	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		resp := ErrorResponse{Error: validationErr.Message}
		if validationErr.Field != "" {
			resp.Fields = map[string][]string{validationErr.Field: {validationErr.Message}}
		}
		c.JSON(http.StatusBadRequest, resp)
		return
	}
	var conflictErr *service.ConflictError
	if errors.As(err, &conflictErr) {
		c.JSON(http.StatusConflict, ErrorResponse{Error: conflictErr.Message})
		return
	}
	slog.Error("unhandled service error", "error", err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
}

// currentUser returns the user set by the auth middleware
func currentUser(c *gin.Context) *models.User {
	return c.MustGet("user").(*models.User)
}

func parseUintParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// safeReturnTo accepts only same-site relative paths
func safeReturnTo(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.Contains(raw, `\`) {
		return defaultReturnTo
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return defaultReturnTo
	}
	return raw
}
