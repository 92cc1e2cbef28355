package handlers

import (
	"net/http"

	"github.com/brainwash-news/newsdesk/internal/service"
	"github.com/gin-gonic/gin"
)

// ContactHandler serves the public contact form and its admin views
type ContactHandler struct {
	messages *service.ContactService
}

func NewContactHandler(messages *service.ContactService) *ContactHandler {
	return &ContactHandler{messages: messages}
}

// SubmitContact godoc
// @Summary Leave a message
// @Tags contact
// @Accept json
// @Produce json
// @Param message body service.ContactInput true "Message"
// @Success 201 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Router /contact [post]
func (h *ContactHandler) SubmitContact(c *gin.Context) {
	var in service.ContactInput
	if err := c.ShouldBind(&in); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if _, err := h.messages.Create(c.Request.Context(), in); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, MessageResponse{Message: "Thanks for getting in touch!", Redirect: "/api/v1/news"})
}

// ListMessages godoc
// @Summary List contact messages (admin only)
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.ContactMessage
// @Router /admin/messages [get]
func (h *ContactHandler) ListMessages(c *gin.Context) {
	msgs, err := h.messages.List(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// GetMessage godoc
// @Summary Get a contact message (admin only)
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param id path int true "Message ID"
// @Success 200 {object} models.ContactMessage
// @Failure 404 {object} ErrorResponse
// @Router /admin/messages/{id} [get]
func (h *ContactHandler) GetMessage(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	msg, err := h.messages.Get(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

// UpdateMessage godoc
// @Summary Update a contact message (admin only)
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Message ID"
// @Param message body service.ContactInput true "Message"
// @Success 200 {object} models.ContactMessage
// @Router /admin/messages/{id} [put]
func (h *ContactHandler) UpdateMessage(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var in service.ContactInput
	if err := c.ShouldBind(&in); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	msg, err := h.messages.Update(c.Request.Context(), id, in)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

// DeleteMessage godoc
// @Summary Delete a contact message (admin only)
// @Tags admin
// @Security BearerAuth
// @Param id path int true "Message ID"
// @Success 204
// @Router /admin/messages/{id} [delete]
func (h *ContactHandler) DeleteMessage(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.messages.Delete(c.Request.Context(), id); err != nil {
		handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
