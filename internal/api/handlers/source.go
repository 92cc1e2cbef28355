package handlers

import (
	"net/http"

	"github.com/brainwash-news/newsdesk/internal/service"
	"github.com/gin-gonic/gin"
)

// SourceHandler manages news sources
type SourceHandler struct {
	sources *service.SourceService
}

func NewSourceHandler(sources *service.SourceService) *SourceHandler {
	return &SourceHandler{sources: sources}
}

// ListSources godoc
// @Summary List news sources
// @Tags sources
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.Source
// @Router /sources [get]
func (h *SourceHandler) ListSources(c *gin.Context) {
	sources, err := h.sources.List(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, sources)
}

// GetSource godoc
// @Summary Get a news source
// @Tags sources
// @Security BearerAuth
// @Produce json
// @Param id path int true "Source ID"
// @Success 200 {object} models.Source
// @Failure 404 {object} ErrorResponse
// @Router /sources/{id} [get]
func (h *SourceHandler) GetSource(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	src, err := h.sources.Get(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, src)
}

// CreateSource godoc
// @Summary Add a news source
// @Tags sources
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param source body service.SourceInput true "Source"
// @Success 201 {object} models.Source
// @Failure 400 {object} ErrorResponse
// @Router /sources [post]
func (h *SourceHandler) CreateSource(c *gin.Context) {
	var in service.SourceInput
	if err := c.ShouldBind(&in); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	src, err := h.sources.Create(c.Request.Context(), in)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, src)
}

// UpdateSource godoc
// @Summary Update a news source
// @Tags sources
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Source ID"
// @Param source body service.SourceInput true "Source"
// @Success 200 {object} models.Source
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /sources/{id} [put]
func (h *SourceHandler) UpdateSource(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var in service.SourceInput
	if err := c.ShouldBind(&in); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	src, err := h.sources.Update(c.Request.Context(), id, in)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, src)
}

// DeleteSource godoc
// @Summary Delete a news source and its articles
// @Tags sources
// @Security BearerAuth
// @Param id path int true "Source ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /sources/{id} [delete]
func (h *SourceHandler) DeleteSource(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.sources.Delete(c.Request.Context(), id); err != nil {
		handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
