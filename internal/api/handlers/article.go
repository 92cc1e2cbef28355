package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/brainwash-news/newsdesk/internal/audit"
	"github.com/brainwash-news/newsdesk/internal/media"
	"github.com/brainwash-news/newsdesk/internal/models"
	"github.com/brainwash-news/newsdesk/internal/service"
	"github.com/brainwash-news/newsdesk/internal/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const homeLimit = 5

// ArticleHandler serves news pages and article editing
type ArticleHandler struct {
	db       *gorm.DB
	articles *service.ArticleService
}

func NewArticleHandler(db *gorm.DB, articles *service.ArticleService) *ArticleHandler {
	return &ArticleHandler{db: db, articles: articles}
}

// ArticleResponse is an article as shown to readers
type ArticleResponse struct {
	models.Article
	CategoryLabel string `json:"category_label"`
	ImageURL      string `json:"image_url,omitempty"`
	EditURL       string `json:"edit_url,omitempty"`
}

// ArticleUpdateResponse confirms an edit and carries the page to return to
type ArticleUpdateResponse struct {
	Article  ArticleResponse `json:"article"`
	Redirect string          `json:"redirect"`
}

type listQuery struct {
	Category string `form:"category" binding:"omitempty,category"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

func (h *ArticleHandler) render(a models.Article, withEdit bool) ArticleResponse {
	resp := ArticleResponse{
		Article:       a,
		CategoryLabel: a.Category.Label(),
		ImageURL:      h.articles.ImageURL(a.Image),
	}
	if withEdit {
		self := fmt.Sprintf("/api/v1/articles/%d", a.ID)
		resp.EditURL = self + "/edit?" + url.Values{"return_to": {self}}.Encode()
	}
	return resp
}

func (h *ArticleHandler) renderAll(articles []models.Article) []ArticleResponse {
	out := make([]ArticleResponse, len(articles))
	for i, a := range articles {
		out[i] = h.render(a, false)
	}
	return out
}

// Home godoc
// @Summary Latest news
// @Description The five most recently published articles
// @Tags news
// @Security BearerAuth
// @Produce json
// @Success 200 {array} ArticleResponse
// @Failure 401 {object} ErrorResponse
// @Router /news [get]
func (h *ArticleHandler) Home(c *gin.Context) {
	articles, err := h.articles.Latest(c.Request.Context(), homeLimit)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.renderAll(articles))
}

// ListByCategory godoc
// @Summary News of one category
// @Tags news
// @Security BearerAuth
// @Produce json
// @Param category path string true "Category"
// @Success 200 {array} ArticleResponse
// @Failure 404 {object} ErrorResponse
// @Router /news/{category} [get]
func (h *ArticleHandler) ListByCategory(c *gin.Context) {
	articles, err := h.articles.ListByCategory(c.Request.Context(), models.Category(c.Param("category")), 0)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.renderAll(articles))
}

// ListArticles godoc
// @Summary List articles
// @Tags articles
// @Produce json
// @Param category query string false "Filter by category"
// @Param limit query int false "Maximum number of articles"
// @Success 200 {array} ArticleResponse
// @Failure 400 {object} ErrorResponse
// @Router /articles [get]
func (h *ArticleHandler) ListArticles(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	var (
		articles []models.Article
		err      error
	)
	if q.Category != "" {
		articles, err = h.articles.ListByCategory(c.Request.Context(), models.Category(q.Category), q.Limit)
	} else {
		articles, err = h.articles.Latest(c.Request.Context(), q.Limit)
	}
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.renderAll(articles))
}

// GetArticle godoc
// @Summary Article detail
// @Tags articles
// @Produce json
// @Param id path int true "Article ID"
// @Success 200 {object} ArticleResponse
// @Failure 404 {object} ErrorResponse
// @Router /articles/{id} [get]
func (h *ArticleHandler) GetArticle(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	article, err := h.articles.Get(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.render(*article, true))
}

// CreateArticle godoc
// @Summary Publish an article
// @Description Requires the add_article capability. Accepts JSON or multipart with an optional image.
// @Tags articles
// @Security BearerAuth
// @Accept json,mpfd
// @Produce json
// @Param article body service.ArticleInput true "Article"
// @Success 201 {object} ArticleResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /articles [post]
func (h *ArticleHandler) CreateArticle(c *gin.Context) {
	user := currentUser(c)

	var in service.ArticleInput
	if err := c.ShouldBind(&in); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	image, closeImage, err := formImage(c)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	defer closeImage()

	article, err := h.articles.Create(c.Request.Context(), in, image)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	audit.LogAction(h.db, user.ID, audit.ActionCreateArticle, fmt.Sprintf("article:%d", article.ID), map[string]interface{}{
		"title": article.Title,
	})
	c.JSON(http.StatusCreated, h.render(*article, true))
}

// EditForm godoc
// @Summary Article edit form
// @Description The fields the caller may edit; only senior editors get the title
// @Tags articles
// @Security BearerAuth
// @Produce json
// @Param id path int true "Article ID"
// @Param return_to query string false "Relative path to return to after saving"
// @Success 200 {object} FormView
// @Failure 404 {object} ErrorResponse
// @Router /articles/{id}/edit [get]
func (h *ArticleHandler) EditForm(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	user := currentUser(c)

	article, err := h.articles.Get(ctx, id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	fields, err := h.articles.EditableFieldsFor(ctx, user.ID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	values := map[string]interface{}{}
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
		switch f {
		case service.FieldTitle:
			values["title"] = article.Title
		case service.FieldBody:
			values["body"] = article.Body
		case service.FieldImage:
			values["image"] = h.articles.ImageURL(article.Image)
		case service.FieldWriter:
			values["writer"] = article.Writer
		case service.FieldCategory:
			values["category"] = article.Category
		}
	}

	choices := make([]FormChoice, len(models.Categories))
	for i, cat := range models.Categories {
		choices[i] = FormChoice{Value: string(cat), Label: cat.Label()}
	}

	returnTo := safeReturnTo(c.Query("return_to"))
	c.JSON(http.StatusOK, FormView{
		Template: formTemplate,
		Title:    "Edit Article",
		Header:   "Edit Article",
		URL:      fmt.Sprintf("/api/v1/articles/%d?", id) + url.Values{"return_to": {returnTo}}.Encode(),
		Form: FormBody{
			Fields:   names,
			Choices:  choices,
			Selected: []string{string(article.Category)},
			Values:   values,
		},
	})
}

// UpdateArticle godoc
// @Summary Edit an article
// @Description Requires change_article. Submitting a field outside the caller's editable set is rejected.
// @Tags articles
// @Security BearerAuth
// @Accept json,mpfd
// @Produce json
// @Param id path int true "Article ID"
// @Param return_to query string false "Relative path to return to after saving"
// @Success 200 {object} ArticleUpdateResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /articles/{id} [put]
func (h *ArticleHandler) UpdateArticle(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	user := currentUser(c)

	patch, closeImage, err := bindPatch(c)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	defer closeImage()

	article, err := h.articles.Update(c.Request.Context(), id, user.ID, patch)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	submitted := make([]string, 0, 5)
	for _, f := range patch.Submitted() {
		submitted = append(submitted, string(f))
	}
	audit.LogAction(h.db, user.ID, audit.ActionUpdateArticle, fmt.Sprintf("article:%d", article.ID), map[string]interface{}{
		"fields": submitted,
	})

	returnTo := c.Query("return_to")
	if returnTo == "" {
		returnTo = c.PostForm("return_to")
	}
	c.JSON(http.StatusOK, ArticleUpdateResponse{
		Article:  h.render(*article, true),
		Redirect: safeReturnTo(returnTo),
	})
}

// DeleteArticle godoc
// @Summary Delete an article
// @Tags articles
// @Security BearerAuth
// @Param id path int true "Article ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} ErrorResponse
// @Router /articles/{id} [delete]
func (h *ArticleHandler) DeleteArticle(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	user := currentUser(c)

	article, err := h.articles.Delete(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	audit.LogAction(h.db, user.ID, audit.ActionDeleteArticle, fmt.Sprintf("article:%d", id), map[string]interface{}{
		"title": article.Title,
	})
	c.JSON(http.StatusOK, MessageResponse{
		Message:  fmt.Sprintf("Article %q deleted", article.Title),
		Redirect: "/api/v1/news/" + string(article.Category),
	})
}

// bindPatch reads only the fields actually present in the request
func bindPatch(c *gin.Context) (service.ArticlePatch, func(), error) {
	var patch service.ArticlePatch
	noop := func() {}

	if strings.HasPrefix(c.ContentType(), "application/json") {
		if err := c.ShouldBindJSON(&patch); err != nil {
			return patch, noop, &service.ValidationError{Message: "invalid request body"}
		}
		return patch, noop, nil
	}

	if v, ok := c.GetPostForm("title"); ok {
		patch.Title = &v
	}
	if v, ok := c.GetPostForm("body"); ok {
		patch.Body = &v
	}
	if v, ok := c.GetPostForm("writer"); ok {
		patch.Writer = &v
	}
	if v, ok := c.GetPostForm("category"); ok {
		cat := models.Category(v)
		patch.Category = &cat
	}

	image, closeImage, err := formImage(c)
	if err != nil {
		return patch, noop, err
	}
	patch.Image = image
	return patch, closeImage, nil
}

// formImage opens the optional multipart "image" file
func formImage(c *gin.Context) (*media.Upload, func(), error) {
	noop := func() {}
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return nil, noop, nil
	}

	fh, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, noop, nil
		}
		return nil, noop, &service.ValidationError{Field: "image", Message: "Upload a valid image."}
	}
	if fh.Size > media.MaxImageBytes {
		return nil, noop, &service.ValidationError{Field: "image", Message: "Image is too large. The limit is " + utils.FormatBytes(media.MaxImageBytes) + "."}
	}

	f, err := fh.Open()
	if err != nil {
		return nil, noop, fmt.Errorf("open upload: %w", err)
	}

	return &media.Upload{Filename: fh.Filename, ContentType: fh.Header.Get("Content-Type"), Body: f}, func() { f.Close() }, nil
}
