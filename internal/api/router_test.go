package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/brainwash-news/newsdesk/internal/config"
	"github.com/brainwash-news/newsdesk/internal/db"
	"github.com/brainwash-news/newsdesk/internal/media"
	"github.com/brainwash-news/newsdesk/internal/models"
	"github.com/brainwash-news/newsdesk/internal/rbac"
	"github.com/brainwash-news/newsdesk/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type testEnv struct {
	db     *gorm.DB
	router *gin.Engine
}

func setupRouter(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	database, err := db.New(config.DatabaseConfig{
		Driver:   "sqlite",
		DSN:      filepath.Join(dir, "api.db"),
		LogLevel: "silent",
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.Migrate(database); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := rbac.InitEnforcer(database, slog.Default()); err != nil {
		t.Fatalf("init rbac: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := database.DB(); err == nil {
			sqlDB.Close()
		}
	})

	store, err := media.NewLocalStore(filepath.Join(dir, "media"), "/media")
	if err != nil {
		t.Fatalf("media store: %v", err)
	}

	cfg := &config.Config{
		Server: config.ServerConfig{Mode: "test", CORSOrigins: []string{"*"}},
		Auth: config.AuthConfig{
			JWTSecret:     "test-secret",
			TokenTTLHours: 1,
			LoginURL:      "/api/v1/user/login",
		},
	}
	return &testEnv{db: database, router: NewRouter(cfg, database, store)}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}, accept string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// signup registers a user through the API and returns its token and id.
func (e *testEnv) signup(t *testing.T, username string) (string, uuid.UUID) {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/user/signup", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "correct-horse",
	}, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("signup: status %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	decode(t, w, &resp)
	return resp.Token, resp.User.ID
}

func (e *testEnv) createArticle(t *testing.T, title string) models.Article {
	t.Helper()
	a := models.Article{Title: title, Body: "body", Category: models.CategoryGeneral, TimePublished: time.Now()}
	if err := e.db.Create(&a).Error; err != nil {
		t.Fatalf("create article: %v", err)
	}
	return a
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func TestRequestPermission_Unauthenticated(t *testing.T) {
	env := setupRouter(t)

	w := env.do(t, http.MethodGet, "/api/v1/user/request-permission", "", nil, "text/html,application/xhtml+xml")
	if w.Code != http.StatusFound {
		t.Fatalf("browser: expected 302, got %d", w.Code)
	}
	want := "/api/v1/user/login?next=%2Fapi%2Fv1%2Fuser%2Frequest-permission"
	if got := w.Header().Get("Location"); got != want {
		t.Errorf("Location = %q, want %q", got, want)
	}

	w = env.do(t, http.MethodPost, "/api/v1/user/request-permission", "", map[string][]string{"permissions": {"add_article"}}, "application/json")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("api: expected 401, got %d", w.Code)
	}

	var n int64
	env.db.Model(&models.PermissionRequest{}).Count(&n)
	if n != 0 {
		t.Errorf("expected no permission requests, got %d", n)
	}
}

func TestRequestPermission_Form(t *testing.T) {
	env := setupRouter(t)
	token, _ := env.signup(t, "alice")

	w := env.do(t, http.MethodGet, "/api/v1/user/request-permission", token, nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var view struct {
		Template string `json:"template"`
		Title    string `json:"title"`
		Legend   string `json:"legend"`
		URL      string `json:"url"`
		Form     struct {
			Choices []struct {
				Value string `json:"value"`
			} `json:"choices"`
			Selected []string `json:"selected"`
		} `json:"form"`
	}
	decode(t, w, &view)

	if view.Template != "form.html" || view.Title != "Request Permission" {
		t.Errorf("unexpected view header: %+v", view)
	}
	if view.Legend != "Choose the relevant permissions:" {
		t.Errorf("legend = %q", view.Legend)
	}
	if view.URL != "/api/v1/user/request-permission" {
		t.Errorf("url = %q", view.URL)
	}
	if len(view.Form.Choices) != 5 {
		t.Fatalf("expected 5 article choices, got %d", len(view.Form.Choices))
	}
	if view.Form.Choices[0].Value != models.PermAddArticle {
		t.Errorf("first choice = %q, want %q", view.Form.Choices[0].Value, models.PermAddArticle)
	}
	if view.Form.Selected == nil || len(view.Form.Selected) != 0 {
		t.Errorf("expected empty selection, got %v", view.Form.Selected)
	}
}

func TestRequestPermission_Grants(t *testing.T) {
	env := setupRouter(t)
	token, userID := env.signup(t, "bob")

	w := env.do(t, http.MethodPost, "/api/v1/user/request-permission", token,
		map[string][]string{"permissions": {models.PermAddArticle, models.PermEditTitle}}, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Message  string `json:"message"`
		Redirect string `json:"redirect"`
	}
	decode(t, w, &resp)
	if resp.Message != "Permissions granted successfully!" {
		t.Errorf("message = %q", resp.Message)
	}
	if resp.Redirect != "/api/v1/user/account" {
		t.Errorf("redirect = %q", resp.Redirect)
	}

	perms := service.NewPermissionService(env.db)
	for _, codename := range []string{models.PermAddArticle, models.PermEditTitle} {
		ok, err := perms.HasCapability(context.Background(), userID, codename)
		if err != nil {
			t.Fatalf("HasCapability: %v", err)
		}
		if !ok {
			t.Errorf("expected %s to be granted", codename)
		}
	}

	var audits int64
	env.db.Model(&models.AuditLog{}).Where("user_id = ? AND action = ?", userID, "request_permission").Count(&audits)
	if audits != 1 {
		t.Errorf("expected 1 audit entry, got %d", audits)
	}
}

func TestRequestPermission_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		selection []string
	}{
		{"empty selection", []string{}},
		{"unknown codename", []string{models.PermAddArticle, "publish_everything"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupRouter(t)
			token, _ := env.signup(t, "carol")

			w := env.do(t, http.MethodPost, "/api/v1/user/request-permission", token,
				map[string][]string{"permissions": tt.selection}, "")
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
			}

			var view struct {
				Title string `json:"title"`
				Form  struct {
					Selected []string `json:"selected"`
				} `json:"form"`
				Errors map[string][]string `json:"errors"`
			}
			decode(t, w, &view)
			if view.Title != "Request Permission" {
				t.Errorf("expected the form to be re-rendered, got title %q", view.Title)
			}
			if len(view.Errors["permissions"]) == 0 {
				t.Errorf("expected a permissions error, got %v", view.Errors)
			}
			if len(view.Form.Selected) != len(tt.selection) {
				t.Errorf("selection not preserved: %v", view.Form.Selected)
			}

			var requests, grants int64
			env.db.Model(&models.PermissionRequest{}).Count(&requests)
			env.db.Table("user_permissions").Count(&grants)
			if requests != 0 || grants != 0 {
				t.Errorf("expected no writes, got %d requests and %d grants", requests, grants)
			}
		})
	}
}

func TestUpdateArticle_TitleNeedsSeniorEditor(t *testing.T) {
	env := setupRouter(t)
	token, userID := env.signup(t, "dave")
	article := env.createArticle(t, "Original")

	// Without change_article the route is closed
	w := env.do(t, http.MethodPut, "/api/v1/articles/1", token, map[string]string{"body": "x"}, "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 before grant, got %d", w.Code)
	}

	w = env.do(t, http.MethodPost, "/api/v1/user/request-permission", token,
		map[string][]string{"permissions": {models.PermChangeArticle, models.PermEditTitle}}, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("grant: %d %s", w.Code, w.Body.String())
	}

	// edit_title alone does not open the title field
	w = env.do(t, http.MethodPut, "/api/v1/articles/1", token, map[string]string{"title": "Changed"}, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for title edit, got %d: %s", w.Code, w.Body.String())
	}
	var errResp struct {
		Fields map[string][]string `json:"fields"`
	}
	decode(t, w, &errResp)
	if len(errResp.Fields["title"]) == 0 {
		t.Errorf("expected a title field error, got %v", errResp.Fields)
	}

	w = env.do(t, http.MethodPut, "/api/v1/articles/1", token, map[string]string{"body": "Rewritten"}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for body edit, got %d: %s", w.Code, w.Body.String())
	}
	var updated struct {
		Article struct {
			Title string `json:"title"`
			Body  string `json:"body"`
		} `json:"article"`
		Redirect string `json:"redirect"`
	}
	decode(t, w, &updated)
	if updated.Article.Title != article.Title || updated.Article.Body != "Rewritten" {
		t.Errorf("unexpected article after update: %+v", updated.Article)
	}
	if updated.Redirect != "/api/v1/news/general" {
		t.Errorf("default redirect = %q", updated.Redirect)
	}

	groups := service.NewGroupService(env.db)
	if err := groups.AddMember(context.Background(), models.GroupSeniorEditors, userID); err != nil {
		t.Fatalf("add member: %v", err)
	}

	w = env.do(t, http.MethodPut, "/api/v1/articles/1?return_to=/api/v1/news/world", token, map[string]string{"title": "Changed"}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for senior title edit, got %d: %s", w.Code, w.Body.String())
	}
	decode(t, w, &updated)
	if updated.Article.Title != "Changed" {
		t.Errorf("title = %q, want Changed", updated.Article.Title)
	}
	if updated.Redirect != "/api/v1/news/world" {
		t.Errorf("redirect = %q", updated.Redirect)
	}
}

func TestEditForm_FieldsFollowMembership(t *testing.T) {
	env := setupRouter(t)
	token, userID := env.signup(t, "erin")
	env.createArticle(t, "Headline")

	perms := service.NewPermissionService(env.db)
	if _, err := perms.RequestPermissions(context.Background(), userID, []string{models.PermChangeArticle}); err != nil {
		t.Fatalf("grant: %v", err)
	}

	fields := func() []string {
		w := env.do(t, http.MethodGet, "/api/v1/articles/1/edit?return_to=//evil.example", token, nil, "")
		if w.Code != http.StatusOK {
			t.Fatalf("edit form: %d %s", w.Code, w.Body.String())
		}
		var view struct {
			URL  string `json:"url"`
			Form struct {
				Fields []string `json:"fields"`
			} `json:"form"`
		}
		decode(t, w, &view)
		if strings.Contains(view.URL, "evil.example") {
			t.Errorf("unsafe return_to leaked into %q", view.URL)
		}
		return view.Form.Fields
	}

	if got := fields(); len(got) != 4 || got[0] != "body" {
		t.Errorf("regular editor fields = %v", got)
	}

	if err := service.NewGroupService(env.db).AddMember(context.Background(), models.GroupSeniorEditors, userID); err != nil {
		t.Fatalf("add member: %v", err)
	}
	if got := fields(); len(got) != 5 || got[0] != "title" {
		t.Errorf("senior editor fields = %v", got)
	}
}

func TestCreateArticle_RequiresCapability(t *testing.T) {
	env := setupRouter(t)
	token, userID := env.signup(t, "frank")
	payload := map[string]string{"title": "Fresh", "body": "Words", "category": "science"}

	w := env.do(t, http.MethodPost, "/api/v1/articles", token, payload, "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}

	perms := service.NewPermissionService(env.db)
	if _, err := perms.RequestPermissions(context.Background(), userID, []string{models.PermAddArticle}); err != nil {
		t.Fatalf("grant: %v", err)
	}

	w = env.do(t, http.MethodPost, "/api/v1/articles", token, payload, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/api/v1/news/science", token, nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("list: %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Fresh") {
		t.Errorf("new article missing from category list: %s", w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/api/v1/news/astrology", token, nil, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown category: expected 404, got %d", w.Code)
	}
}

func TestNewsPagesRequireLogin(t *testing.T) {
	env := setupRouter(t)
	token, _ := env.signup(t, "gina")
	env.createArticle(t, "Public detail")

	for _, path := range []string{"/api/v1/news", "/api/v1/news/general"} {
		if w := env.do(t, http.MethodGet, path, "", nil, "application/json"); w.Code != http.StatusUnauthorized {
			t.Errorf("%s anonymous: expected 401, got %d", path, w.Code)
		}
		if w := env.do(t, http.MethodGet, path, token, nil, ""); w.Code != http.StatusOK {
			t.Errorf("%s signed in: expected 200, got %d", path, w.Code)
		}
	}

	// Article detail and the JSON list stay public
	for _, path := range []string{"/api/v1/articles", "/api/v1/articles/1"} {
		if w := env.do(t, http.MethodGet, path, "", nil, ""); w.Code != http.StatusOK {
			t.Errorf("%s anonymous: expected 200, got %d", path, w.Code)
		}
	}
}

func TestHealth(t *testing.T) {
	env := setupRouter(t)
	w := env.do(t, http.MethodGet, "/api/v1/health", "", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
