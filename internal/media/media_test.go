package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/brainwash-news/newsdesk/internal/config"
)

// pngHeader is enough for http.DetectContentType to report image/png
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestLocalStore_SaveURLDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "/media/")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	key, err := store.Save(context.Background(), Upload{
		Filename:    "cover.PNG",
		ContentType: "image/png",
		Body:        bytes.NewReader(pngHeader),
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasPrefix(key, "images/") || !strings.HasSuffix(key, ".png") {
		t.Errorf("unexpected key %q", key)
	}

	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(key)))
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if !bytes.Equal(data, pngHeader) {
		t.Error("stored bytes differ from upload")
	}

	if got := store.URL(key); got != "/media/"+key {
		t.Errorf("URL() = %q", got)
	}
	if got := store.URL(""); got != "" {
		t.Errorf("URL(\"\") = %q, want empty", got)
	}

	if err := store.Delete(context.Background(), key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(context.Background(), key); err != nil {
		t.Errorf("deleting a missing key should not fail: %v", err)
	}
}

func TestLocalStore_RejectsNonImage(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "/media")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	_, err = store.Save(context.Background(), Upload{
		Filename:    "notes.txt",
		ContentType: "text/plain",
		Body:        strings.NewReader("hello"),
	})
	if !errors.Is(err, ErrNotImage) {
		t.Fatalf("expected ErrNotImage, got %v", err)
	}
}

func TestLocalStore_TypeComesFromContent(t *testing.T) {
	tests := []struct {
		name     string
		upload   Upload
		wantErr  error
		wantExt  string
	}{
		{
			name:    "html claiming to be png",
			upload:  Upload{Filename: "evil.html", ContentType: "image/png", Body: strings.NewReader("<html><script>alert(1)</script></html>")},
			wantErr: ErrNotImage,
		},
		{
			name:    "svg with script",
			upload:  Upload{Filename: "logo.svg", ContentType: "image/svg+xml", Body: strings.NewReader(`<svg xmlns="http://www.w3.org/2000/svg"><script>alert(1)</script></svg>`)},
			wantErr: ErrNotImage,
		},
		{
			name:    "png with misleading name and type",
			upload:  Upload{Filename: "page.html", ContentType: "text/html", Body: bytes.NewReader(pngHeader)},
			wantExt: ".png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			store, err := NewLocalStore(dir, "/media")
			if err != nil {
				t.Fatalf("new store: %v", err)
			}

			key, err := store.Save(context.Background(), tt.upload)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got key=%q err=%v", tt.wantErr, key, err)
				}
				entries, _ := os.ReadDir(filepath.Join(dir, "images"))
				if len(entries) != 0 {
					t.Errorf("rejected upload left %d files behind", len(entries))
				}
				return
			}
			if err != nil {
				t.Fatalf("save: %v", err)
			}
			if !strings.HasSuffix(key, tt.wantExt) {
				t.Errorf("key %q should end in %s", key, tt.wantExt)
			}
			data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(key)))
			if err != nil {
				t.Fatalf("read stored file: %v", err)
			}
			if !bytes.Equal(data, pngHeader) {
				t.Error("stored bytes differ from upload")
			}
		})
	}
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(pngHeader)
	}))
	defer srv.Close()

	up, err := Fetch(context.Background(), srv.Client(), srv.URL+"/img/generated.png")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if up.ContentType != "image/png" {
		t.Errorf("expected sniffed image/png, got %q", up.ContentType)
	}
	if up.Filename != "generated.png" {
		t.Errorf("expected filename generated.png, got %q", up.Filename)
	}
	body, _ := io.ReadAll(up.Body)
	if !bytes.Equal(body, pngHeader) {
		t.Error("unexpected body")
	}

	if _, err := Fetch(context.Background(), srv.Client(), srv.URL+"/missing.png"); err == nil {
		t.Error("expected error for 404")
	}
}

func TestNew_Drivers(t *testing.T) {
	ctx := context.Background()

	store, err := New(ctx, config.MediaConfig{Driver: "local", Dir: t.TempDir(), BaseURL: "/media"})
	if err != nil {
		t.Fatalf("local: %v", err)
	}
	if _, ok := store.(*LocalStore); !ok {
		t.Errorf("expected *LocalStore, got %T", store)
	}

	if _, err := New(ctx, config.MediaConfig{Driver: "ftp"}); err == nil {
		t.Error("expected error for unsupported driver")
	}

	if _, err := New(ctx, config.MediaConfig{Driver: "s3", S3Bucket: "news"}); err == nil {
		t.Error("expected error for missing s3 credentials")
	}
}

func TestS3Store_URL(t *testing.T) {
	store, err := NewS3Store(context.Background(), config.MediaConfig{
		S3Bucket:    "news",
		S3Region:    "eu-west-1",
		S3AccessKey: "key",
		S3SecretKey: "secret",
	})
	if err != nil {
		t.Fatalf("new s3 store: %v", err)
	}
	if got := store.URL("images/a.png"); got != "https://news.s3.eu-west-1.amazonaws.com/images/a.png" {
		t.Errorf("unexpected url %q", got)
	}

	store.endpoint = "http://minio:9000"
	if got := store.URL("images/a.png"); got != "http://minio:9000/news/images/a.png" {
		t.Errorf("unexpected custom endpoint url %q", got)
	}
}
