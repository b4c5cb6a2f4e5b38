package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/cutdeck/cutdeck-agent/internal/library"
)

type fakeResolver struct {
	assets map[string]*library.Asset
}

func (f *fakeResolver) GetAsset(_ context.Context, id string) (*library.Asset, error) {
	return f.assets[id], nil
}

func writeTestFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestServeFile_Full(t *testing.T) {
	path := writeTestFile(t, "0123456789")
	srv := NewServer(&fakeResolver{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/media/x", nil)
	rec := httptest.NewRecorder()

	if err := srv.ServeFile(rec, req, path); err != nil {
		t.Fatalf("ServeFile() error = %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rec.Body.String(); got != "0123456789" {
		t.Errorf("body = %q", got)
	}
	if got := rec.Header().Get("Accept-Ranges"); got != "bytes" {
		t.Errorf("Accept-Ranges = %q, want bytes", got)
	}
	if got := rec.Header().Get("Content-Type"); got == "" {
		t.Error("Content-Type not set")
	}
}

func TestServeFile_Partial(t *testing.T) {
	path := writeTestFile(t, "0123456789")
	srv := NewServer(&fakeResolver{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/media/x", nil)
	req.Header.Set("Range", "bytes=2-5")
	rec := httptest.NewRecorder()

	if err := srv.ServeFile(rec, req, path); err != nil {
		t.Fatalf("ServeFile() error = %v", err)
	}

	if rec.Code != http.StatusPartialContent {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusPartialContent)
	}
	if got := rec.Body.String(); got != "2345" {
		t.Errorf("body = %q, want 2345", got)
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes 2-5/10" {
		t.Errorf("Content-Range = %q, want bytes 2-5/10", got)
	}
	if got := rec.Header().Get("Content-Length"); got != "4" {
		t.Errorf("Content-Length = %q, want 4", got)
	}
}

func TestServeFile_Unsatisfiable(t *testing.T) {
	path := writeTestFile(t, "0123456789")
	srv := NewServer(&fakeResolver{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/media/x", nil)
	req.Header.Set("Range", "bytes=100-200")
	rec := httptest.NewRecorder()

	if err := srv.ServeFile(rec, req, path); err != nil {
		t.Fatalf("ServeFile() error = %v", err)
	}

	if rec.Code != http.StatusRequestedRangeNotSatisfiable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusRequestedRangeNotSatisfiable)
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes */10" {
		t.Errorf("Content-Range = %q, want bytes */10", got)
	}
}

func TestServeFile_MalformedRangeServesFull(t *testing.T) {
	path := writeTestFile(t, "0123456789")
	srv := NewServer(&fakeResolver{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/media/x", nil)
	req.Header.Set("Range", "chars=0-5")
	rec := httptest.NewRecorder()

	if err := srv.ServeFile(rec, req, path); err != nil {
		t.Fatalf("ServeFile() error = %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rec.Body.String(); got != "0123456789" {
		t.Errorf("body = %q", got)
	}
}

func TestServeAsset(t *testing.T) {
	path := writeTestFile(t, "media bytes")
	resolver := &fakeResolver{assets: map[string]*library.Asset{
		"a1": {ID: "a1", LocalPath: path},
		"a2": {ID: "a2"},
	}}
	srv := NewServer(resolver, nil)

	t.Run("known asset", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/media/a1", nil)
		rec := httptest.NewRecorder()
		if err := srv.ServeAsset(rec, req, "a1"); err != nil {
			t.Fatalf("ServeAsset() error = %v", err)
		}
		if rec.Body.String() != "media bytes" {
			t.Errorf("body = %q", rec.Body.String())
		}
	})

	t.Run("unknown asset", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/media/nope", nil)
		rec := httptest.NewRecorder()
		if err := srv.ServeAsset(rec, req, "nope"); err != nil {
			t.Fatalf("ServeAsset() error = %v", err)
		}
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
		}
	})

	t.Run("asset without local copy", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/media/a2", nil)
		rec := httptest.NewRecorder()
		if err := srv.ServeAsset(rec, req, "a2"); err != nil {
			t.Fatalf("ServeAsset() error = %v", err)
		}
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
		}
	})
}
