package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/cutdeck/cutdeck-agent/internal/library"
)

// AssetResolver looks up a stored asset by id.
type AssetResolver interface {
	GetAsset(ctx context.Context, id string) (*library.Asset, error)
}

// Server streams stored media to the browser's video and audio elements,
// honoring Range requests so the elements can seek.
type Server struct {
	assets AssetResolver
	logger *slog.Logger
}

func NewServer(assets AssetResolver, logger *slog.Logger) *Server {
	return &Server{assets: assets, logger: logger}
}

// ServeAsset resolves an asset id to its local file and streams it.
func (s *Server) ServeAsset(w http.ResponseWriter, r *http.Request, assetID string) error {
	asset, err := s.assets.GetAsset(r.Context(), assetID)
	if err != nil {
		return fmt.Errorf("failed to look up asset: %w", err)
	}
	if asset == nil || asset.LocalPath == "" {
		http.Error(w, "asset not found", http.StatusNotFound)
		return nil
	}
	return s.ServeFile(w, r, asset.LocalPath)
}

// ServeFile streams a local media file, serving partial content when the
// request carries a valid Range header.
func (s *Server) ServeFile(w http.ResponseWriter, r *http.Request, filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "file not found", http.StatusNotFound)
			return nil
		}
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	size := stat.Size()
	contentType := mime.TypeByExtension(filepath.Ext(filePath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", contentType)

	rangeHeader := r.Header.Get("Range")
	parsedRange, err := ParseRange(rangeHeader, size)

	if err == ErrUnsatisfiable {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		http.Error(w, "Range Not Satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return nil
	}

	// A malformed Range header degrades to a full response.
	if err != nil && err != ErrInvalidRange {
		return err
	}

	if parsedRange == nil {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", size))
		w.WriteHeader(http.StatusOK)
		io.Copy(w, file)
		return nil
	}

	w.Header().Set("Content-Length", fmt.Sprintf("%d", parsedRange.ContentLength()))
	w.Header().Set("Content-Range", parsedRange.ContentRange(size))
	w.WriteHeader(http.StatusPartialContent)

	if _, err := file.Seek(parsedRange.Start, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}

	io.CopyN(w, file, parsedRange.ContentLength())
	return nil
}
