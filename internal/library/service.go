package library

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cutdeck/cutdeck-agent/internal/timeutil"
)

type LibraryService interface {
	AcceptItem(ctx context.Context, raw RawItem) (*Asset, error)
	SaveUpload(ctx context.Context, name, contentType string, size int64, body io.Reader) (*Asset, error)
	GetAsset(ctx context.Context, id string) (*Asset, error)
	ListAssets(ctx context.Context) ([]*Asset, error)
	RemoveAsset(ctx context.Context, id string) error
	Fetch(ctx context.Context, sourceURL string) (string, error)
}

type Service struct {
	repo     Repository
	mediaDir string
	maxBytes int64
	client   *http.Client
	logger   *slog.Logger
}

func NewService(repo Repository, mediaDir string, maxBytes int64, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		mediaDir: mediaDir,
		maxBytes: maxBytes,
		client:   &http.Client{Timeout: 5 * time.Minute},
		logger:   logger,
	}
}

// AcceptItem normalizes a raw provider item and records it as an asset.
// Re-accepting a URL the library already knows returns the existing asset.
func (s *Service) AcceptItem(ctx context.Context, raw RawItem) (*Asset, error) {
	item, err := Normalize(raw)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.GetAssetByURL(ctx, item.URL)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	asset := &Asset{
		ID:        timeutil.NewID(),
		Type:      item.Type,
		URL:       item.URL,
		Name:      baseName(item.URL),
		Prompt:    item.Prompt,
		CreatedAt: time.Now(),
	}
	if err := s.repo.CreateAsset(ctx, asset); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("history item accepted", "asset_id", asset.ID, "type", asset.Type)
	}
	return asset, nil
}

// SaveUpload validates and stores a local upload under the media directory.
func (s *Service) SaveUpload(ctx context.Context, name, contentType string, size int64, body io.Reader) (*Asset, error) {
	if err := ValidateUpload(contentType, size, s.maxBytes); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(s.mediaDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media dir: %w", err)
	}

	id := timeutil.NewID()
	ext := filepath.Ext(name)
	localPath := filepath.Join(s.mediaDir, id+ext)

	f, err := os.Create(localPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create media file: %w", err)
	}
	defer f.Close()

	written, err := io.Copy(f, io.LimitReader(body, s.maxBytes+1))
	if err != nil {
		os.Remove(localPath)
		return nil, fmt.Errorf("failed to write upload: %w", err)
	}
	if written > s.maxBytes {
		os.Remove(localPath)
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, written, s.maxBytes)
	}

	assetType := string(timelineTrackForMIME(contentType))
	asset := &Asset{
		ID:        id,
		Type:      assetType,
		URL:       "asset://" + id,
		LocalPath: localPath,
		Name:      name,
		Size:      written,
		CreatedAt: time.Now(),
	}
	if err := s.repo.CreateAsset(ctx, asset); err != nil {
		os.Remove(localPath)
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("upload stored", "asset_id", id, "size", written, "path", localPath)
	}
	return asset, nil
}

func (s *Service) GetAsset(ctx context.Context, id string) (*Asset, error) {
	return s.repo.GetAsset(ctx, id)
}

func (s *Service) ListAssets(ctx context.Context) ([]*Asset, error) {
	return s.repo.ListAssets(ctx)
}

// RemoveAsset deletes the asset record and its local file, if any.
func (s *Service) RemoveAsset(ctx context.Context, id string) error {
	asset, err := s.repo.GetAsset(ctx, id)
	if err != nil {
		return err
	}
	if asset == nil {
		return ErrAssetNotFound
	}

	if asset.LocalPath != "" {
		if err := os.Remove(asset.LocalPath); err != nil && !os.IsNotExist(err) {
			if s.logger != nil {
				s.logger.Warn("failed to remove media file", "asset_id", id, "error", err)
			}
		}
	}
	return s.repo.DeleteAsset(ctx, id)
}

// Fetch resolves a clip source URL to a local file path, downloading remote
// sources into the media directory on first use. It implements the export
// pipeline's source fetcher.
func (s *Service) Fetch(ctx context.Context, sourceURL string) (string, error) {
	if asset, err := s.repo.GetAssetByURL(ctx, sourceURL); err == nil && asset != nil && asset.LocalPath != "" {
		return asset.LocalPath, nil
	}

	u, err := url.Parse(sourceURL)
	if err != nil {
		return "", fmt.Errorf("invalid source url: %w", err)
	}

	switch u.Scheme {
	case "file":
		return u.Path, nil
	case "http", "https":
		return s.download(ctx, sourceURL)
	case "asset":
		asset, err := s.repo.GetAsset(ctx, strings.TrimPrefix(sourceURL, "asset://"))
		if err != nil {
			return "", err
		}
		if asset == nil || asset.LocalPath == "" {
			return "", ErrAssetNotFound
		}
		return asset.LocalPath, nil
	default:
		return "", fmt.Errorf("unsupported source scheme %q", u.Scheme)
	}
}

func (s *Service) download(ctx context.Context, sourceURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", sourceURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch %s: status %d", sourceURL, resp.StatusCode)
	}

	if err := os.MkdirAll(s.mediaDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create media dir: %w", err)
	}

	localPath := filepath.Join(s.mediaDir, timeutil.NewID()+filepath.Ext(baseName(sourceURL)))
	f, err := os.Create(localPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	written, err := io.Copy(f, resp.Body)
	if err != nil {
		os.Remove(localPath)
		return "", fmt.Errorf("failed to download %s: %w", sourceURL, err)
	}

	// Record the downloaded copy so later fetches hit the cache.
	if asset, err := s.repo.GetAssetByURL(ctx, sourceURL); err == nil && asset != nil {
		if err := s.repo.UpdateAssetLocalPath(ctx, asset.ID, localPath, written); err != nil && s.logger != nil {
			s.logger.Warn("failed to record downloaded copy", "asset_id", asset.ID, "error", err)
		}
	}

	if s.logger != nil {
		s.logger.Info("source downloaded", "url", sourceURL, "path", localPath, "size", written)
	}
	return localPath, nil
}

func timelineTrackForMIME(contentType string) string {
	if strings.HasPrefix(contentType, "audio/") {
		return "audio"
	}
	return "video"
}
