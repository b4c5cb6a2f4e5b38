package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cutdeck/cutdeck-agent/internal/editor"
	"github.com/cutdeck/cutdeck-agent/internal/library"
	"github.com/cutdeck/cutdeck-agent/internal/playback"
	"github.com/cutdeck/cutdeck-agent/internal/timeline"
)

const testToken = "test-token"

type fakeRepo struct {
	assets int
}

func (f *fakeRepo) CreateAsset(ctx context.Context, a *library.Asset) error { return nil }
func (f *fakeRepo) GetAsset(ctx context.Context, id string) (*library.Asset, error) {
	return nil, nil
}
func (f *fakeRepo) GetAssetByURL(ctx context.Context, url string) (*library.Asset, error) {
	return nil, nil
}
func (f *fakeRepo) ListAssets(ctx context.Context) ([]*library.Asset, error) { return nil, nil }
func (f *fakeRepo) DeleteAsset(ctx context.Context, id string) error         { return nil }
func (f *fakeRepo) UpdateAssetLocalPath(ctx context.Context, id, localPath string, size int64) error {
	return nil
}
func (f *fakeRepo) CountAssets(ctx context.Context) (int, error) { return f.assets, nil }
func (f *fakeRepo) GetConfig(ctx context.Context, key string) (string, error) {
	if key == "auth_token" {
		return testToken, nil
	}
	return "", nil
}
func (f *fakeRepo) SetConfig(ctx context.Context, key, value string) error { return nil }

type fakeLibrary struct {
	assets []*library.Asset
}

func (f *fakeLibrary) AcceptItem(ctx context.Context, raw library.RawItem) (*library.Asset, error) {
	item, err := library.Normalize(raw)
	if err != nil {
		return nil, err
	}
	a := &library.Asset{ID: "a-1", Type: item.Type, URL: item.URL, CreatedAt: time.Now()}
	f.assets = append(f.assets, a)
	return a, nil
}

func (f *fakeLibrary) SaveUpload(ctx context.Context, name, contentType string, size int64, body io.Reader) (*library.Asset, error) {
	if err := library.ValidateUpload(contentType, size, 1024); err != nil {
		return nil, err
	}
	a := &library.Asset{ID: "u-1", Type: "video", URL: "asset://u-1", Name: name, CreatedAt: time.Now()}
	f.assets = append(f.assets, a)
	return a, nil
}

func (f *fakeLibrary) GetAsset(ctx context.Context, id string) (*library.Asset, error) {
	for _, a := range f.assets {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, nil
}

func (f *fakeLibrary) ListAssets(ctx context.Context) ([]*library.Asset, error) {
	return f.assets, nil
}

func (f *fakeLibrary) RemoveAsset(ctx context.Context, id string) error {
	for i, a := range f.assets {
		if a.ID == id {
			f.assets = append(f.assets[:i], f.assets[i+1:]...)
			return nil
		}
	}
	return library.ErrAssetNotFound
}

func (f *fakeLibrary) Fetch(ctx context.Context, sourceURL string) (string, error) {
	return "/tmp/" + sourceURL, nil
}

func testConfig(t *testing.T) ServerConfig {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sess := timeline.NewSession(timeline.Settings{Width: 1920, Height: 1080, FPS: 30}, logger)
	bridge := NewMediaBridge(logger)

	return ServerConfig{
		Port:         0,
		Session:      sess,
		Controller:   editor.NewController(sess, logger),
		Synchronizer: playback.NewSynchronizer(sess, bridge, logger),
		Bridge:       bridge,
		Library:      &fakeLibrary{},
		Repository:   &fakeRepo{},
		Logger:       logger,
		StartTime:    time.Now(),
		Version:      "0.1.0",
		DeviceID:     "test-device",
	}
}

func doRequest(router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "127.0.0.1:12345"
	req.Header.Set("Authorization", "Bearer "+testToken)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeJSONBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}

	return body
}

func TestHealthHandler(t *testing.T) {
	cfg := testConfig(t)
	router := NewRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "127.0.0.1:12345"
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	body := decodeJSONBody(t, rr)
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
	if body["device_id"] != "test-device" {
		t.Errorf("device_id = %v, want test-device", body["device_id"])
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	cfg := testConfig(t)
	router := NewRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.RemoteAddr = "127.0.0.1:12345"
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_QueryToken(t *testing.T) {
	cfg := testConfig(t)
	router := NewRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/status?token="+testToken, nil)
	req.RemoteAddr = "127.0.0.1:12345"
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (query token should authenticate)", rr.Code, http.StatusOK)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	cfg := testConfig(t)
	router := NewRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.RemoteAddr = "127.0.0.1:12345"
	req.Header.Set("Authorization", "Bearer wrong")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAddClipAndTimeline(t *testing.T) {
	cfg := testConfig(t)
	router := NewRouter(cfg)

	rr := doRequest(router, http.MethodPost, "/timeline/clips", timeline.ClipInput{
		Type:      timeline.TrackVideo,
		SourceURL: "asset://a-1",
		Name:      "clip one",
		Duration:  10,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("add clip status = %d, want %d: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	body := decodeJSONBody(t, rr)
	if body["clip_id"] == "" {
		t.Fatal("clip_id missing from response")
	}

	rr = doRequest(router, http.MethodGet, "/timeline", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("timeline status = %d, want %d", rr.Code, http.StatusOK)
	}
	tl := decodeJSONBody(t, rr)
	clips, ok := tl["clips"].([]interface{})
	if !ok {
		t.Fatal("clips missing from timeline response")
	}
	// Dropping a video clip also creates the derived audio clip.
	if len(clips) != 2 {
		t.Fatalf("len(clips) = %d, want 2", len(clips))
	}
	if tl["total_duration"].(float64) != 10 {
		t.Errorf("total_duration = %v, want 10", tl["total_duration"])
	}
}

func TestAddClip_InvalidDuration(t *testing.T) {
	cfg := testConfig(t)
	router := NewRouter(cfg)

	rr := doRequest(router, http.MethodPost, "/timeline/clips", timeline.ClipInput{
		Type:      timeline.TrackVideo,
		SourceURL: "asset://a-1",
		Duration:  0,
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestDropHandler_DefaultDuration(t *testing.T) {
	cfg := testConfig(t)
	router := NewRouter(cfg)

	payload := map[string]interface{}{"type": "audio", "url": "https://cdn.example.com/track.mp3"}
	rr := doRequest(router, http.MethodPost, "/timeline/drop", payload)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}

	clips := cfg.Session.TrackClips(timeline.TrackAudio)
	if len(clips) != 1 {
		t.Fatalf("len(audio clips) = %d, want 1", len(clips))
	}
	if clips[0].Duration != library.DefaultDropDuration {
		t.Errorf("Duration = %v, want fallback %v", clips[0].Duration, library.DefaultDropDuration)
	}
	if clips[0].Name != "track.mp3" {
		t.Errorf("Name = %q, want track.mp3", clips[0].Name)
	}
}

func TestSplitClipHandler(t *testing.T) {
	cfg := testConfig(t)
	router := NewRouter(cfg)

	id, err := cfg.Session.AddClip(timeline.ClipInput{
		Type: timeline.TrackAudio, SourceURL: "asset://a", Name: "a", Duration: 10,
	})
	if err != nil {
		t.Fatal(err)
	}

	rr := doRequest(router, http.MethodPost, "/timeline/clips/"+id+"/split", SplitRequest{Offset: 4})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	body := decodeJSONBody(t, rr)
	if body["first_id"] == "" || body["second_id"] == "" {
		t.Fatalf("split response incomplete: %v", body)
	}

	// Out-of-bounds offset is rejected and leaves the timeline unchanged.
	rr = doRequest(router, http.MethodPost, "/timeline/clips/"+body["first_id"].(string)+"/split", SplitRequest{Offset: 99})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("oob split status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestRemoveClipHandler_NotFound(t *testing.T) {
	cfg := testConfig(t)
	router := NewRouter(cfg)

	rr := doRequest(router, http.MethodDelete, "/timeline/clips/missing", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestSeekHandler(t *testing.T) {
	cfg := testConfig(t)
	router := NewRouter(cfg)

	if _, err := cfg.Session.AddClip(timeline.ClipInput{
		Type: timeline.TrackAudio, SourceURL: "asset://a", Name: "a", Duration: 20,
	}); err != nil {
		t.Fatal(err)
	}

	rr := doRequest(router, http.MethodPost, "/transport/seek", SeekRequest{Time: 12.5})
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNoContent)
	}
	if got := cfg.Session.CurrentTime(); got != 12.5 {
		t.Errorf("CurrentTime() = %v, want 12.5", got)
	}
}

func TestSetToolHandler(t *testing.T) {
	cfg := testConfig(t)
	router := NewRouter(cfg)

	rr := doRequest(router, http.MethodPost, "/editor/tool", ToolRequest{Tool: "split"})
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNoContent)
	}
	if got := cfg.Controller.Tool(); got != editor.ToolSplit {
		t.Errorf("Tool() = %v, want split", got)
	}

	rr = doRequest(router, http.MethodPost, "/editor/tool", ToolRequest{Tool: "lasso"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unknown tool status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestTrimDragFlow(t *testing.T) {
	cfg := testConfig(t)
	router := NewRouter(cfg)

	id, err := cfg.Session.AddClip(timeline.ClipInput{
		Type: timeline.TrackVideo, SourceURL: "asset://a", Name: "a", Duration: 10,
	})
	if err != nil {
		t.Fatal(err)
	}

	rr := doRequest(router, http.MethodPost, "/editor/trim/begin", TrimBeginRequest{
		ClipID: id, Handle: "start", SourceDuration: 10,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("begin status = %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	rr = doRequest(router, http.MethodPost, "/editor/trim/move", TrimMoveRequest{Time: 3})
	if rr.Code != http.StatusOK {
		t.Fatalf("move status = %d, want %d", rr.Code, http.StatusOK)
	}
	bounds := decodeJSONBody(t, rr)
	if bounds["trim_start"].(float64) != 3 {
		t.Errorf("trim_start = %v, want 3", bounds["trim_start"])
	}

	rr = doRequest(router, http.MethodPost, "/editor/trim/end", nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("end status = %d, want %d", rr.Code, http.StatusNoContent)
	}

	clip, _ := cfg.Session.Clip(id)
	if clip.TrimStart != 3 {
		t.Errorf("TrimStart = %v, want 3 after committed drag", clip.TrimStart)
	}

	// The drag is consumed: ending again reports no active drag.
	rr = doRequest(router, http.MethodPost, "/editor/trim/end", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("second end status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestLibraryHandlers(t *testing.T) {
	cfg := testConfig(t)
	router := NewRouter(cfg)

	rr := doRequest(router, http.MethodPost, "/library/items", library.RawItem{
		Type: "video", URL: "https://cdn.example.com/a.mp4", Status: "success",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("accept status = %d, want %d: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}

	rr = doRequest(router, http.MethodPost, "/library/items", library.RawItem{
		Type: "video", URL: "https://cdn.example.com/b.mp4", Status: "pending",
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("pending item status = %d, want %d", rr.Code, http.StatusUnprocessableEntity)
	}

	rr = doRequest(router, http.MethodGet, "/library", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list status = %d, want %d", rr.Code, http.StatusOK)
	}
	body := decodeJSONBody(t, rr)
	assets, ok := body["assets"].([]interface{})
	if !ok || len(assets) != 1 {
		t.Fatalf("assets = %v, want 1 entry", body["assets"])
	}

	rr = doRequest(router, http.MethodDelete, "/library/missing", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("delete missing status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestStatusHandler(t *testing.T) {
	cfg := testConfig(t)
	cfg.Repository = &fakeRepo{assets: 3}
	router := NewRouter(cfg)

	rr := doRequest(router, http.MethodGet, "/status", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	body := decodeJSONBody(t, rr)
	if body["state"] != "idle" {
		t.Errorf("state = %v, want idle", body["state"])
	}
	if body["assets_count"].(float64) != 3 {
		t.Errorf("assets_count = %v, want 3", body["assets_count"])
	}
	if body["tool"] != "select" {
		t.Errorf("tool = %v, want select", body["tool"])
	}
}
