package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cutdeck/cutdeck-agent/internal/editor"
	"github.com/cutdeck/cutdeck-agent/internal/library"
	"github.com/cutdeck/cutdeck-agent/internal/timeline"
)

// editorState holds the in-flight trim drag. One drag at a time, matching
// a single pointer in the studio UI.
type editorState struct {
	mu   sync.Mutex
	drag *editor.TrimDrag
}

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()
	ed := &editorState{}

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(CORSAllowlist())
	r.Use(LoopbackGuard())

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/status", statusHandler(cfg))

		r.Get("/timeline", getTimelineHandler(cfg))
		r.Post("/timeline/clips", addClipHandler(cfg))
		r.Post("/timeline/drop", dropHandler(cfg))
		r.Patch("/timeline/clips/{id}", updateClipHandler(cfg))
		r.Delete("/timeline/clips/{id}", removeClipHandler(cfg))
		r.Post("/timeline/clips/{id}/split", splitClipHandler(cfg))
		r.Post("/timeline/reorder", reorderHandler(cfg))
		r.Post("/timeline/clear", clearHandler(cfg))
		r.Post("/timeline/select", selectHandler(cfg))

		r.Post("/transport/play", playHandler(cfg))
		r.Post("/transport/pause", pauseHandler(cfg))
		r.Post("/transport/seek", seekHandler(cfg))

		r.Post("/editor/tool", setToolHandler(cfg))
		r.Post("/editor/click", clipClickHandler(cfg))
		r.Post("/editor/trim/begin", trimBeginHandler(cfg, ed))
		r.Post("/editor/trim/move", trimMoveHandler(cfg, ed))
		r.Post("/editor/trim/end", trimEndHandler(cfg, ed))
		r.Post("/editor/trim/cancel", trimCancelHandler(cfg, ed))

		r.Get("/library", listAssetsHandler(cfg))
		r.Post("/library/items", acceptItemHandler(cfg))
		r.Post("/library/upload", uploadHandler(cfg))
		r.Delete("/library/{id}", removeAssetHandler(cfg))

		r.Get("/media/{id}", mediaHandler(cfg))
		r.Get("/ws/player", func(w http.ResponseWriter, r *http.Request) {
			cfg.Bridge.Handle(w, r)
		})

		r.Post("/export", exportHandler(cfg))
	})

	return r
}

// writeEditError maps timeline and editor errors to HTTP statuses.
func writeEditError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, timeline.ErrClipNotFound):
		WriteError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.Is(err, timeline.ErrInvalidType),
		errors.Is(err, timeline.ErrInvalidDuration),
		errors.Is(err, timeline.ErrInvalidTrim),
		errors.Is(err, timeline.ErrInvalidSplit),
		errors.Is(err, timeline.ErrInvalidIndex),
		errors.Is(err, editor.ErrUnknownTool),
		errors.Is(err, editor.ErrTrimOutOfBounds),
		errors.Is(err, editor.ErrSplitTooClose),
		errors.Is(err, editor.ErrNoActiveDrag):
		WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
	default:
		WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
	}
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:   "ok",
			Version:  cfg.Version,
			UptimeS:  uptime,
			DeviceID: cfg.DeviceID,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assetsCount, _ := cfg.Repository.CountAssets(r.Context())

		WriteJSON(w, http.StatusOK, StatusResponse{
			State:          cfg.Synchronizer.State().String(),
			Playing:        cfg.Session.Playing(),
			CurrentTime:    cfg.Session.CurrentTime(),
			TotalDuration:  cfg.Session.TotalDuration(),
			ClipCount:      cfg.Session.ClipCount(),
			SelectedClipID: cfg.Session.SelectedClipID(),
			ActiveClipID:   cfg.Synchronizer.ActiveClipID(),
			Tool:           string(cfg.Controller.Tool()),
			AssetsCount:    assetsCount,
		})
	}
}

func getTimelineHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		settings := cfg.Session.Settings()
		WriteJSON(w, http.StatusOK, TimelineResponse{
			Clips:          cfg.Session.Clips(),
			TotalDuration:  cfg.Session.TotalDuration(),
			CurrentTime:    cfg.Session.CurrentTime(),
			SelectedClipID: cfg.Session.SelectedClipID(),
			Settings: SettingsResponse{
				Width:  settings.Width,
				Height: settings.Height,
				FPS:    settings.FPS,
			},
		})
	}
}

func addClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in timeline.ClipInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		id, err := cfg.Session.AddClip(in)
		if err != nil {
			writeEditError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, AddClipResponse{ClipID: id})
	}
}

// dropHandler accepts the drag payload the studio UI serializes when a
// library item is dropped on the timeline.
func dropHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
		if err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		in, err := library.ParseDragPayload(body)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		id, err := cfg.Session.AddClip(in)
		if err != nil {
			writeEditError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, AddClipResponse{ClipID: id})
	}
}

func updateClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var req UpdateClipRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		if err := cfg.Session.UpdateClip(id, req.ToUpdate()); err != nil {
			writeEditError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func removeClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Session.RemoveClip(chi.URLParam(r, "id")); err != nil {
			writeEditError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func splitClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var req SplitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		firstID, secondID, err := cfg.Session.SplitClip(id, req.Offset)
		if err != nil {
			writeEditError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, SplitResponse{FirstID: firstID, SecondID: secondID})
	}
}

func reorderHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ReorderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		if err := cfg.Session.ReorderClips(timeline.Track(req.Track), req.From, req.To); err != nil {
			writeEditError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func clearHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg.Session.Clear()
		w.WriteHeader(http.StatusNoContent)
	}
}

func selectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SelectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		if err := cfg.Session.Select(req.ClipID); err != nil {
			writeEditError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func playHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg.Synchronizer.Play()
		w.WriteHeader(http.StatusNoContent)
	}
}

func pauseHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg.Synchronizer.Pause()
		w.WriteHeader(http.StatusNoContent)
	}
}

func seekHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SeekRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		cfg.Synchronizer.Seek(req.Time)
		w.WriteHeader(http.StatusNoContent)
	}
}

func setToolHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ToolRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		if err := cfg.Controller.SetTool(editor.Tool(req.Tool)); err != nil {
			writeEditError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func clipClickHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ClickRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		if err := cfg.Controller.HandleClipClick(req.ClipID, req.ClickPx, req.PxPerSecond); err != nil {
			writeEditError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func trimBeginHandler(cfg ServerConfig, ed *editorState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TrimBeginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		drag, err := cfg.Controller.BeginTrim(req.ClipID, editor.Handle(req.Handle), req.SourceDuration)
		if err != nil {
			writeEditError(w, err)
			return
		}

		ed.mu.Lock()
		ed.drag = drag
		ed.mu.Unlock()

		start, end := drag.Bounds()
		WriteJSON(w, http.StatusOK, TrimBoundsResponse{TrimStart: start, TrimEnd: end})
	}
}

func trimMoveHandler(cfg ServerConfig, ed *editorState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TrimMoveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		ed.mu.Lock()
		drag := ed.drag
		ed.mu.Unlock()
		if drag == nil {
			writeEditError(w, editor.ErrNoActiveDrag)
			return
		}

		if err := drag.Move(req.Time); err != nil {
			writeEditError(w, err)
			return
		}
		start, end := drag.Bounds()
		WriteJSON(w, http.StatusOK, TrimBoundsResponse{TrimStart: start, TrimEnd: end})
	}
}

func trimEndHandler(cfg ServerConfig, ed *editorState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ed.mu.Lock()
		drag := ed.drag
		ed.drag = nil
		ed.mu.Unlock()
		if drag == nil {
			writeEditError(w, editor.ErrNoActiveDrag)
			return
		}

		if err := drag.End(); err != nil {
			writeEditError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func trimCancelHandler(cfg ServerConfig, ed *editorState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ed.mu.Lock()
		drag := ed.drag
		ed.drag = nil
		ed.mu.Unlock()
		if drag != nil {
			drag.Cancel()
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listAssetsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assets, err := cfg.Library.ListAssets(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list assets", "INTERNAL_ERROR")
			return
		}

		resp := AssetsResponse{Assets: make([]AssetResponse, len(assets))}
		for i, a := range assets {
			resp.Assets[i] = AssetToResponse(a)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func acceptItemHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var raw library.RawItem
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		asset, err := cfg.Library.AcceptItem(r.Context(), raw)
		if err != nil {
			if errors.Is(err, library.ErrNotAccepted) {
				WriteError(w, http.StatusUnprocessableEntity, err.Error(), "NOT_ACCEPTED")
				return
			}
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusCreated, AssetToResponse(asset))
	}
}

func uploadHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			WriteError(w, http.StatusBadRequest, "file field required", "BAD_REQUEST")
			return
		}
		defer file.Close()

		contentType := header.Header.Get("Content-Type")
		asset, err := cfg.Library.SaveUpload(r.Context(), header.Filename, contentType, header.Size, file)
		if err != nil {
			switch {
			case errors.Is(err, library.ErrUnsupportedType):
				WriteError(w, http.StatusUnsupportedMediaType, err.Error(), "UNSUPPORTED_TYPE")
			case errors.Is(err, library.ErrTooLarge):
				WriteError(w, http.StatusRequestEntityTooLarge, err.Error(), "TOO_LARGE")
			default:
				WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			}
			return
		}
		WriteJSON(w, http.StatusCreated, AssetToResponse(asset))
	}
}

func removeAssetHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Library.RemoveAsset(r.Context(), chi.URLParam(r, "id")); err != nil {
			if errors.Is(err, library.ErrAssetNotFound) {
				WriteError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
				return
			}
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func mediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := cfg.Media.ServeAsset(w, r, id); err != nil {
			cfg.Logger.Error("media serve error", "error", err, "asset_id", id)
		}
	}
}
