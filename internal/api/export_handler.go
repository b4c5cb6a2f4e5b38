package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"

	"github.com/cutdeck/cutdeck-agent/internal/export"
)

func exportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ExportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		if err := export.ValidateOutputDir(cfg.ExportDir); err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		name := export.SanitizeName(req.Filename, 120)
		if name == "" {
			name = "cutdeck_export"
		}
		outPath := filepath.Join(cfg.ExportDir, name+".mp4")

		progress := func(percent int) {
			cfg.Logger.Info("export progress", "percent", percent)
		}

		result, err := cfg.Exporter.Export(r.Context(), cfg.Session, outPath, progress)
		if err != nil {
			if errors.Is(err, export.ErrNoClips) {
				WriteError(w, http.StatusBadRequest, "timeline has no video clips", "BAD_REQUEST")
				return
			}
			cfg.Logger.Error("export failed", "error", err)
			WriteError(w, http.StatusInternalServerError, err.Error(), "EXPORT_FAILED")
			return
		}

		WriteJSON(w, http.StatusOK, ExportResponse{
			Status:     "ok",
			OutputPath: result.OutputPath,
			ClipCount:  result.ClipCount,
		})
	}
}
