package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cutdeck/cutdeck-agent/internal/api"
	"github.com/cutdeck/cutdeck-agent/internal/config"
	"github.com/cutdeck/cutdeck-agent/internal/db"
	"github.com/cutdeck/cutdeck-agent/internal/editor"
	"github.com/cutdeck/cutdeck-agent/internal/export"
	"github.com/cutdeck/cutdeck-agent/internal/ffmpeg"
	"github.com/cutdeck/cutdeck-agent/internal/library"
	"github.com/cutdeck/cutdeck-agent/internal/logging"
	"github.com/cutdeck/cutdeck-agent/internal/media"
	"github.com/cutdeck/cutdeck-agent/internal/playback"
	"github.com/cutdeck/cutdeck-agent/internal/timeline"
	"github.com/cutdeck/cutdeck-agent/internal/ui"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	for _, dir := range []string{cfg.DataDir(), cfg.MediaDir(), cfg.ExportDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting cutdeck agent", "version", config.Version, "data_dir", cfg.DataDir())

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := library.NewRepository(database.Conn())

	deviceID, err := ensureDeviceID(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure device ID: %w", err)
	}

	authToken, err := ensureAuthToken(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	settings, err := config.LoadSettings(cfg.SettingsPath())
	if err != nil {
		return fmt.Errorf("failed to load project settings: %w", err)
	}
	logger.Info("project settings loaded",
		"width", settings.Width, "height", settings.Height, "fps", settings.FPS)

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Println("║                    CUTDECK AGENT v" + config.Version + "                    ║")
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-27d ║\n", cfg.Port())
	fmt.Printf("║  Auth Token: %-45s ║\n", authToken)
	fmt.Printf("║  Device ID:  %-45s ║\n", deviceID[:16]+"...")
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	sess := timeline.NewSession(timeline.Settings{
		Width:  settings.Width,
		Height: settings.Height,
		FPS:    settings.FPS,
	}, logger)
	controller := editor.NewController(sess, logger)

	bridge := api.NewMediaBridge(logging.WithComponent(logger, "bridge"))
	synchronizer := playback.NewSynchronizer(sess, bridge, logging.WithComponent(logger, "playback"))

	libSvc := library.NewService(repo, cfg.MediaDir(), cfg.UploadMaxBytes(), logger)
	mediaSrv := media.NewServer(libSvc, logger)

	transcoder := ffmpeg.NewExecutor(cfg.FFmpegPath(), filepath.Join(cfg.DataDir(), "work"), logger)
	exporter := export.NewExporter(transcoder, transcoder, libSvc, logging.WithComponent(logger, "export"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go synchronizer.Run(ctx)

	apiServer := api.NewServer(api.ServerConfig{
		Port:         cfg.Port(),
		ExportDir:    cfg.ExportDir(),
		Session:      sess,
		Controller:   controller,
		Synchronizer: synchronizer,
		Bridge:       bridge,
		Library:      libSvc,
		Exporter:     exporter,
		Media:        mediaSrv,
		Repository:   repo,
		Logger:       logger,
		StartTime:    startTime,
		Version:      config.Version,
		DeviceID:     deviceID,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	quitCh := make(chan struct{})

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			close(quitCh)
		case <-quitCh:
		}
	}()

	if cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray := ui.NewTray(ui.TrayConfig{
			Status: &trayStatus{synchronizer: synchronizer, sess: sess},
			Addr:   apiServer.Addr(),
			Logger: logger,
			OnOpenStudio: func() {
				logger.Info("open the studio in your browser", "url", fmt.Sprintf("http://%s", apiServer.Addr()))
			},
			OnExportNow: func() {
				go func() {
					out := filepath.Join(cfg.ExportDir(), "export_"+time.Now().Format("20060102_150405")+".mp4")
					result, err := exporter.Export(ctx, sess, out, nil)
					if err != nil {
						logger.Error("tray export failed", "error", err)
						return
					}
					logger.Info("tray export finished", "path", result.OutputPath, "clips", result.ClipCount)
				}()
			},
			OnQuit: func() {
				close(quitCh)
			},
		})
		go tray.Run()

		go func() {
			ticker := time.NewTicker(2 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					tray.Refresh()
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	<-quitCh

	logger.Info("initiating graceful shutdown")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

type trayStatus struct {
	synchronizer *playback.Synchronizer
	sess         *timeline.Session
}

func (t *trayStatus) State() string {
	return t.synchronizer.State().String()
}

func (t *trayStatus) ClipCount() int {
	return t.sess.ClipCount()
}

func ensureDeviceID(repo library.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "device_id")
	if err == nil && existing != "" {
		return existing, nil
	}

	idBytes := make([]byte, 16)
	if _, err := rand.Read(idBytes); err != nil {
		return "", err
	}
	deviceID := hex.EncodeToString(idBytes)

	if err := repo.SetConfig(ctx, "device_id", deviceID); err != nil {
		return "", err
	}

	return deviceID, nil
}

func ensureAuthToken(repo library.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "auth_token")
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, "auth_token", token); err != nil {
		return "", err
	}

	return token, nil
}
