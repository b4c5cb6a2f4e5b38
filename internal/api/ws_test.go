package api

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialBridge(t *testing.T, bridge *MediaBridge) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(bridge.Handle))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestMediaBridge_Timeupdate(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bridge := NewMediaBridge(logger)
	conn := dialBridge(t, bridge)

	waitFor(t, bridge.Connected)

	if err := conn.WriteJSON(wsMessage{Type: "timeupdate", Time: 7.25}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return bridge.CurrentTime() == 7.25 })
}

func TestMediaBridge_Ready(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bridge := NewMediaBridge(logger)
	conn := dialBridge(t, bridge)

	waitFor(t, bridge.Connected)
	if bridge.Ready() {
		t.Fatal("bridge ready before the element reported readiness")
	}

	if err := conn.WriteJSON(wsMessage{Type: "ready", Ready: true}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, bridge.Ready)
}

func TestMediaBridge_SetSourcePushed(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bridge := NewMediaBridge(logger)
	conn := dialBridge(t, bridge)

	waitFor(t, bridge.Connected)
	bridge.SetSource("http://127.0.0.1/media/a-1")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg wsMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if msg.Type != "set_source" || msg.URL != "http://127.0.0.1/media/a-1" {
		t.Errorf("message = %+v, want set_source with url", msg)
	}

	// Loading a new source invalidates readiness until the element reports in.
	if bridge.Ready() {
		t.Error("bridge still ready after source change")
	}
}

func TestMediaBridge_PlayResultSurfaces(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bridge := NewMediaBridge(logger)
	conn := dialBridge(t, bridge)

	waitFor(t, bridge.Connected)

	if err := bridge.Play(); err != nil {
		t.Fatalf("first Play() error = %v", err)
	}

	if err := conn.WriteJSON(wsMessage{Type: "play_result", Error: "NotAllowedError"}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool {
		err := bridge.Play()
		return err != nil && err.Error() == "NotAllowedError"
	})

	// The rejection is consumed; the next Play proceeds.
	if err := bridge.Play(); err != nil {
		t.Errorf("Play() after consumed rejection = %v, want nil", err)
	}
}

func TestMediaBridge_PlayRejectionWithdrawsReadiness(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bridge := NewMediaBridge(logger)
	conn := dialBridge(t, bridge)

	waitFor(t, bridge.Connected)
	if err := conn.WriteJSON(wsMessage{Type: "ready", Ready: true}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, bridge.Ready)

	if err := conn.WriteJSON(wsMessage{Type: "play_result", Error: "NotAllowedError"}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return !bridge.Ready() })

	// The browser reports ready again after a user gesture; the rejection is
	// cleared and a retried play goes through.
	if err := conn.WriteJSON(wsMessage{Type: "ready", Ready: true}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, bridge.Ready)
	if err := bridge.Play(); err != nil {
		t.Errorf("Play() after element became ready again = %v, want nil", err)
	}
}

func TestMediaBridge_DisconnectedIsNotReady(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bridge := NewMediaBridge(logger)

	if bridge.Connected() || bridge.Ready() {
		t.Error("fresh bridge should be disconnected and not ready")
	}
	// Commands against a disconnected bridge are dropped, not fatal.
	bridge.SetSource("http://127.0.0.1/media/a-1")
	bridge.Seek(3)
	bridge.Pause()
	if err := bridge.Play(); err != nil {
		t.Errorf("Play() on disconnected bridge = %v, want nil", err)
	}
}
