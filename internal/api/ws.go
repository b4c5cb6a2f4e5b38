package api

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The agent binds to loopback only; the studio page is served from a
	// different origin than the agent.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsMessage is the envelope for both directions of the media bridge.
type wsMessage struct {
	Type  string  `json:"type"`
	URL   string  `json:"url,omitempty"`
	Time  float64 `json:"time,omitempty"`
	Ready bool    `json:"ready,omitempty"`
	Error string  `json:"error,omitempty"`
}

// MediaBridge connects the synchronizer to the browser's media element over
// a websocket. The browser reports its playback clock and readiness; the
// bridge pushes source, seek, play, and pause commands back. It satisfies
// the synchronizer's media element contract, so a reconnecting browser just
// picks up where the timeline clock is.
type MediaBridge struct {
	logger *slog.Logger

	// wmu serializes writes; the websocket allows one concurrent writer.
	wmu sync.Mutex

	mu          sync.Mutex
	conn        *websocket.Conn
	currentTime float64
	ready       bool
	source      string
	playErr     error
}

func NewMediaBridge(logger *slog.Logger) *MediaBridge {
	return &MediaBridge{logger: logger}
}

// Handle upgrades the request and runs the read loop until the peer closes.
// A new connection replaces any previous one.
func (b *MediaBridge) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	b.mu.Lock()
	if b.conn != nil {
		b.conn.Close()
	}
	b.conn = conn
	b.ready = false
	b.playErr = nil
	source := b.source
	b.mu.Unlock()

	b.logger.Info("media bridge connected", "remote", conn.RemoteAddr().String())

	// Restore the current source so a reconnect resumes seamlessly.
	if source != "" {
		b.send(wsMessage{Type: "set_source", URL: source})
	}

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		b.handleMessage(msg)
	}

	b.mu.Lock()
	if b.conn == conn {
		b.conn = nil
		b.ready = false
	}
	b.mu.Unlock()
	conn.Close()

	b.logger.Info("media bridge disconnected")
}

func (b *MediaBridge) handleMessage(msg wsMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch msg.Type {
	case "timeupdate":
		b.currentTime = msg.Time
	case "ready":
		b.ready = msg.Ready
		if msg.Ready {
			b.playErr = nil
		}
	case "play_result":
		if msg.Error != "" {
			b.playErr = errors.New(msg.Error)
			// A rejected play needs user interaction on the page; the
			// browser reports ready again once playback is permitted, which
			// clears the error and lets the synchronizer retry.
			b.ready = false
			b.logger.Warn("media element rejected play", "error", msg.Error)
		} else {
			b.playErr = nil
		}
	}
}

func (b *MediaBridge) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil
}

// CurrentTime reports the browser element's last known local clock.
func (b *MediaBridge) CurrentTime() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentTime
}

func (b *MediaBridge) Ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil && b.ready
}

func (b *MediaBridge) SetSource(url string) {
	b.mu.Lock()
	b.source = url
	b.ready = false
	b.mu.Unlock()
	b.send(wsMessage{Type: "set_source", URL: url})
}

func (b *MediaBridge) Seek(t float64) {
	b.mu.Lock()
	// Assume the element lands where it was told until the next timeupdate.
	b.currentTime = t
	b.mu.Unlock()
	b.send(wsMessage{Type: "seek", Time: t})
}

// Play asks the element to start. Autoplay rejections arrive asynchronously
// as play_result messages and surface on the next call.
func (b *MediaBridge) Play() error {
	b.mu.Lock()
	err := b.playErr
	b.playErr = nil
	b.mu.Unlock()
	if err != nil {
		return err
	}
	b.send(wsMessage{Type: "play"})
	return nil
}

func (b *MediaBridge) Pause() {
	b.send(wsMessage{Type: "pause"})
}

func (b *MediaBridge) send(msg wsMessage) {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return
	}
	b.wmu.Lock()
	defer b.wmu.Unlock()
	if err := conn.WriteJSON(msg); err != nil {
		b.logger.Warn("media bridge write failed", "type", msg.Type, "error", err)
	}
}
