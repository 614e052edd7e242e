package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/yakoovad/scanhub/internal/feed"
	"github.com/yakoovad/scanhub/internal/model"
	"github.com/yakoovad/scanhub/internal/service"
	"github.com/yakoovad/scanhub/pkg/logger"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // In production, replace with proper origin checking
	},
}

type streamMessage struct {
	Type  string        `json:"type"` // seed, insert, error
	Scans []*model.Scan `json:"scans,omitempty"`
	Scan  *model.Scan   `json:"scan,omitempty"`
	Error string        `json:"error,omitempty"`
}

// StreamFeed upgrades the request to a WebSocket, seeds the client with the
// bulk feed and then pushes each insert as it lands. The client may send
// "refresh" to get a fresh seed, pull-to-refresh style. The subscription is
// released when the socket closes; reconnecting is the client's job.
func (h *Handler) StreamFeed(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	identity := IdentityFromContext(e)
	scope := feedScope(e)
	if !scope.Valid() {
		return h.transportError(e, service.NewError(service.ErrorCodeValidation, "scope must be global or own"))
	}

	conn, err := upgrader.Upgrade(e.Response(), e.Request(), nil)
	if err != nil {
		l.Error("websocket upgrade failed", zap.Error(err))
		return nil
	}
	defer conn.Close()

	ctx := e.Request().Context()

	var writeMu sync.Mutex
	writeMessage := func(msg *streamMessage) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(msg)
	}

	syncer := feed.New(h.scans, h.hub, scope, identity)

	// Seed first, then attach to the stream. An insert landing between the
	// two can be missed; one landing during the seed read can arrive twice.
	if err = syncer.Load(ctx); err != nil {
		l.Error("feed seed failed", zap.Error(err))
		_ = writeMessage(&streamMessage{Type: "error", Error: "failed to load feed"})
		return nil
	}

	if err = writeMessage(&streamMessage{Type: "seed", Scans: syncer.Snapshot()}); err != nil {
		return nil
	}

	syncer.OnInsert(func(scan *model.Scan) {
		if werr := writeMessage(&streamMessage{Type: "insert", Scan: scan}); werr != nil {
			l.Debug("stream write failed", zap.Error(werr))
		}
	})

	if err = syncer.Subscribe(); err != nil {
		l.Error("feed subscribe failed", zap.Error(err))
		_ = writeMessage(&streamMessage{Type: "error", Error: "failed to subscribe"})
		return nil
	}
	defer syncer.Unsubscribe()

	for {
		_, raw, rerr := conn.ReadMessage()
		if rerr != nil {
			return nil
		}

		var req struct {
			Type string `json:"type"`
		}
		if jerr := json.Unmarshal(raw, &req); jerr != nil {
			continue
		}

		if req.Type == "refresh" {
			if lerr := syncer.Refresh(ctx); lerr != nil {
				_ = writeMessage(&streamMessage{Type: "error", Error: "refresh failed"})
				continue
			}
			_ = writeMessage(&streamMessage{Type: "seed", Scans: syncer.Snapshot()})
		}
	}
}
