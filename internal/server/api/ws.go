package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"tgdash/internal/controller"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// liveMessage is pushed to websocket clients after each poll.
type liveMessage struct {
	Kind    string          `json:"kind"`
	At      time.Time       `json:"at"`
	Error   string          `json:"error,omitempty"`
	Summary summaryResponse `json:"summary"`
}

// Live streams poller events with the refreshed summary of the selected test.
// Slow clients miss events instead of holding up the poller.
func (h *Handlers) Live(c *gin.Context) {
	number, err := h.selected(c)
	if err != nil {
		h.internal(c, err)
		return
	}
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer ws.Close()

	events, cancel := h.src.Subscribe()
	defer cancel()

	// The read loop only handles control frames and notices the client leaving.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		ws.SetReadLimit(512)
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	send := func(msg liveMessage) bool {
		_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := ws.WriteJSON(msg); err != nil {
			h.log.Debug("websocket write failed", zap.Error(err))
			return false
		}
		return true
	}

	if !send(liveMessage{Kind: "snapshot", At: time.Now(), Summary: h.summarize(h.src.Snapshot(), number)}) {
		return
	}
	for {
		select {
		case <-closed:
			return
		case <-c.Request.Context().Done():
			return
		case <-ping.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				_ = ws.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
				return
			}
			msg := liveMessage{
				Kind:    ev.Kind.String(),
				At:      ev.At,
				Error:   controller.UserMessage(ev.Err),
				Summary: h.summarize(h.src.Snapshot(), number),
			}
			if !send(msg) {
				return
			}
		}
	}
}
