package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/stupiduntilnot/reportchat/internal/chat"
)

// wsIncoming is a client frame.
type wsIncoming struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// wsOutgoing is a server frame. Service events are forwarded as-is; these
// cover the connection handshake and per-client errors.
type wsOutgoing struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error,omitempty"`
}

// wsConn serializes writes; gorilla allows one concurrent writer.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	raw, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer raw.Close()

	conn := &wsConn{conn: raw}
	id := uuid.New().String()
	log := s.log.WithField("conn", id)

	if err := conn.writeJSON(wsOutgoing{Type: "connected", ID: id}); err != nil {
		log.WithError(err).Debug("failed to send connected frame")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events, unsubscribe := s.chat.Subscribe()
	defer unsubscribe()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				if err := conn.writeJSON(e); err != nil {
					log.WithError(err).Debug("failed to forward event")
					cancel()
					return
				}
			}
		}
	}()

	for {
		_, message, err := raw.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Info("websocket closed unexpectedly")
			}
			return
		}

		var in wsIncoming
		if err := json.Unmarshal(message, &in); err != nil {
			_ = conn.writeJSON(wsOutgoing{Type: "error", Error: "invalid message format, send JSON with a type field"})
			continue
		}

		switch in.Type {
		case "ask":
			// Answers arrive as message events; only the rejection is
			// reported to this client directly.
			go func(text string) {
				_, err := s.chat.Send(ctx, text)
				if err == nil {
					return
				}
				if isValidation(err) || errors.Is(err, chat.ErrBusy) {
					_ = conn.writeJSON(wsOutgoing{Type: "error", Error: err.Error()})
					return
				}
				log.WithError(err).Debug("ask failed")
			}(in.Text)
		case "clear":
			s.chat.Clear(ctx)
		default:
			_ = conn.writeJSON(wsOutgoing{Type: "error", Error: "unknown message type " + in.Type})
		}
	}
}
