package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/matzehuels/sitecraft/pkg/changelog"
)

const (
	streamBuffer = 64
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = pongWait * 9 / 10
)

// streamChangelog upgrades to a websocket and sends every new change-log
// entry of the tenant as a JSON text message. Entries are dropped, with a
// warning, when the client falls behind by more than streamBuffer entries.
func (s *Server) streamChangelog(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	// Subscribe first so no entry falls between the handshake and the loop.
	entries := make(chan changelog.Entry, streamBuffer)
	unsubscribe := sess.Changelog().Subscribe(func(e changelog.Entry) {
		select {
		case entries <- e:
		default:
			s.logger.Warn("changelog stream lagging, entry dropped", "tenant", sess.TenantID(), "entry", e.ID)
		}
	})
	defer unsubscribe()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied.
		s.logger.Debug("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	// The read side only handles control frames and notices the close.
	done := make(chan struct{})
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	s.logger.Debug("changelog stream opened", "tenant", sess.TenantID())
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case e := <-entries:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(e); err != nil {
				s.logger.Debug("changelog stream write failed", "err", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			s.logger.Debug("changelog stream closed", "tenant", sess.TenantID())
			return
		}
	}
}
