package viewer

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultHeartbeat is how often an idle connection is pinged.
	DefaultHeartbeat = 30 * time.Second
	// DefaultMaxConnections caps device and browser sockets together.
	DefaultMaxConnections = 100
)

// keepAlive arms the read deadline of conn and pings it every interval
// until done is closed. A pong or any call to the returned func pushes the
// deadline out again, so a peer that stays silent for two intervals fails
// its next read.
func keepAlive(conn *websocket.Conn, interval time.Duration, done <-chan struct{}, log logrus.FieldLogger) func() {
	wait := 2 * interval
	alive := func() {
		conn.SetReadDeadline(time.Now().Add(wait))
	}
	alive()
	conn.SetPongHandler(func(string) error {
		alive()
		return nil
	})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					log.WithError(err).Debug("ping failed")
					return
				}
			}
		}
	}()
	return alive
}

// admit reserves one connection slot, or answers 503 when all are taken.
// A successful admit must be paired with leave.
func (s *Server) admit(w http.ResponseWriter, r *http.Request) bool {
	if n := s.active.Add(1); n > int64(s.config.MaxConnections) {
		s.active.Add(-1)
		s.log.WithFields(logrus.Fields{
			"remote": r.RemoteAddr,
			"limit":  s.config.MaxConnections,
		}).Warn("connection limit reached")
		writeError(w, http.StatusServiceUnavailable, "too many connections")
		return false
	}
	return true
}

func (s *Server) leave() {
	s.active.Add(-1)
}
