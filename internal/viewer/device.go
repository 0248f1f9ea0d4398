package viewer

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/visionlink/internal/message"
)

// maxDeviceMessage bounds a single device frame.
const maxDeviceMessage = 4 << 20

// handleDevice reads one device connection until it closes. Binary frames
// are JPEG previews; text frames are JSON messages, validated and then
// forwarded to browsers unchanged.
func (s *Server) handleDevice(w http.ResponseWriter, r *http.Request) {
	if !s.admit(w, r) {
		return
	}
	defer s.leave()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("device upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxDeviceMessage)

	log := s.log.WithField("device", r.RemoteAddr)
	s.state.deviceConnected()
	log.Info("device connected")
	defer func() {
		s.state.deviceDisconnected()
		log.Info("device disconnected")
	}()

	done := make(chan struct{})
	defer close(done)
	// Devices never read, so any frame counts as a sign of life.
	alive := keepAlive(conn, s.config.Heartbeat, done, log)

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Warn("device read failed")
			}
			return
		}
		alive()

		switch kind {
		case websocket.BinaryMessage:
			s.stream.UpdateJPEG(data)
			s.state.recordFrame()
		case websocket.TextMessage:
			if err := s.handleMessage(data); err != nil {
				log.WithError(err).Warn("dropping device message")
				continue
			}
			s.clients.broadcast(websocket.TextMessage, data)
		}
	}
}

// handleMessage validates one device message and records it.
func (s *Server) handleMessage(data []byte) error {
	env, err := message.Decode(data)
	if err != nil {
		return err
	}

	switch env.Type {
	case message.TypeDetection:
		batch, err := env.DecodeDetection()
		if err != nil {
			return err
		}
		s.state.recordDetection(batch)
		s.log.WithFields(logrus.Fields{
			"detections":   len(batch.Detections),
			"frame_width":  batch.FrameWidth,
			"frame_height": batch.FrameHeight,
		}).Debug("detections received")
	case message.TypeGesture:
		g, err := env.DecodeGesture()
		if err != nil {
			return err
		}
		s.state.recordGesture(GestureRecord{Timestamp: env.Timestamp, Event: g})
		s.log.WithFields(logrus.Fields{
			"gesture": g.Gesture,
			"device":  g.Action.Device,
		}).Info("gesture received")
	}
	return nil
}
