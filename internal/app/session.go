// Package app drives one device session: capture, inference, gesture
// debouncing, and the paced image, detection and gesture channels.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/visionlink/internal/capture"
	"github.com/ayusman/visionlink/internal/detection"
	"github.com/ayusman/visionlink/internal/detector"
	"github.com/ayusman/visionlink/internal/display"
	"github.com/ayusman/visionlink/internal/gesture"
	"github.com/ayusman/visionlink/internal/message"
	"github.com/ayusman/visionlink/internal/schedule"
	"github.com/ayusman/visionlink/internal/transport"
	"github.com/ayusman/visionlink/internal/wsframe"
)

// StatsEvery is how many frames pass between progress log lines.
const StatsEvery = 100

// Link is the outbound connection to the viewer.
type Link interface {
	Send(op wsframe.Opcode, payload []byte) error
	Reconnect(ctx context.Context) error
	State() transport.State
	Close() error
}

// EventSink receives confirmed gesture events for local handling.
type EventSink interface {
	Dispatch(ctx context.Context, e gesture.Event)
}

// Config holds session settings. They are fixed for the session lifetime.
type Config struct {
	Intervals        schedule.Intervals
	JPEGQuality      int
	GestureThreshold float64
	DebounceLength   int
	Labels           []string
}

// DefaultConfig returns the reference session settings.
func DefaultConfig() Config {
	return Config{
		Intervals:        schedule.DefaultIntervals(),
		JPEGQuality:      capture.DefaultJPEGQuality,
		GestureThreshold: gesture.DefaultThreshold,
		DebounceLength:   gesture.DefaultLength,
		Labels:           detection.DefaultLabels,
	}
}

// Collaborators are the external parts a session drives. Hands, Renderer
// and Events are optional.
type Collaborators struct {
	Link     Link
	Camera   capture.Camera
	Objects  detector.ObjectDetector
	Hands    detector.HandDetector
	Renderer display.Renderer
	Events   EventSink
}

// Stats counts what a session has done.
type Stats struct {
	Frames   int
	Sent     [len(schedule.Channels)]int
	Failed   [len(schedule.Channels)]int
	Gestures int
}

// Session owns every piece of per-device state: the link, the channel
// schedules, and the debounce history. It is driven by a single goroutine.
type Session struct {
	id  string
	cfg Config
	log logrus.FieldLogger

	link     Link
	camera   capture.Camera
	objects  detector.ObjectDetector
	hands    detector.HandDetector
	renderer display.Renderer
	events   EventSink

	sched     *schedule.Scheduler
	agg       *detection.Aggregator
	debouncer *gesture.Debouncer

	encode func(frame *gocv.Mat, quality int) ([]byte, error)
	now    func() time.Time

	stats Stats
}

// New creates a session. Channel schedules start at the current time, so
// the first send of each channel happens one interval after New.
func New(cfg Config, c Collaborators, log logrus.FieldLogger) *Session {
	if cfg.JPEGQuality == 0 {
		cfg.JPEGQuality = capture.DefaultJPEGQuality
	}
	if c.Renderer == nil {
		c.Renderer = display.Discard{}
	}

	id := uuid.NewString()
	s := &Session{
		id:        id,
		cfg:       cfg,
		log:       log.WithField("session", id),
		link:      c.Link,
		camera:    c.Camera,
		objects:   c.Objects,
		hands:     c.Hands,
		renderer:  c.Renderer,
		events:    c.Events,
		agg:       detection.NewAggregator(cfg.Labels),
		debouncer: gesture.NewDebouncer(cfg.DebounceLength, cfg.GestureThreshold),
		encode:    capture.EncodeJPEG,
		now:       time.Now,
	}
	s.sched = schedule.New(cfg.Intervals, s.now())
	return s
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string {
	return s.id
}

// Stats returns a snapshot of the session counters.
func (s *Session) Stats() Stats {
	return s.stats
}

// Run steps the session until ctx is cancelled or a step fails. The
// iteration in progress when ctx is cancelled runs to completion. The link
// is closed before Run returns.
func (s *Session) Run(ctx context.Context) error {
	w, h := s.camera.Size()
	s.log.WithFields(logrus.Fields{
		"frame_width":  w,
		"frame_height": h,
		"gestures":     s.hands != nil,
	}).Info("session started")

	defer func() {
		if err := s.link.Close(); err != nil {
			s.log.WithError(err).Warn("close link")
		}
		s.log.WithField("frames", s.stats.Frames).Info("session stopped")
	}()

	if s.link.State() != transport.Connected {
		// Failure is logged by the link; the loop runs without a connection.
		_ = s.link.Reconnect(ctx)
	}

	iter := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := s.Step(iter); err != nil {
			s.log.WithError(err).Error("capture loop stopped")
			return err
		}
	}
}

// Step runs one capture iteration: read a frame, detect, classify, render,
// then send on every channel that is due, in channel order. Camera, object
// detector and renderer errors are returned; the caller must stop.
func (s *Session) Step(ctx context.Context) error {
	frame, err := s.camera.ReadFrame()
	if err != nil {
		return fmt.Errorf("capture frame: %w", err)
	}
	defer frame.Close()

	objects, err := s.objects.DetectObjects(frame)
	if err != nil {
		return fmt.Errorf("detect objects: %w", err)
	}
	detections, counts := s.agg.Aggregate(objects)
	obs := s.observeHands(frame)

	display.Annotate(frame, display.Overlay{
		Detections: detections,
		Summary:    s.agg.Summary(counts),
		Gesture:    obs.Gesture,
	})
	if err := s.renderer.Render(frame); err != nil {
		return fmt.Errorf("render frame: %w", err)
	}

	now := s.now()
	for _, ch := range schedule.Channels {
		if !s.sched.Due(ch, now) {
			continue
		}
		switch ch {
		case schedule.Image:
			s.sendImage(ctx, frame, now)
		case schedule.Detection:
			s.sendDetections(ctx, detections, counts, frame, now)
		case schedule.Gesture:
			s.tickGesture(ctx, obs, now)
		}
	}

	s.stats.Frames++
	if s.stats.Frames%StatsEvery == 0 {
		s.log.WithFields(logrus.Fields{
			"frames": s.stats.Frames,
			"link":   s.link.State(),
		}).Info("frames processed")
	}
	return nil
}

// observeHands returns the gesture observation for frame. Hand detector
// errors count as no hand.
func (s *Session) observeHands(frame *gocv.Mat) gesture.Observation {
	if s.hands == nil {
		return gesture.NoHand
	}
	hands, err := s.hands.DetectHands(frame)
	if err != nil {
		s.log.WithError(err).Debug("hand detection failed")
		return gesture.NoHand
	}
	return gesture.Observe(hands, s.cfg.GestureThreshold)
}

// ready reports whether the link can take a frame now, attempting a
// reconnect when the backoff allows it.
func (s *Session) ready(ctx context.Context) bool {
	if s.link.State() == transport.Connected {
		return true
	}
	if err := s.link.Reconnect(ctx); err != nil {
		s.log.WithError(err).Debug("link unavailable")
		return false
	}
	return true
}

func (s *Session) send(ctx context.Context, ch schedule.Channel, op wsframe.Opcode, payload []byte) bool {
	if err := s.link.Send(op, payload); err != nil {
		s.stats.Failed[ch]++
		s.log.WithError(err).WithField("channel", ch).Warn("send failed, reconnecting")
		_ = s.link.Reconnect(ctx)
		return false
	}
	s.stats.Sent[ch]++
	return true
}

func (s *Session) sendImage(ctx context.Context, frame *gocv.Mat, now time.Time) {
	if !s.ready(ctx) {
		return
	}
	data, err := s.encode(frame, s.cfg.JPEGQuality)
	if err != nil {
		s.log.WithError(err).WithField("channel", schedule.Image).Warn("encode preview")
		return
	}
	if s.send(ctx, schedule.Image, wsframe.OpBinary, data) {
		s.sched.MarkSent(schedule.Image, now)
	}
}

func (s *Session) sendDetections(ctx context.Context, detections []detection.Detection, counts detection.Counts, frame *gocv.Mat, now time.Time) {
	if !s.ready(ctx) {
		return
	}
	batch := s.agg.Batch(detections, frame.Cols(), frame.Rows(), now)
	data, err := message.EncodeDetection(batch)
	if err != nil {
		s.log.WithError(err).WithField("channel", schedule.Detection).Error("encode detections")
		return
	}
	if !s.send(ctx, schedule.Detection, wsframe.OpText, data) {
		return
	}
	s.sched.MarkSent(schedule.Detection, now)

	if len(detections) > 0 {
		s.log.WithFields(logrus.Fields{
			"frame":  s.stats.Frames,
			"counts": s.agg.Summary(counts),
		}).Info("detections sent")
	}
}

// tickGesture feeds the debouncer once per gesture tick. The tick counts
// as sent whether or not an event goes out.
func (s *Session) tickGesture(ctx context.Context, obs gesture.Observation, now time.Time) {
	s.sched.MarkSent(schedule.Gesture, now)

	e, ok := s.debouncer.Observe(obs)
	if !ok {
		return
	}
	s.stats.Gestures++
	s.log.WithFields(logrus.Fields{
		"gesture":    e.Gesture,
		"confidence": e.Confidence,
		"device":     e.Action.Device,
	}).Info("gesture confirmed")

	if s.events != nil {
		s.events.Dispatch(ctx, e)
	}

	if !s.ready(ctx) {
		return
	}
	data, err := message.EncodeGesture(e, now)
	if err != nil {
		s.log.WithError(err).WithField("channel", schedule.Gesture).Error("encode gesture")
		return
	}
	s.send(ctx, schedule.Gesture, wsframe.OpText, data)
}
