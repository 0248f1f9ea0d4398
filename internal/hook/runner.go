package hook

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/visionlink/internal/gesture"
)

// Runner dispatches gesture events to subscribed hooks. Each hook runs in
// its own goroutine so a slow hook never stalls the capture loop.
type Runner struct {
	manager  *Manager
	executor *Executor
	log      logrus.FieldLogger
	now      func() time.Time
	wg       sync.WaitGroup
}

// NewRunner creates a Runner over discovered hooks.
func NewRunner(m *Manager, e *Executor, log logrus.FieldLogger) *Runner {
	return &Runner{
		manager:  m,
		executor: e,
		log:      log.WithField("component", "hooks"),
		now:      time.Now,
	}
}

// Dispatch starts every hook subscribed to e.Gesture and returns at once.
// Hook runs are not cancelled with ctx; the executor timeout bounds them.
func (r *Runner) Dispatch(ctx context.Context, e gesture.Event) {
	hooks := r.manager.For(e.Gesture)
	if len(hooks) == 0 {
		return
	}

	req := &Request{
		Gesture:    e.Gesture,
		Confidence: e.Confidence,
		Action:     e.Action,
		Timestamp:  r.now().UnixMilli(),
	}

	for _, h := range hooks {
		r.wg.Add(1)
		go func(h *Hook) {
			defer r.wg.Done()
			r.run(context.WithoutCancel(ctx), h, req)
		}(h)
	}
}

func (r *Runner) run(ctx context.Context, h *Hook, req *Request) {
	log := r.log.WithFields(logrus.Fields{
		"hook":    h.Manifest.Name,
		"gesture": req.Gesture,
	})

	resp, err := r.executor.Execute(ctx, h, req)
	if err != nil {
		log.WithError(err).Warn("hook failed")
		return
	}
	if !resp.Success {
		log.WithField("error", resp.Error).Warn("hook reported failure")
		return
	}
	log.Debug("hook succeeded")
}

// Wait blocks until all dispatched hooks have finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}
