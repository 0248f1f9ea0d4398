package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// DefaultTimeout bounds a single hook run.
const DefaultTimeout = 5 * time.Second

// ErrTimeout is returned when a hook does not finish within the timeout.
var ErrTimeout = errors.New("hook timed out")

// Executor runs hooks with a timeout.
type Executor struct {
	timeout time.Duration
}

// NewExecutor creates a new Executor. A non-positive timeout selects
// DefaultTimeout.
func NewExecutor(timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Executor{timeout: timeout}
}

// Execute runs h with req on stdin and parses its stdout as a Response.
func (e *Executor) Execute(ctx context.Context, h *Hook, req *Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, h.Executable)
	cmd.Dir = h.Path
	// Children that inherit stdout must not hold Run open past the timeout.
	cmd.WaitDelay = time.Second

	reqJSON, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	cmd.Stdin = bytes.NewReader(reqJSON)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w after %s", ErrTimeout, e.timeout)
	}

	if err != nil {
		if s := stderr.String(); s != "" {
			return nil, fmt.Errorf("run hook %s: %w, stderr: %s", h.Manifest.Name, err, s)
		}
		return nil, fmt.Errorf("run hook %s: %w", h.Manifest.Name, err)
	}

	var resp Response
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("parse hook response: %w, stdout: %s", err, stdout.String())
	}
	return &resp, nil
}
