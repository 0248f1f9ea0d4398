// Package transport owns the client WebSocket connection to the viewer:
// the HTTP Upgrade handshake, frame writes, and reconnect pacing.
package transport

import (
	"bufio"
	"context"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/visionlink/internal/wsframe"
)

// acceptGUID is the fixed GUID from RFC 6455 section 1.3.
const acceptGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

// maxResponseBytes bounds how much of the handshake response is read.
const maxResponseBytes = 4096

// State is the connection state.
type State int

// Connection states.
const (
	Disconnected State = iota
	Handshaking
	Connected
	Failed
)

var (
	// ErrNotConnected is returned by Send outside the Connected state.
	ErrNotConnected = errors.New("transport: not connected")
	// ErrHandshake is returned when the server does not accept the upgrade.
	ErrHandshake = errors.New("transport: handshake rejected")
	// ErrBackoff is returned by Reconnect while the retry delay has not elapsed.
	ErrBackoff = errors.New("transport: reconnect deferred")
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Handshaking:
		return "handshaking"
	case Connected:
		return "connected"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Config holds connection settings.
type Config struct {
	Host string
	Port int
	Path string

	// DialTimeout bounds both the TCP connect and the handshake exchange.
	DialTimeout time.Duration
	// WriteTimeout bounds each frame write. Zero disables it.
	WriteTimeout time.Duration

	// InitialBackoff and MaxBackoff pace reconnect attempts after failures.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultConfig returns a Config with the reference timeouts.
func DefaultConfig() Config {
	return Config{
		Host:           "127.0.0.1",
		Port:           8080,
		Path:           "/",
		DialTimeout:    5 * time.Second,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
	}
}

// Addr returns host:port.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Client is a minimal, send-only WebSocket client. It is owned by a single
// goroutine; the mutex only guards State readers from other goroutines.
type Client struct {
	cfg Config
	log logrus.FieldLogger

	mu    sync.Mutex
	state State
	conn  net.Conn

	backoff *backoff.ExponentialBackOff
	retryAt time.Time
	now     func() time.Time
	maskKey func() [4]byte
}

// New creates a disconnected Client.
func New(cfg Config, log logrus.FieldLogger) *Client {
	if cfg.Path == "" {
		cfg.Path = "/"
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DefaultConfig().DialTimeout
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialBackoff
	b.MaxInterval = cfg.MaxBackoff
	b.MaxElapsedTime = 0 // never give up
	b.Reset()

	return &Client{
		cfg:     cfg,
		log:     log.WithField("peer", cfg.Addr()),
		state:   Disconnected,
		backoff: b,
		now:     time.Now,
		maskKey: wsframe.NewMaskKey,
	}
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Connect dials the server and performs the Upgrade handshake. On any
// failure the socket is released, the client is left Failed and the next
// retry time is pushed out by the backoff policy.
func (c *Client) Connect(ctx context.Context) error {
	c.release()
	c.setState(Handshaking)

	conn, err := c.handshake(ctx)
	if err != nil {
		c.setState(Failed)
		delay := c.backoff.NextBackOff()
		if c.cfg.MaxBackoff > 0 && delay > c.cfg.MaxBackoff {
			delay = c.cfg.MaxBackoff
		}
		c.retryAt = c.now().Add(delay)
		c.log.WithError(err).WithField("retry_in", delay).Warn("websocket connect failed")
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.state = Connected
	c.mu.Unlock()

	c.backoff.Reset()
	c.retryAt = time.Time{}
	c.log.Info("websocket connected")
	return nil
}

// Reconnect calls Connect unless the backoff delay from the previous
// failure is still running, in which case it returns ErrBackoff at once.
func (c *Client) Reconnect(ctx context.Context) error {
	if c.State() == Connected {
		return nil
	}
	if now := c.now(); now.Before(c.retryAt) {
		return fmt.Errorf("%w: %s left", ErrBackoff, c.retryAt.Sub(now).Round(time.Millisecond))
	}
	return c.Connect(ctx)
}

// RetryAt returns the earliest time Reconnect will touch the network.
func (c *Client) RetryAt() time.Time {
	return c.retryAt
}

func (c *Client) handshake(ctx context.Context) (net.Conn, error) {
	dialer := net.Dialer{Timeout: c.cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.cfg.Addr())
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.cfg.Addr(), err)
	}

	if err := conn.SetDeadline(c.now().Add(c.cfg.DialTimeout)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set deadline: %w", err)
	}

	key := newKey()
	if _, err := conn.Write([]byte(upgradeRequest(c.cfg, key))); err != nil {
		conn.Close()
		return nil, fmt.Errorf("write upgrade request: %w", err)
	}

	if err := readUpgradeResponse(conn, key); err != nil {
		conn.Close()
		return nil, err
	}

	if err := conn.SetDeadline(time.Time{}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("clear deadline: %w", err)
	}

	return conn, nil
}

// Send encodes payload as a single masked frame and writes it. A write
// error moves the client to Failed; there is no retry and no buffering.
func (c *Client) Send(op wsframe.Opcode, payload []byte) error {
	c.mu.Lock()
	conn, state := c.conn, c.state
	c.mu.Unlock()

	if state != Connected || conn == nil {
		return ErrNotConnected
	}

	frame := wsframe.EncodeWithKey(op, payload, c.maskKey())

	if c.cfg.WriteTimeout > 0 {
		if err := conn.SetWriteDeadline(c.now().Add(c.cfg.WriteTimeout)); err != nil {
			c.log.WithError(err).Debug("write deadline not set")
		}
	}
	if _, err := conn.Write(frame); err != nil {
		c.release()
		c.setState(Failed)
		return fmt.Errorf("write %s frame: %w", op, err)
	}

	return nil
}

// Close sends a normal-closure frame when connected and releases the socket.
func (c *Client) Close() error {
	c.mu.Lock()
	conn, state := c.conn, c.state
	c.mu.Unlock()

	if conn == nil {
		c.setState(Disconnected)
		return nil
	}

	if state == Connected {
		if err := conn.SetWriteDeadline(c.now().Add(time.Second)); err != nil {
			c.log.WithError(err).Debug("close deadline not set")
		}
		frame := wsframe.Encode(wsframe.OpClose, wsframe.ClosePayload(1000))
		if _, err := conn.Write(frame); err != nil {
			c.log.WithError(err).Debug("close frame not delivered")
		}
	}

	err := c.release()
	c.setState(Disconnected)
	c.log.Info("websocket closed")
	return err
}

func (c *Client) release() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}

// newKey returns a base64 Sec-WebSocket-Key built from 16 random bytes.
func newKey() string {
	id := uuid.New()
	return base64.StdEncoding.EncodeToString(id[:])
}

// AcceptKey computes the Sec-WebSocket-Accept value for key.
func AcceptKey(key string) string {
	h := sha1.New()
	h.Write([]byte(key + acceptGUID))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

func upgradeRequest(cfg Config, key string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "GET %s HTTP/1.1\r\n", cfg.Path)
	fmt.Fprintf(&b, "Host: %s\r\n", cfg.Addr())
	b.WriteString("Upgrade: websocket\r\n")
	b.WriteString("Connection: Upgrade\r\n")
	fmt.Fprintf(&b, "Sec-WebSocket-Key: %s\r\n", key)
	b.WriteString("Sec-WebSocket-Version: 13\r\n")
	b.WriteString("\r\n")
	return b.String()
}

// readUpgradeResponse reads the status line and headers. The status line
// must contain "101" and Sec-WebSocket-Accept must match key.
func readUpgradeResponse(conn net.Conn, key string) error {
	r := bufio.NewReaderSize(conn, maxResponseBytes)

	status, err := r.ReadString('\n')
	if err != nil {
		return fmt.Errorf("read status line: %w", err)
	}
	if !strings.Contains(status, "101") {
		return fmt.Errorf("%w: %s", ErrHandshake, strings.TrimSpace(status))
	}

	var accept string
	read := len(status)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return fmt.Errorf("read headers: %w", err)
		}
		read += len(line)
		if read > maxResponseBytes {
			return fmt.Errorf("%w: response headers too large", ErrHandshake)
		}

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}

		name, value, ok := strings.Cut(line, ":")
		if ok && strings.EqualFold(strings.TrimSpace(name), "Sec-WebSocket-Accept") {
			accept = strings.TrimSpace(value)
		}
	}

	if accept != AcceptKey(key) {
		return fmt.Errorf("%w: bad Sec-WebSocket-Accept %q", ErrHandshake, accept)
	}

	return nil
}
