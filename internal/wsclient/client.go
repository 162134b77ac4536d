package wsclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sharetube/watchsync/internal/domain"
)

var (
	ErrNotConnected    = errors.New("not connected")
	ErrReconnectFailed = errors.New("reconnect attempts exhausted")
)

type Config struct {
	URL         string
	Header      http.Header
	MaxAttempts int
	MinDelay    time.Duration
	MaxDelay    time.Duration
	WriteWait   time.Duration
}

func (cfg *Config) withDefaults() Config {
	c := *cfg
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 10
	}
	if c.MinDelay <= 0 {
		c.MinDelay = time.Second
	}
	if c.MaxDelay < c.MinDelay {
		c.MaxDelay = 5 * time.Second
		if c.MaxDelay < c.MinDelay {
			c.MaxDelay = c.MinDelay
		}
	}
	if c.WriteWait <= 0 {
		c.WriteWait = 10 * time.Second
	}

	return c
}

type Handlers struct {
	// OnConnect runs on every established connection before any message
	// is read. reconnect is false only for the first one.
	OnConnect func(reconnect bool)
	OnMessage func(domain.Message)
}

type Client struct {
	cfg      Config
	handlers Handlers
	dialer   *websocket.Dialer
	logger   *slog.Logger

	writeMu sync.Mutex
	conn    *websocket.Conn
}

func New(cfg *Config, handlers Handlers, logger *slog.Logger) *Client {
	return &Client{
		cfg:      cfg.withDefaults(),
		handlers: handlers,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Run connects and reads until ctx is done. A dropped connection is redialed
// with growing delays; Run gives up with ErrReconnectFailed once every
// attempt has failed. A failed first dial is returned as is.
func (c *Client) Run(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}

	reconnect := false
	for {
		c.setConn(conn)
		if c.handlers.OnConnect != nil {
			c.handlers.OnConnect(reconnect)
		}

		err := c.readLoop(ctx, conn)
		c.setConn(nil)
		conn.Close()
		if ctx.Err() != nil {
			return nil
		}
		c.logger.WarnContext(ctx, "connection lost", "error", err)

		conn, err = c.redial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		reconnect = true
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL, c.cfg.Header)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", c.cfg.URL, err)
	}

	return conn, nil
}

func (c *Client) redial(ctx context.Context) (*websocket.Conn, error) {
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		delay := c.delay(attempt)
		c.logger.InfoContext(ctx, "reconnecting", "attempt", attempt, "delay", delay)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}

		conn, err := c.dial(ctx)
		if err == nil {
			c.logger.InfoContext(ctx, "reconnected", "attempt", attempt)
			return conn, nil
		}
		c.logger.DebugContext(ctx, "reconnect attempt failed", "attempt", attempt, "error", err)
	}

	return nil, ErrReconnectFailed
}

// delay doubles from MinDelay and is capped at MaxDelay.
func (c *Client) delay(attempt int) time.Duration {
	d := c.cfg.MinDelay
	for i := 1; i < attempt && d < c.cfg.MaxDelay; i++ {
		d *= 2
	}

	return min(d, c.cfg.MaxDelay)
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var msg domain.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.WarnContext(ctx, "failed to decode message", "error", err)
			continue
		}

		if c.handlers.OnMessage != nil {
			c.handlers.OnMessage(msg)
		}
	}
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn = conn
}

// Send writes one command. It fails with ErrNotConnected while the client is
// between connections.
func (c *Client) Send(msgType string, payload any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.conn == nil {
		return ErrNotConnected
	}

	if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)); err != nil {
		return err
	}

	return c.conn.WriteJSON(domain.Output{Type: msgType, Payload: payload})
}
