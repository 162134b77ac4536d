package wsrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrUnknownMessageType = errors.New("unknown message type")
	ErrInvalidPayload     = errors.New("invalid payload")
)

type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Conn is the read side of a websocket connection.
type Conn interface {
	ReadJSON(v any) error
}

type HandlerFunc[T any] func(ctx context.Context, conn Conn, payload T) error

type Middleware func(next HandlerFunc[any]) HandlerFunc[any]

type route struct {
	decode  func(json.RawMessage) (any, error)
	handler HandlerFunc[any]
}

type WSRouter struct {
	routes      map[string]route
	middlewares []Middleware
	// OnError receives handler and decoding errors. ServeConn keeps reading after them.
	OnError func(ctx context.Context, err error)
}

func New() *WSRouter {
	return &WSRouter{routes: make(map[string]route)}
}

func (r *WSRouter) Use(middlewares ...Middleware) {
	r.middlewares = append(r.middlewares, middlewares...)
}

// Handle registers a handler whose payload is decoded into T.
func Handle[T any](r *WSRouter, messageType string, handler HandlerFunc[T]) {
	r.routes[messageType] = route{
		decode: func(raw json.RawMessage) (any, error) {
			var payload T
			if len(raw) == 0 || string(raw) == "null" {
				return payload, nil
			}
			if err := json.Unmarshal(raw, &payload); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
			}

			return payload, nil
		},
		handler: func(ctx context.Context, conn Conn, payload any) error {
			return handler(ctx, conn, payload.(T))
		},
	}
}

func (r *WSRouter) chain(h HandlerFunc[any]) HandlerFunc[any] {
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		h = r.middlewares[i](h)
	}

	return h
}

// ServeConn reads messages until the connection fails or ctx is done, and
// returns the read error.
func (r *WSRouter) ServeConn(ctx context.Context, conn Conn) error {
	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		msgCtx := context.WithValue(ctx, messageTypeKey, msg.Type)

		rt, ok := r.routes[msg.Type]
		if !ok {
			r.fail(msgCtx, fmt.Errorf("%w: %q", ErrUnknownMessageType, msg.Type))
			continue
		}

		payload, err := rt.decode(msg.Payload)
		if err != nil {
			r.fail(msgCtx, err)
			continue
		}

		if err := r.chain(rt.handler)(msgCtx, conn, payload); err != nil {
			r.fail(msgCtx, err)
		}
	}
}

func (r *WSRouter) fail(ctx context.Context, err error) {
	if r.OnError != nil {
		r.OnError(ctx, err)
	}
}
