package controller

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/sharetube/watchsync/internal/domain"
	"github.com/sharetube/watchsync/internal/service/room"
	"github.com/sharetube/watchsync/pkg/ctxlogger"
	"github.com/sharetube/watchsync/pkg/wsrouter"
)

func (c controller) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}

	connectionID := uuid.NewString()
	ctx := ctxlogger.AppendCtx(context.WithoutCancel(r.Context()), slog.String("conn_id", connectionID))
	ctx = context.WithValue(ctx, connectionIDCtxKey, connectionID)

	wc := newWSConn(conn, c.cfg.SendBuffer)
	go wc.writePump(c.cfg.PingPeriod, c.cfg.WriteWait)

	conn.SetReadLimit(c.cfg.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(c.cfg.pongWait()))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.cfg.pongWait()))
	})

	if err := c.roomService.Connect(ctx, connectionID, wc); err != nil {
		c.logger.ErrorContext(ctx, "failed to connect", "error", err)
		wc.Close()
		return
	}
	c.logger.InfoContext(ctx, "websocket connected", "remote_addr", r.RemoteAddr)

	defer func() {
		if err := c.roomService.Dispatch(ctx, connectionID, room.Disconnect{}); err != nil {
			c.logger.WarnContext(ctx, "failed to disconnect", "error", err)
		}
		wc.Close()
		c.logger.InfoContext(ctx, "websocket disconnected")
	}()

	if err := c.getWSRouter().ServeConn(ctx, wc); err != nil {
		c.logger.DebugContext(ctx, "websocket read loop ended", "error", err)
	}
}

func (c controller) validatePayload(payload any) error {
	if errs, ok := c.validate.Validate(payload); !ok {
		return fmt.Errorf("invalid payload: %+v", errs)
	}

	return nil
}

func (c controller) handleJoin(ctx context.Context, _ wsrouter.Conn, input domain.JoinPayload) error {
	if err := c.validatePayload(input); err != nil {
		return err
	}

	return c.roomService.Dispatch(ctx, c.getConnectionIDFromCtx(ctx), room.Join{
		RoomID:   input.RoomID,
		Username: input.Username,
	})
}

func (c controller) handleLeave(ctx context.Context, _ wsrouter.Conn, _ struct{}) error {
	return c.roomService.Dispatch(ctx, c.getConnectionIDFromCtx(ctx), room.Leave{})
}

func (c controller) handlePlay(ctx context.Context, _ wsrouter.Conn, input domain.TimePayload) error {
	if err := c.validatePayload(input); err != nil {
		return err
	}

	return c.roomService.Dispatch(ctx, c.getConnectionIDFromCtx(ctx), room.Play{
		Time:     input.Time,
		Username: input.Username,
	})
}

func (c controller) handlePause(ctx context.Context, _ wsrouter.Conn, input domain.TimePayload) error {
	if err := c.validatePayload(input); err != nil {
		return err
	}

	return c.roomService.Dispatch(ctx, c.getConnectionIDFromCtx(ctx), room.Pause{
		Time:     input.Time,
		Username: input.Username,
	})
}

func (c controller) handleSeek(ctx context.Context, _ wsrouter.Conn, input domain.TimePayload) error {
	if err := c.validatePayload(input); err != nil {
		return err
	}

	return c.roomService.Dispatch(ctx, c.getConnectionIDFromCtx(ctx), room.Seek{
		Time:     input.Time,
		Username: input.Username,
	})
}

func (c controller) handleSetReady(ctx context.Context, _ wsrouter.Conn, input domain.ReadyPayload) error {
	return c.roomService.Dispatch(ctx, c.getConnectionIDFromCtx(ctx), room.SetReady{
		Ready:    input.Ready,
		Username: input.Username,
	})
}

func (c controller) handleRequestRole(ctx context.Context, _ wsrouter.Conn, input domain.RoleRequestPayload) error {
	return c.roomService.Dispatch(ctx, c.getConnectionIDFromCtx(ctx), room.RequestRole{
		Role:     input.RequestedRole,
		Username: input.Username,
	})
}
