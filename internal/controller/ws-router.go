package controller

import (
	"context"

	"github.com/sharetube/watchsync/internal/domain"
	"github.com/sharetube/watchsync/pkg/wsrouter"
)

func (c controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()
	mux.Use(c.wsRequestIdWSMw(), c.loggerWSMw())
	mux.OnError = func(ctx context.Context, err error) {
		c.logger.WarnContext(ctx, "websocket message failed", "error", err)
	}

	// room
	wsrouter.Handle(mux, domain.TypeJoin, c.handleJoin)
	wsrouter.Handle(mux, domain.TypeLeave, c.handleLeave)

	// player
	wsrouter.Handle(mux, domain.TypePlay, c.handlePlay)
	wsrouter.Handle(mux, domain.TypePause, c.handlePause)
	wsrouter.Handle(mux, domain.TypeSeek, c.handleSeek)

	// roster
	wsrouter.Handle(mux, domain.TypeSetReady, c.handleSetReady)
	wsrouter.Handle(mux, domain.TypeRequestRole, c.handleRequestRole)

	return mux
}
