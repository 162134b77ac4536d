package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/sharetube/watchsync/internal/repository/session"
)

type repo struct {
	rc     *redis.Client
	logger *slog.Logger
}

func NewRepo(rc *redis.Client, logger *slog.Logger) *repo {
	return &repo{rc: rc, logger: logger}
}

func (r repo) getSessionKey(token string) string {
	return "session:" + token
}

func (r repo) Set(ctx context.Context, params *session.SetParams) error {
	funcName := "session.redis.Set"
	r.logger.DebugContext(ctx, funcName, "userID", params.Session.UserID)
	value, err := json.Marshal(params.Session)
	if err != nil {
		return err
	}

	ok, err := r.rc.SetNX(ctx, r.getSessionKey(params.Session.Token), value, params.TTL).Result()
	if err != nil {
		r.logger.ErrorContext(ctx, funcName, "error", err)
		return err
	}

	if !ok {
		r.logger.DebugContext(ctx, funcName, "error", session.ErrAlreadyExists)
		return session.ErrAlreadyExists
	}

	return nil
}

func (r repo) Get(ctx context.Context, token string) (session.Session, error) {
	funcName := "session.redis.Get"
	r.logger.DebugContext(ctx, funcName)
	if token == "" {
		return session.Session{}, session.ErrNotFound
	}

	value, err := r.rc.Get(ctx, r.getSessionKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.logger.DebugContext(ctx, funcName, "error", session.ErrNotFound)
			return session.Session{}, session.ErrNotFound
		}
		r.logger.ErrorContext(ctx, funcName, "error", err)
		return session.Session{}, err
	}

	var s session.Session
	if err := json.Unmarshal(value, &s); err != nil {
		r.logger.ErrorContext(ctx, funcName, "error", err)
		return session.Session{}, err
	}

	r.logger.DebugContext(ctx, funcName, "userID", s.UserID)
	return s, nil
}

func (r repo) Delete(ctx context.Context, token string) error {
	funcName := "session.redis.Delete"
	r.logger.DebugContext(ctx, funcName)
	n, err := r.rc.Del(ctx, r.getSessionKey(token)).Result()
	if err != nil {
		r.logger.ErrorContext(ctx, funcName, "error", err)
		return err
	}

	if n == 0 {
		return session.ErrNotFound
	}

	return nil
}
