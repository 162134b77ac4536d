package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sessionRedis "github.com/sharetube/watchsync/internal/repository/session/redis"
)

func TestGuestSessionFlow(t *testing.T) {
	s := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer rc.Close()

	svc := NewService(sessionRedis.NewRepo(rc, slog.New(slog.NewTextHandler(io.Discard, nil))), &Config{SessionTTL: 24 * time.Hour})
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	created, err := svc.CreateGuest(ctx, &CreateGuestParams{Username: "alice"})
	require.NoError(t, err)
	assert.Regexp(t, `^guest_[0-9a-f]{9}$`, created.User.ID)
	assert.Equal(t, "alice", created.User.Username)
	assert.Equal(t, now, created.User.CreatedAt)
	assert.Equal(t, created.User.ID, created.Session.UserID)
	assert.Equal(t, "web", created.Session.DeviceType)
	assert.Equal(t, now.Add(24*time.Hour), created.Session.ExpiresAt)
	assert.NotEmpty(t, created.Session.Token)

	later := now.Add(time.Hour)
	svc.now = func() time.Time { return later }
	got, err := svc.GetSession(ctx, created.Session.Token)
	require.NoError(t, err)
	assert.Equal(t, created.Session, got.Session)
	assert.Equal(t, later, got.User.LastSeen)

	require.NoError(t, svc.Logout(ctx, created.Session.Token))
	_, err = svc.GetSession(ctx, created.Session.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.ErrorIs(t, svc.Logout(ctx, created.Session.Token), ErrUnauthorized)
}
