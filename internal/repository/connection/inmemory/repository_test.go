package inmemory

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharetube/watchsync/internal/domain"
	"github.com/sharetube/watchsync/internal/repository/connection"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type nopConn struct{ id string }

func (nopConn) Send(*domain.Output) error { return nil }
func (nopConn) Close()                    {}

func TestAddRejectsDuplicate(t *testing.T) {
	r := NewRepo(discard)

	require.NoError(t, r.Add("a", nopConn{"a"}))
	assert.ErrorIs(t, r.Add("a", nopConn{"a"}), connection.ErrAlreadyExists)
	assert.Equal(t, 1, r.Len())
}

func TestBindAndResolveRoom(t *testing.T) {
	r := NewRepo(discard)
	require.NoError(t, r.Add("a", nopConn{"a"}))

	_, err := r.GetRoomID("a")
	assert.ErrorIs(t, err, connection.ErrNotInRoom)

	require.NoError(t, r.BindRoom("a", "r1"))
	roomID, err := r.GetRoomID("a")
	require.NoError(t, err)
	assert.Equal(t, "r1", roomID)

	require.NoError(t, r.UnbindRoom("a"))
	_, err = r.GetRoomID("a")
	assert.ErrorIs(t, err, connection.ErrNotInRoom)
}

func TestUnknownConnection(t *testing.T) {
	r := NewRepo(discard)

	_, err := r.GetRoomID("x")
	assert.ErrorIs(t, err, connection.ErrNotFound)
	_, err = r.GetConn("x")
	assert.ErrorIs(t, err, connection.ErrNotFound)
	assert.ErrorIs(t, r.BindRoom("x", "r1"), connection.ErrNotFound)
	assert.ErrorIs(t, r.UnbindRoom("x"), connection.ErrNotFound)
	_, err = r.Remove("x")
	assert.ErrorIs(t, err, connection.ErrNotFound)
}

func TestRemoveReturnsBoundRoom(t *testing.T) {
	r := NewRepo(discard)
	require.NoError(t, r.Add("a", nopConn{"a"}))
	require.NoError(t, r.BindRoom("a", "r1"))

	roomID, err := r.Remove("a")
	require.NoError(t, err)
	assert.Equal(t, "r1", roomID)
	assert.Zero(t, r.Len())
}

func TestGetConnsKeepsOrderAndSkipsUnknown(t *testing.T) {
	r := NewRepo(discard)
	require.NoError(t, r.Add("a", nopConn{"a"}))
	require.NoError(t, r.Add("b", nopConn{"b"}))

	conns := r.GetConns([]string{"b", "zzz", "a"})
	require.Len(t, conns, 2)
	assert.Equal(t, nopConn{"b"}, conns[0])
	assert.Equal(t, nopConn{"a"}, conns[1])

	conn, err := r.GetConn("a")
	require.NoError(t, err)
	assert.Equal(t, nopConn{"a"}, conn)
}

func TestRepoLogsToInjectedLogger(t *testing.T) {
	var buf bytes.Buffer
	r := NewRepo(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	require.NoError(t, r.Add("a", nopConn{"a"}))
	_, err := r.GetRoomID("b")
	require.Error(t, err)

	assert.Contains(t, buf.String(), "connection.inmemory.Add")
	assert.Contains(t, buf.String(), "connection.inmemory.GetRoomID")
}
