package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharetube/watchsync/internal/domain"
)

func testConfig() *AppConfig {
	return &AppConfig{
		Host:       "127.0.0.1",
		LogLevel:   "debug",
		LogFormat:  "json",
		SendBuffer: 64,
		PingPeriod: time.Minute,
		SessionTTL: 24 * time.Hour,
	}
}

func newTestServer(t *testing.T, cfg *AppConfig) *httptest.Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler, cleanup, err := NewHandler(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(cleanup)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

type client struct {
	t    *testing.T
	conn *websocket.Conn
	id   string
}

func dial(t *testing.T, srv *httptest.Server) *client {
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	c := &client{t: t, conn: conn}
	msg := c.next()
	require.Equal(t, domain.TypeConnected, msg.Type)
	var p domain.ConnectedPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &p))
	c.id = p.ConnectionID
	require.NotEmpty(t, c.id)

	return c
}

func (c *client) send(msgType string, payload any) {
	require.NoError(c.t, c.conn.WriteJSON(domain.Output{Type: msgType, Payload: payload}))
}

func (c *client) next() domain.Message {
	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg domain.Message
	require.NoError(c.t, c.conn.ReadJSON(&msg))
	return msg
}

func (c *client) expect(msgType string, dst any) {
	msg := c.next()
	require.Equal(c.t, msgType, msg.Type, "payload: %s", msg.Payload)
	if dst != nil {
		require.NoError(c.t, json.Unmarshal(msg.Payload, dst))
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, testConfig())

	resp, err := http.Get(srv.URL + "/api/v1/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))
}

func TestWatchPartyOverWebsocket(t *testing.T) {
	srv := newTestServer(t, testConfig())
	a := dial(t, srv)
	b := dial(t, srv)

	a.send(domain.TypeJoin, domain.JoinPayload{RoomID: "r1", Username: "alice"})
	var initial domain.SyncPayload
	a.expect(domain.TypeSync, &initial)
	assert.True(t, initial.IsInitialSync)
	assert.Equal(t, domain.SystemUsername, initial.Username)
	a.expect(domain.TypeRoster, nil)

	b.send(domain.TypeJoin, domain.JoinPayload{RoomID: "r1", Username: "bob"})
	b.expect(domain.TypeSync, nil)
	var roster domain.RosterPayload
	b.expect(domain.TypeRoster, &roster)
	require.Len(t, roster.Users, 2)
	assert.Equal(t, a.id, roster.Users[0].ID)
	assert.Equal(t, b.id, roster.Users[1].ID)
	a.expect(domain.TypeRoster, nil)

	a.send(domain.TypeSeek, domain.TimePayload{Time: 120, Username: "alice"})
	var ack, sync domain.SyncPayload
	a.expect(domain.TypeAck, &ack)
	b.expect(domain.TypeSync, &sync)
	assert.Equal(t, ack, sync)
	assert.Equal(t, domain.SyncPayload{Position: 120, Username: "alice"}, ack)

	b.conn.Close()
	a.expect(domain.TypeRoster, &roster)
	assert.Len(t, roster.Users, 1)

	resp, err := http.Get(srv.URL + "/api/v1/rooms")
	require.NoError(t, err)
	defer resp.Body.Close()
	var rooms struct {
		Data []struct {
			ID    string `json:"id"`
			Users int    `json:"users"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rooms))
	require.Len(t, rooms.Data, 1)
	assert.Equal(t, "r1", rooms.Data[0].ID)
	assert.Equal(t, 1, rooms.Data[0].Users)
}

func TestInvalidJoinIsIgnored(t *testing.T) {
	srv := newTestServer(t, testConfig())
	a := dial(t, srv)

	a.send(domain.TypeJoin, domain.JoinPayload{RoomID: "", Username: "alice"})
	a.send("bogus", nil)
	a.send(domain.TypeJoin, domain.JoinPayload{RoomID: "r1", Username: "alice"})

	var initial domain.SyncPayload
	a.expect(domain.TypeSync, &initial)
	assert.True(t, initial.IsInitialSync)
}

func postJSON(t *testing.T, url, token string, body any) *http.Response {
	js, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(js))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestGuestAuthWithRedis(t *testing.T) {
	s := miniredis.RunT(t)
	port, err := strconv.Atoi(s.Port())
	require.NoError(t, err)

	cfg := testConfig()
	cfg.RedisHost = s.Host()
	cfg.RedisPort = port
	srv := newTestServer(t, cfg)

	resp := postJSON(t, srv.URL+"/api/v1/auth/guest", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/api/v1/auth/guest", "", map[string]string{"username": "alice"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		Data struct {
			User struct {
				ID       string `json:"id"`
				Username string `json:"username"`
			} `json:"user"`
			Session struct {
				Token      string `json:"token"`
				DeviceType string `json:"deviceType"`
			} `json:"session"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.True(t, strings.HasPrefix(created.Data.User.ID, "guest_"))
	assert.Equal(t, "web", created.Data.Session.DeviceType)
	assert.Len(t, s.Keys(), 1)

	resp = postJSON(t, srv.URL+"/api/v1/auth/logout", created.Data.Session.Token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, s.Keys())

	resp = postJSON(t, srv.URL+"/api/v1/auth/logout", created.Data.Session.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestStreamNotConfigured(t *testing.T) {
	srv := newTestServer(t, testConfig())

	resp, err := http.Get(srv.URL + "/api/v1/stream")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestValidate(t *testing.T) {
	cfg := testConfig()
	require.NoError(t, cfg.Validate())

	cfg.LogFormat = "xml"
	assert.Error(t, cfg.Validate())

	cfg = testConfig()
	cfg.LogLevel = "loud"
	assert.Error(t, cfg.Validate())

	cfg = testConfig()
	cfg.SendBuffer = 0
	assert.Error(t, cfg.Validate())
}
