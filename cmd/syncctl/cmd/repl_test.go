package cmd

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharetube/watchsync/internal/domain"
	"github.com/sharetube/watchsync/internal/player"
	"github.com/sharetube/watchsync/internal/syncagent"
)

type fakeAgent struct {
	calls  []string
	status syncagent.Status
}

func (a *fakeAgent) OnInteraction() { a.calls = append(a.calls, "interaction") }

func (a *fakeAgent) SetReady(ready bool) error {
	if ready {
		a.calls = append(a.calls, "ready")
	} else {
		a.calls = append(a.calls, "unready")
	}
	return nil
}

func (a *fakeAgent) RequestRole(role domain.Role) error {
	a.calls = append(a.calls, "role:"+string(role))
	return nil
}

func (a *fakeAgent) Status() syncagent.Status { return a.status }

func (a *fakeAgent) OnTransportReady() { a.calls = append(a.calls, "ready-event") }
func (a *fakeAgent) OnPlay()           { a.calls = append(a.calls, "play-event") }
func (a *fakeAgent) OnPause()          { a.calls = append(a.calls, "pause-event") }
func (a *fakeAgent) OnSeeked()         { a.calls = append(a.calls, "seeked-event") }
func (a *fakeAgent) OnEnded()          { a.calls = append(a.calls, "ended-event") }

type fakePlayer struct {
	calls []string
	seeks []float64
}

func (p *fakePlayer) Play() error { p.calls = append(p.calls, "play"); return nil }
func (p *fakePlayer) Pause()      { p.calls = append(p.calls, "pause") }

func (p *fakePlayer) Seek(position float64) {
	p.calls = append(p.calls, "seek")
	p.seeks = append(p.seeks, position)
}

func newRepl() (*repl, *fakeAgent, *fakePlayer, *bytes.Buffer) {
	a := &fakeAgent{}
	p := &fakePlayer{}
	out := &bytes.Buffer{}
	return &repl{agent: a, player: p, out: out}, a, p, out
}

func TestReplPlaybackCommandsMarkInteraction(t *testing.T) {
	r, a, p, _ := newRepl()

	require.NoError(t, r.exec("play"))
	require.NoError(t, r.exec("pause"))
	require.NoError(t, r.exec("seek 12.5"))

	assert.Equal(t, []string{"interaction", "interaction", "interaction"}, a.calls)
	assert.Equal(t, []string{"play", "pause", "seek"}, p.calls)
	assert.Equal(t, []float64{12.5}, p.seeks)
}

func TestReplSeekArguments(t *testing.T) {
	r, a, p, _ := newRepl()

	assert.Error(t, r.exec("seek"))
	assert.Error(t, r.exec("seek abc"))
	assert.Error(t, r.exec("seek -4"))
	assert.Error(t, r.exec("seek 1 2"))

	assert.Empty(t, a.calls)
	assert.Empty(t, p.calls)
}

func TestReplRoomCommands(t *testing.T) {
	r, a, _, _ := newRepl()

	require.NoError(t, r.exec("ready"))
	require.NoError(t, r.exec("unready"))
	require.NoError(t, r.exec("participate"))
	require.NoError(t, r.exec("spectate"))

	assert.Equal(t, []string{"ready", "unready", "role:participant", "role:spectator"}, a.calls)
}

func TestReplParsing(t *testing.T) {
	r, _, _, _ := newRepl()

	assert.NoError(t, r.exec("   "))
	assert.ErrorIs(t, r.exec("quit"), errQuit)
	assert.ErrorContains(t, r.exec("rewind"), "unknown command")
	assert.Error(t, r.exec(`seek "12`))
}

func TestReplStatus(t *testing.T) {
	r, a, _, out := newRepl()
	a.status = syncagent.Status{
		RoomID:   "r1",
		Role:     domain.RoleParticipant,
		Synced:   true,
		Playing:  true,
		Position: 42,
		Users: []domain.User{
			{ID: "c1", Username: "alice", Role: domain.RoleParticipant, Ready: true},
			{ID: "c2", Username: "bob", Role: domain.RoleSpectator},
		},
		AllParticipantsReady: true,
	}

	require.NoError(t, r.exec("status"))

	text := out.String()
	assert.Contains(t, text, "room r1 as participant, synced=true")
	assert.Contains(t, text, "playing at 42.0s")
	assert.Contains(t, text, "everyone is ready")
	assert.Contains(t, text, "alice (participant, ready)")
	assert.Contains(t, text, "bob (spectator)")
}

func TestReplRunStopsOnQuit(t *testing.T) {
	r, a, _, out := newRepl()

	err := r.run(strings.NewReader("ready\nbogus\nquit\nunready\n"))

	require.NoError(t, err)
	assert.Equal(t, []string{"ready"}, a.calls)
	assert.Contains(t, out.String(), `error: unknown command "bogus"`)
}

func TestForwardPlayerEvents(t *testing.T) {
	a := &fakeAgent{}

	for _, e := range []player.Event{player.EventReady, player.EventPlay, player.EventPause, player.EventSeeked, player.EventEnded} {
		forward(a, e)
	}

	assert.Equal(t, []string{"ready-event", "play-event", "pause-event", "seeked-event", "ended-event"}, a.calls)
}

func TestEndpoint(t *testing.T) {
	t.Cleanup(viper.Reset)

	viper.Set(serverKey, "https://watch.example.com/base/")
	got, err := endpoint("/api/v1/ws", true)
	require.NoError(t, err)
	assert.Equal(t, "wss://watch.example.com/base/api/v1/ws", got)

	viper.Set(serverKey, "http://localhost:3001")
	got, err = endpoint("/api/v1/stream", false)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3001/api/v1/stream", got)
}

func TestCallDecodesEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Write([]byte(`{"data":{"url":"http://x/a.m3u8","duration":12.5}}`))
		case "/bad":
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"errors":{"username":"username is required"}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	var d struct {
		URL      string  `json:"url"`
		Duration float64 `json:"duration"`
	}
	require.NoError(t, call(context.Background(), http.MethodGet, srv.URL+"/ok", nil, &d))
	assert.Equal(t, 12.5, d.Duration)

	err := call(context.Background(), http.MethodPost, srv.URL+"/bad", map[string]string{}, nil)
	assert.ErrorContains(t, err, "username is required")

	err = call(context.Background(), http.MethodGet, srv.URL+"/missing", nil, nil)
	assert.ErrorIs(t, err, errNotFound)
}
