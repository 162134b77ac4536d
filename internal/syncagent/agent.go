package syncagent

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/sharetube/watchsync/internal/domain"
)

// DefaultTolerance is how far, in seconds, the local position may drift from
// the last synchronized position before a seek is worth sending.
const DefaultTolerance = 0.5

// DefaultEchoTimeout is how long a sent command may stay unacknowledged
// before the agent stops waiting for it.
const DefaultEchoTimeout = 3 * time.Second

// Transport is the local media engine. Its events must be delivered to the
// agent asynchronously, never from inside one of these calls.
type Transport interface {
	Position() float64
	Duration() float64
	Paused() bool
	Seek(position float64)
	Play() error
	Pause()
}

// Channel carries commands to the server.
type Channel interface {
	Send(msgType string, payload any) error
}

type Identity struct {
	RoomID   string
	Username string
}

type Option func(*Agent)

func WithTolerance(tolerance float64) Option {
	return func(a *Agent) { a.tolerance = tolerance }
}

// WithEchoTimeout sets how long to wait for the server to acknowledge a
// command. Zero waits forever.
func WithEchoTimeout(timeout time.Duration) Option {
	return func(a *Agent) { a.echoTimeout = timeout }
}

func WithClock(now func() time.Time) Option {
	return func(a *Agent) { a.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) { a.logger = logger }
}

// Agent keeps a local transport in step with the room and turns local
// actions into commands, telling them apart from the transport events its
// own remote applications cause.
type Agent struct {
	mu        sync.Mutex
	transport Transport
	channel   Channel
	identity  Identity
	tolerance   float64
	echoTimeout time.Duration
	now         func() time.Time
	logger      *slog.Logger

	connectionID string
	role         domain.Role
	users        []domain.User
	allReady     bool

	interacted     bool
	pendingEcho    bool
	transportReady bool
	hasInitialSync bool
	deferred       *domain.SyncPayload
	pendingSince   time.Time
	// state the room had before the unacknowledged command
	confirmed playback

	// last state known to be shared with the room
	lastPosition float64
	lastPlaying  bool
	lastSyncedAt time.Time
}

type playback struct {
	position float64
	playing  bool
	syncedAt time.Time
}

func New(transport Transport, channel Channel, identity Identity, opts ...Option) *Agent {
	a := &Agent{
		transport: transport,
		channel:   channel,
		identity:  identity,
		tolerance:   DefaultTolerance,
		echoTimeout: DefaultEchoTimeout,
		now:         time.Now,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}

	return a
}

type Status struct {
	ConnectionID         string        `json:"connectionId"`
	RoomID               string        `json:"roomId"`
	Role                 domain.Role   `json:"role"`
	Users                []domain.User `json:"users"`
	AllParticipantsReady bool          `json:"allParticipantsReady"`
	Synced               bool          `json:"synced"`
	PendingEcho          bool          `json:"pendingEcho"`
	Position             float64       `json:"position"`
	Playing              bool          `json:"playing"`
}

func (a *Agent) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.expirePending()
	users := make([]domain.User, len(a.users))
	copy(users, a.users)

	return Status{
		ConnectionID:         a.connectionID,
		RoomID:               a.identity.RoomID,
		Role:                 a.role,
		Users:                users,
		AllParticipantsReady: a.allReady,
		Synced:               a.hasInitialSync && a.deferred == nil,
		PendingEcho:          a.pendingEcho,
		Position:             a.expectedPosition(),
		Playing:              a.lastPlaying,
	}
}

// Join asks the server to put this connection into the room.
func (a *Agent) Join() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.join()
}

func (a *Agent) join() error {
	return a.channel.Send(domain.TypeJoin, domain.JoinPayload{
		RoomID:   a.identity.RoomID,
		Username: a.identity.Username,
	})
}

// OnReconnect rejoins after the transport connection was re-established.
// The server forgot the old session, so all transient state is dropped and
// a fresh initial snapshot is expected.
func (a *Agent) OnReconnect() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.clearPending()
	a.hasInitialSync = false
	a.deferred = nil
	a.connectionID = ""
	a.role = ""
	a.users = nil
	a.allReady = false

	return a.join()
}

func (a *Agent) Leave() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.hasInitialSync = false
	a.deferred = nil
	a.clearPending()

	return a.channel.Send(domain.TypeLeave, struct{}{})
}

func (a *Agent) SetReady(ready bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.channel.Send(domain.TypeSetReady, domain.ReadyPayload{
		Username: a.identity.Username,
		Ready:    ready,
	})
}

func (a *Agent) RequestRole(role domain.Role) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.channel.Send(domain.TypeRequestRole, domain.RoleRequestPayload{
		Username:      a.identity.Username,
		RequestedRole: role,
	})
}

// HandleMessage applies one server event.
func (a *Agent) HandleMessage(msg domain.Message) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch msg.Type {
	case domain.TypeConnected:
		var p domain.ConnectedPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		a.connectionID = p.ConnectionID
	case domain.TypeSync:
		var p domain.SyncPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		a.onSync(p)
	case domain.TypeAck:
		var p domain.SyncPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		a.onAck(p)
	case domain.TypeRoster:
		var p domain.RosterPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		a.onRoster(p)
	case domain.TypeRoleUpdate:
		var p domain.RoleUpdatePayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		if a.connectionID == "" || p.UserID == a.connectionID {
			a.setRole(p.Role)
		}
	default:
		a.logger.Debug("unknown message type", "type", msg.Type)
	}

	return nil
}

func decode(msg domain.Message, dst any) error {
	if err := json.Unmarshal(msg.Payload, dst); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", msg.Type, err)
	}

	return nil
}

func (a *Agent) onSync(p domain.SyncPayload) {
	// the server has moved on, so any command still in flight was dropped
	a.dropPending()
	if p.IsInitialSync {
		a.hasInitialSync = true
	}

	if !a.transportReady {
		if !a.hasInitialSync {
			a.logger.Debug("sync dropped before initial snapshot")
			return
		}
		// the latest state wins once the transport can take it
		a.deferred = &p
		a.logger.Debug("sync deferred until transport is ready", "position", p.Position)
		return
	}

	a.apply(p)
}

func (a *Agent) onAck(p domain.SyncPayload) {
	a.clearPending()
	if !a.transportReady {
		a.deferred = &p
		return
	}

	a.apply(p)
}

func (a *Agent) onRoster(p domain.RosterPayload) {
	a.users = p.Users
	a.allReady = p.AllParticipantsReady

	for _, u := range p.Users {
		if u.ID == a.connectionID {
			a.setRole(u.Role)
			return
		}
	}
}

func (a *Agent) setRole(role domain.Role) {
	a.role = role
	if role != domain.RoleParticipant {
		a.dropPending()
	}
}

func (a *Agent) clearPending() {
	a.pendingEcho = false
	a.pendingSince = time.Time{}
}

// dropPending gives up on the unacknowledged command and goes back to the
// state the room had before it.
func (a *Agent) dropPending() {
	if !a.pendingEcho {
		return
	}

	a.lastPosition = a.confirmed.position
	a.lastPlaying = a.confirmed.playing
	a.lastSyncedAt = a.confirmed.syncedAt
	a.clearPending()
}

func (a *Agent) expirePending() {
	if !a.pendingEcho || a.echoTimeout <= 0 || a.now().Sub(a.pendingSince) < a.echoTimeout {
		return
	}

	a.logger.Debug("command was not acknowledged", "after", a.echoTimeout)
	a.dropPending()
}

// apply makes the transport match p, seeking first and then setting the
// play state, and records p as the last synchronized state.
func (a *Agent) apply(p domain.SyncPayload) {
	a.lastPosition = p.Position
	a.lastPlaying = p.IsPlaying
	a.lastSyncedAt = a.now()

	if math.Abs(a.transport.Position()-p.Position) > a.tolerance {
		a.transport.Seek(p.Position)
	}

	switch {
	case p.IsPlaying && a.transport.Paused():
		if err := a.transport.Play(); err != nil {
			a.logger.Warn("transport refused to play", "error", err)
		}
	case !p.IsPlaying && !a.transport.Paused():
		a.transport.Pause()
	}
}

// expectedPosition extrapolates the last synchronized position while playing.
func (a *Agent) expectedPosition() float64 {
	if !a.lastPlaying || a.lastSyncedAt.IsZero() {
		return a.lastPosition
	}

	return a.lastPosition + a.now().Sub(a.lastSyncedAt).Seconds()
}

// OnTransportReady is called when the media engine can accept seek and play.
func (a *Agent) OnTransportReady() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.transportReady = true
	if a.deferred != nil {
		p := *a.deferred
		a.deferred = nil
		a.apply(p)
	}
}

// OnInteraction records that the viewer has used the local controls.
func (a *Agent) OnInteraction() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.interacted = true
}

func (a *Agent) canEmit() bool {
	a.expirePending()

	switch {
	case !a.interacted:
		return false
	case a.pendingEcho:
		return false
	case !a.hasInitialSync || a.deferred != nil:
		return false
	case a.role != domain.RoleParticipant:
		return false
	}

	return true
}

func (a *Agent) emit(msgType string, position float64, playing bool) {
	if err := a.channel.Send(msgType, domain.TimePayload{
		Time:     position,
		Username: a.identity.Username,
	}); err != nil {
		a.logger.Warn("failed to send command", "type", msgType, "error", err)
		return
	}

	a.confirmed = playback{position: a.lastPosition, playing: a.lastPlaying, syncedAt: a.lastSyncedAt}
	a.pendingEcho = true
	a.pendingSince = a.now()
	a.lastPosition = position
	a.lastPlaying = playing
	a.lastSyncedAt = a.now()
}

// OnPlay handles a play event from the transport. Events arrive after the
// fact, so the transport must still be playing for the event to count.
func (a *Agent) OnPlay() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.canEmit() || a.lastPlaying || a.transport.Paused() {
		return
	}

	a.emit(domain.TypePlay, a.transport.Position(), true)
}

// OnPause handles a pause event from the transport.
func (a *Agent) OnPause() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.canEmit() || !a.lastPlaying || !a.transport.Paused() {
		return
	}

	a.emit(domain.TypePause, a.transport.Position(), false)
}

// OnSeeked handles a seek event from the transport. Small moves are ignored.
func (a *Agent) OnSeeked() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.canEmit() {
		return
	}

	position := a.transport.Position()
	if math.Abs(position-a.expectedPosition()) <= a.tolerance {
		return
	}

	a.emit(domain.TypeSeek, position, a.lastPlaying)
}

// OnEnded pauses the room at the end of the stream.
func (a *Agent) OnEnded() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.canEmit() {
		return
	}

	a.emit(domain.TypePause, a.transport.Duration(), false)
}
