package room

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sharetube/watchsync/internal/domain"
	"github.com/sharetube/watchsync/internal/repository/room"
)

var ErrUnknownCommand = errors.New("unknown command")

type iRoomRepo interface {
	AddUser(*room.AddUserParams) domain.Room
	RemoveUser(string) []room.RemovedUser
	SetPlayback(*room.SetPlaybackParams) (domain.Room, bool)
	SetPosition(*room.SetPositionParams) (domain.Room, bool)
	SetReady(*room.SetReadyParams) (domain.Room, bool)
	SetRole(*room.SetRoleParams) (domain.Room, bool)
	GetRoom(string) (domain.Room, bool)
	Rooms() []room.RoomInfo
}

type iConnRepo interface {
	Add(string, domain.Conn) error
	Remove(string) (string, error)
	BindRoom(string, string) error
	UnbindRoom(string) error
	GetRoomID(string) (string, error)
	GetConn(string) (domain.Conn, error)
	GetConns([]string) []domain.Conn
}

type Config struct {
	// RequireAllReady makes play wait for every participant to be ready.
	RequireAllReady bool
	RolePolicy      RolePolicy
}

// service owns every room and connection. Each command is handled to
// completion under mu, so per-room delivery order equals mutation order.
type service struct {
	roomRepo        iRoomRepo
	connRepo        iConnRepo
	policy          RolePolicy
	requireAllReady bool
	logger          *slog.Logger
	mu              sync.Mutex
}

func NewService(roomRepo iRoomRepo, connRepo iConnRepo, logger *slog.Logger, cfg *Config) *service {
	policy := cfg.RolePolicy
	if policy == nil {
		policy = AutoApprove{}
	}

	return &service{
		roomRepo:        roomRepo,
		connRepo:        connRepo,
		policy:          policy,
		requireAllReady: cfg.RequireAllReady,
		logger:          logger,
	}
}

// Connect registers a transport and tells the client its connection id.
func (s *service) Connect(ctx context.Context, connectionID string, conn domain.Conn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.connRepo.Add(connectionID, conn); err != nil {
		return fmt.Errorf("failed to add connection: %w", err)
	}

	s.send(ctx, conn, &domain.Output{
		Type:    domain.TypeConnected,
		Payload: domain.ConnectedPayload{ConnectionID: connectionID},
	})

	return nil
}

// Dispatch applies one command from a connection. Commands rejected by
// role or existence checks are dropped without notifying the caller.
func (s *service) Dispatch(ctx context.Context, connectionID string, cmd Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch cmd := cmd.(type) {
	case Join:
		return s.join(ctx, connectionID, cmd)
	case Leave:
		s.leave(ctx, connectionID)
	case Play:
		s.playback(ctx, connectionID, domain.TypePlay, cmd.Time, cmd.Username)
	case Pause:
		s.playback(ctx, connectionID, domain.TypePause, cmd.Time, cmd.Username)
	case Seek:
		s.playback(ctx, connectionID, domain.TypeSeek, cmd.Time, cmd.Username)
	case SetReady:
		s.setReady(ctx, connectionID, cmd)
	case RequestRole:
		s.requestRole(ctx, connectionID, cmd)
	case Disconnect:
		s.disconnect(ctx, connectionID)
	default:
		return fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
	}

	return nil
}

func (s *service) ListRooms(_ context.Context) []room.RoomInfo {
	return s.roomRepo.Rooms()
}

func (s *service) GetRoom(_ context.Context, roomID string) (domain.Room, bool) {
	return s.roomRepo.GetRoom(roomID)
}

// resolve finds the caller's room and the caller inside it.
func (s *service) resolve(ctx context.Context, connectionID string) (domain.Room, domain.User, bool) {
	roomID, err := s.connRepo.GetRoomID(connectionID)
	if err != nil {
		s.logger.DebugContext(ctx, "command dropped", "reason", err)
		return domain.Room{}, domain.User{}, false
	}

	rm, ok := s.roomRepo.GetRoom(roomID)
	if !ok {
		s.logger.DebugContext(ctx, "command dropped", "reason", "room not found", "room_id", roomID)
		return domain.Room{}, domain.User{}, false
	}

	u, ok := rm.User(connectionID)
	if !ok {
		s.logger.DebugContext(ctx, "command dropped", "reason", "user not in room", "room_id", roomID)
		return domain.Room{}, domain.User{}, false
	}

	return rm, u, true
}

func (s *service) send(ctx context.Context, conn domain.Conn, out *domain.Output) {
	if err := conn.Send(out); err != nil {
		s.logger.WarnContext(ctx, "failed to send message", "type", out.Type, "error", err)
	}
}

func (s *service) broadcast(ctx context.Context, connectionIDs []string, out *domain.Output) {
	for _, conn := range s.connRepo.GetConns(connectionIDs) {
		s.send(ctx, conn, out)
	}
}

func (s *service) broadcastRoster(ctx context.Context, rm domain.Room) {
	s.broadcast(ctx, rm.UserIDs(), &domain.Output{
		Type:    domain.TypeRoster,
		Payload: domain.NewRoster(rm),
	})
}
