package room

import (
	"context"
	"fmt"

	"github.com/sharetube/watchsync/internal/domain"
	"github.com/sharetube/watchsync/internal/repository/room"
)

func (s *service) join(ctx context.Context, connectionID string, cmd Join) error {
	conn, err := s.connRepo.GetConn(connectionID)
	if err != nil {
		return fmt.Errorf("failed to get conn: %w", err)
	}

	if prevRoomID, err := s.connRepo.GetRoomID(connectionID); err == nil && prevRoomID != cmd.RoomID {
		s.leave(ctx, connectionID)
	}

	if err := s.connRepo.BindRoom(connectionID, cmd.RoomID); err != nil {
		return fmt.Errorf("failed to bind room: %w", err)
	}

	rm := s.roomRepo.AddUser(&room.AddUserParams{
		RoomID:       cmd.RoomID,
		ConnectionID: connectionID,
		Username:     cmd.Username,
	})
	s.logger.InfoContext(ctx, "user joined", "room_id", rm.ID, "users", len(rm.Users))

	s.send(ctx, conn, &domain.Output{
		Type: domain.TypeSync,
		Payload: domain.SyncPayload{
			IsPlaying:     rm.IsPlaying,
			Position:      rm.Position,
			Username:      domain.SystemUsername,
			IsInitialSync: true,
		},
	})
	s.broadcastRoster(ctx, rm)

	return nil
}

// leave removes the connection from its room but keeps the transport registered.
func (s *service) leave(ctx context.Context, connectionID string) {
	if _, err := s.connRepo.GetRoomID(connectionID); err != nil {
		s.logger.DebugContext(ctx, "leave dropped", "reason", err)
		return
	}

	s.evict(ctx, connectionID)

	if err := s.connRepo.UnbindRoom(connectionID); err != nil {
		s.logger.WarnContext(ctx, "failed to unbind room", "error", err)
	}
}

func (s *service) disconnect(ctx context.Context, connectionID string) {
	s.evict(ctx, connectionID)

	if _, err := s.connRepo.Remove(connectionID); err != nil {
		s.logger.DebugContext(ctx, "failed to remove connection", "error", err)
	}
}

func (s *service) evict(ctx context.Context, connectionID string) {
	for _, removed := range s.roomRepo.RemoveUser(connectionID) {
		if removed.RoomDeleted {
			s.logger.InfoContext(ctx, "room deleted", "room_id", removed.RoomID)
			continue
		}

		s.logger.InfoContext(ctx, "user left", "room_id", removed.RoomID, "users", len(removed.Room.Users))
		s.broadcastRoster(ctx, removed.Room)
	}
}

func (s *service) setReady(ctx context.Context, connectionID string, cmd SetReady) {
	rm, _, ok := s.resolve(ctx, connectionID)
	if !ok {
		return
	}

	rm, changed := s.roomRepo.SetReady(&room.SetReadyParams{
		RoomID:       rm.ID,
		ConnectionID: connectionID,
		Ready:        cmd.Ready,
	})
	if !changed {
		s.logger.DebugContext(ctx, "ready unchanged", "room_id", rm.ID)
		return
	}

	s.broadcastRoster(ctx, rm)
}

func (s *service) requestRole(ctx context.Context, connectionID string, cmd RequestRole) {
	if !cmd.Role.Valid() {
		s.logger.DebugContext(ctx, "role request dropped", "reason", "unknown role", "role", cmd.Role)
		return
	}

	rm, u, ok := s.resolve(ctx, connectionID)
	if !ok {
		return
	}

	if !s.policy.Approve(ctx, rm, u, cmd.Role) {
		s.logger.InfoContext(ctx, "role request denied", "room_id", rm.ID, "role", cmd.Role)
		return
	}

	rm, ok = s.roomRepo.SetRole(&room.SetRoleParams{
		RoomID:       rm.ID,
		ConnectionID: connectionID,
		Role:         cmd.Role,
	})
	if !ok {
		return
	}

	conn, err := s.connRepo.GetConn(connectionID)
	if err == nil {
		s.send(ctx, conn, &domain.Output{
			Type: domain.TypeRoleUpdate,
			Payload: domain.RoleUpdatePayload{
				UserID:   connectionID,
				Username: usernameOr(cmd.Username, u.Username),
				Role:     cmd.Role,
			},
		})
	}

	s.broadcastRoster(ctx, rm)
}

func usernameOr(username, fallback string) string {
	if username == "" {
		return fallback
	}

	return username
}
