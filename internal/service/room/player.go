package room

import (
	"context"

	"github.com/sharetube/watchsync/internal/domain"
	"github.com/sharetube/watchsync/internal/repository/room"
)

// playback applies play, pause or seek from a participant. Everyone else in
// the room gets a sync, the originator gets an ack with the same payload.
func (s *service) playback(ctx context.Context, connectionID, kind string, position float64, username string) {
	rm, u, ok := s.resolve(ctx, connectionID)
	if !ok {
		return
	}

	if u.Role != domain.RoleParticipant {
		s.logger.DebugContext(ctx, "command dropped", "reason", "not a participant", "room_id", rm.ID)
		return
	}

	if kind == domain.TypePlay && s.requireAllReady && !rm.AllParticipantsReady {
		s.logger.DebugContext(ctx, "command dropped", "reason", "participants not ready", "room_id", rm.ID)
		return
	}

	switch kind {
	case domain.TypePlay, domain.TypePause:
		rm, ok = s.roomRepo.SetPlayback(&room.SetPlaybackParams{
			RoomID:    rm.ID,
			IsPlaying: kind == domain.TypePlay,
			Position:  position,
		})
	case domain.TypeSeek:
		rm, ok = s.roomRepo.SetPosition(&room.SetPositionParams{
			RoomID:   rm.ID,
			Position: position,
		})
	}
	if !ok {
		return
	}

	payload := domain.SyncPayload{
		IsPlaying: rm.IsPlaying,
		Position:  rm.Position,
		Username:  usernameOr(username, u.Username),
	}

	others := make([]string, 0, len(rm.Users))
	for _, id := range rm.UserIDs() {
		if id != connectionID {
			others = append(others, id)
		}
	}
	s.broadcast(ctx, others, &domain.Output{Type: domain.TypeSync, Payload: payload})

	if conn, err := s.connRepo.GetConn(connectionID); err == nil {
		s.send(ctx, conn, &domain.Output{Type: domain.TypeAck, Payload: payload})
	}
}
