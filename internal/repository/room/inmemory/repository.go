package inmemory

import (
	"log/slog"
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/sharetube/watchsync/internal/domain"
	"github.com/sharetube/watchsync/internal/repository/room"
)

type roomState struct {
	isPlaying bool
	position  float64
	users     []domain.User
	allReady  bool
}

func (s *roomState) recompute() {
	s.allReady = domain.AllParticipantsReady(s.users)
}

func (s *roomState) userIndex(connectionID string) int {
	return slices.IndexFunc(s.users, func(u domain.User) bool {
		return u.ID == connectionID
	})
}

// repo holds every live room. A room exists only while it has users.
type repo struct {
	rooms  map[string]*roomState
	mu     sync.RWMutex
	logger *slog.Logger
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		logger: logger,
		rooms:  make(map[string]*roomState),
	}
}

func (r *repo) snapshot(roomID string, s *roomState) domain.Room {
	return domain.Room{
		ID:                   roomID,
		IsPlaying:            s.isPlaying,
		Position:             s.position,
		Users:                slices.Clone(s.users),
		AllParticipantsReady: s.allReady,
	}
}

func (r *repo) AddUser(params *room.AddUserParams) domain.Room {
	funcName := "room.inmemory.AddUser"
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug(funcName, "params", params)
	s, exists := r.rooms[params.RoomID]
	if !exists {
		s = &roomState{}
		r.rooms[params.RoomID] = s
	}

	if s.userIndex(params.ConnectionID) != -1 {
		r.logger.Debug(funcName, "result", "already present")
		return r.snapshot(params.RoomID, s)
	}

	s.users = append(s.users, domain.User{
		ID:       params.ConnectionID,
		Username: params.Username,
		Role:     domain.JoinRole(exists, s.isPlaying),
		Ready:    false,
	})
	s.recompute()

	r.logger.Debug(funcName, "result", "OK", "users", len(s.users))
	return r.snapshot(params.RoomID, s)
}

// RemoveUser drops the connection from every room it is in. Rooms left
// without users are deleted.
func (r *repo) RemoveUser(connectionID string) []room.RemovedUser {
	funcName := "room.inmemory.RemoveUser"
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug(funcName, "connectionID", connectionID)
	roomIDs := maps.Keys(r.rooms)
	slices.Sort(roomIDs)

	var removed []room.RemovedUser
	for _, roomID := range roomIDs {
		s := r.rooms[roomID]
		idx := s.userIndex(connectionID)
		if idx == -1 {
			continue
		}

		s.users = slices.Delete(s.users, idx, idx+1)
		s.recompute()

		if len(s.users) == 0 {
			delete(r.rooms, roomID)
			removed = append(removed, room.RemovedUser{RoomID: roomID, RoomDeleted: true})
			continue
		}

		removed = append(removed, room.RemovedUser{RoomID: roomID, Room: r.snapshot(roomID, s)})
	}

	r.logger.Debug(funcName, "result", len(removed))
	return removed
}

func (r *repo) SetPlayback(params *room.SetPlaybackParams) (domain.Room, bool) {
	funcName := "room.inmemory.SetPlayback"
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug(funcName, "params", params)
	s, ok := r.rooms[params.RoomID]
	if !ok {
		r.logger.Debug(funcName, "result", "room not found")
		return domain.Room{}, false
	}

	s.isPlaying = params.IsPlaying
	s.position = params.Position

	return r.snapshot(params.RoomID, s), true
}

func (r *repo) SetPosition(params *room.SetPositionParams) (domain.Room, bool) {
	funcName := "room.inmemory.SetPosition"
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug(funcName, "params", params)
	s, ok := r.rooms[params.RoomID]
	if !ok {
		r.logger.Debug(funcName, "result", "room not found")
		return domain.Room{}, false
	}

	s.position = params.Position

	return r.snapshot(params.RoomID, s), true
}

// SetReady changes readiness of a participant. The second result is false
// when nothing changed: unknown room or user, spectator, or same value.
func (r *repo) SetReady(params *room.SetReadyParams) (domain.Room, bool) {
	funcName := "room.inmemory.SetReady"
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug(funcName, "params", params)
	s, ok := r.rooms[params.RoomID]
	if !ok {
		r.logger.Debug(funcName, "result", "room not found")
		return domain.Room{}, false
	}

	idx := s.userIndex(params.ConnectionID)
	if idx == -1 {
		r.logger.Debug(funcName, "result", "user not found")
		return r.snapshot(params.RoomID, s), false
	}

	u := &s.users[idx]
	if u.Role != domain.RoleParticipant || u.Ready == params.Ready {
		r.logger.Debug(funcName, "result", "unchanged", "role", u.Role)
		return r.snapshot(params.RoomID, s), false
	}

	u.Ready = params.Ready
	s.recompute()

	r.logger.Debug(funcName, "result", "OK", "allReady", s.allReady)
	return r.snapshot(params.RoomID, s), true
}

func (r *repo) SetRole(params *room.SetRoleParams) (domain.Room, bool) {
	funcName := "room.inmemory.SetRole"
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug(funcName, "params", params)
	s, ok := r.rooms[params.RoomID]
	if !ok {
		r.logger.Debug(funcName, "result", "room not found")
		return domain.Room{}, false
	}

	idx := s.userIndex(params.ConnectionID)
	if idx == -1 {
		r.logger.Debug(funcName, "result", "user not found")
		return r.snapshot(params.RoomID, s), false
	}

	u := &s.users[idx]
	u.Role = params.Role
	if params.Role == domain.RoleSpectator {
		u.Ready = false
	}
	s.recompute()

	r.logger.Debug(funcName, "result", "OK", "allReady", s.allReady)
	return r.snapshot(params.RoomID, s), true
}

func (r *repo) GetRoom(roomID string) (domain.Room, bool) {
	funcName := "room.inmemory.GetRoom"
	r.mu.RLock()
	defer r.mu.RUnlock()

	r.logger.Debug(funcName, "roomID", roomID)
	s, ok := r.rooms[roomID]
	if !ok {
		return domain.Room{}, false
	}

	return r.snapshot(roomID, s), true
}

func (r *repo) Rooms() []room.RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roomIDs := maps.Keys(r.rooms)
	slices.Sort(roomIDs)

	infos := make([]room.RoomInfo, 0, len(roomIDs))
	for _, roomID := range roomIDs {
		s := r.rooms[roomID]
		infos = append(infos, room.RoomInfo{
			ID:        roomID,
			Users:     len(s.users),
			IsPlaying: s.isPlaying,
		})
	}

	return infos
}
