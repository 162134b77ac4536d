package room

import "github.com/sharetube/watchsync/internal/domain"

type AddUserParams struct {
	RoomID       string
	ConnectionID string
	Username     string
}

type SetPlaybackParams struct {
	RoomID    string
	IsPlaying bool
	Position  float64
}

type SetPositionParams struct {
	RoomID   string
	Position float64
}

type SetReadyParams struct {
	RoomID       string
	ConnectionID string
	Ready        bool
}

type SetRoleParams struct {
	RoomID       string
	ConnectionID string
	Role         domain.Role
}
