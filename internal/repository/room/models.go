package room

import "github.com/sharetube/watchsync/internal/domain"

// RemovedUser describes one room touched by a user removal.
type RemovedUser struct {
	RoomID string
	// Room is the state after removal. Empty when RoomDeleted is set.
	Room        domain.Room
	RoomDeleted bool
}

type RoomInfo struct {
	ID        string `json:"id"`
	Users     int    `json:"users"`
	IsPlaying bool   `json:"isPlaying"`
}
