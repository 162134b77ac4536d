package domain

import "encoding/json"

// client -> server
const (
	TypeJoin        = "join"
	TypeLeave       = "leave"
	TypePlay        = "play"
	TypePause       = "pause"
	TypeSeek        = "seek"
	TypeSetReady    = "setReady"
	TypeRequestRole = "requestRole"
)

// server -> client
const (
	TypeConnected  = "connected"
	TypeSync       = "sync"
	TypeAck        = "ack"
	TypeRoster     = "roster"
	TypeRoleUpdate = "roleUpdate"
)

type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Message is an envelope whose payload is decoded later, once the type is known.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type SyncPayload struct {
	IsPlaying     bool    `json:"isPlaying"`
	Position      float64 `json:"position"`
	Username      string  `json:"username"`
	IsInitialSync bool    `json:"isInitialSync"`
}

type RosterPayload struct {
	Users                []User `json:"users"`
	AllParticipantsReady bool   `json:"allParticipantsReady"`
}

type RoleUpdatePayload struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

type ConnectedPayload struct {
	ConnectionID string `json:"connectionId"`
}

type JoinPayload struct {
	RoomID   string `json:"roomId" validate:"required,max=64"`
	Username string `json:"username" validate:"required,max=32"`
}

type TimePayload struct {
	Time     float64 `json:"time" validate:"min=0"`
	Username string  `json:"username"`
}

type ReadyPayload struct {
	Username string `json:"username"`
	Ready    bool   `json:"ready"`
}

type RoleRequestPayload struct {
	Username      string `json:"username"`
	RequestedRole Role   `json:"requestedRole"`
}

func NewRoster(room Room) RosterPayload {
	users := room.Users
	if users == nil {
		users = []User{}
	}

	return RosterPayload{
		Users:                users,
		AllParticipantsReady: room.AllParticipantsReady,
	}
}
