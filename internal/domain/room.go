package domain

type Role string

const (
	RoleParticipant Role = "participant"
	RoleSpectator   Role = "spectator"
)

func (r Role) Valid() bool {
	return r == RoleParticipant || r == RoleSpectator
}

// SystemUsername tags state pushed by the server rather than by a viewer.
const SystemUsername = "system"

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Ready    bool   `json:"ready"`
}

type Room struct {
	ID                   string  `json:"id"`
	IsPlaying            bool    `json:"isPlaying"`
	Position             float64 `json:"position"`
	Users                []User  `json:"users"`
	AllParticipantsReady bool    `json:"allParticipantsReady"`
}

func (r Room) User(id string) (User, bool) {
	for _, u := range r.Users {
		if u.ID == id {
			return u, true
		}
	}

	return User{}, false
}

func (r Room) UserIDs() []string {
	ids := make([]string, 0, len(r.Users))
	for _, u := range r.Users {
		ids = append(ids, u.ID)
	}

	return ids
}

// AllParticipantsReady reports whether at least one participant exists and
// every participant is ready. Spectators are ignored.
func AllParticipantsReady(users []User) bool {
	participants := 0
	for _, u := range users {
		if u.Role != RoleParticipant {
			continue
		}
		if !u.Ready {
			return false
		}
		participants++
	}

	return participants > 0
}

// JoinRole is the role a newcomer gets: viewers arriving mid-playback watch
// as spectators until they ask to participate.
func JoinRole(roomExists, isPlaying bool) Role {
	if !roomExists || !isPlaying {
		return RoleParticipant
	}

	return RoleSpectator
}
