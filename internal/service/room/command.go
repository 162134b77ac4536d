package room

import "github.com/sharetube/watchsync/internal/domain"

// Command is the closed set of operations a connection can request.
type Command interface {
	command()
}

type Join struct {
	RoomID   string
	Username string
}

type Leave struct{}

type Play struct {
	Time     float64
	Username string
}

type Pause struct {
	Time     float64
	Username string
}

type Seek struct {
	Time     float64
	Username string
}

type SetReady struct {
	Ready    bool
	Username string
}

type RequestRole struct {
	Role     domain.Role
	Username string
}

// Disconnect is issued by the transport when the connection is gone.
type Disconnect struct{}

func (Join) command()        {}
func (Leave) command()       {}
func (Play) command()        {}
func (Pause) command()       {}
func (Seek) command()        {}
func (SetReady) command()    {}
func (RequestRole) command() {}
func (Disconnect) command()  {}
