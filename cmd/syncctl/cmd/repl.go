package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/mattn/go-shellwords"

	"github.com/sharetube/watchsync/internal/domain"
	"github.com/sharetube/watchsync/internal/player"
	"github.com/sharetube/watchsync/internal/syncagent"
)

var errQuit = errors.New("quit")

type iAgent interface {
	OnInteraction()
	SetReady(bool) error
	RequestRole(domain.Role) error
	Status() syncagent.Status
}

type iPlayer interface {
	Play() error
	Pause()
	Seek(float64)
}

type iTransportListener interface {
	OnTransportReady()
	OnPlay()
	OnPause()
	OnSeeked()
	OnEnded()
}

// forward hands one player event to the agent.
func forward(l iTransportListener, e player.Event) {
	switch e {
	case player.EventReady:
		l.OnTransportReady()
	case player.EventPlay:
		l.OnPlay()
	case player.EventPause:
		l.OnPause()
	case player.EventSeeked:
		l.OnSeeked()
	case player.EventEnded:
		l.OnEnded()
	}
}

const replHelp = `commands:
  play                start playback for the room
  pause               pause playback for the room
  seek <seconds>      jump to a position
  ready | unready     toggle readiness
  participate         ask for the participant role
  spectate            ask for the spectator role
  status              show room state
  quit                leave
`

type repl struct {
	agent  iAgent
	player iPlayer
	out    io.Writer
}

func (r *repl) run(in io.Reader) error {
	fmt.Fprint(r.out, "type 'help' for commands\n")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(r.out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}

		err := r.exec(scanner.Text())
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintln(r.out, "error:", err)
		}
	}
}

func (r *repl) exec(line string) error {
	args, err := shellwords.Parse(line)
	if err != nil {
		return fmt.Errorf("failed to parse line: %w", err)
	}
	if len(args) == 0 {
		return nil
	}

	switch args[0] {
	case "play":
		r.agent.OnInteraction()
		return r.player.Play()
	case "pause":
		r.agent.OnInteraction()
		r.player.Pause()
	case "seek":
		if len(args) != 2 {
			return errors.New("usage: seek <seconds>")
		}
		position, err := strconv.ParseFloat(args[1], 64)
		if err != nil || position < 0 {
			return fmt.Errorf("invalid position %q", args[1])
		}
		r.agent.OnInteraction()
		r.player.Seek(position)
	case "ready":
		return r.agent.SetReady(true)
	case "unready":
		return r.agent.SetReady(false)
	case "participate":
		return r.agent.RequestRole(domain.RoleParticipant)
	case "spectate":
		return r.agent.RequestRole(domain.RoleSpectator)
	case "status":
		r.printStatus(r.agent.Status())
	case "help":
		fmt.Fprint(r.out, replHelp)
	case "quit", "exit":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}

	return nil
}

func (r *repl) printStatus(st syncagent.Status) {
	state := "paused"
	if st.Playing {
		state = "playing"
	}

	fmt.Fprintf(r.out, "room %s as %s, synced=%t\n", st.RoomID, st.Role, st.Synced)
	fmt.Fprintf(r.out, "%s at %.1fs\n", state, st.Position)
	if st.AllParticipantsReady {
		fmt.Fprintln(r.out, "everyone is ready")
	}
	for _, u := range st.Users {
		ready := ""
		if u.Ready {
			ready = ", ready"
		}
		fmt.Fprintf(r.out, "  %s (%s%s)\n", u.Username, u.Role, ready)
	}
}
