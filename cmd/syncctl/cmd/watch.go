package cmd

import (
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sharetube/watchsync/internal/domain"
	"github.com/sharetube/watchsync/internal/player"
	"github.com/sharetube/watchsync/internal/stream"
	"github.com/sharetube/watchsync/internal/syncagent"
	"github.com/sharetube/watchsync/internal/wsclient"
)

const (
	durationKey  = "duration"
	loadDelayKey = "load-delay"
)

var watchCmd = &cobra.Command{
	Use:   "watch <room_id>",
	Short: "Joins a room with a simulated player",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, err := username()
		if err != nil {
			return err
		}

		logger := newLogger()
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		duration := viper.GetFloat64(durationKey)
		if d, err := serverStream(ctx); err == nil {
			duration = d.Duration
		} else if !errors.Is(err, stream.ErrNotConfigured) {
			logger.WarnContext(ctx, "failed to describe stream", "error", err)
		}

		url, err := endpoint("/api/v1/ws", true)
		if err != nil {
			return err
		}

		p := player.New()
		var agent *syncagent.Agent
		client := wsclient.New(&wsclient.Config{URL: url}, wsclient.Handlers{
			OnConnect: func(reconnect bool) {
				var err error
				if reconnect {
					err = agent.OnReconnect()
				} else {
					err = agent.Join()
				}
				if err != nil {
					logger.WarnContext(ctx, "failed to join room", "error", err)
				}
			},
			OnMessage: func(msg domain.Message) {
				if err := agent.HandleMessage(msg); err != nil {
					logger.WarnContext(ctx, "failed to handle message", "type", msg.Type, "error", err)
				}
			},
		}, logger)
		agent = syncagent.New(p, client, syncagent.Identity{RoomID: args[0], Username: name},
			syncagent.WithLogger(logger))

		stop := make(chan struct{})
		defer close(stop)
		go p.Run(stop, 100*time.Millisecond, func(e player.Event) {
			logger.DebugContext(ctx, "player event", "event", e.String())
			forward(agent, e)
		})
		time.AfterFunc(viper.GetDuration(loadDelayKey), func() { p.Load(duration) })

		runErr := make(chan error, 1)
		go func() { runErr <- client.Run(ctx) }()

		r := &repl{agent: agent, player: p, out: cmd.OutOrStdout()}
		replErr := make(chan error, 1)
		go func() { replErr <- r.run(cmd.InOrStdin()) }()

		select {
		case err := <-runErr:
			return err
		case err := <-replErr:
			cancel()
			<-runErr
			return err
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().Float64(durationKey, 0, "Media length in seconds when the server has no stream")
	watchCmd.Flags().Duration(loadDelayKey, 0, "Simulated time before the player can play")

	viper.BindPFlag(durationKey, watchCmd.Flags().Lookup(durationKey))
	viper.BindPFlag(loadDelayKey, watchCmd.Flags().Lookup(loadDelayKey))
}
