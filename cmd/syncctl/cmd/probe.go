package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/sharetube/watchsync/internal/stream"
)

var probeCmd = &cobra.Command{
	Use:   "probe [playlist_url]",
	Short: "Reports the duration of an HLS stream",
	Long: `Without arguments the stream configured on the server is described.
With a playlist URL the playlist is fetched and measured locally.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
		defer cancel()

		var d stream.Descriptor
		if len(args) == 1 {
			duration, err := stream.NewProber(httpClient).Duration(ctx, args[0])
			if err != nil {
				return fmt.Errorf("probe failed: %w", err)
			}
			d = stream.Descriptor{URL: args[0], Duration: duration}
		} else {
			var err error
			if d, err = serverStream(ctx); err != nil {
				return err
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%.3fs\n", d.URL, d.Duration)
		return nil
	},
}

func serverStream(ctx context.Context) (stream.Descriptor, error) {
	url, err := endpoint("/api/v1/stream", false)
	if err != nil {
		return stream.Descriptor{}, err
	}

	var d stream.Descriptor
	if err := call(ctx, http.MethodGet, url, nil, &d); err != nil {
		if errors.Is(err, errNotFound) {
			return stream.Descriptor{}, stream.ErrNotConfigured
		}
		return stream.Descriptor{}, err
	}

	return d, nil
}

func init() {
	rootCmd.AddCommand(probeCmd)
}
