package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

type guestSession struct {
	User struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
	Session struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expiresAt"`
	} `json:"session"`
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Creates a guest session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, err := username()
		if err != nil {
			return err
		}

		url, err := endpoint("/api/v1/auth/guest", false)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		var s guestSession
		if err := call(ctx, http.MethodPost, url, map[string]string{"username": name}, &s); err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s (%s)\ntoken: %s\nexpires: %s\n",
			s.User.Username, s.User.ID, s.Session.Token, s.Session.ExpiresAt.Format(time.RFC3339))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
}
