package cmd

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/dusted-go/logging/prettylog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sharetube/watchsync/pkg/ctxlogger"
)

var cfgFile string

const (
	serverKey   = "server"
	usernameKey = "username"
	logLevelKey = "log-level"
)

var rootCmd = &cobra.Command{
	Use:   "syncctl",
	Short: "Headless watch party viewer",
	Long: `syncctl joins watch party rooms from the terminal. It drives a simulated
player that stays in step with the room and can issue play, pause and seek
commands like any other participant.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.syncctl.yaml)")
	rootCmd.PersistentFlags().String(serverKey, "http://localhost:3001", "Base URL of the watchsync server")
	rootCmd.PersistentFlags().String(usernameKey, "", "Display name in rooms")
	rootCmd.PersistentFlags().String(logLevelKey, "INFO", "Logging level")

	viper.BindPFlag(serverKey, rootCmd.PersistentFlags().Lookup(serverKey))
	viper.BindPFlag(usernameKey, rootCmd.PersistentFlags().Lookup(usernameKey))
	viper.BindPFlag(logLevelKey, rootCmd.PersistentFlags().Lookup(logLevelKey))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".syncctl")
	}

	viper.SetEnvPrefix("SYNCCTL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintln(os.Stderr, "Error reading config file:", err)
		}
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	_ = level.UnmarshalText([]byte(strings.ToUpper(viper.GetString(logLevelKey))))

	handler := prettylog.NewHandler(&slog.HandlerOptions{Level: level})
	return slog.New(ctxlogger.ContextHandler{Handler: handler})
}

func username() (string, error) {
	name := viper.GetString(usernameKey)
	if name == "" {
		return "", fmt.Errorf("username is required, set --%s or SYNCCTL_USERNAME", usernameKey)
	}

	return name, nil
}

// endpoint joins path onto the configured server URL, switching to the
// websocket scheme when ws is set.
func endpoint(path string, ws bool) (string, error) {
	u, err := url.Parse(viper.GetString(serverKey))
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}

	if ws {
		switch u.Scheme {
		case "https":
			u.Scheme = "wss"
		default:
			u.Scheme = "ws"
		}
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + path

	return u.String(), nil
}
