package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dusted-go/logging/prettylog"

	"github.com/sharetube/watchsync/internal/controller"
	connInmemory "github.com/sharetube/watchsync/internal/repository/connection/inmemory"
	roomInmemory "github.com/sharetube/watchsync/internal/repository/room/inmemory"
	"github.com/sharetube/watchsync/internal/repository/session"
	sessionInmemory "github.com/sharetube/watchsync/internal/repository/session/inmemory"
	sessionRedis "github.com/sharetube/watchsync/internal/repository/session/redis"
	"github.com/sharetube/watchsync/internal/service/auth"
	"github.com/sharetube/watchsync/internal/service/room"
	"github.com/sharetube/watchsync/internal/stream"
	"github.com/sharetube/watchsync/pkg/ctxlogger"
	"github.com/sharetube/watchsync/pkg/redisclient"
)

type iSessionRepo interface {
	Set(context.Context, *session.SetParams) error
	Get(context.Context, string) (session.Session, error)
	Delete(context.Context, string) error
}

type AppConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	LogLevel        string        `json:"log_level"`
	LogFormat       string        `json:"log_format"`
	AllowedOrigins  []string      `json:"allowed_origins"`
	RequireAllReady bool          `json:"require_all_ready"`
	StreamURL       string        `json:"stream_url"`
	SendBuffer      int           `json:"send_buffer"`
	PingPeriod      time.Duration `json:"ping_period"`
	SessionTTL      time.Duration `json:"session_ttl"`
	RedisHost       string        `json:"redis_host"`
	RedisPort       int           `json:"redis_port"`
	RedisPassword   string        `json:"-"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.Port < 0 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535")
	}
	if cfg.SendBuffer < 1 {
		return fmt.Errorf("send buffer must be greater than 0")
	}
	if cfg.PingPeriod <= 0 {
		return fmt.Errorf("ping period must be positive")
	}
	if cfg.SessionTTL <= 0 {
		return fmt.Errorf("session ttl must be positive")
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return fmt.Errorf("log format must be json or text")
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	return nil
}

func NewLogger(cfg *AppConfig) *slog.Logger {
	logLevel := slog.LevelInfo
	_ = logLevel.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel)))

	opts := &slog.HandlerOptions{
		Level:     logLevel,
		AddSource: true,
	}

	var handler slog.Handler
	if cfg.LogFormat == "text" {
		handler = prettylog.NewHandler(opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(ctxlogger.ContextHandler{Handler: handler})
}

// NewHandler wires repositories, services and the controller. The returned
// cleanup releases external connections.
func NewHandler(ctx context.Context, cfg *AppConfig, logger *slog.Logger) (http.Handler, func(), error) {
	cleanup := func() {}

	var sessionRepo iSessionRepo
	if cfg.RedisHost != "" {
		rc, err := redisclient.NewRedisClient(ctx, &redisclient.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			return nil, cleanup, fmt.Errorf("failed to create redis client: %w", err)
		}
		cleanup = func() { rc.Close() }
		sessionRepo = sessionRedis.NewRepo(rc, logger)
	} else {
		logger.InfoContext(ctx, "redis host is empty, keeping sessions in memory")
		sessionRepo = sessionInmemory.NewRepo(logger)
	}

	roomService := room.NewService(roomInmemory.NewRepo(logger), connInmemory.NewRepo(logger), logger, &room.Config{
		RequireAllReady: cfg.RequireAllReady,
		RolePolicy:      room.AutoApprove{},
	})
	authService := auth.NewService(sessionRepo, &auth.Config{
		SessionTTL: cfg.SessionTTL,
	})
	streamService := stream.NewService(cfg.StreamURL, stream.NewProber(&http.Client{Timeout: 10 * time.Second}))

	c := controller.NewController(roomService, authService, streamService, logger, &controller.Config{
		AllowedOrigins: cfg.AllowedOrigins,
		SendBuffer:     cfg.SendBuffer,
		PingPeriod:     cfg.PingPeriod,
		WriteWait:      10 * time.Second,
		MaxMessageSize: 64 * 1024,
	})

	return c.GetMux(), cleanup, nil
}

func Run(ctx context.Context, cfg *AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := NewLogger(cfg)
	slog.SetDefault(logger)

	handler, cleanup, err := NewHandler(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: handler}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		shutdownCtx, c := context.WithTimeout(serverCtx, 30*time.Second)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		err := server.Shutdown(shutdownCtx)
		if err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	<-serverCtx.Done()

	return nil
}
