package controller

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/exp/slices"

	"github.com/sharetube/watchsync/internal/domain"
	repoRoom "github.com/sharetube/watchsync/internal/repository/room"
	"github.com/sharetube/watchsync/internal/service/auth"
	"github.com/sharetube/watchsync/internal/service/room"
	"github.com/sharetube/watchsync/internal/stream"
	"github.com/sharetube/watchsync/pkg/validator"
)

type iRoomService interface {
	Connect(context.Context, string, domain.Conn) error
	Dispatch(context.Context, string, room.Command) error
	ListRooms(context.Context) []repoRoom.RoomInfo
}

type iAuthService interface {
	CreateGuest(context.Context, *auth.CreateGuestParams) (auth.CreateGuestResponse, error)
	GetSession(context.Context, string) (auth.GetSessionResponse, error)
	Logout(context.Context, string) error
}

type iStreamService interface {
	Describe(context.Context) (stream.Descriptor, error)
}

type Config struct {
	// AllowedOrigins restricts CORS and websocket origins. Empty allows all.
	AllowedOrigins []string
	SendBuffer     int
	PingPeriod     time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64
}

func (c *Config) pongWait() time.Duration {
	return c.PingPeriod * 10 / 9
}

type controller struct {
	roomService   iRoomService
	authService   iAuthService
	streamService iStreamService
	upgrader      websocket.Upgrader
	validate      *validator.Validator
	logger        *slog.Logger
	cfg           Config
}

func NewController(roomService iRoomService, authService iAuthService, streamService iStreamService, logger *slog.Logger, cfg *Config) *controller {
	c := &controller{
		roomService:   roomService,
		authService:   authService,
		streamService: streamService,
		validate:      validator.NewValidator(),
		logger:        logger,
		cfg:           *cfg,
	}
	c.upgrader = websocket.Upgrader{
		CheckOrigin: c.checkOrigin,
	}

	return c
}

func (c controller) allowAllOrigins() bool {
	return len(c.cfg.AllowedOrigins) == 0 || slices.Contains(c.cfg.AllowedOrigins, "*")
}

func (c controller) checkOrigin(r *http.Request) bool {
	if c.allowAllOrigins() {
		return true
	}

	origin := r.Header.Get("Origin")
	return origin == "" || slices.Contains(c.cfg.AllowedOrigins, origin)
}
