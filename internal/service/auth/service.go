package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sharetube/watchsync/internal/repository/session"
)

const (
	guestIDPrefix = "guest_"
	deviceTypeWeb = "web"
)

var ErrUnauthorized = errors.New("unauthorized")

type iSessionRepo interface {
	Set(context.Context, *session.SetParams) error
	Get(context.Context, string) (session.Session, error)
	Delete(context.Context, string) error
}

type Config struct {
	SessionTTL time.Duration
}

type service struct {
	sessionRepo iSessionRepo
	sessionTTL  time.Duration
	now         func() time.Time
	newID       func() string
}

func NewService(sessionRepo iSessionRepo, cfg *Config) *service {
	return &service{
		sessionRepo: sessionRepo,
		sessionTTL:  cfg.SessionTTL,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
	LastSeen  time.Time `json:"lastSeen"`
}

type Session struct {
	UserID     string    `json:"userId"`
	Token      string    `json:"token"`
	ExpiresAt  time.Time `json:"expiresAt"`
	DeviceType string    `json:"deviceType"`
}

type CreateGuestParams struct {
	Username string
}

type CreateGuestResponse struct {
	User    User    `json:"user"`
	Session Session `json:"session"`
}

func (s *service) CreateGuest(ctx context.Context, params *CreateGuestParams) (CreateGuestResponse, error) {
	now := s.now().UTC()
	userID := guestIDPrefix + strings.ReplaceAll(s.newID(), "-", "")[:9]

	stored := session.Session{
		Token:      s.newID(),
		UserID:     userID,
		Username:   params.Username,
		DeviceType: deviceTypeWeb,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.sessionTTL),
	}
	if err := s.sessionRepo.Set(ctx, &session.SetParams{
		Session: stored,
		TTL:     s.sessionTTL,
	}); err != nil {
		return CreateGuestResponse{}, fmt.Errorf("failed to set session: %w", err)
	}

	return toResponse(stored, now), nil
}

type GetSessionResponse = CreateGuestResponse

func (s *service) GetSession(ctx context.Context, token string) (GetSessionResponse, error) {
	stored, err := s.sessionRepo.Get(ctx, token)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return GetSessionResponse{}, ErrUnauthorized
		}
		return GetSessionResponse{}, fmt.Errorf("failed to get session: %w", err)
	}

	return toResponse(stored, s.now().UTC()), nil
}

func (s *service) Logout(ctx context.Context, token string) error {
	if err := s.sessionRepo.Delete(ctx, token); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return ErrUnauthorized
		}
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

func toResponse(stored session.Session, lastSeen time.Time) CreateGuestResponse {
	return CreateGuestResponse{
		User: User{
			ID:        stored.UserID,
			Username:  stored.Username,
			CreatedAt: stored.CreatedAt,
			LastSeen:  lastSeen,
		},
		Session: Session{
			UserID:     stored.UserID,
			Token:      stored.Token,
			ExpiresAt:  stored.ExpiresAt,
			DeviceType: stored.DeviceType,
		},
	}
}
