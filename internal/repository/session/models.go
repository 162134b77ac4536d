package session

import (
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("session not found")
	ErrAlreadyExists = errors.New("session already exists")
)

type Session struct {
	Token      string    `json:"token"`
	UserID     string    `json:"user_id"`
	Username   string    `json:"username"`
	DeviceType string    `json:"device_type"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

type SetParams struct {
	Session Session
	TTL     time.Duration
}
