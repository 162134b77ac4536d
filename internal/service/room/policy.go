package room

import (
	"context"

	"github.com/sharetube/watchsync/internal/domain"
)

// RolePolicy decides role change requests.
type RolePolicy interface {
	Approve(ctx context.Context, rm domain.Room, requester domain.User, requested domain.Role) bool
}

// AutoApprove grants every request. Moderation hooks in here.
type AutoApprove struct{}

func (AutoApprove) Approve(context.Context, domain.Room, domain.User, domain.Role) bool {
	return true
}
