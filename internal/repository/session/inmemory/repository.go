package inmemory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sharetube/watchsync/internal/repository/session"
)

type item struct {
	session  session.Session
	deadline time.Time
}

// repo is used when no redis is configured. Expired sessions are dropped lazily.
type repo struct {
	items map[string]item
	now    func() time.Time
	logger *slog.Logger
	mu     sync.Mutex
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		items:  make(map[string]item),
		now:    time.Now,
		logger: logger,
	}
}

func (r *repo) Set(ctx context.Context, params *session.SetParams) error {
	funcName := "session.inmemory.Set"
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.DebugContext(ctx, funcName, "userID", params.Session.UserID)
	if _, ok := r.get(params.Session.Token); ok {
		return session.ErrAlreadyExists
	}

	r.items[params.Session.Token] = item{
		session:  params.Session,
		deadline: r.now().Add(params.TTL),
	}

	return nil
}

func (r *repo) get(token string) (session.Session, bool) {
	it, ok := r.items[token]
	if !ok {
		return session.Session{}, false
	}
	if !r.now().Before(it.deadline) {
		delete(r.items, token)
		return session.Session{}, false
	}

	return it.session, true
}

func (r *repo) Get(ctx context.Context, token string) (session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.get(token)
	if !ok {
		r.logger.DebugContext(ctx, "session.inmemory.Get", "error", session.ErrNotFound)
		return session.Session{}, session.ErrNotFound
	}

	return s, nil
}

func (r *repo) Delete(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.get(token); !ok {
		return session.ErrNotFound
	}
	delete(r.items, token)

	return nil
}
