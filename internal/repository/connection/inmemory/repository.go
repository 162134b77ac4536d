package inmemory

import (
	"log/slog"
	"sync"

	"github.com/sharetube/watchsync/internal/domain"
	"github.com/sharetube/watchsync/internal/repository/connection"
)

type entry struct {
	conn   domain.Conn
	roomID string
}

// repo maps connection ids to their transport and, once joined, their room.
type repo struct {
	entries map[string]*entry
	mu      sync.RWMutex
	logger  *slog.Logger
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		logger:  logger,
		entries: make(map[string]*entry),
	}
}

func (r *repo) Add(connectionID string, conn domain.Conn) error {
	funcName := "connection.inmemory.Add"
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug(funcName, "connectionID", connectionID)
	if _, ok := r.entries[connectionID]; ok {
		r.logger.Info(funcName, "error", connection.ErrAlreadyExists)
		return connection.ErrAlreadyExists
	}

	r.entries[connectionID] = &entry{conn: conn}

	r.logger.Debug(funcName, "result", "OK")
	return nil
}

// Remove forgets the connection and returns the room it was bound to, if any.
func (r *repo) Remove(connectionID string) (string, error) {
	funcName := "connection.inmemory.Remove"
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug(funcName, "connectionID", connectionID)
	e, ok := r.entries[connectionID]
	if !ok {
		r.logger.Info(funcName, "error", connection.ErrNotFound)
		return "", connection.ErrNotFound
	}

	delete(r.entries, connectionID)

	r.logger.Debug(funcName, "result", e.roomID)
	return e.roomID, nil
}

func (r *repo) BindRoom(connectionID, roomID string) error {
	funcName := "connection.inmemory.BindRoom"
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug(funcName, "connectionID", connectionID, "roomID", roomID)
	e, ok := r.entries[connectionID]
	if !ok {
		r.logger.Info(funcName, "error", connection.ErrNotFound)
		return connection.ErrNotFound
	}

	e.roomID = roomID

	r.logger.Debug(funcName, "result", "OK")
	return nil
}

func (r *repo) UnbindRoom(connectionID string) error {
	funcName := "connection.inmemory.UnbindRoom"
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug(funcName, "connectionID", connectionID)
	e, ok := r.entries[connectionID]
	if !ok {
		r.logger.Info(funcName, "error", connection.ErrNotFound)
		return connection.ErrNotFound
	}

	e.roomID = ""

	r.logger.Debug(funcName, "result", "OK")
	return nil
}

func (r *repo) GetRoomID(connectionID string) (string, error) {
	funcName := "connection.inmemory.GetRoomID"
	r.mu.RLock()
	defer r.mu.RUnlock()

	r.logger.Debug(funcName, "connectionID", connectionID)
	e, ok := r.entries[connectionID]
	if !ok {
		r.logger.Debug(funcName, "error", connection.ErrNotFound)
		return "", connection.ErrNotFound
	}
	if e.roomID == "" {
		r.logger.Debug(funcName, "error", connection.ErrNotInRoom)
		return "", connection.ErrNotInRoom
	}

	r.logger.Debug(funcName, "result", e.roomID)
	return e.roomID, nil
}

func (r *repo) GetConn(connectionID string) (domain.Conn, error) {
	funcName := "connection.inmemory.GetConn"
	r.mu.RLock()
	defer r.mu.RUnlock()

	r.logger.Debug(funcName, "connectionID", connectionID)
	e, ok := r.entries[connectionID]
	if !ok {
		r.logger.Debug(funcName, "error", connection.ErrNotFound)
		return nil, connection.ErrNotFound
	}

	return e.conn, nil
}

// GetConns resolves ids to transports in the given order, skipping unknown ids.
func (r *repo) GetConns(connectionIDs []string) []domain.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]domain.Conn, 0, len(connectionIDs))
	for _, id := range connectionIDs {
		if e, ok := r.entries[id]; ok {
			conns = append(conns, e.conn)
		}
	}

	return conns
}

func (r *repo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}
