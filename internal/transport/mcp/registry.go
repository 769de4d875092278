package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	mcpserver "github.com/mark3labs/mcp-go/server"

	portnotifier "github.com/alanyang/build-mesh/internal/port/notifier"
)

var _ portnotifier.WorkerNotifier = (*SessionRegistry)(nil)

// ErrNotConnected is returned by NotifyWorker when the worker has no MCP session.
var ErrNotConnected = errors.New("worker has no mcp session")

// SessionRegistry is the in-memory map of MCP sessions to the workers registered on them.
//
// [SRP] Session storage and notification dispatch only.
// [DIP] The build starter depends on port/notifier, not this concrete type.
type SessionRegistry struct {
	mu         sync.RWMutex
	bySessions map[string]uuid.UUID // sessionID → workerID
	byWorker   map[uuid.UUID]string // workerID → sessionID

	// mcpSrv is set after the MCP server is constructed (avoids circular init dependency).
	mcpMu  sync.RWMutex
	mcpSrv *mcpserver.MCPServer
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		bySessions: make(map[string]uuid.UUID),
		byWorker:   make(map[uuid.UUID]string),
	}
}

// SetMCPServer injects the mcp-go server after construction.
func (r *SessionRegistry) SetMCPServer(s *mcpserver.MCPServer) {
	r.mcpMu.Lock()
	r.mcpSrv = s
	r.mcpMu.Unlock()
}

// Register maps a session to a worker. A worker re-registering from a new session
// drops the old mapping.
func (r *SessionRegistry) Register(sessionID string, workerID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.byWorker[workerID]; ok {
		delete(r.bySessions, old)
	}
	if prev, ok := r.bySessions[sessionID]; ok && prev != workerID {
		delete(r.byWorker, prev)
	}
	r.bySessions[sessionID] = workerID
	r.byWorker[workerID] = sessionID
}

// Unregister removes a session when it closes. Returns the worker it mapped to.
func (r *SessionRegistry) Unregister(sessionID string) (uuid.UUID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	workerID, ok := r.bySessions[sessionID]
	if !ok {
		return uuid.Nil, false
	}
	delete(r.bySessions, sessionID)
	delete(r.byWorker, workerID)
	return workerID, true
}

// IsConnected reports whether the worker has a live MCP session.
func (r *SessionRegistry) IsConnected(workerID uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byWorker[workerID]
	return ok
}

// NotifyWorker implements port/notifier.WorkerNotifier. A worker without a session is
// reported with ErrNotConnected so callers can try another transport.
func (r *SessionRegistry) NotifyWorker(_ context.Context, workerID uuid.UUID, event any) error {
	r.mu.RLock()
	sessionID, ok := r.byWorker[workerID]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("worker %s: %w", workerID, ErrNotConnected)
	}

	r.mcpMu.RLock()
	srv := r.mcpSrv
	r.mcpMu.RUnlock()
	if srv == nil {
		return fmt.Errorf("mcp server not initialized")
	}

	params, err := toParams(event)
	if err != nil {
		return fmt.Errorf("serialize notification: %w", err)
	}
	return srv.SendNotificationToSpecificClient(sessionID, "notifications/message", params)
}

func toParams(event any) (map[string]any, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	var params map[string]any
	if err := json.Unmarshal(data, &params); err != nil {
		return map[string]any{"data": event}, nil
	}
	return params, nil
}
