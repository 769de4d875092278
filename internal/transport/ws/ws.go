package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	portnotifier "github.com/alanyang/build-mesh/internal/port/notifier"
)

var _ portnotifier.WorkerNotifier = (*Hub)(nil)

// ErrNoSession is returned by NotifyWorker when the worker has no open socket.
var ErrNoSession = errors.New("worker has no live session")

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// SessionHooks observe worker sessions. Any hook may be nil.
type SessionHooks struct {
	Opened   func(ctx context.Context, workerID uuid.UUID)
	Closed   func(ctx context.Context, workerID uuid.UUID)
	Activity func(ctx context.Context, workerID uuid.UUID)
}

// client serialises writes; gorilla connections allow one concurrent writer.
type client struct {
	conn     *websocket.Conn
	workerID uuid.UUID
	mu       sync.Mutex
}

func (cl *client) write(data []byte) error {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return cl.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub fans events out to every connected socket. Sockets opened with a worker_id
// query parameter are worker sessions and also receive targeted notifications.
type Hub struct {
	hooks SessionHooks

	mu      sync.RWMutex
	clients map[*client]bool
	workers map[uuid.UUID]*client
}

func NewHub(hooks SessionHooks) *Hub {
	return &Hub{
		hooks:   hooks,
		clients: make(map[*client]bool),
		workers: make(map[uuid.UUID]*client),
	}
}

func (h *Hub) Register(rg *gin.RouterGroup) {
	rg.GET("", h.handleWS)
}

func (h *Hub) handleWS(c *gin.Context) {
	var workerID uuid.UUID
	if v := c.Query("worker_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid worker_id"})
			return
		}
		workerID = id
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	// The request context ends with the handler; hooks run on a detached one.
	ctx := context.WithoutCancel(c.Request.Context())
	cl := &client{conn: conn, workerID: workerID}
	h.add(ctx, cl)
	defer func() {
		h.remove(ctx, cl)
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
		if cl.workerID != uuid.Nil && h.hooks.Activity != nil {
			h.hooks.Activity(ctx, cl.workerID)
		}
	}
}

func (h *Hub) add(ctx context.Context, cl *client) {
	h.mu.Lock()
	h.clients[cl] = true
	var replaced *client
	if cl.workerID != uuid.Nil {
		replaced = h.workers[cl.workerID]
		h.workers[cl.workerID] = cl
	}
	h.mu.Unlock()

	if replaced != nil {
		// A reconnect supersedes the old socket.
		replaced.conn.Close()
	}
	if cl.workerID != uuid.Nil && h.hooks.Opened != nil {
		h.hooks.Opened(ctx, cl.workerID)
	}
}

func (h *Hub) remove(ctx context.Context, cl *client) {
	h.mu.Lock()
	delete(h.clients, cl)
	current := cl.workerID != uuid.Nil && h.workers[cl.workerID] == cl
	if current {
		delete(h.workers, cl.workerID)
	}
	h.mu.Unlock()

	if current && h.hooks.Closed != nil {
		h.hooks.Closed(ctx, cl.workerID)
	}
}

// HasSession reports whether the worker currently holds an open socket.
func (h *Hub) HasSession(workerID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.workers[workerID]
	return ok
}

// NotifyWorker implements port/notifier.WorkerNotifier.
func (h *Hub) NotifyWorker(_ context.Context, workerID uuid.UUID, event any) error {
	h.mu.RLock()
	cl, ok := h.workers[workerID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("notify worker %s: %w", workerID, ErrNoSession)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := cl.write(data); err != nil {
		return fmt.Errorf("notify worker %s: %w", workerID, err)
	}
	return nil
}

func (h *Hub) Broadcast(event interface{}) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("websocket broadcast marshal failed", "error", err)
		return
	}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for cl := range h.clients {
		clients = append(clients, cl)
	}
	h.mu.RUnlock()

	for _, cl := range clients {
		if err := cl.write(data); err != nil {
			slog.Error("websocket write failed", "error", err)
		}
	}
}
