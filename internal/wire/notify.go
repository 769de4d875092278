package wire

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	portdist "github.com/alanyang/build-mesh/internal/port/distributor"
	portnotifier "github.com/alanyang/build-mesh/internal/port/notifier"
	mcptransport "github.com/alanyang/build-mesh/internal/transport/mcp"
	wshandler "github.com/alanyang/build-mesh/internal/transport/ws"
)

// attentionRelay lets services that the distributor depends on request attention
// before the distributor exists. Calls made before bind are dropped; the startup
// sweep requests attention for every builder once the distributor is bound.
type attentionRelay struct {
	target atomic.Pointer[portdist.AttentionRequester]
}

func (r *attentionRelay) bind(t portdist.AttentionRequester) { r.target.Store(&t) }

func (r *attentionRelay) RequestAttention(builders ...string) {
	if t := r.target.Load(); t != nil {
		(*t).RequestAttention(builders...)
	}
}

var (
	_ portdist.AttentionRequester = (*attentionRelay)(nil)
	_ portnotifier.WorkerNotifier = (*sessionNotifier)(nil)
)

// sessionNotifier delivers to whichever transport holds the worker's session:
// the websocket hub first, then the MCP registry.
type sessionNotifier struct {
	hub *wshandler.Hub
	mcp *mcptransport.SessionRegistry
}

func (n *sessionNotifier) NotifyWorker(ctx context.Context, workerID uuid.UUID, ev any) error {
	err := n.hub.NotifyWorker(ctx, workerID, ev)
	if err == nil || !errors.Is(err, wshandler.ErrNoSession) {
		return err
	}
	if err := n.mcp.NotifyWorker(ctx, workerID, ev); err != nil {
		return fmt.Errorf("notify worker %s: %w", workerID, err)
	}
	return nil
}

// hasSession reports whether either transport holds a live session for the worker.
func (n *sessionNotifier) hasSession(workerID uuid.UUID) bool {
	return n.hub.HasSession(workerID) || n.mcp.IsConnected(workerID)
}
