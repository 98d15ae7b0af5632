package session

import (
	"fmt"

	"github.com/rbright/autojs-host/internal/correlator"
	"github.com/rbright/autojs-host/internal/protocol"
)

// route says where an inbound kind goes: to push handlers or a correlator queue.
type route struct {
	push     bool
	category correlator.Category
}

func defaultRoutes() map[protocol.Kind]route {
	return map[protocol.Kind]route{
		protocol.KindLog:       {push: true},
		protocol.KindStatusBar: {push: true},
		protocol.KindResult:    {category: correlator.CategoryResult},
		protocol.KindStatus:    {category: correlator.CategoryStatus},
		protocol.KindSnapshot:  {category: correlator.CategorySnapshot},
	}
}

// handleFrame decodes and routes one inbound frame. Decode failures are
// reported and the frame is discarded; the session stays up.
func (m *Manager) handleFrame(conn *connection, data []byte) {
	cmd, err := protocol.Decode(string(data))
	if err != nil {
		m.logger.Warn("discarding device frame", "conn_id", conn.id, "bytes", len(data), "error", err.Error())
		m.diag.Warn(fmt.Sprintf("discarding device frame: %v", err))
		return
	}

	r, ok := m.routes[cmd.Kind()]
	if !ok || (!r.push && !isResponse(cmd)) {
		m.logger.Warn("unexpected frame from device", "conn_id", conn.id, "kind", string(cmd.Kind()))
		return
	}

	if r.push {
		m.pushMu.RLock()
		handlers := m.push[cmd.Kind()]
		m.pushMu.RUnlock()
		for _, handler := range handlers {
			handler(cmd)
		}
		return
	}

	m.correlator.Deliver(r.category, cmd)
}

// isResponse filters out request-shaped variants sharing a kind with a response.
func isResponse(cmd protocol.Command) bool {
	switch cmd.(type) {
	case protocol.OperationResult, protocol.StatusResult, protocol.SnapshotResult:
		return true
	default:
		return false
	}
}
