package viewer

import (
	"context"
	"sync"

	"golang.org/x/net/websocket"

	"github.com/wolfman30/patient-records-viewer/internal/observability/metrics"
	"github.com/wolfman30/patient-records-viewer/internal/session"
	"github.com/wolfman30/patient-records-viewer/pkg/logging"
)

// wsConn tracks a state-stream subscriber. Sends are serialized so
// snapshots from concurrent flow completions cannot interleave on the
// wire.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (w *wsConn) send(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return websocket.JSON.Send(w.conn, v)
}

// Manager owns one session per client. A client views one patient at a
// time; selecting a different patient closes the old session and starts
// a fresh one. Summaries come through the shared profile cache, so
// reopening a patient does not refetch.
type Manager struct {
	ctx     context.Context
	gateway session.Gateway
	cache   session.ProfileCache
	logger  *logging.Logger
	metrics *metrics.ViewerMetrics

	mu       sync.RWMutex
	sessions map[string]*session.Session
	watchers map[string]*wsConn
}

// NewManager creates a session manager. ctx bounds the lifetime of all
// session work; request contexts never do.
func NewManager(ctx context.Context, gateway session.Gateway, cache session.ProfileCache, logger *logging.Logger, m *metrics.ViewerMetrics) *Manager {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Manager{
		ctx:      ctx,
		gateway:  gateway,
		cache:    cache,
		logger:   logger,
		metrics:  m,
		sessions: make(map[string]*session.Session),
		watchers: make(map[string]*wsConn),
	}
}

// Select makes patient the client's active patient and starts its
// summary load. Re-selecting the current patient is a no-op. Switching
// patients closes the previous session; its in-flight work finishes
// without committing anywhere visible.
func (m *Manager) Select(clientID, patient string) session.Snapshot {
	m.mu.Lock()
	if cur, ok := m.sessions[clientID]; ok {
		if cur.Patient() == patient {
			m.mu.Unlock()
			return cur.Snapshot()
		}
		cur.Close()
		m.metrics.SessionDetached()
	}
	s := session.New(m.ctx, patient, m.gateway, m.cache, m.logger, func() { m.push(clientID) })
	m.sessions[clientID] = s
	m.mu.Unlock()

	m.metrics.SessionAttached()
	m.logger.Info("patient selected", "client_id", clientID, "patient", patient)
	s.LoadSummary()
	return s.Snapshot()
}

// Deselect returns the client to the patient list, closing its session.
// Unknown clients are a no-op.
func (m *Manager) Deselect(clientID string) {
	m.mu.Lock()
	s, ok := m.sessions[clientID]
	if ok {
		delete(m.sessions, clientID)
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	s.Close()
	m.metrics.SessionDetached()
	m.logger.Info("patient deselected", "client_id", clientID, "patient", s.Patient())
	m.push(clientID)
}

// Session returns the client's active session, if any.
func (m *Manager) Session(clientID string) (*session.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[clientID]
	return s, ok
}

// Snapshot returns the client's current state. Clients without an
// active patient get the zero snapshot.
func (m *Manager) Snapshot(clientID string) session.Snapshot {
	if s, ok := m.Session(clientID); ok {
		return s.Snapshot()
	}
	return session.Snapshot{}
}

// Watch registers conn to receive the client's state snapshots. The
// current snapshot is sent immediately so the page renders without
// waiting for the next change. A client keeps at most one watcher; a
// newer connection evicts the old one.
func (m *Manager) Watch(clientID string, conn *websocket.Conn) *wsConn {
	w := &wsConn{conn: conn}
	m.mu.Lock()
	old := m.watchers[clientID]
	m.watchers[clientID] = w
	m.mu.Unlock()
	if old != nil {
		_ = old.conn.Close()
	}
	_ = w.send(m.Snapshot(clientID))
	return w
}

// Unwatch drops w if it is still the client's registered watcher.
func (m *Manager) Unwatch(clientID string, w *wsConn) {
	m.mu.Lock()
	if m.watchers[clientID] == w {
		delete(m.watchers, clientID)
	}
	m.mu.Unlock()
}

// push sends the client's current snapshot to its watcher, if any.
// Sessions call this after every committed state change.
func (m *Manager) push(clientID string) {
	m.mu.RLock()
	w := m.watchers[clientID]
	s := m.sessions[clientID]
	m.mu.RUnlock()
	if w == nil {
		return
	}
	var snap session.Snapshot
	if s != nil {
		snap = s.Snapshot()
	}
	if err := w.send(snap); err != nil {
		m.logger.Debug("state push failed", "client_id", clientID, "error", err)
	}
}
