package viewer

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/patient-records-viewer/internal/observability/metrics"
	"github.com/wolfman30/patient-records-viewer/internal/profilecache"
	"github.com/wolfman30/patient-records-viewer/internal/records"
	"github.com/wolfman30/patient-records-viewer/internal/session"
	"github.com/wolfman30/patient-records-viewer/pkg/logging"
)

// Version is stamped by the build (-ldflags "-X ...viewer.Version=").
var Version = "dev"

// cacheInfo reports profile cache health without exposing the cache
// itself. The concrete cache satisfies it.
type cacheInfo interface {
	Counts() (ready, failed int)
	LastPersistenceError() string
}

// Handler wires HTTP requests to the session manager and the records
// gateway.
type Handler struct {
	manager      *Manager
	gateway      records.API
	cache        cacheInfo
	logger       *logging.Logger
	gatherer     prometheus.Gatherer
	cacheBackend string
	startedAt    time.Time
}

// NewHandler creates a viewer handler. gatherer may be nil when metrics
// are disabled.
func NewHandler(manager *Manager, gateway records.API, cache cacheInfo, cacheBackend string, gatherer prometheus.Gatherer, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		manager:      manager,
		gateway:      gateway,
		cache:        cache,
		logger:       logger,
		gatherer:     gatherer,
		cacheBackend: cacheBackend,
		startedAt:    time.Now(),
	}
}

type selectRequest struct {
	ClientID string `json:"client_id"`
	Patient  string `json:"patient"`
}

type clientRequest struct {
	ClientID string `json:"client_id"`
}

type chatRequest struct {
	ClientID string `json:"client_id"`
	Text     string `json:"text"`
}

type documentRequest struct {
	ClientID string `json:"client_id"`
	Path     string `json:"path"`
}

// stateResponse is the envelope every session endpoint answers with.
// The page keeps client_id and renders state.
type stateResponse struct {
	ClientID string           `json:"client_id"`
	State    session.Snapshot `json:"state"`
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Patients handles GET /api/patients.
func (h *Handler) Patients(w http.ResponseWriter, r *http.Request) {
	patients, err := h.gateway.ListPatients(r.Context())
	if err != nil {
		h.logger.Error("failed to list patients", "error", err)
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string][]string{"patients": patients})
}

// Select handles POST /api/select. A blank client_id gets a generated
// one; the page must carry it into every later call.
func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Patient == "" {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "patient is required"})
		return
	}
	if req.ClientID == "" {
		req.ClientID = uuid.NewString()
	}
	snap := h.manager.Select(req.ClientID, req.Patient)
	h.writeJSON(w, http.StatusOK, stateResponse{ClientID: req.ClientID, State: snap})
}

// Deselect handles POST /api/deselect, returning the client to the
// patient list.
func (h *Handler) Deselect(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeClient(w, r)
	if !ok {
		return
	}
	h.manager.Deselect(req.ClientID)
	h.writeJSON(w, http.StatusOK, stateResponse{ClientID: req.ClientID, State: session.Snapshot{}})
}

// State handles GET /api/state. Pages without a working state stream
// poll this.
func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "client_id is required"})
		return
	}
	h.writeJSON(w, http.StatusOK, stateResponse{ClientID: clientID, State: h.manager.Snapshot(clientID)})
}

// Chat handles POST /api/chat. Blank input and input while a reply is
// pending are dropped by the session, so the returned snapshot is the
// source of truth for whether the message was accepted.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	s, ok := h.session(w, req.ClientID)
	if !ok {
		return
	}
	s.SubmitChat(req.Text)
	h.writeJSON(w, http.StatusAccepted, stateResponse{ClientID: req.ClientID, State: s.Snapshot()})
}

// RetrySummary handles POST /api/summary/retry.
func (h *Handler) RetrySummary(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeClient(w, r)
	if !ok {
		return
	}
	s, ok := h.session(w, req.ClientID)
	if !ok {
		return
	}
	s.RetrySummary()
	h.writeJSON(w, http.StatusAccepted, stateResponse{ClientID: req.ClientID, State: s.Snapshot()})
}

// OpenDocuments handles POST /api/documents/open.
func (h *Handler) OpenDocuments(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeClient(w, r)
	if !ok {
		return
	}
	s, ok := h.session(w, req.ClientID)
	if !ok {
		return
	}
	s.OpenDocuments()
	h.writeJSON(w, http.StatusAccepted, stateResponse{ClientID: req.ClientID, State: s.Snapshot()})
}

// SelectDocument handles POST /api/documents/select.
func (h *Handler) SelectDocument(w http.ResponseWriter, r *http.Request) {
	var req documentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	s, ok := h.session(w, req.ClientID)
	if !ok {
		return
	}
	s.SelectDocument(req.Path)
	h.writeJSON(w, http.StatusAccepted, stateResponse{ClientID: req.ClientID, State: s.Snapshot()})
}

// ClearDocument handles POST /api/documents/clear.
func (h *Handler) ClearDocument(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeClient(w, r)
	if !ok {
		return
	}
	s, ok := h.session(w, req.ClientID)
	if !ok {
		return
	}
	s.ClearDocument()
	h.writeJSON(w, http.StatusOK, stateResponse{ClientID: req.ClientID, State: s.Snapshot()})
}

// Profile handles GET /api/profile/{name}. Profiles are small and read
// straight through to the gateway.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	profile, err := h.gateway.FetchProfile(r.Context(), name)
	if err != nil {
		h.logger.Error("failed to fetch profile", "patient", name, "error", err)
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, profile)
}

type cacheStatus struct {
	Backend              string `json:"backend"`
	Ready                int    `json:"ready"`
	Failed               int    `json:"failed"`
	LastPersistenceError string `json:"last_persistence_error,omitempty"`
}

type statusResponse struct {
	Status        string                        `json:"status"`
	Version       string                        `json:"version"`
	UptimeSeconds int64                         `json:"uptime_seconds"`
	Cache         cacheStatus                   `json:"cache"`
	RemoteLatency metrics.RemoteLatencySnapshot `json:"remote_latency"`
	Upstream      map[string]any                `json:"upstream,omitempty"`
	UpstreamError string                        `json:"upstream_error,omitempty"`
}

// Status handles GET /api/status. It reports viewer health plus a
// passthrough probe of the records service; the probe failing does not
// fail the endpoint.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	ready, failed := h.cache.Counts()
	resp := statusResponse{
		Status:        "ok",
		Version:       Version,
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		Cache: cacheStatus{
			Backend:              h.cacheBackend,
			Ready:                ready,
			Failed:               failed,
			LastPersistenceError: h.cache.LastPersistenceError(),
		},
		RemoteLatency: metrics.SnapshotRemoteLatency(h.gatherer),
	}
	upstream, err := h.gateway.Status(r.Context())
	if err != nil {
		resp.UpstreamError = err.Error()
	} else {
		resp.Upstream = upstream
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// decodeClient reads the common {client_id} request body.
func (h *Handler) decodeClient(w http.ResponseWriter, r *http.Request) (clientRequest, bool) {
	var req clientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return clientRequest{}, false
	}
	if req.ClientID == "" {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "client_id is required"})
		return clientRequest{}, false
	}
	return req, true
}

// session resolves the client's active session, answering 404 when the
// client has no patient selected.
func (h *Handler) session(w http.ResponseWriter, clientID string) (*session.Session, bool) {
	if clientID == "" {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "client_id is required"})
		return nil, false
	}
	s, ok := h.manager.Session(clientID)
	if !ok {
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "no active patient for client"})
		return nil, false
	}
	return s, true
}

// writeError maps gateway errors onto HTTP statuses. Anything that is
// not a missing resource surfaces as a bad gateway.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	if records.IsNotFound(err) {
		status = http.StatusNotFound
	}
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}

var _ cacheInfo = (*profilecache.Cache)(nil)
