package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/patient-records-viewer/internal/profilecache"
	"github.com/wolfman30/patient-records-viewer/internal/records"
	"github.com/wolfman30/patient-records-viewer/pkg/logging"
)

// Gateway is the slice of the records gateway a session drives.
type Gateway interface {
	SubmitQuery(ctx context.Context, name, query string) (string, error)
	ListDocuments(ctx context.Context, name string) ([]records.Document, error)
	FetchDocumentContent(ctx context.Context, path string) (records.DocumentContent, error)
}

// ProfileCache is the slice of the profile cache a session drives.
type ProfileCache interface {
	Fetch(ctx context.Context, id string) (profilecache.Entry, error)
	Refresh(ctx context.Context, id string) (profilecache.Entry, error)
}

// Phase is where a flow sits in its lifecycle.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseSuccess Phase = "success"
	PhaseError   Phase = "error"
)

// Chat message roles.
const (
	RoleUser = "user"
	RoleBot  = "bot"
)

// ChatMessage is one line of the session's chat log.
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	IsError   bool      `json:"is_error,omitempty"`
}

// SummaryState is the summary flow.
type SummaryState struct {
	Phase   Phase           `json:"phase"`
	Summary records.Summary `json:"summary"`
	Err     string          `json:"error,omitempty"`
}

// ChatState is the chat flow. Messages live for the session only.
type ChatState struct {
	Messages []ChatMessage `json:"messages"`
	Pending  bool          `json:"pending"`
}

// DocumentsState is the document-list flow. Groups are derived from
// Documents when a snapshot is taken, never stored.
type DocumentsState struct {
	Phase     Phase                   `json:"phase"`
	Documents []records.Document      `json:"documents"`
	Groups    []records.CategoryGroup `json:"groups,omitempty"`
	Err       string                  `json:"error,omitempty"`
}

// DocContentState is the document-content flow for the selected
// document, if any.
type DocContentState struct {
	Phase          Phase  `json:"phase"`
	Path           string `json:"path,omitempty"`
	Content        string `json:"content,omitempty"`
	Classification string `json:"classification,omitempty"`
	Err            string `json:"error,omitempty"`
}

// Snapshot is a consistent copy of the whole session, safe to hold
// after the session moves on.
type Snapshot struct {
	Patient   string          `json:"patient"`
	Summary   SummaryState    `json:"summary"`
	Chat      ChatState       `json:"chat"`
	Documents DocumentsState  `json:"documents"`
	Document  DocContentState `json:"document"`
}

// Session holds the per-patient view state: four flows that never
// block one another, each stepping idle -> loading -> success or
// error. All mutation happens under one mutex; the change notification
// fires after the lock is released.
type Session struct {
	patient string
	gateway Gateway
	cache   ProfileCache
	logger  *logging.Logger
	notify  func()

	// ctx is the session's own lifetime, not any single request's.
	// In-flight work keeps running after a client detaches.
	ctx context.Context

	mu      sync.Mutex
	closed  bool
	summary SummaryState
	chat    ChatState
	docs    DocumentsState
	doc     DocContentState
}

// New creates a session for one patient. notify fires after every
// committed state change; pass nil when nobody listens.
func New(ctx context.Context, patient string, gateway Gateway, cache ProfileCache, logger *logging.Logger, notify func()) *Session {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = logging.Default()
	}
	if notify == nil {
		notify = func() {}
	}
	return &Session{
		patient: patient,
		gateway: gateway,
		cache:   cache,
		logger:  logger,
		notify:  notify,
		ctx:     ctx,
		summary: SummaryState{Phase: PhaseIdle},
		chat:    ChatState{Messages: []ChatMessage{}},
		docs:    DocumentsState{Phase: PhaseIdle},
		doc:     DocContentState{Phase: PhaseIdle},
	}
}

// Patient returns the patient this session belongs to.
func (s *Session) Patient() string { return s.patient }

// commit runs fn under the lock and fires the change notification
// afterwards when fn reports a change. Closed sessions commit nothing.
func (s *Session) commit(fn func() bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	changed := fn()
	s.mu.Unlock()
	if changed {
		s.notify()
	}
}

// LoadSummary starts the summary flow. The summary comes through the
// profile cache, so a patient whose fetch failed earlier lands in the
// error state without touching the network. No-op unless the flow is
// idle; a session in the error state stays there until RetrySummary.
func (s *Session) LoadSummary() {
	start := false
	s.commit(func() bool {
		if s.summary.Phase != PhaseIdle {
			return false
		}
		s.summary = SummaryState{Phase: PhaseLoading}
		start = true
		return true
	})
	if !start {
		return
	}
	go s.resolveSummary(false)
}

// RetrySummary is the user-initiated retry: it clears any cached
// failure and refetches. Allowed from the error state only.
func (s *Session) RetrySummary() {
	start := false
	s.commit(func() bool {
		if s.summary.Phase != PhaseError {
			return false
		}
		s.summary = SummaryState{Phase: PhaseLoading}
		start = true
		return true
	})
	if !start {
		return
	}
	go s.resolveSummary(true)
}

func (s *Session) resolveSummary(refresh bool) {
	var entry profilecache.Entry
	var err error
	if refresh {
		entry, err = s.cache.Refresh(s.ctx, s.patient)
	} else {
		entry, err = s.cache.Fetch(s.ctx, s.patient)
	}
	if err != nil {
		s.commit(func() bool {
			s.summary = SummaryState{Phase: PhaseError, Err: err.Error()}
			return true
		})
		return
	}

	s.commit(func() bool {
		if entry.Status == profilecache.StatusFailed {
			s.summary = SummaryState{Phase: PhaseError, Err: entry.Reason}
		} else {
			s.summary = SummaryState{Phase: PhaseSuccess, Summary: entry.Summary}
		}
		return true
	})
}

// SubmitChat sends a free-text question about the patient. Empty or
// whitespace-only text is ignored, as is a submission while another is
// in flight. The user's message is committed before the query runs; a
// failure comes back as a bot message flagged as an error.
func (s *Session) SubmitChat(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	start := false
	s.commit(func() bool {
		if s.chat.Pending {
			return false
		}
		s.chat.Pending = true
		s.chat.Messages = append(s.chat.Messages, ChatMessage{
			ID:        uuid.NewString(),
			Role:      RoleUser,
			Text:      text,
			Timestamp: time.Now(),
		})
		start = true
		return true
	})
	if !start {
		return
	}

	go func() {
		answer, err := s.gateway.SubmitQuery(s.ctx, s.patient, text)
		if err != nil {
			s.logger.Warn("chat query failed", "patient", s.patient, "error", err)
		}
		s.commit(func() bool {
			s.chat.Pending = false
			msg := ChatMessage{ID: uuid.NewString(), Role: RoleBot, Timestamp: time.Now()}
			if err != nil {
				msg.Text = err.Error()
				msg.IsError = true
			} else {
				msg.Text = answer
			}
			s.chat.Messages = append(s.chat.Messages, msg)
			return true
		})
	}()
}

// OpenDocuments starts the document-list flow. The list is fetched on
// the first open and fetched again only when the previous attempt
// errored or returned nothing; a non-empty list lives for the whole
// session.
func (s *Session) OpenDocuments() {
	start := false
	s.commit(func() bool {
		switch s.docs.Phase {
		case PhaseLoading:
			return false
		case PhaseSuccess:
			if len(s.docs.Documents) > 0 {
				return false
			}
		}
		s.docs = DocumentsState{Phase: PhaseLoading}
		start = true
		return true
	})
	if !start {
		return
	}

	go func() {
		docs, err := s.gateway.ListDocuments(s.ctx, s.patient)
		if err != nil {
			s.logger.Warn("document list failed", "patient", s.patient, "error", err)
		}
		s.commit(func() bool {
			if err != nil {
				s.docs = DocumentsState{Phase: PhaseError, Err: err.Error()}
			} else {
				s.docs = DocumentsState{Phase: PhaseSuccess, Documents: docs}
			}
			return true
		})
	}()
}

// SelectDocument starts the document-content flow for path. The result
// commits only if path is still the selected document when it arrives;
// a response for a document the user moved away from is dropped,
// errors included.
func (s *Session) SelectDocument(path string) {
	if strings.TrimSpace(path) == "" {
		return
	}

	start := false
	s.commit(func() bool {
		if s.doc.Path == path && (s.doc.Phase == PhaseLoading || s.doc.Phase == PhaseSuccess) {
			return false
		}
		s.doc = DocContentState{Phase: PhaseLoading, Path: path}
		start = true
		return true
	})
	if !start {
		return
	}

	go func() {
		content, err := s.gateway.FetchDocumentContent(s.ctx, path)
		if err != nil {
			s.logger.Warn("document content failed", "patient", s.patient, "path", path, "error", err)
		}
		s.commit(func() bool {
			if s.doc.Path != path {
				return false
			}
			if err != nil {
				s.doc = DocContentState{Phase: PhaseError, Path: path, Err: err.Error()}
			} else {
				s.doc = DocContentState{
					Phase:          PhaseSuccess,
					Path:           path,
					Content:        content.Content,
					Classification: content.Classification,
				}
			}
			return true
		})
	}()
}

// ClearDocument closes the document view. An in-flight fetch for the
// cleared path discards its result on arrival.
func (s *Session) ClearDocument() {
	s.commit(func() bool {
		if s.doc.Phase == PhaseIdle && s.doc.Path == "" {
			return false
		}
		s.doc = DocContentState{Phase: PhaseIdle}
		return true
	})
}

// Close detaches the session. In-flight work still finishes, and cache
// fills it started still land in the cache, but nothing further is
// committed here and the notification never fires again.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Snapshot returns a consistent copy of the session. Document groups
// are derived here so they always match the list.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Patient: s.patient,
		Summary: s.summary,
		Chat: ChatState{
			Messages: append([]ChatMessage(nil), s.chat.Messages...),
			Pending:  s.chat.Pending,
		},
		Documents: DocumentsState{
			Phase:     s.docs.Phase,
			Documents: append([]records.Document(nil), s.docs.Documents...),
			Err:       s.docs.Err,
		},
		Document: s.doc,
	}
	snap.Documents.Groups = records.GroupDocumentsByCategory(snap.Documents.Documents)
	return snap
}
