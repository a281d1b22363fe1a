package records

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wolfman30/patient-records-viewer/internal/observability/metrics"
	"github.com/wolfman30/patient-records-viewer/pkg/logging"
)

const defaultTimeout = 30 * time.Second

// API is the gateway surface the rest of the viewer depends on. Client
// implements it against the HTTP records service; tests substitute
// hand-written fakes.
type API interface {
	ListPatients(ctx context.Context) ([]string, error)
	FetchProfile(ctx context.Context, name string) (Profile, error)
	FetchSummary(ctx context.Context, name string) (Summary, error)
	SubmitQuery(ctx context.Context, name, query string) (string, error)
	ListDocuments(ctx context.Context, name string) ([]Document, error)
	FetchDocumentContent(ctx context.Context, path string) (DocumentContent, error)
	Status(ctx context.Context) (map[string]any, error)
}

// Client is the HTTP client for the records API. It owns error
// normalization: callers see the typed errors from errors.go, never a
// raw status code. It does not retry and does not cache.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
	metrics    *metrics.ViewerMetrics
}

var _ API = (*Client)(nil)

// Config holds configuration for the records client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Logger  *logging.Logger
	Metrics *metrics.ViewerMetrics
}

// NewClient creates a records API client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("records: BaseURL is required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		metrics:    cfg.Metrics,
	}, nil
}

// ListPatients returns the ids of every patient the records service knows.
func (c *Client) ListPatients(ctx context.Context) ([]string, error) {
	req, err := c.newGet(ctx, "/patients")
	if err != nil {
		return nil, err
	}

	resp, err := c.send("list_patients", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.serverError("list_patients", resp)
	}

	var out struct {
		Patients []string `json:"patients"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, c.decodeError("list_patients", err)
	}
	return out.Patients, nil
}

// FetchProfile returns the raw profile payload for one patient.
func (c *Client) FetchProfile(ctx context.Context, name string) (Profile, error) {
	req, err := c.newGet(ctx, "/profile/"+url.PathEscape(name))
	if err != nil {
		return nil, err
	}

	resp, err := c.send("fetch_profile", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &NotFoundError{Resource: "profile", Name: name}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.serverError("fetch_profile", resp)
	}

	var out Profile
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, c.decodeError("fetch_profile", err)
	}
	return out, nil
}

// FetchSummary returns the clinical summary for one patient, with empty
// sections normalized to placeholder text. A 404 means the patient has
// no summary and is returned as a NotFoundError, distinct from every
// other failure.
func (c *Client) FetchSummary(ctx context.Context, name string) (Summary, error) {
	req, err := c.newGet(ctx, "/summary/"+url.PathEscape(name))
	if err != nil {
		return Summary{}, err
	}

	resp, err := c.send("fetch_summary", req)
	if err != nil {
		return Summary{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Summary{}, &NotFoundError{Resource: "summary", Name: name}
	}
	if resp.StatusCode != http.StatusOK {
		return Summary{}, c.serverError("fetch_summary", resp)
	}

	var out struct {
		Summary Summary `json:"summary"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Summary{}, c.decodeError("fetch_summary", err)
	}
	return out.Summary.Normalize(), nil
}

// SubmitQuery sends a free-text question about one patient and returns
// the answer. Upstream rejections come back as a QueryError carrying
// the service's detail message when it sent one.
func (c *Client) SubmitQuery(ctx context.Context, name, query string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"patient_name": name,
		"query":        query,
	})
	if err != nil {
		return "", fmt.Errorf("records: failed to encode query: %w", err)
	}

	req, err := c.newPost(ctx, "/query", payload)
	if err != nil {
		return "", err
	}

	resp, err := c.send("submit_query", req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		detail := errorDetail(body)
		if detail == "" {
			detail = fmt.Sprintf("records service returned status %d", resp.StatusCode)
		}
		return "", &QueryError{Detail: detail}
	}

	var out struct {
		Answer string `json:"answer"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", c.decodeError("submit_query", err)
	}
	return out.Answer, nil
}

// ListDocuments returns the document index for one patient. The
// upstream answers 404 when a patient has no documents; that is
// normalized to an empty list here so callers never branch on it.
func (c *Client) ListDocuments(ctx context.Context, name string) ([]Document, error) {
	req, err := c.newGet(ctx, "/documents/"+url.PathEscape(name))
	if err != nil {
		return nil, err
	}

	resp, err := c.send("list_documents", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return []Document{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.serverError("list_documents", resp)
	}

	var out []Document
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, c.decodeError("list_documents", err)
	}
	return out, nil
}

// FetchDocumentContent returns the text of a single document by its
// repository path.
func (c *Client) FetchDocumentContent(ctx context.Context, path string) (DocumentContent, error) {
	payload, err := json.Marshal(map[string]string{"path": path})
	if err != nil {
		return DocumentContent{}, fmt.Errorf("records: failed to encode document request: %w", err)
	}

	req, err := c.newPost(ctx, "/document_content", payload)
	if err != nil {
		return DocumentContent{}, err
	}

	resp, err := c.send("fetch_document_content", req)
	if err != nil {
		return DocumentContent{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return DocumentContent{}, &NotFoundError{Resource: "document", Name: path}
	}
	if resp.StatusCode != http.StatusOK {
		return DocumentContent{}, c.serverError("fetch_document_content", resp)
	}

	var out DocumentContent
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return DocumentContent{}, c.decodeError("fetch_document_content", err)
	}
	return out, nil
}

// Status returns the records service's own health payload.
func (c *Client) Status(ctx context.Context) (map[string]any, error) {
	req, err := c.newGet(ctx, "/status")
	if err != nil {
		return nil, err
	}

	resp, err := c.send("status", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.serverError("status", resp)
	}

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, c.decodeError("status", err)
	}
	return out, nil
}

func (c *Client) newGet(ctx context.Context, path string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("records: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) newPost(ctx context.Context, path string, payload []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("records: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// send executes the request and records the outcome. Transport-level
// failure is the only error it returns; status handling stays with the
// caller because each operation maps statuses differently.
func (c *Client) send(op string, req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	seconds := time.Since(start).Seconds()
	if err != nil {
		c.metrics.ObserveRemote(op, "network_error", seconds)
		c.logger.Warn("records API unreachable", "operation", op, "error", err)
		return nil, &NetworkError{Op: op, Err: err}
	}

	outcome := "success"
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		outcome = fmt.Sprintf("http_%d", resp.StatusCode)
	}
	c.metrics.ObserveRemote(op, outcome, seconds)
	return resp, nil
}

func (c *Client) serverError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	return &ServerError{Op: op, StatusCode: resp.StatusCode, Detail: errorDetail(body)}
}

// decodeError treats a malformed success body as a server fault.
func (c *Client) decodeError(op string, err error) error {
	return &ServerError{Op: op, StatusCode: http.StatusOK, Detail: fmt.Sprintf("failed to decode response: %v", err)}
}

// errorDetail pulls a {"detail": ...} message out of an error body,
// falling back to the raw body text.
func errorDetail(body []byte) string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && strings.TrimSpace(payload.Detail) != "" {
		return payload.Detail
	}
	return strings.TrimSpace(string(body))
}
