package records

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	c, err := NewClient(Config{BaseURL: ts.URL})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	return c, ts
}

func TestListPatients(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/patients" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"patients": []string{"jane_doe", "john_smith"}})
	}))

	patients, err := c.ListPatients(context.Background())
	if err != nil {
		t.Fatalf("ListPatients error: %v", err)
	}
	require.Equal(t, []string{"jane_doe", "john_smith"}, patients)
}

func TestFetchSummaryNormalizesEmptySections(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/summary/jane_doe" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"summary": map[string]any{
				"medication_summary": "Metformin 500mg daily.",
			},
		})
	}))

	summary, err := c.FetchSummary(context.Background(), "jane_doe")
	if err != nil {
		t.Fatalf("FetchSummary error: %v", err)
	}
	if summary.MedicationSummary != "Metformin 500mg daily." {
		t.Fatalf("unexpected medication summary: %q", summary.MedicationSummary)
	}
	if summary.LifestyleRecommendations != PlaceholderLifestyle {
		t.Fatalf("expected lifestyle placeholder, got %q", summary.LifestyleRecommendations)
	}
	if summary.ConditionSummary != PlaceholderCondition {
		t.Fatalf("expected condition placeholder, got %q", summary.ConditionSummary)
	}
}

func TestFetchSummaryNotFound(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"detail": "Summary for patient not found."})
	}))

	_, err := c.FetchSummary(context.Background(), "ghost")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %T: %v", err, err)
	}
}

func TestFetchSummaryServerError(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]any{"detail": "summary store offline"})
	}))

	_, err := c.FetchSummary(context.Background(), "jane_doe")
	var se *ServerError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusInternalServerError, se.StatusCode)
	require.Contains(t, se.Detail, "summary store offline")
}

func TestFetchSummaryNetworkError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	c, err := NewClient(Config{BaseURL: ts.URL})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	ts.Close()

	_, err = c.FetchSummary(context.Background(), "jane_doe")
	if !IsNetwork(err) {
		t.Fatalf("expected NetworkError, got %T: %v", err, err)
	}
}

func TestFetchSummaryMalformedBody(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))

	_, err := c.FetchSummary(context.Background(), "jane_doe")
	var se *ServerError
	require.ErrorAs(t, err, &se)
	require.Contains(t, se.Detail, "failed to decode")
}

func TestSubmitQuery(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/query" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode req: %v", err)
		}
		if req["patient_name"] != "jane_doe" || req["query"] != "current medications?" {
			t.Fatalf("unexpected payload: %v", req)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"answer": "Metformin."})
	}))

	answer, err := c.SubmitQuery(context.Background(), "jane_doe", "current medications?")
	if err != nil {
		t.Fatalf("SubmitQuery error: %v", err)
	}
	if answer != "Metformin." {
		t.Fatalf("unexpected answer: %q", answer)
	}
}

func TestSubmitQueryErrorPrefersDetail(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"detail": "query may not be empty"})
	}))

	_, err := c.SubmitQuery(context.Background(), "jane_doe", "")
	var qe *QueryError
	require.ErrorAs(t, err, &qe)
	require.Equal(t, "query may not be empty", qe.Detail)
}

func TestSubmitQueryErrorWithoutDetail(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := c.SubmitQuery(context.Background(), "jane_doe", "meds?")
	var qe *QueryError
	require.ErrorAs(t, err, &qe)
	require.Contains(t, qe.Detail, "502")
}

func TestListDocuments(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/documents/jane_doe" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"filename": "labs.pdf", "path": "docs/jane/labs.pdf", "category": "Lab Results"},
			{"filename": "intake.pdf", "path": "docs/jane/intake.pdf", "category": ""},
		})
	}))

	docs, err := c.ListDocuments(context.Background(), "jane_doe")
	if err != nil {
		t.Fatalf("ListDocuments error: %v", err)
	}
	require.Len(t, docs, 2)
	require.Equal(t, "labs.pdf", docs[0].Filename)
}

func TestListDocumentsNotFoundMeansEmpty(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"detail": "No documents found for this patient."})
	}))

	docs, err := c.ListDocuments(context.Background(), "jane_doe")
	if err != nil {
		t.Fatalf("expected 404 normalized to empty list, got error: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected empty list, got %d docs", len(docs))
	}
}

func TestFetchDocumentContent(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/document_content" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode req: %v", err)
		}
		if req["path"] != "docs/jane/labs.pdf" {
			t.Fatalf("unexpected path payload: %v", req)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"content": "HbA1c 6.1%", "classification": "Lab Results"})
	}))

	content, err := c.FetchDocumentContent(context.Background(), "docs/jane/labs.pdf")
	if err != nil {
		t.Fatalf("FetchDocumentContent error: %v", err)
	}
	if content.Content != "HbA1c 6.1%" || content.Classification != "Lab Results" {
		t.Fatalf("unexpected content: %+v", content)
	}
}

func TestFetchDocumentContentNotFound(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"detail": "Document file not found."})
	}))

	_, err := c.FetchDocumentContent(context.Background(), "docs/jane/missing.pdf")
	if !IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %T: %v", err, err)
	}
}

func TestFetchProfile(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/profile/jane_doe" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"name": "Jane Doe", "age": 44})
	}))

	profile, err := c.FetchProfile(context.Background(), "jane_doe")
	if err != nil {
		t.Fatalf("FetchProfile error: %v", err)
	}
	if profile["name"] != "Jane Doe" {
		t.Fatalf("unexpected profile: %v", profile)
	}
}

func TestStatus(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
	}))

	status, err := c.Status(context.Background())
	if err != nil {
		t.Fatalf("Status error: %v", err)
	}
	if status["status"] != "ok" {
		t.Fatalf("unexpected status: %v", status)
	}
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected error for missing BaseURL")
	}
}

func TestPatientNamePathEscaped(t *testing.T) {
	var gotPath string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_ = json.NewEncoder(w).Encode(map[string]any{"summary": map[string]any{}})
	}))

	if _, err := c.FetchSummary(context.Background(), "jane doe"); err != nil {
		t.Fatalf("FetchSummary error: %v", err)
	}
	if gotPath != "/summary/jane%20doe" {
		t.Fatalf("expected escaped path, got %s", gotPath)
	}
}
