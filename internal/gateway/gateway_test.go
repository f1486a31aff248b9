package gateway

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func authedRequest(method, path string, body []byte) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Authorization", "Bearer "+TestToken)
	return req
}

// TestGateway_ReadyzReportsHealthyComponents verifies /readyz returns 200
// with every component marked ready when storage and engines are healthy.
func TestGateway_ReadyzReportsHealthyComponents(t *testing.T) {
	gw := NewTestGateway(t)

	rec := httptest.NewRecorder()
	gw.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp ReadyzResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ready" {
		t.Errorf("expected status ready, got %q", resp.Status)
	}
	for name, c := range resp.Components {
		if !c.Ready {
			t.Errorf("component %s not ready: %s", name, c.Message)
		}
	}
}

// TestGateway_DescribeUnknownEngineReturnsNotAvailable verifies describing
// an engine the router never registered is reported as unavailable rather
// than panicking or returning an empty 200.
func TestGateway_DescribeUnknownEngineReturnsNotAvailable(t *testing.T) {
	gw := NewTestGateway(t)

	rec := httptest.NewRecorder()
	gw.ServeHTTP(rec, authedRequest(http.MethodGet, "/engines/nonexistent", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d: %s", rec.Code, rec.Body.String())
	}
}

// TestGateway_ListEnginesIncludesUnavailableEngines verifies /engines
// surfaces configured-but-unavailable engines (trino, spark), not just the
// ones currently serving traffic - operators need to see the full roster.
func TestGateway_ListEnginesIncludesUnavailableEngines(t *testing.T) {
	gw := NewTestGateway(t)

	rec := httptest.NewRecorder()
	gw.ServeHTTP(rec, authedRequest(http.MethodGet, "/engines", nil))

	var resp EnginesResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	seen := map[string]bool{}
	for _, e := range resp.Engines {
		seen[e.Name] = true
	}
	for _, want := range []string{"duckdb", "trino", "spark"} {
		if !seen[want] {
			t.Errorf("expected engine %q in listing, got %+v", want, resp.Engines)
		}
	}
}

// TestGateway_ValidateRejectsWriteWithExplanation verifies /query/validate
// reports write operations as invalid with a non-empty reason, while still
// answering 200 (validity is reported in the body).
func TestGateway_ValidateRejectsWriteWithExplanation(t *testing.T) {
	gw := NewTestGatewayWithTable(t, "test.orders", []string{"READ"}, nil)

	body, _ := json.Marshal(QueryRequest{SQL: "DELETE FROM test.orders"})
	rec := httptest.NewRecorder()
	gw.ServeHTTP(rec, authedRequest(http.MethodPost, "/query/validate", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp ValidateResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Valid {
		t.Error("expected write operation to be invalid")
	}
	if resp.Error == "" {
		t.Error("expected a non-empty validation error")
	}
}

// TestGateway_AuditSummaryTracksAcceptedAndRejectedQueries verifies a
// successful query and a rejected one both show up in /audit/summary's
// aggregate counts.
func TestGateway_AuditSummaryTracksAcceptedAndRejectedQueries(t *testing.T) {
	gw := NewTestGatewayWithTable(t, "test.orders", []string{"READ"}, nil)

	okBody, _ := json.Marshal(QueryRequest{SQL: "SELECT * FROM test.orders"})
	rec := httptest.NewRecorder()
	gw.ServeHTTP(rec, authedRequest(http.MethodPost, "/query", okBody))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected query to succeed, got %d: %s", rec.Code, rec.Body.String())
	}

	badBody, _ := json.Marshal(QueryRequest{SQL: "SELECT * FROM test.unknown_table"})
	rec2 := httptest.NewRecorder()
	gw.ServeHTTP(rec2, authedRequest(http.MethodPost, "/query", badBody))
	if rec2.Code == http.StatusOK {
		t.Fatalf("expected query against unregistered table to fail")
	}

	rec3 := httptest.NewRecorder()
	gw.ServeHTTP(rec3, authedRequest(http.MethodGet, "/audit/summary", nil))
	if rec3.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec3.Code, rec3.Body.String())
	}

	var summary struct {
		AcceptedCount int `json:"accepted_count"`
		RejectedCount int `json:"rejected_count"`
	}
	if err := json.NewDecoder(rec3.Body).Decode(&summary); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if summary.AcceptedCount != 1 {
		t.Errorf("expected 1 accepted query, got %d", summary.AcceptedCount)
	}
	if summary.RejectedCount != 1 {
		t.Errorf("expected 1 rejected query, got %d", summary.RejectedCount)
	}
}

// TestGateway_MissingDependenciesRejected verifies NewGateway refuses to
// construct a gateway with no adapters registered rather than serving
// requests it cannot honor.
func TestGateway_MissingDependenciesRejected(t *testing.T) {
	gw := NewTestGateway(t)

	if _, err := NewGateway(gw.auth, gw.repo, gw.router, nil, Config{}); err == nil {
		t.Fatal("expected error constructing gateway with nil adapter registry")
	}
}
