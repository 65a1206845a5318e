package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestLoggingMiddlewareWritesRequestLine(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("created"))
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rules/", nil)
	rr := httptest.NewRecorder()

	NewLoggingMiddleware(logger).Wrap(next).ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected wrapped handler response 201, got %d", rr.Code)
	}

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("failed to decode log line %q: %v", buf.String(), err)
	}

	if line["method"] != http.MethodPost {
		t.Errorf("expected method POST, got %v", line["method"])
	}
	if line["path"] != "/api/v1/rules/" {
		t.Errorf("expected path /api/v1/rules/, got %v", line["path"])
	}
	if line["status"] != float64(http.StatusCreated) {
		t.Errorf("expected status 201, got %v", line["status"])
	}
	if line["bytes"] != float64(len("created")) {
		t.Errorf("expected bytes %d, got %v", len("created"), line["bytes"])
	}
	if line["message"] != "request completed" {
		t.Errorf("unexpected message %v", line["message"])
	}
}

func TestLoggingMiddlewareDefaultsTo200(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	// Handler that never calls WriteHeader.
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	NewLoggingMiddleware(logger).Wrap(next).ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("failed to decode log line %q: %v", buf.String(), err)
	}

	if line["status"] != float64(http.StatusOK) {
		t.Errorf("expected implicit 200, got %v", line["status"])
	}
}

func TestRecoveryTurnsPanicInto500(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions/", nil)
	rr := httptest.NewRecorder()

	Recovery(logger)(next).ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "internal server error") {
		t.Errorf("unexpected body %q", rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON content type, got %q", ct)
	}
	if !strings.Contains(buf.String(), "panic recovered") || !strings.Contains(buf.String(), "boom") {
		t.Errorf("expected panic log line, got %q", buf.String())
	}
}

func TestRecoveryPassesThroughCleanRequests(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	rr := httptest.NewRecorder()
	Recovery(logger)(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no log output, got %q", buf.String())
	}
}
