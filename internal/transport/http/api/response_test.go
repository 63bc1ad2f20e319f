package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFailWithDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	FailWithDetails(rec, http.StatusBadRequest, "validation_error", "payload validation failed", map[string]any{"fields": []string{"weight"}}, "req-1")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var env struct {
		Success   bool   `json:"success"`
		RequestID string `json:"requestId"`
		Error     struct {
			Code    string         `json:"code"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Success || env.RequestID != "req-1" || env.Error.Code != "validation_error" || env.Error.Details["fields"] == nil {
		t.Fatalf("unexpected envelope %+v", env)
	}
}

func TestPDF(t *testing.T) {
	rec := httptest.NewRecorder()
	PDF(rec, "scorecard.pdf", []byte("%PDF-1.3"))
	if rec.Header().Get("Content-Type") != "application/pdf" {
		t.Fatalf("unexpected content type %q", rec.Header().Get("Content-Type"))
	}
	if rec.Header().Get("Content-Disposition") != `attachment; filename="scorecard.pdf"` {
		t.Fatalf("unexpected disposition %q", rec.Header().Get("Content-Disposition"))
	}
	if rec.Body.String() != "%PDF-1.3" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}
