package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hyperengineering/codex/internal/store"
	"github.com/hyperengineering/codex/internal/validation"
)

func TestWriteProblem(t *testing.T) {
	tests := []struct {
		status    int
		wantType  string
		wantTitle string
	}{
		{http.StatusBadRequest, problemBase + "bad-request", "Bad Request"},
		{http.StatusNotFound, problemBase + "not-found", "Not Found"},
		{http.StatusUnprocessableEntity, problemBase + "validation-error", "Validation Error"},
		{http.StatusTooManyRequests, problemBase + "rate-limit", "Too Many Requests"},
		{http.StatusTeapot, problemBase + "unknown", "I'm a teapot"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/data", nil)
			w := httptest.NewRecorder()
			WriteProblem(w, req, tt.status, "detail text")

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/problem+json" {
				t.Errorf("Content-Type = %q", ct)
			}
			var p Problem
			if err := json.NewDecoder(w.Body).Decode(&p); err != nil {
				t.Fatal(err)
			}
			if p.Type != tt.wantType || p.Title != tt.wantTitle {
				t.Errorf("problem = %+v", p)
			}
			if p.Detail != "detail text" || p.Instance != "/api/v1/data" || p.Status != tt.status {
				t.Errorf("problem = %+v", p)
			}
		})
	}
}

func TestWriteProblemWithErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/data", nil)
	w := httptest.NewRecorder()
	WriteProblemWithErrors(w, req, "Request contains invalid fields", []validation.ValidationError{
		{Field: "text", Message: "is required"},
	})

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	var p ProblemWithErrors
	if err := json.NewDecoder(w.Body).Decode(&p); err != nil {
		t.Fatal(err)
	}
	if len(p.Errors) != 1 || p.Errors[0].Field != "text" {
		t.Errorf("errors = %+v", p.Errors)
	}
}

func TestMapStoreError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", store.ErrNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("delete: %w", store.ErrNotFound), http.StatusNotFound},
		{"invalid fingerprint", store.ErrInvalidFingerprint, http.StatusUnprocessableEntity},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/data", nil)
			w := httptest.NewRecorder()
			MapStoreError(w, req, tt.err)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}
