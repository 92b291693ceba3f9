package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hyperengineering/codex/internal/store"
	"github.com/hyperengineering/codex/internal/validation"
)

const problemBase = "https://codex.hyperengineering.dev/errors/"

// Problem represents an RFC 7807 Problem Details response.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance,omitempty"`
}

type problemType struct {
	slug  string
	title string
}

// problemTypes maps HTTP status codes to RFC 7807 type slugs and titles.
var problemTypes = map[int]problemType{
	http.StatusBadRequest:          {"bad-request", "Bad Request"},
	http.StatusUnauthorized:        {"unauthorized", "Unauthorized"},
	http.StatusNotFound:            {"not-found", "Not Found"},
	http.StatusUnprocessableEntity: {"validation-error", "Validation Error"},
	http.StatusTooManyRequests:     {"rate-limit", "Too Many Requests"},
	http.StatusInternalServerError: {"internal-error", "Internal Server Error"},
}

func newProblem(r *http.Request, status int, detail string) Problem {
	pt, ok := problemTypes[status]
	if !ok {
		pt = problemType{slug: "unknown", title: http.StatusText(status)}
	}
	return Problem{
		Type:     problemBase + pt.slug,
		Title:    pt.title,
		Status:   status,
		Detail:   detail,
		Instance: r.URL.Path,
	}
}

func writeProblemBody(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode problem response", "error", err)
	}
}

// WriteProblem writes an RFC 7807 Problem Details response.
func WriteProblem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	writeProblemBody(w, status, newProblem(r, status, detail))
}

// ProblemWithErrors extends Problem with validation error details.
type ProblemWithErrors struct {
	Problem
	Errors []validation.ValidationError `json:"errors,omitempty"`
}

// WriteProblemWithErrors writes a 422 Problem Details response with field errors.
func WriteProblemWithErrors(w http.ResponseWriter, r *http.Request, detail string, errs []validation.ValidationError) {
	writeProblemBody(w, http.StatusUnprocessableEntity, ProblemWithErrors{
		Problem: newProblem(r, http.StatusUnprocessableEntity, detail),
		Errors:  errs,
	})
}

// MapStoreError converts domain errors to Problem Details responses.
func MapStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		WriteProblem(w, r, http.StatusNotFound, "No matching records")
	case errors.Is(err, store.ErrInvalidFingerprint):
		WriteProblem(w, r, http.StatusUnprocessableEntity, "Fingerprint must be finite")
	default:
		// Never expose internal error details to client
		WriteProblem(w, r, http.StatusInternalServerError, "Internal Server Error")
	}
}
