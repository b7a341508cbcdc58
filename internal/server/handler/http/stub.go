// Package http provides the HTTP handlers of the stub form endpoint.
package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/atinyakov/formrelay/internal/middleware"
	"github.com/atinyakov/formrelay/internal/models"
)

// StubService defines the operations the stub handlers need.
type StubService interface {
	// Deliver records a delivery and returns the reply to send.
	Deliver(ctx context.Context, method, submissionID string, values url.Values) (models.SubmissionResult, error)
	// Deliveries lists recorded deliveries, filtered by submission when non-empty.
	Deliveries(ctx context.Context, submissionID string) ([]models.Delivery, error)
	// Forget drops the deliveries of the given submissions.
	Forget(ctx context.Context, submissionIDs []string) (int64, error)
}

// StubHandler serves the form endpoint and its delivery log.
type StubHandler struct {
	// StubService performs the underlying operations.
	StubService StubService
	// FailPost answers every POST with 503 so clients exercise their fallback.
	FailPost bool
	// Log reports service failures.
	Log *zap.Logger
}

// Exec handles POST and GET /exec. POST reads form values from the
// urlencoded body, GET from the query string. The reply is always a JSON
// SubmissionResult unless the delivery could not be recorded.
func (h *StubHandler) Exec(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost && h.FailPost {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	values := r.URL.Query()
	if r.Method == http.MethodPost {
		values = r.PostForm
	}

	res, err := h.StubService.Deliver(r.Context(), r.Method, r.Header.Get(middleware.SubmissionIDHeader), values)
	if err != nil {
		h.logger().Error("failed to record delivery", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, res)
}

// Deliveries handles GET /deliveries?submission_id=...
func (h *StubHandler) Deliveries(w http.ResponseWriter, r *http.Request) {
	list, err := h.StubService.Deliveries(r.Context(), r.URL.Query().Get("submission_id"))
	if err != nil {
		h.logger().Error("failed to list deliveries", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []models.Delivery{}
	}
	writeJSON(w, list)
}

// Forget handles DELETE /deliveries?submission_id=a&submission_id=b.
func (h *StubHandler) Forget(w http.ResponseWriter, r *http.Request) {
	ids := r.URL.Query()["submission_id"]
	if len(ids) == 0 {
		http.Error(w, "submission_id required", http.StatusBadRequest)
		return
	}
	removed, err := h.StubService.Forget(r.Context(), ids)
	if err != nil {
		h.logger().Error("failed to forget deliveries", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]int64{"removed": removed})
}

func (h *StubHandler) logger() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
