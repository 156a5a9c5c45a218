package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"slices"

	"github.com/couchcryptid/civic-report-service/internal/domain"
	"github.com/couchcryptid/civic-report-service/internal/report"
)

const maxReportBody = 64 << 10

type errorResponse struct {
	Error      string `json:"error"`
	RetryAfter *int   `json:"retry_after,omitempty"`
}

type submitResponse struct {
	Success bool          `json:"success"`
	Report  domain.Report `json:"report"`
}

// handleListIssues returns every report in insertion order, or newest first
// with ?order=newest.
func (s *Server) handleListIssues(w http.ResponseWriter, r *http.Request) {
	reports := s.reports.Reports(r.Context())
	if r.URL.Query().Get("order") == "newest" {
		slices.Reverse(reports)
	}
	writeJSON(w, http.StatusOK, reports)
}

func (s *Server) handleSubmitReport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxReportBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid data"})
		return
	}

	in, ok := decodeReport(body)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid data"})
		return
	}

	stored, err := s.reports.Submit(r.Context(), in, report.SourceHTTP)
	switch {
	case errors.Is(err, domain.ErrInvalidReport):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	case err != nil:
		s.logger.Error("submit report failed", "request_id", requestID(r.Context()), "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to save report"})
		return
	}

	writeJSON(w, http.StatusCreated, submitResponse{Success: true, Report: stored})
}

// decodeReport accepts a single JSON object; an empty body, null, or any other
// JSON value is rejected.
func decodeReport(body []byte) (domain.Report, bool) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return domain.Report{}, false
	}
	var in domain.Report
	if err := json.Unmarshal(body, &in); err != nil {
		return domain.Report{}, false
	}
	return in, true
}

func (s *Server) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.reports.Heatmap(r.Context()))
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, _ *http.Request) {
	s.metrics.Heartbeats.Inc()
	w.WriteHeader(http.StatusNoContent)
}

// rateLimited refuses submissions from clients over their limit. Limiter
// errors let the request through.
func (s *Server) rateLimited(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		ok, retryAfter, err := s.limiter.Allow(r.Context(), ip)
		if err != nil {
			s.logger.Warn("rate limiter unavailable, allowing request",
				"request_id", requestID(r.Context()), "client_ip", ip, "error", err)
			next.ServeHTTP(w, r)
			return
		}
		if !ok {
			s.metrics.RateLimited.Inc()
			secs := int(math.Ceil(retryAfter.Seconds()))
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded", RetryAfter: &secs})
			return
		}
		next.ServeHTTP(w, r)
	})
}
