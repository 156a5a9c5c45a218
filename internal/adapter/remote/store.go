// Package remote is a report store backed by another instance's HTTP API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/civic-report-service/internal/domain"
)

const maxErrorBody = 4 << 10

// Store reads from GET /api/issues and appends through POST /api/report.
type Store struct {
	baseURL    string
	httpClient *http.Client
}

// NewStore creates a client for the server at baseURL.
func NewStore(baseURL string, timeout time.Duration) *Store {
	return &Store{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// LoadAll fetches the server's report sequence.
func (s *Store) LoadAll(ctx context.Context) ([]domain.Report, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/issues", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var reports []domain.Report
	if err := json.NewDecoder(resp.Body).Decode(&reports); err != nil {
		return nil, fmt.Errorf("decode issues: %w", err)
	}
	if reports == nil {
		reports = []domain.Report{}
	}
	return reports, nil
}

// Append submits r and returns the report as the server stored it. A 400
// response is reported as domain.ErrInvalidReport.
func (s *Store) Append(ctx context.Context, r domain.Report) (domain.Report, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return domain.Report{}, fmt.Errorf("encode report: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/report", bytes.NewReader(body))
	if err != nil {
		return domain.Report{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return domain.Report{}, fmt.Errorf("submit report: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated, http.StatusOK:
	case http.StatusBadRequest:
		var e errorResponse
		_ = json.NewDecoder(io.LimitReader(resp.Body, maxErrorBody)).Decode(&e)
		return domain.Report{}, fmt.Errorf("%w: %s", domain.ErrInvalidReport, e.Error)
	default:
		return domain.Report{}, statusError(resp)
	}

	var created submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return domain.Report{}, fmt.Errorf("decode submit response: %w", err)
	}
	if !created.Success {
		return domain.Report{}, fmt.Errorf("submit report: server did not confirm success")
	}
	return created.Report, nil
}

// Ping checks the remote server's health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("remote health: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("remote health: status %d", resp.StatusCode)
	}
	return nil
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return fmt.Errorf("remote store error: status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
}

type submitResponse struct {
	Success bool          `json:"success"`
	Report  domain.Report `json:"report"`
}

type errorResponse struct {
	Error string `json:"error"`
}
