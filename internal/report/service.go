// Package report owns the report sequence: it validates and stores new
// submissions, hands out unique IDs and derives the heatmap on demand.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/civic-report-service/internal/cluster"
	"github.com/couchcryptid/civic-report-service/internal/domain"
	"github.com/couchcryptid/civic-report-service/internal/observability"
)

// Intake sources, used as the metrics "source" label.
const (
	SourceHTTP  = "http"
	SourceKafka = "kafka"
)

// Store is the persisted, append-only report sequence.
type Store interface {
	LoadAll(ctx context.Context) ([]domain.Report, error)
	Append(ctx context.Context, r domain.Report) (domain.Report, error)
}

// Pinger is implemented by stores that can check their backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Publisher announces accepted reports to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, r domain.Report) error
}

// Service coordinates the store, enrichment and publishing. Submissions are
// serialized; reads go straight to the store.
type Service struct {
	store     Store
	geocoder  domain.Geocoder
	publisher Publisher
	threshold float64
	logger    *slog.Logger
	metrics   *observability.Metrics

	mu sync.Mutex
}

// NewService creates a Service. geocoder and publisher may be nil; a
// non-positive threshold selects cluster.DefaultThreshold.
func NewService(store Store, geocoder domain.Geocoder, publisher Publisher, threshold float64, logger *slog.Logger, metrics *observability.Metrics) *Service {
	if threshold <= 0 {
		threshold = cluster.DefaultThreshold
	}
	return &Service{
		store:     store,
		geocoder:  geocoder,
		publisher: publisher,
		threshold: threshold,
		logger:    logger,
		metrics:   metrics,
	}
}

// Threshold returns the clustering distance in degrees.
func (s *Service) Threshold() float64 { return s.threshold }

// Reports returns the stored sequence in insertion order. A store failure is
// logged and yields an empty sequence.
func (s *Service) Reports(ctx context.Context) []domain.Report {
	reports, err := s.store.LoadAll(ctx)
	if err != nil {
		s.logger.Error("load reports failed, treating store as empty", "error", err)
		s.metrics.StoreErrors.WithLabelValues("load").Inc()
		return []domain.Report{}
	}
	if reports == nil {
		return []domain.Report{}
	}
	return reports
}

// Submit validates r, assigns it a unique ID, enriches it and appends it to
// the store. Validation failures wrap domain.ErrInvalidReport.
func (s *Service) Submit(ctx context.Context, r domain.Report, source string) (domain.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.Reports(ctx)
	return s.submitLocked(ctx, r, source, existing)
}

func (s *Service) submitLocked(ctx context.Context, r domain.Report, source string, existing []domain.Report) (domain.Report, error) {
	prepared, err := domain.PrepareReport(r)
	if err != nil {
		s.metrics.ReportsRejected.WithLabelValues(source).Inc()
		return domain.Report{}, err
	}

	prepared.ID = AssignID(prepared.ID, existing)
	prepared = domain.EnrichWithAddress(ctx, prepared, s.geocoder, s.logger)

	stored, err := s.store.Append(ctx, prepared)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidReport) {
			s.metrics.ReportsRejected.WithLabelValues(source).Inc()
			return domain.Report{}, err
		}
		s.metrics.StoreErrors.WithLabelValues("append").Inc()
		return domain.Report{}, fmt.Errorf("append report: %w", err)
	}

	s.metrics.ReportsSubmitted.WithLabelValues(source).Inc()
	s.logger.Info("report accepted",
		"report_id", stored.ID,
		"type", stored.Type,
		"source", source,
		"located", stored.Location.Valid(),
	)

	s.publish(ctx, stored)
	return stored, nil
}

func (s *Service) publish(ctx context.Context, r domain.Report) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, r); err != nil {
		s.metrics.PublishErrors.Inc()
		s.logger.Warn("publish report failed", "report_id", r.ID, "error", err)
		return
	}
	s.metrics.ReportsPublished.Inc()
}

// Heatmap clusters the current report sequence. Nothing is cached between calls.
func (s *Service) Heatmap(ctx context.Context) cluster.Heatmap {
	reports := s.Reports(ctx)

	start := time.Now()
	h := cluster.Render(reports, s.threshold)
	s.metrics.ClusteringDuration.Observe(time.Since(start).Seconds())
	s.metrics.HeatmapRenders.Inc()
	s.metrics.HeatmapClusters.Set(float64(len(h.Clusters)))

	s.logger.Debug("heatmap rendered", "reports", len(reports), "clusters", len(h.Clusters))
	return h
}

// LoadBatch submits reports consumed from the intake topic. Invalid reports
// are skipped; a redelivered report already in the store is not appended
// again. A store failure aborts the batch so it can be retried.
func (s *Service) LoadBatch(ctx context.Context, reports []domain.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.Reports(ctx)
	for _, r := range reports {
		if isRedelivery(r, existing) {
			s.logger.Debug("skipping redelivered report", "report_id", r.ID)
			continue
		}
		stored, err := s.submitLocked(ctx, r, SourceKafka, existing)
		if errors.Is(err, domain.ErrInvalidReport) {
			s.logger.Warn("invalid report skipped", "report_id", r.ID, "error", err)
			continue
		}
		if err != nil {
			return err
		}
		existing = append(existing, stored)
	}
	return nil
}

// CheckReadiness pings the store when it supports it.
func (s *Service) CheckReadiness(ctx context.Context) error {
	if p, ok := s.store.(Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("report store: %w", err)
		}
	}
	return nil
}
