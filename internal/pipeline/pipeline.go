package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/civic-report-service/internal/domain"
	"github.com/couchcryptid/civic-report-service/internal/observability"
)

const (
	minRetryDelay = 200 * time.Millisecond
	maxRetryDelay = 5 * time.Second
)

// BatchExtractor reads up to batchSize raw events from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer converts a raw event into a validated report.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) (domain.Report, error)
}

// BatchLoader stores a batch of reports.
type BatchLoader interface {
	LoadBatch(ctx context.Context, reports []domain.Report) error
}

// Pipeline moves submissions from the intake topic into the report store.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	batchSize   int

	running atomic.Bool
	loaded  atomic.Int64
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// CheckReadiness returns nil while the intake loop is running.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.running.Load() {
		return errors.New("intake pipeline is not running")
	}
	return nil
}

// Loaded is the number of reports handed to the loader so far.
func (p *Pipeline) Loaded() int64 { return p.loaded.Load() }

// pending is the part of a batch that still has to reach the store, paired
// with the messages whose offsets are committed once it does.
type pending struct {
	reports  []domain.Report
	messages []domain.RawEvent
}

// Run consumes batches until ctx is cancelled. A batch whose load fails is
// retried with backoff and never skipped; nothing is fetched meanwhile.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	p.running.Store(true)
	defer func() {
		p.running.Store(false)
		p.metrics.PipelineRunning.Set(0)
		p.logger.Info("pipeline stopped", "loaded", p.loaded.Load())
	}()

	retry := newRetryDelay()
	for ctx.Err() == nil {
		batch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			p.logger.Error("extract batch failed", "error", err)
			retry.wait(ctx)
			continue
		}
		retry.reset()
		if len(batch) == 0 {
			continue
		}

		start := time.Now()
		p.metrics.MessagesConsumed.Add(float64(len(batch)))
		p.metrics.BatchSize.Observe(float64(len(batch)))

		work := p.transform(ctx, batch)
		if len(work.reports) == 0 {
			continue
		}
		if !p.load(ctx, work) {
			break
		}
		p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	}
	return nil
}

// transform converts the batch, committing and dropping messages that cannot
// become a report so a poison message is not redelivered forever.
func (p *Pipeline) transform(ctx context.Context, batch []domain.RawEvent) pending {
	work := pending{
		reports:  make([]domain.Report, 0, len(batch)),
		messages: make([]domain.RawEvent, 0, len(batch)),
	}
	for _, raw := range batch {
		r, err := p.transformer.Transform(ctx, raw)
		if err != nil {
			p.metrics.TransformErrors.Inc()
			p.logger.Warn("dropping unreadable submission", "error", err,
				"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
			p.commit(ctx, raw)
			continue
		}
		work.reports = append(work.reports, r)
		work.messages = append(work.messages, raw)
	}
	return work
}

// load hands work to the loader until it succeeds, then commits its offsets.
// It returns false only when ctx ends first, leaving the offsets uncommitted.
func (p *Pipeline) load(ctx context.Context, work pending) bool {
	retry := newRetryDelay()
	for attempt := 1; ; attempt++ {
		err := p.loader.LoadBatch(ctx, work.reports)
		if err == nil {
			break
		}
		p.logger.Error("load batch failed, retrying", "error", err,
			"batch_size", len(work.reports), "attempt", attempt, "retry_in", retry.current)
		if !retry.wait(ctx) {
			return false
		}
	}

	for _, raw := range work.messages {
		p.commit(ctx, raw)
	}
	p.loaded.Add(int64(len(work.reports)))
	return true
}

func (p *Pipeline) commit(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

// retryDelay doubles from minRetryDelay up to maxRetryDelay.
type retryDelay struct {
	current time.Duration
}

func newRetryDelay() *retryDelay {
	return &retryDelay{current: minRetryDelay}
}

func (d *retryDelay) reset() { d.current = minRetryDelay }

// wait sleeps for the current delay and doubles it. It returns false if ctx
// ends first.
func (d *retryDelay) wait(ctx context.Context) bool {
	timer := time.NewTimer(d.current)
	defer timer.Stop()

	d.current = min(d.current*2, maxRetryDelay)

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
