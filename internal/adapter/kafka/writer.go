package kafka

import (
	"context"
	"log/slog"
	"sort"

	"github.com/couchcryptid/civic-report-service/internal/config"
	"github.com/couchcryptid/civic-report-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces accepted reports to the reports topic.
// It implements report.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured reports topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaReportsTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish writes a single report keyed by its ID.
func (w *Writer) Publish(ctx context.Context, r domain.Report) error {
	return w.PublishBatch(ctx, []domain.Report{r})
}

// PublishBatch serializes and writes reports in a single WriteMessages call.
func (w *Writer) PublishBatch(ctx context.Context, reports []domain.Report) error {
	if len(reports) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(reports))
	for i := range reports {
		msg, err := serializeToMessage(reports[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage converts a report into a Kafka message with headers in key order.
func serializeToMessage(r domain.Report) (kafkago.Message, error) {
	out, err := domain.SerializeReport(r)
	if err != nil {
		return kafkago.Message{}, err
	}
	keys := make([]string, 0, len(out.Headers))
	for k := range out.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	headers := make([]kafkago.Header, len(keys))
	for i, k := range keys {
		headers[i] = kafkago.Header{Key: k, Value: []byte(out.Headers[k])}
	}
	return kafkago.Message{Key: out.Key, Value: out.Value, Headers: headers}, nil
}
