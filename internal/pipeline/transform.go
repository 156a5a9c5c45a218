package pipeline

import (
	"context"

	"github.com/couchcryptid/civic-report-service/internal/domain"
)

// ReportTransformer implements Transformer using the domain parse and
// validation functions. The report is returned as sent: the loader fills the
// server-owned fields after checking for redeliveries.
type ReportTransformer struct{}

// NewTransformer creates a ReportTransformer.
func NewTransformer() *ReportTransformer {
	return &ReportTransformer{}
}

func (t *ReportTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.Report, error) {
	r, err := domain.ParseRawEvent(raw)
	if err != nil {
		return domain.Report{}, err
	}
	if _, err := domain.PrepareReport(r); err != nil {
		return domain.Report{}, err
	}
	return r, nil
}
