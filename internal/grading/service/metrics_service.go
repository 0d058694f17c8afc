package service

import (
	"skillbuilder/internal/grading/metrics"
	"skillbuilder/pkg/errors"
)

// MetricsService exposes the static analyzers to the transport layer.
type MetricsService struct{}

// NewMetricsService creates a metrics service.
func NewMetricsService() *MetricsService {
	return &MetricsService{}
}

// Summary computes all metrics for one source text.
func (s *MetricsService) Summary(code string) metrics.Summary {
	return metrics.Summarize(code)
}

// RefactorComparison holds both summaries and the improvement verdict used
// when deciding whether a refactor step is accepted.
type RefactorComparison struct {
	Previous   metrics.Summary `json:"previous"`
	Refactored metrics.Summary `json:"refactored"`
	Improved   bool            `json:"improved"`
}

// CompareRefactor evaluates a refactored source against its previous
// version.
func (s *MetricsService) CompareRefactor(previous, refactored string) (*RefactorComparison, error) {
	if previous == "" || refactored == "" {
		return nil, errors.New(errors.RequiredFieldEmpty).
			WithMessage("previous and refactored code are required")
	}
	before := metrics.Summarize(previous)
	after := metrics.Summarize(refactored)
	return &RefactorComparison{
		Previous:   before,
		Refactored: after,
		Improved:   metrics.Improved(before, after),
	}, nil
}
