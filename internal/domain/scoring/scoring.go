// Package scoring defines the contract for turning a metrics snapshot into
// KPI scores.
package scoring

import (
	"context"
	"fmt"

	"github.com/okian/kpiboard/internal/domain/kpi"
	"github.com/okian/kpiboard/pkg/logger"
	"github.com/okian/kpiboard/pkg/metrics"
)

// Option applies a configuration option to the KPIScorer.
type Option func(*KPIScorer)

// WithLogger sets the logger used for debug output.
func WithLogger(l logger.Logger) Option {
	return func(s *KPIScorer) {
		if l != nil {
			s.logger = l
		}
	}
}

// Input abstracts the snapshot fields needed for scoring.
type Input struct {
	SalesID string
	Name    string
	Metrics kpi.Metrics
}

// Result contains the computed scores for a salesperson.
type Result struct {
	SalesID string
	Name    string
	kpi.Result
}

// Scorer computes KPI scores for one salesperson.
type Scorer interface {
	// Score computes a result, honoring ctx for cancellation.
	Score(ctx context.Context, in Input) (Result, error)
}

// KPIScorer implements Scorer on top of kpi.Score.
type KPIScorer struct {
	logger logger.Logger
}

// NewKPIScorer creates a scorer.
func NewKPIScorer(opts ...Option) *KPIScorer {
	s := &KPIScorer{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score computes the sub-score vector, composite and level for in.
func (s *KPIScorer) Score(ctx context.Context, in Input) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("context cancelled: %w", err)
	}

	res := kpi.Score(in.Metrics)
	metrics.RecordComposite(res.Composite, string(res.Level))

	if s.logger != nil {
		s.logger.Debug(ctx, "scored salesperson",
			logger.String("salesID", in.SalesID),
			logger.Int("composite", res.Composite),
			logger.String("level", string(res.Level)),
		)
	}

	return Result{SalesID: in.SalesID, Name: in.Name, Result: res}, nil
}
