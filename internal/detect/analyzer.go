package detect

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/adithya/forensiq/internal/domain"
	"github.com/adithya/forensiq/internal/txgraph"
)

// Analyzer runs the full detection pipeline over a transaction batch:
// graph build, the three detectors, the legitimacy filter, ring merging and
// the two-stage scorer. It holds no state between runs.
type Analyzer struct {
	log *slog.Logger
	loc *time.Location
	now func() time.Time
}

// AnalyzerOption customizes an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithClock overrides the wall clock used for the processing-time summary.
func WithClock(now func() time.Time) AnalyzerOption {
	return func(a *Analyzer) { a.now = now }
}

// WithLocation sets the zone for hour-of-day signals. Defaults to UTC.
func WithLocation(loc *time.Location) AnalyzerOption {
	return func(a *Analyzer) { a.loc = loc }
}

// NewAnalyzer returns an analyzer logging through log.
func NewAnalyzer(log *slog.Logger, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		log: log,
		loc: time.UTC,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze runs the pipeline and returns the complete result. The same batch
// always produces the same result, byte for byte once serialized.
func (a *Analyzer) Analyze(txns []domain.Transaction) (*domain.AnalysisResult, error) {
	start := a.now()

	g := txgraph.Build(txns)
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("validate graph: %w", err)
	}
	a.log.Info("graph built",
		slog.Int("accounts", len(g.Accounts)),
		slog.Int("transactions", len(txns)))

	cycles, capHit := NewCycleDetector(g).Detect()
	if capHit {
		a.log.Warn("cycle enumeration truncated", slog.Int("cap", CycleMaxResults))
	}
	rings := CycleRings(cycles)

	smurfRings := NewSmurfingDetector(g, a.loc).Detect()
	rings = append(rings, smurfRings...)

	chains := NewShellDetector(g).Detect()
	rings = append(rings, ShellRings(chains)...)

	a.log.Info("detectors finished",
		slog.Int("cycles", len(cycles)),
		slog.Int("smurf_groups", len(smurfRings)),
		slog.Int("shell_chains", len(chains)))

	filter := NewLegitimacyFilter(g, a.loc)
	raw := len(rings)
	filtered := filter.FilterRings(rings)
	rings = mergeRings(filtered)
	a.log.Info("rings consolidated",
		slog.Int("raw", raw),
		slog.Int("after_filter", len(filtered)),
		slog.Int("final", len(rings)))

	accounts, fraudRings := NewScorer(g).Score(rings)

	elapsed := a.now().Sub(start).Seconds()
	result := &domain.AnalysisResult{
		SuspiciousAccounts: accounts,
		FraudRings:         fraudRings,
		Summary: domain.Summary{
			TotalAccountsAnalyzed:     len(g.Accounts),
			SuspiciousAccountsFlagged: len(accounts),
			FraudRingsDetected:        len(fraudRings),
			ProcessingTimeSeconds:     math.Round(elapsed*100) / 100,
		},
		CycleCapHit: capHit,
	}
	return result, nil
}
