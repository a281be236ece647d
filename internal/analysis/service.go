// Package analysis orchestrates the full pipeline: validation, cleaning,
// feature extraction, geolocation enrichment, anomaly scoring and
// summarization. Completed runs are kept in memory for the session.
package analysis

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skytrace/skytrace/internal/anomaly"
	apperrors "github.com/skytrace/skytrace/internal/common/errors"
	"github.com/skytrace/skytrace/internal/common/metrics"
	"github.com/skytrace/skytrace/internal/dataset"
	"github.com/skytrace/skytrace/internal/geo"
	"github.com/skytrace/skytrace/internal/report"
)

// Options tunes a single analysis run.
type Options struct {
	Contamination     float64 `json:"contamination"`
	EnableGeolocation bool    `json:"enable_geolocation"`
	AlertThreshold    float64 `json:"alert_threshold"`
}

// Result is one completed analysis run.
type Result struct {
	RunID             string                 `json:"run_id"`
	CreatedAt         time.Time              `json:"created_at"`
	Options           Options                `json:"options"`
	DuplicatesRemoved int                    `json:"duplicates_removed"`
	Dataset           dataset.Summary        `json:"dataset"`
	Records           []anomaly.ScoredRecord `json:"records"`
	Summary           report.AnomalySummary  `json:"summary"`
	TopUsers          []report.UserRiskStats `json:"top_users"`
	Alerts            []anomaly.ScoredRecord `json:"alerts"`
	Geo               *geo.Analysis          `json:"geo,omitempty"`
}

// Service runs analyses and keeps completed runs in memory.
type Service struct {
	resolver *geo.Resolver // nil disables enrichment regardless of options
	logger   *zap.Logger

	mu   sync.RWMutex
	runs map[string]*Result
}

// NewService wires an analysis service. resolver may be nil when
// geolocation is disabled at deployment level.
func NewService(resolver *geo.Resolver, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		resolver: resolver,
		logger:   logger,
		runs:     make(map[string]*Result),
	}
}

// Run executes the pipeline over a raw dataset. Validation problems abort
// the run with the full problem list; downstream failures in enrichment
// degrade to sentinel locations rather than failing the run.
func (s *Service) Run(ctx context.Context, raw *dataset.RawDataset, opts Options) (*Result, error) {
	if problems := raw.Validate(); len(problems) > 0 {
		metrics.AnalysisRunsTotal.WithLabelValues("rejected").Inc()
		return nil, apperrors.Validation(problems)
	}

	records, err := dataset.FromRaw(raw.Rows)
	if err != nil {
		metrics.AnalysisRunsTotal.WithLabelValues("rejected").Inc()
		return nil, apperrors.Validation([]string{err.Error()})
	}

	records, removed := dataset.Clean(records)
	features := dataset.ExtractFeatures(records)

	var enriched []geo.Enriched
	if opts.EnableGeolocation && s.resolver != nil {
		enriched = s.enrich(ctx, records)
	}

	detector := anomaly.NewDetector(opts.Contamination, s.logger)
	scored, err := detector.DetectAnomalies(ctx, features)
	if err != nil {
		metrics.AnalysisRunsTotal.WithLabelValues("failed").Inc()
		return nil, apperrors.Internal(err)
	}

	// enriched rows stay index-aligned with the cleaned records, so the
	// geolocation and travel columns attach one to one.
	for i := range enriched {
		rec := enriched[i].Record
		travel := enriched[i].Travel
		scored[i].Geo = &rec
		scored[i].Travel = &travel
	}

	result := &Result{
		RunID:             uuid.NewString(),
		CreatedAt:         time.Now().UTC(),
		Options:           opts,
		DuplicatesRemoved: removed,
		Dataset:           dataset.Summarize(features),
		Records:           scored,
		Summary:           report.Summarize(scored),
		TopUsers:          report.TopRiskUsers(scored, 10),
		Alerts:            alertsAbove(scored, opts.AlertThreshold),
	}

	if enriched != nil {
		riskScores := make([]float64, len(scored))
		for i, rec := range scored {
			riskScores[i] = rec.RiskScore
		}
		geoAnalysis := geo.AnalyzePatterns(enriched, riskScores)
		result.Geo = &geoAnalysis
	}

	s.mu.Lock()
	s.runs[result.RunID] = result
	s.mu.Unlock()

	metrics.AnalysisRunsTotal.WithLabelValues("completed").Inc()
	s.logger.Info("analysis run completed",
		zap.String("run_id", result.RunID),
		zap.Int("records", len(scored)),
		zap.Int("anomalies", result.Summary.AnomaliesDetected),
		zap.Int("duplicates_removed", removed),
		zap.Bool("geolocation", enriched != nil),
	)
	return result, nil
}

// enrich resolves every record's IP and computes travel metrics. Records
// keep pipeline order alignment with the feature rows.
func (s *Service) enrich(ctx context.Context, records []dataset.Record) []geo.Enriched {
	ips := make([]string, len(records))
	for i, r := range records {
		ips[i] = r.IPAddress
	}
	resolved := s.resolver.EnrichAll(ctx, ips)

	enriched := make([]geo.Enriched, len(records))
	for i, r := range records {
		enriched[i] = geo.Enriched{
			UserID:    r.UserID,
			Timestamp: r.Timestamp,
			Record:    resolved[r.IPAddress],
		}
	}
	geo.DetectImpossibleTravel(enriched)
	return enriched
}

func alertsAbove(scored []anomaly.ScoredRecord, threshold float64) []anomaly.ScoredRecord {
	var alerts []anomaly.ScoredRecord
	for _, s := range scored {
		if s.RiskScore >= threshold {
			alerts = append(alerts, s)
		}
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].RiskScore > alerts[j].RiskScore
	})
	return alerts
}

// Get returns a stored run by id.
func (s *Service) Get(runID string) (*Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[runID]
	return run, ok
}

// Export serializes a stored run's scored records.
func (s *Service) Export(runID, format string) ([]byte, error) {
	run, ok := s.Get(runID)
	if !ok {
		return nil, apperrors.NotFound("analysis run " + runID)
	}
	return report.Export(run.Records, format)
}

// ScheduledSummary builds the recurring digest over a stored run.
func (s *Service) ScheduledSummary(runID string, now time.Time) (report.ScheduledSummary, error) {
	run, ok := s.Get(runID)
	if !ok {
		return report.ScheduledSummary{}, apperrors.NotFound("analysis run " + runID)
	}
	return report.BuildScheduledSummary(run.Records, now), nil
}
