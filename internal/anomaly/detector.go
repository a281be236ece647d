package anomaly

import (
	"context"

	"go.uber.org/zap"

	"github.com/skytrace/skytrace/internal/common/metrics"
	"github.com/skytrace/skytrace/internal/dataset"
	"github.com/skytrace/skytrace/internal/geo"
)

// RiskLevel buckets a fused risk score for triage.
type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskMedium   RiskLevel = "Medium"
	RiskHigh     RiskLevel = "High"
	RiskCritical RiskLevel = "Critical"
)

// ClassifyRisk maps a fused score onto a level. Boundary scores take the
// higher level.
func ClassifyRisk(score float64) RiskLevel {
	switch {
	case score >= 0.8:
		return RiskCritical
	case score >= 0.6:
		return RiskHigh
	case score >= 0.4:
		return RiskMedium
	default:
		return RiskLow
	}
}

// Fusion weights for the three detector families.
const (
	isolationWeight   = 0.4
	dbscanWeight      = 0.3
	statisticalWeight = 0.3
)

// ScoredRecord is a feature record with the detector outputs attached.
// Geo and Travel are set only when the run had geolocation enabled.
type ScoredRecord struct {
	dataset.FeatureRecord

	IsolationScore   float64   `json:"isolation_forest_score"`
	DBSCANOutlier    int       `json:"dbscan_outlier"`
	RuleFlags        RuleFlags `json:"rule_flags"`
	StatisticalScore float64   `json:"statistical_score"`
	RiskScore        float64   `json:"risk_score"`
	RiskLevel        RiskLevel `json:"risk_level"`

	Geo    *geo.Record     `json:"geo,omitempty"`
	Travel *geo.TravelInfo `json:"travel,omitempty"`
}

// Detector runs the full scoring pipeline over a batch. Each call refits
// from scratch so scores are a pure function of the batch.
//
// The contamination rate is carried for configuration parity and logging
// only: the isolation scores are min-max normalized over the batch, which
// makes the fused risk score independent of the contamination cutoff.
type Detector struct {
	contamination float64
	logger        *zap.Logger
}

// NewDetector wires a detector with the given contamination rate.
func NewDetector(contamination float64, logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{contamination: contamination, logger: logger}
}

// DetectAnomalies scores every record and fuses the three detector outputs
// into a single risk score and level.
func (d *Detector) DetectAnomalies(ctx context.Context, features []dataset.FeatureRecord) ([]ScoredRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	scored := make([]ScoredRecord, len(features))
	if len(features) == 0 {
		return scored, nil
	}

	matrix := StandardScale(BuildMatrix(features))

	forest := NewIsolationForest()
	forest.Fit(matrix)
	isoScores := forest.Score(matrix)

	labels := NewDBSCAN().Cluster(ReduceDimensions(matrix))

	engine := NewRuleEngine(features)

	for i, f := range features {
		flags := engine.Evaluate(f)
		rec := ScoredRecord{
			FeatureRecord:    f,
			IsolationScore:   isoScores[i],
			RuleFlags:        flags,
			StatisticalScore: flags.Score(),
		}
		if labels[i] == NoiseLabel {
			rec.DBSCANOutlier = 1
		}
		rec.RiskScore = isolationWeight*rec.IsolationScore +
			dbscanWeight*float64(rec.DBSCANOutlier) +
			statisticalWeight*rec.StatisticalScore
		rec.RiskLevel = ClassifyRisk(rec.RiskScore)
		scored[i] = rec
	}

	metrics.RecordsScoredTotal.Add(float64(len(scored)))
	d.logger.Info("anomaly detection complete",
		zap.Int("records", len(scored)),
		zap.Float64("contamination", d.contamination),
	)
	return scored, nil
}
