package anomaly

import "github.com/skytrace/skytrace/internal/dataset"

// Rule names reported alongside statistical scores.
const (
	RuleUnusualHours     = "unusual_hours"
	RuleWeekendLogin     = "weekend_login"
	RuleHighFrequency    = "high_frequency"
	RuleMultipleBrowsers = "multiple_browsers"
	RuleMultipleOS       = "multiple_os"
	RuleMultipleIPs      = "multiple_ips"
)

// RuleNames lists every statistical rule in report order.
var RuleNames = []string{
	RuleUnusualHours,
	RuleWeekendLogin,
	RuleHighFrequency,
	RuleMultipleBrowsers,
	RuleMultipleOS,
	RuleMultipleIPs,
}

// RuleFlags holds the per-record outcome of each statistical rule.
type RuleFlags map[string]bool

// Score is the fraction of rules the record tripped.
func (rf RuleFlags) Score() float64 {
	if len(rf) == 0 {
		return 0
	}
	hits := 0
	for _, v := range rf {
		if v {
			hits++
		}
	}
	return float64(hits) / float64(len(rf))
}

// RuleEngine evaluates interpretable statistical rules over a batch.
// Frequency and IP thresholds are percentiles of the batch itself, so a
// record's flags depend on the company it keeps.
type RuleEngine struct {
	freqThreshold float64
	ipThreshold   float64
}

// NewRuleEngine derives batch-relative thresholds from the records.
func NewRuleEngine(features []dataset.FeatureRecord) *RuleEngine {
	freqs := make([]float64, len(features))
	ips := make([]float64, len(features))
	for i, f := range features {
		freqs[i] = f.LoginFrequency
		ips[i] = float64(f.UniqueIPs)
	}
	return &RuleEngine{
		freqThreshold: quantile(freqs, 0.95),
		ipThreshold:   quantile(ips, 0.90),
	}
}

// Evaluate runs every rule against one record.
func (e *RuleEngine) Evaluate(f dataset.FeatureRecord) RuleFlags {
	return RuleFlags{
		RuleUnusualHours:     f.Hour < 6 || f.Hour > 22,
		RuleWeekendLogin:     f.Weekend,
		RuleHighFrequency:    f.LoginFrequency > e.freqThreshold,
		RuleMultipleBrowsers: f.UniqueBrowsers > 3,
		RuleMultipleOS:       f.UniqueOS > 2,
		RuleMultipleIPs:      float64(f.UniqueIPs) > e.ipThreshold,
	}
}
