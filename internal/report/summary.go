// Package report aggregates scored login records into summaries suitable
// for dashboards, scheduled digests and export.
package report

import (
	"sort"
	"time"

	"github.com/skytrace/skytrace/internal/anomaly"
)

// Thresholds shared by the aggregations below.
const (
	anomalyThreshold      = 0.5
	highRiskUserThreshold = 0.7
	highRiskThreshold     = 0.6
	criticalThreshold     = 0.8
)

// AnomalySummary is the headline view of one analysis run.
type AnomalySummary struct {
	TotalRecords      int                       `json:"total_records"`
	AnomaliesDetected int                       `json:"anomalies_detected"`
	RiskLevelCounts   map[anomaly.RiskLevel]int `json:"risk_level_counts"`
	AvgRiskScore      float64                   `json:"avg_risk_score"`
	HighRiskUsers     []string                  `json:"high_risk_users"`
}

// Summarize aggregates scored records. Anomalies are records at or above
// 0.5; high-risk users are the distinct users with any record at or above
// 0.7, sorted for stable output.
func Summarize(scored []anomaly.ScoredRecord) AnomalySummary {
	summary := AnomalySummary{
		TotalRecords: len(scored),
		RiskLevelCounts: map[anomaly.RiskLevel]int{
			anomaly.RiskLow:      0,
			anomaly.RiskMedium:   0,
			anomaly.RiskHigh:     0,
			anomaly.RiskCritical: 0,
		},
	}
	if len(scored) == 0 {
		return summary
	}

	users := make(map[string]struct{})
	var total float64
	for _, s := range scored {
		total += s.RiskScore
		summary.RiskLevelCounts[s.RiskLevel]++
		if s.RiskScore >= anomalyThreshold {
			summary.AnomaliesDetected++
		}
		if s.RiskScore >= highRiskUserThreshold {
			users[s.UserID] = struct{}{}
		}
	}
	summary.AvgRiskScore = total / float64(len(scored))

	summary.HighRiskUsers = make([]string, 0, len(users))
	for u := range users {
		summary.HighRiskUsers = append(summary.HighRiskUsers, u)
	}
	sort.Strings(summary.HighRiskUsers)
	return summary
}

// UserRiskStats holds the per-user risk aggregates.
type UserRiskStats struct {
	UserID   string  `json:"user_id"`
	MeanRisk float64 `json:"mean_risk"`
	MaxRisk  float64 `json:"max_risk"`
	Count    int     `json:"count"`
}

// TopRiskUsers returns up to n users ordered by mean risk descending, with
// user id as the tie-break.
func TopRiskUsers(scored []anomaly.ScoredRecord, n int) []UserRiskStats {
	byUser := make(map[string]*UserRiskStats)
	sums := make(map[string]float64)
	for _, s := range scored {
		st, ok := byUser[s.UserID]
		if !ok {
			st = &UserRiskStats{UserID: s.UserID}
			byUser[s.UserID] = st
		}
		st.Count++
		sums[s.UserID] += s.RiskScore
		if s.RiskScore > st.MaxRisk {
			st.MaxRisk = s.RiskScore
		}
	}

	stats := make([]UserRiskStats, 0, len(byUser))
	for id, st := range byUser {
		st.MeanRisk = sums[id] / float64(st.Count)
		stats = append(stats, *st)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].MeanRisk != stats[j].MeanRisk {
			return stats[i].MeanRisk > stats[j].MeanRisk
		}
		return stats[i].UserID < stats[j].UserID
	})
	if n > 0 && len(stats) > n {
		stats = stats[:n]
	}
	return stats
}

// WindowStats aggregates one trailing time window.
type WindowStats struct {
	TotalLogins    int `json:"total_logins"`
	HighRiskEvents int `json:"high_risk_events"`
	CriticalEvents int `json:"critical_events"`
	UniqueUsers    int `json:"unique_users"`
}

// Trends compares the trailing day against the trailing week.
type Trends struct {
	RiskScoreTrend string `json:"risk_score_trend"` // increasing or decreasing
	ActivityTrend  string `json:"activity_trend"`
}

// ScheduledSummary is the digest emitted by recurring report jobs.
type ScheduledSummary struct {
	ReportTimestamp time.Time   `json:"report_timestamp"`
	Last24Hours     WindowStats `json:"last_24_hours"`
	LastWeek        WindowStats `json:"last_week"`
	Trends          Trends      `json:"trends"`
}

func windowStats(scored []anomaly.ScoredRecord, since time.Time) (WindowStats, float64) {
	var stats WindowStats
	var total float64
	users := make(map[string]struct{})
	for _, s := range scored {
		if s.Timestamp.Before(since) {
			continue
		}
		stats.TotalLogins++
		total += s.RiskScore
		users[s.UserID] = struct{}{}
		if s.RiskScore >= highRiskThreshold {
			stats.HighRiskEvents++
		}
		if s.RiskScore >= criticalThreshold {
			stats.CriticalEvents++
		}
	}
	stats.UniqueUsers = len(users)

	mean := 0.0
	if stats.TotalLogins > 0 {
		mean = total / float64(stats.TotalLogins)
	}
	return stats, mean
}

// BuildScheduledSummary aggregates the trailing 24 hours and 7 days as of
// now. The risk trend compares mean scores between the two windows; the
// activity trend compares the day's volume against the weekly daily average.
func BuildScheduledSummary(scored []anomaly.ScoredRecord, now time.Time) ScheduledSummary {
	day, dayMean := windowStats(scored, now.Add(-24*time.Hour))
	week, weekMean := windowStats(scored, now.Add(-7*24*time.Hour))

	risk := "decreasing"
	if dayMean > weekMean {
		risk = "increasing"
	}
	activity := "decreasing"
	if float64(day.TotalLogins) > float64(week.TotalLogins)/7 {
		activity = "increasing"
	}

	return ScheduledSummary{
		ReportTimestamp: now,
		Last24Hours:     day,
		LastWeek:        week,
		Trends:          Trends{RiskScoreTrend: risk, ActivityTrend: activity},
	}
}

// AlertConfiguration is the recommended alerting setup shipped with the
// service.
type AlertConfiguration struct {
	RiskThresholds       map[string]float64  `json:"risk_thresholds"`
	AlertConditions      map[string][]string `json:"alert_conditions"`
	NotificationChannels map[string]string   `json:"notification_channels"`
}

// DefaultAlertConfiguration returns the fixed recommended thresholds and
// routing table.
func DefaultAlertConfiguration() AlertConfiguration {
	return AlertConfiguration{
		RiskThresholds: map[string]float64{
			"low":      0.0,
			"medium":   0.4,
			"high":     0.6,
			"critical": 0.8,
		},
		AlertConditions: map[string][]string{
			"immediate": {`risk_level == "Critical"`},
			"hourly":    {`risk_level == "High"`},
			"daily":     {`risk_level == "Medium"`},
		},
		NotificationChannels: map[string]string{
			"email": "security-team@company.com",
			"slack": "#security-alerts",
			"sms":   "+1-555-SECURITY",
		},
	}
}
