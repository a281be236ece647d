package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/skytrace/skytrace/internal/anomaly"
	apperrors "github.com/skytrace/skytrace/internal/common/errors"
)

// Export formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

var exportHeader = []string{
	"timestamp", "user_id", "ip_address", "risk_score", "risk_level",
	"isolation_forest_score", "dbscan_outlier", "statistical_score",
	"country", "city", "is_vpn",
	"impossible_travel", "distance_km", "travel_speed_kmh",
	"browser", "os", "device_type",
	"is_unusual_hours", "is_weekend_login", "is_high_frequency",
	"is_multiple_browsers", "is_multiple_os", "is_multiple_ips",
}

// Export serializes scored records for download. CSV emits the flat alert
// columns plus one boolean column per statistical rule; JSON emits the full
// records. Unknown formats fail with an export error naming the format.
func Export(scored []anomaly.ScoredRecord, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case FormatCSV:
		return exportCSV(scored)
	case FormatJSON:
		return json.MarshalIndent(scored, "", "  ")
	default:
		return nil, apperrors.Export(format)
	}
}

func exportCSV(scored []anomaly.ScoredRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return nil, apperrors.Internal(err)
	}

	flag := func(flags anomaly.RuleFlags, name string) string {
		return strconv.FormatBool(flags[name])
	}
	for _, s := range scored {
		// Geolocation columns stay empty for runs without enrichment.
		country, city, isVPN := "", "", ""
		impossible, distance, speed := "", "", ""
		if s.Geo != nil {
			country = s.Geo.Country
			city = s.Geo.City
			isVPN = strconv.FormatBool(s.Geo.IsVPN)
		}
		if s.Travel != nil {
			impossible = strconv.FormatBool(s.Travel.ImpossibleTravel)
			distance = strconv.FormatFloat(s.Travel.DistanceKm, 'f', 2, 64)
			speed = strconv.FormatFloat(s.Travel.TravelSpeedKmh, 'f', 2, 64)
		}

		row := []string{
			s.Timestamp.Format(time.RFC3339),
			s.UserID,
			s.IPAddress,
			strconv.FormatFloat(s.RiskScore, 'f', 6, 64),
			string(s.RiskLevel),
			strconv.FormatFloat(s.IsolationScore, 'f', 6, 64),
			strconv.Itoa(s.DBSCANOutlier),
			strconv.FormatFloat(s.StatisticalScore, 'f', 6, 64),
			country,
			city,
			isVPN,
			impossible,
			distance,
			speed,
			s.Browser,
			s.OS,
			s.DeviceType,
			flag(s.RuleFlags, anomaly.RuleUnusualHours),
			flag(s.RuleFlags, anomaly.RuleWeekendLogin),
			flag(s.RuleFlags, anomaly.RuleHighFrequency),
			flag(s.RuleFlags, anomaly.RuleMultipleBrowsers),
			flag(s.RuleFlags, anomaly.RuleMultipleOS),
			flag(s.RuleFlags, anomaly.RuleMultipleIPs),
		}
		if err := w.Write(row); err != nil {
			return nil, apperrors.Internal(err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, apperrors.Internal(err)
	}
	return buf.Bytes(), nil
}
