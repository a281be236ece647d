package dataset

import (
	"math"
	"strings"
)

// FeatureRecord is a login record plus derived temporal, device and per-user
// behavioral features.
type FeatureRecord struct {
	Record

	// Temporal features
	Hour          int  `json:"hour"`
	DayOfWeek     int  `json:"day_of_week"` // Monday = 0
	Weekend       bool `json:"is_weekend"`
	BusinessHours bool `json:"is_business_hours"`

	// User agent features
	Browser    string `json:"browser"`
	OS         string `json:"os"`
	DeviceType string `json:"device_type"`

	// Per-user aggregates, joined in by user_id
	UserStats
}

// UserStats holds per-user behavioral aggregates.
type UserStats struct {
	LoginCount         int     `json:"login_count"`
	FirstLogin         string  `json:"first_login"`
	LastLogin          string  `json:"last_login"`
	UniqueIPs          int     `json:"unique_ips"`
	UniqueBrowsers     int     `json:"unique_browsers"`
	UniqueOS           int     `json:"unique_os"`
	HourStd            float64 `json:"hour_std"`
	WeekendRatio       float64 `json:"weekend_ratio"`
	BusinessHoursRatio float64 `json:"business_hours_ratio"`
	DaysActive         int     `json:"days_active"`
	LoginFrequency     float64 `json:"login_frequency"`
}

// ExtractFeatures derives all feature columns from cleaned records.
// Deterministic: the same input yields identical output, and re-deriving
// browser/os/device_type from an already-featured record is idempotent.
func ExtractFeatures(records []Record) []FeatureRecord {
	features := make([]FeatureRecord, len(records))
	for i, r := range records {
		hour := r.Timestamp.Hour()
		dow := (int(r.Timestamp.Weekday()) + 6) % 7 // Monday = 0
		features[i] = FeatureRecord{
			Record:        r,
			Hour:          hour,
			DayOfWeek:     dow,
			Weekend:       dow >= 5,
			BusinessHours: hour >= 9 && hour <= 17,
			Browser:       ExtractBrowser(r.UserAgent),
			OS:            ExtractOS(r.UserAgent),
			DeviceType:    ExtractDeviceType(r.UserAgent),
		}
	}

	stats := computeUserStats(features)
	for i := range features {
		features[i].UserStats = stats[features[i].UserID]
	}
	return features
}

// ExtractBrowser identifies the browser from a user agent string.
// First keyword match wins.
func ExtractBrowser(userAgent string) string {
	if userAgent == "" {
		return "Unknown"
	}
	ua := strings.ToLower(userAgent)
	switch {
	case strings.Contains(ua, "chrome"):
		return "Chrome"
	case strings.Contains(ua, "firefox"):
		return "Firefox"
	case strings.Contains(ua, "safari"):
		return "Safari"
	case strings.Contains(ua, "edge"):
		return "Edge"
	case strings.Contains(ua, "opera"):
		return "Opera"
	default:
		return "Other"
	}
}

// ExtractOS identifies the operating system from a user agent string.
func ExtractOS(userAgent string) string {
	if userAgent == "" {
		return "Unknown"
	}
	ua := strings.ToLower(userAgent)
	switch {
	case strings.Contains(ua, "windows"):
		return "Windows"
	case strings.Contains(ua, "mac"), strings.Contains(ua, "darwin"):
		return "macOS"
	case strings.Contains(ua, "linux"):
		return "Linux"
	case strings.Contains(ua, "android"):
		return "Android"
	case strings.Contains(ua, "iphone"), strings.Contains(ua, "ipad"):
		return "iOS"
	default:
		return "Other"
	}
}

// ExtractDeviceType classifies the device from a user agent string.
func ExtractDeviceType(userAgent string) string {
	if userAgent == "" {
		return "Unknown"
	}
	ua := strings.ToLower(userAgent)
	switch {
	case strings.Contains(ua, "mobile"), strings.Contains(ua, "android"),
		strings.Contains(ua, "iphone"):
		return "Mobile"
	case strings.Contains(ua, "tablet"), strings.Contains(ua, "ipad"):
		return "Tablet"
	default:
		return "Desktop"
	}
}

func computeUserStats(features []FeatureRecord) map[string]UserStats {
	type acc struct {
		count         int
		first, last   FeatureRecord
		ips           map[string]struct{}
		browsers      map[string]struct{}
		oses          map[string]struct{}
		hours         []float64
		weekend       int
		businessHours int
	}

	accs := make(map[string]*acc)
	for _, f := range features {
		a, ok := accs[f.UserID]
		if !ok {
			a = &acc{
				first:    f,
				last:     f,
				ips:      map[string]struct{}{},
				browsers: map[string]struct{}{},
				oses:     map[string]struct{}{},
			}
			accs[f.UserID] = a
		}
		a.count++
		if f.Timestamp.Before(a.first.Timestamp) {
			a.first = f
		}
		if f.Timestamp.After(a.last.Timestamp) {
			a.last = f
		}
		a.ips[f.IPAddress] = struct{}{}
		a.browsers[f.Browser] = struct{}{}
		a.oses[f.OS] = struct{}{}
		a.hours = append(a.hours, float64(f.Hour))
		if f.Weekend {
			a.weekend++
		}
		if f.BusinessHours {
			a.businessHours++
		}
	}

	stats := make(map[string]UserStats, len(accs))
	for userID, a := range accs {
		daysActive := int(a.last.Timestamp.Sub(a.first.Timestamp).Hours()/24) + 1
		if daysActive < 1 {
			daysActive = 1
		}
		freq := float64(a.count) / float64(daysActive)

		stats[userID] = UserStats{
			LoginCount:         a.count,
			FirstLogin:         a.first.Timestamp.Format("2006-01-02 15:04:05"),
			LastLogin:          a.last.Timestamp.Format("2006-01-02 15:04:05"),
			UniqueIPs:          len(a.ips),
			UniqueBrowsers:     len(a.browsers),
			UniqueOS:           len(a.oses),
			HourStd:            sampleStd(a.hours),
			WeekendRatio:       float64(a.weekend) / float64(a.count),
			BusinessHoursRatio: float64(a.businessHours) / float64(a.count),
			DaysActive:         daysActive,
			LoginFrequency:     freq,
		}
	}
	return stats
}

// sampleStd returns the sample standard deviation, or 0 for fewer than two
// observations (single-login users have no defined spread).
func sampleStd(xs []float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(n)
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}
