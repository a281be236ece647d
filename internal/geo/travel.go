package geo

import (
	"math"
	"sort"
	"time"
)

// EarthRadiusKm is the mean Earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

// MaxTravelSpeedKmh is the ceiling for plausible commercial transport.
// A required speed above this flags the login pair as impossible travel.
// Policy constant, not learned.
const MaxTravelSpeedKmh = 1000.0

// TravelInfo holds travel metrics between a login and the same user's
// previous login. Zero values mean "no prior point to compare".
type TravelInfo struct {
	DistanceKm       float64 `json:"distance_km"`
	TimeDiffHours    float64 `json:"time_diff_hours"`
	TravelSpeedKmh   float64 `json:"travel_speed_kmh"`
	ImpossibleTravel bool    `json:"impossible_travel"`
}

// Enriched pairs a login event with its geolocation and travel metrics.
type Enriched struct {
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
	Record
	Travel TravelInfo `json:"travel"`
}

// Haversine returns the great-circle distance in kilometers between two
// points. Symmetric, and zero for identical points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := rad(lat2 - lat1)
	dLon := rad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Asin(math.Sqrt(a))

	return EarthRadiusKm * c
}

// DetectImpossibleTravel fills travel metrics in place: per user, one sorted
// pass over temporally-consecutive login pairs. Pairs at identical
// coordinates are skipped, as are pairs with non-positive elapsed time
// (clock anomalies are not treated as travel anomalies). The first login of
// each user keeps zero-valued travel fields.
func DetectImpossibleTravel(rows []Enriched) {
	byUser := make(map[string][]int)
	for i, row := range rows {
		byUser[row.UserID] = append(byUser[row.UserID], i)
	}

	for _, indices := range byUser {
		sort.SliceStable(indices, func(a, b int) bool {
			return rows[indices[a]].Timestamp.Before(rows[indices[b]].Timestamp)
		})

		for k := 1; k < len(indices); k++ {
			prev := rows[indices[k-1]]
			curr := &rows[indices[k]]

			if prev.Latitude == curr.Latitude && prev.Longitude == curr.Longitude {
				continue
			}

			hours := curr.Timestamp.Sub(prev.Timestamp).Hours()
			if hours <= 0 {
				continue
			}

			distance := Haversine(prev.Latitude, prev.Longitude, curr.Latitude, curr.Longitude)
			speed := distance / hours

			curr.Travel = TravelInfo{
				DistanceKm:       distance,
				TimeDiffHours:    hours,
				TravelSpeedKmh:   speed,
				ImpossibleTravel: speed > MaxTravelSpeedKmh,
			}
		}
	}
}

// VPNUsage summarizes VPN and proxy activity in a dataset.
type VPNUsage struct {
	TotalVPNLogins   int     `json:"total_vpn_logins"`
	TotalProxyLogins int     `json:"total_proxy_logins"`
	VPNPercentage    float64 `json:"vpn_percentage"`
}

// TravelSummary aggregates impossible-travel incidents.
type TravelSummary struct {
	TotalIncidents        int     `json:"total_incidents"`
	AffectedUsers         int     `json:"affected_users"`
	MaxSpeedDetected      float64 `json:"max_speed_detected"`
	AvgImpossibleDistance float64 `json:"avg_impossible_distance"`
}

// CountryRisk holds per-country risk statistics.
type CountryRisk struct {
	MeanRiskScore float64 `json:"mean"`
	LoginCount    int     `json:"count"`
}

// Analysis is the geographic summary consumed by reports and dashboards.
type Analysis struct {
	Countries        map[string]int         `json:"countries"`
	UniqueCountries  int                    `json:"unique_countries"`
	Cities           map[string]int         `json:"cities"`
	UniqueCities     int                    `json:"unique_cities"`
	VPNUsage         VPNUsage               `json:"vpn_usage"`
	ImpossibleTravel TravelSummary          `json:"impossible_travel"`
	CountryRisk      map[string]CountryRisk `json:"country_risk,omitempty"`
}

// AnalyzePatterns computes the geographic summary over enriched rows.
// riskScores, when non-nil, must be aligned with rows and enables the
// per-country risk breakdown. Read-only; safe to call repeatedly.
func AnalyzePatterns(rows []Enriched, riskScores []float64) Analysis {
	analysis := Analysis{
		Countries: map[string]int{},
		Cities:    map[string]int{},
	}

	cityCounts := map[string]int{}
	affected := map[string]struct{}{}
	var impossibleCount int
	var impossibleDistance float64

	for _, row := range rows {
		analysis.Countries[row.Country]++
		cityCounts[row.City]++

		if row.IsVPN {
			analysis.VPNUsage.TotalVPNLogins++
		}
		if row.IsProxy {
			analysis.VPNUsage.TotalProxyLogins++
		}

		if row.Travel.TravelSpeedKmh > analysis.ImpossibleTravel.MaxSpeedDetected {
			analysis.ImpossibleTravel.MaxSpeedDetected = row.Travel.TravelSpeedKmh
		}
		if row.Travel.ImpossibleTravel {
			impossibleCount++
			impossibleDistance += row.Travel.DistanceKm
			affected[row.UserID] = struct{}{}
		}
	}

	analysis.UniqueCountries = len(analysis.Countries)
	analysis.UniqueCities = len(cityCounts)
	analysis.Cities = topN(cityCounts, 10)

	if len(rows) > 0 {
		analysis.VPNUsage.VPNPercentage =
			float64(analysis.VPNUsage.TotalVPNLogins) / float64(len(rows)) * 100
	}

	analysis.ImpossibleTravel.TotalIncidents = impossibleCount
	analysis.ImpossibleTravel.AffectedUsers = len(affected)
	if impossibleCount > 0 {
		analysis.ImpossibleTravel.AvgImpossibleDistance = impossibleDistance / float64(impossibleCount)
	}

	if riskScores != nil && len(riskScores) == len(rows) {
		analysis.CountryRisk = map[string]CountryRisk{}
		sums := map[string]float64{}
		for i, row := range rows {
			sums[row.Country] += riskScores[i]
		}
		for country, sum := range sums {
			count := analysis.Countries[country]
			analysis.CountryRisk[country] = CountryRisk{
				MeanRiskScore: sum / float64(count),
				LoginCount:    count,
			}
		}
	}

	return analysis
}

// topN keeps the n highest counts, ties broken by name for determinism.
func topN(counts map[string]int, n int) map[string]int {
	type kv struct {
		key   string
		count int
	}
	all := make([]kv, 0, len(counts))
	for k, v := range counts {
		all = append(all, kv{k, v})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].count != all[j].count {
			return all[i].count > all[j].count
		}
		return all[i].key < all[j].key
	})
	if len(all) > n {
		all = all[:n]
	}
	out := make(map[string]int, len(all))
	for _, e := range all {
		out[e.key] = e.count
	}
	return out
}
