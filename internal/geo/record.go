// Package geo provides best-effort IP geolocation, travel-feasibility
// analysis and geographic aggregation for login records.
package geo

import (
	"strconv"
	"strings"
)

// Record holds the geolocation attributes for one IP address.
type Record struct {
	IP          string  `json:"ip"`
	Country     string  `json:"country"`
	CountryCode string  `json:"country_code"`
	Region      string  `json:"region"`
	City        string  `json:"city"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	ISP         string  `json:"isp"`
	Timezone    string  `json:"timezone"`
	IsProxy     bool    `json:"is_proxy"`
	IsVPN       bool    `json:"is_vpn"`
}

// Unknown returns the sentinel record used for private addresses and failed
// lookups. Geolocation is best-effort: callers always get a record, never an
// error.
func Unknown(ip string) Record {
	return Record{
		IP:          ip,
		Country:     "Unknown",
		CountryCode: "XX",
		Region:      "Unknown",
		City:        "Unknown",
		Latitude:    0.0,
		Longitude:   0.0,
		ISP:         "Unknown",
		Timezone:    "UTC",
	}
}

// InferVPN reports whether the ISP name suggests a VPN or proxy service.
// This is independent of any proxy flag the upstream service reports.
func InferVPN(isp string) bool {
	upper := strings.ToUpper(isp)
	return strings.Contains(upper, "VPN") || strings.Contains(upper, "PROXY")
}

// IsPrivateIP reports whether ip falls in the RFC1918 or loopback ranges.
// Unparsable addresses are treated as private so they short-circuit to the
// sentinel without a network call.
func IsPrivateIP(ip string) bool {
	parts := strings.Split(ip, ".")
	if len(parts) != 4 {
		return true
	}
	octets := make([]int, 4)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 255 {
			return true
		}
		octets[i] = n
	}

	switch {
	case octets[0] == 10:
		return true
	case octets[0] == 172 && octets[1] >= 16 && octets[1] <= 31:
		return true
	case octets[0] == 192 && octets[1] == 168:
		return true
	case octets[0] == 127:
		return true
	}
	return false
}
