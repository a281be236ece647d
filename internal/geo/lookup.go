package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Lookup resolves a single public IP address to a geolocation record.
// Implementations are free to fail; the Resolver absorbs errors into the
// Unknown sentinel.
type Lookup interface {
	Lookup(ctx context.Context, ip string) (Record, error)
}

// ipAPIResponse mirrors the ip-api.com JSON body. The service is treated as
// untrusted and partial; absent fields default through the sentinel values.
type ipAPIResponse struct {
	Status      string  `json:"status"`
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode"`
	Region      string  `json:"region"`
	City        string  `json:"city"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	ISP         string  `json:"isp"`
	Timezone    string  `json:"timezone"`
	Proxy       bool    `json:"proxy"`
}

const lookupRetryDelay = 100 * time.Millisecond

// HTTPLookup queries an ip-api.com-style JSON endpoint, one GET per IP.
type HTTPLookup struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPLookup creates a lookup against the given base URL
// (e.g. "http://ip-api.com/json") with a bounded request timeout.
func NewHTTPLookup(baseURL string) *HTTPLookup {
	return &HTTPLookup{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 5 * time.Second},
	}
}

// Lookup performs the HTTP round trip, retrying once after a short delay on
// transient failure.
func (l *HTTPLookup) Lookup(ctx context.Context, ip string) (Record, error) {
	rec, err := l.lookupOnce(ctx, ip)
	if err == nil {
		return rec, nil
	}

	select {
	case <-ctx.Done():
		return Record{}, ctx.Err()
	case <-time.After(lookupRetryDelay):
	}
	return l.lookupOnce(ctx, ip)
}

func (l *HTTPLookup) lookupOnce(ctx context.Context, ip string) (Record, error) {
	url := fmt.Sprintf("%s/%s?fields=status,country,countryCode,region,city,lat,lon,isp,timezone,proxy",
		l.BaseURL, ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Record{}, err
	}

	resp, err := l.Client.Do(req)
	if err != nil {
		return Record{}, fmt.Errorf("geolocation lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Record{}, fmt.Errorf("geolocation lookup returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Record{}, fmt.Errorf("geolocation read failed: %w", err)
	}

	var data ipAPIResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return Record{}, fmt.Errorf("geolocation parse failed: %w", err)
	}
	if data.Status != "success" {
		return Record{}, fmt.Errorf("geolocation lookup for %s did not succeed", ip)
	}

	rec := Unknown(ip)
	if data.Country != "" {
		rec.Country = data.Country
	}
	if data.CountryCode != "" {
		rec.CountryCode = data.CountryCode
	}
	if data.Region != "" {
		rec.Region = data.Region
	}
	if data.City != "" {
		rec.City = data.City
	}
	rec.Latitude = data.Lat
	rec.Longitude = data.Lon
	if data.ISP != "" {
		rec.ISP = data.ISP
	}
	if data.Timezone != "" {
		rec.Timezone = data.Timezone
	}
	rec.IsProxy = data.Proxy
	rec.IsVPN = InferVPN(data.ISP)
	return rec, nil
}

// FixtureLookup serves records from a fixed map. Used for tests and offline
// analysis runs.
type FixtureLookup struct {
	Records map[string]Record
}

// Lookup returns the fixture for ip, or an error when none is defined.
func (l *FixtureLookup) Lookup(_ context.Context, ip string) (Record, error) {
	rec, ok := l.Records[ip]
	if !ok {
		return Record{}, fmt.Errorf("no fixture for IP %s", ip)
	}
	rec.IP = ip
	rec.IsVPN = rec.IsVPN || InferVPN(rec.ISP)
	return rec, nil
}
