package geo

import (
	"context"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
)

// MaxMindLookup resolves IPs against a local GeoIP2/GeoLite2 City database.
// No network calls, no rate limits; useful when an mmdb file is available.
type MaxMindLookup struct {
	reader *geoip2.Reader
}

// NewMaxMindLookup opens the City database at path.
func NewMaxMindLookup(path string) (*MaxMindLookup, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open GeoIP database: %w", err)
	}
	return &MaxMindLookup{reader: reader}, nil
}

// Close releases the underlying database handle.
func (l *MaxMindLookup) Close() error {
	return l.reader.Close()
}

// Lookup implements the Lookup interface over the local database.
func (l *MaxMindLookup) Lookup(_ context.Context, ipAddress string) (Record, error) {
	ip := net.ParseIP(ipAddress)
	if ip == nil {
		return Record{}, fmt.Errorf("invalid IP address: %s", ipAddress)
	}

	city, err := l.reader.City(ip)
	if err != nil {
		return Record{}, err
	}

	rec := Unknown(ipAddress)
	if name := city.Country.Names["en"]; name != "" {
		rec.Country = name
	}
	if city.Country.IsoCode != "" {
		rec.CountryCode = city.Country.IsoCode
	}
	if len(city.Subdivisions) > 0 {
		if name := city.Subdivisions[0].Names["en"]; name != "" {
			rec.Region = name
		}
	}
	if name := city.City.Names["en"]; name != "" {
		rec.City = name
	}
	rec.Latitude = city.Location.Latitude
	rec.Longitude = city.Location.Longitude
	if city.Location.TimeZone != "" {
		rec.Timezone = city.Location.TimeZone
	}
	rec.IsProxy = city.Traits.IsAnonymousProxy
	return rec, nil
}
