package geo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func geoTestServer(t *testing.T, calls *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{
			"status": "success",
			"country": "Germany",
			"countryCode": "DE",
			"region": "BE",
			"city": "Berlin",
			"lat": 52.52,
			"lon": 13.405,
			"isp": "Example VPN Services",
			"timezone": "Europe/Berlin",
			"proxy": false
		}`)
	}))
}

func TestResolvePublicIP(t *testing.T) {
	var calls atomic.Int64
	server := geoTestServer(t, &calls)
	defer server.Close()

	resolver := NewResolver(NewHTTPLookup(server.URL), NewMemoryCache(), zap.NewNop())

	rec := resolver.Resolve(context.Background(), "203.0.113.195")
	assert.Equal(t, "Germany", rec.Country)
	assert.Equal(t, "DE", rec.CountryCode)
	assert.Equal(t, "Berlin", rec.City)
	assert.InDelta(t, 52.52, rec.Latitude, 1e-9)
	assert.True(t, rec.IsVPN, "ISP containing VPN must set is_vpn")
	assert.False(t, rec.IsProxy)
}

func TestResolveCachesPerIP(t *testing.T) {
	var calls atomic.Int64
	server := geoTestServer(t, &calls)
	defer server.Close()

	resolver := NewResolver(NewHTTPLookup(server.URL), NewMemoryCache(), zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		resolver.Resolve(ctx, "203.0.113.195")
	}
	assert.Equal(t, int64(1), calls.Load(), "one network round trip per distinct IP")
}

func TestResolvePrivateIPsNoNetworkCall(t *testing.T) {
	var calls atomic.Int64
	server := geoTestServer(t, &calls)
	defer server.Close()

	resolver := NewResolver(NewHTTPLookup(server.URL), NewMemoryCache(), zap.NewNop())
	ctx := context.Background()

	for _, ip := range []string{"192.168.1.1", "10.0.0.5", "127.0.0.1", "172.16.0.9"} {
		rec := resolver.Resolve(ctx, ip)
		assert.Equal(t, Unknown(ip), rec, ip)
	}
	assert.Equal(t, int64(0), calls.Load(), "private IPs must not hit the network")
}

func TestResolveLookupFailureYieldsSentinel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	cache := NewMemoryCache()
	resolver := NewResolver(NewHTTPLookup(server.URL), cache, zap.NewNop())

	rec := resolver.Resolve(context.Background(), "203.0.113.5")
	assert.Equal(t, Unknown("203.0.113.5"), rec)

	// The failure result is cached too.
	cached, ok := cache.Get(context.Background(), "203.0.113.5")
	require.True(t, ok)
	assert.Equal(t, rec, cached)
}

func TestResolveUpstreamFailStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "fail"}`)
	}))
	defer server.Close()

	resolver := NewResolver(NewHTTPLookup(server.URL), NewMemoryCache(), zap.NewNop())
	rec := resolver.Resolve(context.Background(), "203.0.113.6")
	assert.Equal(t, "Unknown", rec.Country)
}

func TestEnrichAllDeduplicates(t *testing.T) {
	lookup := &FixtureLookup{Records: map[string]Record{
		"203.0.113.195": {Country: "Germany", CountryCode: "DE", City: "Berlin",
			Latitude: 52.52, Longitude: 13.405, ISP: "Example ISP"},
	}}
	resolver := NewResolver(lookup, NewMemoryCache(), zap.NewNop())

	ips := []string{"203.0.113.195", "192.168.1.1", "203.0.113.195", "192.168.1.1"}
	results := resolver.EnrichAll(context.Background(), ips)

	require.Len(t, results, 2)
	assert.Equal(t, "Germany", results["203.0.113.195"].Country)
	assert.Equal(t, "Unknown", results["192.168.1.1"].Country)
}

func TestEnrichAllCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resolver := NewResolver(&FixtureLookup{}, NewMemoryCache(), zap.NewNop())
	results := resolver.EnrichAll(ctx, []string{"203.0.113.1", "203.0.113.2"})

	// Every IP still gets a record; unresolved ones fall back to the sentinel.
	require.Len(t, results, 2)
	for ip, rec := range results {
		assert.Equal(t, Unknown(ip), rec)
	}
}

func TestIsPrivateIP(t *testing.T) {
	private := []string{"10.0.0.5", "172.16.0.1", "172.31.255.255", "192.168.1.1", "127.0.0.1", "garbage", "1.2.3"}
	public := []string{"8.8.8.8", "172.15.0.1", "172.32.0.1", "192.169.0.1", "203.0.113.195"}
	for _, ip := range private {
		assert.True(t, IsPrivateIP(ip), ip)
	}
	for _, ip := range public {
		assert.False(t, IsPrivateIP(ip), ip)
	}
}

func TestInferVPN(t *testing.T) {
	assert.True(t, InferVPN("NordVPN"))
	assert.True(t, InferVPN("Example proxy farm"))
	assert.False(t, InferVPN("Deutsche Telekom AG"))
	assert.False(t, InferVPN(""))
}
