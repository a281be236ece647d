package geo

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/skytrace/skytrace/internal/common/metrics"
)

// rateDelay spaces out consecutive external lookups to respect the upstream
// service's free-tier limits.
const rateDelay = 100 * time.Millisecond

// Resolver maps IP addresses to geolocation records. It owns its cache, so
// concurrent analysis runs can use independent resolvers for test isolation.
type Resolver struct {
	lookup Lookup
	cache  Cache
	logger *zap.Logger
}

// NewResolver creates a resolver over the given lookup backend and cache.
func NewResolver(lookup Lookup, cache Cache, logger *zap.Logger) *Resolver {
	return &Resolver{
		lookup: lookup,
		cache:  cache,
		logger: logger.With(zap.String("component", "geo_resolver")),
	}
}

// Resolve returns the geolocation record for ip. Private and loopback
// addresses short-circuit to the Unknown sentinel without a network call,
// and lookup failures are absorbed into the sentinel: this method never
// fails. Each distinct IP incurs at most one round trip per cache lifetime.
func (r *Resolver) Resolve(ctx context.Context, ip string) Record {
	if rec, ok := r.cache.Get(ctx, ip); ok {
		metrics.GeoLookupsTotal.WithLabelValues("cache_hit").Inc()
		return rec
	}

	if IsPrivateIP(ip) {
		metrics.GeoLookupsTotal.WithLabelValues("private").Inc()
		rec := Unknown(ip)
		r.cache.Set(ctx, ip, rec)
		return rec
	}

	rec, err := r.lookup.Lookup(ctx, ip)
	if err != nil {
		metrics.GeoLookupsTotal.WithLabelValues("failed").Inc()
		r.logger.Warn("Failed to get location, using sentinel",
			zap.String("ip", ip),
			zap.Error(err),
		)
		rec = Unknown(ip)
	} else {
		metrics.GeoLookupsTotal.WithLabelValues("resolved").Inc()
	}

	r.cache.Set(ctx, ip, rec)
	return rec
}

// EnrichAll resolves the unique set of the given IPs and returns records
// keyed by IP. Lookups run one at a time with a fixed delay between external
// calls; ctx cancels the remaining work, already-resolved IPs staying cached.
func (r *Resolver) EnrichAll(ctx context.Context, ips []string) map[string]Record {
	unique := make([]string, 0, len(ips))
	seen := make(map[string]struct{}, len(ips))
	for _, ip := range ips {
		if _, ok := seen[ip]; ok {
			continue
		}
		seen[ip] = struct{}{}
		unique = append(unique, ip)
	}

	results := make(map[string]Record, len(unique))
	for i, ip := range unique {
		select {
		case <-ctx.Done():
			r.logger.Warn("Enrichment cancelled",
				zap.Int("resolved", i),
				zap.Int("total", len(unique)),
			)
			// Remaining IPs fall back to the sentinel so callers still get
			// a record per IP.
			for _, rest := range unique[i:] {
				results[rest] = Unknown(rest)
			}
			return results
		default:
		}

		_, cached := r.cache.Get(ctx, ip)
		results[ip] = r.Resolve(ctx, ip)

		// Space out only real external calls.
		if !cached && !IsPrivateIP(ip) && i < len(unique)-1 {
			select {
			case <-ctx.Done():
			case <-time.After(rateDelay):
			}
		}
	}

	r.logger.Info("Geolocation enrichment complete",
		zap.Int("unique_ips", len(unique)),
		zap.Int("input_rows", len(ips)),
	)
	return results
}
