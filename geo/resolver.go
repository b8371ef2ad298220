package geo

import (
	"context"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"insoft/depot-api/metrics"

	"github.com/jellydator/ttlcache/v2"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config is the runtime geolocation configuration. It is re-read per
// request so operators can flip the provider without a restart.
type Config struct {
	Enabled       bool
	Provider      string
	APIKey        string
	CacheDuration time.Duration
}

// ConfigFromViper builds the current config from the live viper state.
func ConfigFromViper() Config {
	return Config{
		Enabled:       viper.GetBool("geolocation.enabled"),
		Provider:      viper.GetString("geolocation.provider"),
		APIKey:        viper.GetString("geolocation.api_key"),
		CacheDuration: time.Duration(viper.GetInt("geolocation.cache_duration")) * time.Second,
	}
}

// batchSize and batchDelay pace bulk lookups so free-tier provider rate
// limits aren't tripped.
const (
	batchSize  = 5
	batchDelay = 100 * time.Millisecond
)

type cacheEntry struct {
	Location  *LocationInfo `json:"location"`
	FetchedAt time.Time     `json:"fetchedAt"`
}

// Resolver answers IP-to-location queries cache-first. Lookups never fail:
// any provider, transport or configuration problem degrades to a nil
// location. The cache lives in memory (ttlcache handles expiry) and is
// mirrored to disk so restarts don't re-query the provider.
type Resolver struct {
	cache        *ttlcache.Cache
	client       *http.Client
	providers    map[string]Provider
	snapshotPath string

	mu      sync.Mutex
	entries map[string]cacheEntry
}

func NewResolver(dataDir string) *Resolver {
	cache := ttlcache.NewCache()
	cache.SkipTTLExtensionOnHit(true)

	r := &Resolver{
		cache:        cache,
		client:       &http.Client{Timeout: 10 * time.Second},
		providers:    defaultProviders(),
		snapshotPath: filepath.Join(dataDir, "location-cache.json"),
		entries:      map[string]cacheEntry{},
	}

	r.loadSnapshot(ConfigFromViper().CacheDuration)
	return r
}

// SetProvider swaps in a provider implementation for the given tag.
// Tests use this to point lookups at a local server.
func (r *Resolver) SetProvider(tag string, p Provider) {
	r.providers[tag] = p
}

// Lookup resolves ip with the configuration current at call time. It
// satisfies store.Locator.
func (r *Resolver) Lookup(ctx context.Context, ip string) *LocationInfo {
	return r.Resolve(ctx, ip, ConfigFromViper())
}

// Resolve returns the location for ip or nil. Order: config gate, private
// address gate, cache, provider. Successful provider responses are cached
// and persisted before returning.
func (r *Resolver) Resolve(ctx context.Context, ip string, cfg Config) *LocationInfo {
	if !cfg.Enabled {
		return nil
	}

	if isUnresolvable(ip) {
		return nil
	}

	if cached, err := r.cache.Get(ip); err == nil {
		metrics.GeoLookups.WithLabelValues(cfg.Provider, "cache_hit").Inc()
		return cached.(*LocationInfo)
	}

	provider, ok := r.providers[cfg.Provider]
	if !ok {
		zap.L().Warn("Unknown geolocation provider", zap.String("provider", cfg.Provider))
		return nil
	}

	if provider.RequiresKey() && cfg.APIKey == "" {
		zap.L().Warn("Geolocation provider requires an API key", zap.String("provider", cfg.Provider))
		return nil
	}

	location, err := provider.Lookup(ctx, r.client, ip, cfg.APIKey)
	if err != nil {
		metrics.GeoLookups.WithLabelValues(cfg.Provider, "error").Inc()

		zap.L().Warn("Geolocation lookup failed",
			zap.String("provider", cfg.Provider),
			zap.String("ip", ip),
			zap.Error(err),
		)
		return nil
	}

	metrics.GeoLookups.WithLabelValues(cfg.Provider, "ok").Inc()
	r.remember(ip, location, cfg.CacheDuration)

	return location
}

// ResolveBatch resolves many IPs at once, de-duplicated and paced in small
// concurrent batches. Failed lookups appear as nil map values, the call
// itself never fails.
func (r *Resolver) ResolveBatch(ctx context.Context, ips []string, cfg Config) map[string]*LocationInfo {
	results := make(map[string]*LocationInfo)
	if !cfg.Enabled {
		return results
	}

	seen := map[string]struct{}{}
	unique := make([]string, 0, len(ips))
	for _, ip := range ips {
		if _, ok := seen[ip]; ok {
			continue
		}
		seen[ip] = struct{}{}
		unique = append(unique, ip)
	}

	var resMu sync.Mutex

	for i := 0; i < len(unique); i += batchSize {
		end := min(i+batchSize, len(unique))

		var wg sync.WaitGroup
		for _, ip := range unique[i:end] {
			wg.Add(1)
			go func() {
				defer wg.Done()

				location := r.Resolve(ctx, ip, cfg)

				resMu.Lock()
				results[ip] = location
				resMu.Unlock()
			}()
		}
		wg.Wait()

		if end < len(unique) {
			time.Sleep(batchDelay)
		}
	}

	return results
}

func (r *Resolver) remember(ip string, location *LocationInfo, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	r.cache.SetWithTTL(ip, location, ttl)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[ip] = cacheEntry{Location: location, FetchedAt: time.Now().UTC()}
	r.persistLocked(ttl)
}

// persistLocked prunes expired entries and rewrites the snapshot. Caller
// holds r.mu.
func (r *Resolver) persistLocked(ttl time.Duration) {
	now := time.Now().UTC()
	for ip, e := range r.entries {
		if now.Sub(e.FetchedAt) >= ttl {
			delete(r.entries, ip)
		}
	}

	if err := writeSnapshot(r.snapshotPath, r.entries); err != nil {
		zap.L().Error("Failed to save location cache", zap.Error(err))
	}
}

func (r *Resolver) loadSnapshot(ttl time.Duration) {
	entries, err := readSnapshot(r.snapshotPath)
	if err != nil {
		zap.L().Error("Failed to read location cache", zap.Error(err))
		return
	}

	now := time.Now().UTC()
	for ip, e := range entries {
		remaining := ttl - now.Sub(e.FetchedAt)
		if remaining <= 0 {
			continue
		}

		r.entries[ip] = e
		r.cache.SetWithTTL(ip, e.Location, remaining)
	}
}

// isUnresolvable reports addresses no provider can locate: the literal
// "unknown" marker, unparseable strings, and private or loopback ranges.
func isUnresolvable(ip string) bool {
	if ip == "" || ip == "unknown" {
		return true
	}

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return true
	}

	return parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsLinkLocalUnicast() || parsed.IsUnspecified()
}
