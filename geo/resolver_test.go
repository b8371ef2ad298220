package geo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider counts lookups and serves a canned answer or error.
type fakeProvider struct {
	location *LocationInfo
	err      error
	needsKey bool
	calls    atomic.Int32
}

func (p *fakeProvider) Name() string      { return "fake" }
func (p *fakeProvider) RequiresKey() bool { return p.needsKey }

func (p *fakeProvider) Lookup(_ context.Context, _ *http.Client, _, _ string) (*LocationInfo, error) {
	p.calls.Add(1)
	return p.location, p.err
}

func testConfig(ttl time.Duration) Config {
	return Config{Enabled: true, Provider: "fake", CacheDuration: ttl}
}

func newTestResolver(t *testing.T, p Provider) *Resolver {
	t.Helper()

	r := NewResolver(t.TempDir())
	r.SetProvider("fake", p)

	return r
}

func TestResolveCachesByTTL(t *testing.T) {
	p := &fakeProvider{location: &LocationInfo{Country: "United States", CountryCode: "US"}}
	r := newTestResolver(t, p)
	cfg := testConfig(time.Hour)

	first := r.Resolve(context.Background(), "203.0.113.7", cfg)
	require.NotNil(t, first)
	assert.Equal(t, "US", first.CountryCode)

	second := r.Resolve(context.Background(), "203.0.113.7", cfg)
	require.NotNil(t, second)
	assert.Equal(t, "US", second.CountryCode)

	assert.Equal(t, int32(1), p.calls.Load())
}

func TestResolveExpiredEntryRefetches(t *testing.T) {
	p := &fakeProvider{location: &LocationInfo{Country: "United States"}}
	r := newTestResolver(t, p)
	cfg := testConfig(30 * time.Millisecond)

	require.NotNil(t, r.Resolve(context.Background(), "203.0.113.7", cfg))
	time.Sleep(80 * time.Millisecond)
	require.NotNil(t, r.Resolve(context.Background(), "203.0.113.7", cfg))

	assert.Equal(t, int32(2), p.calls.Load())
}

func TestResolveSoftFailures(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		p := &fakeProvider{location: &LocationInfo{Country: "US"}}
		r := newTestResolver(t, p)

		cfg := testConfig(time.Hour)
		cfg.Enabled = false

		assert.Nil(t, r.Resolve(context.Background(), "203.0.113.7", cfg))
		assert.Equal(t, int32(0), p.calls.Load())
	})

	t.Run("provider error", func(t *testing.T) {
		p := &fakeProvider{err: fmt.Errorf("upstream down")}
		r := newTestResolver(t, p)

		assert.Nil(t, r.Resolve(context.Background(), "203.0.113.7", testConfig(time.Hour)))
	})

	t.Run("unknown provider tag", func(t *testing.T) {
		r := NewResolver(t.TempDir())

		cfg := testConfig(time.Hour)
		cfg.Provider = "nonexistent"

		assert.Nil(t, r.Resolve(context.Background(), "203.0.113.7", cfg))
	})

	t.Run("missing api key", func(t *testing.T) {
		p := &fakeProvider{needsKey: true, location: &LocationInfo{Country: "US"}}
		r := newTestResolver(t, p)

		assert.Nil(t, r.Resolve(context.Background(), "203.0.113.7", testConfig(time.Hour)))
		assert.Equal(t, int32(0), p.calls.Load())
	})
}

func TestResolveSkipsUnresolvableAddresses(t *testing.T) {
	p := &fakeProvider{location: &LocationInfo{Country: "US"}}
	r := newTestResolver(t, p)
	cfg := testConfig(time.Hour)

	for _, ip := range []string{"", "unknown", "not-an-ip", "127.0.0.1", "10.1.2.3", "192.168.0.5", "fe80::1", "0.0.0.0"} {
		assert.Nil(t, r.Resolve(context.Background(), ip, cfg), ip)
	}
	assert.Equal(t, int32(0), p.calls.Load())
}

func TestSnapshotSurvivesRestart(t *testing.T) {
	viper.Set("geolocation.cache_duration", 3600)
	defer viper.Set("geolocation.cache_duration", 0)

	dataDir := t.TempDir()
	p := &fakeProvider{location: &LocationInfo{Country: "Germany", CountryCode: "DE"}}

	r := NewResolver(dataDir)
	r.SetProvider("fake", p)
	require.NotNil(t, r.Resolve(context.Background(), "203.0.113.7", testConfig(time.Hour)))

	// A fresh resolver over the same data dir must answer from the
	// snapshot without calling the provider.
	fresh := NewResolver(dataDir)
	fresh.SetProvider("fake", p)

	loc := fresh.Resolve(context.Background(), "203.0.113.7", testConfig(time.Hour))
	require.NotNil(t, loc)
	assert.Equal(t, "DE", loc.CountryCode)
	assert.Equal(t, int32(1), p.calls.Load())
}

func TestResolveBatch(t *testing.T) {
	p := &fakeProvider{location: &LocationInfo{Country: "US"}}
	r := newTestResolver(t, p)

	ips := []string{"203.0.113.1", "203.0.113.2", "203.0.113.1", "192.168.0.1"}
	results := r.ResolveBatch(context.Background(), ips, testConfig(time.Hour))

	require.Len(t, results, 3)
	assert.NotNil(t, results["203.0.113.1"])
	assert.NotNil(t, results["203.0.113.2"])
	assert.Nil(t, results["192.168.0.1"])

	// Duplicates collapse to one provider call per public IP
	assert.Equal(t, int32(2), p.calls.Load())
}

func TestIPAPIParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		assert.Contains(t, req.URL.Path, "203.0.113.7")
		fmt.Fprint(w, `{"status":"success","country":"United States","regionName":"Virginia","city":"Ashburn","countryCode":"US","region":"VA","timezone":"America/New_York","isp":"Example ISP"}`)
	}))
	defer srv.Close()

	p := &IPAPI{BaseURL: srv.URL}
	loc, err := p.Lookup(context.Background(), srv.Client(), "203.0.113.7", "")

	require.NoError(t, err)
	assert.Equal(t, "United States", loc.Country)
	assert.Equal(t, "Virginia", loc.Region)
	assert.Equal(t, "Ashburn", loc.City)
	assert.Equal(t, "US", loc.CountryCode)
	assert.Equal(t, "VA", loc.RegionCode)
	assert.Equal(t, "America/New_York", loc.Timezone)
	assert.Equal(t, "Example ISP", loc.ISP)
}

func TestIPAPIRejectedLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"status":"fail","message":"reserved range"}`)
	}))
	defer srv.Close()

	p := &IPAPI{BaseURL: srv.URL}
	_, err := p.Lookup(context.Background(), srv.Client(), "203.0.113.7", "")

	assert.ErrorContains(t, err, "reserved range")
}

func TestIPStackParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "sekrit", req.URL.Query().Get("access_key"))
		fmt.Fprint(w, `{"country_name":"Germany","region_name":"Berlin","city":"Berlin","country_code":"DE","region_code":"BE","time_zone":{"id":"Europe/Berlin"},"connection":{"isp":"Example ISP"}}`)
	}))
	defer srv.Close()

	p := &IPStack{BaseURL: srv.URL}
	loc, err := p.Lookup(context.Background(), srv.Client(), "203.0.113.7", "sekrit")

	require.NoError(t, err)
	assert.Equal(t, "Germany", loc.Country)
	assert.Equal(t, "DE", loc.CountryCode)
	assert.Equal(t, "Europe/Berlin", loc.Timezone)
}
