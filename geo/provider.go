// Package geo resolves client IPs to coarse location info through a
// configurable external provider, with a persisted TTL cache in front so
// repeat downloads from the same address don't hit the provider again.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"insoft/depot-api/model"
)

// Provider is one external geolocation API. Lookup returns the parsed
// location or an error; provider-reported failures in the response body
// count as errors just like transport failures.
type Provider interface {
	Name() string
	RequiresKey() bool
	Lookup(ctx context.Context, client *http.Client, ip, apiKey string) (*LocationInfo, error)
}

// LocationInfo aliases the shared model type so provider code stays terse.
type LocationInfo = model.LocationInfo

// defaultProviders is the closed set of supported provider tags.
func defaultProviders() map[string]Provider {
	return map[string]Provider{
		"ipapi":         &IPAPI{},
		"ipstack":       &IPStack{},
		"ipgeolocation": &IPGeolocation{},
		"ip2location":   &IP2Location{},
	}
}

func fetchJSON(ctx context.Context, client *http.Client, rawURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	return json.NewDecoder(resp.Body).Decode(v)
}

// IPAPI queries ip-api.com, the free key-less provider.
type IPAPI struct {
	// BaseURL overrides the endpoint, used by tests. Empty means production.
	BaseURL string
}

func (p *IPAPI) Name() string      { return "ipapi" }
func (p *IPAPI) RequiresKey() bool { return false }

func (p *IPAPI) Lookup(ctx context.Context, client *http.Client, ip, _ string) (*LocationInfo, error) {
	base := p.BaseURL
	if base == "" {
		base = "http://ip-api.com"
	}

	var data struct {
		Status      string `json:"status"`
		Message     string `json:"message"`
		Country     string `json:"country"`
		RegionName  string `json:"regionName"`
		City        string `json:"city"`
		CountryCode string `json:"countryCode"`
		Region      string `json:"region"`
		Timezone    string `json:"timezone"`
		ISP         string `json:"isp"`
	}

	u := fmt.Sprintf("%s/json/%s?fields=status,message,country,regionName,city,countryCode,region,timezone,isp", base, url.PathEscape(ip))
	if err := fetchJSON(ctx, client, u, &data); err != nil {
		return nil, err
	}

	if data.Status != "success" {
		return nil, fmt.Errorf("provider rejected lookup: %s", data.Message)
	}

	return &LocationInfo{
		Country:     data.Country,
		Region:      data.RegionName,
		City:        data.City,
		CountryCode: data.CountryCode,
		RegionCode:  data.Region,
		Timezone:    data.Timezone,
		ISP:         data.ISP,
	}, nil
}

// IPStack queries api.ipstack.com (API key required).
type IPStack struct {
	BaseURL string
}

func (p *IPStack) Name() string      { return "ipstack" }
func (p *IPStack) RequiresKey() bool { return true }

func (p *IPStack) Lookup(ctx context.Context, client *http.Client, ip, apiKey string) (*LocationInfo, error) {
	base := p.BaseURL
	if base == "" {
		base = "http://api.ipstack.com"
	}

	var data struct {
		CountryName string `json:"country_name"`
		RegionName  string `json:"region_name"`
		City        string `json:"city"`
		CountryCode string `json:"country_code"`
		RegionCode  string `json:"region_code"`
		TimeZone    struct {
			ID string `json:"id"`
		} `json:"time_zone"`
		Connection struct {
			ISP string `json:"isp"`
		} `json:"connection"`
		Error struct {
			Info string `json:"info"`
		} `json:"error"`
	}

	u := fmt.Sprintf("%s/%s?access_key=%s", base, url.PathEscape(ip), url.QueryEscape(apiKey))
	if err := fetchJSON(ctx, client, u, &data); err != nil {
		return nil, err
	}

	if data.CountryName == "" {
		if data.Error.Info != "" {
			return nil, fmt.Errorf("provider rejected lookup: %s", data.Error.Info)
		}
		return nil, fmt.Errorf("provider returned no location")
	}

	return &LocationInfo{
		Country:     data.CountryName,
		Region:      data.RegionName,
		City:        data.City,
		CountryCode: data.CountryCode,
		RegionCode:  data.RegionCode,
		Timezone:    data.TimeZone.ID,
		ISP:         data.Connection.ISP,
	}, nil
}

// IPGeolocation queries api.ipgeolocation.io (API key required).
type IPGeolocation struct {
	BaseURL string
}

func (p *IPGeolocation) Name() string      { return "ipgeolocation" }
func (p *IPGeolocation) RequiresKey() bool { return true }

func (p *IPGeolocation) Lookup(ctx context.Context, client *http.Client, ip, apiKey string) (*LocationInfo, error) {
	base := p.BaseURL
	if base == "" {
		base = "https://api.ipgeolocation.io"
	}

	var data struct {
		CountryName  string `json:"country_name"`
		StateProv    string `json:"state_prov"`
		City         string `json:"city"`
		CountryCode2 string `json:"country_code2"`
		StateCode    string `json:"state_code"`
		TimeZone     struct {
			Name string `json:"name"`
		} `json:"time_zone"`
		ISP     string `json:"isp"`
		Message string `json:"message"`
	}

	u := fmt.Sprintf("%s/ipgeo?apiKey=%s&ip=%s", base, url.QueryEscape(apiKey), url.PathEscape(ip))
	if err := fetchJSON(ctx, client, u, &data); err != nil {
		return nil, err
	}

	if data.CountryName == "" {
		if data.Message != "" {
			return nil, fmt.Errorf("provider rejected lookup: %s", data.Message)
		}
		return nil, fmt.Errorf("provider returned no location")
	}

	return &LocationInfo{
		Country:     data.CountryName,
		Region:      data.StateProv,
		City:        data.City,
		CountryCode: data.CountryCode2,
		RegionCode:  data.StateCode,
		Timezone:    data.TimeZone.Name,
		ISP:         data.ISP,
	}, nil
}

// IP2Location queries api.ip2location.io (API key required). The schema
// has no separate region code, the region name doubles as both.
type IP2Location struct {
	BaseURL string
}

func (p *IP2Location) Name() string      { return "ip2location" }
func (p *IP2Location) RequiresKey() bool { return true }

func (p *IP2Location) Lookup(ctx context.Context, client *http.Client, ip, apiKey string) (*LocationInfo, error) {
	base := p.BaseURL
	if base == "" {
		base = "https://api.ip2location.io"
	}

	var data struct {
		CountryName string `json:"country_name"`
		RegionName  string `json:"region_name"`
		CityName    string `json:"city_name"`
		CountryCode string `json:"country_code"`
		TimeZone    string `json:"time_zone"`
		AS          string `json:"as"`
		Error       struct {
			ErrorMessage string `json:"error_message"`
		} `json:"error"`
	}

	u := fmt.Sprintf("%s/?key=%s&ip=%s&format=json", base, url.QueryEscape(apiKey), url.PathEscape(ip))
	if err := fetchJSON(ctx, client, u, &data); err != nil {
		return nil, err
	}

	if data.CountryName == "" {
		if data.Error.ErrorMessage != "" {
			return nil, fmt.Errorf("provider rejected lookup: %s", data.Error.ErrorMessage)
		}
		return nil, fmt.Errorf("provider returned no location")
	}

	return &LocationInfo{
		Country:     data.CountryName,
		Region:      data.RegionName,
		City:        data.CityName,
		CountryCode: data.CountryCode,
		RegionCode:  data.RegionName,
		Timezone:    data.TimeZone,
		ISP:         data.AS,
	}, nil
}
