package model

// LocationInfo is the provider-independent geolocation result. Every
// provider response schema is adapted into this shape.
type LocationInfo struct {
	Country     string `json:"country,omitempty"`
	Region      string `json:"region,omitempty"`
	City        string `json:"city,omitempty"`
	CountryCode string `json:"countryCode,omitempty"`
	RegionCode  string `json:"regionCode,omitempty"`
	Timezone    string `json:"timezone,omitempty"`
	ISP         string `json:"isp,omitempty"`
}
