package openmeteo

import (
	"fmt"
	"net/url"
	"strings"
)

// Param documents one query parameter an endpoint accepts.
type Param struct {
	Name        string
	Description string
}

// Endpoint is one reachable data-service target. Host and Path are the
// only values a proposed URL is allowed to carry.
type Endpoint struct {
	Name        string
	Host        string
	Path        string
	Description string
	Params      []Param
	ExampleURL  string
}

// Registry is the catalogue of endpoints model-proposed URLs are
// validated against. Lookups match host and path structurally, never
// by substring.
type Registry struct {
	endpoints []Endpoint
	byHost    map[string]Endpoint
}

// NewRegistry validates the endpoint table at construction. Duplicate
// hosts and relative paths are configuration errors.
func NewRegistry(endpoints []Endpoint) (*Registry, error) {
	r := &Registry{byHost: make(map[string]Endpoint, len(endpoints))}
	for _, ep := range endpoints {
		if ep.Host == "" || !strings.HasPrefix(ep.Path, "/") {
			return nil, fmt.Errorf("openmeteo: endpoint %q: host and absolute path required", ep.Name)
		}
		if _, dup := r.byHost[ep.Host]; dup {
			return nil, fmt.Errorf("openmeteo: duplicate endpoint host %q", ep.Host)
		}
		r.byHost[ep.Host] = ep
		r.endpoints = append(r.endpoints, ep)
	}
	if len(r.endpoints) == 0 {
		return nil, fmt.Errorf("openmeteo: empty endpoint table")
	}
	return r, nil
}

// DefaultRegistry returns the catalogue of open-meteo services the
// query builder may target.
func DefaultRegistry() *Registry {
	r, err := NewRegistry([]Endpoint{
		{
			Name:        "archive",
			Host:        "archive-api.open-meteo.com",
			Path:        "/v1/archive",
			Description: "Historical weather data (temperature, precipitation, wind) from 1940 onward.",
			Params: []Param{
				{Name: "latitude", Description: "WGS84 latitude of the location"},
				{Name: "longitude", Description: "WGS84 longitude of the location"},
				{Name: "start_date", Description: "ISO date, first day of the range"},
				{Name: "end_date", Description: "ISO date, last day of the range"},
				{Name: "daily", Description: "comma-separated daily variables: temperature_2m_max, temperature_2m_min, temperature_2m_mean, precipitation_sum, wind_speed_10m_max"},
				{Name: "hourly", Description: "comma-separated hourly variables: temperature_2m, relative_humidity_2m, precipitation, wind_speed_10m"},
			},
			ExampleURL: "https://archive-api.open-meteo.com/v1/archive?latitude=52.52&longitude=13.41&start_date=2015-01-18&end_date=2025-02-01&daily=temperature_2m_max,temperature_2m_min,temperature_2m_mean",
		},
		{
			Name:        "air-quality",
			Host:        "air-quality-api.open-meteo.com",
			Path:        "/v1/air-quality",
			Description: "Air quality measurements (particulate matter, ozone, gases).",
			Params: []Param{
				{Name: "latitude", Description: "WGS84 latitude of the location"},
				{Name: "longitude", Description: "WGS84 longitude of the location"},
				{Name: "start_date", Description: "ISO date, first day of the range"},
				{Name: "end_date", Description: "ISO date, last day of the range"},
				{Name: "hourly", Description: "comma-separated hourly variables: pm10, pm2_5, carbon_monoxide, nitrogen_dioxide, ozone"},
			},
			ExampleURL: "https://air-quality-api.open-meteo.com/v1/air-quality?latitude=35.1815&longitude=136.9064&hourly=pm10,pm2_5&start_date=2015-01-01&end_date=2025-01-01",
		},
	})
	if err != nil {
		panic(err)
	}
	return r
}

// ValidateURL accepts a proposed URL only when its scheme is https and
// its host and path exactly match a registered endpoint.
func (r *Registry) ValidateURL(raw string) (Endpoint, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Endpoint{}, fmt.Errorf("openmeteo: parse url: %w", err)
	}
	if u.Scheme != "https" {
		return Endpoint{}, fmt.Errorf("openmeteo: scheme %q not allowed", u.Scheme)
	}
	ep, ok := r.byHost[u.Host]
	if !ok {
		return Endpoint{}, fmt.Errorf("openmeteo: host %q not in registry", u.Host)
	}
	if u.Path != ep.Path {
		return Endpoint{}, fmt.Errorf("openmeteo: path %q not valid for %s", u.Path, ep.Host)
	}
	return ep, nil
}

// Endpoints returns the catalogue in registration order.
func (r *Registry) Endpoints() []Endpoint {
	return r.endpoints
}

// Describe renders the catalogue for prompt text: one block per
// endpoint with its parameters and a worked example.
func (r *Registry) Describe() string {
	var buf strings.Builder
	for i, ep := range r.endpoints {
		if i > 0 {
			buf.WriteString("\n\n")
		}
		fmt.Fprintf(&buf, "## %s\nURL: https://%s%s\n%s\nParameters:", ep.Name, ep.Host, ep.Path, ep.Description)
		for _, p := range ep.Params {
			fmt.Fprintf(&buf, "\n- %s: %s", p.Name, p.Description)
		}
		if ep.ExampleURL != "" {
			fmt.Fprintf(&buf, "\nExample: %s", ep.ExampleURL)
		}
	}
	return buf.String()
}
