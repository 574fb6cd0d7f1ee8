package openmeteo

import (
	"net/url"
	"time"
)

// Defaults applied when a proposed query leaves location or time range
// open. Bounding the range at the builder keeps response sizes sane
// regardless of what the model emitted.
const (
	DefaultLatitude  = "35.1815"
	DefaultLongitude = "136.9064"
	defaultWindow    = 2 // years
)

// Query is one fully-parameterized request URL that already passed
// registry validation.
type Query struct {
	Endpoint string
	URL      string
}

// QuerySet is the ordered list of queries for one run.
type QuerySet []Query

// URLs returns the raw request URLs in order.
func (qs QuerySet) URLs() []string {
	out := make([]string, len(qs))
	for i, q := range qs {
		out[i] = q.URL
	}
	return out
}

// DefaultWindow returns the conservative [start, end] date range used
// when a query carries none: the past two full years up to today.
func DefaultWindow(now time.Time) (start, end string) {
	end = now.Format("2006-01-02")
	start = now.AddDate(-defaultWindow, 0, 0).Format("2006-01-02")
	return start, end
}

// ApplyDefaults fills missing latitude/longitude and start/end dates in
// raw with the registry defaults. Present parameters win. The input
// must already be a parseable URL.
func ApplyDefaults(raw string, now time.Time) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	q := u.Query()
	if q.Get("latitude") == "" || q.Get("longitude") == "" {
		q.Set("latitude", DefaultLatitude)
		q.Set("longitude", DefaultLongitude)
	}
	if q.Get("start_date") == "" || q.Get("end_date") == "" {
		start, end := DefaultWindow(now)
		q.Set("start_date", start)
		q.Set("end_date", end)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
