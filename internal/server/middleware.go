package server

import (
	"net/http"
	"strings"
)

// CORS allows the configured frontend origin; with no origin
// configured it falls back to echoing the caller's.
func CORS(next http.Handler, frontendURL string) http.Handler {
	allowed := strings.TrimSpace(frontendURL)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		switch {
		case allowed != "":
			w.Header().Set("Access-Control-Allow-Origin", allowed)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Vary", "Origin")
		case origin != "":
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		default:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Accept-Language, Content-Type, Content-Length, Authorization")
		if r.Method == http.MethodOptions {
			return
		}
		next.ServeHTTP(w, r)
	})
}

// langFrom resolves the output language tag from Accept-Language,
// keeping only the primary subtag of the first entry. Defaults to "en".
func langFrom(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Accept-Language"))
	if raw == "" {
		return "en"
	}
	first := strings.TrimSpace(strings.Split(raw, ",")[0])
	first = strings.TrimSpace(strings.Split(first, ";")[0])
	if i := strings.IndexByte(first, '-'); i > 0 {
		first = first[:i]
	}
	if first == "" || first == "*" {
		return "en"
	}
	return strings.ToLower(first)
}
