// Package hello serves fixed greetings by exact path match, with no router and no state.
package hello

import (
	"io"
	"net/http"
)

// DefaultRoutes returns the greeting for each known path.
func DefaultRoutes() map[string]string {
	return map[string]string{
		"/":        "Hello Ice Tea",
		"/ice-tea": "Hello Ice Tea is the best",
	}
}

// Handler answers known paths with their text and everything else with 404.
// The routes map is copied, later changes to it are not observed.
func Handler(routes map[string]string) http.Handler {
	table := make(map[string]string, len(routes))
	for path, body := range routes {
		table[path] = body
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		body, ok := table[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, "Not Found")
			return
		}
		io.WriteString(w, body)
	})
}
