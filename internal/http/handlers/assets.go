package handlers

import (
	"net/http"
	"strings"
)

// Assets serves objects written by the local backend. Remote objects publish
// through the bucket's public base URL instead, so this route only carries
// traffic in local mode.
func (a *App) Assets() http.Handler {
	fs := http.FileServer(http.Dir(a.Cfg.LocalStorageDir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			a.error(w, http.StatusMethodNotAllowed, "method_not_allowed", "read-only endpoint")
			return
		}
		// Keys always name a file. A directory path would let the file
		// server enumerate every stored key.
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			a.error(w, http.StatusNotFound, "not_found", "object not found")
			return
		}
		fs.ServeHTTP(w, r)
	})
}
