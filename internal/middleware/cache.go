package middleware

import (
	"net/http"
	"path"
	"strings"
)

const staticMaxAge = "public, max-age=3600"

// hashed or versioned front-end bundles; index.html is never cached
var cacheableExt = map[string]bool{
	".js": true, ".css": true, ".png": true, ".svg": true, ".ico": true,
	".woff": true, ".woff2": true, ".webp": true,
}

// NoStore marks every response uncacheable except static assets outside
// /api/. API payloads carry personal health data.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		if isStaticAsset(r.URL.Path) {
			h.Set("Cache-Control", staticMaxAge)
		} else {
			h.Set("Cache-Control", "no-store, max-age=0")
			h.Set("Pragma", "no-cache")
		}
		next.ServeHTTP(w, r)
	})
}

func isStaticAsset(p string) bool {
	if strings.HasPrefix(p, "/api/") {
		return false
	}
	return cacheableExt[strings.ToLower(path.Ext(p))]
}
