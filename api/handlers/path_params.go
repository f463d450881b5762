package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

func urlParamInt64(r *http.Request, key string) int64 {
	if v := chi.URLParam(r, key); v != "" {
		return parseInt64Default(v, 0)
	}
	// Fallback for direct handler tests without chi route context: take the
	// last numeric path segment.
	segments := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if n := parseInt64Default(segments[i], 0); n > 0 {
			return n
		}
	}
	return 0
}
