package middleware

import (
	"encoding/json"
	"net/http"
	"runtime/debug"

	"media-toolkit/internal/logging"
)

// Recovery turns a panicking handler into a 500 JSON envelope.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := newStatusRecorder(w)
		defer func() {
			p := recover()
			if p == nil {
				return
			}
			if p == http.ErrAbortHandler {
				panic(p)
			}

			logging.Error("panic serving %s %s: %v\n%s",
				sanitizeLogField(r.Method), sanitizeLogField(r.URL.Path), p, debug.Stack())

			if rec.wroteHeader {
				// too late for an error body
				return
			}
			rec.Header().Set("Content-Type", "application/json")
			rec.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(rec).Encode(map[string]interface{}{
				"success": false,
				"error":   "Internal server error",
			})
		}()

		next.ServeHTTP(rec, r)
	})
}
