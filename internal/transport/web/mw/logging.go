package mw

import (
	"log"
	"net/http"
	"time"
)

// Logging logs one line per request: status, size and duration.
func Logging(l *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := RequestIDFromCtx(r.Context())
			start := time.Now()

			mw := &metaWriter{ResponseWriter: w}
			defer func() {
				// an aborted stream still gets its line before the panic goes on
				if rec := recover(); rec != nil {
					l.Printf("lvl=error req_id=%s method=%s path=%q status=%d size=%d duration_ms=%d aborted=true",
						reqID, r.Method, r.URL.Path, mw.status, mw.size, time.Since(start).Milliseconds())
					panic(rec)
				}
				l.Printf("lvl=info req_id=%s method=%s path=%q range=%q status=%d size=%d duration_ms=%d",
					reqID, r.Method, r.URL.Path, r.Header.Get("Range"), mw.status, mw.size, time.Since(start).Milliseconds())
			}()

			next.ServeHTTP(mw, r)
		})
	}
}
