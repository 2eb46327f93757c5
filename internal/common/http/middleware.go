package http

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"runtime/debug"

	"knowledge-hub/internal/common/logger"
)

const traceIDHeader = "X-Trace-ID"

func RecoveryMiddleware(log *logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Criticalf("panic recovered: %v\n%s", err, debug.Stack())
					WriteErrorEnvelope(w, http.StatusInternalServerError, "UNKNOWN", "internal server error", "")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func TraceIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(traceIDHeader)
		if traceID == "" {
			traceID = generateTraceID()
		}

		w.Header().Set(traceIDHeader, traceID)
		next.ServeHTTP(w, r.WithContext(logger.WithTraceID(r.Context(), traceID)))
	})
}

func generateTraceID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}
