package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"kpiboard/internal/requestctx"
)

const maxRequestIDLength = 128

// RequestID reuses a caller's X-Request-ID when it is sane and mints one
// otherwise.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if reqID == "" || len(reqID) > maxRequestIDLength || strings.ContainsAny(reqID, "\r\n") {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(requestctx.WithRequestID(r.Context(), reqID)))
	})
}

func GetRequestID(ctx context.Context) string {
	return requestctx.GetRequestID(ctx)
}
