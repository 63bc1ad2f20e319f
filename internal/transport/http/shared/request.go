package shared

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"kpiboard/internal/domain/audit"
	"kpiboard/internal/requestctx"
)

type Auditor interface {
	Record(ctx context.Context, entry audit.Entry) error
}

// ClientIP prefers the first X-Forwarded-For hop, then RemoteAddr.
func ClientIP(r *http.Request) string {
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if value := strings.TrimSpace(first); value != "" {
			return value
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// Audit records entry with the caller, request id and client address filled
// in. Failures are logged and never fail the request.
func Audit(r *http.Request, auditor Auditor, entry audit.Entry) {
	if auditor == nil {
		return
	}
	if entry.ActorID == "" {
		if user, ok := requestctx.GetUser(r.Context()); ok {
			entry.ActorID = user.UserID
		}
	}
	entry.RequestID = requestctx.GetRequestID(r.Context())
	entry.IP = ClientIP(r)
	if err := auditor.Record(r.Context(), entry); err != nil {
		slog.Warn("audit log failed", "action", entry.Action, "entity_type", entry.EntityType, "entity_id", entry.EntityID, "err", err)
	}
}
