package logger

import (
	"context"
	log "log/slog"
)

// SessionIDKey 定义 Context 中的 Key
const SessionIDKey = "session_id"

// ContextHandler 包装器，用于从 ctx 中提取 session_id
type ContextHandler struct {
	log.Handler
}

func (h *ContextHandler) Handle(ctx context.Context, r log.Record) error {
	if ctx != nil {
		if sessionID, ok := ctx.Value(SessionIDKey).(string); ok {
			r.AddAttrs(log.String("session_id", sessionID))
		}
	}
	return h.Handler.Handle(ctx, r)
}
