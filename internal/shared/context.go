package shared

import (
	"context"
	"strconv"
	"strings"
)

type sessionContextKey struct{}

type requestMetaContextKey struct{}

// RequestMeta describes the caller of the current request.
type RequestMeta struct {
	IP        string
	UserAgent string
	RequestID string
}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// ContextWithRequestMeta stores caller metadata in context.
func ContextWithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaContextKey{}, meta)
}

// RequestMetaFromContext returns caller metadata, zero value when absent.
func RequestMetaFromContext(ctx context.Context) RequestMeta {
	meta, _ := ctx.Value(requestMetaContextKey{}).(RequestMeta)
	return meta
}

// ActorID returns the authenticated user id bound to the session in ctx, 0 when anonymous.
func ActorID(ctx context.Context) int64 {
	sess := SessionFromContext(ctx)
	if sess == nil {
		return 0
	}
	id, err := strconv.ParseInt(strings.TrimSpace(sess.User()), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
