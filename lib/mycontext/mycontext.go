package mycontext

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
)

const SessionCookieName = "sessionUID"

// CtxTraceContext is a context key for the trace context this (used by mylog)
type CtxTraceContext struct{}

// CtxSessionUID is a context key for the session key of the browser that did the request
type CtxSessionUID struct{}

func ContextFromHTTPRequest(r *http.Request) context.Context {
	var trace string

	projectID := os.Getenv("GOOGLE_CLOUD_PROJECT")
	traceContext := r.Header.Get("X-Cloud-Trace-Context")
	traceParts := strings.Split(traceContext, "/")

	if len(traceParts) > 0 && len(traceParts[0]) > 0 {
		trace = fmt.Sprintf("projects/%s/traces/%s", projectID, traceParts[0])
	}

	ctx := context.WithValue(r.Context(), CtxTraceContext{}, trace)

	cookie, err := r.Cookie(SessionCookieName)
	if err == nil && cookie.Value != "" {
		ctx = WithSessionUID(ctx, cookie.Value)
	}

	return ctx
}

func WithSessionUID(c context.Context, sessionUID string) context.Context {
	return context.WithValue(c, CtxSessionUID{}, sessionUID)
}

func SessionUIDFromContext(c context.Context) string {
	sessionUID, _ := c.Value(CtxSessionUID{}).(string)
	return sessionUID
}

func TraceFromContext(c context.Context) string {
	trace, _ := c.Value(CtxTraceContext{}).(string)
	return trace
}
