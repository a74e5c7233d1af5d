package middleware

import (
	"context"
	"net/http"

	"github.com/lsst-sqre/ltd-proxy/pkg/apis/sessions"
)

// RequestScope contains information regarding the request that is being made.
// The RequestScope is used to pass information between the middleware chain
// and the proxy handler.
type RequestScope struct {
	// RequestID is a unique identifier for the request, for log correlation.
	RequestID string

	// Session details the authenticated user's information (if it exists).
	Session *sessions.SessionState

	// Upstream names where the response came from, eg the bucket key or a
	// rewrite origin. Used by the request logger.
	Upstream string
}

type scopeKey string

// requestScopeKey uses a typed string to reduce likelihood of clashing
// with other context keys
const requestScopeKey scopeKey = "request-scope"

// GetRequestScope returns the current request scope from the given request
func GetRequestScope(req *http.Request) *RequestScope {
	scope := req.Context().Value(requestScopeKey)
	if scope == nil {
		return nil
	}

	return scope.(*RequestScope)
}

// AddRequestScope adds a RequestScope to a request
func AddRequestScope(req *http.Request, scope *RequestScope) *http.Request {
	ctx := context.WithValue(req.Context(), requestScopeKey, scope)
	return req.WithContext(ctx)
}
