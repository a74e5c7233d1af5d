package sessions

import (
	"github.com/lsst-sqre/ltd-proxy/pkg/apis/options"
	"github.com/lsst-sqre/ltd-proxy/pkg/apis/sessions"
	"github.com/lsst-sqre/ltd-proxy/pkg/sessions/cookie"
)

// NewSessionStore creates a SessionStore from the provided configuration.
// Sessions are stored client side in a signed cookie; there is no server
// side state.
func NewSessionStore(cookieOpts *options.Cookie) (sessions.SessionStore, error) {
	return cookie.NewCookieSessionStore(cookieOpts)
}
