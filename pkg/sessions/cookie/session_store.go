package cookie

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/lsst-sqre/ltd-proxy/pkg/apis/options"
	"github.com/lsst-sqre/ltd-proxy/pkg/apis/sessions"
	pkgcookies "github.com/lsst-sqre/ltd-proxy/pkg/cookies"
	"github.com/lsst-sqre/ltd-proxy/pkg/encryption"
)

const (
	// Cookies are limited to 4kb for all parts
	// including the cookie name, value, attributes; IE (http.cookie).String()
	// Most browsers' max is 4096 -- but we give ourselves some leeway
	maxCookieLength = 4000
)

// Ensure CookieSessionStore implements the interface
var _ sessions.SessionStore = &SessionStore{}

// SessionStore is an implementation of the sessions.SessionStore
// interface that stores sessions in client side cookies
type SessionStore struct {
	Cookie *options.Cookie
}

// NewCookieSessionStore initialises a new instance of the SessionStore from
// the configuration given
func NewCookieSessionStore(opts *options.Cookie) (sessions.SessionStore, error) {
	if opts.Secret == "" {
		return nil, errors.New("cookie session store requires a cookie secret")
	}
	return &SessionStore{Cookie: opts}, nil
}

// Save takes a sessions.SessionState and stores the information from it
// within a cookie set on the HTTP response writer
func (s *SessionStore) Save(rw http.ResponseWriter, req *http.Request, ss *sessions.SessionState) error {
	if ss.CreatedAt == nil || ss.CreatedAt.IsZero() {
		ss.CreatedAtNow()
	}
	value, err := s.cookieForSession(ss)
	if err != nil {
		return err
	}

	cookie := pkgcookies.MakeCookieFromOptions(req, s.Cookie.Name, value, s.Cookie, s.Cookie.Expire, *ss.CreatedAt)
	if len(cookie.String()) > maxCookieLength {
		// The filtered membership snapshot should always fit; refuse to set
		// a cookie browsers would silently drop.
		return fmt.Errorf("session cookie exceeds %d bytes", maxCookieLength)
	}
	http.SetCookie(rw, cookie)
	return nil
}

// Load reads sessions.SessionState information from a cookie within the
// HTTP request object
func (s *SessionStore) Load(req *http.Request) (*sessions.SessionState, error) {
	c, err := req.Cookie(s.Cookie.Name)
	if err != nil {
		// always http.ErrNoCookie
		return nil, err
	}

	val, _, ok := encryption.Validate(c, s.Cookie.Secret, s.Cookie.Expire)
	if !ok {
		return nil, errors.New("cookie signature not valid")
	}

	session, err := sessions.DecodeSessionState(val, true)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Clear clears any saved session information by writing a cookie to
// clear the session
func (s *SessionStore) Clear(rw http.ResponseWriter, req *http.Request) error {
	clearCookie := pkgcookies.MakeCookieFromOptions(req, s.Cookie.Name, "", s.Cookie, time.Hour*-1, time.Now())
	http.SetCookie(rw, clearCookie)
	return nil
}

// cookieForSession serializes a session state for storage in a cookie
func (s *SessionStore) cookieForSession(ss *sessions.SessionState) (string, error) {
	encoded, err := ss.EncodeSessionState(true)
	if err != nil {
		return "", err
	}
	return encryption.SignedValue(s.Cookie.Secret, s.Cookie.Name, encoded, *ss.CreatedAt)
}
