package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/justinas/alice"

	middlewareapi "github.com/lsst-sqre/ltd-proxy/pkg/apis/middleware"
	"github.com/lsst-sqre/ltd-proxy/pkg/apis/options"
	sessionsapi "github.com/lsst-sqre/ltd-proxy/pkg/apis/sessions"
	"github.com/lsst-sqre/ltd-proxy/pkg/authorization"
	pkgcookies "github.com/lsst-sqre/ltd-proxy/pkg/cookies"
	"github.com/lsst-sqre/ltd-proxy/pkg/encryption"
	"github.com/lsst-sqre/ltd-proxy/pkg/logger"
	"github.com/lsst-sqre/ltd-proxy/pkg/middleware"
	"github.com/lsst-sqre/ltd-proxy/pkg/providers"
	"github.com/lsst-sqre/ltd-proxy/pkg/rewrites"
	"github.com/lsst-sqre/ltd-proxy/pkg/s3"
	"github.com/lsst-sqre/ltd-proxy/pkg/sessions"
	"github.com/lsst-sqre/ltd-proxy/pkg/urlmap"
)

const (
	loginPath     = "/login"
	callbackPath  = "/auth"
	logoutPath    = "/logout"
	loggedOutPath = "/logged-out"
	healthzPath   = "/__healthz"

	// dirRedirectHeader marks a placeholder object standing in for a
	// directory; the client is redirected to the trailing slash URL.
	dirRedirectHeader = "x-amz-meta-dir-redirect"

	csrfExpire = 15 * time.Minute
)

// contentTypeOverrides repairs Content-Type headers for object stores
// that serve everything as binary. Extensions not listed keep the
// upstream-supplied type.
var contentTypeOverrides = map[string]string{
	".html": "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
	".pdf":  "application/pdf",
	".png":  "image/png",
}

// LTDProxy is the authenticating documentation proxy. It authorizes each
// request against the access policy and streams the matching object from
// the bucket, or from a rewrite origin.
type LTDProxy struct {
	CookieOptions *options.Cookie

	pathPrefix     string
	bucketPrefix   string
	callbackURL    *url.URL
	healthcheckKey string

	provider     *providers.GitHubProvider
	policy       *authorization.Policy
	rewrites     *rewrites.Engine
	bucket       *s3.Bucket
	sessionStore sessionsapi.SessionStore

	serveMux http.Handler
}

// NewLTDProxy creates a new LTDProxy from the options given. The policy
// and rewrite files are loaded and validated here, before the server
// starts listening.
func NewLTDProxy(opts *options.Options) (*LTDProxy, error) {
	// One pooling client shared by the provider, the bucket and the
	// rewrite origins. Per request deadlines come from the request
	// context.
	client := &http.Client{}

	callbackURL, err := url.Parse(opts.CallbackURL)
	if err != nil {
		return nil, fmt.Errorf("could not parse callback-url: %w", err)
	}

	policy, err := authorization.LoadPolicy(opts.AuthPolicyFile)
	if err != nil {
		return nil, err
	}

	var rewriteEngine *rewrites.Engine
	if opts.RewriteRulesFile != "" {
		rewriteEngine, err = rewrites.LoadEngine(opts.RewriteRulesFile, client)
		if err != nil {
			return nil, err
		}
	}

	bucket, err := s3.NewBucket(s3.Config{
		Bucket:          opts.S3Bucket,
		Region:          opts.AWSRegion,
		AccessKeyID:     opts.AWSAccessKeyID,
		SecretAccessKey: opts.AWSSecretAccessKey,
	}, client)
	if err != nil {
		return nil, err
	}

	sessionStore, err := sessions.NewSessionStore(&opts.Cookie)
	if err != nil {
		return nil, fmt.Errorf("error initialising session store: %w", err)
	}

	p := &LTDProxy{
		CookieOptions:  &opts.Cookie,
		pathPrefix:     strings.TrimSuffix(opts.PathPrefix, "/"),
		bucketPrefix:   opts.S3BucketPrefix,
		callbackURL:    callbackURL,
		healthcheckKey: opts.HealthcheckBucketKey,
		provider:       providers.NewGitHubProvider(opts.GitHubClientID, opts.GitHubClientSecret, client),
		policy:         policy,
		rewrites:       rewriteEngine,
		bucket:         bucket,
		sessionStore:   sessionStore,
	}
	p.buildServeMux()

	return p, nil
}

// buildServeMux wires the endpoint routes and the middleware chain.
func (p *LTDProxy) buildServeMux() {
	router := mux.NewRouter()
	sub := router
	if p.pathPrefix != "" {
		sub = router.PathPrefix(p.pathPrefix).Subrouter()
	}

	sub.Path(loginPath).HandlerFunc(p.Login)
	sub.Path(callbackPath).HandlerFunc(p.OAuthCallback)
	sub.Path(logoutPath).HandlerFunc(p.Logout)
	sub.Path(loggedOutPath).HandlerFunc(p.LoggedOut)
	sub.Path(healthzPath).HandlerFunc(p.Healthcheck)
	sub.PathPrefix("/").HandlerFunc(p.Proxy)

	chain := alice.New(middleware.NewScope("X-Request-Id"), LoggingHandler)
	p.serveMux = chain.Then(router)
}

func (p *LTDProxy) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	p.serveMux.ServeHTTP(rw, req)
}

// loadSession returns the session attached to the request, or nil when
// there is none or it fails validation. A bad cookie is the same as no
// cookie.
func (p *LTDProxy) loadSession(req *http.Request) *sessionsapi.SessionState {
	session, err := p.sessionStore.Load(req)
	if err != nil {
		return nil
	}
	return session
}

func (p *LTDProxy) csrfCookieName() string {
	return p.CookieOptions.Name + "_csrf"
}

// rootPath is where users land after login or logout when no referrer is
// known.
func (p *LTDProxy) rootPath() string {
	if p.pathPrefix == "" {
		return "/"
	}
	return p.pathPrefix + "/"
}

// Login redirects the user to GitHub's authorization endpoint. A
// same-origin ref query parameter is carried through the callback URL so
// the user returns to the page that sent them here.
func (p *LTDProxy) Login(rw http.ResponseWriter, req *http.Request) {
	redirectURI := *p.callbackURL
	if ref := req.URL.Query().Get("ref"); ref != "" && isValidRedirect(ref, req) {
		q := redirectURI.Query()
		q.Set("ref", ref)
		redirectURI.RawQuery = q.Encode()
	}

	nonce, err := encryption.Nonce()
	if err != nil {
		logger.Errorf("Error generating login nonce: %v", err)
		p.errorPage(rw, http.StatusInternalServerError, "Login failed")
		return
	}
	csrf := pkgcookies.MakeCookieFromOptions(req, p.csrfCookieName(), nonce, p.CookieOptions, csrfExpire, time.Now())
	http.SetCookie(rw, csrf)

	http.Redirect(rw, req, p.provider.GetLoginURL(redirectURI.String(), nonce), http.StatusFound)
}

// OAuthCallback handles GitHub's redirect back: it validates the state,
// exchanges the code for a token, snapshots the user's relevant
// memberships into the session and returns the user to where they came
// from.
func (p *LTDProxy) OAuthCallback(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	q := req.URL.Query()

	if errString := q.Get("error"); errString != "" {
		logger.PrintAuthf("", req, logger.AuthError, "Error from GitHub during login: %s", errString)
		p.errorPage(rw, http.StatusForbidden, errString)
		return
	}

	csrfCookie, err := req.Cookie(p.csrfCookieName())
	if err != nil || csrfCookie.Value == "" || q.Get("state") != csrfCookie.Value {
		logger.PrintAuthf("", req, logger.AuthFailure, "Invalid authentication state")
		p.errorPage(rw, http.StatusForbidden, "Invalid authentication state")
		return
	}
	http.SetCookie(rw, pkgcookies.MakeCookieFromOptions(req, p.csrfCookieName(), "", p.CookieOptions, time.Hour*-1, time.Now()))

	// The token exchange must present the same redirect_uri the login
	// redirect used, ref parameter included.
	redirectURI := *p.callbackURL
	ref := q.Get("ref")
	if ref != "" && isValidRedirect(ref, req) {
		ruq := redirectURI.Query()
		ruq.Set("ref", ref)
		redirectURI.RawQuery = ruq.Encode()
	} else {
		ref = ""
	}

	token, err := p.provider.Redeem(ctx, redirectURI.String(), q.Get("code"))
	if err != nil {
		logger.PrintAuthf("", req, logger.AuthError, "Error redeeming code during login: %v", err)
		p.errorPage(rw, http.StatusForbidden, "Login failed")
		return
	}

	user, err := p.provider.GetUser(ctx, token)
	if err != nil {
		// Not fatal, the username is only used for logging
		logger.Errorf("Error fetching GitHub user: %v", err)
	}

	memberships, err := p.provider.GetMemberships(ctx, token, p.policy.RelevantOrgs(), p.policy.RelevantTeams())
	if err != nil {
		logger.PrintAuthf(user, req, logger.AuthError, "Error fetching GitHub memberships: %v", err)
		p.errorPage(rw, http.StatusInternalServerError, "Could not fetch GitHub memberships")
		return
	}

	session := &sessionsapi.SessionState{
		AccessToken: token,
		User:        user,
		Memberships: memberships,
	}
	session.CreatedAtNow()
	if err := p.sessionStore.Save(rw, req, session); err != nil {
		logger.PrintAuthf(user, req, logger.AuthError, "Error saving session: %v", err)
		p.errorPage(rw, http.StatusInternalServerError, "Login failed")
		return
	}
	logger.PrintAuthf(user, req, logger.AuthSuccess, "Authenticated via GitHub")

	redirect := p.rootPath()
	if ref != "" {
		redirect = ref
	}
	http.Redirect(rw, req, redirect, http.StatusFound)
}

// Logout clears the session and sends the user to the logged-out page.
func (p *LTDProxy) Logout(rw http.ResponseWriter, req *http.Request) {
	if err := p.sessionStore.Clear(rw, req); err != nil {
		logger.Errorf("Error clearing session: %v", err)
		p.errorPage(rw, http.StatusInternalServerError, "Logout failed")
		return
	}
	http.Redirect(rw, req, p.pathPrefix+loggedOutPath, http.StatusFound)
}

// LoggedOut renders the logged-out landing page. Arriving here with a
// live session goes back through Logout first, so the page is only shown
// once the session is really gone.
func (p *LTDProxy) LoggedOut(rw http.ResponseWriter, req *http.Request) {
	session := p.loadSession(req)
	if session != nil && session.Memberships != nil {
		http.Redirect(rw, req, p.pathPrefix+logoutPath, http.StatusFound)
		return
	}

	rw.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(rw, "<h1>You're logged out.</h1>")
}

// Healthcheck reports liveness. When a healthcheck bucket key is
// configured it also proves the bucket is reachable by reading that key.
func (p *LTDProxy) Healthcheck(rw http.ResponseWriter, req *http.Request) {
	if p.healthcheckKey != "" {
		resp, err := p.bucket.StreamObject(req.Context(), p.healthcheckKey)
		if err != nil {
			logger.Errorf("Healthcheck bucket read failed: %v", err)
			http.Error(rw, "bucket read failed", http.StatusInternalServerError)
			return
		}
		defer resp.Body.Close()
		// Drain so the connection can be reused
		io.Copy(io.Discard, resp.Body)

		if resp.StatusCode != http.StatusOK {
			logger.Errorf("Healthcheck bucket read returned %d", resp.StatusCode)
			http.Error(rw, "bucket read failed", http.StatusInternalServerError)
			return
		}
	}

	rw.WriteHeader(http.StatusOK)
	fmt.Fprint(rw, "OK")
}

// Proxy is the catch-all handler serving documentation objects.
func (p *LTDProxy) Proxy(rw http.ResponseWriter, req *http.Request) {
	relPath := strings.TrimPrefix(req.URL.Path, p.pathPrefix)
	relPath = strings.TrimPrefix(relPath, "/")
	policyPath := "/" + relPath

	scope := middlewareapi.GetRequestScope(req)
	session := p.loadSession(req)
	if scope != nil {
		scope.Session = session
	}

	switch p.policy.Decide(policyPath, session) {
	case authorization.Unauthenticated:
		p.redirectToLogin(rw, req)
		return
	case authorization.Unauthorized:
		logger.PrintAuthf(session.User, req, logger.AuthFailure, "Not authorized for %s", policyPath)
		http.Error(rw, "Not authorized", http.StatusForbidden)
		return
	}

	if p.rewrites != nil {
		resp, err := p.rewrites.BuildResponse(req, policyPath)
		if err != nil {
			logger.Errorf("Error fetching rewrite origin for %s: %v", policyPath, err)
			http.Error(rw, "Error fetching document", http.StatusBadGateway)
			return
		}
		if resp != nil {
			defer resp.Body.Close()
			if scope != nil {
				scope.Upstream = resp.Request.URL.String()
			}
			for _, h := range []string{"Content-Type", "Content-Length"} {
				if v := resp.Header.Get(h); v != "" {
					rw.Header().Set(h, v)
				}
			}
			rw.WriteHeader(resp.StatusCode)
			io.Copy(rw, resp.Body)
			return
		}
	}

	key := p.bucketKey(relPath)
	if scope != nil {
		scope.Upstream = key
	}

	resp, err := p.bucket.StreamObject(req.Context(), key)
	if err != nil {
		logger.Errorf("Error fetching bucket key %s: %v", key, err)
		http.Error(rw, "Error fetching document", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		// Extensionless paths without a trailing slash are usually
		// directory URLs typed by hand. Retry client side as a directory.
		if !strings.HasSuffix(relPath, "/") && path.Ext(relPath) == "" {
			http.Redirect(rw, req, req.URL.Path+"/", http.StatusFound)
			return
		}
		http.Error(rw, "Not found", http.StatusNotFound)
		return
	}

	if resp.Header.Get(dirRedirectHeader) != "" && !strings.HasSuffix(relPath, "/") {
		http.Redirect(rw, req, req.URL.Path+"/", http.StatusFound)
		return
	}

	for _, h := range []string{"Content-Type", "Content-Length", "Etag"} {
		if v := resp.Header.Get(h); v != "" {
			rw.Header().Set(h, v)
		}
	}
	if ct, ok := contentTypeOverrides[strings.ToLower(path.Ext(key))]; ok {
		rw.Header().Set("Content-Type", ct)
	}
	rw.WriteHeader(resp.StatusCode)
	io.Copy(rw, resp.Body)
}

// bucketKey maps the request path relative to the mount prefix to the
// bucket key serving it.
func (p *LTDProxy) bucketKey(relPath string) string {
	if relPath == "" {
		// The site root serves the bucket's top level index page
		return strings.TrimPrefix(path.Join(p.bucketPrefix, "index.html"), "/")
	}
	return urlmap.MapBucketPath(p.bucketPrefix, relPath)
}

// redirectToLogin sends an unauthenticated user to the login endpoint
// with the current URL as the ref so they come back here afterwards.
func (p *LTDProxy) redirectToLogin(rw http.ResponseWriter, req *http.Request) {
	ref := req.URL.RequestURI()
	loginURL := p.pathPrefix + loginPath + "?" + url.Values{"ref": {ref}}.Encode()
	http.Redirect(rw, req, loginURL, http.StatusFound)
}

// errorPage renders a minimal inline error page.
func (p *LTDProxy) errorPage(rw http.ResponseWriter, code int, message string) {
	rw.Header().Set("Content-Type", "text/html; charset=utf-8")
	rw.WriteHeader(code)
	fmt.Fprintf(rw, "<h1>%s</h1>", message)
}

// isValidRedirect checks whether the redirect URL is relative, or
// absolute on the same host as the request. Anything else is an open
// redirect and is ignored.
func isValidRedirect(redirect string, req *http.Request) bool {
	switch {
	case strings.HasPrefix(redirect, "/") && !strings.HasPrefix(redirect, "//") && !strings.HasPrefix(redirect, "/\\"):
		return true
	case strings.HasPrefix(redirect, "http://") || strings.HasPrefix(redirect, "https://"):
		redirectURL, err := url.Parse(redirect)
		if err != nil {
			return false
		}
		return redirectURL.Host == pkgcookies.GetRequestHost(req)
	default:
		return false
	}
}
