package cookie

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lsst-sqre/ltd-proxy/pkg/apis/options"
	"github.com/lsst-sqre/ltd-proxy/pkg/apis/sessions"
)

func testCookieOptions() *options.Cookie {
	opts := options.NewOptions()
	opts.Cookie.Secret = "0123456789abcdef"
	opts.Cookie.Secure = false
	return &opts.Cookie
}

func testSession() *sessions.SessionState {
	ss := &sessions.SessionState{
		AccessToken: "gho_testtoken",
		User:        "someuser",
		Memberships: &sessions.Memberships{
			Orgs:  []string{"jsickcodes"},
			Teams: []sessions.TeamMembership{{Org: "jsickcodes", Team: "Red Team"}},
		},
	}
	ss.CreatedAtNow()
	return ss
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	store, err := NewCookieSessionStore(testCookieOptions())
	require.NoError(t, err)

	saved := testSession()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, store.Save(rec, req, saved))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	loaded, err := store.Load(req)
	require.NoError(t, err)

	assert.Equal(t, saved.AccessToken, loaded.AccessToken)
	assert.Equal(t, saved.User, loaded.User)
	assert.Equal(t, saved.Memberships, loaded.Memberships)
}

func TestLoadMissingCookie(t *testing.T) {
	store, err := NewCookieSessionStore(testCookieOptions())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err = store.Load(req)
	assert.ErrorIs(t, err, http.ErrNoCookie)
}

func TestLoadTamperedCookie(t *testing.T) {
	opts := testCookieOptions()
	store, err := NewCookieSessionStore(opts)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, store.Save(rec, req, testSession()))

	cookie := rec.Result().Cookies()[0]
	// Flip the signature part of the cookie value
	parts := strings.Split(cookie.Value, "|")
	require.Len(t, parts, 3)
	parts[2] = "dGFtcGVyZWQ="
	cookie.Value = strings.Join(parts, "|")

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	_, err = store.Load(req)
	assert.Error(t, err)
}

func TestLoadWrongSecret(t *testing.T) {
	opts := testCookieOptions()
	store, err := NewCookieSessionStore(opts)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, store.Save(rec, req, testSession()))

	otherOpts := testCookieOptions()
	otherOpts.Secret = "fedcba9876543210"
	otherStore, err := NewCookieSessionStore(otherOpts)
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(rec.Result().Cookies()[0])
	_, err = otherStore.Load(req)
	assert.Error(t, err)
}

func TestLoadExpiredCookie(t *testing.T) {
	opts := testCookieOptions()
	opts.Expire = time.Hour
	store, err := NewCookieSessionStore(opts)
	require.NoError(t, err)

	ss := testSession()
	created := time.Now().Add(-2 * time.Hour)
	ss.CreatedAt = &created

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, store.Save(rec, req, ss))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(rec.Result().Cookies()[0])
	_, err = store.Load(req)
	assert.Error(t, err)
}

func TestClearWritesExpiredCookie(t *testing.T) {
	store, err := NewCookieSessionStore(testCookieOptions())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, store.Clear(rec, req))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.True(t, cookies[0].Expires.Before(time.Now()))
}

func TestNewCookieSessionStoreRequiresSecret(t *testing.T) {
	opts := testCookieOptions()
	opts.Secret = ""
	_, err := NewCookieSessionStore(opts)
	assert.Error(t, err)
}
