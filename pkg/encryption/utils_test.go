package encryption

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndValidate(t *testing.T) {
	const seed = "0123456789abcdef"
	payload := []byte("some session payload")
	now := time.Now()

	value, err := SignedValue(seed, "_ltd_proxy", payload, now)
	require.NoError(t, err)

	cookie := &http.Cookie{Name: "_ltd_proxy", Value: value}
	got, ts, ok := Validate(cookie, seed, time.Hour)
	require.True(t, ok)
	assert.Equal(t, payload, got)
	assert.WithinDuration(t, now, ts, time.Second)
}

func TestValidateRejectsWrongSeed(t *testing.T) {
	value, err := SignedValue("0123456789abcdef", "_ltd_proxy", []byte("payload"), time.Now())
	require.NoError(t, err)

	cookie := &http.Cookie{Name: "_ltd_proxy", Value: value}
	_, _, ok := Validate(cookie, "another-seed", time.Hour)
	assert.False(t, ok)
}

func TestValidateRejectsWrongCookieName(t *testing.T) {
	value, err := SignedValue("0123456789abcdef", "_ltd_proxy", []byte("payload"), time.Now())
	require.NoError(t, err)

	// The cookie name is part of the signature
	cookie := &http.Cookie{Name: "_other", Value: value}
	_, _, ok := Validate(cookie, "0123456789abcdef", time.Hour)
	assert.False(t, ok)
}

func TestValidateRejectsExpired(t *testing.T) {
	value, err := SignedValue("0123456789abcdef", "_ltd_proxy", []byte("payload"), time.Now().Add(-2*time.Hour))
	require.NoError(t, err)

	cookie := &http.Cookie{Name: "_ltd_proxy", Value: value}
	_, _, ok := Validate(cookie, "0123456789abcdef", time.Hour)
	assert.False(t, ok)
}

func TestValidateRejectsMalformed(t *testing.T) {
	for _, value := range []string{"", "a|b", "a|b|c|d", "notbase64|123|sig"} {
		cookie := &http.Cookie{Name: "_ltd_proxy", Value: value}
		_, _, ok := Validate(cookie, "0123456789abcdef", time.Hour)
		assert.False(t, ok, "value %q should not validate", value)
	}
}

func TestNonce(t *testing.T) {
	a, err := Nonce()
	require.NoError(t, err)
	b, err := Nonce()
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
