package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lsst-sqre/ltd-proxy/pkg/apis/options"
)

func validOptions(t *testing.T) *options.Options {
	t.Helper()

	policyPath := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(policyPath, []byte("default: []\n"), 0o600))

	o := options.NewOptions()
	o.Cookie.Secret = "0123456789abcdef"
	o.S3Bucket = "example-docs"
	o.AWSAccessKeyID = "AKIAEXAMPLE"
	o.AWSSecretAccessKey = "secret"
	o.GitHubClientID = "client-id"
	o.GitHubClientSecret = "client-secret"
	o.CallbackURL = "https://docs.example.com/auth"
	o.AuthPolicyFile = policyPath
	return o
}

func TestValidateAcceptsCompleteOptions(t *testing.T) {
	assert.NoError(t, Validate(validOptions(t)))
}

func TestValidateCollectsAllMissingSettings(t *testing.T) {
	o := options.NewOptions()
	err := Validate(o)
	require.Error(t, err)

	assert.Contains(t, err.Error(), "missing setting: cookie-secret")
	assert.Contains(t, err.Error(), "missing setting: s3-bucket")
	assert.Contains(t, err.Error(), "missing setting: github-client-id")
	assert.Contains(t, err.Error(), "missing setting: github-client-secret")
	assert.Contains(t, err.Error(), "missing setting: callback-url")
	assert.Contains(t, err.Error(), "missing setting: auth-policy-file")
}

func TestValidateRejectsRelativeCallbackURL(t *testing.T) {
	o := validOptions(t)
	o.CallbackURL = "/auth"

	err := Validate(o)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "callback-url is not an absolute URL")
}

func TestValidateRejectsBadSameSite(t *testing.T) {
	o := validOptions(t)
	o.Cookie.SameSite = "invalid"

	err := Validate(o)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cookie-samesite")
}

func TestValidateRejectsMissingPolicyFile(t *testing.T) {
	o := validOptions(t)
	o.AuthPolicyFile = filepath.Join(t.TempDir(), "does-not-exist.yaml")

	err := Validate(o)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth-policy-file")
}

func TestValidateRejectsBadPathPrefix(t *testing.T) {
	o := validOptions(t)
	o.PathPrefix = "docs"

	err := Validate(o)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path-prefix")
}
