// Package validation checks the configured options before the proxy
// starts serving. All problems are collected and reported together so a
// misconfiguration can be fixed in one pass.
package validation

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/lsst-sqre/ltd-proxy/pkg/apis/options"
)

// Validate checks that required options are set and consistent. It also
// applies the logging configuration as a side effect, so startup problems
// are reported with the configured logger.
func Validate(o *options.Options) error {
	msgs := validateCookie(o.Cookie)
	msgs = configureLogger(o.Logging, msgs)

	if o.S3Bucket == "" {
		msgs = append(msgs, "missing setting: s3-bucket")
	}
	if o.AWSRegion == "" {
		msgs = append(msgs, "missing setting: aws-region")
	}
	if o.AWSAccessKeyID == "" {
		msgs = append(msgs, "missing setting: aws-access-key-id")
	}
	if o.AWSSecretAccessKey == "" {
		msgs = append(msgs, "missing setting: aws-secret-access-key")
	}

	if o.GitHubClientID == "" {
		msgs = append(msgs, "missing setting: github-client-id")
	}
	if o.GitHubClientSecret == "" {
		msgs = append(msgs, "missing setting: github-client-secret")
	}

	if o.CallbackURL == "" {
		msgs = append(msgs, "missing setting: callback-url")
	} else {
		u, err := url.Parse(o.CallbackURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			msgs = append(msgs, fmt.Sprintf("callback-url is not an absolute URL: %q", o.CallbackURL))
		}
	}

	if o.AuthPolicyFile == "" {
		msgs = append(msgs, "missing setting: auth-policy-file")
	} else if _, err := os.Stat(o.AuthPolicyFile); err != nil {
		msgs = append(msgs, fmt.Sprintf("could not read auth-policy-file: %v", err))
	}

	if o.RewriteRulesFile != "" {
		if _, err := os.Stat(o.RewriteRulesFile); err != nil {
			msgs = append(msgs, fmt.Sprintf("could not read rewrite-rules-file: %v", err))
		}
	}

	if !strings.HasPrefix(o.PathPrefix, "/") {
		msgs = append(msgs, fmt.Sprintf("path-prefix must start with a /: %q", o.PathPrefix))
	}

	if len(msgs) != 0 {
		return fmt.Errorf("invalid configuration:\n  %s", strings.Join(msgs, "\n  "))
	}
	return nil
}

func validateCookie(o options.Cookie) []string {
	msgs := []string{}

	if o.Secret == "" {
		msgs = append(msgs, "missing setting: cookie-secret")
	}
	if o.Name == "" {
		msgs = append(msgs, "missing setting: cookie-name")
	}

	switch o.SameSite {
	case "", "none", "lax", "strict":
	default:
		msgs = append(msgs, fmt.Sprintf("cookie-samesite (%q) must be one of ['', 'lax', 'strict', 'none']", o.SameSite))
	}

	if o.Expire <= 0 {
		msgs = append(msgs, fmt.Sprintf("cookie-expire (%s) must be a positive duration", o.Expire))
	}

	return msgs
}
