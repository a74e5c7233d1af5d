package options

import (
	"time"

	"github.com/spf13/pflag"

	"github.com/lsst-sqre/ltd-proxy/pkg/logger"
)

// Cookie contains configuration options relating to the session cookie
type Cookie struct {
	Name     string        `cfg:"cookie_name" flag:"cookie-name"`
	Secret   string        `cfg:"cookie_secret" flag:"cookie-secret"`
	Domains  []string      `cfg:"cookie_domains" flag:"cookie-domain"`
	Path     string        `cfg:"cookie_path" flag:"cookie-path"`
	Expire   time.Duration `cfg:"cookie_expire" flag:"cookie-expire"`
	Secure   bool          `cfg:"cookie_secure" flag:"cookie-secure"`
	HTTPOnly bool          `cfg:"cookie_httponly" flag:"cookie-httponly"`
	SameSite string        `cfg:"cookie_samesite" flag:"cookie-samesite"`
}

// Logging contains all options required for configuring the logging
type Logging struct {
	Filename       string `cfg:"logging_filename" flag:"logging-filename"`
	MaxSize        int    `cfg:"logging_max_size" flag:"logging-max-size"`
	MaxBackups     int    `cfg:"logging_max_backups" flag:"logging-max-backups"`
	MaxAge         int    `cfg:"logging_max_age" flag:"logging-max-age"`
	Compress       bool   `cfg:"logging_compress" flag:"logging-compress"`
	StandardFormat string `cfg:"standard_logging_format" flag:"standard-logging-format"`
	RequestEnabled bool   `cfg:"request_logging" flag:"request-logging"`
	RequestFormat  string `cfg:"request_logging_format" flag:"request-logging-format"`
	AuthEnabled    bool   `cfg:"auth_logging" flag:"auth-logging"`
	AuthFormat     string `cfg:"auth_logging_format" flag:"auth-logging-format"`
}

// Options holds Configuration Options that can be set by Command Line Flag,
// Config File or Environment Variables
type Options struct {
	HTTPAddress  string `cfg:"http_address" flag:"http-address"`
	HTTPSAddress string `cfg:"https_address" flag:"https-address"`
	TLSCertFile  string `cfg:"tls_cert_file" flag:"tls-cert-file"`
	TLSKeyFile   string `cfg:"tls_key_file" flag:"tls-key-file"`
	PathPrefix   string `cfg:"path_prefix" flag:"path-prefix"`

	S3Bucket           string `cfg:"s3_bucket" flag:"s3-bucket"`
	S3BucketPrefix     string `cfg:"s3_bucket_prefix" flag:"s3-bucket-prefix"`
	AWSRegion          string `cfg:"aws_region" flag:"aws-region"`
	AWSAccessKeyID     string `cfg:"aws_access_key_id" flag:"aws-access-key-id"`
	AWSSecretAccessKey string `cfg:"aws_secret_access_key" flag:"aws-secret-access-key"`

	// HealthcheckBucketKey enables a real bucket read-through on the
	// health check endpoint when set.
	HealthcheckBucketKey string `cfg:"healthcheck_bucket_key" flag:"healthcheck-bucket-key"`

	GitHubClientID     string `cfg:"github_client_id" flag:"github-client-id"`
	GitHubClientSecret string `cfg:"github_client_secret" flag:"github-client-secret"`
	CallbackURL        string `cfg:"callback_url" flag:"callback-url"`

	AuthPolicyFile   string `cfg:"auth_policy_file" flag:"auth-policy-file"`
	RewriteRulesFile string `cfg:"rewrite_rules_file" flag:"rewrite-rules-file"`

	Cookie  Cookie  `cfg:",squash"`
	Logging Logging `cfg:",squash"`
}

// NewOptions constructs a new Options with defaults
func NewOptions() *Options {
	return &Options{
		HTTPAddress: "127.0.0.1:4180",
		PathPrefix:  "/",
		AWSRegion:   "us-east-1",
		Cookie: Cookie{
			Name:     "_ltd_proxy",
			Path:     "/",
			Expire:   time.Duration(168) * time.Hour,
			Secure:   true,
			HTTPOnly: true,
			SameSite: "",
		},
		Logging: Logging{
			MaxSize:        100,
			MaxBackups:     0,
			MaxAge:         7,
			StandardFormat: logger.DefaultStandardLoggingFormat,
			RequestEnabled: true,
			RequestFormat:  logger.DefaultRequestLoggingFormat,
			AuthEnabled:    true,
			AuthFormat:     logger.DefaultAuthLoggingFormat,
		},
	}
}

// NewFlagSet creates a new FlagSet with all of the flags required by Options
func NewFlagSet() *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("ltd-proxy", pflag.ExitOnError)

	flagSet.String("http-address", "127.0.0.1:4180", "[http://]<addr>:<port> or unix://<path> to listen on for HTTP clients")
	flagSet.String("https-address", ":443", "<addr>:<port> to listen on for HTTPS clients")
	flagSet.String("tls-cert-file", "", "path to certificate file")
	flagSet.String("tls-key-file", "", "path to private key file")
	flagSet.String("path-prefix", "/", "public path the proxy is mounted under")

	flagSet.String("s3-bucket", "", "name of the S3 bucket holding the documentation objects")
	flagSet.String("s3-bucket-prefix", "", "key prefix prepended to every mapped bucket key")
	flagSet.String("aws-region", "us-east-1", "AWS region of the S3 bucket")
	flagSet.String("aws-access-key-id", "", "AWS access key id used to sign bucket requests")
	flagSet.String("aws-secret-access-key", "", "AWS secret access key used to sign bucket requests")
	flagSet.String("healthcheck-bucket-key", "", "optional bucket key read through on the health check endpoint")

	flagSet.String("github-client-id", "", "GitHub OAuth Client ID")
	flagSet.String("github-client-secret", "", "GitHub OAuth Client Secret")
	flagSet.String("callback-url", "", "the OAuth callback URL, eg https://docs.example.com/auth")

	flagSet.String("auth-policy-file", "", "path to the YAML access policy file")
	flagSet.String("rewrite-rules-file", "", "optional path to the YAML rewrite rules file")

	flagSet.String("cookie-name", "_ltd_proxy", "the name of the session cookie")
	flagSet.String("cookie-secret", "", "the seed string for secure cookie signatures")
	flagSet.StringSlice("cookie-domain", []string{}, "optional cookie domains to force cookies to (eg: .example.com)")
	flagSet.String("cookie-path", "/", "an optional cookie path to force cookies to (eg: /docs)")
	flagSet.Duration("cookie-expire", time.Duration(168)*time.Hour, "expire timeframe for cookie")
	flagSet.Bool("cookie-secure", true, "set secure (HTTPS only) cookie flag")
	flagSet.Bool("cookie-httponly", true, "set HttpOnly cookie flag")
	flagSet.String("cookie-samesite", "", "set SameSite cookie attribute (ie: \"lax\", \"strict\", \"none\", or \"\")")

	flagSet.String("logging-filename", "", "file to log requests to, empty for stdout")
	flagSet.Int("logging-max-size", 100, "maximum size in megabytes of the log file before rotation")
	flagSet.Int("logging-max-backups", 0, "maximum number of old log files to retain; 0 to disable")
	flagSet.Int("logging-max-age", 7, "maximum number of days to retain old log files")
	flagSet.Bool("logging-compress", false, "should rotated log files be compressed using gzip")
	flagSet.String("standard-logging-format", logger.DefaultStandardLoggingFormat, "template for standard log lines")
	flagSet.Bool("request-logging", true, "log HTTP requests")
	flagSet.String("request-logging-format", logger.DefaultRequestLoggingFormat, "template for HTTP request log lines")
	flagSet.Bool("auth-logging", true, "log authentication attempts")
	flagSet.String("auth-logging-format", logger.DefaultAuthLoggingFormat, "template for authentication log lines")

	return flagSet
}
