// Package s3 reads documentation objects from an S3 bucket using AWS
// Signature Version 4 authenticated GET requests.
package s3

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// sha256 of an empty string, the payload hash for bodyless GET requests.
const emptyPayloadHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

// Config holds the settings required to address and sign bucket requests.
type Config struct {
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string

	// Endpoint overrides the virtual hosted style bucket URL. Used in
	// tests to point at a local server.
	Endpoint string
}

// Bucket issues signed streaming GET requests against a single S3 bucket.
// It is safe for concurrent use.
type Bucket struct {
	endpoint string
	region   string
	creds    aws.CredentialsProvider
	signer   *v4.Signer
	client   *http.Client
}

// NewBucket creates a Bucket from the given configuration, sharing the
// provided HTTP client across requests.
func NewBucket(cfg Config, client *http.Client) (*Bucket, error) {
	if cfg.Bucket == "" && cfg.Endpoint == "" {
		return nil, errors.New("bucket name must be set")
	}
	if cfg.Region == "" {
		return nil, errors.New("bucket region must be set")
	}
	if client == nil {
		client = http.DefaultClient
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}

	return &Bucket{
		endpoint: endpoint,
		region:   cfg.Region,
		creds:    credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		signer:   v4.NewSigner(),
		client:   client,
	}, nil
}

// ObjectURL returns the full URL for a bucket key.
func (b *Bucket) ObjectURL(key string) string {
	return b.endpoint + "/" + key
}

// buildRequest creates a GET request for the key and signs it.
func (b *Bucket) buildRequest(ctx context.Context, key string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.ObjectURL(key), nil)
	if err != nil {
		return nil, fmt.Errorf("building bucket request for %q: %w", key, err)
	}

	creds, err := b.creds.Retrieve(ctx)
	if err != nil {
		return nil, fmt.Errorf("retrieving bucket credentials: %w", err)
	}

	err = b.signer.SignHTTP(ctx, creds, req, emptyPayloadHash, "s3", b.region, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("signing bucket request for %q: %w", key, err)
	}
	return req, nil
}

// StreamObject issues a signed GET for the key and returns the response
// without inspecting its status code; callers decide how to treat non-200
// responses. The caller owns the response body and must close it on every
// path.
func (b *Bucket) StreamObject(ctx context.Context, key string) (*http.Response, error) {
	req, err := b.buildRequest(ctx, key)
	if err != nil {
		return nil, err
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching bucket key %q: %w", key, err)
	}
	return resp, nil
}
