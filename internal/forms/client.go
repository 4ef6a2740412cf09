// internal/forms/client.go
//
// Client for the external form schema service.
//
// Context
// -------
// The schema service answers `GET <schema_url>?form_id=<canonical ref>`
// with the form title, its responder id, and the list of {title, entry_id}
// pairs.  Callers authenticate with a shared secret in the X-Api-Token
// header.
//
// The client is bounded: each attempt is capped by the configured timeout,
// and at most `retries` extra attempts are made with linear jittered backoff
// (go-retryablehttp).  It never panics and never returns a bare transport
// error: every failure, whether network, non-2xx, malformed body, or a body
// whose own status is not 200, is logged and wrapped in
// ErrMappingUnavailable.
package forms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/yanizio/splitlink/internal/logger"
	"github.com/yanizio/splitlink/internal/metrics"
)

// ErrMappingUnavailable marks a schema fetch that did not produce a usable
// answer.  It never escapes the forms and urlbuild packages.
var ErrMappingUnavailable = errors.New("form schema unavailable")

// TokenHeader carries the shared secret.
const TokenHeader = "X-Api-Token"

const maxSchemaBody = 1 << 20

// Fetcher retrieves a form schema by canonical reference.
type Fetcher interface {
	Fetch(ctx context.Context, formID string) (*Schema, error)
}

// ClientOptions configures NewClient.
type ClientOptions struct {
	BaseURL string
	Secret  string
	Timeout time.Duration
	Retries int
}

// SchemaClient is the HTTP Fetcher.
type SchemaClient struct {
	base   string
	secret string
	http   *retryablehttp.Client
	log    *zap.Logger
}

// NewClient builds a SchemaClient.
func NewClient(opts ClientOptions) *SchemaClient {
	rc := retryablehttp.NewClient()
	rc.RetryMax = opts.Retries
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = time.Second
	rc.Backoff = retryablehttp.LinearJitterBackoff
	rc.HTTPClient.Timeout = opts.Timeout
	rc.Logger = logger.NewLeveled(nil, "schema")

	return &SchemaClient{
		base:   opts.BaseURL,
		secret: opts.Secret,
		http:   rc,
		log:    zap.L().Named("forms"),
	}
}

// Fetch asks the schema service for formID.
func (c *SchemaClient) Fetch(ctx context.Context, formID string) (*Schema, error) {
	s, err := c.fetch(ctx, formID)
	if err != nil {
		metrics.SchemaFetchTotal.WithLabelValues(metrics.FetchError).Inc()
		c.log.Warn("schema fetch failed", zap.String("form", formID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrMappingUnavailable, err)
	}
	metrics.SchemaFetchTotal.WithLabelValues(metrics.FetchOK).Inc()
	c.log.Debug("schema fetched", zap.String("form", formID), zap.Int("fields", len(s.Fields)))
	return s, nil
}

func (c *SchemaClient) fetch(ctx context.Context, formID string) (*Schema, error) {
	u, err := url.Parse(c.base)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("form_id", formID)
	u.RawQuery = q.Encode()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(TokenHeader, c.secret)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var s Schema
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxSchemaBody)).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if s.Status != http.StatusOK {
		return nil, fmt.Errorf("body status %d", s.Status)
	}
	return &s, nil
}
