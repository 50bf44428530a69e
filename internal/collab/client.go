// Package collab talks to the external payments provider and CRM relay.
package collab

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"venue-booking-backend/config"
)

// ErrUpstream marks failures reported by or while reaching a collaborator.
var ErrUpstream = errors.New("upstream request failed")

// ErrNotConfigured is returned when a collaborator has no URL.
var ErrNotConfigured = errors.New("collaborator not configured")

// client is the shared JSON-over-HTTP plumbing for both collaborators.
type client struct {
	baseURL string
	headers map[string]string
	http    *http.Client
}

func newClient(cfg config.UpstreamConfig, log *zap.SugaredLogger) *client {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			log.Warnw("invalid proxy url, connecting directly", "proxy", cfg.HTTPProxy, "error", err)
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}
	return &client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		headers: cfg.Headers,
		http: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
	}
}

// postJSON sends body to path and decodes the response into out when out is non-nil.
func (c *client) postJSON(ctx context.Context, path string, body, out any) error {
	if c.baseURL == "" {
		return ErrNotConfigured
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "failed to marshal request payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "POST %s", path), ErrUpstream)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Mark(errors.Wrap(err, "failed to read response body"), ErrUpstream)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Mark(errors.Newf("POST %s: status %d: %s", path, resp.StatusCode, truncate(respBody, 200)), ErrUpstream)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return errors.Mark(errors.Wrap(err, "failed to unmarshal response"), ErrUpstream)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
