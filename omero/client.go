// Package omero implements the annotation store adapter and image
// enumeration against the OMERO web JSON API.
package omero

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/muenster-imaging/tabblesync/config"
	"github.com/muenster-imaging/tabblesync/errors"
)

// Client talks to one OMERO web server. All requests pass through a rate
// limiter so a large sync run does not starve interactive webclient users.
type Client struct {
	base    *url.URL
	http    *http.Client
	limiter *rate.Limiter
	log     *zap.SugaredLogger

	csrfToken string

	// tag name -> annotation id, fetched once on first use; mirrors the
	// store-wide tag directory the reconciliation reuses tags from
	tagDirectory map[string]int64
}

// NewClient creates an OMERO web API client from configuration. Call Login
// before issuing requests.
func NewClient(cfg config.OMEROConfig, log *zap.SugaredLogger) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrConfiguration, "invalid omero.base_url %q: %v", cfg.BaseURL, err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cookie jar")
	}

	return &Client{
		base: base,
		http: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
			Jar:     jar,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		log:     log,
	}, nil
}

// Login establishes a session: fetch a CSRF token, then authenticate.
func (c *Client) Login(ctx context.Context, username, password string) error {
	var token struct {
		Data string `json:"data"`
	}
	if err := c.getJSON(ctx, "/api/v0/token/", nil, &token); err != nil {
		return errors.Wrap(errors.Mark(err, errors.ErrStoreUnavailable), "failed to fetch CSRF token")
	}
	c.csrfToken = token.Data

	form := url.Values{
		"username": {username},
		"password": {password},
		"server":   {"1"},
	}
	var login struct {
		Success bool `json:"success"`
	}
	if err := c.postForm(ctx, "/api/v0/login/", form, &login); err != nil {
		return errors.Wrap(err, "omero login failed")
	}
	if !login.Success {
		return errors.Wrap(errors.ErrStoreUnavailable, "omero rejected credentials")
	}

	c.log.Infow("Logged in to OMERO", "base_url", c.base.String(), "user", username)
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := c.resolve(path)
	if query != nil {
		u.RawQuery = query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	return c.do(req, out)
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve(path).String(),
		strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-CSRFToken", c.csrfToken)
	req.Header.Set("Referer", c.base.String())
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return errors.Wrap(err, "rate limiter interrupted")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(errors.Mark(err, errors.ErrStoreUnavailable), "omero request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return errors.Wrap(err, "failed to read omero response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Newf("omero returned %d for %s %s: %s",
			resp.StatusCode, req.Method, req.URL.Path, truncate(body, 200))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrapf(err, "failed to decode omero response for %s", req.URL.Path)
	}
	return nil
}

func (c *Client) resolve(path string) *url.URL {
	ref := &url.URL{Path: strings.TrimPrefix(path, "/")}
	base := *c.base
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	return base.ResolveReference(ref)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
