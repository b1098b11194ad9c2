package e2etest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/justinas/nosurf"
	"github.com/myrjola/survey/internal/errors"
)

// Client talks to the JSON API. It keeps cookies between requests so that the server can tie its design and survey
// sessions to the client, and it sends the CSRF token on mutating requests.
type Client struct {
	client    *http.Client
	url       string
	csrfToken string
}

func NewClient(url string) (*Client, error) {
	jar, err := newUnsafeCookieJar()
	if err != nil {
		return nil, errors.Wrap(err, "create unsafe cookie jar")
	}
	return &Client{
		client:    &http.Client{Jar: jar},
		url:       url,
		csrfToken: "",
	}, nil
}

// WaitForReady calls the specified endpoint until it gets a HTTP 200 Success
// response or until the context is cancelled or the 1-second timeout is reached.
func (c *Client) WaitForReady(ctx context.Context, urlPath string) error {
	timeout := 1 * time.Second
	startTime := time.Now()
	var (
		err  error
		req  *http.Request
		resp *http.Response
	)
	for {
		if req, err = http.NewRequestWithContext(
			ctx,
			http.MethodGet,
			c.url+urlPath,
			nil,
		); err != nil {
			return errors.Wrap(err, "create request")
		}

		if resp, err = c.client.Do(req); err == nil {
			if resp.StatusCode == http.StatusOK {
				if err = resp.Body.Close(); err != nil {
					return errors.Wrap(err, "close response body")
				}
				return nil
			}
			if err = resp.Body.Close(); err != nil {
				return errors.Wrap(err, "close response body")
			}
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "context cancelled")
		default:
			if time.Since(startTime) >= timeout {
				return errors.New("timeout waiting for endpoint to be ready")
			}
			time.Sleep(100 * time.Millisecond) //nolint:mnd // 100ms
		}
	}
}

// Get fetches a URL and returns the response.
func (c *Client) Get(ctx context.Context, urlPath string) (*http.Response, error) {
	return c.Do(ctx, http.MethodGet, urlPath, nil)
}

// Do sends a request with body to urlPath and returns the response. A []byte body is sent as is, any other non-nil
// body is encoded as JSON. Requests other than GET carry the CSRF token.
func (c *Client) Do(ctx context.Context, method, urlPath string, body any) (*http.Response, error) {
	var (
		err    error
		reader io.Reader
	)
	switch b := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(b)
	default:
		var data []byte
		if data, err = json.Marshal(b); err != nil {
			return nil, errors.Wrap(err, "encode request body")
		}
		reader = bytes.NewReader(data)
	}

	var req *http.Request
	if req, err = c.newRequestWithContext(ctx, method, urlPath, reader); err != nil {
		return nil, errors.Wrap(err, "create request with context")
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		var token string
		if token, err = c.CSRFToken(ctx); err != nil {
			return nil, errors.Wrap(err, "fetch CSRF token")
		}
		req.Header.Set(nosurf.HeaderName, token)
	}

	var resp *http.Response
	if resp, err = c.client.Do(req); err != nil {
		return nil, errors.Wrap(err, "do request", slog.String("method", method), slog.String("path", urlPath))
	}
	return resp, nil
}

// DoJSON is [Client.Do] that decodes a non-empty response body into out when out is not nil. It returns the status
// code.
func (c *Client) DoJSON(ctx context.Context, method, urlPath string, body, out any) (int, error) {
	resp, err := c.Do(ctx, method, urlPath, body)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	var data []byte
	if data, err = io.ReadAll(resp.Body); err != nil {
		return resp.StatusCode, errors.Wrap(err, "read body bytes")
	}
	if out != nil && len(data) > 0 {
		if err = json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, errors.Wrap(err, "decode response body",
				slog.Int("status", resp.StatusCode), slog.String("body", string(data)))
		}
	}
	return resp.StatusCode, nil
}

// GetJSON decodes the response of GET urlPath into out and fails on any status other than 200 OK.
func (c *Client) GetJSON(ctx context.Context, urlPath string, out any) error {
	status, err := c.DoJSON(ctx, http.MethodGet, urlPath, nil, out)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return errors.New("unexpected status code", slog.Int("status", status), slog.String("path", urlPath))
	}
	return nil
}

// CSRFToken returns the token the server handed out together with the CSRF cookie, fetching it on first use.
func (c *Client) CSRFToken(ctx context.Context) (string, error) {
	if c.csrfToken != "" {
		return c.csrfToken, nil
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := c.GetJSON(ctx, "/api/csrf", &body); err != nil {
		return "", err
	}
	if body.Token == "" {
		return "", errors.New("empty CSRF token")
	}
	c.csrfToken = body.Token
	return c.csrfToken, nil
}

// newRequestWithContext creates a new HTTP request to the server that respects the given context.
func (c *Client) newRequestWithContext(
	ctx context.Context,
	method, urlPath string,
	body io.Reader,
) (*http.Request, error) {
	var (
		req *http.Request
		err error
	)
	if req, err = http.NewRequestWithContext(ctx, method, c.url+urlPath, body); err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	return req, nil
}
