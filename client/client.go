package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"slices"
)

// maxDrainSize caps how much of an abandoned response body is read
// before closing it, so the connection can be reused.
const maxDrainSize = 4 << 10 // 4KB

// Client wraps a std-lib *http.Client. Every Client owns its own
// *http.Client; nothing is shared with [http.DefaultClient].
type Client struct {
	c      *http.Client
	logger *slog.Logger
}

// Build creates a Client configured by the given options.
func Build(optFns ...Option) (*Client, error) {
	client := &Client{
		c:      &http.Client{},
		logger: slog.Default(),
	}

	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying client option: %w", err)
		}
	}

	if opts.client != nil {
		hc := *opts.client
		client.c = &hc
	}

	if opts.logger != nil {
		client.logger = opts.logger
	}

	if opts.timeout != nil {
		client.c.Timeout = *opts.timeout
	}

	if opts.noFollowRedirects {
		client.c.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	transport, err := opts.transport(client.logger)
	if err != nil {
		return nil, err
	}
	client.c.Transport = transport

	return client, nil
}

// Get sends a GET request for u carrying header. A 401 response is answered
// with creds until the server accepts them or [MaxAuthAttempts] requests
// have been sent, whichever comes first.
//
// Any response the server sends, including a final 401, is returned with a
// nil error; the caller owns its body. A non-nil error means no response was
// received.
func (c *Client) Get(ctx context.Context, u *url.URL, header http.Header, creds Credentials) (*http.Response, Challenge, error) {
	var challenge Challenge

	if u == nil {
		return nil, challenge, errors.New("url must not be nil")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, challenge, fmt.Errorf("instantiating request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = slices.Clone(v)
	}

	for {
		resp, err := c.c.Do(req)
		challenge.Attempts++
		if err != nil {
			return nil, challenge, fmt.Errorf("exec http do: %w", err)
		}

		if resp.StatusCode != http.StatusUnauthorized {
			return resp, challenge, nil
		}
		challenge.Required = true

		retry := authenticate(req, challenge.Attempts, creds)
		if retry == nil {
			c.logger.Debug("authentication rejected", "url", u.Redacted(), "attempts", challenge.Attempts)
			return resp, challenge, nil
		}

		c.logger.Debug("answering authentication challenge", "url", u.Redacted(), "attempt", challenge.Attempts)
		c.discard(resp)
		req = retry
	}
}

// Header returns a copy of h with Basic credentials attached. It is used
// to send credentials before the server asks for them.
func Header(h http.Header, creds Credentials) http.Header {
	out := make(http.Header, len(h)+1)
	maps.Copy(out, h)
	if !creds.IsZero() {
		out.Set("Authorization", creds.Basic())
	}
	return out
}

// discard drains a little of an unused body and closes it.
func (c *Client) discard(resp *http.Response) {
	if _, err := io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainSize)); err != nil {
		c.logger.Error("failed to discard unused body", "error", err)
	}
	if err := resp.Body.Close(); err != nil {
		c.logger.Error("failed to close response body", "error", err)
	}
}
