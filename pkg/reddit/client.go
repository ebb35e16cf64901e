// Package reddit is a small Reddit API client: listings, threads, replies,
// and a polling stream of new submissions and comments.
package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	DefaultBaseURL   = "https://oauth.reddit.com"
	TokenURL         = "https://www.reddit.com/api/v1/access_token"
	DefaultUserAgent = "OneWordMenace Bot 1.0"
)

// Credentials for the refresh-token grant. The refresh token itself is
// obtained once, out of band, through Reddit's authorization flow.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	UserAgent    string
}

// Client talks to the Reddit OAuth API.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the OAuth-authenticated HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL points the client at another API host.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client that refreshes its access token as needed. ctx is
// only used for token refreshes and must outlive the client.
func New(ctx context.Context, creds Credentials, opts ...Option) *Client {
	ua := creds.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	c := &Client{
		baseURL:   DefaultBaseURL,
		userAgent: ua,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = oauthClient(ctx, creds, ua)
	}
	return c
}

func oauthClient(ctx context.Context, creds Credentials, ua string) *http.Client {
	cfg := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
	// Reddit rejects token requests without a descriptive User-Agent.
	base := &http.Client{
		Timeout:   30 * time.Second,
		Transport: userAgentTransport{ua: ua, base: http.DefaultTransport},
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	hc := cfg.Client(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken})
	hc.Timeout = 60 * time.Second
	return hc
}

type userAgentTransport struct {
	ua   string
	base http.RoundTripper
}

func (t userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", t.ua)
	return t.base.RoundTrip(clone)
}

// do sends one API request. GET requests carry form as the query string;
// POST requests send it url-encoded. out may be nil.
func (c *Client) do(ctx context.Context, method, path string, form url.Values, out any) error {
	if form == nil {
		form = url.Values{}
	}
	form.Set("raw_json", "1")

	endpoint := c.baseURL + path
	var body io.Reader
	if method == http.MethodGet {
		endpoint += "?" + form.Encode()
	} else {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("build reddit request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("reddit %s %s request failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("read reddit response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return rateLimitFromResponse(resp, respBody)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Method:     method,
			Path:       path,
			Body:       snippet(respBody),
		}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode reddit %s: %w", path, err)
		}
	}
	return nil
}

// Me returns the name of the authenticated account.
func (c *Client) Me(ctx context.Context) (string, error) {
	var me struct {
		Name string `json:"name"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/me", nil, &me); err != nil {
		return "", err
	}
	if me.Name == "" {
		return "", errors.New("reddit /api/v1/me returned no account name")
	}
	return me.Name, nil
}
