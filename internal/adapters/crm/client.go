// Package crm is the client for the CRM REST backend that owns users,
// their aggregate KPI counters and their customer pipelines.
package crm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/okian/kpiboard/internal/domain/model"
	"github.com/okian/kpiboard/pkg/logger"
	"github.com/okian/kpiboard/pkg/metrics"
)

const (
	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 8 << 20
	maxErrorSnip   = 256

	opListUsers = "list_users"
	opPipelines = "pipelines"
)

// Client talks to the CRM REST backend. It is safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	token      func() string
	httpClient *http.Client
	logger     logger.Logger
}

// NewClient creates a client rooted at baseURL, e.g. "https://crm.example.com/api".
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}
	c := &Client{
		baseURL:    u,
		token:      func() string { return "" },
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListSalesPeople returns every user with the sales role and their counters.
func (c *Client) ListSalesPeople(ctx context.Context) ([]model.SalesPerson, error) {
	body, err := c.get(ctx, opListUsers, "users", url.Values{"role": {"sales"}})
	if err != nil {
		return nil, err
	}
	users, err := decodeList[User](body, c.skipRecord(ctx, opListUsers))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, opListUsers, err)
	}
	people := make([]model.SalesPerson, 0, len(users))
	for _, u := range users {
		if u.ID == "" {
			c.warn(ctx, "skipping sales user without id", logger.String("name", u.Name))
			continue
		}
		people = append(people, u.SalesPerson())
	}
	return people, nil
}

// ActivePipelines returns the active pipeline entries owned by one user.
func (c *Client) ActivePipelines(ctx context.Context, userID string) ([]model.PipelineEntry, error) {
	path := "users/" + url.PathEscape(userID) + "/pipelines"
	body, err := c.get(ctx, opPipelines, path, url.Values{"status": {"active"}})
	if err != nil {
		return nil, err
	}
	items, err := decodeList[Pipeline](body, c.skipRecord(ctx, opPipelines))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, opPipelines, err)
	}
	entries := make([]model.PipelineEntry, 0, len(items))
	for _, p := range items {
		entries = append(entries, p.Entry())
	}
	return entries, nil
}

func (c *Client) get(ctx context.Context, op, path string, query url.Values) ([]byte, error) {
	endpoint := c.baseURL.JoinPath(path)
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRequest, op, err)
	}
	req.Header.Set("Accept", "application/json")
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordCRMRequest(op, "error", time.Since(start).Seconds())
		return nil, fmt.Errorf("%w: %s: %w", ErrRequest, op, err)
	}
	defer func() { _ = resp.Body.Close() }()
	metrics.RecordCRMRequest(op, strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read body: %w", ErrRequest, op, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, op)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%w: %s status %d: %s", ErrUpstream, op, resp.StatusCode, snippet(body))
	}
	return body, nil
}

func (c *Client) warn(ctx context.Context, msg string, fields ...logger.Field) {
	if c.logger != nil {
		c.logger.Warn(ctx, msg, fields...)
	}
}

// skipRecord reports a list element that could not be decoded so the rest
// of the list still gets scored.
func (c *Client) skipRecord(ctx context.Context, op string) func(int, error) {
	return func(index int, err error) {
		metrics.RecordErrorByComponent("crm", "bad_record")
		c.warn(ctx, "skipping undecodable crm record",
			logger.String("operation", op), logger.Int("index", index), logger.Error(err))
	}
}

// snippet trims body to at most maxErrorSnip bytes without splitting a rune.
func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) <= maxErrorSnip {
		return s
	}
	n := maxErrorSnip
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
