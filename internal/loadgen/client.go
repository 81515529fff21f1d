package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ErrStatus is returned for unexpected HTTP status codes.
var ErrStatus = errors.New("unexpected status")

type outcome int

const (
	outcomeFailed outcome = iota
	outcomeAccepted
	outcomeDuplicate
)

type client struct {
	http *http.Client
	base string
}

func newClient(base string, timeout time.Duration) *client {
	return &client{http: &http.Client{Timeout: timeout}, base: base}
}

func (c *client) do(ctx context.Context, method, path string, body any, out any) (int, error) {
	var rd io.Reader = http.NoBody
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal request: %w", err)
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if out != nil && resp.StatusCode < http.StatusMultipleChoices {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s: %w", path, err)
		}
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}
	return resp.StatusCode, nil
}

func (c *client) health(ctx context.Context) error {
	code, err := c.do(ctx, http.MethodGet, "/healthz", nil, nil)
	if err != nil {
		return err
	}
	if code != http.StatusOK {
		return fmt.Errorf("%w: healthz returned %d", ErrStatus, code)
	}
	return nil
}

func (c *client) submit(ctx context.Context, s *Snapshot) outcome {
	var ack AckResponse
	code, err := c.do(ctx, http.MethodPost, "/snapshots", s, &ack)
	switch {
	case err != nil:
		return outcomeFailed
	case code == http.StatusAccepted:
		return outcomeAccepted
	case code == http.StatusOK && ack.Duplicate:
		return outcomeDuplicate
	default:
		return outcomeFailed
	}
}

func (c *client) rank(ctx context.Context, salesID string) (Entry, error) {
	var e Entry
	code, err := c.do(ctx, http.MethodGet, "/rank/"+url.PathEscape(salesID), nil, &e)
	if err != nil {
		return Entry{}, err
	}
	if code != http.StatusOK {
		return Entry{}, fmt.Errorf("%w: rank %s returned %d", ErrStatus, salesID, code)
	}
	return e, nil
}

func (c *client) leaderboard(ctx context.Context, n int) ([]Entry, error) {
	var entries []Entry
	code, err := c.do(ctx, http.MethodGet, "/leaderboard?limit="+strconv.Itoa(n), nil, &entries)
	if err != nil {
		return nil, err
	}
	if code != http.StatusOK {
		return nil, fmt.Errorf("%w: leaderboard returned %d", ErrStatus, code)
	}
	return entries, nil
}
