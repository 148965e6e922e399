package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/lysyi3m/board-feeds/app/metrics"
)

var (
	ErrUnavailable = errors.New("upstream unavailable")
	ErrNotFound    = errors.New("upstream resource not found")
	ErrStatus      = errors.New("upstream returned unexpected status")
	ErrMalformed   = errors.New("upstream returned malformed payload")
)

const maxBodySize = 10 << 20

type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
}

func NewClient(baseURL string, httpClient *http.Client, userAgent string, timeout time.Duration) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		userAgent:  userAgent,
		timeout:    timeout,
	}
}

func (c *Client) FetchBoards(ctx context.Context) ([]Board, error) {
	var boards []Board
	if err := c.getJSON(ctx, "boards", "/boards", &boards); err != nil {
		return nil, err
	}
	return boards, nil
}

func (c *Client) FetchBoardThreads(ctx context.Context, slug string) (*BoardThreads, error) {
	path := "/boards/" + url.PathEscape(slug) + "?sortOrder=creationDate"

	var result BoardThreads
	if err := c.getJSON(ctx, "board_threads", path, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) FetchThreadReplies(ctx context.Context, slug string, threadID int) (*ThreadReplies, error) {
	path := "/boards/" + url.PathEscape(slug) + "/threads/" + strconv.Itoa(threadID)

	var result ThreadReplies
	if err := c.getJSON(ctx, "thread_replies", path, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, path string, out any) error {
	start := time.Now()
	err := c.doGetJSON(ctx, path, out)
	metrics.ObserveUpstream(endpoint, outcome(err), time.Since(start))

	if err != nil {
		slog.Warn("Upstream request failed", "endpoint", endpoint, "path", path, "error", err)
		return err
	}

	slog.Debug("Upstream request completed", "endpoint", endpoint, "path", path, "duration", time.Since(start))
	return nil
}

func (c *Client) doGetJSON(ctx context.Context, path string, out any) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %v", ErrUnavailable, err)
	}

	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %d %s", ErrStatus, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("%w: failed to read response body: %v", ErrUnavailable, err)
	}

	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return fmt.Errorf("%w: empty payload", ErrMalformed)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrStatus):
		return "bad_status"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	default:
		return "unavailable"
	}
}
