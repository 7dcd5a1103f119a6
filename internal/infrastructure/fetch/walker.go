// Package fetch implements the cursor-following page traversal shared
// by provider clients. A walk issues requests sequentially, since a
// cursor is unknown until the prior page is read, and concatenates
// every page's items in first-seen order. Providers disagree on what a
// cursor is: some return a bare query fragment to merge into the
// original URL, others a full request path that may repeat the API
// version prefix. Both shapes are supported.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// DefaultMaxPages bounds a single walk. Upstream contracts terminate by
// omitting the next cursor; the cap only guards against a provider bug
// that keeps returning one.
const DefaultMaxPages = 500

// ErrPageLimit is returned when a walk exceeds its page cap.
var ErrPageLimit = errors.New("page limit exceeded")

// ErrDecode marks a 2xx response whose body did not match the
// provider's documented shape.
var ErrDecode = errors.New("malformed upstream response")

// CursorStyle selects how a next-page cursor is applied to build the
// following request URL.
type CursorStyle int

const (
	// QueryMerge treats the cursor as a query fragment that replaces
	// the query string of the original URL.
	QueryMerge CursorStyle = iota
	// FullPath treats the cursor as a complete request path appended
	// to the provider host, stripping the API version prefix when the
	// cursor repeats it.
	FullPath
)

// StatusError reports a non-2xx upstream response. Message carries the
// provider's own error message when the body contained one.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Message)
}

// Walker holds the per-provider traversal configuration.
type Walker struct {
	HTTPClient *http.Client
	// BaseURL is the provider endpoint root including any API version
	// prefix, e.g. "https://live.trading212.com/api/v0".
	BaseURL  string
	Style    CursorStyle
	MaxPages int
}

// Walk fetches pages starting at startURL until a page yields no next
// cursor. parse extracts the page's items and the raw cursor (empty
// string when the response omits one). headers are sent verbatim with
// every request. A failure on any page discards everything accumulated
// so far: a partial history would mislead reconciliation downstream.
func Walk[T any](ctx context.Context, w *Walker, startURL string, headers map[string]string, parse func(body []byte) ([]T, string, error)) ([]T, error) {
	maxPages := w.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	var all []T
	pageURL := startURL
	for page := 0; ; page++ {
		if page >= maxPages {
			return nil, fmt.Errorf("%w after %d pages starting at %s", ErrPageLimit, maxPages, startURL)
		}

		body, err := w.get(ctx, pageURL, headers)
		if err != nil {
			return nil, err
		}

		items, cursor, err := parse(body)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)

		if cursor == "" {
			return all, nil
		}

		pageURL, err = w.nextURL(startURL, cursor)
		if err != nil {
			return nil, err
		}
	}
}

// get issues one GET and returns the body, converting non-2xx statuses
// into a StatusError carrying the provider's message when present.
func (w *Walker) get(ctx context.Context, rawURL string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	client := w.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Message:    UpstreamMessage(body, resp.StatusCode),
		}
	}

	return body, nil
}

// nextURL applies a raw cursor to produce the following request URL.
func (w *Walker) nextURL(startURL, cursor string) (string, error) {
	switch w.Style {
	case QueryMerge:
		u, err := url.Parse(startURL)
		if err != nil {
			return "", fmt.Errorf("failed to parse start url: %w", err)
		}
		u.RawQuery = strings.TrimPrefix(cursor, "?")
		return u.String(), nil

	case FullPath:
		base, err := url.Parse(w.BaseURL)
		if err != nil {
			return "", fmt.Errorf("failed to parse base url: %w", err)
		}
		path := cursor
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		// Upstream cursors sometimes repeat the version prefix the
		// base URL already carries.
		if base.Path != "" && base.Path != "/" {
			path = strings.TrimPrefix(path, strings.TrimSuffix(base.Path, "/"))
		}
		return strings.TrimSuffix(w.BaseURL, "/") + path, nil

	default:
		return "", fmt.Errorf("unknown cursor style %d", w.Style)
	}
}

// UpstreamMessage extracts a human-readable error message from an
// upstream error body. Providers use different field names; fall back
// to the HTTP status text when nothing usable is found.
func UpstreamMessage(body []byte, statusCode int) string {
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Reason  string `json:"reason"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		switch {
		case parsed.Message != "":
			return parsed.Message
		case parsed.Error != "":
			return parsed.Error
		case parsed.Reason != "":
			return parsed.Reason
		}
	}
	if s := strings.TrimSpace(string(body)); s != "" && len(s) <= 200 {
		return s
	}
	return http.StatusText(statusCode)
}
