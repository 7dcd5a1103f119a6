package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

type testPage struct {
	Items        []string `json:"items"`
	NextPagePath string   `json:"nextPagePath"`
}

func parseTestPage(body []byte) ([]string, string, error) {
	var p testPage
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, "", err
	}
	return p.Items, p.NextPagePath, nil
}

func TestWalk_FollowsCursorsUntilExhausted(t *testing.T) {
	var requests []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.String())

		cursor := r.URL.Query().Get("cursor")
		switch cursor {
		case "":
			json.NewEncoder(w).Encode(testPage{Items: []string{"a", "b"}, NextPagePath: "?cursor=p2&limit=50"})
		case "p2":
			json.NewEncoder(w).Encode(testPage{Items: []string{"c"}, NextPagePath: "?cursor=p3&limit=50"})
		case "p3":
			json.NewEncoder(w).Encode(testPage{Items: []string{"d", "e"}})
		default:
			t.Errorf("unexpected cursor %q", cursor)
		}
	}))
	defer srv.Close()

	w := &Walker{BaseURL: srv.URL, Style: QueryMerge}
	items, err := Walk(context.Background(), w, srv.URL+"/history?limit=50", nil, parseTestPage)
	if err != nil {
		t.Fatalf("Walk() failed: %v", err)
	}

	if len(requests) != 3 {
		t.Errorf("issued %d requests, want 3", len(requests))
	}

	want := []string{"a", "b", "c", "d", "e"}
	if len(items) != len(want) {
		t.Fatalf("Walk() returned %d items, want %d", len(items), len(want))
	}
	for i, item := range want {
		if items[i] != item {
			t.Errorf("items[%d] = %q, want %q (order must be preserved across pages)", i, items[i], item)
		}
	}
}

func TestWalk_SendsHeadersOnEveryPage(t *testing.T) {
	pages := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "test-key" {
			t.Errorf("page %d: Authorization = %q, want %q", pages, got, "test-key")
		}
		pages++
		if pages == 1 {
			json.NewEncoder(w).Encode(testPage{Items: []string{"x"}, NextPagePath: "?cursor=next"})
			return
		}
		json.NewEncoder(w).Encode(testPage{Items: []string{"y"}})
	}))
	defer srv.Close()

	w := &Walker{BaseURL: srv.URL, Style: QueryMerge}
	headers := map[string]string{"Authorization": "test-key"}
	if _, err := Walk(context.Background(), w, srv.URL+"/list", headers, parseTestPage); err != nil {
		t.Fatalf("Walk() failed: %v", err)
	}
	if pages != 2 {
		t.Errorf("issued %d requests, want 2", pages)
	}
}

func TestWalk_PageLimitExceeded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Always points at another page.
		json.NewEncoder(w).Encode(testPage{Items: []string{"x"}, NextPagePath: "?cursor=again"})
	}))
	defer srv.Close()

	w := &Walker{BaseURL: srv.URL, Style: QueryMerge, MaxPages: 5}
	items, err := Walk(context.Background(), w, srv.URL+"/list", nil, parseTestPage)
	if !errors.Is(err, ErrPageLimit) {
		t.Fatalf("Walk() error = %v, want ErrPageLimit", err)
	}
	if items != nil {
		t.Errorf("Walk() returned %d items on failure, want none", len(items))
	}
}

func TestWalk_MidWalkFailureDiscardsAccumulated(t *testing.T) {
	page := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page++
		if page == 1 {
			json.NewEncoder(w).Encode(testPage{Items: []string{"a", "b"}, NextPagePath: "?cursor=p2"})
			return
		}
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"message":"rate limited"}`)
	}))
	defer srv.Close()

	w := &Walker{BaseURL: srv.URL, Style: QueryMerge}
	items, err := Walk(context.Background(), w, srv.URL+"/list", nil, parseTestPage)
	if items != nil {
		t.Errorf("Walk() returned partial items on failure, want none")
	}

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("Walk() error = %v, want *StatusError", err)
	}
	if statusErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("StatusCode = %d, want %d", statusErr.StatusCode, http.StatusTooManyRequests)
	}
	if statusErr.Message != "rate limited" {
		t.Errorf("Message = %q, want provider message %q", statusErr.Message, "rate limited")
	}
}

func TestNextURL(t *testing.T) {
	tests := []struct {
		name     string
		style    CursorStyle
		baseURL  string
		startURL string
		cursor   string
		want     string
	}{
		{
			name:     "query merge replaces query string",
			style:    QueryMerge,
			baseURL:  "https://live.trading212.com/api/v0",
			startURL: "https://live.trading212.com/api/v0/history/transactions?limit=50",
			cursor:   "?limit=50&cursor=abc",
			want:     "https://live.trading212.com/api/v0/history/transactions?limit=50&cursor=abc",
		},
		{
			name:     "query merge without leading question mark",
			style:    QueryMerge,
			baseURL:  "https://live.trading212.com/api/v0",
			startURL: "https://live.trading212.com/api/v0/history/transactions?limit=20",
			cursor:   "cursor=xyz&limit=20",
			want:     "https://live.trading212.com/api/v0/history/transactions?cursor=xyz&limit=20",
		},
		{
			name:     "full path strips duplicated version prefix",
			style:    FullPath,
			baseURL:  "https://live.trading212.com/api/v0",
			startURL: "https://live.trading212.com/api/v0/history/dividends?limit=50",
			cursor:   "/api/v0/history/dividends?paidOn=2024-01-15&limit=50",
			want:     "https://live.trading212.com/api/v0/history/dividends?paidOn=2024-01-15&limit=50",
		},
		{
			name:     "full path without duplicated prefix",
			style:    FullPath,
			baseURL:  "https://live.trading212.com/api/v0",
			startURL: "https://live.trading212.com/api/v0/equity/history/orders",
			cursor:   "/equity/history/orders?cursor=42",
			want:     "https://live.trading212.com/api/v0/equity/history/orders?cursor=42",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &Walker{BaseURL: tt.baseURL, Style: tt.style}
			got, err := w.nextURL(tt.startURL, tt.cursor)
			if err != nil {
				t.Fatalf("nextURL() failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("nextURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUpstreamMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"message field", `{"message":"Bad API key"}`, "Bad API key"},
		{"error field", `{"error":"forbidden"}`, "forbidden"},
		{"reason field", `{"reason":"expired"}`, "expired"},
		{"plain text body", "service unavailable", "service unavailable"},
		{"empty body falls back to status text", "", "Bad Gateway"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UpstreamMessage([]byte(tt.body), http.StatusBadGateway); got != tt.want {
				t.Errorf("UpstreamMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}
