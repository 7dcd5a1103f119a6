package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type fakeSecretStore struct {
	values map[string]string
}

func newFakeSecretStore() *fakeSecretStore {
	return &fakeSecretStore{values: make(map[string]string)}
}

func (s *fakeSecretStore) Get(ctx context.Context, name string) (string, error) {
	return s.values[name], nil
}

func (s *fakeSecretStore) Set(ctx context.Context, name, value string) error {
	s.values[name] = value
	return nil
}

func (s *fakeSecretStore) Clear(ctx context.Context, name string) error {
	delete(s.values, name)
	return nil
}

func newSecretMux(store *fakeSecretStore) *http.ServeMux {
	h := NewSecretHandler(store)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/secret", h.HandleSetSecret)
	mux.HandleFunc("GET /api/secret/{name}", h.HandleGetSecret)
	return mux
}

func TestSecretRoundTrip(t *testing.T) {
	store := newFakeSecretStore()
	mux := newSecretMux(store)

	req := httptest.NewRequest(http.MethodPost, "/api/secret",
		strings.NewReader(`{"name":"trading212_apiKey","value":"key-123"}`))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("set: status code = %d, want 200; body %s", rr.Code, rr.Body.String())
	}
	if store.values["trading212_apiKey"] != "key-123" {
		t.Fatalf("stored value = %q", store.values["trading212_apiKey"])
	}

	req = httptest.NewRequest(http.MethodGet, "/api/secret/trading212_apiKey", nil)
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	var body struct {
		Status string               `json:"status"`
		Data   SecretStatusResponse `json:"data"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !body.Data.Configured {
		t.Error("Configured = false after storing a value")
	}

	// The value itself must never be echoed back.
	if strings.Contains(rr.Body.String(), "key-123") {
		t.Error("response leaked the secret value")
	}
}

func TestSecretGet_NotConfigured(t *testing.T) {
	mux := newSecretMux(newFakeSecretStore())

	req := httptest.NewRequest(http.MethodGet, "/api/secret/trading212_apiKey", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	var body struct {
		Status string               `json:"status"`
		Data   SecretStatusResponse `json:"data"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body.Data.Configured {
		t.Error("Configured = true for an unset secret")
	}
}

func TestSecretSet_NullClears(t *testing.T) {
	store := newFakeSecretStore()
	store.values["trading212_apiKey"] = "key-123"
	mux := newSecretMux(store)

	req := httptest.NewRequest(http.MethodPost, "/api/secret",
		strings.NewReader(`{"name":"trading212_apiKey","value":null}`))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status code = %d, want 200", rr.Code)
	}
	if _, ok := store.values["trading212_apiKey"]; ok {
		t.Error("secret still present after a null write")
	}
}

func TestSecretSet_MissingName(t *testing.T) {
	mux := newSecretMux(newFakeSecretStore())

	req := httptest.NewRequest(http.MethodPost, "/api/secret", strings.NewReader(`{"value":"x"}`))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status code = %d, want 400", rr.Code)
	}
}
