package http

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"moneta/internal/domain/secret"
)

// SecretHandler manages provider credentials. Values are write-only:
// reads report presence, never the stored value.
type SecretHandler struct {
	secrets secret.Store
}

func NewSecretHandler(secrets secret.Store) *SecretHandler {
	return &SecretHandler{secrets: secrets}
}

type SetSecretRequest struct {
	Name  string  `json:"name"`
	Value *string `json:"value"`
}

type SecretStatusResponse struct {
	Name       string `json:"name"`
	Configured bool   `json:"configured"`
}

// HandleSetSecret stores a credential. A null value clears it.
func (h *SecretHandler) HandleSetSecret(w http.ResponseWriter, r *http.Request) {
	var req SetSecretRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.Name == "" {
		badRequest(w, "name is required")
		return
	}

	var err error
	if req.Value == nil {
		err = h.secrets.Clear(r.Context(), req.Name)
	} else {
		err = h.secrets.Set(r.Context(), req.Name, *req.Value)
	}
	if err != nil {
		logrus.WithError(err).Errorf("storing secret %s", req.Name)
		respondError(w, err)
		return
	}

	respondOK(w, nil)
}

// HandleGetSecret reports whether a credential is configured.
func (h *SecretHandler) HandleGetSecret(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		badRequest(w, "name is required")
		return
	}

	value, err := h.secrets.Get(r.Context(), name)
	if err != nil {
		logrus.WithError(err).Errorf("reading secret %s", name)
		respondError(w, err)
		return
	}

	respondOK(w, SecretStatusResponse{Name: name, Configured: value != ""})
}
