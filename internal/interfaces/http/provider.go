package http

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/shopspring/decimal"

	"moneta/internal/domain/aggregation"
)

// ProviderHandler exposes the aggregation operations over HTTP. All
// data operations are POST with an optional JSON body carrying query
// parameters, matching the sync clients' calling convention.
type ProviderHandler struct {
	service *aggregation.Service
}

func NewProviderHandler(service *aggregation.Service) *ProviderHandler {
	return &ProviderHandler{service: service}
}

// Request/Response DTOs

type ProviderQueryRequest struct {
	StartDate string `json:"startDate,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Ticker    string `json:"ticker,omitempty"`
}

type StatusResponse struct {
	Configured bool `json:"configured"`
}

type AccountResponse struct {
	ExternalID string          `json:"externalId"`
	Name       string          `json:"name"`
	Balance    decimal.Decimal `json:"balance"`
	Currency   string          `json:"currency"`
}

type RecordResponse struct {
	ExternalID string          `json:"externalId"`
	Date       string          `json:"date"`
	PayeeName  string          `json:"payeeName"`
	Amount     decimal.Decimal `json:"amount"`
	Kind       string          `json:"kind"`
	Booked     bool            `json:"booked"`
}

func toRecordResponses(records []aggregation.Record) []RecordResponse {
	out := make([]RecordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, RecordResponse{
			ExternalID: rec.ExternalID,
			Date:       rec.Date,
			PayeeName:  rec.PayeeName,
			Amount:     rec.Amount,
			Kind:       string(rec.Kind),
			Booked:     rec.Booked,
		})
	}
	return out
}

// decodeQuery reads the optional request body. An empty or absent body
// is a valid empty query.
func decodeQuery(r *http.Request) (aggregation.Query, error) {
	var req ProviderQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		return aggregation.Query{}, err
	}
	return aggregation.Query{
		StartDate: req.StartDate,
		Limit:     req.Limit,
		Ticker:    req.Ticker,
	}, nil
}

func badRequest(w http.ResponseWriter, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(errorEnvelope{Status: "error", Reason: "bad-request", Details: details})
}

// HandleProviders lists the registered provider ids.
func (h *ProviderHandler) HandleProviders(w http.ResponseWriter, r *http.Request) {
	respondOK(w, h.service.Providers())
}

func (h *ProviderHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.Status(r.Context(), r.PathValue("provider"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, StatusResponse{Configured: status.Configured})
}

func (h *ProviderHandler) HandleMetadata(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.Metadata(r.Context(), r.PathValue("provider"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, data)
}

func (h *ProviderHandler) HandleCash(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.Cash(r.Context(), r.PathValue("provider"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, data)
}

func (h *ProviderHandler) HandleAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.Accounts(r.Context(), r.PathValue("provider"))
	if err != nil {
		respondError(w, err)
		return
	}

	response := make([]AccountResponse, 0, len(accounts))
	for _, acc := range accounts {
		response = append(response, AccountResponse{
			ExternalID: acc.ExternalID,
			Name:       acc.Name,
			Balance:    acc.Balance,
			Currency:   acc.Currency,
		})
	}
	respondOK(w, response)
}

func (h *ProviderHandler) HandlePortfolio(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.Portfolio(r.Context(), r.PathValue("provider"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, toRecordResponses(records))
}

func (h *ProviderHandler) HandleTransactions(w http.ResponseWriter, r *http.Request) {
	q, err := decodeQuery(r)
	if err != nil {
		badRequest(w, "invalid request body")
		return
	}

	records, err := h.service.Transactions(r.Context(), r.PathValue("provider"), q)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, toRecordResponses(records))
}

func (h *ProviderHandler) HandleOrders(w http.ResponseWriter, r *http.Request) {
	q, err := decodeQuery(r)
	if err != nil {
		badRequest(w, "invalid request body")
		return
	}

	records, err := h.service.Orders(r.Context(), r.PathValue("provider"), q)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, toRecordResponses(records))
}

func (h *ProviderHandler) HandleDividends(w http.ResponseWriter, r *http.Request) {
	q, err := decodeQuery(r)
	if err != nil {
		badRequest(w, "invalid request body")
		return
	}

	records, err := h.service.Dividends(r.Context(), r.PathValue("provider"), q)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, toRecordResponses(records))
}
