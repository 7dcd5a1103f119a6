package aggregation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/shopspring/decimal"

	"moneta/internal/domain/secret"
	"moneta/internal/infrastructure/simplefin"
)

// newSimpleFINFixture serves one canned account set and stores an
// access URL carrying basic-auth userinfo, the way the bridge hands
// them out.
func newSimpleFINFixture(t *testing.T, body string) (*SimpleFIN, *int) {
	t.Helper()

	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		user, pass, ok := r.BasicAuth()
		if !ok || user != "user-1" || pass != "pass-1" {
			t.Errorf("basic auth = %q/%q (%v), want user-1/pass-1", user, pass, ok)
		}
		if r.URL.Path != "/simplefin/accounts" {
			t.Errorf("path = %s, want /simplefin/accounts", r.URL.Path)
		}
		if got := r.URL.Query().Get("pending"); got != "0" {
			t.Errorf("pending = %q, want 0", got)
		}
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	accessURL := fmt.Sprintf("%s://user-1:pass-1@%s/simplefin", u.Scheme, u.Host)

	secrets := newMockSecretStore(map[string]string{secret.SimpleFINAccessKey: accessURL})
	return NewSimpleFIN(simplefin.NewClient(), secrets), &requests
}

func TestSimpleFINStatus(t *testing.T) {
	adapter, requests := newSimpleFINFixture(t, `{}`)

	status, err := adapter.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() failed: %v", err)
	}
	if !status.Configured {
		t.Error("Configured = false with an access URL stored")
	}
	if *requests != 0 {
		t.Errorf("Status() issued %d network calls, want 0", *requests)
	}

	bare := NewSimpleFIN(simplefin.NewClient(), newMockSecretStore(nil))
	status, err = bare.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() failed: %v", err)
	}
	if status.Configured {
		t.Error("Configured = true with no access URL")
	}
}

func TestSimpleFIN_MissingCredential(t *testing.T) {
	adapter := NewSimpleFIN(simplefin.NewClient(), newMockSecretStore(nil))

	_, err := adapter.Transactions(context.Background(), Query{})
	var missing *MissingCredentialError
	if !errors.As(err, &missing) {
		t.Fatalf("Transactions() error = %v, want *MissingCredentialError", err)
	}
	if missing.Name != secret.SimpleFINAccessKey {
		t.Errorf("missing credential = %q, want %q", missing.Name, secret.SimpleFINAccessKey)
	}
}

func TestSimpleFINAccounts_PrefixesOrgName(t *testing.T) {
	adapter, _ := newSimpleFINFixture(t, `{"errors":[],"accounts":[
		{"id":"acc-1","name":"Checking","currency":"USD","balance":"1203.44",
		 "org":{"name":"First Bank","domain":"firstbank.example"},"transactions":[]},
		{"id":"acc-2","name":"Savings","currency":"USD","balance":"-12.00","org":{},"transactions":[]}
	]}`)

	accounts, err := adapter.Accounts(context.Background())
	if err != nil {
		t.Fatalf("Accounts() failed: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("Accounts() returned %d accounts, want 2", len(accounts))
	}

	if accounts[0].Name != "First Bank Checking" {
		t.Errorf("name = %q, want the org prefix applied", accounts[0].Name)
	}
	if !accounts[0].Balance.Equal(decimal.RequireFromString("1203.44")) {
		t.Errorf("balance = %s, want 1203.44", accounts[0].Balance)
	}
	if accounts[1].Name != "Savings" {
		t.Errorf("name = %q, want the bare account name without an org", accounts[1].Name)
	}
}

func TestSimpleFINAccounts_BadBalance(t *testing.T) {
	adapter, _ := newSimpleFINFixture(t, `{"errors":[],"accounts":[
		{"id":"acc-1","name":"Checking","currency":"USD","balance":"n/a","transactions":[]}
	]}`)

	_, err := adapter.Accounts(context.Background())
	if !errors.Is(err, ErrInvalidResponse) {
		t.Fatalf("Accounts() error = %v, want ErrInvalidResponse", err)
	}
}

func TestSimpleFINTransactions_FlattensAndDropsPending(t *testing.T) {
	adapter, requests := newSimpleFINFixture(t, `{"errors":[],"accounts":[
		{"id":"acc-1","name":"Checking","currency":"USD","balance":"0","transactions":[
			{"id":"tx-1","posted":1717200000,"amount":"-42.15","description":"Coffee","pending":false},
			{"id":"tx-2","posted":1717286400,"amount":"9.99","description":"Refund","pending":true}
		]},
		{"id":"acc-2","name":"Savings","currency":"USD","balance":"0","transactions":[
			{"id":"tx-3","posted":1717372800,"amount":"500.00","description":"Deposit"}
		]}
	]}`)

	records, err := adapter.Transactions(context.Background(), Query{})
	if err != nil {
		t.Fatalf("Transactions() failed: %v", err)
	}
	if *requests != 1 {
		t.Errorf("issued %d network calls, want a single accounts fetch", *requests)
	}
	if len(records) != 2 {
		t.Fatalf("Transactions() returned %d records, want 2 (pending dropped)", len(records))
	}

	want := Record{
		ExternalID: "tx-1",
		Date:       "2024-06-01",
		PayeeName:  "Coffee",
		Amount:     decimal.RequireFromString("-42.15"),
		Kind:       KindCash,
		Booked:     true,
	}
	if records[0].ExternalID != want.ExternalID || records[0].Date != want.Date ||
		records[0].PayeeName != want.PayeeName || !records[0].Amount.Equal(want.Amount) ||
		records[0].Kind != want.Kind || !records[0].Booked {
		t.Errorf("first record = %+v, want %+v", records[0], want)
	}
	if records[1].ExternalID != "tx-3" {
		t.Errorf("second record = %+v, want tx-3 from the second account", records[1])
	}
}
