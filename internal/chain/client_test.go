package chain

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
)

func TestTestConnectionCachesNetwork(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(StatusResponse{Network: "finney", Synced: true})
	}))
	defer server.Close()

	c := NewClient(server.URL, "secret")
	if !c.TestConnection(context.Background()) {
		t.Fatal("connection test failed against a healthy gateway")
	}
	if c.Network() != "finney" {
		t.Fatalf("network = %q, want finney", c.Network())
	}
}

func TestTestConnectionFailsWhenUnsynced(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(StatusResponse{Network: "finney", Synced: false})
	}))
	defer server.Close()

	if NewClient(server.URL, "secret").TestConnection(context.Background()) {
		t.Fatal("connection test passed against an unsynced node")
	}
}

func TestTestConnectionFailsWhenUnreachable(t *testing.T) {
	if NewClient("http://127.0.0.1:1", "secret").TestConnection(context.Background()) {
		t.Fatal("connection test passed against a dead endpoint")
	}
}

func TestTransferSendsAuthAndIdempotencyKey(t *testing.T) {
	var gotAuth, gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotKey = r.Header.Get("Idempotence-Key")
		json.NewEncoder(w).Encode(TransferResponse{TxID: "0xabc", Fee: decimal.RequireFromString("0.1")})
	}))
	defer server.Close()

	c := NewClient(server.URL, "coldkey-secret")
	resp, err := c.Transfer(context.Background(), "5FHn...", decimal.RequireFromString("2"))
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if resp.TxID != "0xabc" {
		t.Fatalf("tx id = %q", resp.TxID)
	}
	if gotAuth != "Bearer coldkey-secret" {
		t.Fatalf("auth header = %q", gotAuth)
	}
	if gotKey == "" {
		t.Fatal("mutating call sent no idempotency key")
	}
}

func TestGetBalance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/addresses/addr1/balance" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(BalanceResponse{Address: "addr1", Balance: decimal.RequireFromString("1.25")})
	}))
	defer server.Close()

	balance, err := NewClient(server.URL, "secret").GetBalance(context.Background(), "addr1")
	if err != nil {
		t.Fatalf("get balance failed: %v", err)
	}
	if !balance.Equal(decimal.RequireFromString("1.25")) {
		t.Fatalf("balance = %s", balance)
	}
}

func TestClientRejectionBecomesRequestError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "destination account does not exist", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, "secret").Transfer(context.Background(), "bad", decimal.RequireFromString("1"))
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("4xx did not map to RequestError: %v", err)
	}
	if reqErr.Status != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", reqErr.Status)
	}
}

func TestServerFailureIsNotARequestError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, "secret").FeeQuote(context.Background())
	if err == nil {
		t.Fatal("5xx returned no error")
	}
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		t.Fatal("5xx must not map to a relayable RequestError")
	}
}
