package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RequestError is a rejection the gateway returned deliberately (4xx), as
// opposed to a transport or server failure. Callers can relay its Message.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	return e.Message
}

type Client struct {
	BaseURL    string
	Coldkey    string
	HTTPClient *http.Client

	network string
}

func NewClient(baseURL, coldkeySecret string) *Client {
	return &Client{
		BaseURL: baseURL,
		Coldkey: coldkeySecret,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) doRequest(ctx context.Context, method, endpoint string, body interface{}, idempotent bool) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	url := fmt.Sprintf("%s%s", c.BaseURL, endpoint)
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.Coldkey))
	if idempotent {
		// Chain-mutating calls carry a fresh idempotency key so a retried
		// request can never double-spend.
		req.Header.Set("Idempotence-Key", uuid.New().String())
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return nil, &RequestError{Status: resp.StatusCode, Message: string(respBody)}
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("gateway error: %s (status: %d)", string(respBody), resp.StatusCode)
	}

	return respBody, nil
}

// TestConnection probes the gateway status endpoint and caches the reported
// network name for display.
func (c *Client) TestConnection(ctx context.Context) bool {
	resp, err := c.doRequest(ctx, "GET", "/status", nil, false)
	if err != nil {
		return false
	}

	var status StatusResponse
	if err := json.Unmarshal(resp, &status); err != nil {
		return false
	}
	if !status.Synced {
		return false
	}

	c.network = status.Network
	return true
}

func (c *Client) Network() string {
	return c.network
}

func (c *Client) GetBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	resp, err := c.doRequest(ctx, "GET", fmt.Sprintf("/addresses/%s/balance", address), nil, false)
	if err != nil {
		return decimal.Zero, err
	}

	var balance BalanceResponse
	if err := json.Unmarshal(resp, &balance); err != nil {
		return decimal.Zero, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return balance.Balance, nil
}

// FeeQuote returns the current network transfer fee.
func (c *Client) FeeQuote(ctx context.Context) (decimal.Decimal, error) {
	resp, err := c.doRequest(ctx, "GET", "/fees/transfer", nil, false)
	if err != nil {
		return decimal.Zero, err
	}

	var fee FeeResponse
	if err := json.Unmarshal(resp, &fee); err != nil {
		return decimal.Zero, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return fee.Fee, nil
}

// Transfer moves funds from the custodial hot wallet to a destination
// address, signed with the coldkey credential.
func (c *Client) Transfer(ctx context.Context, destination string, amount decimal.Decimal) (*TransferResponse, error) {
	reqBody := TransferRequest{
		Destination: destination,
		Amount:      amount,
	}

	resp, err := c.doRequest(ctx, "POST", "/transfers", reqBody, true)
	if err != nil {
		return nil, err
	}

	var transfer TransferResponse
	if err := json.Unmarshal(resp, &transfer); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &transfer, nil
}

// DeriveAddress asks the gateway for a fresh custodial deposit address bound
// to the given owner.
func (c *Client) DeriveAddress(ctx context.Context, ownerID int64) (string, error) {
	reqBody := DeriveAddressRequest{OwnerID: ownerID}

	resp, err := c.doRequest(ctx, "POST", "/addresses", reqBody, true)
	if err != nil {
		return "", err
	}

	var derived DeriveAddressResponse
	if err := json.Unmarshal(resp, &derived); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return derived.Address, nil
}
