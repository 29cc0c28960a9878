package midtrans

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/honeynil/photomarket/internal/infrastructure/observability"
)

// PaymentClient is the outbound contract to the payment gateway.
type PaymentClient interface {
	Charge(ctx context.Context, orderID string, grossAmount int64) (*ChargeResponse, error)
	Status(ctx context.Context, orderID string) (json.RawMessage, error)
}

type ChargeRequest struct {
	PaymentType        string             `json:"payment_type"`
	TransactionDetails TransactionDetails `json:"transaction_details"`
	Qris               Qris               `json:"qris"`
}

type TransactionDetails struct {
	OrderID     string `json:"order_id"`
	GrossAmount int64  `json:"gross_amount"`
}

type Qris struct {
	Acquirer string `json:"acquirer"`
}

type ChargeResponse struct {
	TransactionID     string   `json:"transaction_id"`
	TransactionStatus string   `json:"transaction_status"`
	Actions           []Action `json:"actions"`
	ExpiryTime        string   `json:"expiry_time"`
	StatusCode        string   `json:"status_code"`
	StatusMessage     string   `json:"status_message"`
}

type Action struct {
	Name   string `json:"name"`
	Method string `json:"method"`
	URL    string `json:"url"`
}

// Client talks to the Midtrans Core API over HTTP.
type Client struct {
	baseURL    string
	serverKey  string
	httpClient *http.Client
}

func NewClient(baseURL, serverKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		serverKey:  serverKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Charge creates a QRIS charge for the order. The gateway only accepts
// integral amounts, so callers pass the already rounded gross amount.
func (c *Client) Charge(ctx context.Context, orderID string, grossAmount int64) (*ChargeResponse, error) {
	payload := ChargeRequest{
		PaymentType: "qris",
		TransactionDetails: TransactionDetails{
			OrderID:     orderID,
			GrossAmount: grossAmount,
		},
		Qris: Qris{Acquirer: "gopay"},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal charge payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"charge", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build charge request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		observability.GatewayCalls.WithLabelValues("charge", "error").Inc()
		slog.Error("charge request failed", "order_id", orderID, "error", err)
		return nil, fmt.Errorf("charge request failed: %w", err)
	}
	defer resp.Body.Close()

	var charge ChargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&charge); err != nil {
		observability.GatewayCalls.WithLabelValues("charge", "error").Inc()
		slog.Error("failed to decode charge response", "order_id", orderID, "error", err)
		return nil, fmt.Errorf("failed to decode charge response: %w", err)
	}

	observability.GatewayCalls.WithLabelValues("charge", "success").Inc()
	slog.Info("charge created", "order_id", orderID, "gross_amount", grossAmount,
		"payment_id", charge.TransactionID, "status", charge.TransactionStatus)
	return &charge, nil
}

// Status returns the gateway's status response verbatim; interpretation is
// left to the caller.
func (c *Client) Status(ctx context.Context, orderID string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+orderID+"/status", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build status request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		observability.GatewayCalls.WithLabelValues("status", "error").Inc()
		slog.Error("status request failed", "order_id", orderID, "error", err)
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		observability.GatewayCalls.WithLabelValues("status", "error").Inc()
		return nil, fmt.Errorf("failed to read status response: %w", err)
	}

	observability.GatewayCalls.WithLabelValues("status", "success").Inc()
	slog.Info("payment status retrieved", "order_id", orderID)
	return json.RawMessage(body), nil
}

func (c *Client) setHeaders(req *http.Request) {
	encoded := base64.StdEncoding.EncodeToString([]byte(c.serverKey))
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Basic %s:", encoded))
}
