package midtrans

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClient_Charge(t *testing.T) {
	serverKey := "SB-Mid-server-testkey"

	var captured struct {
		method string
		path   string
		auth   string
		body   ChargeRequest
	}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.method = r.Method
		captured.path = r.URL.Path
		captured.auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured.body))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"transaction_id":     "mid-123",
			"transaction_status": "pending",
			"expiry_time":        "2025-01-01 00:15:00",
			"actions": []map[string]string{
				{"name": "generate-qr-code", "method": "GET", "url": "https://api.sandbox.example/qr/123"},
			},
		})
	}))
	defer ts.Close()

	client := NewClient(ts.URL+"/", serverKey)
	charge, err := client.Charge(context.Background(), "order-1", 100)
	assert.NoError(t, err)

	assert.Equal(t, http.MethodPost, captured.method)
	assert.Equal(t, "/charge", captured.path)

	encoded := base64.StdEncoding.EncodeToString([]byte(serverKey))
	assert.Equal(t, "Basic "+encoded+":", captured.auth)

	assert.Equal(t, "qris", captured.body.PaymentType)
	assert.Equal(t, "gopay", captured.body.Qris.Acquirer)
	assert.Equal(t, "order-1", captured.body.TransactionDetails.OrderID)
	assert.Equal(t, int64(100), captured.body.TransactionDetails.GrossAmount)

	assert.Equal(t, "mid-123", charge.TransactionID)
	assert.Equal(t, "pending", charge.TransactionStatus)
	assert.Equal(t, "2025-01-01 00:15:00", charge.ExpiryTime)
	if assert.Len(t, charge.Actions, 1) {
		assert.Equal(t, "https://api.sandbox.example/qr/123", charge.Actions[0].URL)
	}
}

func TestClient_Status(t *testing.T) {
	raw := `{"transaction_status":"settlement","gross_amount":"100.00","custom":"untouched"}`

	var captured struct {
		method string
		path   string
	}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.method = r.Method
		captured.path = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(raw))
	}))
	defer ts.Close()

	client := NewClient(ts.URL+"/", "key")
	status, err := client.Status(context.Background(), "order-1")
	assert.NoError(t, err)

	assert.Equal(t, http.MethodGet, captured.method)
	assert.Equal(t, "/order-1/status", captured.path)
	// the body is passed through untouched
	assert.Equal(t, raw, string(status))
}
