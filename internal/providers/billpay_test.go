package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBillPayRail_EncodesProductFromMetadata(t *testing.T) {
	var got billPayRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/pay", r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(billPayResponse{
			Status:    "success",
			Reference: "vtu-789",
		})
	}))
	defer server.Close()

	rail := NewBillPayRail(server.URL, "test-key", 0, nil)
	result, err := rail.Execute(context.Background(), RailRequest{
		Reference:   "BILL-abc",
		UserID:      1,
		Currency:    "NGN",
		Amount:      decimal.NewFromInt(5000),
		Destination: "meter-001",
		Metadata: map[string]string{
			"bill_type": "electricity",
			"provider":  "ikeja",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, RailStatusCompleted, result.Status)
	assert.Equal(t, "vtu-789", result.ProviderRef)

	assert.Equal(t, "BILL-abc", got.RequestID)
	assert.Equal(t, "ikeja", got.ServiceID)
	assert.Equal(t, "electricity", got.BillType)
	assert.Equal(t, "meter-001", got.Customer)
	assert.Equal(t, "5000", got.Amount)
}

func TestBillPayRail_FailedStatusRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(billPayResponse{
			Status:  "failed",
			Message: "invalid meter number",
		})
	}))
	defer server.Close()

	rail := NewBillPayRail(server.URL, "test-key", 0, nil)
	result, err := rail.Execute(context.Background(), RailRequest{
		Reference:   "BILL-def",
		Currency:    "NGN",
		Amount:      decimal.NewFromInt(5000),
		Destination: "meter-bad",
		Metadata:    map[string]string{"bill_type": "electricity", "provider": "ikeja"},
	})
	assert.ErrorIs(t, err, ErrProviderRejected)
	assert.Equal(t, RailStatusFailed, result.Status)
}
