package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Usage struct {
	Calls      int     `json:"calls"`
	Limit      int     `json:"limit"`
	Percentage float64 `json:"percentage"`
	Day        string  `json:"day"`
}

type BreakerSnapshot struct {
	State        string `json:"state"`
	FailureCount int    `json:"failure_count"`
}

type SyncStatus struct {
	Usage   Usage           `json:"usage"`
	Breaker BreakerSnapshot `json:"breaker"`
	Payouts int64           `json:"payouts"`
}

type Firm struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type Payout struct {
	ID            uint    `json:"id"`
	TxHash        string  `json:"tx_hash"`
	FirmID        uint    `json:"firm_id"`
	Amount        float64 `json:"amount"`
	PaymentMethod string  `json:"payment_method"`
}

func TestSyncStatusAPI(t *testing.T) {
	requireServer(t)

	t.Run("Get Sync Status", func(t *testing.T) {
		resp, err := http.Get(BaseURL + "/status")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var status SyncStatus
		err = json.NewDecoder(resp.Body).Decode(&status)
		require.NoError(t, err)
		assert.NotEmpty(t, status.Breaker.State)
		assert.Positive(t, status.Usage.Limit)
	})
}

func TestFirmAPI(t *testing.T) {
	requireServer(t)

	t.Run("List Firms", func(t *testing.T) {
		resp, err := http.Get(BaseURL + "/firms")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var firms []Firm
		err = json.NewDecoder(resp.Body).Decode(&firms)
		require.NoError(t, err)
	})

	t.Run("Get Firm Payouts", func(t *testing.T) {
		resp, err := http.Get(fmt.Sprintf("%s/firms/1/payouts?limit=10", BaseURL))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var payouts []Payout
		err = json.NewDecoder(resp.Body).Decode(&payouts)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(payouts), 10)
	})

	t.Run("Get Firm Payouts With Invalid ID", func(t *testing.T) {
		resp, err := http.Get(BaseURL + "/firms/abc/payouts")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestRecentPayoutsAPI(t *testing.T) {
	requireServer(t)

	t.Run("Recent Payouts", func(t *testing.T) {
		resp, err := http.Get(BaseURL + "/payouts/recent?limit=5")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var payouts []Payout
		err = json.NewDecoder(resp.Body).Decode(&payouts)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(payouts), 5)
	})
}
