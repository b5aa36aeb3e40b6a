package birdeye

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"web3-token-agent/internal/worker/config"
	"web3-token-agent/pkg/httpclient"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return NewClient(config.ProviderConfig{BaseURL: srv.URL, APIKey: "key", RetryBaseDelayMs: 1}, zap.NewNop()), &hits
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func TestGetTokenSecurity(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/defi/token_security", r.URL.Path)
		assert.Equal(t, "solana", r.Header.Get("x-chain"))
		assert.Equal(t, "key", r.Header.Get("X-API-KEY"))
		assert.Equal(t, "mint1", r.URL.Query().Get("address"))
		writeJSON(w, `{"success":true,"data":{"ownerBalance":10,"creatorBalance":5,"top10HolderPercent":0.42}}`)
	})

	sec, err := c.GetTokenSecurity(context.Background(), "solana", "mint1")
	require.NoError(t, err)
	assert.Equal(t, 0.42, sec.Top10HolderPercent)
	assert.Equal(t, 10.0, sec.OwnerBalance)
}

func TestGetTokenSecurity_NoData(t *testing.T) {
	c, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"success":false}`)
	})

	_, err := c.GetTokenSecurity(context.Background(), "base", "0xabc")
	require.Error(t, err)
	assert.True(t, httpclient.IsNoData(err))
	assert.Equal(t, "No security data available", err.Error())
	assert.EqualValues(t, 1, atomic.LoadInt32(hits))
}

func TestGetTokenTradeData_MissingWindowsStayNil(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"success":true,"data":{"price":2.5,"volume_24h_usd":1200,"unique_wallet_1h_change_percent":12.5}}`)
	})

	td, err := c.GetTokenTradeData(context.Background(), "solana", "mint1")
	require.NoError(t, err)
	assert.Equal(t, 2.5, td.Price)
	windows := td.UniqueWalletChangeWindows()
	require.Len(t, windows, 6)
	assert.Nil(t, windows[0])
	require.NotNil(t, windows[1])
	assert.Equal(t, 12.5, *windows[1])
}

func TestConfigErrorsBeforeNetwork(t *testing.T) {
	c, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := c.GetTokenTradeData(context.Background(), "tron", "x")
	assert.ErrorIs(t, err, httpclient.ErrUnsupportedChain)

	c.apiKey = ""
	_, err = c.GetTokenSecurity(context.Background(), "solana", "x")
	assert.ErrorIs(t, err, httpclient.ErrMissingAPIKey)
	assert.EqualValues(t, 0, atomic.LoadInt32(hits))
}
