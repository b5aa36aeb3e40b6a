package rating

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"web3-token-agent/internal/worker/model"
	"web3-token-agent/pkg/elasticsearch"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDeduplicateRatings_KeepsLast(t *testing.T) {
	a1 := &model.TokenRating{ID: "a", Reason: "first"}
	b := &model.TokenRating{ID: "b"}
	a2 := &model.TokenRating{ID: "a", Reason: "patched"}

	out := deduplicateRatings([]*model.TokenRating{a1, b, a2})
	require.Len(t, out, 2)
	assert.Equal(t, "patched", out[0].Reason)
	assert.Equal(t, "b", out[1].ID)
}

func TestESRatingWriter_BWrite(t *testing.T) {
	var lines []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/_bulk" {
			body, _ := io.ReadAll(r.Body)
			lines = strings.Split(strings.TrimSpace(string(body)), "\n")
			_, _ = io.WriteString(w, `{"errors":false,"items":[{"index":{"status":200}}]}`)
			return
		}
		_, _ = io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}}, zap.NewNop())
	require.NoError(t, err)

	trade, err := model.EncodeTrade(model.TradeInfo{TxHash: "0xabc", Side: "buy", Amount: decimal.NewFromInt(10)})
	require.NoError(t, err)

	w := NewESRatingWriter(es, zap.NewNop(), "token_ratings")
	err = w.BWrite(context.Background(), []*model.TokenRating{
		{ID: "r1", Ticker: "DEGEN", Score: model.ScoreBuy},
		{ID: "r1", Ticker: "DEGEN", Score: model.ScoreBuy, Trade: &trade},
	})
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"index":{"_index":"token_ratings","_id":"r1"}}`, lines[0])

	var doc map[string]any
	require.NoError(t, sonic.UnmarshalString(lines[1], &doc))
	assert.Equal(t, "BUY", doc["score_label"])
	assert.Equal(t, true, doc["traded"])
	assert.Equal(t, "0xabc", doc["tx_hash"])
}
