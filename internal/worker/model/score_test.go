package model

import (
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTokenScore(t *testing.T) {
	for _, s := range AllScores() {
		got, ok := ParseTokenScore(s.String())
		require.True(t, ok)
		assert.Equal(t, s, got)
	}

	got, ok := ParseTokenScore(" strong buy ")
	assert.True(t, ok)
	assert.Equal(t, ScoreStrongBuy, got)

	_, ok = ParseTokenScore("MOON")
	assert.False(t, ok)
}

func TestTokenScore_Ordinals(t *testing.T) {
	assert.EqualValues(t, 0, ScoreStrongSell)
	assert.EqualValues(t, 2, ScoreNeutral)
	assert.EqualValues(t, 4, ScoreStrongBuy)
	assert.False(t, TokenScore(5).Valid())
}

func TestTokenScore_UnmarshalNumberOrLabel(t *testing.T) {
	var payload struct {
		Score TokenScore `json:"score"`
	}
	require.NoError(t, sonic.Unmarshal([]byte(`{"score":3}`), &payload))
	assert.Equal(t, ScoreBuy, payload.Score)

	require.NoError(t, sonic.Unmarshal([]byte(`{"score":"STRONG_SELL"}`), &payload))
	assert.Equal(t, ScoreStrongSell, payload.Score)

	assert.Error(t, sonic.Unmarshal([]byte(`{"score":9}`), &payload))
	assert.Error(t, sonic.Unmarshal([]byte(`{"score":"HODL"}`), &payload))
}

func TestWalletRecord_EncryptedWallets(t *testing.T) {
	var rec WalletRecord
	require.NoError(t, rec.SetEncryptedWallets(map[string]string{"base": "aa:bb"}))
	assert.Equal(t, []string{"base"}, []string(rec.Chains))

	m, err := rec.EncryptedWallets()
	require.NoError(t, err)
	assert.Equal(t, "aa:bb", m["base"])
}
