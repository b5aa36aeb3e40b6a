package action

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"web3-token-agent/internal/worker/analyzer"
	"web3-token-agent/internal/worker/config"
	"web3-token-agent/internal/worker/model"
	"web3-token-agent/internal/worker/runtime"
	"web3-token-agent/internal/worker/service"
	"web3-token-agent/pkg/custody"
	"web3-token-agent/pkg/httpclient"
	"web3-token-agent/pkg/llm"
	"web3-token-agent/pkg/twitter"
	"web3-token-agent/pkg/utils"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	degen = "0x4ed4E862860beD51a9570b96d89aF5E1B0Efefed"
	usdc  = "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"
)

// fakeModel 按 system prompt 返回预设回答
type fakeModel struct {
	mu      sync.Mutex
	replies map[string]string
	text    string
	textErr error
	prompts []string
}

func (m *fakeModel) Complete(ctx context.Context, system, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	return m.text, m.textErr
}

func (m *fakeModel) CompleteJSON(ctx context.Context, system, prompt string, out any) error {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	reply, ok := m.replies[system]
	m.mu.Unlock()
	if !ok {
		return errors.New("no scripted reply")
	}
	return llm.DecodeJSON(reply, out)
}

func (m *fakeModel) lastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prompts[len(m.prompts)-1]
}

type fakePosts struct {
	posts []twitter.Post
	err   error
}

func (p *fakePosts) SearchRecent(ctx context.Context, query string) ([]twitter.Post, error) {
	return p.posts, p.err
}

type fakeAnalyzer struct {
	err error
}

func (a *fakeAnalyzer) GetProcessedTokenData(ctx context.Context, token analyzer.TokenRef) (*analyzer.ProcessedTokenData, error) {
	if a.err != nil {
		return nil, a.err
	}
	return &analyzer.ProcessedTokenData{Token: token, HolderCount: 42}, nil
}

type fakeMemory struct {
	msgs []*model.Message
}

func (m *fakeMemory) Recent(ctx context.Context, agentID, roomID string, n int) ([]*model.Message, error) {
	return m.msgs, nil
}

type memRatingDAO struct {
	mu      sync.Mutex
	ratings map[string]*model.TokenRating
	trades  map[string]model.TradeInfo
}

func newMemRatingDAO() *memRatingDAO {
	return &memRatingDAO{ratings: map[string]*model.TokenRating{}, trades: map[string]model.TradeInfo{}}
}

func (m *memRatingDAO) Create(ctx context.Context, r *model.TokenRating) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.ratings[r.ID] = &cp
	return nil
}

func (m *memRatingDAO) GetByID(ctx context.Context, id string) (*model.TokenRating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ratings[id], nil
}

func (m *memRatingDAO) AttachTrade(ctx context.Context, id string, trade model.TradeInfo) (*model.TokenRating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades[id] = trade
	return m.ratings[id], nil
}

func (m *memRatingDAO) ClaimTrade(ctx context.Context, id string, nowMs int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.ratings[id]
	if !ok || r.SubmittedAt != nil {
		return false, nil
	}
	if _, traded := m.trades[id]; traded {
		return false, nil
	}
	r.SubmittedAt = &nowMs
	return true, nil
}

func (m *memRatingDAO) SetTradeID(ctx context.Context, id, tradeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.ratings[id]; ok {
		r.TradeID = &tradeID
	}
	return nil
}

func (m *memRatingDAO) ReleaseTrade(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.ratings[id]; ok {
		r.SubmittedAt, r.TradeID = nil, nil
	}
	return nil
}

func (m *memRatingDAO) claimed(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.ratings[id]
	return ok && r.SubmittedAt != nil
}

func (m *memRatingDAO) ListPending(ctx context.Context, agentID string, sinceMs int64, limit int) ([]*model.TokenRating, error) {
	return nil, nil
}

func (m *memRatingDAO) ListByToken(ctx context.Context, tokenAddress string, limit int) ([]*model.TokenRating, error) {
	return nil, nil
}

func scoreMessage(data map[string]any) *model.Message {
	return &model.Message{ID: "m1", AgentID: "agent", UserID: "alice", RoomID: "room", Content: model.Content{Text: "score it", Action: ScoreTokenName, Data: data}}
}

func newScoreAction(m *fakeModel, posts *fakePosts, an *fakeAnalyzer, mem *fakeMemory) (*ScoreToken, *memRatingDAO) {
	store := newMemRatingDAO()
	deps := ScoreDeps{
		Model:    m,
		Posts:    posts,
		Analyzer: an,
		Ratings:  service.NewRatingService(store, zap.NewNop()),
	}
	if mem != nil {
		deps.Memory = mem
	}
	return NewScoreToken(deps, zap.NewNop()), store
}

func degenPayload() map[string]any {
	return map[string]any{"ticker": "$degen", "inputTokenAddress": degen, "chain": "base"}
}

func TestScoreToken_StrongBuyPersisted(t *testing.T) {
	m := &fakeModel{
		replies: map[string]string{scoreSystem: `{"score":"STRONG_BUY","reason":"Volume and holders are growing."}`},
		text:    "Mostly bullish chatter.",
	}
	a, store := newScoreAction(m, &fakePosts{posts: []twitter.Post{{Username: "bob", Text: "$DEGEN up"}}}, &fakeAnalyzer{}, nil)

	var out runtime.Collector
	require.NoError(t, a.Handle(context.Background(), scoreMessage(degenPayload()), out.Callback))

	require.Len(t, store.ratings, 1)
	var saved *model.TokenRating
	for _, r := range store.ratings {
		saved = r
	}
	assert.Equal(t, model.ScoreStrongBuy, saved.Score)
	assert.Equal(t, "DEGEN", saved.Ticker)
	assert.Equal(t, "alice", saved.Requester)
	assert.Equal(t, utils.ChecksumAddress(degen, "base"), saved.TokenAddress)

	require.Len(t, out.Contents, 1)
	reply := out.Contents[0]
	assert.Contains(t, reply.Text, "Volume and holders are growing.")
	assert.Equal(t, ExecuteTradeName, reply.Action)
	assert.Equal(t, "STRONG_BUY", reply.Data["score"])
	assert.Equal(t, saved.ID, reply.Data["objectId"])
}

func TestScoreToken_StrongSellPersisted(t *testing.T) {
	m := &fakeModel{replies: map[string]string{scoreSystem: `{"score":"strong sell","reason":"Liquidity pulled."}`}}
	a, store := newScoreAction(m, &fakePosts{}, &fakeAnalyzer{}, nil)

	var out runtime.Collector
	require.NoError(t, a.Handle(context.Background(), scoreMessage(degenPayload()), out.Callback))
	assert.Len(t, store.ratings, 1)
}

func TestScoreToken_NeutralNeverPersisted(t *testing.T) {
	m := &fakeModel{replies: map[string]string{scoreSystem: `{"score":"NEUTRAL","reason":"Nothing stands out."}`}}
	a, store := newScoreAction(m, &fakePosts{}, &fakeAnalyzer{}, nil)

	var out runtime.Collector
	require.NoError(t, a.Handle(context.Background(), scoreMessage(degenPayload()), out.Callback))

	assert.Empty(t, store.ratings)
	require.Len(t, out.Contents, 1)
	assert.Empty(t, out.Contents[0].Action)
	assert.Contains(t, out.Contents[0].Text, "Nothing stands out.")
}

func TestScoreToken_UnknownLabelAborts(t *testing.T) {
	m := &fakeModel{replies: map[string]string{scoreSystem: `{"score":"MOON","reason":"?"}`}}
	a, store := newScoreAction(m, &fakePosts{}, &fakeAnalyzer{}, nil)

	var out runtime.Collector
	require.NoError(t, a.Handle(context.Background(), scoreMessage(degenPayload()), out.Callback))
	assert.Empty(t, store.ratings)
	assert.Empty(t, out.Contents)
}

func TestScoreToken_FailuresDegradeToPlaceholders(t *testing.T) {
	m := &fakeModel{replies: map[string]string{scoreSystem: `{"score":"SELL","reason":"No data."}`}}
	a, _ := newScoreAction(m, &fakePosts{err: errors.New("rate limited")}, &fakeAnalyzer{err: errors.New("birdeye down")}, nil)

	var out runtime.Collector
	require.NoError(t, a.Handle(context.Background(), scoreMessage(degenPayload()), out.Callback))

	prompt := m.lastPrompt()
	assert.Contains(t, prompt, socialPlaceholder)
	assert.Contains(t, prompt, technicalPlaceholder)
	require.Len(t, out.Contents, 1)
}

func TestScoreToken_ExtractsFromRecentMessages(t *testing.T) {
	m := &fakeModel{replies: map[string]string{
		extractSystem: `{"ticker":"DEGEN","inputTokenAddress":"` + degen + `","chain":"base"}`,
		scoreSystem:   `{"score":"BUY","reason":"Healthy."}`,
	}}
	mem := &fakeMemory{msgs: []*model.Message{{AgentID: "agent", UserID: "alice", Content: model.Content{Text: "what about DEGEN on base " + degen}}}}
	a, store := newScoreAction(m, &fakePosts{}, &fakeAnalyzer{}, mem)

	msg := scoreMessage(nil)
	require.True(t, a.Validate(context.Background(), msg))

	var out runtime.Collector
	require.NoError(t, a.Handle(context.Background(), msg, out.Callback))
	assert.Len(t, store.ratings, 1)
	assert.Contains(t, m.prompts[0], "user: what about DEGEN")
}

func TestScoreToken_RejectsInvalidExtraction(t *testing.T) {
	m := &fakeModel{replies: map[string]string{
		extractSystem: `{"ticker":"DEGEN","inputTokenAddress":"not-an-address","chain":"base"}`,
	}}
	a, store := newScoreAction(m, &fakePosts{}, &fakeAnalyzer{}, &fakeMemory{})

	var out runtime.Collector
	require.NoError(t, a.Handle(context.Background(), scoreMessage(nil), out.Callback))
	assert.Empty(t, store.ratings)
	require.Len(t, out.Contents, 1)
	assert.Equal(t, notFoundText, out.Contents[0].Text)
}

func walletCfg() config.WalletConfig {
	return config.WalletConfig{TradeNetwork: "base", USDCAddress: usdc, ETHAddress: "eth"}
}

func TestPlanTrade_BuyUsesLargerOfUSDCAndETH(t *testing.T) {
	token := utils.ChecksumAddress(degen, "base")
	balances := map[string]decimal.Decimal{
		strings.ToLower(usdc): decimal.NewFromInt(500),
		"eth":               decimal.NewFromInt(2),
	}
	plan := PlanTrade(model.ScoreBuy, token, balances, walletCfg())
	require.NotNil(t, plan)
	assert.Equal(t, SideBuy, plan.Side)
	assert.Equal(t, usdc, plan.FromAsset)
	assert.Equal(t, token, plan.ToAsset)
	assert.True(t, decimal.NewFromInt(50).Equal(plan.Amount), plan.Amount.String())

	balances[strings.ToLower(usdc)] = decimal.NewFromInt(1)
	plan = PlanTrade(model.ScoreStrongBuy, token, balances, walletCfg())
	require.NotNil(t, plan)
	assert.Equal(t, "eth", plan.FromAsset)
	assert.True(t, decimal.RequireFromString("0.5").Equal(plan.Amount), plan.Amount.String())
}

func TestPlanTrade_SellSizing(t *testing.T) {
	token := utils.ChecksumAddress(degen, "base")
	balances := map[string]decimal.Decimal{strings.ToLower(token): decimal.NewFromInt(1000)}

	plan := PlanTrade(model.ScoreSell, token, balances, walletCfg())
	require.NotNil(t, plan)
	assert.Equal(t, usdc, plan.ToAsset)
	assert.True(t, decimal.NewFromInt(500).Equal(plan.Amount))

	plan = PlanTrade(model.ScoreStrongSell, token, balances, walletCfg())
	require.NotNil(t, plan)
	assert.True(t, decimal.NewFromInt(1000).Equal(plan.Amount))

	assert.Nil(t, PlanTrade(model.ScoreNeutral, token, balances, walletCfg()))
	assert.Nil(t, PlanTrade(model.ScoreSell, token, map[string]decimal.Decimal{}, walletCfg()))
}

type fakeWallets struct {
	balances  map[string]decimal.Decimal
	result    *service.TradeResult
	submitErr error
	awaitErr  error
	trades    []decimal.Decimal
	loaded    int
}

func (w *fakeWallets) GetWallets(ctx context.Context, agentID string, create bool) (*service.WalletSet, error) {
	w.loaded++
	return &service.WalletSet{Wallets: map[string]*custody.Wallet{"base": {ID: "w1"}}}, nil
}

func (w *fakeWallets) Balances(ctx context.Context, wallet *custody.Wallet, assets ...string) (map[string]decimal.Decimal, error) {
	return w.balances, nil
}

func (w *fakeWallets) SubmitTrade(ctx context.Context, wallet *custody.Wallet, tokenIn, tokenOut string, amount decimal.Decimal) (string, error) {
	w.trades = append(w.trades, amount)
	if w.submitErr != nil {
		return "", w.submitErr
	}
	return "t1", nil
}

func (w *fakeWallets) AwaitTrade(ctx context.Context, wallet *custody.Wallet, tradeID string) (*service.TradeResult, error) {
	if w.awaitErr != nil {
		return nil, w.awaitErr
	}
	return w.result, nil
}

func tradeMessage(score, chain string) *model.Message {
	return &model.Message{AgentID: "agent", UserID: "agent", RoomID: "room", Content: model.Content{
		Action: ExecuteTradeName,
		Data:   map[string]any{"score": score, "ticker": "DEGEN", "inputTokenAddress": degen, "chain": chain, "objectId": "rating-1"},
	}}
}

func TestExecuteTrade_RecordsTradeAndEmitsAttachment(t *testing.T) {
	store := newMemRatingDAO()
	store.ratings["rating-1"] = &model.TokenRating{ID: "rating-1", Score: model.ScoreBuy}
	wallets := &fakeWallets{
		balances: map[string]decimal.Decimal{strings.ToLower(usdc): decimal.NewFromInt(200)},
		result:   &service.TradeResult{TxHash: "0xfeed", Link: "https://basescan.org/tx/0xfeed", ToAmount: decimal.NewFromInt(9000)},
	}
	a := NewExecuteTrade(walletCfg(), TradeDeps{Wallets: wallets, Ratings: service.NewRatingService(store, zap.NewNop())}, zap.NewNop())

	msg := tradeMessage("BUY", "base")
	require.True(t, a.Validate(context.Background(), msg))

	var out runtime.Collector
	require.NoError(t, a.Handle(context.Background(), msg, out.Callback))

	require.Len(t, wallets.trades, 1)
	assert.True(t, decimal.NewFromInt(20).Equal(wallets.trades[0]))
	assert.Equal(t, "0xfeed", store.trades["rating-1"].TxHash)
	assert.Equal(t, SideBuy, store.trades["rating-1"].Side)
	assert.Equal(t, "t1", *store.ratings["rating-1"].TradeID)

	// 同一评分再次派发不会重复下单
	require.NoError(t, a.Handle(context.Background(), tradeMessage("BUY", "base"), out.Callback))
	assert.Len(t, wallets.trades, 1)

	require.Len(t, out.Contents, 1)
	require.Len(t, out.Contents[0].Attachments, 1)
	assert.Equal(t, "https://basescan.org/tx/0xfeed", out.Contents[0].Attachments[0].URL)
	assert.Contains(t, out.Contents[0].Attachments[0].Description, "USDC")
}

func TestExecuteTrade_SkipsOtherChains(t *testing.T) {
	wallets := &fakeWallets{}
	a := NewExecuteTrade(walletCfg(), TradeDeps{Wallets: wallets, Ratings: service.NewRatingService(newMemRatingDAO(), zap.NewNop())}, zap.NewNop())

	var out runtime.Collector
	require.NoError(t, a.Handle(context.Background(), tradeMessage("BUY", "ethereum"), out.Callback))
	assert.Zero(t, wallets.loaded)
	assert.Empty(t, out.Contents)
}

func TestExecuteTrade_IncompleteTradeIsSilent(t *testing.T) {
	store := newMemRatingDAO()
	store.ratings["rating-1"] = &model.TokenRating{ID: "rating-1", Score: model.ScoreStrongBuy}
	wallets := &fakeWallets{balances: map[string]decimal.Decimal{"eth": decimal.NewFromInt(1)}}
	a := NewExecuteTrade(walletCfg(), TradeDeps{Wallets: wallets, Ratings: service.NewRatingService(store, zap.NewNop())}, zap.NewNop())

	var out runtime.Collector
	require.NoError(t, a.Handle(context.Background(), tradeMessage("STRONG_BUY", "base"), out.Callback))
	assert.Len(t, wallets.trades, 1)
	assert.Empty(t, store.trades)
	assert.Empty(t, out.Contents)
	// 失败终态释放认领，补单任务可以重试
	assert.False(t, store.claimed("rating-1"))
}

func TestExecuteTrade_ClaimKeptWhenStateUnknown(t *testing.T) {
	cases := []struct {
		name      string
		submitErr error
		awaitErr  error
		claimed   bool
	}{
		{name: "gateway error after submit", submitErr: &httpclient.HTTPError{Code: 502}, claimed: true},
		{name: "settlement timeout", awaitErr: context.DeadlineExceeded, claimed: true},
		{name: "rejected by provider", submitErr: &httpclient.HTTPError{Code: 400}, claimed: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newMemRatingDAO()
			store.ratings["rating-1"] = &model.TokenRating{ID: "rating-1", Score: model.ScoreBuy}
			wallets := &fakeWallets{
				balances:  map[string]decimal.Decimal{"eth": decimal.NewFromInt(1)},
				submitErr: tc.submitErr,
				awaitErr:  tc.awaitErr,
			}
			a := NewExecuteTrade(walletCfg(), TradeDeps{Wallets: wallets, Ratings: service.NewRatingService(store, zap.NewNop())}, zap.NewNop())

			var out runtime.Collector
			require.NoError(t, a.Handle(context.Background(), tradeMessage("BUY", "base"), out.Callback))
			assert.Len(t, wallets.trades, 1)
			assert.Equal(t, tc.claimed, store.claimed("rating-1"))
			assert.Empty(t, out.Contents)
		})
	}
}

func TestExecuteTrade_RejectsExternalOrigin(t *testing.T) {
	a := NewExecuteTrade(walletCfg(), TradeDeps{Wallets: &fakeWallets{}}, zap.NewNop())

	msg := tradeMessage("STRONG_SELL", "base")
	msg.UserID = "alice"
	assert.False(t, a.Validate(context.Background(), msg))

	msg.UserID, msg.AgentID = "", ""
	assert.False(t, a.Validate(context.Background(), msg))
}

func TestPayloadFromData(t *testing.T) {
	p, ok := payloadFromData(map[string]any{"score": float64(4), "ticker": "x", "inputTokenAddress": degen, "chain": "BASE"})
	require.True(t, ok)
	assert.Equal(t, model.ScoreStrongBuy, p.Score)
	assert.Equal(t, "base", p.Chain)

	_, ok = payloadFromData(map[string]any{"score": "HODL", "inputTokenAddress": degen, "chain": "base"})
	assert.False(t, ok)
	_, ok = payloadFromData(map[string]any{"ticker": "x", "inputTokenAddress": degen, "chain": "base"})
	assert.False(t, ok)
}
