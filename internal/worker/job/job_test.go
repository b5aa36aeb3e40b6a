package job

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"web3-token-agent/internal/worker/action"
	"web3-token-agent/internal/worker/config"
	"web3-token-agent/internal/worker/model"
	"web3-token-agent/internal/worker/runtime"
	"web3-token-agent/internal/worker/service"
	"web3-token-agent/pkg/custody"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestScheduler_RunsPeriodicAndOnceJobs(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	var periodic, once atomic.Int32
	s.RegisterJob("tick", 10*time.Millisecond, func(ctx context.Context) error {
		periodic.Add(1)
		return nil
	})
	s.RegisterOnceJob("boot", func(ctx context.Context) error {
		once.Add(1)
		return nil
	})

	s.Start(context.Background())
	assert.Eventually(t, func() bool { return periodic.Load() >= 3 }, time.Second, 5*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(stopCtx)

	assert.Equal(t, int32(1), once.Load())
	after := periodic.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, periodic.Load())
}

func TestScheduler_RunTimeout(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	var bounded, unbounded atomic.Bool
	s.RegisterJob("bounded", time.Hour, func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		bounded.Store(ok)
		return nil
	})
	s.RegisterJobWithTimeout("unbounded", time.Hour, 0, func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		unbounded.Store(!ok)
		return nil
	})

	s.Start(context.Background())
	assert.Eventually(t, func() bool { return bounded.Load() && unbounded.Load() }, time.Second, 5*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(stopCtx)
}

type staticLister struct {
	ratings []*model.TokenRating
	window  time.Duration
}

func (l *staticLister) ListPending(ctx context.Context, agentID string, window time.Duration, limit int) ([]*model.TokenRating, error) {
	l.window = window
	return l.ratings, nil
}

type recordingDispatcher struct {
	msgs []*model.Message
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, msg *model.Message, cb runtime.Callback) error {
	d.msgs = append(d.msgs, msg)
	return nil
}

func TestPendingTradesJob_DispatchesTradeAction(t *testing.T) {
	lister := &staticLister{ratings: []*model.TokenRating{
		{ID: "r1", Ticker: "DEGEN", TokenAddress: "0x4ed4E862860beD51a9570b96d89aF5E1B0Efefed", Chain: "base", Score: model.ScoreSell},
	}}
	d := &recordingDispatcher{}
	j := NewPendingTradesJob("agent", time.Hour, lister, d, zap.NewNop())

	require.NoError(t, j.Run(context.Background()))
	assert.Equal(t, time.Hour, lister.window)
	require.Len(t, d.msgs, 1)
	msg := d.msgs[0]
	assert.Equal(t, action.ExecuteTradeName, msg.Content.Action)
	assert.Equal(t, "SELL", msg.Content.Data["score"])
	assert.Equal(t, "r1", msg.Content.Data["objectId"])
	assert.Equal(t, "agent", msg.AgentID)
}

const (
	degen = "0x4ed4E862860beD51a9570b96d89aF5E1B0Efefed"
	usdc  = "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"
)

type memRatingDAO struct {
	mu      sync.Mutex
	ratings map[string]*model.TokenRating
}

func newMemRatingDAO() *memRatingDAO {
	return &memRatingDAO{ratings: make(map[string]*model.TokenRating)}
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
	r, ok := m.ratings[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (m *memRatingDAO) ClaimTrade(ctx context.Context, id string, nowMs int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.ratings[id]
	if !ok || r.Trade != nil || r.SubmittedAt != nil {
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
	if r, ok := m.ratings[id]; ok && r.Trade == nil {
		r.SubmittedAt, r.TradeID = nil, nil
	}
	return nil
}

func (m *memRatingDAO) AttachTrade(ctx context.Context, id string, trade model.TradeInfo) (*model.TokenRating, error) {
	data, err := model.EncodeTrade(trade)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.ratings[id]
	r.Trade = &data
	cp := *r
	return &cp, nil
}

func (m *memRatingDAO) ListPending(ctx context.Context, agentID string, sinceMs int64, limit int) ([]*model.TokenRating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.TokenRating
	for _, r := range m.ratings {
		if r.AgentID == agentID && r.Trade == nil && r.SubmittedAt == nil && r.Timestamp >= sinceMs {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memRatingDAO) ListByToken(ctx context.Context, tokenAddress string, limit int) ([]*model.TokenRating, error) {
	return nil, nil
}

func (m *memRatingDAO) traded(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ratings[id].Trade != nil
}

// slowWallets 交易在 settle 之后才到终态
type slowWallets struct {
	settle  time.Duration
	submits atomic.Int32
}

func (w *slowWallets) GetWallets(ctx context.Context, agentID string, create bool) (*service.WalletSet, error) {
	return &service.WalletSet{Wallets: map[string]*custody.Wallet{"base": {ID: "w1"}}}, nil
}

func (w *slowWallets) Balances(ctx context.Context, wallet *custody.Wallet, assets ...string) (map[string]decimal.Decimal, error) {
	return map[string]decimal.Decimal{strings.ToLower(usdc): decimal.NewFromInt(1000)}, nil
}

func (w *slowWallets) SubmitTrade(ctx context.Context, wallet *custody.Wallet, tokenIn, tokenOut string, amount decimal.Decimal) (string, error) {
	w.submits.Add(1)
	return "t1", nil
}

func (w *slowWallets) AwaitTrade(ctx context.Context, wallet *custody.Wallet, tradeID string) (*service.TradeResult, error) {
	select {
	case <-time.After(w.settle):
		return &service.TradeResult{TxHash: "0xhash", Link: "https://basescan.org/tx/0xhash", ToAmount: decimal.NewFromInt(7)}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func newTradeStack(t *testing.T, wallets *slowWallets) (*service.RatingService, *memRatingDAO, *runtime.Runtime, string) {
	store := newMemRatingDAO()
	ratings := service.NewRatingService(store, zap.NewNop())
	rating := &model.TokenRating{AgentID: "agent", Ticker: "DEGEN", TokenAddress: degen, Chain: "base", Score: model.ScoreBuy}
	saved, err := ratings.Save(context.Background(), rating)
	require.NoError(t, err)
	require.True(t, saved)

	walletCfg := config.WalletConfig{TradeNetwork: "base", USDCAddress: usdc, ETHAddress: "eth"}
	rt := runtime.New(config.AgentConfig{ID: "agent"}, nil, zap.NewNop())
	rt.Register(action.NewExecuteTrade(walletCfg, action.TradeDeps{Wallets: wallets, Ratings: ratings}, zap.NewNop()))
	return ratings, store, rt, rating.ID
}

func TestPendingTradesJob_SlowSettlementSubmitsOnce(t *testing.T) {
	wallets := &slowWallets{settle: 250 * time.Millisecond}
	ratings, store, rt, id := newTradeStack(t, wallets)

	s := NewScheduler(zap.NewNop())
	j := NewPendingTradesJob("agent", time.Hour, ratings, rt, zap.NewNop())
	s.RegisterJobWithTimeout("pending_trades", 100*time.Millisecond, 0, j.Run)
	s.Start(context.Background())

	require.Eventually(t, func() bool { return store.traded(id) }, 2*time.Second, 10*time.Millisecond)
	// 再跑几个周期，已成交的评分不会再下单
	time.Sleep(300 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(stopCtx)

	assert.Equal(t, int32(1), wallets.submits.Load())
	r, err := ratings.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "t1", *r.TradeID)
}

func TestPendingTradesJob_InFlightTradeNotRedispatched(t *testing.T) {
	wallets := &slowWallets{settle: time.Hour}
	ratings, _, rt, _ := newTradeStack(t, wallets)
	j := NewPendingTradesJob("agent", time.Hour, ratings, rt, zap.NewNop())

	// 第一次执行因超时放弃等待，交易仍在托管服务处理中
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, j.Run(ctx))
	assert.Equal(t, int32(1), wallets.submits.Load())

	require.NoError(t, j.Run(context.Background()))
	assert.Equal(t, int32(1), wallets.submits.Load())
}
