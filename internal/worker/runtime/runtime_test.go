package runtime

import (
	"context"
	"sync"
	"testing"

	"web3-token-agent/internal/worker/config"
	"web3-token-agent/internal/worker/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memMemory struct {
	mu   sync.Mutex
	msgs []*model.Message
}

func (m *memMemory) Append(ctx context.Context, msg *model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, msg)
	return nil
}

func (m *memMemory) Recent(ctx context.Context, agentID, roomID string, n int) ([]*model.Message, error) {
	return m.msgs, nil
}

type stubAction struct {
	name    string
	similes []string
	valid   bool
	reply   model.Content
	calls   int
	last    *model.Message
}

func (s *stubAction) Name() string        { return s.name }
func (s *stubAction) Similes() []string   { return s.similes }
func (s *stubAction) Description() string { return "stub" }
func (s *stubAction) Validate(ctx context.Context, msg *model.Message) bool {
	return s.valid
}
func (s *stubAction) Handle(ctx context.Context, msg *model.Message, cb Callback) error {
	s.calls++
	s.last = msg
	return cb(ctx, s.reply)
}

func TestDispatch_SelectsBySimile(t *testing.T) {
	mem := &memMemory{}
	rt := New(config.AgentConfig{ID: "agent"}, mem, zap.NewNop())
	score := &stubAction{name: "SCORE_TOKEN", similes: []string{"RATE_TOKEN"}, valid: true, reply: model.Content{Text: "done"}}
	rt.Register(score)

	var out Collector
	err := rt.Dispatch(context.Background(), &model.Message{RoomID: "r1", Content: model.Content{Action: "rate_token"}}, out.Callback)
	require.NoError(t, err)
	assert.Equal(t, 1, score.calls)
	require.Len(t, out.Contents, 1)
	assert.Equal(t, "done", out.Contents[0].Text)
	// 入站消息 + 回复都进入记忆
	assert.Len(t, mem.msgs, 2)
	assert.Equal(t, "agent", mem.msgs[0].AgentID)
}

func TestDispatch_ValidationFailureSkips(t *testing.T) {
	rt := New(config.AgentConfig{ID: "agent"}, nil, zap.NewNop())
	a := &stubAction{name: "SCORE_TOKEN", valid: false}
	rt.Register(a)

	require.NoError(t, rt.Dispatch(context.Background(), &model.Message{RoomID: "r1", Content: model.Content{Action: "SCORE_TOKEN"}}, nil))
	assert.Equal(t, 0, a.calls)
	assert.ErrorIs(t, rt.Dispatch(context.Background(), &model.Message{}, nil), ErrEmptyMessage)
}

func TestDispatch_AutoChainOnce(t *testing.T) {
	rt := New(config.AgentConfig{ID: "agent", AutoChain: true}, nil, zap.NewNop())
	score := &stubAction{name: "SCORE_TOKEN", valid: true, reply: model.Content{Text: "BUY", Action: "EXECUTE_TRADE"}}
	// trade 的回复再次指向 SCORE_TOKEN，不能无限串联
	trade := &stubAction{name: "EXECUTE_TRADE", valid: true, reply: model.Content{Text: "traded", Action: "SCORE_TOKEN"}}
	rt.Register(score, trade)

	var out Collector
	require.NoError(t, rt.Dispatch(context.Background(), &model.Message{RoomID: "r1", Content: model.Content{Action: "SCORE_TOKEN"}}, out.Callback))
	assert.Equal(t, 1, score.calls)
	assert.Equal(t, 1, trade.calls)
	require.Len(t, out.Contents, 2)
	assert.Equal(t, "traded", out.Contents[1].Text)
}

func TestDispatch_NoAutoChainByDefault(t *testing.T) {
	rt := New(config.AgentConfig{ID: "agent"}, nil, zap.NewNop())
	score := &stubAction{name: "SCORE_TOKEN", valid: true, reply: model.Content{Action: "EXECUTE_TRADE"}}
	trade := &stubAction{name: "EXECUTE_TRADE", valid: true}
	rt.Register(score, trade)

	require.NoError(t, rt.Dispatch(context.Background(), &model.Message{RoomID: "r1", Content: model.Content{Action: "SCORE_TOKEN"}}, nil))
	assert.Equal(t, 0, trade.calls)
}

func TestDispatchInbound_CannotImpersonateAgent(t *testing.T) {
	rt := New(config.AgentConfig{ID: "agent"}, nil, zap.NewNop())
	a := &stubAction{name: "EXECUTE_TRADE", valid: true}
	rt.Register(a)

	msg := &model.Message{AgentID: "other", UserID: "agent", RoomID: "r1", Content: model.Content{Action: "EXECUTE_TRADE"}}
	require.NoError(t, rt.DispatchInbound(context.Background(), msg, nil))
	require.NotNil(t, a.last)
	assert.Equal(t, "agent", a.last.AgentID)
	assert.Empty(t, a.last.UserID)
	assert.False(t, FromAgent(a.last))

	msg = &model.Message{UserID: "alice", RoomID: "r1", Content: model.Content{Action: "EXECUTE_TRADE"}}
	require.NoError(t, rt.DispatchInbound(context.Background(), msg, nil))
	assert.Equal(t, "alice", a.last.UserID)
	assert.False(t, FromAgent(a.last))

	assert.True(t, FromAgent(&model.Message{AgentID: "agent", UserID: "agent"}))
	assert.ErrorIs(t, rt.DispatchInbound(context.Background(), nil, nil), ErrEmptyMessage)
}
