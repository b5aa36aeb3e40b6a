package runtime

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"web3-token-agent/internal/worker/config"
	"web3-token-agent/internal/worker/dao"
	"web3-token-agent/internal/worker/model"
	"web3-token-agent/internal/worker/monitor"
	"web3-token-agent/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrEmptyMessage = errors.New("message has no room or content")

// Runtime 按 content.action 把消息路由到已注册的 Action
type Runtime struct {
	cfg     config.AgentConfig
	memory  dao.MemoryDAO
	tl      *zap.Logger
	mu      sync.RWMutex
	actions []Action
}

func New(cfg config.AgentConfig, memory dao.MemoryDAO, tl *zap.Logger) *Runtime {
	return &Runtime{cfg: cfg, memory: memory, tl: tl}
}

func (r *Runtime) AgentID() string {
	return r.cfg.ID
}

func (r *Runtime) Register(actions ...Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, actions...)
}

// Lookup 按名称或别名查找，大小写不敏感
func (r *Runtime) Lookup(name string) Action {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.actions {
		if a.Name() == name {
			return a
		}
		for _, s := range a.Similes() {
			if s == name {
				return a
			}
		}
	}
	return nil
}

func (r *Runtime) remember(ctx context.Context, msg *model.Message) {
	if r.memory == nil {
		return
	}
	if err := r.memory.Append(ctx, msg); err != nil {
		r.tl.Warn("failed to store room memory", zap.String("room_id", msg.RoomID), zap.Error(err))
	}
}

// FromAgent 消息由 agent 自身产生（动作串联、定时任务）
func FromAgent(msg *model.Message) bool {
	return msg != nil && msg.AgentID != "" && msg.UserID == msg.AgentID
}

// DispatchInbound 供 HTTP、kafka 等外部入口使用，agent 身份以配置为准，外部消息不能冒充 agent 自己
func (r *Runtime) DispatchInbound(ctx context.Context, msg *model.Message, cb Callback) error {
	if msg == nil {
		return ErrEmptyMessage
	}
	msg.AgentID = r.cfg.ID
	if msg.UserID == r.cfg.ID {
		msg.UserID = ""
	}
	return r.Dispatch(ctx, msg, cb)
}

// Dispatch 存入记忆、选择动作、校验并执行
func (r *Runtime) Dispatch(ctx context.Context, msg *model.Message, cb Callback) error {
	return r.dispatch(ctx, msg, cb, r.cfg.AutoChain)
}

func (r *Runtime) dispatch(ctx context.Context, msg *model.Message, cb Callback, chain bool) error {
	if msg == nil || msg.RoomID == "" {
		return ErrEmptyMessage
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.AgentID == "" {
		msg.AgentID = r.cfg.ID
	}
	if msg.CreatedAt == 0 {
		msg.CreatedAt = time.Now().UnixMilli()
	}

	ctx, span := logger.StartMessageSpan(ctx, msg.Content.Source, msg.RoomID, msg.Content.Action)
	defer span.End()
	tl := logger.WithTrace(ctx, r.tl).With(zap.String("room_id", msg.RoomID), zap.String("message_id", msg.ID))

	r.remember(ctx, msg)

	action := r.Lookup(msg.Content.Action)
	if action == nil {
		tl.Debug("no action for message", zap.String("action", msg.Content.Action))
		return nil
	}
	if !action.Validate(ctx, msg) {
		tl.Info("action validation failed, skip", zap.String("action", action.Name()))
		return nil
	}

	var followUps []model.Content
	wrapped := func(ctx context.Context, content model.Content) error {
		reply := &model.Message{
			ID:        uuid.NewString(),
			AgentID:   msg.AgentID,
			UserID:    msg.AgentID,
			RoomID:    msg.RoomID,
			Content:   content,
			CreatedAt: time.Now().UnixMilli(),
		}
		r.remember(ctx, reply)
		if chain && content.Action != "" && r.Lookup(content.Action) != nil {
			followUps = append(followUps, content)
		}
		if cb == nil {
			return nil
		}
		return cb(ctx, content)
	}

	start := time.Now()
	err := action.Handle(ctx, msg, wrapped)
	monitor.ActionDuration.WithLabelValues(action.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		tl.Error("action failed", zap.String("action", action.Name()), zap.Error(err))
		return err
	}

	// 自动串联只展开一层
	for _, content := range followUps {
		next := &model.Message{
			AgentID: msg.AgentID,
			UserID:  msg.AgentID,
			RoomID:  msg.RoomID,
			Content: content,
		}
		next.Content.Source = msg.Content.Source
		if err := r.dispatch(ctx, next, cb, false); err != nil {
			tl.Warn("follow-up action failed", zap.String("action", content.Action), zap.Error(err))
		}
	}
	return nil
}
