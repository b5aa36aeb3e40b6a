package runtime

import (
	"context"

	"web3-token-agent/internal/worker/model"
)

// Callback 动作的唯一输出通道
type Callback func(ctx context.Context, content model.Content) error

type Action interface {
	Name() string
	Similes() []string
	Description() string
	Validate(ctx context.Context, msg *model.Message) bool
	Handle(ctx context.Context, msg *model.Message, cb Callback) error
}

// Collector 收集回调内容，同步入口（HTTP/CLI）使用
type Collector struct {
	Contents []model.Content
}

func (c *Collector) Callback(ctx context.Context, content model.Content) error {
	c.Contents = append(c.Contents, content)
	return nil
}
