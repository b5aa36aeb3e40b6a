package consumer

import (
	"context"
	"sync"
	"testing"
	"time"

	"web3-token-agent/internal/worker/model"
	"web3-token-agent/internal/worker/runtime"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type echoDispatcher struct {
	mu    sync.Mutex
	rooms map[string][]string
}

func (d *echoDispatcher) DispatchInbound(ctx context.Context, msg *model.Message, cb runtime.Callback) error {
	d.mu.Lock()
	d.rooms[msg.RoomID] = append(d.rooms[msg.RoomID], msg.ID)
	d.mu.Unlock()
	return cb(ctx, model.Content{Text: "echo " + msg.Content.Text})
}

type memSink struct {
	mu    sync.Mutex
	items []model.Response
}

func (s *memSink) Submit(item model.Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, item)
}

func (s *memSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func TestMessageConsumer_PreservesRoomOrder(t *testing.T) {
	d := &echoDispatcher{rooms: map[string][]string{}}
	sink := &memSink{}
	mc := newMessageConsumer(nil, 3, zap.NewNop(), d, sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mc.startWorkers(ctx)

	ids := []string{"a", "b", "c", "d", "e"}
	for _, id := range ids {
		mc.HandleMessage(kafka.Message{Key: []byte("room-1"), Value: []byte(`{"id":"` + id + `","content":{"text":"hi"}}`)})
	}
	mc.HandleMessage(kafka.Message{Value: []byte(`not json`)})
	mc.HandleMessage(kafka.Message{Value: []byte(`{"id":"x"}`)})

	require.Eventually(t, func() bool { return sink.len() == len(ids) }, time.Second, 10*time.Millisecond)
	require.NoError(t, mc.Stop())

	assert.Equal(t, ids, d.rooms["room-1"])
	for _, r := range sink.items {
		assert.Equal(t, "room-1", r.RoomID)
		assert.Equal(t, "echo hi", r.Content.Text)
	}
	assert.Equal(t, "a", sink.items[0].InReplyTo)
}

func TestMessageConsumer_StopWhileBuffersFull(t *testing.T) {
	d := &echoDispatcher{rooms: map[string][]string{}}
	mc := newMessageConsumer(nil, 1, zap.NewNop(), d, &memSink{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// worker 立即退出，buffer 无人消费
	mc.startWorkers(ctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < workerBufferSize*2; i++ {
			mc.HandleMessage(kafka.Message{Key: []byte("room-1"), Value: []byte(`{"content":{"text":"hi"}}`)})
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch blocked after shutdown")
	}

	assert.NotPanics(t, func() { require.NoError(t, mc.Stop()) })
}
