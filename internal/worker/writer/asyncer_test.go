package writer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type recordingWriter struct {
	mu      sync.Mutex
	batches [][]int
	closed  bool
}

func (r *recordingWriter) BWrite(ctx context.Context, batch []int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, append([]int(nil), batch...))
	return nil
}

func (r *recordingWriter) Close() error {
	r.closed = true
	return nil
}

func TestAsyncBatchWriter_FlushesBySizeAndOnClose(t *testing.T) {
	w := &recordingWriter{}
	b := NewAsyncBatchWriter[int](zap.NewNop(), w, 2, time.Hour, "test", 1)
	b.Start(context.Background())

	for i := 0; i < 5; i++ {
		b.Submit(i)
	}
	b.Close()

	total := 0
	for _, batch := range w.batches {
		assert.LessOrEqual(t, len(batch), 2)
		total += len(batch)
	}
	assert.Equal(t, 5, total)
	assert.True(t, w.closed)
}

func TestAsyncBatchWriter_FlushesOnInterval(t *testing.T) {
	w := &recordingWriter{}
	b := NewAsyncBatchWriter[int](zap.NewNop(), w, 100, 20*time.Millisecond, "test_interval", 1)
	b.Start(context.Background())
	defer b.Close()

	b.Submit(7)
	assert.Eventually(t, func() bool {
		w.mu.Lock()
		defer w.mu.Unlock()
		return len(w.batches) == 1
	}, time.Second, 10*time.Millisecond)
}
