// internal/delivery/wsserver/queue_test.go
package wsserver

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nastiakostenyuk/alert-server-v1/internal/types"
)

func TestPendingQueueFIFO(t *testing.T) {
	q := NewPendingQueue(8)
	q.Push(types.AlertPayload{Symbol: "BTCUSDT"})
	q.Push(types.AlertPayload{Symbol: "ETHUSDT"})

	first, ok := q.Pop()
	assert.True(t, ok)
	assert.Equal(t, "BTCUSDT", first.Symbol)

	second, ok := q.Pop()
	assert.True(t, ok)
	assert.Equal(t, "ETHUSDT", second.Symbol)
}

func TestPendingQueuePopEmpty(t *testing.T) {
	q := NewPendingQueue(8)

	_, ok := q.Pop()
	assert.False(t, ok)
}

func TestPendingQueueDropsOldestWhenFull(t *testing.T) {
	q := NewPendingQueue(2)
	q.Push(types.AlertPayload{Symbol: "BTCUSDT"})
	q.Push(types.AlertPayload{Symbol: "ETHUSDT"})
	q.Push(types.AlertPayload{Symbol: "SOLUSDT"})

	assert.Equal(t, 2, q.Len())

	first, _ := q.Pop()
	second, _ := q.Pop()
	assert.Equal(t, "ETHUSDT", first.Symbol)
	assert.Equal(t, "SOLUSDT", second.Symbol)
}

func TestPendingQueueDefaultSize(t *testing.T) {
	q := NewPendingQueue(0)

	for i := 0; i < 300; i++ {
		q.Push(types.AlertPayload{Symbol: "BTCUSDT"})
	}
	assert.Equal(t, 256, q.Len())
}
