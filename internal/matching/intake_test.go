package matching

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntakeQueue_FIFOAcrossPushes(t *testing.T) {
	q := newIntakeQueue()
	for i := uint64(1); i <= 5; i++ {
		o, err := NewLimitOrder(i, SideBuy, NewPrice(10, 0), 1)
		require.NoError(t, err)
		assert.True(t, q.push(task{kind: taskSubmit, order: o}))
	}

	for i := uint64(1); i <= 5; i++ {
		tk, ok := q.popBlocking()
		require.True(t, ok)
		assert.Equal(t, i, tk.order.ID())
	}
}

func TestIntakeQueue_PopBlocksUntilPush(t *testing.T) {
	q := newIntakeQueue()
	done := make(chan task, 1)
	go func() {
		tk, ok := q.popBlocking()
		if ok {
			done <- tk
		}
	}()

	select {
	case <-done:
		t.Fatal("popBlocking returned before any push")
	case <-time.After(20 * time.Millisecond):
	}

	o, err := NewLimitOrder(1, SideBuy, NewPrice(10, 0), 1)
	require.NoError(t, err)
	q.push(task{kind: taskSubmit, order: o})

	select {
	case tk := <-done:
		assert.Equal(t, uint64(1), tk.order.ID())
	case <-time.After(time.Second):
		t.Fatal("popBlocking never woke up after push")
	}
}

func TestIntakeQueue_ShutdownWithDrainServesQueuedTasks(t *testing.T) {
	q := newIntakeQueue()
	for i := uint64(1); i <= 3; i++ {
		o, err := NewLimitOrder(i, SideBuy, NewPrice(10, 0), 1)
		require.NoError(t, err)
		q.push(task{kind: taskSubmit, order: o})
	}
	q.shutdown(true)

	for i := uint64(1); i <= 3; i++ {
		tk, ok := q.popBlocking()
		require.True(t, ok)
		assert.Equal(t, i, tk.order.ID())
	}

	_, ok := q.popBlocking()
	assert.False(t, ok)
}

func TestIntakeQueue_ShutdownWithoutDrainDiscardsQueuedTasks(t *testing.T) {
	q := newIntakeQueue()
	o, err := NewLimitOrder(1, SideBuy, NewPrice(10, 0), 1)
	require.NoError(t, err)
	q.push(task{kind: taskSubmit, order: o})
	q.shutdown(false)

	_, ok := q.popBlocking()
	assert.False(t, ok)
}

func TestIntakeQueue_ShutdownIsIdempotent(t *testing.T) {
	q := newIntakeQueue()
	queued, err := NewLimitOrder(1, SideBuy, NewPrice(10, 0), 1)
	require.NoError(t, err)
	require.True(t, q.push(task{kind: taskSubmit, order: queued}))

	q.shutdown(true)
	q.shutdown(false) // second call must not turn drain off

	o, err := NewLimitOrder(2, SideBuy, NewPrice(10, 0), 1)
	require.NoError(t, err)
	assert.False(t, q.push(task{kind: taskSubmit, order: o}), "push after shutdown must be a no-op")

	tk, ok := q.popBlocking()
	require.True(t, ok, "drain chosen by the first shutdown must still apply")
	assert.Equal(t, uint64(1), tk.order.ID())
}

func TestIntakeQueue_ConcurrentPushersPreserveSubmitOrderPerGoroutine(t *testing.T) {
	q := newIntakeQueue()
	var wg sync.WaitGroup
	const perGoroutine = 100

	// Each goroutine pushes a monotonically increasing id; the queue
	// serialises pushes under its mutex so no push is lost even though
	// the interleaving across goroutines is unspecified.
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(base uint64) {
			defer wg.Done()
			for i := uint64(0); i < perGoroutine; i++ {
				o, err := NewLimitOrder(base+i, SideBuy, NewPrice(10, 0), 1)
				assert.NoError(t, err)
				q.push(task{kind: taskSubmit, order: o})
			}
		}(uint64(g) * perGoroutine)
	}
	wg.Wait()

	seen := make(map[uint64]bool)
	lastByGoroutine := make(map[uint64]uint64)
	for i := 0; i < 4*perGoroutine; i++ {
		tk, ok := q.popBlocking()
		require.True(t, ok)
		assert.False(t, seen[tk.order.ID()], "no id should be delivered twice")
		seen[tk.order.ID()] = true

		g := tk.order.ID() / perGoroutine
		if prev, ok := lastByGoroutine[g]; ok {
			assert.Greater(t, tk.order.ID(), prev, "one goroutine's ids must come out in the order it pushed them")
		}
		lastByGoroutine[g] = tk.order.ID()
	}
	assert.Len(t, seen, 4*perGoroutine)
}
