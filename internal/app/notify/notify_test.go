package notify

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishReachesAllSubscribers(t *testing.T) {
	h := NewHub[string]()

	var first, second []string
	h.Subscribe(func(s string) { first = append(first, s) })
	h.Subscribe(func(s string) { second = append(second, s) })
	require.Equal(t, 2, h.Len())

	h.Publish("one")
	h.Publish("two")

	assert.Equal(t, []string{"one", "two"}, first)
	assert.Equal(t, []string{"one", "two"}, second)
}

func TestHub_Unsubscribe(t *testing.T) {
	h := NewHub[int]()

	var got []int
	id := h.Subscribe(func(v int) { got = append(got, v) })

	h.Publish(1)
	h.Unsubscribe(id)
	h.Publish(2)

	assert.Equal(t, []int{1}, got)
	assert.Equal(t, 0, h.Len())

	// Unknown IDs are ignored.
	h.Unsubscribe("nope")
}

func TestHub_NextSequenceNo(t *testing.T) {
	h := NewHub[struct{}]()

	assert.Equal(t, uint64(1), h.NextSequenceNo())
	assert.Equal(t, uint64(2), h.NextSequenceNo())
}

func TestHub_ConcurrentPublish(t *testing.T) {
	h := NewHub[int]()

	var mu sync.Mutex
	count := 0
	h.Subscribe(func(int) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			h.Publish(v)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, count)
}
