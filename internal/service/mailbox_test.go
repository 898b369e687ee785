package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailboxFIFO(t *testing.T) {
	m := NewMailbox[int](nil)

	m.Push(1)
	m.Push(2)
	m.Push(3)
	require.Equal(t, 3, m.Len())

	for want := 1; want <= 3; want++ {
		got, ok := m.TryPop()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}

	_, ok := m.TryPop()
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
}

func TestMailboxPopEmptyNeverBlocks(t *testing.T) {
	m := NewMailbox[string](nil)

	got, ok := m.TryPop()
	assert.False(t, ok)
	assert.Equal(t, "", got)
}

func TestMailboxNotifyFiresPerPush(t *testing.T) {
	fired := 0
	m := NewMailbox[int](func() { fired++ })

	m.Push(1)
	m.Push(2)

	assert.Equal(t, 2, fired)
}

func TestMailboxConcurrentProducers(t *testing.T) {
	const producers = 8
	const perProducer = 100

	m := NewMailbox[int](nil)

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				m.Push(i)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, producers*perProducer, m.Len())

	drained := 0
	for {
		if _, ok := m.TryPop(); !ok {
			break
		}
		drained++
	}
	assert.Equal(t, producers*perProducer, drained)
}
