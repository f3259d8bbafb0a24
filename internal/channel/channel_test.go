package channel

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	ID   int
	Tags []string
}

func TestChannel_SendTake(t *testing.T) {
	tx, rx := New[sample]()

	require.NoError(t, tx.Send(sample{ID: 1}))

	got, ok := rx.TryTake()
	require.True(t, ok, "take should succeed")
	assert.Equal(t, 1, got.ID)
}

func TestChannel_FIFO(t *testing.T) {
	tx, rx := New[int]()

	const n = 100
	for i := 1; i <= n; i++ {
		require.NoError(t, tx.Send(i))
	}

	for i := 1; i <= n; i++ {
		got, ok := rx.TryTake()
		require.True(t, ok)
		assert.Equal(t, i, got, "values must come out in send order")
	}

	_, ok := rx.TryTake()
	assert.False(t, ok)
}

func TestChannel_TryTake_Empty(t *testing.T) {
	_, rx := New[sample]()

	got, ok := rx.TryTake()
	assert.False(t, ok, "take from empty channel should return false")
	assert.Equal(t, sample{}, got, "empty take returns the zero value")
}

func TestChannel_TryTake_DoesNotBlockUnderProducerActivity(t *testing.T) {
	tx, rx := New[int]()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
				_ = tx.Send(i)
			}
		}
	}()

	for i := 0; i < 1000; i++ {
		start := time.Now()
		rx.TryTake()
		assert.Less(t, time.Since(start), 100*time.Millisecond, "TryTake must return promptly")
	}

	close(stop)
	wg.Wait()
}

func TestChannel_Len(t *testing.T) {
	tx, rx := New[int]()
	assert.Equal(t, 0, rx.Len())

	tx.Send(1)
	tx.Send(2)
	assert.Equal(t, 2, rx.Len())

	rx.TryTake()
	assert.Equal(t, 1, rx.Len())

	rx.TryTake()
	assert.Equal(t, 0, rx.Len())
}

func TestChannel_Close(t *testing.T) {
	tx, rx := New[int]()
	require.NoError(t, tx.Send(1))

	require.NoError(t, rx.Close())
	require.NoError(t, rx.Close(), "close is idempotent")

	err := tx.Send(2)
	assert.ErrorIs(t, err, ErrClosed)

	got, ok := rx.TryTake()
	require.True(t, ok, "values pending before close stay takeable")
	assert.Equal(t, 1, got)

	_, ok = rx.TryTake()
	assert.False(t, ok, "rejected send must not be enqueued")
}

func TestChannel_CloseVisibleToClones(t *testing.T) {
	tx, rx := New[int]()
	clone := tx.Clone()

	rx.Close()

	assert.ErrorIs(t, tx.Send(1), ErrClosed)
	assert.ErrorIs(t, clone.Send(1), ErrClosed)
}

func TestChannel_CloneSharesQueue(t *testing.T) {
	tx, rx := New[string]()
	a := tx.Clone()
	b := tx.Clone()

	a.Send("a")
	b.Send("b")
	tx.Send("c")

	var got []string
	for {
		v, ok := rx.TryTake()
		if !ok {
			break
		}
		got = append(got, v)
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestChannel_ConcurrentClones_NoLossNoDuplication(t *testing.T) {
	tx, rx := New[int]()

	const producers = 8
	const perProducer = 500

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int, h *Producer[int]) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				if err := h.Send(p*perProducer + i); err != nil {
					t.Errorf("send: %v", err)
					return
				}
			}
		}(p, tx.Clone())
	}

	// Drain concurrently while producers run.
	seen := make(map[int]int)
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	drain := func() {
		for {
			v, ok := rx.TryTake()
			if !ok {
				return
			}
			seen[v]++
		}
	}

loop:
	for {
		select {
		case <-done:
			break loop
		default:
			drain()
		}
	}
	drain()

	require.Len(t, seen, producers*perProducer, "every sent value must be observed")
	for v, n := range seen {
		assert.Equal(t, 1, n, "value %d observed %d times", v, n)
	}
}

func TestChannel_PerProducerOrderPreserved(t *testing.T) {
	tx, rx := New[[2]int]()

	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func(p int, h *Producer[[2]int]) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				h.Send([2]int{p, i})
			}
		}(p, tx.Clone())
	}
	wg.Wait()

	last := map[int]int{0: -1, 1: -1, 2: -1, 3: -1}
	for {
		v, ok := rx.TryTake()
		if !ok {
			break
		}
		assert.Greater(t, v[1], last[v[0]], "producer %d out of order", v[0])
		last[v[0]] = v[1]
	}
	for p, i := range last {
		assert.Equal(t, 199, i, "producer %d incomplete", p)
	}
}

func TestChannel_TakeResetsWhenDrained(t *testing.T) {
	tx, rx := New[*sample]()

	tx.Send(&sample{ID: 1, Tags: []string{"x"}})
	tx.Send(&sample{ID: 2})

	first, ok := rx.TryTake()
	require.True(t, ok)
	assert.Equal(t, 1, first.ID)

	second, ok := rx.TryTake()
	require.True(t, ok)
	assert.Equal(t, 2, second.ID)

	rx.q.mu.Lock()
	defer rx.q.mu.Unlock()
	assert.Empty(t, rx.q.values)
	assert.Nil(t, rx.q.values[:1][0], "drained slot must not retain the taken pointer")
}

func TestChannel_Stats(t *testing.T) {
	tx, rx := New[int]()
	tx.Send(1)
	tx.Send(2)
	tx.Send(3)
	rx.TryTake()

	st := rx.Stats()
	assert.Equal(t, int64(3), st.Sent)
	assert.Equal(t, int64(1), st.Taken)
	assert.Equal(t, 2, st.Pending)
	assert.False(t, st.Closed)

	rx.Close()
	tx.Send(4)
	st = rx.Stats()
	assert.Equal(t, int64(3), st.Sent, "rejected sends are not counted")
	assert.True(t, st.Closed)
}
