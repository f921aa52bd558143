package comm

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalWorld_SendReceive(t *testing.T) {
	for _, depth := range []int{0, 1, 4} {
		w := NewLocalWorld(2, depth)
		a, b := w.Rank(0), w.Rank(1)
		assert.Equal(t, 0, a.Rank())
		assert.Equal(t, 2, b.Size())

		payload := []float64{1, 2, 3}
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, a.Send(payload, 1, 7))
		}()
		got := make([]float64, 3)
		require.NoError(t, b.Receive(got, 0, 7))
		wg.Wait()
		assert.Equal(t, payload, got, "depth %d", depth)
	}
}

func TestLocalWorld_SendCopiesPayload(t *testing.T) {
	w := NewLocalWorld(2, 1)
	payload := []float64{4, 5}
	require.NoError(t, w.Rank(0).Send(payload, 1, 0))
	payload[0] = -1
	got := make([]float64, 2)
	require.NoError(t, w.Rank(1).Receive(got, 0, 0))
	assert.Equal(t, []float64{4, 5}, got)
}

func TestLocalWorld_TagsAreIndependent(t *testing.T) {
	w := NewLocalWorld(2, 1)
	s := w.Rank(0)
	require.NoError(t, s.Send([]float64{1}, 1, 1))
	require.NoError(t, s.Send([]float64{2}, 1, 2))
	got := make([]float64, 1)
	require.NoError(t, w.Rank(1).Receive(got, 0, 2))
	assert.Equal(t, 2.0, got[0])
	require.NoError(t, w.Rank(1).Receive(got, 0, 1))
	assert.Equal(t, 1.0, got[0])
}

func TestLocalWorld_Errors(t *testing.T) {
	w := NewLocalWorld(2, 1)
	assert.ErrorIs(t, w.Rank(0).Send(nil, 2, 0), ErrRank)
	assert.ErrorIs(t, w.Rank(0).Receive(nil, -1, 0), ErrRank)

	require.NoError(t, w.Rank(0).Send([]float64{1, 2}, 1, 0))
	err := w.Rank(1).Receive(make([]float64, 3), 0, 0)
	assert.ErrorIs(t, err, ErrMessageSize)

	assert.Panics(t, func() { w.Rank(2) })
	assert.Panics(t, func() { NewLocalWorld(0, 0) })
}

func TestLocalWorld_AbortUnblocks(t *testing.T) {
	w := NewLocalWorld(2, 0)
	cause := errors.New("rank 1 failed")
	errs := make(chan error, 2)
	go func() { errs <- w.Rank(0).Receive(make([]float64, 1), 1, 0) }()
	go func() { errs <- w.Rank(0).Send([]float64{1}, 1, 3) }()

	time.Sleep(10 * time.Millisecond)
	assert.NoError(t, w.Err())
	w.Abort(cause)
	w.Abort(errors.New("ignored"))
	for i := 0; i < 2; i++ {
		select {
		case err := <-errs:
			assert.ErrorIs(t, err, ErrAborted)
			assert.ErrorIs(t, err, cause)
		case <-time.After(5 * time.Second):
			t.Fatal("blocked call did not observe abort")
		}
	}
	assert.ErrorIs(t, w.Err(), cause)
	assert.ErrorIs(t, w.Rank(1).Send([]float64{1}, 0, 0), ErrAborted)
}
