package comm

import (
	"fmt"
	"sync"
)

type route struct {
	src, dst, tag int
}

// LocalWorld connects size ranks living in one address space, one goroutine
// per rank. Messages travel over a channel per {src, dst, tag} route.
type LocalWorld struct {
	size  int
	depth int

	mu     sync.Mutex
	routes map[route]chan []float64

	done      chan struct{}
	abortOnce sync.Once
	cause     error
}

// NewLocalWorld creates a world of size ranks. depth is the number of
// messages a route holds before Send blocks; 0 makes every Send wait for
// the matching Receive.
func NewLocalWorld(size, depth int) *LocalWorld {
	if size <= 0 {
		panic(fmt.Sprintf("local world of %d ranks", size))
	}
	return &LocalWorld{
		size:   size,
		depth:  max(depth, 0),
		routes: make(map[route]chan []float64),
		done:   make(chan struct{}),
	}
}

func (w *LocalWorld) Size() int { return w.size }

// Rank returns the endpoint for rank r
func (w *LocalWorld) Rank(r int) Communicator {
	if r < 0 || r >= w.size {
		panic(fmt.Sprintf("rank %d outside local world of %d", r, w.size))
	}
	return &localRank{world: w, rank: r}
}

// Abort unblocks every pending and future call with ErrAborted. Only the
// first cause is kept.
func (w *LocalWorld) Abort(cause error) {
	w.abortOnce.Do(func() {
		w.cause = cause
		close(w.done)
	})
}

// Err is nil until the world is aborted
func (w *LocalWorld) Err() error {
	select {
	case <-w.done:
		return w.aborted()
	default:
		return nil
	}
}

func (w *LocalWorld) aborted() error {
	if w.cause == nil {
		return ErrAborted
	}
	return fmt.Errorf("%w: %w", ErrAborted, w.cause)
}

func (w *LocalWorld) channel(r route) chan []float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	ch, ok := w.routes[r]
	if !ok {
		ch = make(chan []float64, w.depth)
		w.routes[r] = ch
	}
	return ch
}

func (w *LocalWorld) checkPeer(peer int) error {
	if peer < 0 || peer >= w.size {
		return fmt.Errorf("%w: %d of %d", ErrRank, peer, w.size)
	}
	return nil
}

type localRank struct {
	world *LocalWorld
	rank  int
}

func (lr *localRank) Rank() int { return lr.rank }
func (lr *localRank) Size() int { return lr.world.size }

// Send copies data before queueing it, so the caller may reuse the slice as
// soon as Send returns
func (lr *localRank) Send(data []float64, dest, tag int) error {
	w := lr.world
	if err := w.checkPeer(dest); err != nil {
		return err
	}
	msg := append([]float64(nil), data...)
	select {
	case <-w.done:
		return w.aborted()
	default:
	}
	select {
	case w.channel(route{lr.rank, dest, tag}) <- msg:
		return nil
	case <-w.done:
		return w.aborted()
	}
}

func (lr *localRank) Receive(data []float64, src, tag int) error {
	w := lr.world
	if err := w.checkPeer(src); err != nil {
		return err
	}
	select {
	case <-w.done:
		return w.aborted()
	default:
	}
	select {
	case msg := <-w.channel(route{src, lr.rank, tag}):
		if len(msg) != len(data) {
			return fmt.Errorf("%w: rank %d got %d values from rank %d tag %d, expected %d",
				ErrMessageSize, lr.rank, len(msg), src, tag, len(data))
		}
		copy(data, msg)
		return nil
	case <-w.done:
		return w.aborted()
	}
}
