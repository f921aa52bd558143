package comm

import (
	"fmt"

	"github.com/btracey/mpi"
)

// Network is the multi-process Communicator backed by the mpi package's TCP
// transport. Addresses come from the -mpi-addr and -mpi-alladdr flags, so
// flag parsing must happen before Open.
type Network struct {
	rank, size int
}

// Open initializes the transport and returns this process's endpoint
func Open() (*Network, error) {
	if err := mpi.Init(); err != nil {
		return nil, fmt.Errorf("mpi init: %w", err)
	}
	n := &Network{rank: mpi.Rank(), size: mpi.Size()}
	if n.rank < 0 || n.size <= 0 {
		mpi.Finalize()
		return nil, fmt.Errorf("%w: mpi reports rank %d of %d", ErrRank, n.rank, n.size)
	}
	return n, nil
}

// Close finalizes the transport. The endpoint is unusable afterwards.
func (n *Network) Close() { mpi.Finalize() }

func (n *Network) Rank() int { return n.rank }
func (n *Network) Size() int { return n.size }

func (n *Network) Send(data []float64, dest, tag int) error {
	if dest < 0 || dest >= n.size {
		return fmt.Errorf("%w: %d of %d", ErrRank, dest, n.size)
	}
	if err := mpi.Send(data, dest, tag); err != nil {
		return fmt.Errorf("send to rank %d tag %d: %w", dest, tag, err)
	}
	return nil
}

// Receive decodes into a fresh slice since the payload length is only known
// after decoding
func (n *Network) Receive(data []float64, src, tag int) error {
	if src < 0 || src >= n.size {
		return fmt.Errorf("%w: %d of %d", ErrRank, src, n.size)
	}
	var msg []float64
	if err := mpi.Receive(&msg, src, tag); err != nil {
		return fmt.Errorf("receive from rank %d tag %d: %w", src, tag, err)
	}
	if len(msg) != len(data) {
		return fmt.Errorf("%w: got %d values from rank %d tag %d, expected %d",
			ErrMessageSize, len(msg), src, tag, len(data))
	}
	copy(data, msg)
	return nil
}
