// Package comm is the point-to-point message layer between ranks. Every
// call blocks; concurrency is achieved by the caller with goroutines.
package comm

import (
	"errors"
)

var (
	// ErrAborted is returned from blocked calls once any rank aborts the run
	ErrAborted = errors.New("run aborted")
	// ErrMessageSize reports a received message that does not fit the
	// destination slot
	ErrMessageSize = errors.New("message size mismatch")
	// ErrRank reports a peer rank outside [0, Size)
	ErrRank = errors.New("rank out of range")
)

// Communicator moves float64 payloads between ranks. Concurrent Send calls
// must use distinct {dest, tag} pairs; concurrent Receive calls distinct
// {src, tag} pairs. Receive fills data exactly and fails when the incoming
// payload has a different length.
type Communicator interface {
	Rank() int
	Size() int
	Send(data []float64, dest, tag int) error
	Receive(data []float64, src, tag int) error
}
