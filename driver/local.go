package driver

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/halogrid/comm"
	"github.com/notargets/halogrid/config"
	"github.com/notargets/halogrid/mesh"
)

// RunLocal runs n ranks as goroutines over an in-process world. When any
// rank fails the world is aborted so that no rank stays blocked, and the
// first failure that is not itself an abort is returned.
func RunLocal(s *config.Settings, n int, log logrus.FieldLogger) ([]*Result, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d local ranks", config.ErrSetup, n)
	}
	world := comm.NewLocalWorld(n, 0)
	results := make([]*Result, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for rank := 0; rank < n; rank++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := runRank(s, world.Rank(rank), log)
			if err != nil {
				errs[rank] = fmt.Errorf("rank %d: %w", rank, err)
				world.Abort(errs[rank])
				return
			}
			results[rank] = res
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil && !errors.Is(err, comm.ErrAborted) {
			return nil, err
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return results, nil
}

func runRank(s *config.Settings, c comm.Communicator, log logrus.FieldLogger) (*Result, error) {
	d, err := New(s, c, log)
	if err != nil {
		return nil, err
	}
	defer d.Close()
	return d.Run()
}

// Gather assembles the per-rank core fields into the global field. Blocks
// must lie inside the domain and add up to its cell count.
func Gather(results []*Result, domain mesh.GlobalDomain) (*mat.Dense, error) {
	global := mat.NewDense(domain.Rows, domain.Cols, nil)
	covered := 0
	for _, r := range results {
		rows, cols := r.Field.Dims()
		if r.RowOffset < 0 || r.ColOffset < 0 ||
			r.RowOffset+rows > domain.Rows || r.ColOffset+cols > domain.Cols {
			return nil, fmt.Errorf("rank %d block %dx%d at (%d,%d) outside %dx%d domain",
				r.Rank, rows, cols, r.RowOffset, r.ColOffset, domain.Rows, domain.Cols)
		}
		block := global.Slice(r.RowOffset, r.RowOffset+rows, r.ColOffset, r.ColOffset+cols).(*mat.Dense)
		block.Copy(r.Field)
		covered += rows * cols
	}
	if covered != domain.Rows*domain.Cols {
		return nil, fmt.Errorf("ranks cover %d cells of a %dx%d domain", covered, domain.Rows, domain.Cols)
	}
	return global, nil
}
