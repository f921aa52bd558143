// Package kernel holds the per-step update applied to the core of a tile.
// A kernel reads the current field, including its ghost layers, and writes
// the core of the next field. Ghost cells of the next field are never
// written.
package kernel

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/notargets/halogrid/mesh"
)

// Kernel writes the core of u1 from u0 for one step over tile
type Kernel interface {
	Step(tile *mesh.Tile, u0, u1 []float64) error
	Close() error
}

// Options configure a kernel backend
type Options struct {
	Dt     float64
	Device string // Backend specific device properties
	Log    logrus.FieldLogger
}

// Factory builds a backend from its options
type Factory func(opts Options) (Kernel, error)

var factories = map[string]Factory{
	"host": func(opts Options) (Kernel, error) { return NewDiffusion(opts.Dt) },
}

// Register adds a backend. It must be called during program initialization.
func Register(name string, f Factory) {
	if _, dup := factories[name]; dup {
		panic(fmt.Sprintf("kernel backend %q registered twice", name))
	}
	factories[name] = f
}

// New builds the named backend
func New(name string, opts Options) (Kernel, error) {
	f, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown kernel backend %q, have %v", name, Backends())
	}
	return f(opts)
}

// Backends lists the registered backend names
func Backends() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
