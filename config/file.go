// Package config reads the flat key/value run configuration. The native
// format is one "key value..." entry per line with # comments; files ending
// in .toml are read with a TOML decoder into the same flat mapping.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cast"
)

// ErrSetup reports an invalid or incomplete configuration
var ErrSetup = errors.New("setup error")

// File is a parsed configuration: keys map to the raw value text
type File struct {
	Name   string // Source path, may be empty
	values map[string]string
	used   map[string]bool
}

func newFile(name string) *File {
	return &File{Name: name, values: make(map[string]string), used: make(map[string]bool)}
}

// Parse reads the line oriented format. The first word on a line is the
// key and the rest, up to a #, is the value.
func Parse(r io.Reader, name string) (*File, error) {
	f := newFile(name)
	sc := bufio.NewScanner(r)
	for lineNo := 1; sc.Scan(); lineNo++ {
		line := sc.Text()
		if pos := strings.IndexByte(line, '#'); pos >= 0 {
			line = line[:pos]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		key := fields[0]
		if len(fields) == 1 {
			return nil, fmt.Errorf("%w: %s:%d: key %s was specified without a value",
				ErrSetup, name, lineNo, key)
		}
		if err := f.add(key, strings.Join(fields[1:], " ")); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", name, lineNo, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return f, nil
}

// ParseTOML reads a TOML document with only top level keys. Arrays become
// space separated values.
func ParseTOML(r io.Reader, name string) (*File, error) {
	var doc map[string]interface{}
	if _, err := toml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSetup, name, err)
	}
	f := newFile(name)
	for key, raw := range doc {
		value, err := flatten(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: key %s: %v", ErrSetup, name, key, err)
		}
		if err = f.add(key, value); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	return f, nil
}

func flatten(raw interface{}) (string, error) {
	switch v := raw.(type) {
	case map[string]interface{}:
		return "", errors.New("tables are not supported")
	case []interface{}:
		parts := make([]string, len(v))
		for i, elem := range v {
			s, err := cast.ToStringE(elem)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return strings.Join(parts, " "), nil
	default:
		return cast.ToStringE(v)
	}
}

// Load reads path, choosing the format by extension
func Load(path string) (*File, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSetup, err)
	}
	defer fd.Close()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return ParseTOML(fd, path)
	}
	return Parse(fd, path)
}

func (f *File) add(key, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: key %s was specified without a value", ErrSetup, key)
	}
	if _, dup := f.values[key]; dup {
		return fmt.Errorf("%w: duplicate key %s", ErrSetup, key)
	}
	f.values[key] = value
	return nil
}

// Set overrides a key, used for command line flags
func (f *File) Set(key, value string) {
	f.values[key] = value
}

func (f *File) Has(key string) bool {
	_, ok := f.values[key]
	return ok
}

// Keys returns the configured keys in sorted order
func (f *File) Keys() []string {
	keys := make([]string, 0, len(f.values))
	for k := range f.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Unused lists keys that no getter has asked for
func (f *File) Unused() []string {
	var keys []string
	for _, k := range f.Keys() {
		if !f.used[k] {
			keys = append(keys, k)
		}
	}
	return keys
}

func (f *File) lookup(key string) (string, bool) {
	v, ok := f.values[key]
	if ok {
		f.used[key] = true
	}
	return v, ok
}

func (f *File) String(key, def string) string {
	if v, ok := f.lookup(key); ok {
		return v
	}
	return def
}

func (f *File) Int(key string, def int) (int, error) {
	v, ok := f.lookup(key)
	if !ok {
		return def, nil
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return def, fmt.Errorf("%w: key %s: %v", ErrSetup, key, err)
	}
	return n, nil
}

func (f *File) Float(key string, def float64) (float64, error) {
	v, ok := f.lookup(key)
	if !ok {
		return def, nil
	}
	x, err := cast.ToFloat64E(v)
	if err != nil {
		return def, fmt.Errorf("%w: key %s: %v", ErrSetup, key, err)
	}
	return x, nil
}

func (f *File) Bool(key string, def bool) (bool, error) {
	v, ok := f.lookup(key)
	if !ok {
		return def, nil
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return def, fmt.Errorf("%w: key %s: %v", ErrSetup, key, err)
	}
	return b, nil
}

// Ints returns a whitespace separated list, nil when the key is absent
func (f *File) Ints(key string) ([]int, error) {
	v, ok := f.lookup(key)
	if !ok {
		return nil, nil
	}
	ns, err := cast.ToIntSliceE(strings.Fields(v))
	if err != nil {
		return nil, fmt.Errorf("%w: key %s: %v", ErrSetup, key, err)
	}
	return ns, nil
}

// Floats returns a whitespace separated list, nil when the key is absent
func (f *File) Floats(key string) ([]float64, error) {
	v, ok := f.lookup(key)
	if !ok {
		return nil, nil
	}
	words := strings.Fields(v)
	xs := make([]float64, len(words))
	for i, w := range words {
		x, err := cast.ToFloat64E(w)
		if err != nil {
			return nil, fmt.Errorf("%w: key %s: %v", ErrSetup, key, err)
		}
		xs[i] = x
	}
	return xs, nil
}
