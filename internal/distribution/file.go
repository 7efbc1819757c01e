package distribution

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// File is the YAML form of a distribution table.
//
//	name: office-block
//	counts:
//	  0: 2104
//	  1: 1814
type File struct {
	Name   string      `yaml:"name,omitempty"`
	Counts map[int]int `yaml:"counts"`
}

// Table converts the sparse YAML counts into a dense table.
func (f *File) Table() (Table, error) {
	maxK := -1
	for k := range f.Counts {
		if k < 0 {
			return nil, fmt.Errorf("events per second must be non-negative, got %d", k)
		}
		if k > MaxEventsPerSecond {
			return nil, fmt.Errorf("%w: %d events per second, limit %d", ErrTooLarge, k, MaxEventsPerSecond)
		}
		if k > maxK {
			maxK = k
		}
	}

	t := make(Table, maxK+1)
	for k, c := range f.Counts {
		t[k] = c
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// FromTable builds the YAML form of t, omitting zero counts.
func FromTable(name string, t Table) *File {
	f := &File{Name: name, Counts: make(map[int]int)}
	for k, c := range t {
		if c != 0 {
			f.Counts[k] = c
		}
	}
	return f
}

// Keys returns the event counts present in the file in increasing order.
func (f *File) Keys() []int {
	keys := make([]int, 0, len(f.Counts))
	for k := range f.Counts {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// LoadFile reads a distribution table from a YAML file.
func LoadFile(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading distribution file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing distribution file: %w", err)
	}
	if f.Counts == nil {
		return nil, fmt.Errorf("distribution file %s has no counts", path)
	}

	t, err := f.Table()
	if err != nil {
		return nil, fmt.Errorf("distribution file %s: %w", path, err)
	}
	return t, nil
}

// Marshal renders t as YAML.
func Marshal(name string, t Table) ([]byte, error) {
	data, err := yaml.Marshal(FromTable(name, t))
	if err != nil {
		return nil, fmt.Errorf("marshaling distribution: %w", err)
	}
	return data, nil
}

// Load returns the built-in table when path is empty, otherwise the table
// stored at path.
func Load(path string) (Table, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}
