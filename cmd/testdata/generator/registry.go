package generator

import (
	"fmt"
	"sort"
)

// Registry maps generator names to generator factory functions
var Registry = map[string]func() Generator{
	"dataset":  func() Generator { return &DatasetGenerator{Cols: 10} },
	"longline": func() Generator { return &LongLineGenerator{MaxLen: 64 << 10} },
}

// Get returns a generator by name
func Get(name string) (Generator, error) {
	factory, exists := Registry[name]
	if !exists {
		return nil, fmt.Errorf("unknown generator: %s", name)
	}
	return factory(), nil
}

// List returns all available generator names, sorted
func List() []string {
	names := make([]string, 0, len(Registry))
	for name := range Registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetCols updates the column count for DatasetGenerator
func SetCols(cols int) {
	Registry["dataset"] = func() Generator { return &DatasetGenerator{Cols: cols} }
}
