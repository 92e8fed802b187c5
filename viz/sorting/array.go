// Package sorting animates array algorithms: bubble sort and linear scan.
package sorting

import (
	"fmt"
	"slices"
	"strings"
)

// DefaultElementSize is the cell width used when none is configured.
const DefaultElementSize = 4

// Settings holds display configuration that survives replay passes.
type Settings struct {
	ElementSize int
}

// Array is the scene. A fresh Array is created for every replay pass.
type Array struct {
	Values      []int
	ElementSize int

	// Marked holds the indices under inspection.
	Marked []int

	// Settled is the number of trailing positions known to be in final order.
	Settled int
}

// NewScene returns a scene factory that reads the cell width from s.
func NewScene(s *Settings) func() *Array {
	return func() *Array {
		size := s.ElementSize
		if size <= 0 {
			size = DefaultElementSize
		}
		return &Array{ElementSize: size}
	}
}

func (a *Array) mark(idx ...int) {
	a.Marked = append(a.Marked[:0], idx...)
}

// Render prints the values in fixed-width cells and a marker row beneath.
// Settled cells are bracketed.
func (a *Array) Render() string {
	var vals, marks strings.Builder
	for i, v := range a.Values {
		cell := fmt.Sprint(v)
		if i >= len(a.Values)-a.Settled {
			cell = "[" + cell + "]"
		}
		fmt.Fprintf(&vals, "%-*s", a.ElementSize, cell)
		m := ""
		if slices.Contains(a.Marked, i) {
			m = "^"
		}
		fmt.Fprintf(&marks, "%-*s", a.ElementSize, m)
	}
	return fmt.Sprintf("array size=%d n=%d\n%s\n%s\n", a.ElementSize, len(a.Values),
		strings.TrimRight(vals.String(), " "), strings.TrimRight(marks.String(), " "))
}
