// Package bst animates a binary search tree. Its operations run on a
// replay.Engine[*Tree] and pause at every comparison so the search path can
// be stepped through and rewound.
package bst

import (
	"cmp"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DefaultElementSize is the node spacing used when none is configured.
const DefaultElementSize = 20

// Key is a tree key. Keys that read as numbers compare numerically and sort
// before all other keys, which compare as text.
type Key string

func (k Key) number() (float64, bool) {
	f, err := strconv.ParseFloat(string(k), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Compare returns -1, 0 or +1 as k sorts before, equal to or after o.
func (k Key) Compare(o Key) int {
	a, aok := k.number()
	b, bok := o.number()
	switch {
	case aok && bok:
		return cmp.Compare(a, b)
	case aok:
		return -1
	case bok:
		return 1
	}
	return strings.Compare(string(k), string(o))
}

// Node is a tree node.
type Node struct {
	Key         Key
	Left, Right *Node
}

// Settings holds display configuration that survives replay passes.
// It is read when a pass builds a fresh scene.
type Settings struct {
	ElementSize int
}

// Tree is the scene operations build. A fresh Tree is created for every
// replay pass.
type Tree struct {
	Root        *Node
	ElementSize int

	// Highlight is the key under inspection, if any.
	Highlight *Key
}

// NewScene returns a scene factory that reads the element size from s.
func NewScene(s *Settings) func() *Tree {
	return func() *Tree {
		size := s.ElementSize
		if size <= 0 {
			size = DefaultElementSize
		}
		return &Tree{ElementSize: size}
	}
}

func (t *Tree) highlight(key Key) {
	k := key
	t.Highlight = &k
}

func (t *Tree) clearHighlight() {
	t.Highlight = nil
}

// Keys returns the keys in order.
func (t *Tree) Keys() []Key {
	var keys []Key
	walk(t.Root, 0, func(n *Node, _ int) { keys = append(keys, n.Key) })
	return keys
}

// Height returns the number of levels in the tree.
func (t *Tree) Height() int {
	return height(t.Root)
}

func height(n *Node) int {
	if n == nil {
		return 0
	}
	return 1 + max(height(n.Left), height(n.Right))
}

func walk(n *Node, depth int, fn func(*Node, int)) {
	if n == nil {
		return
	}
	walk(n.Left, depth+1, fn)
	fn(n, depth)
	walk(n.Right, depth+1, fn)
}

// Render lays the tree out on a grid scaled by ElementSize and prints one
// line per node in key order. The highlighted node is marked with '*'.
func (t *Tree) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "bst size=%d nodes=%d height=%d\n", t.ElementSize, len(t.Keys()), t.Height())
	col := 0
	walk(t.Root, 0, func(n *Node, depth int) {
		mark := " "
		if t.Highlight != nil && t.Highlight.Compare(n.Key) == 0 {
			mark = "*"
		}
		fmt.Fprintf(&b, "%s %s (%d,%d)\n", mark, n.Key, col*t.ElementSize, depth*t.ElementSize)
		col++
	})
	return b.String()
}
