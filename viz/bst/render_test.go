package bst

import (
	"testing"

	"github.com/sebdah/goldie/v2"
)

func TestRenderGolden(t *testing.T) {
	k := Key("40")
	tree := &Tree{
		ElementSize: 10,
		Root: &Node{
			Key:   "50",
			Left:  &Node{Key: "30", Right: &Node{Key: "40"}},
			Right: &Node{Key: "70"},
		},
		Highlight: &k,
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "tree", []byte(tree.Render()))
}
