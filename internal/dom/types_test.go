// internal/dom/types_test.go
package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRectIntersect(t *testing.T) {
	viewport := Rect{X: 0, Y: 0, Width: 1024, Height: 768}

	t.Run("fully inside", func(t *testing.T) {
		r := Rect{X: 100, Y: 100, Width: 200, Height: 50}
		got := r.Intersect(viewport)
		assert.Equal(t, r, got)
		assert.Equal(t, 10000.0, got.Area())
	})

	t.Run("partially below the fold", func(t *testing.T) {
		// 150px tall element starting at y=700 in a 768px viewport leaves 68px visible.
		r := Rect{X: 0, Y: 700, Width: 100, Height: 150}
		got := r.Intersect(viewport)
		assert.Equal(t, 68.0, got.Height)
		assert.InDelta(t, 68.0/150.0, got.Area()/r.Area(), 1e-9)
	})

	t.Run("disjoint", func(t *testing.T) {
		r := Rect{X: 2000, Y: 0, Width: 10, Height: 10}
		assert.Equal(t, 0.0, r.Intersect(viewport).Area())
	})

	t.Run("zero size", func(t *testing.T) {
		r := Rect{X: 10, Y: 10}
		assert.Equal(t, 0.0, r.Area())
		assert.Equal(t, 0.0, r.Intersect(viewport).Area())
	})
}

func TestRectContains(t *testing.T) {
	r := Rect{X: 10, Y: 10, Width: 100, Height: 100}
	assert.True(t, r.Contains(10, 10))
	assert.True(t, r.Contains(59, 59))
	assert.False(t, r.Contains(110, 59), "right edge is exclusive")
	assert.False(t, r.Contains(5, 59))
}

func TestComputedStyleDefaults(t *testing.T) {
	var cs ComputedStyle
	assert.Equal(t, "block", cs.Display())
	assert.Equal(t, "visible", cs.Visibility())
	assert.Equal(t, "auto", cs.PointerEvents())

	opacity, err := cs.Opacity()
	require.NoError(t, err)
	assert.Equal(t, 1.0, opacity)
}

func TestComputedStyleOpacityParseFailure(t *testing.T) {
	cs := ComputedStyle{"opacity": "garbage"}
	_, err := cs.Opacity()
	assert.Error(t, err)
}

func TestTransformCollapses(t *testing.T) {
	tests := []struct {
		transform string
		want      bool
	}{
		{"none", false},
		{"scale(1)", false},
		{"scale(0)", true},
		{"scale(0.005)", true},
		{"scale(1, 0)", true},
		{"scale(0.5, 0.5)", false},
		{"matrix(1, 0, 0, 1, 10, 10)", false},
		{"matrix(0, 0, 0, 1, 0, 0)", true},
		{"translateX(10px)", false},
		{"scale(bogus)", true}, // unreadable fails closed
	}
	for _, tt := range tests {
		t.Run(tt.transform, func(t *testing.T) {
			cs := ComputedStyle{"transform": tt.transform}
			assert.Equal(t, tt.want, cs.TransformCollapses())
		})
	}
}

func TestClipPathHides(t *testing.T) {
	assert.False(t, ComputedStyle{"clip-path": "none"}.ClipPathHides())
	assert.False(t, ComputedStyle{"clip-path": "inset(10%)"}.ClipPathHides())
	assert.True(t, ComputedStyle{"clip-path": "inset(50%)"}.ClipPathHides())
	assert.True(t, ComputedStyle{"clip-path": "inset(100%)"}.ClipPathHides())
}

func TestElementDescribe(t *testing.T) {
	el := &Element{
		Tag:   "button",
		Attrs: map[string]string{"id": "save", "class": "btn primary"},
	}
	assert.Equal(t, "button#save.btn.primary", el.Describe())

	bare := &Element{Tag: "div", Attrs: map[string]string{}}
	assert.Equal(t, "div", bare.Describe())
}

func TestElementPathIdentity(t *testing.T) {
	a := &Element{Path: []int{0, 1, 2}}
	b := &Element{Path: []int{0, 1, 2}}
	child := &Element{Path: []int{0, 1, 2, 0}}
	sibling := &Element{Path: []int{0, 1, 3}}

	assert.True(t, a.SameNode(b))
	assert.False(t, a.SameNode(child))

	assert.True(t, a.Related(b))
	assert.True(t, a.Related(child), "descendant counts as related")
	assert.True(t, child.Related(a), "ancestor counts as related")
	assert.False(t, a.Related(sibling))
}

func TestElementFocusable(t *testing.T) {
	assert.True(t, (&Element{Tag: "button", Attrs: map[string]string{}}).Focusable())
	assert.True(t, (&Element{Tag: "a", Attrs: map[string]string{}}).Focusable())
	assert.False(t, (&Element{Tag: "div", Attrs: map[string]string{}}).Focusable())
	assert.True(t, (&Element{Tag: "div", Attrs: map[string]string{"tabindex": "0"}}).Focusable())
	assert.False(t, (&Element{Tag: "div", Attrs: map[string]string{"tabindex": "-1"}}).Focusable())
	assert.True(t, (&Element{Tag: "div", Attrs: map[string]string{"contenteditable": "true"}}).Focusable())
}

func TestElementDisabled(t *testing.T) {
	assert.True(t, (&Element{Tag: "button", Attrs: map[string]string{"disabled": ""}}).Disabled())
	assert.True(t, (&Element{Tag: "button", Attrs: map[string]string{"aria-disabled": "true"}}).Disabled())
	assert.False(t, (&Element{Tag: "button", Attrs: map[string]string{"aria-disabled": "false"}}).Disabled())
	assert.False(t, (&Element{Tag: "button", Attrs: map[string]string{}}).Disabled())
}

func TestAnalyzeSelector(t *testing.T) {
	tests := []struct {
		selector string
		check    func(t *testing.T, cost SelectorCost)
	}{
		{"#id", func(t *testing.T, c SelectorCost) {
			assert.False(t, c.Expensive(4))
		}},
		{"div *", func(t *testing.T, c SelectorCost) {
			assert.True(t, c.Universal)
		}},
		{"[data-x*=foo]", func(t *testing.T, c SelectorCost) {
			assert.True(t, c.AttributeMatch)
			assert.False(t, c.Universal, "*= is not a universal selector")
		}},
		{"ul li:nth-child(3)", func(t *testing.T, c SelectorCost) {
			assert.True(t, c.PositionalPseudo)
		}},
		{".-webkit-scrollbar", func(t *testing.T, c SelectorCost) {
			assert.True(t, c.VendorPrefixed)
		}},
		{"a b c d e", func(t *testing.T, c SelectorCost) {
			assert.Equal(t, 5, c.CompoundParts)
			assert.True(t, c.Expensive(4))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			tt.check(t, AnalyzeSelector(tt.selector))
		})
	}
}

func TestInferPagePath(t *testing.T) {
	assert.Equal(t, "dashboard", InferPagePath("#dashboard-nav .item"))
	assert.Equal(t, "settings", InferPagePath(".Settings-panel"))
	assert.Equal(t, "", InferPagePath("#save-button"))
}
