// internal/dom/types.go
package dom

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// -- Geometry --

// Rect is a viewport-relative rectangle, the shape getBoundingClientRect hands back.
type Rect struct {
	X, Y, Width, Height float64
}

// Right returns the right edge.
func (r Rect) Right() float64 { return r.X + r.Width }

// Bottom returns the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Area returns the rectangle's area.
func (r Rect) Area() float64 {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	return r.Width * r.Height
}

// Center returns the rectangle's center point.
func (r Rect) Center() (float64, float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Intersect returns the overlap of two rectangles (zero-sized when disjoint).
func (r Rect) Intersect(other Rect) Rect {
	x1 := maxf(r.X, other.X)
	y1 := maxf(r.Y, other.Y)
	x2 := minf(r.Right(), other.Right())
	y2 := minf(r.Bottom(), other.Bottom())
	if x2 <= x1 || y2 <= y1 {
		return Rect{}
	}
	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// Contains reports whether the point lies inside the rectangle.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x < r.Right() && y >= r.Y && y < r.Bottom()
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// -- Computed Style --

// ComputedStyle is the subset of resolved style the visibility algorithm
// reads. Missing properties fall back to their initial values via Lookup.
type ComputedStyle map[string]string

// Lookup returns the property value or the fallback when absent.
func (cs ComputedStyle) Lookup(property, fallback string) string {
	if cs == nil {
		return fallback
	}
	if v, ok := cs[property]; ok && v != "" {
		return v
	}
	return fallback
}

// Display returns the computed display value.
func (cs ComputedStyle) Display() string { return cs.Lookup("display", "block") }

// Visibility returns the computed visibility value.
func (cs ComputedStyle) Visibility() string { return cs.Lookup("visibility", "visible") }

// PointerEvents returns the computed pointer-events value.
func (cs ComputedStyle) PointerEvents() string { return cs.Lookup("pointer-events", "auto") }

// Position returns the computed position value.
func (cs ComputedStyle) Position() string { return cs.Lookup("position", "static") }

// Opacity parses the computed opacity. A value that does not parse is an
// error; the caller decides how to fail.
func (cs ComputedStyle) Opacity() (float64, error) {
	raw := cs.Lookup("opacity", "1")
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("opacity %q: %w", raw, err)
	}
	return v, nil
}

var (
	scaleFnRegex  = regexp.MustCompile(`scale\(\s*([0-9.eE+-]+)\s*(?:,\s*([0-9.eE+-]+)\s*)?\)`)
	matrixFnRegex = regexp.MustCompile(`matrix\(\s*([0-9.eE+-]+)\s*,\s*[0-9.eE+-]+\s*,\s*[0-9.eE+-]+\s*,\s*([0-9.eE+-]+)`)
	insetFnRegex  = regexp.MustCompile(`inset\(\s*([0-9.]+)%`)
)

// nearZeroScale is the scale below which a transform collapses the element.
const nearZeroScale = 0.01

// TransformCollapses reports whether the computed transform scales the element
// to zero or near-zero size.
func (cs ComputedStyle) TransformCollapses() bool {
	raw := cs.Lookup("transform", "none")
	if raw == "none" {
		return false
	}
	if m := scaleFnRegex.FindStringSubmatch(raw); m != nil {
		sx, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return true // Unreadable transform fails closed.
		}
		sy := sx
		if m[2] != "" {
			if v, err := strconv.ParseFloat(m[2], 64); err == nil {
				sy = v
			}
		}
		return absf(sx) < nearZeroScale || absf(sy) < nearZeroScale
	}
	if m := matrixFnRegex.FindStringSubmatch(raw); m != nil {
		a, errA := strconv.ParseFloat(m[1], 64)
		d, errD := strconv.ParseFloat(m[2], 64)
		if errA != nil || errD != nil {
			return true
		}
		return absf(a) < nearZeroScale || absf(d) < nearZeroScale
	}
	return false
}

// ClipPathHides reports whether the computed clip-path fully occludes the
// element, e.g. inset(100%).
func (cs ComputedStyle) ClipPathHides() bool {
	raw := cs.Lookup("clip-path", "none")
	if raw == "none" {
		return false
	}
	if m := insetFnRegex.FindStringSubmatch(raw); m != nil {
		pct, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return false
		}
		return pct >= 50 // inset of 50% from every edge leaves nothing.
	}
	return false
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// -- Element Snapshot --

// Element is a point-in-time snapshot of a DOM node: geometry, the style
// subset the engine reads, and enough ancestry to answer relationship
// questions. Snapshots are never cached across DOM mutations.
type Element struct {
	Tag   string
	Attrs map[string]string
	Style ComputedStyle
	// Rect is the viewport-relative bounding rectangle.
	Rect Rect
	// Path is the element's child-index path from the document root. Two
	// snapshots refer to the same node iff their paths are equal.
	Path []int
	// ShadowHost is set when the element's parent node is a shadow root.
	ShadowHost *Element
	// Detached mirrors offsetParent == null. Fixed-position elements are
	// detached yet still visible-eligible.
	Detached bool
}

// Attr returns an attribute value and whether it was present.
func (e *Element) Attr(name string) (string, bool) {
	v, ok := e.Attrs[name]
	return v, ok
}

// Describe renders a compact "tag#id.class" description for reports.
func (e *Element) Describe() string {
	var b strings.Builder
	b.WriteString(e.Tag)
	if id, ok := e.Attrs["id"]; ok && id != "" {
		b.WriteString("#")
		b.WriteString(id)
	}
	if class, ok := e.Attrs["class"]; ok && class != "" {
		for _, c := range strings.Fields(class) {
			b.WriteString(".")
			b.WriteString(c)
		}
	}
	return b.String()
}

// SameNode reports whether both snapshots refer to the same DOM node.
func (e *Element) SameNode(other *Element) bool {
	if e == nil || other == nil {
		return false
	}
	if len(e.Path) != len(other.Path) {
		return false
	}
	for i := range e.Path {
		if e.Path[i] != other.Path[i] {
			return false
		}
	}
	return true
}

// Related reports whether other is the same node, an ancestor, or a
// descendant of e. The occlusion test treats any of these as "not occluded".
func (e *Element) Related(other *Element) bool {
	if e == nil || other == nil {
		return false
	}
	shorter, longer := e.Path, other.Path
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	for i := range shorter {
		if shorter[i] != longer[i] {
			return false
		}
	}
	return true
}

// nativelyFocusableTags are elements the browser places in tab order without
// an explicit tabindex.
var nativelyFocusableTags = map[string]bool{
	"a": true, "button": true, "input": true, "select": true,
	"textarea": true, "details": true, "summary": true, "iframe": true,
}

// Focusable reports whether the element can receive keyboard focus: natively
// focusable, carrying a non-negative tabindex, or contenteditable.
func (e *Element) Focusable() bool {
	if nativelyFocusableTags[strings.ToLower(e.Tag)] {
		return true
	}
	if raw, ok := e.Attrs["tabindex"]; ok {
		if idx, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && idx >= 0 {
			return true
		}
	}
	if v, ok := e.Attrs["contenteditable"]; ok && v != "false" {
		return true
	}
	return false
}

// Disabled reports whether the element is disabled natively or via ARIA.
func (e *Element) Disabled() bool {
	if _, ok := e.Attrs["disabled"]; ok {
		return true
	}
	return e.Attrs["aria-disabled"] == "true"
}
