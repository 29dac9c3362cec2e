// internal/dom/memdom/memdom.go
//
// Package memdom provides an in-memory dom.Document built from parsed HTML.
// Geometry is carried in data-tg-* attributes because a static tree has no
// layout engine behind it:
//
//	data-tg-rect="x y w h"  viewport-relative bounding rectangle
//	data-tg-fixed           offsetParent == null (fixed positioning)
//	data-tg-shadow          element children live in this host's shadow root
//	data-tg-z="n"           paint order for hit testing
//
// Mutators signal subscribers so waiter code exercises the same wakeup path a
// live MutationObserver drives.
package memdom

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/xkilldash9x/tourguard-cli/internal/dom"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// node is one element in the tree. Text nodes are not represented; the engine
// only reads element structure, attributes, and text content of its target.
type node struct {
	tag      string
	attrs    map[string]string
	parent   *node
	children []*node
	// shadowHost points at the nearest ancestor carrying data-tg-shadow.
	shadowHost *node
	path       []int
	text       string
}

// Document is an in-memory dom.Document plus the mutation hooks tests use.
type Document struct {
	mu       sync.RWMutex
	viewport dom.Rect
	scrollX  float64
	scrollY  float64
	frame    dom.FrameInfo
	frameErr error
	scrollErr error
	hitErr   error
	root     *node
	nodes    []*node // document order

	mutations chan struct{}
}

// New parses an HTML fragment into a document with the given viewport size.
func New(viewportWidth, viewportHeight float64, markup string) (*Document, error) {
	parsed, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("memdom: parse: %w", err)
	}

	d := &Document{
		viewport:  dom.Rect{Width: viewportWidth, Height: viewportHeight},
		frame:     dom.FrameInfo{IsTop: true},
		mutations: make(chan struct{}, 1),
	}
	d.rebuild(parsed)
	return d, nil
}

// rebuild reconstructs the element tree under a synthetic root and refreshes
// the document-order index. The root itself is never queryable.
func (d *Document) rebuild(parsed *html.Node) {
	d.root = &node{tag: "#document"}
	buildChildren(parsed, d.root, nil)
	d.reindex()
}

// reindex flattens the tree into document order, skipping the synthetic root,
// and recomputes node paths. Paths must reflect current child positions or
// SameNode/Related would misidentify nodes after a remove-then-append.
func (d *Document) reindex() {
	d.nodes = d.nodes[:0]
	var walk func(n *node, path []int)
	walk = func(n *node, path []int) {
		n.path = append([]int(nil), path...)
		d.nodes = append(d.nodes, n)
		for i, c := range n.children {
			walk(c, append(path, i))
		}
	}
	for i, c := range d.root.children {
		walk(c, []int{i})
	}
}

// attachElement materializes one parsed element under parent and recurses.
func attachElement(src *html.Node, parent, host *node) {
	el := &node{
		tag:        strings.ToLower(src.Data),
		attrs:      make(map[string]string, len(src.Attr)),
		parent:     parent,
		shadowHost: host,
	}
	for _, a := range src.Attr {
		el.attrs[a.Key] = a.Val
	}
	parent.children = append(parent.children, el)

	childHost := host
	if _, ok := el.attrs["data-tg-shadow"]; ok {
		childHost = el
	}
	buildChildren(src, el, childHost)
}

func buildChildren(src *html.Node, parent, host *node) {
	for c := src.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.ElementNode:
			attachElement(c, parent, host)
		case html.TextNode:
			parent.text += c.Data
		}
	}
}

// notify coalesces a mutation signal for waiters.
func (d *Document) notify() {
	select {
	case d.mutations <- struct{}{}:
	default:
	}
}

// Mutations implements dom.MutationNotifier.
func (d *Document) Mutations() <-chan struct{} { return d.mutations }

// -- dom.Document implementation --

// Viewport returns the visible viewport rectangle.
func (d *Document) Viewport() dom.Rect {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.viewport
}

// ScrollOffset returns the current scroll offsets.
func (d *Document) ScrollOffset() (float64, float64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.scrollErr != nil {
		return 0, 0, d.scrollErr
	}
	return d.scrollX, d.scrollY, nil
}

// Frame reports the configured frame context.
func (d *Document) Frame() (dom.FrameInfo, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.frameErr != nil {
		return dom.FrameInfo{}, d.frameErr
	}
	return d.frame, nil
}

// Query resolves a selector to the first match in document order.
func (d *Document) Query(selector string) (*dom.Element, error) {
	matches, err := d.QueryAll(selector)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}
	return matches[0], nil
}

// QueryAll resolves a selector to every match in document order.
func (d *Document) QueryAll(selector string) ([]*dom.Element, error) {
	groups, err := parseSelector(selector)
	if err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []*dom.Element
	for _, n := range d.nodes {
		for _, group := range groups {
			if matchComplex(n, group) {
				out = append(out, d.snapshot(n))
				break
			}
		}
	}
	return out, nil
}

// ElementFromPoint hit-tests the tree: among paint-visible elements whose
// rectangle contains the point, the highest data-tg-z wins, document order
// breaking ties in favor of the later element.
func (d *Document) ElementFromPoint(x, y float64) (*dom.Element, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.hitErr != nil {
		return nil, d.hitErr
	}

	var best *node
	bestZ := 0
	for _, n := range d.nodes {
		if !n.paintVisible() {
			continue
		}
		if !n.rect().Contains(x, y) {
			continue
		}
		z := n.zIndex()
		if best == nil || z >= bestZ {
			best = n
			bestZ = z
		}
	}
	if best == nil {
		return nil, nil
	}
	return d.snapshot(best), nil
}

// snapshot materializes a dom.Element for a node. Caller holds at least a
// read lock.
func (d *Document) snapshot(n *node) *dom.Element {
	attrs := make(map[string]string, len(n.attrs))
	for k, v := range n.attrs {
		attrs[k] = v
	}
	el := &dom.Element{
		Tag:   n.tag,
		Attrs: attrs,
		Style: n.style(),
		Rect:  n.rect(),
		Path:  append([]int(nil), n.path...),
	}
	if _, ok := n.attrs["data-tg-fixed"]; ok {
		el.Detached = true
	}
	if n.shadowHost != nil {
		el.ShadowHost = d.snapshot(n.shadowHost)
	}
	return el
}

// -- node helpers --

func (n *node) style() dom.ComputedStyle {
	raw, ok := n.attrs["style"]
	if !ok {
		return dom.ComputedStyle{}
	}
	style := dom.ComputedStyle{}
	for _, decl := range strings.Split(raw, ";") {
		if prop, val, found := strings.Cut(decl, ":"); found {
			style[strings.TrimSpace(prop)] = strings.TrimSpace(val)
		}
	}
	return style
}

func (n *node) rect() dom.Rect {
	raw, ok := n.attrs["data-tg-rect"]
	if !ok {
		return dom.Rect{}
	}
	parts := strings.Fields(raw)
	if len(parts) != 4 {
		return dom.Rect{}
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return dom.Rect{}
		}
		vals[i] = v
	}
	return dom.Rect{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}
}

func (n *node) zIndex() int {
	if raw, ok := n.attrs["data-tg-z"]; ok {
		if z, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
			return z
		}
	}
	return 0
}

// paintVisible mirrors what hit testing skips: unrendered and fully
// transparent elements, plus pointer-events:none.
func (n *node) paintVisible() bool {
	style := n.style()
	if style.Display() == "none" || style.Visibility() == "hidden" {
		return false
	}
	if opacity, err := style.Opacity(); err == nil && opacity <= 0 {
		return false
	}
	return style.PointerEvents() != "none"
}

// -- Test Mutators --

// SetScroll updates the scroll offsets. Stored rectangles are
// viewport-relative and are not shifted; a fixture that should track content
// must update its rectangles alongside.
func (d *Document) SetScroll(x, y float64) {
	d.mu.Lock()
	d.scrollX, d.scrollY = x, y
	d.mu.Unlock()
	d.notify()
}

// SetFrame overrides the frame context.
func (d *Document) SetFrame(info dom.FrameInfo) {
	d.mu.Lock()
	d.frame = info
	d.mu.Unlock()
}

// FailFrame makes Frame return the given error, simulating a cross-origin
// introspection failure.
func (d *Document) FailFrame(err error) {
	d.mu.Lock()
	d.frameErr = err
	d.mu.Unlock()
}

// FailScroll makes ScrollOffset fail, simulating a detached document read.
func (d *Document) FailScroll(err error) {
	d.mu.Lock()
	d.scrollErr = err
	d.mu.Unlock()
}

// FailHitTest makes ElementFromPoint fail.
func (d *Document) FailHitTest(err error) {
	d.mu.Lock()
	d.hitErr = err
	d.mu.Unlock()
}

// SetAttr sets an attribute on every element matching the selector.
func (d *Document) SetAttr(selector, name, value string) error {
	groups, err := parseSelector(selector)
	if err != nil {
		return err
	}
	d.mu.Lock()
	for _, n := range d.nodes {
		for _, group := range groups {
			if matchComplex(n, group) {
				n.attrs[name] = value
				break
			}
		}
	}
	d.mu.Unlock()
	d.notify()
	return nil
}

// SetStyleProp sets one style declaration on every match.
func (d *Document) SetStyleProp(selector, prop, value string) error {
	groups, err := parseSelector(selector)
	if err != nil {
		return err
	}
	d.mu.Lock()
	for _, n := range d.nodes {
		for _, group := range groups {
			if matchComplex(n, group) {
				style := n.style()
				style[prop] = value
				var b strings.Builder
				for p, v := range style {
					fmt.Fprintf(&b, "%s: %s; ", p, v)
				}
				n.attrs["style"] = strings.TrimSpace(b.String())
				break
			}
		}
	}
	d.mu.Unlock()
	d.notify()
	return nil
}

// Append parses a fragment and attaches its elements under the first element
// matching the parent selector, then reindexes and notifies waiters.
func (d *Document) Append(parentSelector, fragment string) error {
	groups, err := parseSelector(parentSelector)
	if err != nil {
		return err
	}
	parsed, err := html.ParseFragment(strings.NewReader(fragment), &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
	})
	if err != nil {
		return fmt.Errorf("memdom: fragment parse: %w", err)
	}

	d.mu.Lock()
	var parent *node
	for _, n := range d.nodes {
		for _, group := range groups {
			if matchComplex(n, group) {
				parent = n
				break
			}
		}
		if parent != nil {
			break
		}
	}
	if parent == nil {
		d.mu.Unlock()
		return fmt.Errorf("memdom: append parent %q not found", parentSelector)
	}

	host := parent.shadowHost
	if _, ok := parent.attrs["data-tg-shadow"]; ok {
		host = parent
	}
	for _, fragRoot := range parsed {
		if fragRoot.Type != html.ElementNode {
			continue
		}
		attachElement(fragRoot, parent, host)
	}
	d.reindex()
	d.mu.Unlock()
	d.notify()
	return nil
}

// Remove detaches every element matching the selector and notifies waiters.
func (d *Document) Remove(selector string) error {
	groups, err := parseSelector(selector)
	if err != nil {
		return err
	}
	d.mu.Lock()
	for _, n := range d.nodes {
		matched := false
		for _, group := range groups {
			if matchComplex(n, group) {
				matched = true
				break
			}
		}
		if !matched || n.parent == nil {
			continue
		}
		siblings := n.parent.children
		for i, sib := range siblings {
			if sib == n {
				n.parent.children = append(siblings[:i], siblings[i+1:]...)
				break
			}
		}
	}
	d.reindex()
	d.mu.Unlock()
	d.notify()
	return nil
}

// Text returns the text content of the first match, for assertions.
func (d *Document) Text(selector string) (string, error) {
	groups, err := parseSelector(selector)
	if err != nil {
		return "", err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, n := range d.nodes {
		for _, group := range groups {
			if matchComplex(n, group) {
				return strings.TrimSpace(n.text), nil
			}
		}
	}
	return "", nil
}
