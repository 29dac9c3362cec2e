// internal/dom/cdp/document.go
//
// Package cdp adapts a live chromedp page to dom.Document. Each read
// evaluates a small script that serializes element snapshots; nothing is
// cached browser-side, so every snapshot reflects the DOM at call time.
package cdp

import (
	"context"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/chromedp/chromedp"
	"github.com/xkilldash9x/tourguard-cli/internal/dom"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// jsHelpers is prepended to every evaluated expression. It defines the
// serialization routines shared by all reads: a deep query that pierces open
// shadow roots, a structural path usable as node identity, and a snapshot
// shape mirroring dom.Element.
const jsHelpers = `
const __tg = (() => {
  const styleProps = ["display","visibility","opacity","transform","clip-path","pointer-events","position"];

  const hostOf = (el) => {
    const root = el.getRootNode();
    return (root instanceof ShadowRoot) ? root.host : null;
  };

  const logicalParent = (el) => el.parentElement || hostOf(el);

  const pathOf = (el) => {
    const path = [];
    let n = el;
    while (n) {
      const parent = logicalParent(n);
      if (!parent) { path.unshift(0); break; }
      const siblings = n.parentElement
        ? Array.from(n.parentElement.children)
        : Array.from(n.getRootNode().children).concat();
      path.unshift(Math.max(0, siblings.indexOf(n)));
      n = parent;
    }
    return path;
  };

  const snapshot = (el, withHost = true) => {
    if (!el) return null;
    const cs = getComputedStyle(el);
    const style = {};
    for (const p of styleProps) style[p] = cs.getPropertyValue(p);
    const attrs = {};
    for (const a of el.attributes) attrs[a.name] = a.value;
    const r = el.getBoundingClientRect();
    const host = hostOf(el);
    return {
      tag: el.tagName.toLowerCase(),
      attrs, style,
      rect: { x: r.x, y: r.y, width: r.width, height: r.height },
      path: pathOf(el),
      shadowHost: (withHost && host) ? snapshot(host, false) : null,
      detached: el.offsetParent === null && style["position"] !== "fixed",
    };
  };

  const deepQueryAll = (selector, root = document) => {
    let out;
    try { out = Array.from(root.querySelectorAll(selector)); }
    catch (e) { throw new Error("selector: " + e.message); }
    const walker = document.createTreeWalker(root, NodeFilter.SHOW_ELEMENT);
    let n = walker.currentNode;
    while (n) {
      if (n.shadowRoot) out = out.concat(deepQueryAll(selector, n.shadowRoot));
      n = walker.nextNode();
    }
    return out;
  };

  return { snapshot, deepQueryAll };
})();
`

// wireElement mirrors the snapshot shape produced by jsHelpers.
type wireElement struct {
	Tag   string            `json:"tag"`
	Attrs map[string]string `json:"attrs"`
	Style map[string]string `json:"style"`
	Rect  struct {
		X      float64 `json:"x"`
		Y      float64 `json:"y"`
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	} `json:"rect"`
	Path       []int        `json:"path"`
	ShadowHost *wireElement `json:"shadowHost"`
	Detached   bool         `json:"detached"`
}

func (w *wireElement) toElement() *dom.Element {
	if w == nil {
		return nil
	}
	el := &dom.Element{
		Tag:      w.Tag,
		Attrs:    w.Attrs,
		Style:    dom.ComputedStyle(w.Style),
		Rect:     dom.Rect{X: w.Rect.X, Y: w.Rect.Y, Width: w.Rect.Width, Height: w.Rect.Height},
		Path:     w.Path,
		Detached: w.Detached,
	}
	if w.ShadowHost != nil {
		el.ShadowHost = w.ShadowHost.toElement()
	}
	return el
}

// Document implements dom.Document over a chromedp tab context.
type Document struct {
	ctx      context.Context
	viewport dom.Rect
	logger   *zap.Logger
}

// NewDocument wraps a chromedp context. The viewport should match the
// emulation settings the session was started with.
func NewDocument(ctx context.Context, viewportWidth, viewportHeight float64, logger *zap.Logger) *Document {
	return &Document{
		ctx:      ctx,
		viewport: dom.Rect{Width: viewportWidth, Height: viewportHeight},
		logger:   logger.Named("cdp-document"),
	}
}

// eval runs an expression with the helper prelude and unmarshals the result.
func (d *Document) eval(expr string, out any) error {
	var raw []byte
	full := fmt.Sprintf("(() => { %s return JSON.stringify(%s); })()", jsHelpers, expr)
	if err := chromedp.Run(d.ctx, chromedp.Evaluate(full, &raw)); err != nil {
		return fmt.Errorf("cdp evaluate: %w", err)
	}
	// Evaluate hands back a JSON string literal; unwrap before decoding.
	var inner string
	if err := json.Unmarshal(raw, &inner); err != nil {
		return fmt.Errorf("cdp decode envelope: %w", err)
	}
	if err := json.Unmarshal([]byte(inner), out); err != nil {
		return fmt.Errorf("cdp decode snapshot: %w", err)
	}
	return nil
}

// Query implements dom.Document.
func (d *Document) Query(selector string) (*dom.Element, error) {
	quoted, err := json.MarshalToString(selector)
	if err != nil {
		return nil, err
	}
	var wire *wireElement
	expr := fmt.Sprintf("__tg.snapshot(__tg.deepQueryAll(%s)[0] || null)", quoted)
	if err := d.eval(expr, &wire); err != nil {
		return nil, err
	}
	return wire.toElement(), nil
}

// QueryAll implements dom.Document.
func (d *Document) QueryAll(selector string) ([]*dom.Element, error) {
	quoted, err := json.MarshalToString(selector)
	if err != nil {
		return nil, err
	}
	var wires []*wireElement
	expr := fmt.Sprintf("__tg.deepQueryAll(%s).map(el => __tg.snapshot(el))", quoted)
	if err := d.eval(expr, &wires); err != nil {
		return nil, err
	}
	out := make([]*dom.Element, 0, len(wires))
	for _, w := range wires {
		out = append(out, w.toElement())
	}
	return out, nil
}

// ElementFromPoint implements dom.Document. Shadow roots are descended so the
// innermost hit is reported, matching what a user actually clicks.
func (d *Document) ElementFromPoint(x, y float64) (*dom.Element, error) {
	var wire *wireElement
	expr := fmt.Sprintf(`(() => {
      let el = document.elementFromPoint(%f, %f);
      while (el && el.shadowRoot) {
        const inner = el.shadowRoot.elementFromPoint(%f, %f);
        if (!inner || inner === el) break;
        el = inner;
      }
      return __tg.snapshot(el);
    })()`, x, y, x, y)
	if err := d.eval(expr, &wire); err != nil {
		return nil, err
	}
	return wire.toElement(), nil
}

// Viewport implements dom.Document.
func (d *Document) Viewport() dom.Rect { return d.viewport }

// ScrollOffset implements dom.Document.
func (d *Document) ScrollOffset() (float64, float64, error) {
	var offsets struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	if err := d.eval("({x: window.scrollX, y: window.scrollY})", &offsets); err != nil {
		return 0, 0, err
	}
	return offsets.X, offsets.Y, nil
}

// Frame implements dom.Document. A cross-origin ancestor makes window.top
// unreadable; that degrades to an approximate non-top answer instead of an
// error.
func (d *Document) Frame() (dom.FrameInfo, error) {
	var frame struct {
		IsTop       bool `json:"isTop"`
		Approximate bool `json:"approximate"`
	}
	expr := `(() => {
      try { return { isTop: window.top === window.self, approximate: false }; }
      catch (e) { return { isTop: false, approximate: true }; }
    })()`
	if err := d.eval(expr, &frame); err != nil {
		return dom.FrameInfo{}, err
	}
	return dom.FrameInfo{IsTop: frame.IsTop, Approximate: frame.Approximate}, nil
}
