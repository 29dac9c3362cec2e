// internal/dom/resolver.go
package dom

import (
	"context"
	"sync"
	"time"

	"github.com/xkilldash9x/tourguard-cli/api/schemas"
	"github.com/xkilldash9x/tourguard-cli/internal/config"
	"github.com/xkilldash9x/tourguard-cli/internal/observer"
	"go.uber.org/zap"
)

// Resolver locates elements and computes their visibility and geometry. Every
// wait it starts is routed through the observer lifecycle manager, so no
// mutation observer or timer survives a settled FindElement.
type Resolver struct {
	doc       Document
	observers *observer.Manager
	cfg       config.ResolverConfig
	logger    *zap.Logger
}

// NewResolver wires a resolver to a document and the shared observer manager.
func NewResolver(doc Document, observers *observer.Manager, cfg config.ResolverConfig, logger *zap.Logger) *Resolver {
	return &Resolver{
		doc:       doc,
		observers: observers,
		cfg:       cfg,
		logger:    logger.Named("resolver"),
	}
}

// Document exposes the underlying document for callers that need raw queries.
func (r *Resolver) Document() Document { return r.doc }

// -- Visibility --

// IsVisible applies the full visibility algorithm. Every clause must hold:
// display, visibility, opacity, transform scale, clip-path, viewport
// intersection, and the point-sampling occlusion test. Any failed read is
// treated as not visible; the function never propagates an error.
func (r *Resolver) IsVisible(el *Element) bool {
	if el == nil {
		return false
	}
	if !r.styleVisible(el) {
		return false
	}

	// A visible shadow child behind a hidden host is not visible.
	if el.ShadowHost != nil && !r.styleVisible(el.ShadowHost) {
		return false
	}

	// At least partially inside the viewport rectangle.
	if el.Rect.Intersect(r.doc.Viewport()).Area() <= 0 {
		return false
	}

	return r.notOccluded(el)
}

// styleVisible evaluates the pure style clauses of the visibility algorithm.
func (r *Resolver) styleVisible(el *Element) bool {
	style := el.Style
	if style.Display() == "none" {
		return false
	}
	if style.Visibility() == "hidden" {
		return false
	}
	opacity, err := style.Opacity()
	if err != nil || opacity <= r.cfg.MinVisibleOpacity {
		return false
	}
	if style.TransformCollapses() {
		return false
	}
	if style.ClipPathHides() {
		return false
	}
	return true
}

// notOccluded samples the element's visual center and accepts the hit when it
// resolves to the element itself, a descendant, or an ancestor. A read
// failure fails closed.
func (r *Resolver) notOccluded(el *Element) bool {
	// Sample inside the on-screen portion; a half-scrolled element's center
	// can be outside the viewport where elementFromPoint sees nothing.
	sample := el.Rect.Intersect(r.doc.Viewport())
	if sample.Area() <= 0 {
		return false
	}
	cx, cy := sample.Center()

	hit, err := r.doc.ElementFromPoint(cx, cy)
	if err != nil {
		r.logger.Debug("Occlusion probe failed; treating as not visible", zap.Error(err))
		return false
	}
	if hit == nil {
		return false
	}
	return el.Related(hit)
}

// IsInteractable reports whether a user could actually operate the element:
// pointer events enabled and not disabled natively or via ARIA.
func (r *Resolver) IsInteractable(el *Element) bool {
	if el == nil {
		return false
	}
	if el.Style.PointerEvents() == "none" {
		return false
	}
	return !el.Disabled()
}

// -- Position --

// Position derives the element's page-coordinate geometry. It returns nil on
// any read failure so callers treat "unknown" uniformly with "absent". The
// result is recomputed on every call and must not be cached across mutations.
func (r *Resolver) Position(el *Element) *schemas.ElementPosition {
	if el == nil {
		return nil
	}

	scrollX, scrollY, err := r.doc.ScrollOffset()
	if err != nil {
		r.logger.Debug("Scroll offset read failed; position unknown", zap.Error(err))
		return nil
	}

	rect := el.Rect
	viewport := r.doc.Viewport()

	visibleArea := 0.0
	if rect.Area() > 0 {
		visibleArea = rect.Intersect(viewport).Area() / rect.Area()
	}

	pos := &schemas.ElementPosition{
		Top:    rect.Y + scrollY,
		Left:   rect.X + scrollX,
		Width:  rect.Width,
		Height: rect.Height,
		Center: schemas.Point{
			X: rect.X + scrollX + rect.Width/2,
			Y: rect.Y + scrollY + rect.Height/2,
		},
		Viewport: schemas.ViewportPosition{
			Top:         rect.Y,
			Left:        rect.X,
			Right:       rect.Right(),
			Bottom:      rect.Bottom(),
			IsVisible:   r.IsVisible(el),
			VisibleArea: visibleArea,
		},
		Scroll: schemas.ScrollOffset{X: scrollX, Y: scrollY},
	}

	if host := el.ShadowHost; host != nil {
		pos.Shadow = &schemas.ShadowDOMContext{
			IsInShadowDOM: true,
			ShadowHost:    host.Describe(),
			HostOffset: schemas.Point{
				X: host.Rect.X + scrollX,
				Y: host.Rect.Y + scrollY,
			},
		}
	}

	// Frame introspection is best-effort; a cross-origin error degrades to
	// no iframe context rather than a failed position.
	if frame, err := r.doc.Frame(); err == nil && !frame.IsTop {
		pos.Iframe = &schemas.IframeContext{
			IsInIframe:  true,
			Approximate: frame.Approximate,
		}
	}

	return pos
}

// -- Waiting Resolution --

// FindElement resolves a selector, waiting for DOM mutations up to the
// timeout. A timeout yields (nil, nil): "not found" is data here, not an
// error. The wait state (mutation subscription and deadline timer) is
// registered with the observer manager and is always unregistered before the
// call settles, success and timeout alike. Force-unregistering the wait's
// records through the manager wakes and abandons the wait early.
func (r *Resolver) FindElement(ctx context.Context, selector string, timeout time.Duration) (*Element, error) {
	if timeout <= 0 {
		timeout = r.cfg.DefaultTimeout
	}

	// Fast path: already present.
	el, err := r.doc.Query(selector)
	if err != nil {
		return nil, err
	}
	if el != nil {
		return el, nil
	}

	// abandoned closes when either registered record is force-disconnected.
	abandoned := make(chan struct{})
	var abandonOnce sync.Once
	abandon := func() error {
		abandonOnce.Do(func() { close(abandoned) })
		return nil
	}

	var mutations <-chan struct{}
	if notifier, ok := r.doc.(MutationNotifier); ok {
		mutations = notifier.Mutations()
	}

	observerHandle := r.observers.Register(observer.KindMutation, abandon)
	defer r.observers.Unregister(observerHandle)

	deadline := time.NewTimer(timeout)
	timerHandle := r.observers.Register(observer.KindTimer, func() error {
		deadline.Stop()
		return abandon()
	})
	defer r.observers.Unregister(timerHandle)
	defer deadline.Stop()

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-abandoned:
			r.logger.Debug("Element wait abandoned", zap.String("selector", selector))
			return nil, nil
		case <-deadline.C:
			return nil, nil
		case <-mutations:
		case <-ticker.C:
		}

		el, err := r.doc.Query(selector)
		if err != nil {
			return nil, err
		}
		if el != nil {
			return el, nil
		}
	}
}
