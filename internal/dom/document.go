// internal/dom/document.go
package dom

// FrameInfo describes the document's frame context. Cross-origin introspection
// failures degrade to Approximate rather than propagating.
type FrameInfo struct {
	// IsTop is true when window.top === window.self.
	IsTop bool
	// Approximate is set when cross-origin restrictions limited the answer.
	Approximate bool
}

// Document is the capability surface the resolver needs from a page. Live
// pages implement it over a browser session; tests implement it in memory.
// Every method returns an error for boundary-crossing reads that can fail, so
// callers degrade to "unknown" instead of crashing.
type Document interface {
	// Query resolves a CSS selector to a fresh element snapshot, or nil when
	// nothing matches. An error means the selector itself could not be
	// evaluated.
	Query(selector string) (*Element, error)

	// QueryAll resolves a selector to every matching element in document order.
	QueryAll(selector string) ([]*Element, error)

	// ElementFromPoint returns the topmost hit-testable element at the given
	// viewport coordinates, or nil when the point is outside the document.
	ElementFromPoint(x, y float64) (*Element, error)

	// Viewport returns the visible viewport rectangle, origin (0,0).
	Viewport() Rect

	// ScrollOffset returns the current page scroll offsets.
	ScrollOffset() (x, y float64, err error)

	// Frame reports the document's frame context.
	Frame() (FrameInfo, error)
}

// MutationNotifier is implemented by documents that can signal DOM mutations.
// The resolver uses it to wake waiters early instead of pure polling; the
// signal channel coalesces, it does not enumerate mutations.
type MutationNotifier interface {
	Mutations() <-chan struct{}
}
