// api/schemas/geometry.go
package schemas

// -- Derived Element Geometry --

// Point is a page-coordinate point.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ViewportPosition describes where the element sits relative to the current
// viewport at the moment of the query.
type ViewportPosition struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	// IsVisible is true when the element passes the full visibility algorithm,
	// not merely when it intersects the viewport.
	IsVisible bool `json:"isVisible"`
	// VisibleArea is the on-screen fraction of the element's rectangle in [0,1].
	VisibleArea float64 `json:"visibleArea"`
}

// ScrollOffset records the scroll offsets used to derive page coordinates, so
// a position can be re-derived idempotently.
type ScrollOffset struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ShadowDOMContext is present when the element lives inside a shadow root.
type ShadowDOMContext struct {
	IsInShadowDOM bool `json:"isInShadowDOM"`
	// ShadowHost is a selector-ish description of the host element (tag#id.class).
	ShadowHost string `json:"shadowHost,omitempty"`
	// HostOffset is the host element's page offset.
	HostOffset Point `json:"hostOffset"`
}

// IframeContext is present when the document is not the top-level frame.
type IframeContext struct {
	IsInIframe bool `json:"isInIframe"`
	// Approximate is set when cross-origin restrictions prevented exact
	// frame-relative coordinate translation.
	Approximate bool `json:"approximate,omitempty"`
}

// ElementPosition is the derived, never-persisted geometry of an element.
// It is recomputed on every query and must not be cached across DOM mutations.
type ElementPosition struct {
	Top      float64           `json:"top"`
	Left     float64           `json:"left"`
	Width    float64           `json:"width"`
	Height   float64           `json:"height"`
	Center   Point             `json:"center"`
	Viewport ViewportPosition  `json:"viewport"`
	Scroll   ScrollOffset      `json:"scroll"`
	Shadow   *ShadowDOMContext `json:"shadowDOM,omitempty"`
	Iframe   *IframeContext    `json:"iframe,omitempty"`
}
