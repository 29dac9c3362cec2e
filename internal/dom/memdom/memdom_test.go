// internal/dom/memdom/memdom_test.go
package memdom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xkilldash9x/tourguard-cli/internal/dom"
)

const fixture = `
<div id="app" data-tg-rect="0 0 1024 768">
  <nav id="dashboard-nav" class="nav primary" data-tg-rect="0 0 1024 60">
    <a id="home" href="/" data-tg-rect="10 10 80 40">Home</a>
  </nav>
  <section class="content" data-tg-rect="0 60 1024 700">
    <button id="save" class="btn" data-tg-rect="100 100 120 40" style="display: block">Save</button>
    <div id="host" data-tg-shadow data-tg-rect="300 200 400 300">
      <span id="inner" class="shadow-part" data-tg-rect="320 220 100 30">Inside</span>
    </div>
  </section>
</div>`

func newDoc(t *testing.T) *Document {
	t.Helper()
	doc, err := New(1024, 768, fixture)
	require.NoError(t, err)
	return doc
}

func TestQueryBySelectorKinds(t *testing.T) {
	doc := newDoc(t)

	tests := []struct {
		selector string
		wantID   string
	}{
		{"#save", "save"},
		{"button", "save"},
		{".btn", "save"},
		{"button.btn", "save"},
		{"section .btn", "save"},
		{"section > button", "save"},
		{"nav#dashboard-nav a", "home"},
		{"[href]", "home"},
		{`[href="/"]`, "home"},
		{"[class*=prim]", "dashboard-nav"},
		{"[class~=nav]", "dashboard-nav"},
		{`[id^="dash"]`, "dashboard-nav"},
		{`[id$="nav"]`, "dashboard-nav"},
	}
	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			el, err := doc.Query(tt.selector)
			require.NoError(t, err)
			require.NotNil(t, el, "selector should match")
			assert.Equal(t, tt.wantID, el.Attrs["id"])
		})
	}
}

func TestQueryNoMatchReturnsNil(t *testing.T) {
	doc := newDoc(t)
	el, err := doc.Query("#does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, el)
}

func TestQueryRejectsPseudoClasses(t *testing.T) {
	doc := newDoc(t)
	_, err := doc.Query("li:nth-child(2)")
	assert.Error(t, err)
}

func TestQueryAllDocumentOrder(t *testing.T) {
	doc := newDoc(t)
	els, err := doc.QueryAll("nav, button")
	require.NoError(t, err)
	require.Len(t, els, 2)
	assert.Equal(t, "nav", els[0].Tag)
	assert.Equal(t, "button", els[1].Tag)
}

func TestGeometryFromAttributes(t *testing.T) {
	doc := newDoc(t)
	el, err := doc.Query("#save")
	require.NoError(t, err)
	require.NotNil(t, el)
	assert.Equal(t, dom.Rect{X: 100, Y: 100, Width: 120, Height: 40}, el.Rect)
	assert.Equal(t, "block", el.Style.Display())
}

func TestShadowHostResolution(t *testing.T) {
	doc := newDoc(t)
	el, err := doc.Query("#inner")
	require.NoError(t, err)
	require.NotNil(t, el, "queries pierce shadow roots")
	require.NotNil(t, el.ShadowHost)
	assert.Equal(t, "host", el.ShadowHost.Attrs["id"])
	assert.Nil(t, el.ShadowHost.ShadowHost)

	// The host itself is not inside a shadow root.
	host, err := doc.Query("#host")
	require.NoError(t, err)
	require.NotNil(t, host)
	assert.Nil(t, host.ShadowHost)
}

func TestSameNodeAcrossSnapshots(t *testing.T) {
	doc := newDoc(t)
	first, err := doc.Query("#save")
	require.NoError(t, err)
	second, err := doc.Query("button.btn")
	require.NoError(t, err)
	assert.True(t, first.SameNode(second))

	other, err := doc.Query("#home")
	require.NoError(t, err)
	assert.False(t, first.SameNode(other))
}

func TestPathsRecomputedAfterRemoveAndAppend(t *testing.T) {
	doc := newDoc(t)

	// #save and #host are siblings; removing the first shifts the second's
	// position, and an appended element takes the freed slot count.
	require.NoError(t, doc.Remove("#save"))
	require.NoError(t, doc.Append("section", `<button id="undo" data-tg-rect="100 100 120 40">Undo</button>`))

	host, err := doc.Query("#host")
	require.NoError(t, err)
	require.NotNil(t, host)
	undo, err := doc.Query("#undo")
	require.NoError(t, err)
	require.NotNil(t, undo)

	assert.NotEqual(t, host.Path, undo.Path, "distinct nodes must never share a path")
	assert.False(t, host.SameNode(undo))
	assert.False(t, host.Related(undo))

	inner, err := doc.Query("#inner")
	require.NoError(t, err)
	require.NotNil(t, inner)
	assert.True(t, host.Related(inner), "ancestry must survive the reindex")
}

func TestElementFromPointPaintOrder(t *testing.T) {
	doc := newDoc(t)

	t.Run("innermost element wins at its own center", func(t *testing.T) {
		// (160, 120) is inside #save, .content, and #app; #save is last in
		// document order among the hits.
		el, err := doc.ElementFromPoint(160, 120)
		require.NoError(t, err)
		require.NotNil(t, el)
		assert.Equal(t, "save", el.Attrs["id"])
	})

	t.Run("higher z-index wins", func(t *testing.T) {
		require.NoError(t, doc.Append("section.content",
			`<div id="overlay" data-tg-rect="0 0 1024 768" data-tg-z="10"></div>`))
		el, err := doc.ElementFromPoint(160, 120)
		require.NoError(t, err)
		require.NotNil(t, el)
		assert.Equal(t, "overlay", el.Attrs["id"])
	})

	t.Run("hidden overlay is skipped", func(t *testing.T) {
		require.NoError(t, doc.SetStyleProp("#overlay", "display", "none"))
		el, err := doc.ElementFromPoint(160, 120)
		require.NoError(t, err)
		require.NotNil(t, el)
		assert.Equal(t, "save", el.Attrs["id"])
	})

	t.Run("outside everything", func(t *testing.T) {
		el, err := doc.ElementFromPoint(5000, 5000)
		require.NoError(t, err)
		assert.Nil(t, el)
	})
}

func TestMutatorsNotify(t *testing.T) {
	doc := newDoc(t)

	drain := func() {
		select {
		case <-doc.Mutations():
		default:
		}
	}

	drain()
	require.NoError(t, doc.Append("#app", `<p id="late" data-tg-rect="0 0 10 10">late</p>`))
	select {
	case <-doc.Mutations():
	default:
		t.Fatal("Append should signal a mutation")
	}

	el, err := doc.Query("#late")
	require.NoError(t, err)
	require.NotNil(t, el)

	drain()
	require.NoError(t, doc.Remove("#late"))
	el, err = doc.Query("#late")
	require.NoError(t, err)
	assert.Nil(t, el, "removed element should not resolve")
}

func TestSetAttrAndStyle(t *testing.T) {
	doc := newDoc(t)

	require.NoError(t, doc.SetAttr("#save", "aria-disabled", "true"))
	el, err := doc.Query("#save")
	require.NoError(t, err)
	assert.True(t, el.Disabled())

	require.NoError(t, doc.SetStyleProp("#save", "visibility", "hidden"))
	el, err = doc.Query("#save")
	require.NoError(t, err)
	assert.Equal(t, "hidden", el.Style.Visibility())
	assert.Equal(t, "block", el.Style.Display(), "existing declarations survive")
}

func TestScrollAndFrame(t *testing.T) {
	doc := newDoc(t)

	x, y, err := doc.ScrollOffset()
	require.NoError(t, err)
	assert.Equal(t, 0.0, x)
	assert.Equal(t, 0.0, y)

	doc.SetScroll(0, 500)
	_, y, err = doc.ScrollOffset()
	require.NoError(t, err)
	assert.Equal(t, 500.0, y)

	frame, err := doc.Frame()
	require.NoError(t, err)
	assert.True(t, frame.IsTop)

	doc.SetFrame(dom.FrameInfo{IsTop: false, Approximate: true})
	frame, err = doc.Frame()
	require.NoError(t, err)
	assert.False(t, frame.IsTop)
	assert.True(t, frame.Approximate)
}

func TestTextContent(t *testing.T) {
	doc := newDoc(t)
	text, err := doc.Text("#home")
	require.NoError(t, err)
	assert.Equal(t, "Home", text)
}
