// internal/dom/selector.go
package dom

import (
	"strings"
)

// -- Selector Heuristics --

// SelectorCost is the static cost analysis of a CSS selector. The health and
// deployment pipelines turn these flags into warnings; nothing here touches
// the DOM.
type SelectorCost struct {
	Universal        bool // contains `*`
	PositionalPseudo bool // :nth-child / :nth-of-type
	AttributeMatch   bool // attribute-contains matchers ([x*=y], [x^=y], [x$=y])
	CompoundParts    int  // space-separated parts
	VendorPrefixed   bool // -webkit- / -moz- / -ms- / -o-
}

var positionalPseudos = []string{":nth-child", ":nth-of-type", ":nth-last-child", ":nth-last-of-type"}

var vendorPrefixes = []string{"-webkit-", "-moz-", "-ms-", "-o-"}

// AnalyzeSelector computes the cost flags for a selector.
func AnalyzeSelector(selector string) SelectorCost {
	cost := SelectorCost{
		CompoundParts: len(strings.Fields(selector)),
	}
	if strings.Contains(selector, "*") && !strings.Contains(selector, "*=") {
		cost.Universal = true
	}
	for _, pseudo := range positionalPseudos {
		if strings.Contains(selector, pseudo) {
			cost.PositionalPseudo = true
			break
		}
	}
	for _, op := range []string{"*=", "^=", "$=", "~="} {
		if strings.Contains(selector, op) {
			cost.AttributeMatch = true
			break
		}
	}
	for _, prefix := range vendorPrefixes {
		if strings.Contains(selector, prefix) {
			cost.VendorPrefixed = true
			break
		}
	}
	return cost
}

// Expensive reports whether any cost flag beyond the part budget is raised.
func (c SelectorCost) Expensive(maxParts int) bool {
	return c.Universal || c.PositionalPseudo || c.AttributeMatch || c.CompoundParts > maxParts
}

// pathKeywords map selector substrings to the application areas tours walk
// through. The navigation-flow heuristic warns when the inferred area changes
// between consecutive steps.
var pathKeywords = []string{"dashboard", "content", "campaign", "settings"}

// InferPagePath guesses which page area a selector points at, returning ""
// when nothing matches.
func InferPagePath(selector string) string {
	lowered := strings.ToLower(selector)
	for _, kw := range pathKeywords {
		if strings.Contains(lowered, kw) {
			return kw
		}
	}
	return ""
}
