// internal/dom/memdom/selector.go
package memdom

import (
	"fmt"
	"strings"
)

// The matcher covers the selector grammar tour definitions actually use:
// tags, ids, classes, attribute matchers, compounds, and the descendant and
// child combinators, with comma-separated groups. Pseudo-classes are rejected
// so a bad selector surfaces as a query error instead of silently matching
// nothing. Unlike querySelector, matching pierces shadow roots; resolution is
// expected to reach shadow-hosted elements.

type attrMatcher struct {
	name  string
	op    string // "", "=", "*=", "^=", "$=", "~="
	value string
}

type simpleSelector struct {
	tag     string // "" or "*" matches any tag
	id      string
	classes []string
	attrs   []attrMatcher
}

// compoundPart is one compound selector plus the combinator that relates it
// to the part before it. The first part's combinator is unused.
type compoundPart struct {
	sel        simpleSelector
	combinator byte // ' ' descendant, '>' child
}

// parseSelector splits a selector list into match groups.
func parseSelector(selector string) ([][]compoundPart, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return nil, fmt.Errorf("memdom: empty selector")
	}

	var groups [][]compoundPart
	for _, raw := range splitTopLevel(selector, ',') {
		group, err := parseComplex(strings.TrimSpace(raw))
		if err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}
	return groups, nil
}

// splitTopLevel splits on sep outside attribute brackets.
func splitTopLevel(s string, sep byte) []string {
	var out []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
		case sep:
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	return append(out, s[start:])
}

// parseComplex tokenizes one complex selector into compound parts.
func parseComplex(s string) ([]compoundPart, error) {
	var parts []compoundPart
	combinator := byte(' ')
	i := 0
	for i < len(s) {
		switch s[i] {
		case ' ', '\t':
			i++
		case '>':
			if len(parts) == 0 {
				return nil, fmt.Errorf("memdom: selector %q starts with a combinator", s)
			}
			combinator = '>'
			i++
		default:
			end := i
			depth := 0
			for end < len(s) {
				c := s[end]
				if c == '[' {
					depth++
				} else if c == ']' {
					depth--
				} else if depth == 0 && (c == ' ' || c == '\t' || c == '>') {
					break
				}
				end++
			}
			sel, err := parseCompound(s[i:end])
			if err != nil {
				return nil, err
			}
			parts = append(parts, compoundPart{sel: sel, combinator: combinator})
			combinator = ' '
			i = end
		}
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("memdom: empty selector group in %q", s)
	}
	return parts, nil
}

// parseCompound parses one compound token: tag, then any number of #id,
// .class, and [attr] qualifiers.
func parseCompound(token string) (simpleSelector, error) {
	var sel simpleSelector
	i := 0

	// Leading type selector or universal.
	for i < len(token) && token[i] != '#' && token[i] != '.' && token[i] != '[' && token[i] != ':' {
		i++
	}
	sel.tag = strings.ToLower(token[:i])

	for i < len(token) {
		switch token[i] {
		case '#':
			j := i + 1
			for j < len(token) && !strings.ContainsRune("#.[:", rune(token[j])) {
				j++
			}
			sel.id = token[i+1 : j]
			i = j
		case '.':
			j := i + 1
			for j < len(token) && !strings.ContainsRune("#.[:", rune(token[j])) {
				j++
			}
			sel.classes = append(sel.classes, token[i+1:j])
			i = j
		case '[':
			j := strings.IndexByte(token[i:], ']')
			if j < 0 {
				return simpleSelector{}, fmt.Errorf("memdom: unterminated attribute selector in %q", token)
			}
			m, err := parseAttrMatcher(token[i+1 : i+j])
			if err != nil {
				return simpleSelector{}, err
			}
			sel.attrs = append(sel.attrs, m)
			i += j + 1
		case ':':
			return simpleSelector{}, fmt.Errorf("memdom: unsupported pseudo-class in %q", token)
		default:
			return simpleSelector{}, fmt.Errorf("memdom: unexpected %q in selector %q", token[i], token)
		}
	}
	return sel, nil
}

func parseAttrMatcher(body string) (attrMatcher, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return attrMatcher{}, fmt.Errorf("memdom: empty attribute selector")
	}
	for _, op := range []string{"*=", "^=", "$=", "~=", "="} {
		if idx := strings.Index(body, op); idx > 0 {
			value := strings.TrimSpace(body[idx+len(op):])
			value = strings.Trim(value, `"'`)
			return attrMatcher{
				name:  strings.TrimSpace(body[:idx]),
				op:    op,
				value: value,
			}, nil
		}
	}
	return attrMatcher{name: body}, nil
}

// -- Matching --

// matchComplex reports whether n satisfies the full compound chain, walking
// ancestors right to left.
func matchComplex(n *node, parts []compoundPart) bool {
	return matchFrom(n, parts, len(parts)-1)
}

func matchFrom(n *node, parts []compoundPart, i int) bool {
	if n == nil || n.tag == "#document" {
		return false
	}
	if !matchCompound(n, parts[i].sel) {
		return false
	}
	if i == 0 {
		return true
	}
	if parts[i].combinator == '>' {
		return matchFrom(n.parent, parts, i-1)
	}
	for a := n.parent; a != nil; a = a.parent {
		if matchFrom(a, parts, i-1) {
			return true
		}
	}
	return false
}

func matchCompound(n *node, sel simpleSelector) bool {
	if sel.tag != "" && sel.tag != "*" && sel.tag != n.tag {
		return false
	}
	if sel.id != "" && n.attrs["id"] != sel.id {
		return false
	}
	if len(sel.classes) > 0 {
		have := strings.Fields(n.attrs["class"])
		for _, want := range sel.classes {
			found := false
			for _, c := range have {
				if c == want {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	for _, m := range sel.attrs {
		got, ok := n.attrs[m.name]
		if !ok {
			return false
		}
		switch m.op {
		case "":
		case "=":
			if got != m.value {
				return false
			}
		case "*=":
			if !strings.Contains(got, m.value) {
				return false
			}
		case "^=":
			if !strings.HasPrefix(got, m.value) {
				return false
			}
		case "$=":
			if !strings.HasSuffix(got, m.value) {
				return false
			}
		case "~=":
			found := false
			for _, word := range strings.Fields(got) {
				if word == m.value {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}
