// Package render implements the instruction micro-language used in node text.
//
// Three tag forms are understood:
//
//	{{name}}             replaced by the bound value, or nothing when unset
//	{{#name}}...{{/name}} rendered only when name is set
//	{{^name}}...{{/name}} rendered only when name is unset
//
// A variable is set when it is bound to a non-empty string. Sections nest.
package render

import (
	"fmt"
	"strings"
)

const (
	openDelim  = "{{"
	closeDelim = "}}"
)

// SyntaxError reports malformed tags. Pos is a byte offset into the text.
type SyntaxError struct {
	Pos    int
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("template syntax error at offset %d: %s", e.Pos, e.Reason)
}

type nodeType int

const (
	textNode nodeType = iota
	varNode
	sectionNode
	invertedNode
)

type node struct {
	typ      nodeType
	text     string // literal text, or the variable name
	pos      int
	children []*node
}

// parse builds the tag tree for text.
func parse(text string) ([]*node, error) {
	type frame struct {
		parent *node
		nodes  []*node
	}
	stack := []frame{{}}
	top := func() *frame { return &stack[len(stack)-1] }

	i := 0
	for i < len(text) {
		start := strings.Index(text[i:], openDelim)
		if start < 0 {
			top().nodes = append(top().nodes, &node{typ: textNode, text: text[i:], pos: i})
			break
		}
		start += i
		if start > i {
			top().nodes = append(top().nodes, &node{typ: textNode, text: text[i:start], pos: i})
		}
		end := strings.Index(text[start+len(openDelim):], closeDelim)
		if end < 0 {
			return nil, &SyntaxError{Pos: start, Reason: "unterminated tag"}
		}
		end += start + len(openDelim)
		tag := strings.TrimSpace(text[start+len(openDelim) : end])
		i = end + len(closeDelim)

		if tag == "" {
			return nil, &SyntaxError{Pos: start, Reason: "empty tag"}
		}

		switch tag[0] {
		case '#', '^':
			name := strings.TrimSpace(tag[1:])
			if err := checkName(name, start); err != nil {
				return nil, err
			}
			typ := sectionNode
			if tag[0] == '^' {
				typ = invertedNode
			}
			n := &node{typ: typ, text: name, pos: start}
			stack = append(stack, frame{parent: n})
		case '/':
			name := strings.TrimSpace(tag[1:])
			if len(stack) == 1 {
				return nil, &SyntaxError{Pos: start, Reason: fmt.Sprintf("unexpected close of section %q", name)}
			}
			f := stack[len(stack)-1]
			if f.parent.text != name {
				return nil, &SyntaxError{Pos: start, Reason: fmt.Sprintf("section %q closed by %q", f.parent.text, name)}
			}
			f.parent.children = f.nodes
			stack = stack[:len(stack)-1]
			top().nodes = append(top().nodes, f.parent)
		default:
			if err := checkName(tag, start); err != nil {
				return nil, err
			}
			top().nodes = append(top().nodes, &node{typ: varNode, text: tag, pos: start})
		}
	}

	if len(stack) > 1 {
		open := stack[len(stack)-1].parent
		return nil, &SyntaxError{Pos: open.pos, Reason: fmt.Sprintf("section %q is never closed", open.text)}
	}
	return stack[0].nodes, nil
}

func checkName(name string, pos int) error {
	if name == "" {
		return &SyntaxError{Pos: pos, Reason: "missing variable name"}
	}
	for _, r := range name {
		if !(r == '_' || r == '.' || r == '-' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return &SyntaxError{Pos: pos, Reason: fmt.Sprintf("invalid variable name %q", name)}
		}
	}
	return nil
}

// Render expands text against bindings.
func Render(text string, bindings map[string]string) (string, error) {
	nodes, err := parse(text)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	renderNodes(&sb, nodes, bindings)
	return sb.String(), nil
}

func renderNodes(sb *strings.Builder, nodes []*node, bindings map[string]string) {
	for _, n := range nodes {
		switch n.typ {
		case textNode:
			sb.WriteString(n.text)
		case varNode:
			sb.WriteString(bindings[n.text])
		case sectionNode:
			if bindings[n.text] != "" {
				renderNodes(sb, n.children, bindings)
			}
		case invertedNode:
			if bindings[n.text] == "" {
				renderNodes(sb, n.children, bindings)
			}
		}
	}
}

// Reference is one use of a variable name in a text.
type Reference struct {
	Name string
	Pos  int
	// Section is set when the reference is the tag of a {{#name}} or {{^name}} block.
	Section bool
	// Guarded is set when a bare {{name}} sits inside a {{#name}} block on the same name.
	Guarded bool
}

// HasFallback reports whether the reference renders sensibly when the variable is unset.
func (r Reference) HasFallback() bool {
	return r.Section || r.Guarded
}

// References lists every variable use in text, in source order.
func References(text string) ([]Reference, error) {
	nodes, err := parse(text)
	if err != nil {
		return nil, err
	}
	var refs []Reference
	collect(&refs, nodes, nil)
	return refs, nil
}

func collect(refs *[]Reference, nodes []*node, guards []string) {
	for _, n := range nodes {
		switch n.typ {
		case varNode:
			*refs = append(*refs, Reference{Name: n.text, Pos: n.pos, Guarded: contains(guards, n.text)})
		case sectionNode:
			*refs = append(*refs, Reference{Name: n.text, Pos: n.pos, Section: true})
			collect(refs, n.children, append(guards, n.text))
		case invertedNode:
			*refs = append(*refs, Reference{Name: n.text, Pos: n.pos, Section: true})
			collect(refs, n.children, guards)
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Names returns the distinct variable names referenced by text, in first-use order.
func Names(text string) ([]string, error) {
	refs, err := References(text)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []string
	for _, r := range refs {
		if !seen[r.Name] {
			seen[r.Name] = true
			out = append(out, r.Name)
		}
	}
	return out, nil
}
