package coa

import (
	"fmt"
	"strconv"
)

// Position represents a source location.
type Position struct {
	Line   int
	Column int
	Offset int
}

// String returns position as "line:column".
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// NodeKind discriminates the parse tree node variants.
type NodeKind uint8

const (
	// NodeScalar is a single value: bare word, quoted string, or an
	// rgb color construct captured as opaque text.
	NodeScalar NodeKind = iota
	// NodeBlock is a brace block of key = value entries.
	NodeBlock
	// NodeArray is a brace block of bare scalars without keys.
	NodeArray
)

// MetaTag is one decoded ##META## line. Tags carry either a quoted string
// or a numeric list, never both.
type MetaTag struct {
	Key  string
	Str  string
	Nums []float64

	// IsStr reports which payload form the tag used.
	IsStr bool
}

func (m MetaTag) clone() MetaTag {
	out := m
	out.Nums = append([]float64(nil), m.Nums...)
	return out
}

// Entry is a single key = value pair inside a block, together with any
// metadata tags that preceded it.
type Entry struct {
	Key  string
	Meta []MetaTag
	Node *Node
	Pos  Position
}

// metaTag returns the first tag with the given key, if present.
func (e Entry) metaTag(key string) (MetaTag, bool) {
	for _, m := range e.Meta {
		if m.Key == key {
			return m, true
		}
	}
	return MetaTag{}, false
}

// metaString returns the string payload of the named tag, or the fallback.
func (e Entry) metaString(key, fallback string) string {
	if m, ok := e.metaTag(key); ok && m.IsStr {
		return m.Str
	}
	return fallback
}

// Node is one node of the parse tree. The tree preserves sibling key
// repetition and entry order so unrecognized content survives a round trip.
type Node struct {
	Kind    NodeKind
	Scalar  string  // NodeScalar: the value text, unquoted
	Quoted  bool    // NodeScalar: whether the source was a quoted string
	Items   []string // NodeArray: bare scalar texts in order
	Entries []Entry  // NodeBlock: ordered entries, keys may repeat
}

// scalarNode wraps a value text in a scalar node.
func scalarNode(value string, quoted bool) *Node {
	return &Node{Kind: NodeScalar, Scalar: value, Quoted: quoted}
}

// arrayNode wraps scalar texts in an array node.
func arrayNode(items []string) *Node {
	return &Node{Kind: NodeArray, Items: items}
}

// blockNode wraps entries in a block node.
func blockNode(entries []Entry) *Node {
	return &Node{Kind: NodeBlock, Entries: entries}
}

// First returns the node of the first entry with the given key.
func (n *Node) First(key string) (*Node, bool) {
	if n == nil || n.Kind != NodeBlock {
		return nil, false
	}
	for _, e := range n.Entries {
		if e.Key == key {
			return e.Node, true
		}
	}
	return nil, false
}

// Each returns every entry with the given key, in document order.
func (n *Node) Each(key string) []Entry {
	if n == nil || n.Kind != NodeBlock {
		return nil
	}
	var out []Entry
	for _, e := range n.Entries {
		if e.Key == key {
			out = append(out, e)
		}
	}
	return out
}

// Str returns the scalar text, or the fallback when the node is absent or
// not a scalar.
func (n *Node) Str(fallback string) string {
	if n == nil || n.Kind != NodeScalar {
		return fallback
	}
	return n.Scalar
}

// Float converts a scalar node to a float64.
func (n *Node) Float(fallback float64) float64 {
	if n == nil || n.Kind != NodeScalar {
		return fallback
	}
	v, err := strconv.ParseFloat(n.Scalar, 64)
	if err != nil {
		return fallback
	}
	return v
}

// Floats converts an array node to a float64 slice. Items that fail to
// parse are dropped.
func (n *Node) Floats() []float64 {
	if n == nil || n.Kind != NodeArray {
		return nil
	}
	out := make([]float64, 0, len(n.Items))
	for _, it := range n.Items {
		if v, err := strconv.ParseFloat(it, 64); err == nil {
			out = append(out, v)
		}
	}
	return out
}

// Ints converts an array node to an int slice. Items that fail to parse
// are dropped.
func (n *Node) Ints() []int {
	if n == nil || n.Kind != NodeArray {
		return nil
	}
	out := make([]int, 0, len(n.Items))
	for _, it := range n.Items {
		if v, err := strconv.Atoi(it); err == nil {
			out = append(out, v)
		}
	}
	return out
}

// clone deep-copies the node tree.
func (n *Node) clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{Kind: n.Kind, Scalar: n.Scalar, Quoted: n.Quoted}
	out.Items = append([]string(nil), n.Items...)
	if n.Entries != nil {
		out.Entries = make([]Entry, len(n.Entries))
		for i, e := range n.Entries {
			ce := Entry{Key: e.Key, Node: e.Node.clone(), Pos: e.Pos}
			for _, m := range e.Meta {
				ce.Meta = append(ce.Meta, m.clone())
			}
			out.Entries[i] = ce
		}
	}
	return out
}
