package coa

import (
	"strconv"
	"strings"
)

// EmitOptions configures the text emitter.
type EmitOptions struct {
	// Indent is the per-level indentation string.
	Indent string

	// BlankAfter adds a blank line after entries with these keys, the
	// layout convention for emblem and instance blocks.
	BlankAfter map[string]bool
}

// DefaultEmitOptions returns the document layout conventions.
func DefaultEmitOptions() EmitOptions {
	return EmitOptions{
		Indent: "\t",
		BlankAfter: map[string]bool{
			"colored_emblem": true,
			"instance":       true,
		},
	}
}

// EmitNode renders a parse tree back to document text.
func EmitNode(root *Node) string {
	e := &emitter{opts: DefaultEmitOptions()}
	e.writeEntries(root, 0)
	return e.b.String()
}

// emitter accumulates document text.
type emitter struct {
	b    strings.Builder
	opts EmitOptions
}

func (e *emitter) indent(depth int) {
	for i := 0; i < depth; i++ {
		e.b.WriteString(e.opts.Indent)
	}
}

func (e *emitter) line(depth int, text string) {
	e.indent(depth)
	e.b.WriteString(text)
	e.b.WriteByte('\n')
}

// writeEntries renders a block's entries at the given depth.
func (e *emitter) writeEntries(n *Node, depth int) {
	if n == nil {
		return
	}
	for _, entry := range n.Entries {
		e.writeEntry(entry, depth)
	}
}

// writeEntry renders one entry, preceded by its metadata tags.
func (e *emitter) writeEntry(entry Entry, depth int) {
	for _, m := range entry.Meta {
		e.writeMeta(m, depth)
	}

	switch entry.Node.Kind {
	case NodeScalar:
		e.line(depth, entry.Key+" = "+scalarText(entry.Node))

	case NodeArray:
		if len(entry.Node.Items) == 0 {
			e.line(depth, entry.Key+" = { }")
		} else {
			e.line(depth, entry.Key+" = { "+strings.Join(entry.Node.Items, " ")+" }")
		}

	case NodeBlock:
		e.line(depth, entry.Key+" = {")
		e.writeEntries(entry.Node, depth+1)
		e.line(depth, "}")
	}

	if e.opts.BlankAfter[entry.Key] {
		e.b.WriteByte('\n')
	}
}

// writeMeta renders one ##META## tag line.
func (e *emitter) writeMeta(m MetaTag, depth int) {
	e.indent(depth)
	e.b.WriteString(metaTagPrefix)
	e.b.WriteString(m.Key)
	e.b.WriteByte('=')
	if m.IsStr {
		e.b.WriteByte('"')
		e.b.WriteString(m.Str)
		e.b.WriteByte('"')
	} else {
		e.b.WriteString("{ ")
		for i, v := range m.Nums {
			if i > 0 {
				e.b.WriteByte(' ')
			}
			e.b.WriteString(formatNum(v))
		}
		e.b.WriteString(" }")
	}
	e.b.WriteByte('\n')
}

// scalarText renders a scalar value, re-quoting what was quoted.
func scalarText(n *Node) string {
	if !n.Quoted {
		return n.Scalar
	}
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(n.Scalar); i++ {
		ch := n.Scalar[i]
		switch ch {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteByte(ch)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// formatNum renders a float with up to six decimal places, trailing zeros
// trimmed. Whole values render without a decimal point.
func formatNum(v float64) string {
	s := strconv.FormatFloat(v, 'f', 6, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" || s == "" {
		return "0"
	}
	return s
}
