package coa

import (
	"fmt"
	"strconv"
	"strings"
)

// Parser turns document text into the generic parse tree. It has no
// knowledge of domain semantics beyond blocks, key = value pairs, arrays,
// and metadata comment lines.
type Parser struct {
	stream *TokenStream
}

// Parse parses document text into a root block node. A malformed document
// (unbalanced braces, unterminated string, stray tokens) fails with a
// *ParseError carrying line and column; no partial tree is returned.
func Parse(input string) (*Node, error) {
	lexer := NewLexer(input)
	tokens, err := lexer.Tokenize()
	if err != nil {
		return nil, err
	}

	p := &Parser{stream: NewTokenStream(tokens)}
	entries, trailing, err := p.parseEntries(TokenEOF)
	if err != nil {
		return nil, err
	}
	if len(trailing) > 0 {
		// Tags at the end of input annotate nothing.
		return nil, &ParseError{
			Message: fmt.Sprintf("metadata tag %q annotates no block", trailing[0].Key),
			Pos:     p.stream.Peek().Pos,
		}
	}
	return blockNode(entries), nil
}

// parseEntries parses key = value pairs until the stop token. Metadata
// tags attach to the entry that follows them; tags left pending when the
// block closes are returned so the caller can attach them to the block's
// own entry.
func (p *Parser) parseEntries(stop TokenType) ([]Entry, []MetaTag, error) {
	var entries []Entry
	var pending []MetaTag

	for {
		tok := p.stream.Peek()
		if tok.Type == stop {
			return entries, pending, nil
		}

		switch tok.Type {
		case TokenMeta:
			p.stream.Advance()
			tag, err := parseMetaTag(tok.Value, tok.Pos)
			if err != nil {
				return nil, nil, err
			}
			pending = append(pending, tag)

		case TokenWord, TokenString:
			entry, err := p.parseEntry()
			if err != nil {
				return nil, nil, err
			}
			// Script constants (@name = value) are read and dropped.
			if strings.HasPrefix(entry.Key, "@") {
				continue
			}
			entry.Meta = append(pending, entry.Meta...)
			pending = nil
			entries = append(entries, entry)

		case TokenEOF:
			return nil, nil, &ParseError{Message: "unexpected end of input, unclosed block", Pos: tok.Pos}

		default:
			return nil, nil, &ParseError{
				Message: fmt.Sprintf("unexpected %s", tok),
				Pos:     tok.Pos,
			}
		}
	}
}

// parseEntry parses one key = value pair.
func (p *Parser) parseEntry() (Entry, error) {
	keyTok := p.stream.Advance()
	entry := Entry{Key: keyTok.Value, Pos: keyTok.Pos}

	if _, err := p.stream.Expect(TokenEq); err != nil {
		return Entry{}, err
	}

	node, hoisted, err := p.parseValue()
	if err != nil {
		return Entry{}, err
	}
	entry.Node = node
	entry.Meta = append(entry.Meta, hoisted...)
	return entry, nil
}

// parseValue parses a scalar, an rgb construct, or a brace block. Metadata
// tags written just inside a block annotate the block itself; they are
// returned so the caller can attach them to the enclosing entry.
func (p *Parser) parseValue() (*Node, []MetaTag, error) {
	tok := p.stream.Peek()

	switch tok.Type {
	case TokenString:
		p.stream.Advance()
		return scalarNode(tok.Value, true), nil, nil

	case TokenWord:
		p.stream.Advance()
		// rgb { r g b } reads as a single opaque scalar so color values
		// survive untouched whichever form they use.
		if tok.Value == "rgb" && p.stream.Peek().Type == TokenLBrace {
			n, err := p.parseRGB(tok.Pos)
			return n, nil, err
		}
		return scalarNode(tok.Value, false), nil, nil

	case TokenLBrace:
		return p.parseBlock()

	default:
		return nil, nil, &ParseError{
			Message: fmt.Sprintf("expected value, got %s", tok.Type),
			Pos:     tok.Pos,
		}
	}
}

// parseRGB consumes the brace list after an rgb keyword and rebuilds the
// construct as scalar text.
func (p *Parser) parseRGB(pos Position) (*Node, error) {
	p.stream.Advance() // consume {

	var parts []string
	for {
		tok := p.stream.Peek()
		switch tok.Type {
		case TokenRBrace:
			p.stream.Advance()
			return scalarNode("rgb { "+strings.Join(parts, " ")+" }", false), nil
		case TokenWord:
			p.stream.Advance()
			parts = append(parts, tok.Value)
		default:
			return nil, &ParseError{
				Message: fmt.Sprintf("expected number in rgb block, got %s", tok.Type),
				Pos:     tok.Pos,
			}
		}
	}
}

// parseBlock parses { ... } as either a key = value block or a bare array,
// decided by lookahead on the first tokens inside. Metadata tags written
// inside the block are returned so they can be hoisted onto the enclosing
// entry.
func (p *Parser) parseBlock() (*Node, []MetaTag, error) {
	p.stream.Advance() // consume {

	tok := p.stream.Peek()
	switch tok.Type {
	case TokenRBrace:
		p.stream.Advance()
		return arrayNode(nil), nil, nil

	case TokenMeta:
		return p.finishBlock()

	case TokenWord, TokenString:
		if p.stream.PeekN(1).Type == TokenEq {
			return p.finishBlock()
		}
		n, err := p.finishArray()
		return n, nil, err

	default:
		return nil, nil, &ParseError{
			Message: fmt.Sprintf("unexpected %s inside block", tok.Type),
			Pos:     tok.Pos,
		}
	}
}

// finishBlock parses entries up to the closing brace. Tags left pending at
// the close annotate the block itself and hoist to the enclosing entry.
func (p *Parser) finishBlock() (*Node, []MetaTag, error) {
	entries, trailing, err := p.parseEntries(TokenRBrace)
	if err != nil {
		return nil, nil, err
	}
	p.stream.Advance() // consume }
	return blockNode(entries), trailing, nil
}

// finishArray parses bare scalars up to the closing brace.
func (p *Parser) finishArray() (*Node, error) {
	var items []string
	for {
		tok := p.stream.Peek()
		switch tok.Type {
		case TokenRBrace:
			p.stream.Advance()
			return arrayNode(items), nil
		case TokenWord, TokenString:
			p.stream.Advance()
			items = append(items, tok.Value)
		case TokenEOF:
			return nil, &ParseError{Message: "unexpected end of input, unclosed array", Pos: tok.Pos}
		default:
			return nil, &ParseError{
				Message: fmt.Sprintf("unexpected %s inside array", tok.Type),
				Pos:     tok.Pos,
			}
		}
	}
}

// parseMetaTag decodes the payload of a ##META## comment line:
// key="string" or key={ n n n }.
func parseMetaTag(payload string, pos Position) (MetaTag, error) {
	eq := strings.IndexByte(payload, '=')
	if eq <= 0 {
		return MetaTag{}, &ParseError{Message: fmt.Sprintf("malformed metadata tag %q", payload), Pos: pos}
	}

	tag := MetaTag{Key: strings.TrimSpace(payload[:eq])}
	rest := strings.TrimSpace(payload[eq+1:])

	switch {
	case strings.HasPrefix(rest, `"`) && strings.HasSuffix(rest, `"`) && len(rest) >= 2:
		tag.IsStr = true
		tag.Str = rest[1 : len(rest)-1]

	case strings.HasPrefix(rest, "{") && strings.HasSuffix(rest, "}"):
		inner := strings.TrimSpace(rest[1 : len(rest)-1])
		for _, field := range strings.Fields(inner) {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return MetaTag{}, &ParseError{
					Message: fmt.Sprintf("bad number %q in metadata tag %q", field, tag.Key),
					Pos:     pos,
				}
			}
			tag.Nums = append(tag.Nums, v)
		}

	default:
		return MetaTag{}, &ParseError{Message: fmt.Sprintf("malformed metadata tag %q", payload), Pos: pos}
	}

	return tag, nil
}
