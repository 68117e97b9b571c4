package coa

import (
	"fmt"
	"strings"
)

// TokenType represents the type of a lexer token.
type TokenType uint8

const (
	TokenEOF TokenType = iota
	TokenError

	TokenWord   // bare scalar: numbers, yes/no, identifiers, file names
	TokenString // "quoted string"
	TokenMeta   // ##META##key=... comment line (value is the text after the tag)

	TokenEq     // =
	TokenLBrace // {
	TokenRBrace // }
)

// String returns the token type name.
func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "EOF"
	case TokenError:
		return "ERROR"
	case TokenWord:
		return "WORD"
	case TokenString:
		return "STRING"
	case TokenMeta:
		return "META"
	case TokenEq:
		return "EQ"
	case TokenLBrace:
		return "{"
	case TokenRBrace:
		return "}"
	default:
		return "UNKNOWN"
	}
}

// Token represents a lexer token.
type Token struct {
	Type  TokenType
	Value string
	Pos   Position
}

// String returns a debug representation of the token.
func (t Token) String() string {
	if t.Value == "" {
		return t.Type.String()
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Value)
}

// metaTagPrefix marks a comment line carrying editor metadata. Everything
// after the prefix up to end of line is the tag payload.
const metaTagPrefix = "##META##"

// Lexer tokenizes Clausewitz-style document text.
type Lexer struct {
	input  string
	pos    int // current position in input
	line   int // current line number (1-based)
	col    int // current column number (1-based)
	tokens []Token
	err    error
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{
		input: input,
		pos:   0,
		line:  1,
		col:   1,
	}
}

// Tokenize returns all tokens from the input.
func (l *Lexer) Tokenize() ([]Token, error) {
	for {
		tok := l.nextToken()
		l.tokens = append(l.tokens, tok)
		if tok.Type == TokenEOF || tok.Type == TokenError {
			break
		}
	}
	if l.err != nil {
		return l.tokens, l.err
	}
	return l.tokens, nil
}

// nextToken returns the next token.
func (l *Lexer) nextToken() Token {
	l.skipWhitespaceAndComments()

	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: l.currentPos()}
	}

	startPos := l.currentPos()
	ch := l.peek()

	switch ch {
	case '{':
		l.advance()
		return Token{Type: TokenLBrace, Value: "{", Pos: startPos}
	case '}':
		l.advance()
		return Token{Type: TokenRBrace, Value: "}", Pos: startPos}
	case '=':
		l.advance()
		return Token{Type: TokenEq, Value: "=", Pos: startPos}
	case '"':
		return l.scanString()
	case '#':
		// Only metadata comments reach here; skipWhitespaceAndComments
		// consumed every other comment form.
		return l.scanMeta()
	}

	if isWordChar(ch) {
		return l.scanWord()
	}

	l.advance()
	l.err = &ParseError{Message: fmt.Sprintf("unexpected character %q", ch), Pos: startPos}
	return Token{Type: TokenError, Value: string(ch), Pos: startPos}
}

// scanString scans a quoted string.
func (l *Lexer) scanString() Token {
	startPos := l.currentPos()
	l.advance() // consume opening "

	var sb strings.Builder
	for {
		if l.pos >= len(l.input) || l.peek() == '\n' {
			l.err = &ParseError{Message: "unterminated string", Pos: startPos}
			return Token{Type: TokenError, Value: sb.String(), Pos: startPos}
		}

		ch := l.peek()
		if ch == '"' {
			l.advance() // consume closing "
			break
		}

		if ch == '\\' {
			l.advance()
			if l.pos >= len(l.input) {
				l.err = &ParseError{Message: "unterminated escape", Pos: l.currentPos()}
				return Token{Type: TokenError, Value: sb.String(), Pos: startPos}
			}
			escaped := l.peek()
			l.advance()
			switch escaped {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case '\\':
				sb.WriteByte('\\')
			case '"':
				sb.WriteByte('"')
			default:
				sb.WriteByte(escaped)
			}
		} else {
			sb.WriteByte(ch)
			l.advance()
		}
	}

	return Token{Type: TokenString, Value: sb.String(), Pos: startPos}
}

// scanMeta scans a ##META## comment line. The token value is the payload
// after the prefix, e.g. `name="Lion"` or `symmetry_properties={0.5 0.5 4}`.
func (l *Lexer) scanMeta() Token {
	startPos := l.currentPos()
	for range metaTagPrefix {
		l.advance()
	}

	start := l.pos
	for l.pos < len(l.input) && l.peek() != '\n' {
		l.advance()
	}
	payload := strings.TrimRight(l.input[start:l.pos], " \t\r")
	return Token{Type: TokenMeta, Value: payload, Pos: startPos}
}

// scanWord scans a bare scalar value or key.
func (l *Lexer) scanWord() Token {
	startPos := l.currentPos()
	start := l.pos

	for l.pos < len(l.input) && isWordChar(l.peek()) {
		l.advance()
	}

	return Token{Type: TokenWord, Value: l.input[start:l.pos], Pos: startPos}
}

// skipWhitespaceAndComments skips whitespace and plain # comments,
// stopping at metadata comment lines so they surface as tokens.
func (l *Lexer) skipWhitespaceAndComments() {
	for l.pos < len(l.input) {
		ch := l.peek()

		if ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n' {
			l.advance()
			continue
		}

		if ch == '#' {
			if strings.HasPrefix(l.input[l.pos:], metaTagPrefix) {
				break
			}
			for l.pos < len(l.input) && l.peek() != '\n' {
				l.advance()
			}
			continue
		}

		break
	}
}

// Helper methods

func (l *Lexer) peek() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

func (l *Lexer) advance() {
	if l.pos < len(l.input) {
		switch b := l.input[l.pos]; {
		case b == '\n':
			l.line++
			l.col = 1
		case b&0xC0 == 0x80:
			// UTF-8 continuation byte, still the same column.
		default:
			l.col++
		}
		l.pos++
	}
}

func (l *Lexer) currentPos() Position {
	return Position{Line: l.line, Column: l.col, Offset: l.pos}
}

// Character classification

func isWordChar(ch byte) bool {
	switch {
	case ch >= 'a' && ch <= 'z':
		return true
	case ch >= 'A' && ch <= 'Z':
		return true
	case ch >= '0' && ch <= '9':
		return true
	}
	switch ch {
	case '_', '.', '-', '+', '/', ':', '@':
		return true
	}
	return false
}

// TokenStream provides a stream interface over tokens.
type TokenStream struct {
	tokens []Token
	pos    int
}

// NewTokenStream creates a token stream from tokens.
func NewTokenStream(tokens []Token) *TokenStream {
	return &TokenStream{tokens: tokens, pos: 0}
}

// Peek returns the current token without advancing.
func (ts *TokenStream) Peek() Token {
	if ts.pos >= len(ts.tokens) {
		return Token{Type: TokenEOF}
	}
	return ts.tokens[ts.pos]
}

// PeekN returns the token N positions ahead.
func (ts *TokenStream) PeekN(n int) Token {
	idx := ts.pos + n
	if idx >= len(ts.tokens) {
		return Token{Type: TokenEOF}
	}
	return ts.tokens[idx]
}

// Advance moves to the next token and returns the current one.
func (ts *TokenStream) Advance() Token {
	tok := ts.Peek()
	if ts.pos < len(ts.tokens) {
		ts.pos++
	}
	return tok
}

// Expect advances if the current token matches, otherwise returns an error.
func (ts *TokenStream) Expect(typ TokenType) (Token, error) {
	tok := ts.Peek()
	if tok.Type != typ {
		return tok, &ParseError{
			Message: fmt.Sprintf("expected %s, got %s", typ, tok.Type),
			Pos:     tok.Pos,
		}
	}
	ts.Advance()
	return tok, nil
}

// Match returns true and advances if the current token matches.
func (ts *TokenStream) Match(typ TokenType) bool {
	if ts.Peek().Type == typ {
		ts.Advance()
		return true
	}
	return false
}

// AtEnd returns true if at end of stream.
func (ts *TokenStream) AtEnd() bool {
	return ts.Peek().Type == TokenEOF
}
