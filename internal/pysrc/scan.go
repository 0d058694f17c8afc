// Package pysrc provides a lexical scanner for Python source.
//
// The scanner splits source text into logical lines of tokens, handling
// comments, string literals (including triple-quoted and prefixed forms),
// bracket continuation and backslash continuation. It is deliberately not a
// parser: it gives the policy validator and the metrics analyzers just enough
// structure to reason about statements without ever executing anything.
package pysrc

import (
	"fmt"
	"strings"
)

// TokenKind classifies a scanned token.
type TokenKind int

const (
	TokName TokenKind = iota
	TokNumber
	TokString
	TokOp
)

// Token is a single lexical token. Text holds the literal text for names,
// numbers and operators; string tokens carry their raw (unquoted) content.
type Token struct {
	Kind TokenKind
	Text string
}

// Line is one logical source line: physical lines joined across bracket and
// backslash continuations, with comments stripped.
type Line struct {
	Tokens []Token
}

// compound statement keywords whose suite may follow a colon on the same line.
var compoundKeywords = map[string]bool{
	"if": true, "elif": true, "else": true,
	"for": true, "while": true,
	"try": true, "except": true, "finally": true,
	"def": true, "class": true, "with": true, "async": true,
}

// Scan splits source into logical lines of tokens. It returns an error only
// for lexical problems the scanner can prove: an unterminated string literal
// or unbalanced brackets at end of input.
func Scan(source string) ([]Line, error) {
	s := &scanner{src: source}
	return s.run()
}

type scanner struct {
	src   string
	pos   int
	depth int
	cur   []Token
	lines []Line
}

func (s *scanner) run() ([]Line, error) {
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case c == '\n':
			s.pos++
			if s.depth == 0 {
				s.endLine()
			}
		case c == ' ' || c == '\t' || c == '\r':
			s.pos++
		case c == '#':
			s.skipComment()
		case c == '\\' && s.peekAt(s.pos+1) == '\n':
			s.pos += 2
		case c == '\'' || c == '"':
			if err := s.scanString(""); err != nil {
				return nil, err
			}
		case isIdentStart(c):
			if err := s.scanNameOrPrefixedString(); err != nil {
				return nil, err
			}
		case c >= '0' && c <= '9':
			s.scanNumber()
		default:
			s.scanOp()
		}
	}
	s.endLine()
	if s.depth != 0 {
		return nil, fmt.Errorf("unbalanced brackets at end of input")
	}
	return s.lines, nil
}

func (s *scanner) endLine() {
	if len(s.cur) > 0 {
		s.lines = append(s.lines, Line{Tokens: s.cur})
		s.cur = nil
	}
}

func (s *scanner) peekAt(i int) byte {
	if i < len(s.src) {
		return s.src[i]
	}
	return 0
}

func (s *scanner) skipComment() {
	for s.pos < len(s.src) && s.src[s.pos] != '\n' {
		s.pos++
	}
}

func (s *scanner) scanNameOrPrefixedString() error {
	start := s.pos
	for s.pos < len(s.src) && isIdentPart(s.src[s.pos]) {
		s.pos++
	}
	name := s.src[start:s.pos]

	// String prefixes such as r"", b'', f"""...""" and their combinations.
	if len(name) <= 2 && isStringPrefix(name) && s.pos < len(s.src) {
		if q := s.src[s.pos]; q == '\'' || q == '"' {
			return s.scanString(name)
		}
	}
	s.cur = append(s.cur, Token{Kind: TokName, Text: name})
	return nil
}

func isStringPrefix(name string) bool {
	for i := 0; i < len(name); i++ {
		switch name[i] | 0x20 {
		case 'r', 'b', 'u', 'f':
		default:
			return false
		}
	}
	return len(name) > 0
}

func (s *scanner) scanString(prefix string) error {
	quote := s.src[s.pos]
	raw := strings.ContainsAny(prefix, "rR")
	triple := s.peekAt(s.pos+1) == quote && s.peekAt(s.pos+2) == quote
	if triple {
		s.pos += 3
	} else {
		s.pos++
	}
	start := s.pos

	for s.pos < len(s.src) {
		c := s.src[s.pos]
		if c == '\\' && !raw {
			s.pos += 2
			continue
		}
		if c == quote {
			if !triple {
				s.cur = append(s.cur, Token{Kind: TokString, Text: s.src[start:s.pos]})
				s.pos++
				return nil
			}
			if s.peekAt(s.pos+1) == quote && s.peekAt(s.pos+2) == quote {
				s.cur = append(s.cur, Token{Kind: TokString, Text: s.src[start:s.pos]})
				s.pos += 3
				return nil
			}
			s.pos++
			continue
		}
		if c == '\n' && !triple {
			return fmt.Errorf("unterminated string literal")
		}
		s.pos++
	}
	return fmt.Errorf("unterminated string literal")
}

func (s *scanner) scanNumber() {
	start := s.pos
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		if isIdentPart(c) || c == '.' {
			s.pos++
			continue
		}
		// Exponent sign: 1e+5, 0x1p-3
		if (c == '+' || c == '-') && s.pos > start {
			prev := s.src[s.pos-1] | 0x20
			if prev == 'e' || prev == 'p' {
				s.pos++
				continue
			}
		}
		break
	}
	s.cur = append(s.cur, Token{Kind: TokNumber, Text: s.src[start:s.pos]})
}

func (s *scanner) scanOp() {
	c := s.src[s.pos]
	switch c {
	case '(', '[', '{':
		s.depth++
	case ')', ']', '}':
		if s.depth > 0 {
			s.depth--
		}
	}
	if c == '-' && s.peekAt(s.pos+1) == '>' {
		s.cur = append(s.cur, Token{Kind: TokOp, Text: "->"})
		s.pos += 2
		return
	}
	s.cur = append(s.cur, Token{Kind: TokOp, Text: string(c)})
	s.pos++
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// IsName reports whether tok is a name token with the given text.
func (t Token) IsName(text string) bool {
	return t.Kind == TokName && t.Text == text
}

// IsOp reports whether tok is an operator token with the given text.
func (t Token) IsOp(text string) bool {
	return t.Kind == TokOp && t.Text == text
}

// StatementHeads splits the logical line into its component statements and
// returns the token slice starting each one. A new statement begins at the
// line start, after a top-level semicolon, and after the header colon of a
// compound statement one-liner ("if x: import os"). Colons belonging to
// lambdas, annotations, dict literals and slices do not split.
func (l Line) StatementHeads() [][]Token {
	if len(l.Tokens) == 0 {
		return nil
	}
	heads := [][]Token{}
	start := 0
	depth := 0
	compound := compoundKeywords[firstNameText(l.Tokens)]
	pendingLambda := 0

	for i, tok := range l.Tokens {
		if tok.Kind == TokOp {
			switch tok.Text {
			case "(", "[", "{":
				depth++
			case ")", "]", "}":
				if depth > 0 {
					depth--
				}
			case ";":
				if depth == 0 {
					heads = append(heads, l.Tokens[start:i])
					start = i + 1
					compound = compoundKeywords[firstNameText(l.Tokens[start:])]
				}
			case ":":
				if depth == 0 {
					if pendingLambda > 0 {
						pendingLambda--
						continue
					}
					if compound && i+1 < len(l.Tokens) {
						heads = append(heads, l.Tokens[start:i])
						start = i + 1
						compound = compoundKeywords[firstNameText(l.Tokens[start:])]
					}
				}
			}
			continue
		}
		if tok.IsName("lambda") && depth == 0 {
			pendingLambda++
		}
	}
	if start < len(l.Tokens) {
		heads = append(heads, l.Tokens[start:])
	}
	return heads
}

func firstNameText(tokens []Token) string {
	for _, tok := range tokens {
		if tok.Kind == TokName {
			return tok.Text
		}
		// Decorators precede the def/class they decorate on separate
		// lines; anything other than a leading name means this head
		// cannot open a compound statement.
		return ""
	}
	return ""
}
