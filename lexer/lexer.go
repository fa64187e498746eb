// Package lexer scans C-subset source text into the token log, interning
// every spelling in the string store.
package lexer

import (
	"fmt"
	"unicode"

	"github.com/thobo70/stcc1-sub000/core"
	"github.com/thobo70/stcc1-sub000/strstore"
	"github.com/thobo70/stcc1-sub000/tokens"
)

// keywords maps source text to its keyword token type.
var keywords = map[string]tokens.Type{
	"int":      tokens.TokenInt,
	"char":     tokens.TokenChar_,
	"void":     tokens.TokenVoid,
	"if":       tokens.TokenIf,
	"else":     tokens.TokenElse,
	"while":    tokens.TokenWhile,
	"for":      tokens.TokenFor,
	"return":   tokens.TokenReturn,
	"break":    tokens.TokenBreak,
	"continue": tokens.TokenContinue,
}

// Lexer holds the mutable state of one scanning pass over src.
type Lexer struct {
	src  []rune
	pos  int // index of the next rune to consume
	line int // current 1-based source line
	col  int // current 1-based column

	strs *strstore.Store
	log  *tokens.Log

	Metrics *core.Metrics
}

func New(src string, strs *strstore.Store, log *tokens.Log) *Lexer {
	return &Lexer{src: []rune(src), line: 1, col: 1, strs: strs, log: log}
}

// Run scans the whole input, appending every token to the log, terminated by
// an EOF token.
func (l *Lexer) Run() error {
	for {
		tok, spelling, err := l.next()
		if err != nil {
			return err
		}
		if spelling != "" {
			off, err := l.strs.Put(spelling)
			if err != nil {
				return err
			}
			tok.Str = off
		}
		if _, err := l.log.Append(tok); err != nil {
			return err
		}
		if l.Metrics != nil {
			l.Metrics.TokensLexed++
		}
		if tok.Type == tokens.TokenEOF {
			return nil
		}
	}
}

func (l *Lexer) peek() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peek2() rune {
	if l.pos+1 >= len(l.src) {
		return 0
	}
	return l.src[l.pos+1]
}

func (l *Lexer) advance() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	r := l.src[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *Lexer) skipWhitespaceAndComments() error {
	for l.pos < len(l.src) {
		switch {
		case unicode.IsSpace(l.peek()):
			l.advance()
		case l.peek() == '/' && l.peek2() == '/':
			for l.pos < len(l.src) && l.peek() != '\n' {
				l.advance()
			}
		case l.peek() == '/' && l.peek2() == '*':
			startLine := l.line
			l.advance()
			l.advance()
			for {
				if l.pos >= len(l.src) {
					return fmt.Errorf("lexer: unterminated block comment (opened on line %d)", startLine)
				}
				if l.peek() == '*' && l.peek2() == '/' {
					l.advance()
					l.advance()
					break
				}
				l.advance()
			}
		default:
			return nil
		}
	}
	return nil
}

// next scans one token. The spelling is returned separately so Run can
// intern it; it is empty for tokens that carry none.
func (l *Lexer) next() (tokens.Token, string, error) {
	if err := l.skipWhitespaceAndComments(); err != nil {
		return tokens.Token{}, "", err
	}
	tok := tokens.Token{Line: uint32(l.line), Col: uint32(l.col)}
	if l.pos >= len(l.src) {
		tok.Type = tokens.TokenEOF
		return tok, "", nil
	}

	r := l.peek()
	switch {
	case unicode.IsLetter(r) || r == '_':
		spelling := l.scanIdent()
		if kw, ok := keywords[spelling]; ok {
			tok.Type = kw
			return tok, "", nil
		}
		tok.Type = tokens.TokenIdent
		return tok, spelling, nil
	case unicode.IsDigit(r):
		tok.Type = tokens.TokenNumber
		return tok, l.scanNumber(), nil
	case r == '"':
		spelling, err := l.scanString()
		if err != nil {
			return tok, "", err
		}
		tok.Type = tokens.TokenString
		return tok, spelling, nil
	case r == '\'':
		spelling, err := l.scanChar()
		if err != nil {
			return tok, "", err
		}
		tok.Type = tokens.TokenChar
		return tok, spelling, nil
	}

	typ, err := l.scanOperator()
	if err != nil {
		return tok, "", err
	}
	tok.Type = typ
	return tok, "", nil
}

func (l *Lexer) scanIdent() string {
	start := l.pos
	for l.pos < len(l.src) {
		r := l.peek()
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			break
		}
		l.advance()
	}
	return string(l.src[start:l.pos])
}

func (l *Lexer) scanNumber() string {
	start := l.pos
	if l.peek() == '0' && (l.peek2() == 'x' || l.peek2() == 'X') {
		l.advance()
		l.advance()
		for l.pos < len(l.src) && isHexDigit(l.peek()) {
			l.advance()
		}
		return string(l.src[start:l.pos])
	}
	for l.pos < len(l.src) && unicode.IsDigit(l.peek()) {
		l.advance()
	}
	return string(l.src[start:l.pos])
}

func (l *Lexer) scanString() (string, error) {
	line := l.line
	l.advance() // opening quote
	var out []rune
	for {
		if l.pos >= len(l.src) {
			return "", fmt.Errorf("lexer: unterminated string literal on line %d", line)
		}
		r := l.advance()
		if r == '"' {
			return string(out), nil
		}
		if r == '\\' {
			esc, err := l.unescape(l.advance())
			if err != nil {
				return "", err
			}
			out = append(out, esc)
			continue
		}
		out = append(out, r)
	}
}

func (l *Lexer) scanChar() (string, error) {
	line := l.line
	l.advance() // opening quote
	if l.pos >= len(l.src) {
		return "", fmt.Errorf("lexer: unterminated character literal on line %d", line)
	}
	r := l.advance()
	if r == '\\' {
		esc, err := l.unescape(l.advance())
		if err != nil {
			return "", err
		}
		r = esc
	}
	if l.advance() != '\'' {
		return "", fmt.Errorf("lexer: unterminated character literal on line %d", line)
	}
	return string(r), nil
}

func (l *Lexer) unescape(r rune) (rune, error) {
	switch r {
	case 'n':
		return '\n', nil
	case 't':
		return '\t', nil
	case 'r':
		return '\r', nil
	case '0':
		return 0, nil
	case '\\', '\'', '"':
		return r, nil
	}
	return 0, fmt.Errorf("lexer: unknown escape \\%c on line %d", r, l.line)
}

func (l *Lexer) scanOperator() (tokens.Type, error) {
	r := l.advance()
	switch r {
	case '{':
		return tokens.TokenLBrace, nil
	case '}':
		return tokens.TokenRBrace, nil
	case '(':
		return tokens.TokenLParen, nil
	case ')':
		return tokens.TokenRParen, nil
	case ';':
		return tokens.TokenSemicolon, nil
	case ',':
		return tokens.TokenComma, nil
	case '+':
		return tokens.TokenPlus, nil
	case '-':
		return tokens.TokenMinus, nil
	case '*':
		return tokens.TokenStar, nil
	case '/':
		return tokens.TokenSlash, nil
	case '%':
		return tokens.TokenPercent, nil
	case '=':
		if l.peek() == '=' {
			l.advance()
			return tokens.TokenEq, nil
		}
		return tokens.TokenAssign, nil
	case '!':
		if l.peek() == '=' {
			l.advance()
			return tokens.TokenNe, nil
		}
		return tokens.TokenNot, nil
	case '<':
		if l.peek() == '=' {
			l.advance()
			return tokens.TokenLe, nil
		}
		return tokens.TokenLt, nil
	case '>':
		if l.peek() == '=' {
			l.advance()
			return tokens.TokenGe, nil
		}
		return tokens.TokenGt, nil
	case '&':
		if l.peek() == '&' {
			l.advance()
			return tokens.TokenAndAnd, nil
		}
	case '|':
		if l.peek() == '|' {
			l.advance()
			return tokens.TokenOrOr, nil
		}
	}
	return tokens.TokenEOF, fmt.Errorf("lexer: unexpected character %q on line %d", r, l.line)
}

func isHexDigit(r rune) bool {
	return unicode.IsDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}
