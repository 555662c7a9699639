package kicadsexp

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
)

// TokenType represents the type of a token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenLeftParen
	TokenRightParen
	TokenSymbol
	TokenString
)

func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "EOF"
	case TokenLeftParen:
		return "'('"
	case TokenRightParen:
		return "')'"
	case TokenSymbol:
		return "symbol"
	default:
		return "string"
	}
}

// Token is a lexical token with the line it started on.
type Token struct {
	Type  TokenType
	Value string
	Line  int
}

// Lexer tokenizes S-expressions from an io.Reader
type Lexer struct {
	reader *bufio.Reader
	line   int
}

// NewLexer creates a new lexer
func NewLexer(r io.Reader) *Lexer {
	return &Lexer{reader: bufio.NewReader(r), line: 1}
}

// NextToken reads the next token from the input
func (l *Lexer) NextToken() (Token, error) {
	ch, err := l.skipSpace()
	if errors.Is(err, io.EOF) {
		return Token{Type: TokenEOF, Line: l.line}, nil
	}
	if err != nil {
		return Token{}, err
	}
	switch ch {
	case '(':
		return Token{Type: TokenLeftParen, Value: "(", Line: l.line}, nil
	case ')':
		return Token{Type: TokenRightParen, Value: ")", Line: l.line}, nil
	case '"':
		return l.readString()
	}
	l.reader.UnreadRune()
	return l.readSymbol()
}

// skipSpace consumes whitespace and returns the first other rune.
func (l *Lexer) skipSpace() (rune, error) {
	for {
		ch, _, err := l.reader.ReadRune()
		if err != nil {
			return 0, err
		}
		if ch == '\n' {
			l.line++
		}
		if !unicode.IsSpace(ch) {
			return ch, nil
		}
	}
}

func (l *Lexer) readString() (Token, error) {
	start := l.line
	var sb strings.Builder
	for {
		ch, _, err := l.reader.ReadRune()
		if err != nil {
			return Token{}, fmt.Errorf("line %d: unterminated string", start)
		}
		switch ch {
		case '"':
			return Token{Type: TokenString, Value: sb.String(), Line: start}, nil
		case '\n':
			l.line++
		case '\\':
			next, _, err := l.reader.ReadRune()
			if err != nil {
				return Token{}, fmt.Errorf("line %d: unterminated escape", l.line)
			}
			switch next {
			case 'n':
				ch = '\n'
			case 't':
				ch = '\t'
			case 'r':
				ch = '\r'
			default:
				ch = next
			}
		}
		sb.WriteRune(ch)
	}
}

func (l *Lexer) readSymbol() (Token, error) {
	var sb strings.Builder
	for {
		ch, _, err := l.reader.ReadRune()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Token{}, err
		}
		if unicode.IsSpace(ch) || ch == '(' || ch == ')' || ch == '"' {
			l.reader.UnreadRune()
			break
		}
		sb.WriteRune(ch)
	}
	if sb.Len() == 0 {
		return Token{}, fmt.Errorf("line %d: empty symbol", l.line)
	}
	return Token{Type: TokenSymbol, Value: sb.String(), Line: l.line}, nil
}
