package kicadsexp

import (
	"fmt"
	"io"
	"strings"
)

// Parser parses S-expressions from a lexer
type Parser struct {
	lexer *Lexer
	tok   Token
}

// NewParser creates a new parser from an io.Reader
func NewParser(r io.Reader) *Parser {
	return &Parser{lexer: NewLexer(r)}
}

func (p *Parser) next() error {
	tok, err := p.lexer.NextToken()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

// ParseAll parses every top-level expression.
func (p *Parser) ParseAll() ([]Node, error) {
	var out []Node
	if err := p.next(); err != nil {
		return nil, err
	}
	for p.tok.Type != TokenEOF {
		n, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		out = append(out, n)
		if err := p.next(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (p *Parser) parseExpr() (Node, error) {
	switch p.tok.Type {
	case TokenLeftParen:
		return p.parseList()
	case TokenSymbol:
		return Symbol(p.tok.Value), nil
	case TokenString:
		return String(p.tok.Value), nil
	}
	return nil, fmt.Errorf("line %d: unexpected %v", p.tok.Line, p.tok.Type)
}

func (p *Parser) parseList() (*List, error) {
	open := p.tok.Line
	l := &List{}
	for {
		if err := p.next(); err != nil {
			return nil, err
		}
		switch p.tok.Type {
		case TokenRightParen:
			return l, nil
		case TokenEOF:
			return nil, fmt.Errorf("line %d: list not closed", open)
		}
		n, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		l.Items = append(l.Items, n)
	}
}

// Parse reads a document consisting of exactly one list.
func Parse(r io.Reader) (*List, error) {
	nodes, err := NewParser(r).ParseAll()
	if err != nil {
		return nil, err
	}
	if len(nodes) != 1 {
		return nil, fmt.Errorf("expected one top-level expression, got %d", len(nodes))
	}
	l, ok := nodes[0].(*List)
	if !ok {
		return nil, fmt.Errorf("top-level expression is not a list")
	}
	return l, nil
}

// ParseString parses a document from a string.
func ParseString(s string) (*List, error) {
	return Parse(strings.NewReader(s))
}
