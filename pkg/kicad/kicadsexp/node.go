// Package kicadsexp reads and writes the S-expression format of KiCad
// board files. Quoted strings and bare symbols stay distinct so a document
// can be written back unchanged.
package kicadsexp

import (
	"fmt"
	"strconv"
)

// Node is a Symbol, a String or a *List.
type Node interface {
	isNode()
}

// Symbol is an unquoted atom such as a keyword or a number.
type Symbol string

// String is a quoted atom.
type String string

// List is a parenthesised expression.
type List struct {
	Items []Node
}

func (Symbol) isNode() {}
func (String) isNode() {}
func (*List) isNode()  {}

// NewList builds a list whose first element is the symbol name.
func NewList(name string, items ...Node) *List {
	return &List{Items: append([]Node{Symbol(name)}, items...)}
}

// Name returns the leading symbol of the list, or "".
func (l *List) Name() string {
	if len(l.Items) == 0 {
		return ""
	}
	if s, ok := l.Items[0].(Symbol); ok {
		return string(s)
	}
	return ""
}

// Len returns the number of elements including the name.
func (l *List) Len() int {
	return len(l.Items)
}

// Find returns the first direct child list with the given name.
func (l *List) Find(name string) (*List, bool) {
	for _, it := range l.Items {
		if c, ok := it.(*List); ok && c.Name() == name {
			return c, true
		}
	}
	return nil, false
}

// FindAll returns every direct child list with the given name.
func (l *List) FindAll(name string) []*List {
	var out []*List
	for _, it := range l.Items {
		if c, ok := it.(*List); ok && c.Name() == name {
			out = append(out, c)
		}
	}
	return out
}

// Lists returns every direct child list.
func (l *List) Lists() []*List {
	var out []*List
	for _, it := range l.Items {
		if c, ok := it.(*List); ok {
			out = append(out, c)
		}
	}
	return out
}

// HasSymbol reports whether a bare symbol equal to s is a direct element.
func (l *List) HasSymbol(s string) bool {
	for _, it := range l.Items {
		if sym, ok := it.(Symbol); ok && string(sym) == s {
			return true
		}
	}
	return false
}

// Atom returns element i as text, whether quoted or not.
func (l *List) Atom(i int) (string, bool) {
	if i < 0 || i >= len(l.Items) {
		return "", false
	}
	switch v := l.Items[i].(type) {
	case Symbol:
		return string(v), true
	case String:
		return string(v), true
	}
	return "", false
}

// Str returns element i as text or an error naming the list.
func (l *List) Str(i int) (string, error) {
	s, ok := l.Atom(i)
	if !ok {
		return "", fmt.Errorf("(%s): missing atom %d", l.Name(), i)
	}
	return s, nil
}

// Float returns element i as a number.
func (l *List) Float(i int) (float64, error) {
	s, err := l.Str(i)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("(%s): element %d: %w", l.Name(), i, err)
	}
	return v, nil
}

// Int returns element i as an integer.
func (l *List) Int(i int) (int, error) {
	s, err := l.Str(i)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("(%s): element %d: %w", l.Name(), i, err)
	}
	return v, nil
}

// Atoms returns the text of every atom after the name.
func (l *List) Atoms() []string {
	var out []string
	for i := 1; i < len(l.Items); i++ {
		if s, ok := l.Atom(i); ok {
			out = append(out, s)
		}
	}
	return out
}
