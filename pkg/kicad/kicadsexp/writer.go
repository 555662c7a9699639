package kicadsexp

import (
	"bufio"
	"io"
	"strings"
)

// Write emits l the way KiCad formats its files: a list holding only atoms
// stays on one line, nested lists go on their own lines indented by two
// spaces per level.
func Write(w io.Writer, l *List) error {
	bw := bufio.NewWriter(w)
	writeList(bw, l, 0)
	bw.WriteByte('\n')
	return bw.Flush()
}

// Format returns l as text.
func Format(l *List) string {
	var sb strings.Builder
	Write(&sb, l)
	return sb.String()
}

func writeList(w *bufio.Writer, l *List, depth int) {
	w.WriteByte('(')
	nested := false
	for i, it := range l.Items {
		if c, ok := it.(*List); ok {
			if flat(c) && !nested {
				w.WriteByte(' ')
				writeList(w, c, depth+1)
				continue
			}
			nested = true
			w.WriteByte('\n')
			w.WriteString(strings.Repeat("  ", depth+1))
			writeList(w, c, depth+1)
			continue
		}
		if i > 0 {
			w.WriteByte(' ')
		}
		writeAtom(w, it)
	}
	if nested {
		w.WriteByte('\n')
		w.WriteString(strings.Repeat("  ", depth))
	}
	w.WriteByte(')')
}

// flat reports whether a list holds only atoms and short atom lists.
func flat(l *List) bool {
	for _, it := range l.Items {
		if c, ok := it.(*List); ok {
			for _, x := range c.Items {
				if _, ok := x.(*List); ok {
					return false
				}
			}
		}
	}
	return len(l.Items) <= 8
}

func writeAtom(w *bufio.Writer, n Node) {
	switch v := n.(type) {
	case Symbol:
		w.WriteString(string(v))
	case String:
		w.WriteByte('"')
		for _, r := range string(v) {
			switch r {
			case '"':
				w.WriteString(`\"`)
			case '\\':
				w.WriteString(`\\`)
			case '\n':
				w.WriteString(`\n`)
			default:
				w.WriteRune(r)
			}
		}
		w.WriteByte('"')
	}
}
