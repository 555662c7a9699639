package kicad

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/OpenTraceLab/OpenTraceRoute/pkg/board"
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/kicad/kicadsexp"
)

// uuidVersion is the first file version writing (uuid ...) and
// (locked yes) on tracks instead of (tstamp ...) and a bare locked flag.
const uuidVersion = 20240108

// Document returns the source document with its segments, arcs and vias
// replaced by the traces and vias now on the board.
func (d *Design) Document() *kicadsexp.List {
	out := &kicadsexp.List{}
	for _, n := range d.Doc.Items {
		if l, ok := n.(*kicadsexp.List); ok {
			switch l.Name() {
			case "segment", "arc", "via":
				continue
			}
		}
		out.Items = append(out.Items, n)
	}
	var traces, vias int
	for _, it := range d.Board.Items() {
		switch it.Kind {
		case board.KindTrace:
			out.Items = append(out.Items, d.segmentNode(it))
			traces++
		case board.KindVia:
			out.Items = append(out.Items, d.viaNode(it))
			vias++
		}
	}
	d.logf("[KICAD] exported %d segments and %d vias", traces, vias)
	return out
}

// Export writes the routed document to w.
func (d *Design) Export(w io.Writer) error {
	return kicadsexp.Write(w, d.Document())
}

// Save writes the routed document to filename.
func (d *Design) Save(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := d.Export(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func xy(name string, x, y int64) *kicadsexp.List {
	return kicadsexp.NewList(name, fromNM(x), fromNM(y))
}

func (d *Design) segmentNode(it *board.Item) *kicadsexp.List {
	l := kicadsexp.NewList("segment")
	d.appendLocked(l, it)
	l.Items = append(l.Items,
		xy("start", it.Start.X, it.Start.Y),
		xy("end", it.End.X, it.End.Y),
		kicadsexp.NewList("width", fromNM(2*it.HalfWidth)),
		kicadsexp.NewList("layer", kicadsexp.String(d.LayerName(it.FirstLayer))),
		kicadsexp.NewList("net", kicadsexp.Symbol(fmt.Sprint(firstNet(it)))),
	)
	return d.appendID(l, it)
}

func (d *Design) viaNode(it *board.Item) *kicadsexp.List {
	l := kicadsexp.NewList("via")
	if it.FirstLayer != 0 || it.LastLayer != d.Board.LayerCount()-1 {
		l.Items = append(l.Items, kicadsexp.Symbol("blind"))
	}
	d.appendLocked(l, it)
	drill, ok := d.drills[it.ID]
	if !ok {
		drill = mm(d.opts.ViaDrill)
	}
	l.Items = append(l.Items,
		xy("at", it.Center.X, it.Center.Y),
		kicadsexp.NewList("size", fromNM(2*it.Radius)),
		kicadsexp.NewList("drill", fromNM(drill)),
		kicadsexp.NewList("layers",
			kicadsexp.String(d.LayerName(it.FirstLayer)),
			kicadsexp.String(d.LayerName(it.LastLayer))),
		kicadsexp.NewList("net", kicadsexp.Symbol(fmt.Sprint(firstNet(it)))),
	)
	return d.appendID(l, it)
}

func (d *Design) appendLocked(l *kicadsexp.List, it *board.Item) {
	if it.Fixed != board.UserFixed {
		return
	}
	if d.Version >= uuidVersion {
		l.Items = append(l.Items, kicadsexp.NewList("locked", kicadsexp.Symbol("yes")))
		return
	}
	l.Items = append(l.Items, kicadsexp.Symbol("locked"))
}

// appendID keeps the identifier an item was loaded with and gives new
// items a fresh one.
func (d *Design) appendID(l *kicadsexp.List, it *board.Item) *kicadsexp.List {
	id, ok := d.uuids[it.ID]
	if !ok {
		id = uuid.NewString()
		d.uuids[it.ID] = id
	}
	if d.Version >= uuidVersion {
		l.Items = append(l.Items, kicadsexp.NewList("uuid", kicadsexp.String(id)))
	} else {
		l.Items = append(l.Items, kicadsexp.NewList("tstamp", kicadsexp.Symbol(id)))
	}
	return l
}

func firstNet(it *board.Item) int {
	if len(it.Nets) == 0 {
		return 0
	}
	return it.Nets[0]
}
