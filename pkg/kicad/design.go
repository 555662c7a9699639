// Package kicad loads KiCad board files (version 6 and later) into a
// routing board and writes routed boards back.
package kicad

import (
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strconv"

	"github.com/OpenTraceLab/OpenTraceRoute/pkg/board"
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/kicad/kicadsexp"
)

// MinSupportedVersion is the file version written by KiCad 6.0.
const MinSupportedVersion = 20211014

// nmPerMM converts file millimetres to board units.
const nmPerMM = 1e6

// Options holds the design rules applied to the loaded board, in mm.
// KiCad keeps net classes in the project file, so the board file alone
// does not carry them.
type Options struct {
	TraceWidth  float64
	Clearance   float64
	ViaDiameter float64
	ViaDrill    float64
	Logger      *log.Logger
}

// DefaultOptions returns the rules of a fresh KiCad project.
func DefaultOptions() Options {
	return Options{
		TraceWidth:  0.25,
		Clearance:   0.2,
		ViaDiameter: 0.8,
		ViaDrill:    0.4,
	}
}

// Validate checks the rule values.
func (o Options) Validate() error {
	if o.TraceWidth <= 0 {
		return fmt.Errorf("trace width must be positive, got %g", o.TraceWidth)
	}
	if o.Clearance < 0 {
		return fmt.Errorf("clearance must not be negative, got %g", o.Clearance)
	}
	if o.ViaDrill <= 0 || o.ViaDiameter <= o.ViaDrill {
		return fmt.Errorf("via diameter %g must exceed drill %g", o.ViaDiameter, o.ViaDrill)
	}
	return nil
}

// Design is a loaded board file: the routing board and the document it
// came from.
type Design struct {
	Board   *board.Board
	Doc     *kicadsexp.List
	Version int

	opts       Options
	layerNames []string
	layerIndex map[string]int
	uuids      map[board.ItemID]string
	drills     map[board.ItemID]int64
}

// LayerName returns the KiCad name of copper layer i.
func (d *Design) LayerName(i int) string {
	if i < 0 || i >= len(d.layerNames) {
		return ""
	}
	return d.layerNames[i]
}

// LoadFile reads and converts a KiCad board file.
func LoadFile(filename string, opts Options) (*Design, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()
	return Load(file, opts)
}

// Load reads and converts a KiCad board from r.
func Load(r io.Reader, opts Options) (*Design, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	root, err := kicadsexp.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse s-expression: %w", err)
	}
	if root.Name() != "kicad_pcb" {
		return nil, fmt.Errorf("not a KiCad PCB file: expected 'kicad_pcb', got '%s'", root.Name())
	}
	version, err := parseVersion(root)
	if err != nil {
		return nil, err
	}
	d := &Design{
		Doc:        root,
		Version:    version,
		opts:       opts,
		layerIndex: make(map[string]int),
		uuids:      make(map[board.ItemID]string),
		drills:     make(map[board.ItemID]int64),
	}
	layers, err := d.parseLayers(root)
	if err != nil {
		return nil, fmt.Errorf("failed to parse layers section: %w", err)
	}

	rules := board.DefaultRules(mm(opts.TraceWidth/2), mm(opts.Clearance), mm(opts.ViaDiameter/2))
	d.Board = board.New(layers, geom.Box{}, rules)
	if err := d.parseNets(root); err != nil {
		return nil, fmt.Errorf("failed to parse nets: %w", err)
	}
	if err := d.parseFootprints(root); err != nil {
		return nil, fmt.Errorf("failed to parse footprints: %w", err)
	}
	if err := d.parseTracks(root); err != nil {
		return nil, fmt.Errorf("failed to parse tracks: %w", err)
	}
	if err := d.parseZones(root); err != nil {
		return nil, fmt.Errorf("failed to parse zones: %w", err)
	}
	outline, err := d.parseOutline(root)
	if err != nil {
		return nil, err
	}
	d.Board.Outline = outline

	d.logf("[KICAD] loaded version %d: %d layers, %d nets, %d pins, %d traces, %d vias, %d keepouts",
		version, d.Board.LayerCount(), len(d.Board.Nets),
		len(d.Board.ItemsOfKind(board.KindPin)), d.Board.TraceCount(), d.Board.ViaCount(),
		len(d.Board.ItemsOfKind(board.KindKeepout)))
	return d, nil
}

func (d *Design) logf(format string, args ...any) {
	if d.opts.Logger != nil {
		d.opts.Logger.Printf(format, args...)
	}
}

// parseVersion reads (version n) and rejects files older than KiCad 6.
func parseVersion(root *kicadsexp.List) (int, error) {
	node, ok := root.Find("version")
	if !ok {
		return 0, fmt.Errorf("missing required 'version' field")
	}
	v, err := node.Int(1)
	if err != nil {
		return 0, fmt.Errorf("failed to parse version: %w", err)
	}
	if v < MinSupportedVersion {
		return 0, fmt.Errorf("unsupported KiCad version: %d (minimum required: %d / KiCad 6.0)", v, MinSupportedVersion)
	}
	return v, nil
}

// parseNets registers every (net n "name") of the root.
func (d *Design) parseNets(root *kicadsexp.List) error {
	for _, n := range root.FindAll("net") {
		num, err := n.Int(1)
		if err != nil {
			return err
		}
		if num == 0 {
			continue
		}
		name, _ := n.Atom(2)
		d.Board.AddNet(board.Net{Number: num, Name: name})
	}
	return nil
}

// mm converts millimetres to board units.
func mm(v float64) int64 {
	return int64(math.Round(v * nmPerMM))
}

// fromNM formats board units as a millimetre symbol.
func fromNM(v int64) kicadsexp.Symbol {
	return kicadsexp.Symbol(strconv.FormatFloat(float64(v)/nmPerMM, 'f', -1, 64))
}

// point reads (name x y) into board units.
func point(l *kicadsexp.List) (geom.Point, error) {
	x, err := l.Float(1)
	if err != nil {
		return geom.Point{}, err
	}
	y, err := l.Float(2)
	if err != nil {
		return geom.Point{}, err
	}
	return geom.Pt(mm(x), mm(y)), nil
}

// childPoint reads the point of the named child list.
func childPoint(l *kicadsexp.List, name string) (geom.Point, error) {
	c, ok := l.Find(name)
	if !ok {
		return geom.Point{}, fmt.Errorf("(%s): missing (%s)", l.Name(), name)
	}
	return point(c)
}

// childFloat reads the first value of the named child list.
func childFloat(l *kicadsexp.List, name string) (float64, error) {
	c, ok := l.Find(name)
	if !ok {
		return 0, fmt.Errorf("(%s): missing (%s)", l.Name(), name)
	}
	return c.Float(1)
}

// netOf reads the net number of (net n ...), 0 when absent.
func netOf(l *kicadsexp.List) int {
	c, ok := l.Find("net")
	if !ok {
		return 0
	}
	n, err := c.Int(1)
	if err != nil {
		return 0
	}
	return n
}

// locked reports the KiCad 6 "locked" flag as well as the (locked yes)
// form of later versions.
func locked(l *kicadsexp.List) bool {
	if l.HasSymbol("locked") {
		return true
	}
	c, ok := l.Find("locked")
	if !ok {
		return false
	}
	v, _ := c.Atom(1)
	return v == "" || v == "yes"
}

func uuidOf(l *kicadsexp.List) string {
	for _, key := range []string{"uuid", "tstamp"} {
		if c, ok := l.Find(key); ok {
			if s, ok := c.Atom(1); ok {
				return s
			}
		}
	}
	return ""
}
