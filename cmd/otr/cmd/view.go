package cmd

import (
	"fmt"
	"image"
	"log"
	"os"

	"gioui.org/app"
	"gioui.org/io/key"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceRoute/pkg/kicad"
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/render"
)

var viewCmd = &cobra.Command{
	Use:   "view <board_file>",
	Short: "Show a board in a window",
	Long: `Opens a board in a window drawn with the same renderer as the render
command.

Controls:
  L          - Cycle through copper layers (all, 0, 1, ...)
  Q / Escape - Quit`,
	Args: cobra.ExactArgs(1),
	RunE: runView,
}

func init() {
	rootCmd.AddCommand(viewCmd)
}

func runView(cmd *cobra.Command, args []string) error {
	d, err := loadDesign(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("✓ Loaded board: %d layers, %d nets, %d unrouted connections\n",
		d.Board.LayerCount(), len(d.Board.Nets), d.Board.UnroutedCount())

	// Run the Gio application
	go func() {
		w := new(app.Window)
		w.Option(app.Title("OpenTraceRoute - " + args[0]))
		w.Option(app.Size(unit.Dp(1000), unit.Dp(800)))
		if err := runViewerWindow(w, d); err != nil {
			log.Fatal(err)
		}
		os.Exit(0)
	}()
	app.Main()
	return nil
}

// boardView caches the rendered image until the window size or the
// selected layer changes.
type boardView struct {
	design *kicad.Design
	layer  int
	width  int
	img    *image.RGBA
}

func (v *boardView) image(width int) *image.RGBA {
	if v.img == nil || width != v.width {
		v.width = width
		c := render.NewCanvas(v.design.Board.Outline, width)
		opts := render.DefaultOptions()
		opts.Layer = v.layer
		render.DrawBoard(c, v.design.Board, opts)
		v.img = c.Image()
	}
	return v.img
}

func (v *boardView) nextLayer() {
	v.layer++
	if v.layer >= v.design.Board.LayerCount() {
		v.layer = -1
	}
	v.img = nil
}

func runViewerWindow(w *app.Window, d *kicad.Design) error {
	view := &boardView{design: d, layer: -1}
	var ops op.Ops
	for {
		switch e := w.Event().(type) {
		case app.DestroyEvent:
			return e.Err

		case app.FrameEvent:
			ops.Reset()
			gtx := app.NewContext(&ops, e)

			if handleViewKeys(gtx, view) {
				return nil
			}

			paint.Fill(&ops, render.Classic.Background)
			width := min(e.Size.X, e.Size.Y*int(max(d.Board.Outline.Width(), 1))/int(max(d.Board.Outline.Height(), 1)))
			paint.NewImageOp(view.image(max(width, 1))).Add(&ops)
			paint.PaintOp{}.Add(&ops)
			e.Frame(&ops)
		}
	}
}

// handleViewKeys processes key presses and reports whether to quit.
func handleViewKeys(gtx layout.Context, view *boardView) bool {
	for _, name := range []key.Name{"Q", key.NameEscape, "L"} {
		for {
			ev, ok := gtx.Event(key.Filter{Name: name})
			if !ok {
				break
			}
			ke, ok := ev.(key.Event)
			if !ok || ke.State != key.Press {
				continue
			}
			if name == "L" {
				view.nextLayer()
				gtx.Execute(op.InvalidateCmd{})
				continue
			}
			return true
		}
	}
	return false
}
