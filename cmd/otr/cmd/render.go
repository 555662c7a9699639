package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceRoute/pkg/render"
)

var (
	renderOutput string
	renderLayer  int
	renderWidth  int
)

var renderCmd = &cobra.Command{
	Use:   "render <board_file>",
	Short: "Draw a board into a PNG image",
	Args:  cobra.ExactArgs(1),
	RunE:  runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "board.png", "output PNG file")
	renderCmd.Flags().IntVarP(&renderLayer, "layer", "l", -1, "copper layer to draw (-1 = all)")
	renderCmd.Flags().IntVarP(&renderWidth, "width", "w", 1600, "image width in pixels")
}

func runRender(cmd *cobra.Command, args []string) error {
	d, err := loadDesign(args[0])
	if err != nil {
		return err
	}
	if renderLayer >= d.Board.LayerCount() {
		return fmt.Errorf("layer %d out of range, board has %d copper layers", renderLayer, d.Board.LayerCount())
	}
	c := render.NewCanvas(d.Board.Outline, renderWidth)
	opts := render.DefaultOptions()
	opts.Layer = renderLayer
	render.DrawBoard(c, d.Board, opts)

	f, err := os.Create(renderOutput)
	if err != nil {
		return fmt.Errorf("failed to create image: %w", err)
	}
	if err := c.WritePNG(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("✓ Image saved to: %s\n", renderOutput)
	return nil
}
