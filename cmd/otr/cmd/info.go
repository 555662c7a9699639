package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceRoute/pkg/board"
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/kicad"
)

var infoCmd = &cobra.Command{
	Use:   "info <board_file>",
	Short: "Show board layers, nets and open connections",
	Long: `Display the copper stack and the nets of a board. For every net the
number of pins, traces and vias is listed together with the number of
connections still missing.`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	d, err := loadDesign(args[0])
	if err != nil {
		return err
	}
	printBoardInfo(args[0], d)
	return nil
}

func printBoardInfo(filename string, d *kicad.Design) {
	b := d.Board
	fmt.Printf("Board: %s\n", filename)
	fmt.Printf("  Version: %d\n", d.Version)
	fmt.Printf("  Size: %.2f x %.2f mm\n", float64(b.Outline.Width())/1e6, float64(b.Outline.Height())/1e6)
	fmt.Printf("  Layers: %d\n", b.LayerCount())
	for i, l := range b.Layers {
		kind := "signal"
		if l.Plane {
			kind = "plane"
		}
		fmt.Printf("    [%d] %-8s %s\n", i, l.Name, kind)
	}

	fmt.Printf("\n%-24s %6s %6s %6s %6s\n", "Net Name", "Pins", "Tracks", "Vias", "Open")
	fmt.Println("──────────────────────────────────────────────────────")
	for _, net := range b.NetNumbers() {
		var pins, traces, vias int
		for _, it := range b.NetItems(net) {
			switch it.Kind {
			case board.KindPin:
				pins++
			case board.KindTrace:
				traces++
			case board.KindVia:
				vias++
			}
		}
		open := max(len(b.Components(net))-1, 0)
		fmt.Printf("%-24s %6d %6d %6d %6d\n", b.NetName(net), pins, traces, vias, open)
	}
	fmt.Printf("\nUnrouted connections: %d\n", b.UnroutedCount())
}
