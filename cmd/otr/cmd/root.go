package cmd

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceRoute/pkg/kicad"
)

var (
	// Global flags
	verbose     bool
	traceWidth  float64
	clearance   float64
	viaDiameter float64
	viaDrill    float64
)

var rootCmd = &cobra.Command{
	Use:   "otr",
	Short: "OpenTraceRoute - batch autorouter for KiCad boards",
	Long: `OpenTraceRoute (otr) routes the open connections of a KiCad board
with a maze search over free space rooms, then shortens the result.

Examples:
  otr info board.kicad_pcb                        # Show nets and open connections
  otr route board.kicad_pcb -o routed.kicad_pcb    # Fanout, route and optimize
  otr route board.kicad_pcb --rules board.rules    # Use a rules file
  otr render routed.kicad_pcb -o board.png         # Draw the board`,
	Version:      "0.1.0",
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	defaults := kicad.DefaultOptions()
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().Float64Var(&traceWidth, "trace-width", defaults.TraceWidth, "trace width in mm")
	rootCmd.PersistentFlags().Float64Var(&clearance, "clearance", defaults.Clearance, "copper clearance in mm")
	rootCmd.PersistentFlags().Float64Var(&viaDiameter, "via-diameter", defaults.ViaDiameter, "via pad diameter in mm")
	rootCmd.PersistentFlags().Float64Var(&viaDrill, "via-drill", defaults.ViaDrill, "via drill in mm")
}

// logger returns the stage logger: stderr when verbose, silent otherwise.
func logger() *log.Logger {
	if verbose {
		return log.New(os.Stderr, "", log.Ltime|log.Lmicroseconds)
	}
	return log.New(io.Discard, "", 0)
}

func loadDesign(filename string) (*kicad.Design, error) {
	opts := kicad.Options{
		TraceWidth:  traceWidth,
		Clearance:   clearance,
		ViaDiameter: viaDiameter,
		ViaDrill:    viaDrill,
		Logger:      logger(),
	}
	d, err := kicad.LoadFile(filename, opts)
	if err != nil {
		return nil, fmt.Errorf("error loading board: %w", err)
	}
	return d, nil
}
