package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceRoute/pkg/batch"
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/kicad"
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/render"
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/rules"
)

var (
	// Flags shared by the routing commands
	routeOutput   string
	routeRules    string
	routeTimeout  int // timeout in seconds
	routePasses   int
	routeFanout   bool
	routeOptimize bool
	routeSnapshot string
	routeQuiet    bool
)

var routeCmd = &cobra.Command{
	Use:   "route <board_file>",
	Short: "Route the open connections of a board",
	Long: `Route every open connection of a board and write the result.

The route command runs up to three stages:
  1. Fanout: connect SMD pins to a via next to the pad (--fanout)
  2. Autoroute: route open connections in passes with growing ripup costs
  3. Optimize: reroute traces and vias one by one, keeping improvements

Interrupt with Ctrl-C to stop after the current connection; the board
routed so far is still written.

Examples:
  otr route board.kicad_pcb -o routed.kicad_pcb
  otr route board.kicad_pcb --fanout --rules board.rules
  otr route board.kicad_pcb --optimize=false --passes 20 --timeout 60`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStages(args[0], stages{fanout: routeFanout, autoroute: true, optimize: routeOptimize})
	},
}

var fanoutCmd = &cobra.Command{
	Use:   "fanout <board_file>",
	Short: "Fan out SMD pins to vias",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStages(args[0], stages{fanout: true})
	},
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize <board_file>",
	Short: "Shorten the existing routing of a board",
	Long: `Rip up and reroute every unfixed trace and via of a board, keeping a
change only when it reduces the open connections, the via count or the
weighted trace length.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStages(args[0], stages{optimize: true})
	},
}

func init() {
	rootCmd.AddCommand(routeCmd)
	rootCmd.AddCommand(fanoutCmd)
	rootCmd.AddCommand(optimizeCmd)

	for _, c := range []*cobra.Command{routeCmd, fanoutCmd, optimizeCmd} {
		c.Flags().StringVarP(&routeOutput, "output", "o", "",
			"output board file (default: <board>.routed.kicad_pcb)")
		c.Flags().StringVarP(&routeRules, "rules", "r", "",
			"rules file with layer costs and stage options")
		c.Flags().IntVar(&routeTimeout, "timeout", 0,
			"timeout in seconds (0 = no timeout)")
		c.Flags().StringVar(&routeSnapshot, "snapshot", "",
			"write a PNG of the board and the search rooms of the top layer")
		c.Flags().BoolVarP(&routeQuiet, "quiet", "q", false,
			"do not print progress")
	}
	routeCmd.Flags().IntVar(&routePasses, "passes", 0,
		"maximum autoroute passes (0 = from rules or default)")
	routeCmd.Flags().BoolVar(&routeFanout, "fanout", false,
		"fan out SMD pins before routing")
	routeCmd.Flags().BoolVar(&routeOptimize, "optimize", true,
		"optimize the routing after the autoroute stage")
}

type stages struct {
	fanout, autoroute, optimize bool
}

func outputName(input string) string {
	if routeOutput != "" {
		return routeOutput
	}
	return strings.TrimSuffix(input, ".kicad_pcb") + ".routed.kicad_pcb"
}

func runStages(filename string, st stages) error {
	d, err := loadDesign(filename)
	if err != nil {
		return err
	}
	settings := batch.DefaultSettings()
	if routeRules != "" {
		if err := rules.Load(routeRules, settings, layerNames(d)); err != nil {
			return fmt.Errorf("failed to load rules: %w", err)
		}
	}
	settings.WithFanout = st.fanout || (settings.WithFanout && st.autoroute)
	settings.WithAutoroute = st.autoroute
	settings.WithPostroute = st.optimize
	if routePasses > 0 {
		settings.MaxPasses = routePasses
	}
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	fmt.Printf("Loaded %s: %d layers, %d nets, %d unrouted connections\n",
		filename, d.Board.LayerCount(), len(d.Board.Nets), d.Board.UnroutedCount())

	// Set up context with optional timeout
	ctx := context.Background()
	if routeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(routeTimeout)*time.Second)
		defer cancel()
	}

	job := batch.NewJob(ctx, d.Board, settings, logger())
	progressCh := make(chan batch.Progress, 10)
	job.Progress = progressCh
	shown := make(chan struct{})
	go func() {
		displayProgress(progressCh)
		close(shown)
	}()

	p := batch.NewPipeline(job)
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)

	done := p.Start()
	var sum batch.Summary
wait:
	for {
		select {
		case sum = <-done:
			break wait
		case <-interrupts:
			fmt.Println("\nStopping after the current connection...")
			p.RequestStop()
		}
	}
	close(progressCh)
	<-shown

	fmt.Printf("\r%-80s\r", "")
	printSummary(sum)

	if routeSnapshot != "" {
		if err := writeSnapshot(d, job, routeSnapshot); err != nil {
			return err
		}
		fmt.Printf("✓ Snapshot saved to: %s\n", routeSnapshot)
	}
	out := outputName(filename)
	if err := d.Save(out); err != nil {
		return fmt.Errorf("failed to write board: %w", err)
	}
	fmt.Printf("✓ Board saved to: %s\n", out)
	return nil
}

func layerNames(d *kicad.Design) []string {
	names := make([]string, d.Board.LayerCount())
	for i := range names {
		names[i] = d.LayerName(i)
	}
	return names
}

func displayProgress(progressCh <-chan batch.Progress) {
	for p := range progressCh {
		if routeQuiet || p.Phase == batch.PhaseDone {
			continue
		}
		fmt.Printf("\r%-80s\r", "")
		fmt.Printf("[%s] pass %d: %d to go, %d routed, %d ripped, %d failed",
			p.Phase, p.Pass, p.ToGo, p.Routed, p.Ripped, p.Failed)
	}
}

func printSummary(sum batch.Summary) {
	fmt.Println("╔════════════════════════════════════════════════════════════════╗")
	if sum.Interrupted {
		fmt.Println("║ Routing Interrupted                                            ║")
	} else {
		fmt.Println("║ Routing Complete                                               ║")
	}
	fmt.Println("╚════════════════════════════════════════════════════════════════╝")
	if sum.FannedOut > 0 {
		fmt.Printf("  Fanout vias:     %d\n", sum.FannedOut)
	}
	if sum.Passes > 0 {
		fmt.Printf("  Autoroute:       %s after %d passes, %d failed\n", sum.Outcome, sum.Passes, sum.Failed)
	}
	if sum.Sweeps > 0 {
		fmt.Printf("  Optimization:    %d accepted in %d sweeps\n", sum.Accepted, sum.Sweeps)
	}
	fmt.Printf("  Unrouted:        %d\n", sum.Unrouted)
	fmt.Printf("  Vias:            %d\n", sum.Vias)
	fmt.Printf("  Elapsed:         %v\n", sum.Elapsed.Round(time.Millisecond))
}

func writeSnapshot(d *kicad.Design, job *batch.Job, filename string) error {
	c := render.NewCanvas(d.Board.Outline, 1600)
	opts := render.DefaultOptions()
	opts.Layer = 0
	render.DrawBoard(c, d.Board, opts)
	job.Draw(c, 0)
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	if err := c.WritePNG(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
