package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"topolab/internal/fault"
	"topolab/internal/simulation"
)

var (
	simTopology      string
	simDuration      time.Duration
	simProblems      []string
	simRespectFaults bool
	simSeed          string

	simulateCmd = &cobra.Command{
		Use:   "simulate",
		Short: "Run the packet simulation headless over virtual time",
		Long: `Generate and animate packets between the two clients for a fixed span of
virtual time, then print the counters. Without --topology the sample
topology is used. Problems are given as component=kind, e.g.
--problem router-1=power_off.`,
		Args: cobra.NoArgs,
		RunE: runSimulate,
	}
)

func init() {
	simulateCmd.Flags().StringVarP(&simTopology, "topology", "t", "", "topology file (default: sample topology)")
	simulateCmd.Flags().DurationVarP(&simDuration, "duration", "d", 10*time.Second, "virtual time to simulate")
	simulateCmd.Flags().StringArrayVarP(&simProblems, "problem", "p", nil, "problem to apply before starting, as component=kind")
	simulateCmd.Flags().BoolVar(&simRespectFaults, "respect-faults", false, "route around failed components (overrides simulation.respect_faults)")
	simulateCmd.Flags().StringVar(&simSeed, "seed", "", "random stream name (overrides simulation.seed)")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	engine, err := cfg.RuleEngine()
	if err != nil {
		return fmt.Errorf("failed to load rules: %w", err)
	}

	g, report, err := buildGraph(simTopology, simTopology == "", engine)
	if err != nil {
		return err
	}
	logSkipped(simTopology, report)

	faults := fault.NewModel(g)
	for _, arg := range simProblems {
		id, kind, err := parseProblem(arg)
		if err != nil {
			return err
		}
		if err := faults.Apply(kind, id); err != nil {
			return fmt.Errorf("failed to apply %s: %w", arg, err)
		}
	}

	simCfg := cfg.SimulationSettings()
	if cmd.Flags().Changed("respect-faults") {
		simCfg.RespectFaults = simRespectFaults
	}
	if simSeed != "" {
		simCfg.StreamName = simSeed
	}

	sched := simulation.New(g, simCfg,
		simulation.WithFaults(faults),
		simulation.WithLogger(logger),
	)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start simulation: %w", err)
	}
	defer sched.Stop()

	delivered := sched.Advance(simDuration)

	stats := sched.Stats()
	out := cmd.OutOrStdout()
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Elapsed\t%s\n", sched.Elapsed())
	fmt.Fprintf(tw, "Generated\t%d\n", stats.PacketCount)
	fmt.Fprintf(tw, "Bytes\t%d\n", stats.ByteCount)
	fmt.Fprintf(tw, "Delivered\t%d\n", stats.Delivered)
	fmt.Fprintf(tw, "Skipped\t%d\n", stats.Skipped)
	fmt.Fprintf(tw, "In flight\t%d\n", len(sched.InFlight()))
	fmt.Fprintf(tw, "Faults\t%d\n", faults.ActiveCount())
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(delivered) > 0 {
		fmt.Fprintln(out, "\nRoutes:")
		for _, line := range routeSummary(delivered) {
			fmt.Fprintln(out, "  "+line)
		}
	}
	return nil
}

// parseProblem splits component=kind
func parseProblem(arg string) (string, fault.ProblemKind, error) {
	id, tag, ok := strings.Cut(arg, "=")
	if !ok || id == "" || tag == "" {
		return "", "", fmt.Errorf("invalid problem %q: want component=kind", arg)
	}
	kind, err := fault.ParseKind(tag)
	if err != nil {
		return "", "", err
	}
	return id, kind, nil
}

// routeSummary counts delivered packets per path, most used first
func routeSummary(delivered []simulation.Packet) []string {
	counts := make(map[string]int)
	for _, p := range delivered {
		counts[strings.Join(p.Path, " -> ")]++
	}

	routes := make([]string, 0, len(counts))
	for route := range counts {
		routes = append(routes, route)
	}
	sort.Slice(routes, func(i, j int) bool {
		if counts[routes[i]] != counts[routes[j]] {
			return counts[routes[i]] > counts[routes[j]]
		}
		return routes[i] < routes[j]
	})

	lines := make([]string, len(routes))
	for i, route := range routes {
		lines[i] = fmt.Sprintf("%4d  %s", counts[route], route)
	}
	return lines
}
