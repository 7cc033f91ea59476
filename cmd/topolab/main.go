package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"topolab/internal/config"
	"topolab/internal/loader"
	"topolab/internal/rules"
	"topolab/internal/topology"
)

var (
	configPath string

	cfg    *config.Config
	logger *slog.Logger

	rootCmd = &cobra.Command{
		Use:   "topolab",
		Short: "Build, check and simulate network topologies",
		Long: `topolab is a network topology lab: lay out components, connect them
under a rule table, inject faults and watch packets route around them.`,
		SilenceUsage:      true,
		PersistentPreRunE: loadConfig,
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"config file (default: $TOPOLAB_CONFIG, ./topolab.yaml, ~/.config/topolab/config.yaml)")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	var (
		loaded *config.Config
		path   string
		err    error
	)
	if configPath != "" {
		loaded, path, err = config.LoadFromPath(configPath)
	} else {
		loaded, path, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cfg = loaded
	logger = cfg.NewLogger(cmd.ErrOrStderr())
	slog.SetDefault(logger)
	if path != "" {
		logger.Debug("Loaded config", "path", path)
	}
	return nil
}

// buildGraph loads a topology file, or the sample topology, or an empty graph.
// Records skipped by the codec come before those the graph refused.
func buildGraph(path string, sample bool, engine *rules.Engine) (*topology.Graph, topology.LoadReport, error) {
	opts := []topology.Option{topology.WithGridSpacing(cfg.Canvas.GridSpacing)}

	switch {
	case path != "":
		result, err := loader.LoadFile(path)
		if err != nil {
			return nil, topology.LoadReport{}, fmt.Errorf("failed to load %s: %w", path, err)
		}
		g, report, err := topology.FromDocument(result.Document, engine, cfg.Zones(), opts...)
		if err != nil {
			return nil, report, fmt.Errorf("failed to build topology from %s: %w", path, err)
		}
		merged := topology.LoadReport{Skipped: result.Skipped}
		merged.Merge(report.Skipped)
		return g, merged, nil
	case sample:
		g, _, err := topology.Sample(engine, cfg.Zones(), opts...)
		if err != nil {
			return nil, topology.LoadReport{}, fmt.Errorf("failed to build sample topology: %w", err)
		}
		return g, topology.LoadReport{}, nil
	}
	return topology.New(engine, cfg.Zones(), opts...), topology.LoadReport{}, nil
}

func logSkipped(source string, report topology.LoadReport) {
	for _, s := range report.Skipped {
		logger.Warn("Skipped record", "source", source, "kind", s.Kind, "index", s.Index, "id", s.ID, "reason", s.Reason)
	}
}
