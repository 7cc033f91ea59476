package main

import (
	"fmt"
	"io"
	"os"
	"time"

	nmap "github.com/Ullaakut/nmap/v3"
	"github.com/spf13/cobra"

	"topolab/internal/adapter"
	"topolab/internal/codec"
	"topolab/internal/repository/sqlite"
	"topolab/internal/topology"
)

var (
	scanTargets  []string
	scanPorts    string
	scanOS       bool
	scanFast     bool
	scanTimeout  time.Duration
	scanFormat   string
	scanOutput   string
	scanSaveName string

	importScanCmd = &cobra.Command{
		Use:   "import-scan [report.xml]",
		Short: "Convert an nmap scan into a topology document",
		Long: `Read an nmap XML report (nmap -oX) or run a live scan with --target, turn
live hosts into components and traceroute hops into wired links, and write
the result as a topology document. Links the rule table refuses are
dropped and reported. With --save the document is also stored in the
database under the given name.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runImportScan,
	}
)

func init() {
	importScanCmd.Flags().StringSliceVar(&scanTargets, "target", nil, "scan these hosts or CIDRs instead of reading a report")
	importScanCmd.Flags().StringVar(&scanPorts, "ports", "", "port list for live scans")
	importScanCmd.Flags().BoolVar(&scanOS, "os", false, "enable OS detection for live scans (needs root)")
	importScanCmd.Flags().BoolVar(&scanFast, "fast", false, "scan a few common ports without service detection")
	importScanCmd.Flags().DurationVar(&scanTimeout, "timeout", 10*time.Minute, "live scan timeout")
	importScanCmd.Flags().StringVarP(&scanFormat, "format", "f", "yaml", "output format (json, yaml, ansible-inventory)")
	importScanCmd.Flags().StringVarP(&scanOutput, "output", "o", "", "output file (default: stdout)")
	importScanCmd.Flags().StringVar(&scanSaveName, "save", "", "also save the topology in the database under this name")
	rootCmd.AddCommand(importScanCmd)
}

func runImportScan(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && len(scanTargets) == 0 {
		return fmt.Errorf("either a report file or --target is required")
	}
	if len(args) > 0 && len(scanTargets) > 0 {
		return fmt.Errorf("a report file and --target cannot be combined")
	}

	exporter, err := codec.Lookup(scanFormat)
	if err != nil {
		return err
	}
	engine, err := cfg.RuleEngine()
	if err != nil {
		return fmt.Errorf("failed to load rules: %w", err)
	}

	var run *nmap.Run
	if len(args) > 0 {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open report: %w", err)
		}
		run, err = adapter.ParseXML(f)
		f.Close()
		if err != nil {
			return err
		}
	} else {
		opts := []adapter.ScanOption{
			adapter.WithTimeout(scanTimeout),
			adapter.WithOSDetection(scanOS),
			adapter.WithScanLogger(logger),
		}
		if scanFast {
			opts = append(opts, adapter.WithFastScan())
		}
		if scanPorts != "" {
			opts = append(opts, adapter.WithPortRange(scanPorts))
		}
		run, err = adapter.NewScanner(scanTargets, opts...).Scan(cmd.Context())
		if err != nil {
			return err
		}
	}

	result := adapter.NewScanImporter(logger).Import(run)
	g, report, err := topology.FromDocument(result.Document, engine, cfg.Zones(),
		topology.WithGridSpacing(cfg.Canvas.GridSpacing))
	if err != nil {
		return fmt.Errorf("failed to build topology: %w", err)
	}
	all := topology.LoadReport{Skipped: result.Skipped}
	all.Merge(report.Skipped)
	logSkipped("scan", all)

	doc := g.Document()

	var out io.Writer = cmd.OutOrStdout()
	if scanOutput != "" {
		f, err := os.Create(scanOutput)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}
	if err := exporter.Export(doc, out); err != nil {
		return fmt.Errorf("failed to write %s: %w", exporter.Format(), err)
	}

	if scanSaveName != "" {
		repo, err := sqlite.New(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer repo.Close()
		if _, err := repo.Save(cmd.Context(), scanSaveName, doc); err != nil {
			return fmt.Errorf("failed to save topology: %w", err)
		}
		logger.Info("Topology saved", "name", scanSaveName, "path", cfg.Database.Path)
	}

	logger.Info("Scan imported",
		"components", g.Len(),
		"connections", g.ConnectionCount(),
		"skipped", len(all.Skipped))
	return nil
}
