package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"topolab/internal/codec"
	"topolab/internal/loader"
	"topolab/internal/rules"
	"topolab/internal/topology"
)

var (
	validateStrict bool

	validateCmd = &cobra.Command{
		Use:   "validate <file|dir>...",
		Short: "Check topology documents against the rule table",
		Long: `Load each topology document (or every .json/.yaml/.yml file in a
directory) the way the server would and report the records it skips.
With --strict any skipped record fails the command.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runValidate,
	}
)

// errInvalid is returned when validation finds problems
var errInvalid = errors.New("validation failed")

func init() {
	validateCmd.Flags().BoolVar(&validateStrict, "strict", false, "fail when any record is skipped")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	engine, err := cfg.RuleEngine()
	if err != nil {
		return fmt.Errorf("failed to load rules: %w", err)
	}

	out := cmd.OutOrStdout()
	var failed, skipped int
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", arg, err)
			failed++
			continue
		}

		if !info.IsDir() {
			result, err := loader.LoadFile(arg)
			if err != nil {
				fmt.Fprintf(out, "%s: %v\n", arg, err)
				failed++
				continue
			}
			skipped += validateDocument(out, arg, result, engine)
			continue
		}

		files, fileErrs, err := loader.LoadDir(arg, logger)
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", arg, err)
			failed++
			continue
		}
		for _, fe := range fileErrs {
			fmt.Fprintf(out, "%s: %v\n", fe.Path, fe.Err)
			failed++
		}
		for _, f := range files {
			skipped += validateDocument(out, f.Path, f.Result, engine)
		}
	}

	if failed > 0 || (validateStrict && skipped > 0) {
		return fmt.Errorf("%w: %d unreadable, %d skipped records", errInvalid, failed, skipped)
	}
	return nil
}

// validateDocument builds a graph from one parsed document, prints a summary
// line and every skipped record, and returns how many records were skipped
func validateDocument(out io.Writer, path string, result *codec.Result, engine *rules.Engine) int {
	g, report, err := topology.FromDocument(result.Document, engine, cfg.Zones(),
		topology.WithGridSpacing(cfg.Canvas.GridSpacing))
	if err != nil {
		fmt.Fprintf(out, "%s: %v\n", path, err)
		return 1
	}

	all := topology.LoadReport{Skipped: result.Skipped}
	all.Merge(report.Skipped)

	status := "ok"
	if !all.Clean() {
		status = fmt.Sprintf("%d skipped", len(all.Skipped))
	}
	fmt.Fprintf(out, "%s: %d components, %d connections, %s\n", path, g.Len(), g.ConnectionCount(), status)
	for _, s := range all.Skipped {
		id := s.ID
		if id == "" {
			id = "-"
		}
		fmt.Fprintf(out, "  %s #%d (%s): %s\n", s.Kind, s.Index, id, s.Reason)
	}
	return len(all.Skipped)
}
