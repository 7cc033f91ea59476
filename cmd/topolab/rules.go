package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"topolab/internal/domain"
	"topolab/internal/rules"
)

var (
	rulesDenied bool

	rulesCmd = &cobra.Command{
		Use:   "rules",
		Short: "Inspect the connection rule table",
	}

	rulesListCmd = &cobra.Command{
		Use:   "list",
		Short: "List every rule",
		Args:  cobra.NoArgs,
		RunE:  runRulesList,
	}

	rulesPartnersCmd = &cobra.Command{
		Use:   "partners <type>",
		Short: "List the types a component type may connect to",
		Args:  cobra.ExactArgs(1),
		RunE:  runRulesPartners,
	}

	rulesCheckCmd = &cobra.Command{
		Use:   "check <type> <type>",
		Short: "Check whether two component types may be connected",
		Args:  cobra.ExactArgs(2),
		RunE:  runRulesCheck,
	}

	rulesExportCmd = &cobra.Command{
		Use:   "export",
		Short: "Write the active rule table as YAML",
		Args:  cobra.NoArgs,
		RunE:  runRulesExport,
	}
)

func init() {
	rulesListCmd.Flags().BoolVar(&rulesDenied, "denied", false, "show only denied pairs")
	rulesCmd.AddCommand(rulesListCmd, rulesPartnersCmd, rulesCheckCmd, rulesExportCmd)
	rootCmd.AddCommand(rulesCmd)
}

func ruleEngine() (*rules.Engine, error) {
	engine, err := cfg.RuleEngine()
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	return engine, nil
}

func parseType(tag string) (domain.ComponentType, error) {
	t, ok := domain.ParseComponentType(tag)
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownComponentType, tag)
	}
	return t, nil
}

func runRulesList(cmd *cobra.Command, args []string) error {
	engine, err := ruleEngine()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "A\tB\tALLOWED\tREASON")
	for _, r := range engine.Rules() {
		if rulesDenied && r.Allowed {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", r.A, r.B, r.Allowed, r.Reason)
	}
	return tw.Flush()
}

func runRulesPartners(cmd *cobra.Command, args []string) error {
	t, err := parseType(args[0])
	if err != nil {
		return err
	}
	engine, err := ruleEngine()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, p := range engine.AllowedPartners(t) {
		fmt.Fprintf(out, "%s\t%s\n", p, p.DisplayName())
	}
	return nil
}

func runRulesCheck(cmd *cobra.Command, args []string) error {
	a, err := parseType(args[0])
	if err != nil {
		return err
	}
	b, err := parseType(args[1])
	if err != nil {
		return err
	}
	engine, err := ruleEngine()
	if err != nil {
		return err
	}

	if err := engine.Check(a, b); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s may connect to %s\n", a.DisplayName(), b.DisplayName())
	return nil
}

func runRulesExport(cmd *cobra.Command, args []string) error {
	engine, err := ruleEngine()
	if err != nil {
		return err
	}
	return engine.WriteYAML(cmd.OutOrStdout())
}
