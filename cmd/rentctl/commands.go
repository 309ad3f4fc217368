package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/warp/rent-engine/ingest"
	"github.com/warp/rent-engine/rent"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "rentctl",
		Short:         "Rent cycle reconciliation tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(reconcileCmd(), cyclesCmd(), transferCmd())
	return root
}

func reconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Reconcile a tenancy bundle and print the report as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			asOfFlag, _ := cmd.Flags().GetString("as-of")
			summaryOnly, _ := cmd.Flags().GetBool("summary")
			priority, _ := cmd.Flags().GetStringToInt("priority")

			var in io.Reader = cmd.InOrStdin()
			if file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return fmt.Errorf("failed to open bundle: %w", err)
				}
				defer f.Close()
				in = f
			}

			bundle, err := ingest.DecodeBundle(in)
			if err != nil {
				return err
			}

			asOf := bundle.AsOf
			if asOfFlag != "" {
				if asOf, err = ingest.ParseDate(asOfFlag); err != nil {
					return fmt.Errorf("--as-of: %w", err)
				}
			}
			if asOf.IsZero() {
				asOf = rent.Today()
			}

			hints := bundle.PriorityHints
			if len(priority) > 0 {
				hints = make(map[string]int, len(bundle.PriorityHints)+len(priority))
				for id, p := range bundle.PriorityHints {
					hints[id] = p
				}
				for id, p := range priority {
					hints[id] = p
				}
			}

			report, err := rent.ReconcileWithOptions(bundle.Tenancy, bundle.Payments, asOf,
				rent.ReconcileOptions{PriorityHints: hints})
			if err != nil {
				return err
			}
			report.Warnings = append(bundle.Warnings, report.Warnings...)

			if summaryOnly {
				return printSummary(cmd.OutOrStdout(), report)
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().StringP("file", "f", "-", "Bundle JSON file, - for stdin")
	cmd.Flags().String("as-of", "", "Reconcile as of this date (default: bundle as_of, else today)")
	cmd.Flags().Bool("summary", false, "Print gaps and summary as a table")
	cmd.Flags().StringToInt("priority", nil, "Gap priority by cycle id, lower first (e.g. 2024-02-01/2024-02-29=0); overrides bundle priority_hints")

	return cmd
}

func cyclesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cycles",
		Short: "List billing cycles from the join date through --as-of",
		RunE: func(cmd *cobra.Command, args []string) error {
			policyFlag, _ := cmd.Flags().GetString("policy")
			joinFlag, _ := cmd.Flags().GetString("join")
			asOfFlag, _ := cmd.Flags().GetString("as-of")
			anchor, _ := cmd.Flags().GetInt("anchor")
			priceFlag, _ := cmd.Flags().GetString("price")

			policy, err := rent.ParsePolicy(policyFlag)
			if err != nil {
				return err
			}
			join, err := ingest.ParseDate(joinFlag)
			if err != nil {
				return fmt.Errorf("--join: %w", err)
			}
			asOf, err := ingest.ParseDate(asOfFlag)
			if err != nil {
				return fmt.Errorf("--as-of: %w", err)
			}
			price, err := ingest.ParseAmount(priceFlag)
			if err != nil {
				return fmt.Errorf("--price: %w", err)
			}

			tenancy := rent.TenancyContext{ID: "cli", JoinDate: join, Policy: policy, AnchorDay: anchor, BedPrice: price}
			if err := tenancy.Validate(); err != nil {
				return err
			}
			cal, err := rent.NewCalendar(tenancy)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "CYCLE\tDAYS\tEXPECTED DUE")
			for _, cy := range cal.Timeline(join, asOf) {
				due, _ := cal.ExpectedDue(tenancy, cy)
				fmt.Fprintf(tw, "%s\t%d\t%s\n", cy.ID(), cy.Days(), due.StringFixed(2))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().String("policy", "CALENDAR", "Cycle policy: CALENDAR or MIDMONTH")
	cmd.Flags().String("join", "", "Join date (YYYY-MM-DD)")
	cmd.Flags().Int("anchor", 0, "MIDMONTH anchor day (default: join day)")
	cmd.Flags().String("as-of", "", "Last date to cover (YYYY-MM-DD)")
	cmd.Flags().String("price", "0", "Monthly bed price")
	_ = cmd.MarkFlagRequired("join")
	_ = cmd.MarkFlagRequired("as-of")

	return cmd
}

func transferCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Compute the amount owed for a mid-cycle bed transfer",
		RunE: func(cmd *cobra.Command, args []string) error {
			dates := map[string]rent.Date{}
			for _, name := range []string{"start", "end", "on"} {
				raw, _ := cmd.Flags().GetString(name)
				d, err := ingest.ParseDate(raw)
				if err != nil {
					return fmt.Errorf("--%s: %w", name, err)
				}
				dates[name] = d
			}
			oldFlag, _ := cmd.Flags().GetString("old")
			newFlag, _ := cmd.Flags().GetString("new")
			oldPrice, err := ingest.ParseAmount(oldFlag)
			if err != nil {
				return fmt.Errorf("--old: %w", err)
			}
			newPrice, err := ingest.ParseAmount(newFlag)
			if err != nil {
				return fmt.Errorf("--new: %w", err)
			}

			cycle := rent.Cycle{Start: dates["start"], End: dates["end"]}
			return printJSON(cmd.OutOrStdout(), rent.TransferDifference(cycle, oldPrice, newPrice, dates["on"]))
		},
	}

	cmd.Flags().String("start", "", "Cycle start (YYYY-MM-DD)")
	cmd.Flags().String("end", "", "Cycle end (YYYY-MM-DD)")
	cmd.Flags().String("on", "", "Transfer date (YYYY-MM-DD)")
	cmd.Flags().String("old", "", "Old bed monthly price")
	cmd.Flags().String("new", "", "New bed monthly price")
	for _, name := range []string{"start", "end", "on", "old", "new"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSummary(w io.Writer, r rent.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CYCLE\tSTATUS\tEXPECTED\tPAID\tREMAINING")
	for _, g := range r.Gaps {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", g.CycleID, g.Status,
			g.ExpectedDue.StringFixed(2), g.TotalPaid.StringFixed(2), g.RemainingDue.StringFixed(2))
	}
	fmt.Fprintf(tw, "\nSTATUS\t%s\n", r.Summary.Label)
	fmt.Fprintf(tw, "TOTAL DUE\t%s\n", r.Summary.TotalDue.StringFixed(2))
	if r.Next != nil {
		fmt.Fprintf(tw, "NEXT\t%s\n", r.Next.CycleIDHint)
	}
	for _, warn := range r.Warnings {
		fmt.Fprintf(tw, "WARNING\t%s\n", warn)
	}
	return tw.Flush()
}
