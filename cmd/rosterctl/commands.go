package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/warp/roster-engine/cache"
	"github.com/warp/roster-engine/generic"
	"github.com/warp/roster-engine/roster"
	"github.com/warp/roster-engine/scenario"
	"github.com/warp/roster-engine/validator"
)

// =============================================================================
// VALIDATE
// =============================================================================

func validateCmd(e *env) *cobra.Command {
	var (
		user  string
		year  int
		month int
		all   bool
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "List HR rule violations of one user's month",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkMonth(month); err != nil {
				return err
			}
			if err := e.open(); err != nil {
				return err
			}
			defer e.close()

			report, err := e.validator().ValidateAll(cmd.Context(), roster.UserID(user), year, time.Month(month),
				validator.Options{IncludeOutside: all})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if e.asJSON {
				return writeJSON(out, report.All())
			}
			if report.IsConfigurationError() {
				fmt.Fprintln(out, "configuration error: HR rules could not be parsed")
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DATE\tRULE\tSEVERITY\tDESCRIPTION")
			for _, v := range report.All() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", v.Date, v.Rule, v.Severity, v.Description)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "%d violation(s)\n", report.Count())
			return nil
		},
	}

	now := time.Now()
	cmd.Flags().StringVar(&user, "user", "", "User ID")
	cmd.Flags().IntVar(&year, "year", now.Year(), "Year")
	cmd.Flags().IntVar(&month, "month", int(now.Month()), "Month (1-12)")
	cmd.Flags().BoolVar(&all, "all", false, "Include violations outside the month")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

// =============================================================================
// GRID
// =============================================================================

func gridCmd(e *env) *cobra.Command {
	var (
		year  int
		month int
	)

	cmd := &cobra.Command{
		Use:   "grid",
		Short: "Print crew status and HR level per date",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkMonth(month); err != nil {
				return err
			}
			if err := e.open(); err != nil {
				return err
			}
			defer e.close()

			c := cache.New(e.validator(), e.store, cache.Options{Logger: e.log})
			if err := c.PreloadMonth(cmd.Context(), year, time.Month(month), nil); err != nil {
				return err
			}
			entries := c.Month(year, time.Month(month))

			out := cmd.OutOrStdout()
			if e.asJSON {
				return writeJSON(out, entries)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DATE\tCREW\tHR\tNOTES\tDUPLICATE")
			for _, entry := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					entry.Date, entry.Crew, entry.HRLevel, mark(entry.HasNotes), mark(entry.HasDuplicateCriticalCode))
			}
			return tw.Flush()
		},
	}

	now := time.Now()
	cmd.Flags().IntVar(&year, "year", now.Year(), "Year")
	cmd.Flags().IntVar(&month, "month", int(now.Month()), "Month (1-12)")
	return cmd
}

// =============================================================================
// EXPAND
// =============================================================================

func expandCmd(e *env) *cobra.Command {
	var user, from, to string

	cmd := &cobra.Command{
		Use:   "expand",
		Short: "Resolve a user's type-table over a date range",
		RunE: func(cmd *cobra.Command, args []string) error {
			period, err := parsePeriod(from, to)
			if err != nil {
				return err
			}
			if err := e.open(); err != nil {
				return err
			}
			defer e.close()

			codes, err := e.validator().Expand(cmd.Context(), roster.UserID(user), period)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if e.asJSON {
				days := make(map[string]string, len(codes))
				for d, code := range codes {
					days[d.String()] = code
				}
				return writeJSON(out, days)
			}
			for _, d := range period.Days() {
				code := codes[d]
				if code == "" {
					code = "-"
				}
				fmt.Fprintf(out, "%s %s %s\n", d, d.Weekday().String()[:3], code)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "User ID")
	cmd.Flags().StringVar(&from, "from", "", "First date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Last date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

// =============================================================================
// SEED
// =============================================================================

func seedCmd(e *env) *cobra.Command {
	var (
		file     string
		builtin  string
		withBase bool
		reset    bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a scenario into the database",
		Long: `Load a scenario file (or a built-in scenario) into the database.

A file is applied as it is unless --base is set, in which case the
shared code space and users of the built-in scenarios come first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadScenario(file, builtin, withBase)
			if err != nil {
				return err
			}
			if err := e.open(); err != nil {
				return err
			}
			defer e.close()

			ctx := cmd.Context()
			if reset {
				if err := e.store.Reset(ctx); err != nil {
					return err
				}
			}
			if err := s.Apply(ctx, e.store); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %s (%d users, %d planning rows)\n",
				s.ID, len(s.Users), len(s.Planning))
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Scenario YAML file")
	cmd.Flags().StringVar(&builtin, "scenario", "", "Built-in scenario ID")
	cmd.Flags().BoolVar(&withBase, "base", false, "Merge the file over the built-in base")
	cmd.Flags().BoolVar(&reset, "reset", false, "Clear the database first")
	cmd.MarkFlagsMutuallyExclusive("file", "scenario")
	cmd.MarkFlagsOneRequired("file", "scenario")
	return cmd
}

func loadScenario(file, builtin string, withBase bool) (*scenario.Scenario, error) {
	if builtin != "" {
		return scenario.Builtin(builtin)
	}
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s, err := scenario.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	if !withBase {
		return s, nil
	}
	base, err := scenario.Base()
	if err != nil {
		return nil, err
	}
	return base.Extend(s), nil
}

// =============================================================================
// HELPERS
// =============================================================================

func checkMonth(month int) error {
	if month < 1 || month > 12 {
		return fmt.Errorf("month %d outside 1..12", month)
	}
	return nil
}

func parsePeriod(from, to string) (generic.Period, error) {
	start, err := generic.ParseDate(from)
	if err != nil {
		return generic.Period{}, fmt.Errorf("--from: %w", err)
	}
	end, err := generic.ParseDate(to)
	if err != nil {
		return generic.Period{}, fmt.Errorf("--to: %w", err)
	}
	return generic.NewPeriod(start, end)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func mark(b bool) string {
	if b {
		return "x"
	}
	return ""
}
