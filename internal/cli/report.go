package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"lifedash/internal/config"
	"lifedash/internal/core"
	"lifedash/internal/log"
	"lifedash/internal/session"
)

// Report kinds.
const (
	KindHabits    = "habits"
	KindFinance   = "finance"
	KindDashboard = "dashboard"
)

var validKinds = []string{KindHabits, KindFinance, KindDashboard}

// ReportOptions selects the month and tracker a report reads.
type ReportOptions struct {
	Kind   string
	Year   int
	Month  int
	UserID string
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the metrics of one month",
		Long: `Load one month of a tracker from the configured backend and print its
state and derived metrics. Nothing is written back to the store.

The dashboard kind ignores --year and --month and summarizes today.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(validKinds, opts.Kind) {
				return fmt.Errorf("invalid kind %q: must be one of %v", opts.Kind, validKinds)
			}
			cfg, err := LoadAndValidateConfig(rootOpts)
			if err != nil {
				return err
			}
			if opts.UserID == "" {
				opts.UserID = cfg.DefaultUserID
			}
			logger := SetupLogger(cfg, cmd.ErrOrStderr())
			return runReport(cmd.Context(), cfg, logger, opts, rootOpts.Format, cmd.OutOrStdout(), time.Now())
		},
	}

	cmd.Flags().StringVarP(&opts.Kind, "kind", "k", KindHabits, "tracker to report (habits|finance|dashboard)")
	cmd.Flags().IntVar(&opts.Year, "year", 0, "year of the month, defaults to the current year")
	cmd.Flags().IntVar(&opts.Month, "month", 0, "month number 1-12, defaults to the current month")
	cmd.Flags().StringVarP(&opts.UserID, "user", "u", "", "user id, defaults to DEFAULT_USER_ID")

	return cmd
}

// period resolves the selected month; zero fields fall back to now.
func (o *ReportOptions) period(now time.Time) (core.Period, error) {
	year, month := o.Year, o.Month
	if year == 0 {
		year = now.Year()
	}
	if month == 0 {
		month = int(now.Month())
	}
	return core.ParsePeriod(year, month)
}

func runReport(ctx context.Context, cfg *config.Config, logger *log.Logger, opts *ReportOptions, format string, out io.Writer, now time.Time) error {
	if ctx == nil {
		ctx = context.Background()
	}
	p, err := opts.period(now)
	if err != nil {
		return err
	}

	sessCfg, err := SessionConfig(ctx, cfg, logger)
	if err != nil {
		return err
	}
	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	var report any
	switch opts.Kind {
	case KindHabits:
		s := session.OpenHabitSession(ctx, st.Store, opts.UserID, p, sessCfg, logger)
		defer s.Close(ctx)
		report = s.View()
	case KindFinance:
		s := session.OpenFinanceSession(ctx, st.Store, opts.UserID, p, sessCfg, logger)
		defer s.Close(ctx)
		report = s.View()
	case KindDashboard:
		report = session.NewDashboard(st.Store, sessCfg, logger).Overview(ctx, opts.UserID, now)
	}

	if format == "text" {
		return writeText(out, report)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func writeText(w io.Writer, report any) error {
	var err error
	printf := func(format string, args ...any) {
		if err == nil {
			_, err = fmt.Fprintf(w, format, args...)
		}
	}

	switch r := report.(type) {
	case session.HabitView:
		m := r.Metrics
		printf("Habits %s (%s)\n", r.Period, r.Key)
		printf("  habits:      %d\n", m.HabitCount)
		printf("  efficiency:  %.1f%%\n", m.Efficiency)
		for i, h := range r.State.Habits {
			printf("  %-20s %d/%d (%d%%)\n", h.Name, m.HabitActual[i], h.Goal, m.HabitProgress[i])
		}
		for week, v := range m.WeeklyExecution {
			printf("  week %d:      %.1f%%\n", week+1, v)
		}
	case session.FinanceView:
		m := r.Metrics
		printf("Finance %s (%s)\n", r.Period, r.Key)
		printf("  starting:    %.2f\n", m.StartingAmount)
		printf("  income:      %.2f / %.2f\n", m.Income.Actual, m.Income.Plan)
		printf("  expenses:    %.2f / %.2f\n", m.Expense.Actual, m.Expense.Plan)
		printf("  debt:        %.2f / %.2f\n", m.Debt.Actual, m.Debt.Plan)
		printf("  balance:     %.2f (plan %.2f)\n", m.Balance, m.BalancePlan)
		printf("  growth:      %.1f%% %s\n", m.Growth, m.Trend)
	case session.Overview:
		printf("Dashboard %s (%s)\n", r.Period, r.WeekKey)
		if r.Habits != nil {
			printf("  habit efficiency: %.1f%%\n", r.Habits.Efficiency)
		}
		for _, h := range r.Today {
			mark := " "
			if h.Done {
				mark = "x"
			}
			printf("  [%s] %s\n", mark, h.Name)
		}
		printf("  balance:          %.2f\n", r.Finance.Balance)
		for section, msg := range r.Errors {
			printf("  %s unavailable: %s\n", section, msg)
		}
	default:
		return fmt.Errorf("unsupported report type %T", report)
	}
	return err
}
