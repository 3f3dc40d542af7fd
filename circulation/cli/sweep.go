package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Astemirdum/library-circulation/circulation/internal/model"
)

type SweepOptions struct {
	*RootOptions
	AsOf string
}

func NewSweepCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SweepOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run circulation batch jobs",
		Long: `Run one pass of a circulation batch job as of a calendar date.

Every job is idempotent: running it twice for the same date changes nothing the
second time.

Examples:
  circulationctl sweep overdue
  circulationctl sweep overdue --as-of 2024-03-01
  circulationctl sweep reminders --format json`,
	}
	cmd.PersistentFlags().StringVar(&opts.AsOf, "as-of", "", "as-of date YYYY-MM-DD (default today, UTC)")

	cmd.AddCommand(&cobra.Command{
		Use:   "overdue",
		Short: "Mark past-due loans overdue and assess their fines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd, func(ctx context.Context, svc Circulation, asOf time.Time) (any, string, error) {
				res, err := svc.RunOverdueSweep(ctx, asOf)
				if err != nil {
					return nil, "", err
				}
				return res, fmt.Sprintf("overdue sweep %s: %d loans marked overdue, %d fines created",
					res.AsOf.Format(time.DateOnly), res.LoansMarkedOverdue, res.FinesCreated), nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "reminders",
		Short: "Send due-soon reminders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd, func(ctx context.Context, svc Circulation, asOf time.Time) (any, string, error) {
				n, err := svc.SendDueDateReminders(ctx, asOf)
				if err != nil {
					return nil, "", err
				}
				return countResult{AsOf: asOf, Count: n},
					fmt.Sprintf("reminders %s: %d sent", asOf.Format(time.DateOnly), n), nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "reservations",
		Short: "Expire reservations past their hold date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd, func(ctx context.Context, svc Circulation, asOf time.Time) (any, string, error) {
				n, err := svc.ExpireReservations(ctx, asOf)
				if err != nil {
					return nil, "", err
				}
				return countResult{AsOf: asOf, Count: n},
					fmt.Sprintf("reservations %s: %d expired", asOf.Format(time.DateOnly), n), nil
			})
		},
	})

	return cmd
}

type countResult struct {
	AsOf  time.Time `json:"asOf"`
	Count int       `json:"count"`
}

func (o *SweepOptions) run(cmd *cobra.Command, job func(ctx context.Context, svc Circulation, asOf time.Time) (any, string, error)) error {
	asOf, err := model.ParseDay(o.AsOf, o.now())
	if err != nil {
		return fmt.Errorf("invalid --as-of %q: %w", o.AsOf, err)
	}
	return o.withService(cmd, func(ctx context.Context, svc Circulation) error {
		v, text, err := job(ctx, svc, asOf)
		if err != nil {
			return err
		}
		return o.print(cmd.OutOrStdout(), v, text)
	})
}
