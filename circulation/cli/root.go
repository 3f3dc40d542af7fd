// Package cli implements circulationctl, the operator commands for batch jobs and policy management.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Astemirdum/library-circulation/circulation/internal/model"
)

// Circulation is the part of the service the operator commands drive.
type Circulation interface {
	RunOverdueSweep(ctx context.Context, asOf time.Time) (model.SweepResult, error)
	SendDueDateReminders(ctx context.Context, asOf time.Time) (int, error)
	ExpireReservations(ctx context.Context, asOf time.Time) (int, error)
	ListPolicies(ctx context.Context) ([]model.CheckoutPolicy, error)
	SeedPolicies(ctx context.Context, policies []model.CheckoutPolicy, overwrite bool) (int, error)
}

// Opener connects to the service. The returned func releases what Open acquired.
type Opener func(ctx context.Context) (Circulation, func(), error)

type RootOptions struct {
	Format string

	open Opener
	now  func() time.Time
}

var ValidFormats = []string{"text", "json"}

func NewRootCommand(open Opener) *cobra.Command {
	return newRootCommand(open, func() time.Time { return time.Now().UTC() })
}

func newRootCommand(open Opener, now func() time.Time) *cobra.Command {
	opts := &RootOptions{open: open, now: now}

	cmd := &cobra.Command{
		Use:   "circulationctl",
		Short: "Operator commands for the circulation service",
		PersistentPreRunE: func(*cobra.Command, []string) error {
			for _, f := range ValidFormats {
				if f == opts.Format {
					return nil
				}
			}
			return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
		},
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewSweepCommand(opts))
	cmd.AddCommand(NewPolicyCommand(opts))
	return cmd
}

// withService opens the service for the duration of fn.
func (o *RootOptions) withService(cmd *cobra.Command, fn func(ctx context.Context, svc Circulation) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	svc, closeFn, err := o.open(ctx)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(ctx, svc)
}

func (o *RootOptions) print(w io.Writer, v any, text string) error {
	if o.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(w, text)
	return err
}
