package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Astemirdum/library-circulation/circulation/config"
	"github.com/Astemirdum/library-circulation/circulation/internal/model"
)

type PolicyOptions struct {
	*RootOptions
	File      string
	Overwrite bool
}

func NewPolicyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PolicyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Manage checkout policies",
	}

	seed := &cobra.Command{
		Use:   "seed",
		Short: "Store checkout policies from a YAML file",
		Long: `Store checkout policies from a YAML file, or the built-in tier table when
--file is empty. Tiers that already have a policy are kept unless --overwrite is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			policies, err := opts.load()
			if err != nil {
				return err
			}
			return opts.withService(cmd, func(ctx context.Context, svc Circulation) error {
				n, err := svc.SeedPolicies(ctx, policies, opts.Overwrite)
				if err != nil {
					return err
				}
				return opts.print(cmd.OutOrStdout(), map[string]int{"stored": n, "total": len(policies)},
					fmt.Sprintf("stored %d of %d policies", n, len(policies)))
			})
		},
	}
	seed.Flags().StringVar(&opts.File, "file", "", "policy YAML file")
	seed.Flags().BoolVar(&opts.Overwrite, "overwrite", false, "replace existing policies")

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored checkout policies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withService(cmd, func(ctx context.Context, svc Circulation) error {
				policies, err := svc.ListPolicies(ctx)
				if err != nil {
					return err
				}
				return opts.print(cmd.OutOrStdout(), policies, policyTable(policies))
			})
		},
	}

	cmd.AddCommand(seed, list)
	return cmd
}

func (o *PolicyOptions) load() ([]model.CheckoutPolicy, error) {
	if o.File == "" {
		return config.DefaultPolicies()
	}
	return config.ReadPolicies(o.File)
}

func policyTable(policies []model.CheckoutPolicy) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIER\tMAX BOOKS\tLOAN DAYS\tRENEWALS\tFINE/DAY\tMAX FINE")
	for _, p := range policies {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\t%s\n",
			p.Tier, p.MaxBooks, p.LoanPeriodDays, p.MaxRenewals, p.FinePerDay.StringFixed(2), p.MaxFineAmount.StringFixed(2))
	}
	w.Flush()
	return strings.TrimRight(b.String(), "\n")
}
