package service

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-circulation/circulation/internal/errs"
	"github.com/Astemirdum/library-circulation/circulation/internal/model"
	"github.com/Astemirdum/library-circulation/circulation/internal/policy"
	"github.com/Astemirdum/library-circulation/circulation/internal/repository"
)

func (s *Service) ListPolicies(ctx context.Context) ([]model.CheckoutPolicy, error) {
	return s.repo.ListPolicies(ctx)
}

func (s *Service) GetPolicy(ctx context.Context, tier model.Tier) (model.CheckoutPolicy, error) {
	p, err := s.repo.GetPolicy(ctx, tier)
	if errors.Is(err, errs.ErrNotFound) {
		return model.CheckoutPolicy{}, fmt.Errorf("%w: tier %s: %w", errs.ErrPolicyNotFound, tier, errs.ErrNotFound)
	}
	return p, err
}

func (s *Service) UpsertPolicy(ctx context.Context, p model.CheckoutPolicy, actor string) error {
	if err := policy.Validate(p); err != nil {
		return errs.Validation("%s", err)
	}
	if err := s.repo.UpsertPolicy(ctx, p); err != nil {
		return err
	}
	s.activity("upsert_policy", actor, zap.String("tier", string(p.Tier)))
	return nil
}

// SeedPolicies stores the given policies. Tiers that already have a policy are kept unless overwrite is set.
func (s *Service) SeedPolicies(ctx context.Context, policies []model.CheckoutPolicy, overwrite bool) (int, error) {
	for _, p := range policies {
		if err := policy.Validate(p); err != nil {
			return 0, errs.Validation("tier %q: %s", p.Tier, err)
		}
	}
	written := 0
	err := s.repo.RunInTx(ctx, func(ctx context.Context, tx repository.Repository) error {
		written = 0
		for _, p := range policies {
			if !overwrite {
				_, err := tx.GetPolicy(ctx, p.Tier)
				if err == nil {
					continue
				}
				if !errors.Is(err, errs.ErrNotFound) {
					return err
				}
			}
			if err := tx.UpsertPolicy(ctx, p); err != nil {
				return err
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.activity("seed_policies", "system", zap.Int("written", written), zap.Bool("overwrite", overwrite))
	return written, nil
}
