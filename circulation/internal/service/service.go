package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-circulation/circulation/internal/errs"
	"github.com/Astemirdum/library-circulation/circulation/internal/model"
	"github.com/Astemirdum/library-circulation/circulation/internal/policy"
	"github.com/Astemirdum/library-circulation/circulation/internal/repository"
)

const (
	defaultHoldDays    = 7
	defaultDueSoonDays = 3
	historyLimit       = 20
)

type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// Notifier is the outbound notification sink. Calls are fire-and-forget and
// happen only after the owning transaction has committed.
type Notifier interface {
	Notify(ctx context.Context, n model.Notification)
	CopyAvailable(ctx context.Context, itemID, copyID string)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, model.Notification)    {}
func (nopNotifier) CopyAvailable(context.Context, string, string) {}

type Service struct {
	log      *zap.Logger
	repo     repository.Repository
	clock    Clock
	notifier Notifier

	fallback    *model.CheckoutPolicy
	holdDays    int
	dueSoonDays int
}

type Option func(*Service)

func WithClock(c Clock) Option {
	return func(s *Service) { s.clock = c }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithFallbackPolicy sets the policy used for tiers without a stored one.
// nil disables the fallback: checkout is then denied and renewal fails with ErrPolicyNotFound.
func WithFallbackPolicy(p *model.CheckoutPolicy) Option {
	return func(s *Service) { s.fallback = p }
}

func WithReservationHoldDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.holdDays = days
		}
	}
}

func WithDueSoonDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.dueSoonDays = days
		}
	}
}

func NewService(repo repository.Repository, log *zap.Logger, opts ...Option) *Service {
	fallback := policy.Default
	s := &Service{
		log:         log.Named("service"),
		repo:        repo,
		clock:       ClockFunc(func() time.Time { return time.Now().UTC() }),
		notifier:    nopNotifier{},
		fallback:    &fallback,
		holdDays:    defaultHoldDays,
		dueSoonDays: defaultDueSoonDays,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC()
}

// resolvePolicy returns the stored policy for tier, the fallback, or nil when neither exists.
func (s *Service) resolvePolicy(ctx context.Context, repo repository.Repository, tier model.Tier) (*model.CheckoutPolicy, error) {
	p, err := repo.GetPolicy(ctx, tier)
	switch {
	case err == nil:
		return &p, nil
	case !errors.Is(err, errs.ErrNotFound):
		return nil, err
	case s.fallback == nil:
		return nil, nil
	}
	fb := *s.fallback
	fb.Tier = tier
	return &fb, nil
}

func (s *Service) activity(action, actor string, fields ...zap.Field) {
	s.log.Info("activity", append([]zap.Field{
		zap.String("action", action),
		zap.String("actor", actor),
	}, fields...)...)
}

// unknown converts a missing record into the validation error for an unknown id.
func unknown(err error, kind, id string) error {
	if errors.Is(err, errs.ErrNotFound) {
		return errs.Unknown(kind, id)
	}
	return err
}

func denied(d policy.Decision) error {
	if d.Allowed {
		return nil
	}
	return errs.Ineligible(d.Reason)
}
