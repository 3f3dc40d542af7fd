package config

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/Astemirdum/library-circulation/circulation/internal/model"
	"github.com/Astemirdum/library-circulation/circulation/internal/policy"
	"github.com/Astemirdum/library-circulation/pkg/kafka"
	"github.com/Astemirdum/library-circulation/pkg/logger"
	"github.com/Astemirdum/library-circulation/pkg/postgres"
)

type HTTPServer struct {
	Host         string        `yaml:"host" envconfig:"CIRCULATION_HTTP_HOST" default:"0.0.0.0"`
	Port         string        `yaml:"port" envconfig:"CIRCULATION_HTTP_PORT" default:"8080"`
	ReadTimeout  time.Duration `yaml:"readTimeout" envconfig:"HTTP_READ"`
	WriteTimeout time.Duration
}

type Circulation struct {
	PolicyFallback         bool            `envconfig:"POLICY_FALLBACK" default:"true"`
	FallbackMaxBooks       int             `envconfig:"FALLBACK_MAX_BOOKS" default:"5"`
	FallbackLoanPeriodDays int             `envconfig:"FALLBACK_LOAN_PERIOD_DAYS" default:"14"`
	FallbackMaxRenewals    int             `envconfig:"FALLBACK_MAX_RENEWALS" default:"3"`
	FallbackFinePerDay     decimal.Decimal `envconfig:"FALLBACK_FINE_PER_DAY" default:"0.50"`
	FallbackMaxFineAmount  decimal.Decimal `envconfig:"FALLBACK_MAX_FINE_AMOUNT" default:"50.00"`

	ReservationHoldDays int           `envconfig:"RESERVATION_HOLD_DAYS" default:"7"`
	DueSoonDays         int           `envconfig:"DUE_SOON_DAYS" default:"3"`
	SweepEnable         bool          `envconfig:"SWEEP_ENABLE" default:"true"`
	SweepInterval       time.Duration `envconfig:"SWEEP_INTERVAL" default:"1h"`
	PolicySeedFile      string        `envconfig:"POLICY_SEED_FILE"`
}

// FallbackPolicy is the policy for tiers without a stored one, or nil when the fallback is off.
func (c Circulation) FallbackPolicy() *model.CheckoutPolicy {
	if !c.PolicyFallback {
		return nil
	}
	return &model.CheckoutPolicy{
		MaxBooks:       c.FallbackMaxBooks,
		LoanPeriodDays: c.FallbackLoanPeriodDays,
		MaxRenewals:    c.FallbackMaxRenewals,
		FinePerDay:     c.FallbackFinePerDay,
		MaxFineAmount:  c.FallbackMaxFineAmount,
	}
}

func (c Circulation) validate() error {
	switch {
	case c.SweepInterval <= 0:
		return errors.Errorf("SWEEP_INTERVAL must be > 0, got %s", c.SweepInterval)
	case c.ReservationHoldDays <= 0:
		return errors.Errorf("RESERVATION_HOLD_DAYS must be > 0, got %d", c.ReservationHoldDays)
	case c.DueSoonDays < 0:
		return errors.Errorf("DUE_SOON_DAYS must be >= 0, got %d", c.DueSoonDays)
	}
	if fb := c.FallbackPolicy(); fb != nil {
		fb.Tier = "FALLBACK"
		if err := policy.Validate(*fb); err != nil {
			return errors.Wrap(err, "fallback policy")
		}
	}
	return nil
}

type Config struct {
	Server      HTTPServer   `yaml:"server"`
	Kafka       kafka.Config `yaml:"kafka"`
	Database    postgres.DB  `yaml:"db"`
	Log         logger.Log   `yaml:"log"`
	Circulation Circulation  `yaml:"circulation"`
}

var (
	once sync.Once
	cfg  *Config
)

// NewConfig reads config from environment.
func NewConfig(ops ...Option) *Config {
	once.Do(func() {
		config, err := Load(ops...)
		if err != nil {
			log.Fatal("NewConfig ", err)
		}
		cfg = config
		printConfig(cfg)
	})

	return cfg
}

// Load reads a fresh config from the environment; options set the values no variable overrides.
func Load(ops ...Option) (*Config, error) {
	var config Config
	for _, op := range ops {
		op(&config)
	}
	if err := envconfig.Process("", &config); err != nil {
		return nil, err
	}
	if err := config.Circulation.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func printConfig(cfg *Config) {
	jscfg, _ := json.MarshalIndent(cfg, "", "	") //nolint:errcheck
	fmt.Println(string(jscfg))
}
