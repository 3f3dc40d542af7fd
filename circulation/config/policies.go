package config

import (
	"bytes"
	_ "embed"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/Astemirdum/library-circulation/circulation/internal/model"
)

//go:embed policies.yaml
var defaultPolicies []byte

type policyFile struct {
	Policies []policyEntry `yaml:"policies"`
}

// money stays a string in YAML so amounts are never parsed as floats.
type policyEntry struct {
	Tier           string `yaml:"tier"`
	MaxBooks       int    `yaml:"maxBooks"`
	LoanPeriodDays int    `yaml:"loanPeriodDays"`
	MaxRenewals    int    `yaml:"maxRenewals"`
	FinePerDay     string `yaml:"finePerDay"`
	MaxFineAmount  string `yaml:"maxFineAmount"`
}

// DefaultPolicies is the built-in tier table used when no seed file is configured.
func DefaultPolicies() ([]model.CheckoutPolicy, error) {
	return LoadPolicies(bytes.NewReader(defaultPolicies))
}

func ReadPolicies(path string) ([]model.CheckoutPolicy, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadPolicies(f)
}

func LoadPolicies(r io.Reader) ([]model.CheckoutPolicy, error) {
	var file policyFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, errors.Wrap(err, "decode policies")
	}

	seen := make(map[string]struct{}, len(file.Policies))
	policies := make([]model.CheckoutPolicy, 0, len(file.Policies))
	for _, e := range file.Policies {
		if e.Tier == "" {
			return nil, errors.New("policy without tier")
		}
		if _, dup := seen[e.Tier]; dup {
			return nil, errors.Errorf("tier %s defined twice", e.Tier)
		}
		seen[e.Tier] = struct{}{}

		finePerDay, err := decimal.NewFromString(e.FinePerDay)
		if err != nil {
			return nil, errors.Wrapf(err, "tier %s: finePerDay", e.Tier)
		}
		maxFine, err := decimal.NewFromString(e.MaxFineAmount)
		if err != nil {
			return nil, errors.Wrapf(err, "tier %s: maxFineAmount", e.Tier)
		}
		policies = append(policies, model.CheckoutPolicy{
			Tier:           model.Tier(e.Tier),
			MaxBooks:       e.MaxBooks,
			LoanPeriodDays: e.LoanPeriodDays,
			MaxRenewals:    e.MaxRenewals,
			FinePerDay:     finePerDay,
			MaxFineAmount:  maxFine,
		})
	}
	return policies, nil
}
