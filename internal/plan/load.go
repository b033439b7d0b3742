package plan

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

// Amount decodes a YAML scalar (int, float or quoted string) into a decimal
type Amount struct {
	decimal.Decimal
}

func (a *Amount) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	a.Decimal = d
	return nil
}

type settlementFile struct {
	Base     *Amount `yaml:"base"`
	Step     *Amount `yaml:"step"`
	MaxLevel int     `yaml:"max_level"`
}

type planFile struct {
	PairingDepth             int             `yaml:"pairing_depth"`
	UnilevelDepth            int             `yaml:"unilevel_depth"`
	UnilevelSchedule         []Amount        `yaml:"unilevel_schedule"`
	Settlement               *settlementFile `yaml:"settlement"`
	ActivationThreshold      *Amount         `yaml:"activation_threshold"`
	UnilevelChain            string          `yaml:"unilevel_chain"`
	RequireActiveBeneficiary bool            `yaml:"require_active_beneficiary"`
}

// Load reads a plan file. An empty path returns the default plan. Keys left
// out of the file keep their default values.
func Load(planPath string) (*Plan, error) {
	if planPath == "" {
		return Default(), nil
	}

	if !filepath.IsAbs(planPath) {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		planPath = filepath.Join(wd, planPath)
	}

	data, err := os.ReadFile(planPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", planPath, err)
	}

	return Parse(data)
}

// Parse decodes and validates plan YAML
func Parse(data []byte) (*Plan, error) {
	var file planFile
	if err := yaml.UnmarshalStrict(data, &file); err != nil {
		return nil, fmt.Errorf("unable to parse plan: %w", err)
	}

	p := Default()
	if file.PairingDepth != 0 {
		p.PairingDepth = file.PairingDepth
	}
	if file.UnilevelDepth != 0 {
		p.UnilevelDepth = file.UnilevelDepth
		if len(file.UnilevelSchedule) == 0 && p.UnilevelDepth <= len(p.UnilevelSchedule) {
			p.UnilevelSchedule = p.UnilevelSchedule[:p.UnilevelDepth]
		}
	}
	if len(file.UnilevelSchedule) > 0 {
		p.UnilevelSchedule = make([]decimal.Decimal, len(file.UnilevelSchedule))
		for i, amount := range file.UnilevelSchedule {
			p.UnilevelSchedule[i] = amount.Decimal
		}
	}
	if file.Settlement != nil {
		if file.Settlement.Base != nil {
			p.Settlement.Base = file.Settlement.Base.Decimal
		}
		if file.Settlement.Step != nil {
			p.Settlement.Step = file.Settlement.Step.Decimal
		}
		if file.Settlement.MaxLevel != 0 {
			p.Settlement.MaxLevel = file.Settlement.MaxLevel
		}
	}
	if file.ActivationThreshold != nil {
		p.ActivationThreshold = file.ActivationThreshold.Decimal
	}
	if file.UnilevelChain != "" {
		p.UnilevelChain = Chain(file.UnilevelChain)
	}
	p.RequireActiveBeneficiary = file.RequireActiveBeneficiary

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}
	return p, nil
}
