/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package plan holds the compensation plan constants: the depth caps of both
// engines, the unilevel amount schedule, the settlement value curve and the
// maintenance activation rule.
package plan

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	// MaxPairingDepth is the hard cap on ancestor levels the pairing walk visits
	MaxPairingDepth = 10
	// MaxUnilevelDepth is the hard cap on sponsor-chain levels that earn commissions
	MaxUnilevelDepth = 15
)

// Chain selects which ancestry the unilevel walk follows
type Chain string

const (
	ChainPlacement Chain = "placement"
	ChainSponsor   Chain = "sponsor"
)

// SettlementCurve maps a node's level to its settlement value:
// Base - Step*(level-1), floored at zero, and zero past MaxLevel.
type SettlementCurve struct {
	Base     decimal.Decimal
	Step     decimal.Decimal
	MaxLevel int
}

type Plan struct {
	PairingDepth     int
	UnilevelDepth    int
	UnilevelSchedule []decimal.Decimal // index 0 is level 1
	Settlement       SettlementCurve

	// ActivationThreshold is the cumulative spend at which an account turns
	// active. Zero activates on the first qualifying purchase.
	ActivationThreshold decimal.Decimal

	UnilevelChain            Chain
	RequireActiveBeneficiary bool
}

// DefaultUnilevelSchedule returns L1=100, L2=50, L3=40, L4=30, L5=20, L6..L15=10
func DefaultUnilevelSchedule() []decimal.Decimal {
	schedule := []decimal.Decimal{
		decimal.NewFromInt(100),
		decimal.NewFromInt(50),
		decimal.NewFromInt(40),
		decimal.NewFromInt(30),
		decimal.NewFromInt(20),
	}
	for len(schedule) < MaxUnilevelDepth {
		schedule = append(schedule, decimal.NewFromInt(10))
	}
	return schedule
}

func Default() *Plan {
	return &Plan{
		PairingDepth:     MaxPairingDepth,
		UnilevelDepth:    MaxUnilevelDepth,
		UnilevelSchedule: DefaultUnilevelSchedule(),
		Settlement: SettlementCurve{
			Base:     decimal.NewFromInt(1000),
			Step:     decimal.NewFromInt(100),
			MaxLevel: 10,
		},
		ActivationThreshold: decimal.Zero,
		UnilevelChain:       ChainPlacement,
	}
}

// SettlementValue returns the value a node placed at level carries
func (p *Plan) SettlementValue(level int) decimal.Decimal {
	if level < 1 || level > p.Settlement.MaxLevel {
		return decimal.Zero
	}
	value := p.Settlement.Base.Sub(p.Settlement.Step.Mul(decimal.NewFromInt(int64(level - 1))))
	if value.IsNegative() {
		return decimal.Zero
	}
	return value
}

// CommissionAmount returns the scheduled amount for a unilevel level (1-indexed)
func (p *Plan) CommissionAmount(level int) (decimal.Decimal, bool) {
	if level < 1 || level > p.UnilevelDepth || level > len(p.UnilevelSchedule) {
		return decimal.Zero, false
	}
	return p.UnilevelSchedule[level-1], true
}

// IsActive applies the activation rule to a cumulative spend
func (p *Plan) IsActive(cumulativeSpend decimal.Decimal) bool {
	return cumulativeSpend.GreaterThanOrEqual(p.ActivationThreshold)
}

func (p *Plan) Validate() error {
	if p.PairingDepth < 1 || p.PairingDepth > MaxPairingDepth {
		return fmt.Errorf("pairing depth must be between 1 and %d, got %d", MaxPairingDepth, p.PairingDepth)
	}
	if p.UnilevelDepth < 1 || p.UnilevelDepth > MaxUnilevelDepth {
		return fmt.Errorf("unilevel depth must be between 1 and %d, got %d", MaxUnilevelDepth, p.UnilevelDepth)
	}
	if len(p.UnilevelSchedule) != p.UnilevelDepth {
		return fmt.Errorf("unilevel schedule has %d levels, depth is %d", len(p.UnilevelSchedule), p.UnilevelDepth)
	}
	for i, amount := range p.UnilevelSchedule {
		if amount.IsNegative() {
			return fmt.Errorf("unilevel amount for level %d is negative: %s", i+1, amount.String())
		}
	}
	if p.Settlement.Base.IsNegative() {
		return fmt.Errorf("settlement base cannot be negative, got %s", p.Settlement.Base.String())
	}
	if !p.Settlement.Step.IsPositive() {
		return fmt.Errorf("settlement step must be positive, got %s", p.Settlement.Step.String())
	}
	if p.Settlement.MaxLevel < 1 {
		return fmt.Errorf("settlement max level must be positive, got %d", p.Settlement.MaxLevel)
	}
	if p.ActivationThreshold.IsNegative() {
		return fmt.Errorf("activation threshold cannot be negative, got %s", p.ActivationThreshold.String())
	}
	switch p.UnilevelChain {
	case ChainPlacement, ChainSponsor:
	default:
		return fmt.Errorf("unknown unilevel chain %q", p.UnilevelChain)
	}
	return nil
}
