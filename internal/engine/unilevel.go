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

package engine

import (
	"context"
	"errors"
	"fmt"

	"genealogy-compensation-go/internal/models"
	"genealogy-compensation-go/internal/plan"
	"genealogy-compensation-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Unilevel posts fixed per-level commissions up the chain of a buyer
type Unilevel struct {
	plan *plan.Plan
}

func NewUnilevel(p *plan.Plan) *Unilevel {
	return &Unilevel{plan: p}
}

// DistributeForPurchase posts one commission per ancestor level present in the
// buyer's chain, up to the unilevel depth, then records the buyer's spend.
// It must run inside the transaction that records the purchase.
func (e *Unilevel) DistributeForPurchase(ctx context.Context, tx store.Tx, purchase models.Purchase) (*models.DistributionResult, error) {
	if purchase.Id == "" {
		return nil, fmt.Errorf("purchase id is required")
	}
	if purchase.TotalAmount.IsNegative() {
		return nil, fmt.Errorf("%w: purchase %s total %s", store.ErrInvalidAmount, purchase.Id, purchase.TotalAmount.String())
	}

	buyer, err := tx.GetAccount(ctx, purchase.BuyerAccountId)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return nil, fmt.Errorf("%w: %s", store.ErrBuyerNotFound, purchase.BuyerAccountId)
		}
		return nil, fmt.Errorf("failed to resolve buyer: %w", err)
	}

	if err := tx.ClaimEvent(ctx, store.EventPurchase, purchase.Id); err != nil {
		return nil, err
	}

	var chain []models.Ancestor
	switch e.plan.UnilevelChain {
	case plan.ChainSponsor:
		chain, err = tx.SponsorsOf(ctx, *buyer, e.plan.UnilevelDepth)
	default:
		chain, err = tx.AncestorsOf(ctx, *buyer, e.plan.UnilevelDepth)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load chain of %s: %w", buyer.Id, err)
	}

	result := &models.DistributionResult{
		PurchaseId: purchase.Id,
		Total:      decimal.Zero,
	}

	for _, ancestor := range chain {
		amount, ok := e.plan.CommissionAmount(ancestor.Distance)
		if !ok {
			break
		}

		if e.plan.RequireActiveBeneficiary {
			status, err := tx.StatusOf(ctx, ancestor.AccountId)
			if err != nil {
				return nil, fmt.Errorf("failed to read status of %s: %w", ancestor.AccountId, err)
			}
			if !status.Active {
				zap.L().Debug("Skipping inactive beneficiary",
					zap.String("beneficiary", ancestor.AccountId),
					zap.Int("level", ancestor.Distance),
					zap.String("purchase_id", purchase.Id))
				result.Skipped++
				continue
			}
		}

		record := models.CommissionRecord{
			Id:                   commissionRecordId(purchase.Id, ancestor.Distance),
			BeneficiaryAccountId: ancestor.AccountId,
			PurchaseId:           purchase.Id,
			Level:                ancestor.Distance,
			Amount:               amount,
			CreatedAt:            purchase.PaidAt,
		}
		if err := tx.AppendCommission(ctx, record); err != nil {
			return nil, fmt.Errorf("failed to append commission level %d: %w", record.Level, err)
		}

		income := models.IncomeHistoryRecord{
			Id:          incomeRecordId(record.Id),
			AccountId:   record.BeneficiaryAccountId,
			Amount:      record.Amount,
			Source:      models.IncomeSourceUnilevel,
			ReferenceId: record.Id,
			EventId:     purchase.Id,
			CreatedAt:   record.CreatedAt,
		}
		if err := tx.AppendIncome(ctx, income); err != nil {
			return nil, fmt.Errorf("failed to append commission income: %w", err)
		}

		result.Commissions = append(result.Commissions, record)
		result.Total = result.Total.Add(record.Amount)
	}

	maintenance, err := tx.RecordSpend(ctx, buyer.Id, purchase.TotalAmount, e.plan.IsActive)
	if err != nil {
		return nil, fmt.Errorf("failed to record spend for %s: %w", buyer.Id, err)
	}
	result.Maintenance = maintenance

	return result, nil
}
