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
	"fmt"

	"genealogy-compensation-go/internal/models"
	"genealogy-compensation-go/internal/plan"
	"genealogy-compensation-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Pairing settles binary pairing bonuses triggered by new placements
type Pairing struct {
	plan *plan.Plan
}

// PairingResult lists the pairing rows posted for one placement
type PairingResult struct {
	Records []models.PairingHistoryRecord
	Total   decimal.Decimal
}

func NewPairing(p *plan.Plan) *Pairing {
	return &Pairing{plan: p}
}

// HandleNewPlacement walks the new node's ancestors nearest first, up to the
// pairing depth, and settles at most one pairing unit per ancestor. It must
// run inside the transaction that created the node.
func (e *Pairing) HandleNewPlacement(ctx context.Context, tx store.Tx, account models.Account, node models.GenealogyNode) (*PairingResult, error) {
	if node.AccountId != account.Id {
		return nil, fmt.Errorf("node %s does not belong to account %s", node.Id, account.Id)
	}

	if err := tx.ClaimEvent(ctx, store.EventPlacement, node.Id); err != nil {
		return nil, err
	}

	ancestors, err := tx.AncestorsOf(ctx, account, e.plan.PairingDepth)
	if err != nil {
		return nil, fmt.Errorf("failed to load ancestors of %s: %w", account.Id, err)
	}

	result := &PairingResult{Total: decimal.Zero}
	if len(ancestors) == 0 {
		return result, nil
	}

	ids := make([]string, len(ancestors))
	for i, ancestor := range ancestors {
		ids[i] = ancestor.AccountId
	}
	if err := tx.LockCounters(ctx, ids); err != nil {
		return nil, fmt.Errorf("failed to lock pairing counters: %w", err)
	}

	for _, ancestor := range ancestors {
		left, right, err := tx.AddPending(ctx, ancestor.AccountId, ancestor.Side)
		if err != nil {
			return nil, fmt.Errorf("failed to update counters of %s: %w", ancestor.AccountId, err)
		}

		if left < 1 || right < 1 {
			continue
		}

		if err := tx.SettlePair(ctx, ancestor.AccountId); err != nil {
			return nil, fmt.Errorf("failed to settle pair for %s: %w", ancestor.AccountId, err)
		}

		record := models.PairingHistoryRecord{
			Id:                   pairingRecordId(node.Id, ancestor.AccountId),
			BeneficiaryAccountId: ancestor.AccountId,
			Level:                ancestor.Distance,
			SettledValue:         node.SettlementValue,
			SourceNodeId:         node.Id,
			CreatedAt:            node.CreatedAt,
		}
		if err := tx.AppendPairing(ctx, record); err != nil {
			return nil, fmt.Errorf("failed to append pairing history: %w", err)
		}

		income := models.IncomeHistoryRecord{
			Id:          incomeRecordId(record.Id),
			AccountId:   record.BeneficiaryAccountId,
			Amount:      record.SettledValue,
			Source:      models.IncomeSourcePairing,
			ReferenceId: record.Id,
			EventId:     node.Id,
			CreatedAt:   record.CreatedAt,
		}
		if err := tx.AppendIncome(ctx, income); err != nil {
			return nil, fmt.Errorf("failed to append pairing income: %w", err)
		}

		zap.L().Debug("Pairing unit settled",
			zap.String("beneficiary", ancestor.AccountId),
			zap.Int("level", ancestor.Distance),
			zap.String("value", record.SettledValue.String()),
			zap.String("source_node_id", node.Id))

		result.Records = append(result.Records, record)
		result.Total = result.Total.Add(record.SettledValue)
	}

	return result, nil
}
