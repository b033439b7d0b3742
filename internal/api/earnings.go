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

package api

import (
	"context"
	"fmt"

	"genealogy-compensation-go/internal/models"

	"go.uber.org/zap"
)

// GetAccount returns an account together with its placement node
func (s *CompensationService) GetAccount(ctx context.Context, accountId string) (*models.AccountView, error) {
	if accountId == "" {
		return nil, fmt.Errorf("account_id is required")
	}

	account, err := s.store.GetAccount(ctx, accountId)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve account: %w", err)
	}
	node, err := s.store.GetNodeByAccount(ctx, accountId)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve node: %w", err)
	}

	view := &models.AccountView{
		Id:              account.Id,
		SponsorId:       account.SponsorAccountId,
		ParentId:        account.PlacementParentAccountId,
		Level:           node.Level,
		SettlementValue: node.SettlementValue,
		Package:         account.Package,
		LeftPending:     account.LeftPending,
		RightPending:    account.RightPending,
		AncestorPath:    account.AncestorPath,
	}
	if node.Position != nil {
		view.Position = string(*node.Position)
	}
	return view, nil
}

// GetChildren returns the nodes placed directly under an account
func (s *CompensationService) GetChildren(ctx context.Context, accountId string) ([]models.NodeView, error) {
	nodes, err := s.store.GetChildren(ctx, accountId)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve children: %w", err)
	}

	result := make([]models.NodeView, len(nodes))
	for i, node := range nodes {
		result[i] = toNodeView(node)
	}
	return result, nil
}

// GetEarnings returns the per-source income totals of an account
func (s *CompensationService) GetEarnings(ctx context.Context, accountId string) (*models.EarningsView, error) {
	if accountId == "" {
		return nil, fmt.Errorf("account_id is required")
	}

	summary, err := s.store.GetEarningsSummary(ctx, accountId)
	if err != nil {
		zap.L().Error("Failed to get earnings summary", zap.String("account_id", accountId), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve earnings: %w", err)
	}

	return &models.EarningsView{
		AccountId:     summary.AccountId,
		PairingTotal:  summary.PairingTotal,
		PairingCount:  summary.PairingCount,
		UnilevelTotal: summary.UnilevelTotal,
		UnilevelCount: summary.UnilevelCount,
		Total:         summary.Total,
	}, nil
}

// GetIncomeHistory returns paginated income history for an account
func (s *CompensationService) GetIncomeHistory(ctx context.Context, accountId string, limit, offset int) ([]models.IncomeEntry, error) {
	if accountId == "" {
		return nil, fmt.Errorf("account_id is required")
	}
	limit, offset = normalizePage(limit, offset)

	records, err := s.store.GetIncomeHistory(ctx, accountId, limit, offset)
	if err != nil {
		zap.L().Error("Failed to get income history",
			zap.String("account_id", accountId),
			zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve income history: %w", err)
	}

	result := make([]models.IncomeEntry, len(records))
	for i, record := range records {
		result[i] = models.IncomeEntry{
			Id:        record.Id,
			Source:    string(record.Source),
			Amount:    record.Amount,
			EventId:   record.EventId,
			CreatedAt: record.CreatedAt,
		}
	}
	return result, nil
}

func (s *CompensationService) GetPairingHistory(ctx context.Context, accountId string, limit, offset int) ([]models.PairingEntry, error) {
	if accountId == "" {
		return nil, fmt.Errorf("account_id is required")
	}
	limit, offset = normalizePage(limit, offset)

	records, err := s.store.GetPairingHistory(ctx, accountId, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve pairing history: %w", err)
	}

	result := make([]models.PairingEntry, len(records))
	for i, record := range records {
		result[i] = models.PairingEntry{
			Id:           record.Id,
			Level:        record.Level,
			SettledValue: record.SettledValue,
			SourceNodeId: record.SourceNodeId,
			CreatedAt:    record.CreatedAt,
		}
	}
	return result, nil
}

func (s *CompensationService) GetCommissions(ctx context.Context, accountId string, limit, offset int) ([]models.CommissionEntry, error) {
	if accountId == "" {
		return nil, fmt.Errorf("account_id is required")
	}
	limit, offset = normalizePage(limit, offset)

	records, err := s.store.GetCommissionsByAccount(ctx, accountId, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve commissions: %w", err)
	}
	return toCommissionEntries(records), nil
}

// GetPurchaseCommissions lists the commissions a purchase produced, level order
func (s *CompensationService) GetPurchaseCommissions(ctx context.Context, purchaseId string) ([]models.CommissionEntry, error) {
	if purchaseId == "" {
		return nil, fmt.Errorf("purchase_id is required")
	}

	records, err := s.store.GetCommissionsByPurchase(ctx, purchaseId)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve purchase commissions: %w", err)
	}
	return toCommissionEntries(records), nil
}

func (s *CompensationService) GetMaintenance(ctx context.Context, accountId string) (*models.MaintenanceStatus, error) {
	if _, err := s.store.GetAccount(ctx, accountId); err != nil {
		return nil, fmt.Errorf("failed to retrieve account: %w", err)
	}

	status, err := s.store.StatusOf(ctx, accountId)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve maintenance status: %w", err)
	}
	return &status, nil
}

func toNodeView(node models.GenealogyNode) models.NodeView {
	view := models.NodeView{
		Id:              node.Id,
		AccountId:       node.AccountId,
		Level:           node.Level,
		SettlementValue: node.SettlementValue,
		CreatedAt:       node.CreatedAt,
	}
	if node.Position != nil {
		view.Position = string(*node.Position)
	}
	return view
}

func toCommissionEntries(records []models.CommissionRecord) []models.CommissionEntry {
	result := make([]models.CommissionEntry, len(records))
	for i, record := range records {
		result[i] = models.CommissionEntry{
			Id:            record.Id,
			BeneficiaryId: record.BeneficiaryAccountId,
			PurchaseId:    record.PurchaseId,
			Level:         record.Level,
			Amount:        record.Amount,
			CreatedAt:     record.CreatedAt,
		}
	}
	return result
}
