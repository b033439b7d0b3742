package api

import (
	"context"
	"errors"

	"genealogy-compensation-go/internal/models"
	"genealogy-compensation-go/internal/store"

	"go.uber.org/zap"
)

// ProcessPurchase records a committed purchase and distributes its unilevel
// commissions. A redelivered purchase id returns the original commissions.
func (s *CompensationService) ProcessPurchase(ctx context.Context, purchase models.Purchase) (*models.PurchaseResponse, error) {
	if purchase.Id == "" || purchase.BuyerAccountId == "" || purchase.TotalAmount.IsNegative() {
		return &models.PurchaseResponse{
			Success: false,
			Error:   "invalid purchase parameters",
		}, nil
	}

	result, err := s.store.RecordPurchase(ctx, purchase)
	if err != nil {
		if errors.Is(err, store.ErrBuyerNotFound) || errors.Is(err, store.ErrInvalidAmount) {
			zap.L().Warn("Purchase rejected",
				zap.String("purchase_id", purchase.Id),
				zap.String("buyer_account_id", purchase.BuyerAccountId),
				zap.Error(err))
			return &models.PurchaseResponse{
				Success: false,
				Error:   err.Error(),
			}, nil
		}
		return nil, err
	}

	response := &models.PurchaseResponse{
		Success:     true,
		PurchaseId:  result.PurchaseId,
		Commissions: toCommissionEntries(result.Commissions),
		Total:       result.Total,
		Skipped:     result.Skipped,
		Maintenance: models.MaintenanceStatus{
			CumulativeSpend: result.Maintenance.CumulativeSpend,
			Active:          result.Maintenance.Active,
		},
		Duplicate: result.Duplicate,
	}

	if result.Duplicate {
		status, err := s.store.StatusOf(ctx, purchase.BuyerAccountId)
		if err != nil {
			return nil, err
		}
		response.Maintenance = status
	}

	return response, nil
}
