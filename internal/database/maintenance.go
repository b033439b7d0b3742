package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"genealogy-compensation-go/internal/models"
	"genealogy-compensation-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func (t *txStore) StatusOf(ctx context.Context, accountId string) (models.MaintenanceStatus, error) {
	record, err := getMaintenance(ctx, t.tx, accountId)
	if err != nil {
		return models.MaintenanceStatus{}, err
	}
	return models.MaintenanceStatus{CumulativeSpend: record.CumulativeSpend, Active: record.Active}, nil
}

func (t *txStore) RecordSpend(ctx context.Context, accountId string, amount decimal.Decimal, activate func(decimal.Decimal) bool) (models.MaintenanceRecord, error) {
	if amount.IsNegative() {
		return models.MaintenanceRecord{}, fmt.Errorf("%w: spend %s", store.ErrInvalidAmount, amount)
	}

	record, err := getMaintenance(ctx, t.tx, accountId)
	if err != nil {
		return models.MaintenanceRecord{}, err
	}

	record.CumulativeSpend = record.CumulativeSpend.Add(amount)
	record.Active = record.Active || activate(record.CumulativeSpend)
	record.UpdatedAt = t.now

	_, err = t.tx.ExecContext(ctx, queryUpsertMaintenance,
		record.AccountId, record.CumulativeSpend.String(), record.Active, record.UpdatedAt)
	if err != nil {
		return models.MaintenanceRecord{}, fmt.Errorf("failed to update maintenance record: %w", err)
	}

	zap.L().Debug("Maintenance updated",
		zap.String("account_id", accountId),
		zap.String("cumulative_spend", record.CumulativeSpend.String()),
		zap.Bool("active", record.Active))

	return record, nil
}

// StatusOf reports an account's maintenance status. An account that never
// purchased has zero spend and is inactive.
func (s *Service) StatusOf(ctx context.Context, accountId string) (models.MaintenanceStatus, error) {
	record, err := getMaintenance(ctx, s.db, accountId)
	if err != nil {
		return models.MaintenanceStatus{}, err
	}
	return models.MaintenanceStatus{CumulativeSpend: record.CumulativeSpend, Active: record.Active}, nil
}

func getMaintenance(ctx context.Context, q queryer, accountId string) (models.MaintenanceRecord, error) {
	record := models.MaintenanceRecord{AccountId: accountId, CumulativeSpend: decimal.Zero}

	var spendStr string
	err := q.QueryRowContext(ctx, queryGetMaintenance, accountId).Scan(
		&record.AccountId, &spendStr, &record.Active, &record.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return record, nil
	}
	if err != nil {
		return models.MaintenanceRecord{}, fmt.Errorf("failed to query maintenance record: %w", err)
	}

	record.CumulativeSpend, err = decimal.NewFromString(spendStr)
	if err != nil {
		return models.MaintenanceRecord{}, fmt.Errorf("failed to parse cumulative spend '%s': %w", spendStr, err)
	}
	return record, nil
}
