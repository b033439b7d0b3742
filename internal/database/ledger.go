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

package database

import (
	"context"
	"database/sql"
	"fmt"

	"genealogy-compensation-go/internal/models"
	"genealogy-compensation-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LedgerService owns the append-only income ledger tables
type LedgerService struct {
	db *sql.DB
}

func NewLedgerService(db *sql.DB) *LedgerService {
	return &LedgerService{
		db: db,
	}
}

func (s *LedgerService) InitSchema() error {
	schema := `
	-- Pairing History (one row per settled pairing unit)
	CREATE TABLE IF NOT EXISTS pairing_history (
		id TEXT PRIMARY KEY,
		beneficiary_account_id TEXT NOT NULL REFERENCES accounts(id),
		level INTEGER NOT NULL CHECK (level BETWEEN 1 AND 10),
		settled_value TEXT NOT NULL,
		source_node_id TEXT NOT NULL REFERENCES genealogy_nodes(id),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (source_node_id, beneficiary_account_id)
	);

	-- Commission Records (at most one per purchase and level)
	CREATE TABLE IF NOT EXISTS commission_records (
		id TEXT PRIMARY KEY,
		beneficiary_account_id TEXT NOT NULL REFERENCES accounts(id),
		purchase_id TEXT NOT NULL,
		level INTEGER NOT NULL CHECK (level BETWEEN 1 AND 15),
		amount TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (purchase_id, level)
	);

	-- Income History (exactly one row per pairing or commission row)
	CREATE TABLE IF NOT EXISTS income_history (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		source TEXT NOT NULL CHECK (source IN ('pairing', 'unilevel')),
		reference_id TEXT NOT NULL,
		event_id TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (source, reference_id)
	);

	CREATE INDEX IF NOT EXISTS idx_pairing_history_beneficiary ON pairing_history(beneficiary_account_id);
	CREATE INDEX IF NOT EXISTS idx_commission_records_beneficiary ON commission_records(beneficiary_account_id);
	CREATE INDEX IF NOT EXISTS idx_commission_records_purchase ON commission_records(purchase_id);
	CREATE INDEX IF NOT EXISTS idx_income_history_account ON income_history(account_id);
	CREATE INDEX IF NOT EXISTS idx_income_history_event ON income_history(event_id);
	CREATE INDEX IF NOT EXISTS idx_income_history_created_at ON income_history(created_at);

	-- Ledger rows are never updated or deleted
	CREATE TRIGGER IF NOT EXISTS trg_pairing_history_no_update BEFORE UPDATE ON pairing_history
	BEGIN SELECT RAISE(ABORT, 'pairing_history is append-only'); END;
	CREATE TRIGGER IF NOT EXISTS trg_pairing_history_no_delete BEFORE DELETE ON pairing_history
	BEGIN SELECT RAISE(ABORT, 'pairing_history is append-only'); END;
	CREATE TRIGGER IF NOT EXISTS trg_commission_records_no_update BEFORE UPDATE ON commission_records
	BEGIN SELECT RAISE(ABORT, 'commission_records is append-only'); END;
	CREATE TRIGGER IF NOT EXISTS trg_commission_records_no_delete BEFORE DELETE ON commission_records
	BEGIN SELECT RAISE(ABORT, 'commission_records is append-only'); END;
	CREATE TRIGGER IF NOT EXISTS trg_income_history_no_update BEFORE UPDATE ON income_history
	BEGIN SELECT RAISE(ABORT, 'income_history is append-only'); END;
	CREATE TRIGGER IF NOT EXISTS trg_income_history_no_delete BEFORE DELETE ON income_history
	BEGIN SELECT RAISE(ABORT, 'income_history is append-only'); END;
	`

	_, err := s.db.Exec(schema)
	return err
}

// Append side (inside an engine transaction)

func (t *txStore) AppendPairing(ctx context.Context, record models.PairingHistoryRecord) error {
	_, err := t.tx.ExecContext(ctx, queryInsertPairing,
		record.Id, record.BeneficiaryAccountId, record.Level, record.SettledValue.String(),
		record.SourceNodeId, record.CreatedAt)
	return err
}

func (t *txStore) AppendCommission(ctx context.Context, record models.CommissionRecord) error {
	_, err := t.tx.ExecContext(ctx, queryInsertCommission,
		record.Id, record.BeneficiaryAccountId, record.PurchaseId, record.Level,
		record.Amount.String(), record.CreatedAt)
	return err
}

func (t *txStore) AppendIncome(ctx context.Context, record models.IncomeHistoryRecord) error {
	_, err := t.tx.ExecContext(ctx, queryInsertIncome,
		record.Id, record.AccountId, record.Amount.String(), string(record.Source),
		record.ReferenceId, record.EventId, record.CreatedAt)
	return err
}

// Read side

// GetIncomeHistory returns paginated income rows for an account, newest first
func (s *LedgerService) GetIncomeHistory(ctx context.Context, accountId string, limit, offset int) ([]models.IncomeHistoryRecord, error) {
	zap.L().Debug("Getting income history",
		zap.String("account_id", accountId),
		zap.Int("limit", limit),
		zap.Int("offset", offset))

	rows, err := s.db.QueryContext(ctx, queryGetIncomeHistory, accountId, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get income history: %w", err)
	}
	defer closeRows(rows)

	var records []models.IncomeHistoryRecord
	for rows.Next() {
		var record models.IncomeHistoryRecord
		var amountStr, source string
		err := rows.Scan(&record.Id, &record.AccountId, &amountStr, &source,
			&record.ReferenceId, &record.EventId, &record.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan income row: %w", err)
		}

		record.Amount, err = decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
		}
		record.Source = models.IncomeSource(source)

		records = append(records, record)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during income row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating income rows: %w", err)
	}

	return records, nil
}

// GetPairingHistory returns paginated pairing rows where the account is the beneficiary
func (s *LedgerService) GetPairingHistory(ctx context.Context, accountId string, limit, offset int) ([]models.PairingHistoryRecord, error) {
	rows, err := s.db.QueryContext(ctx, queryGetPairingHistory, accountId, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get pairing history: %w", err)
	}
	defer closeRows(rows)

	var records []models.PairingHistoryRecord
	for rows.Next() {
		var record models.PairingHistoryRecord
		var valueStr string
		err := rows.Scan(&record.Id, &record.BeneficiaryAccountId, &record.Level, &valueStr,
			&record.SourceNodeId, &record.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pairing row: %w", err)
		}

		record.SettledValue, err = decimal.NewFromString(valueStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse settled value '%s': %w", valueStr, err)
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pairing rows: %w", err)
	}

	return records, nil
}

func (s *LedgerService) GetCommissionsByAccount(ctx context.Context, accountId string, limit, offset int) ([]models.CommissionRecord, error) {
	return s.queryCommissions(ctx, queryGetCommissionsByAccount, accountId, limit, offset)
}

func (s *LedgerService) GetCommissionsByPurchase(ctx context.Context, purchaseId string) ([]models.CommissionRecord, error) {
	return s.queryCommissions(ctx, queryGetCommissionsByPurchase, purchaseId)
}

func (s *LedgerService) queryCommissions(ctx context.Context, query string, args ...any) ([]models.CommissionRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get commissions: %w", err)
	}
	defer closeRows(rows)

	var records []models.CommissionRecord
	for rows.Next() {
		var record models.CommissionRecord
		var amountStr string
		err := rows.Scan(&record.Id, &record.BeneficiaryAccountId, &record.PurchaseId, &record.Level,
			&amountStr, &record.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan commission row: %w", err)
		}

		record.Amount, err = decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating commission rows: %w", err)
	}

	return records, nil
}

// GetEarningsSummary totals an account's income rows per source (exact decimal sums)
func (s *LedgerService) GetEarningsSummary(ctx context.Context, accountId string) (*models.EarningsSummary, error) {
	rows, err := s.db.QueryContext(ctx, queryGetIncomeAmountsByAccount, accountId)
	if err != nil {
		return nil, fmt.Errorf("failed to get income amounts: %w", err)
	}
	defer closeRows(rows)

	summary := &models.EarningsSummary{
		AccountId:     accountId,
		PairingTotal:  decimal.Zero,
		UnilevelTotal: decimal.Zero,
		Total:         decimal.Zero,
	}
	for rows.Next() {
		var source, amountStr string
		if err := rows.Scan(&source, &amountStr); err != nil {
			return nil, fmt.Errorf("failed to scan income amount: %w", err)
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
		}

		switch models.IncomeSource(source) {
		case models.IncomeSourcePairing:
			summary.PairingTotal = summary.PairingTotal.Add(amount)
			summary.PairingCount++
		case models.IncomeSourceUnilevel:
			summary.UnilevelTotal = summary.UnilevelTotal.Add(amount)
			summary.UnilevelCount++
		default:
			return nil, fmt.Errorf("unknown income source %q", source)
		}
		summary.Total = summary.Total.Add(amount)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating income amounts: %w", err)
	}

	return summary, nil
}

// ReconcileLedger verifies that every pairing and commission row has exactly
// one matching income row and that no income row is orphaned
func (s *LedgerService) ReconcileLedger(ctx context.Context) error {
	zap.L().Info("Reconciling income ledger")

	checks := []struct {
		name  string
		query string
	}{
		{"pairing rows without matching income", queryUnmatchedPairingIncome},
		{"commission rows without matching income", queryUnmatchedCommissionIncome},
		{"income rows without source record", queryOrphanIncome},
	}

	for _, check := range checks {
		var count int
		if err := s.db.QueryRowContext(ctx, check.query).Scan(&count); err != nil {
			return fmt.Errorf("failed to count %s: %w", check.name, err)
		}
		if count > 0 {
			zap.L().Error("Ledger reconciliation failed",
				zap.String("check", check.name),
				zap.Int("count", count))
			return fmt.Errorf("%w: %d %s", store.ErrLedgerMismatch, count, check.name)
		}
	}

	zap.L().Info("Ledger reconciliation successful")
	return nil
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		zap.L().Warn("Failed to close rows", zap.Error(err))
	}
}

func sumCommissions(records []models.CommissionRecord) decimal.Decimal {
	total := decimal.Zero
	for _, record := range records {
		total = total.Add(record.Amount)
	}
	return total
}

// Service convenience methods

func (s *Service) GetIncomeHistory(ctx context.Context, accountId string, limit, offset int) ([]models.IncomeHistoryRecord, error) {
	return s.ledger.GetIncomeHistory(ctx, accountId, limit, offset)
}

func (s *Service) GetPairingHistory(ctx context.Context, accountId string, limit, offset int) ([]models.PairingHistoryRecord, error) {
	return s.ledger.GetPairingHistory(ctx, accountId, limit, offset)
}

func (s *Service) GetCommissionsByAccount(ctx context.Context, accountId string, limit, offset int) ([]models.CommissionRecord, error) {
	return s.ledger.GetCommissionsByAccount(ctx, accountId, limit, offset)
}

func (s *Service) GetCommissionsByPurchase(ctx context.Context, purchaseId string) ([]models.CommissionRecord, error) {
	return s.ledger.GetCommissionsByPurchase(ctx, purchaseId)
}

func (s *Service) GetEarningsSummary(ctx context.Context, accountId string) (*models.EarningsSummary, error) {
	return s.ledger.GetEarningsSummary(ctx, accountId)
}

func (s *Service) ReconcileLedger(ctx context.Context) error {
	return s.ledger.ReconcileLedger(ctx)
}
