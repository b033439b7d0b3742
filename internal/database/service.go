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
	"errors"
	"fmt"
	"time"

	"genealogy-compensation-go/internal/engine"
	"genealogy-compensation-go/internal/metrics"
	"genealogy-compensation-go/internal/models"
	"genealogy-compensation-go/internal/plan"
	"genealogy-compensation-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.CompensationStore.
var _ store.CompensationStore = (*Service)(nil)

type Service struct {
	db       *sql.DB
	plan     *plan.Plan
	ledger   *LedgerService
	pairing  *engine.Pairing
	unilevel *engine.Unilevel
	now      func() time.Time
}

func NewService(ctx context.Context, cfg models.DatabaseConfig, p *plan.Plan) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}
	if p == nil {
		return nil, fmt.Errorf("compensation plan is required")
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid compensation plan: %w", err)
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	db, err := sql.Open("sqlite3", dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	// Set connection timeouts and limits
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test connection with timeout
	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := newServiceWithDB(db, p)
	if err := service.initSchema(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	// Initialize ledger schema
	if err := service.ledger.InitSchema(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to initialize ledger schema: %w", err)
	}

	zap.L().Info("Database service initialized successfully",
		zap.Int("pairing_depth", p.PairingDepth),
		zap.Int("unilevel_depth", p.UnilevelDepth),
		zap.String("unilevel_chain", string(p.UnilevelChain)))
	return service, nil
}

// dsn builds the go-sqlite3 connection string. Write transactions take the
// database write lock at BEGIN (_txlock=immediate) so concurrent placements
// that share ancestors queue instead of failing on lock upgrade.
func dsn(cfg models.DatabaseConfig) string {
	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	return fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000&_foreign_keys=1&_txlock=immediate&_busy_timeout=%d",
		cfg.Path, busy.Milliseconds())
}

func newServiceWithDB(db *sql.DB, p *plan.Plan) *Service {
	return &Service{
		db:       db,
		plan:     p,
		ledger:   NewLedgerService(db),
		pairing:  engine.NewPairing(p),
		unilevel: engine.NewUnilevel(p),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Plan returns the compensation plan the engines run with
func (s *Service) Plan() *plan.Plan {
	return s.plan
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

// Ping reports whether the database is reachable
func (s *Service) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Service) initSchema() error {
	schema := `
	-- Accounts: commercial identity, materialized paths and pairing counters
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		sponsor_account_id TEXT NOT NULL DEFAULT '',
		placement_parent_account_id TEXT NOT NULL DEFAULT '',
		ancestor_path TEXT NOT NULL DEFAULT '[]',
		branch_path TEXT NOT NULL DEFAULT '[]',
		sponsor_path TEXT NOT NULL DEFAULT '[]',
		package TEXT NOT NULL DEFAULT '',
		left_pending INTEGER NOT NULL DEFAULT 0 CHECK (left_pending >= 0),
		right_pending INTEGER NOT NULL DEFAULT 0 CHECK (right_pending >= 0),
		version INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_accounts_sponsor ON accounts(sponsor_account_id);
	CREATE INDEX IF NOT EXISTS idx_accounts_parent ON accounts(placement_parent_account_id);

	-- Genealogy nodes: one binary-tree placement per account
	CREATE TABLE IF NOT EXISTS genealogy_nodes (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL UNIQUE REFERENCES accounts(id),
		parent_node_id TEXT REFERENCES genealogy_nodes(id),
		position TEXT CHECK (position IN ('left', 'right')),
		level INTEGER NOT NULL CHECK (level >= 1),
		settlement_value TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		CHECK ((parent_node_id IS NULL) = (position IS NULL))
	);

	-- At most one child per side, and a single root
	CREATE UNIQUE INDEX IF NOT EXISTS idx_nodes_parent_position ON genealogy_nodes(parent_node_id, position);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_nodes_single_root ON genealogy_nodes(level) WHERE parent_node_id IS NULL;

	CREATE TRIGGER IF NOT EXISTS trg_genealogy_nodes_immutable
	BEFORE UPDATE ON genealogy_nodes
	BEGIN
		SELECT RAISE(ABORT, 'genealogy_nodes is immutable');
	END;

	CREATE TRIGGER IF NOT EXISTS trg_genealogy_nodes_no_delete
	BEFORE DELETE ON genealogy_nodes
	BEGIN
		SELECT RAISE(ABORT, 'genealogy_nodes is immutable');
	END;

	-- Events already settled, keyed by node id or purchase id
	CREATE TABLE IF NOT EXISTS processed_events (
		kind TEXT NOT NULL,
		event_id TEXT NOT NULL,
		processed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (kind, event_id)
	);

	-- Committed purchases handed over by the point-of-sale flow
	CREATE TABLE IF NOT EXISTS purchases (
		id TEXT PRIMARY KEY,
		buyer_account_id TEXT NOT NULL,
		total_amount TEXT NOT NULL,
		paid_at TIMESTAMP NOT NULL,
		recorded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_purchases_buyer ON purchases(buyer_account_id);

	-- Member maintenance: cumulative spend and active flag
	CREATE TABLE IF NOT EXISTS maintenance_records (
		account_id TEXT PRIMARY KEY,
		cumulative_spend TEXT NOT NULL DEFAULT '0',
		active BOOLEAN NOT NULL DEFAULT 0,
		purchase_count INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// withTx runs fn inside one database transaction and commits when fn
// returns nil. Any error rolls back every write fn made.
func (s *Service) withTx(ctx context.Context, fn func(t *txStore) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(newTxStore(tx, s.now())); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Place creates the account and its genealogy node, then settles pairing
// bonuses for the new node, all in one transaction.
func (s *Service) Place(ctx context.Context, req models.PlacementRequest) (*models.PlacementResult, error) {
	if req.AccountId == "" {
		return nil, fmt.Errorf("account id is required")
	}
	if req.ParentAccountId != "" && !req.Position.Valid() {
		return nil, fmt.Errorf("%w: %q", store.ErrInvalidPosition, req.Position)
	}

	zap.L().Info("Placing account",
		zap.String("account_id", req.AccountId),
		zap.String("sponsor_account_id", req.SponsorAccountId),
		zap.String("parent_account_id", req.ParentAccountId),
		zap.String("position", string(req.Position)))

	var result *models.PlacementResult
	err := s.withTx(ctx, func(t *txStore) error {
		account, node, err := t.Place(ctx, req, s.plan)
		if err != nil {
			return err
		}

		pairing, err := s.pairing.HandleNewPlacement(ctx, t, *account, *node)
		if err != nil {
			return fmt.Errorf("pairing settlement failed: %w", err)
		}

		result = &models.PlacementResult{
			Account:         *account,
			Node:            *node,
			PairingsSettled: len(pairing.Records),
			PairingTotal:    pairing.Total,
		}
		return nil
	})
	if err != nil {
		zap.L().Error("Placement failed", zap.String("account_id", req.AccountId), zap.Error(err))
		return nil, err
	}

	metrics.RecordPlacement(result.PairingsSettled, result.PairingTotal)
	zap.L().Info("Account placed successfully",
		zap.String("account_id", result.Account.Id),
		zap.String("node_id", result.Node.Id),
		zap.Int("level", result.Node.Level),
		zap.String("settlement_value", result.Node.SettlementValue.String()),
		zap.Int("pairings_settled", result.PairingsSettled),
		zap.String("pairing_total", result.PairingTotal.String()))

	return result, nil
}

// ReprocessPlacement re-runs pairing settlement for an existing placement.
// A placement that was already settled is a no-op.
func (s *Service) ReprocessPlacement(ctx context.Context, accountId string) (*models.PlacementResult, error) {
	var result *models.PlacementResult
	err := s.withTx(ctx, func(t *txStore) error {
		account, err := t.GetAccount(ctx, accountId)
		if err != nil {
			return err
		}
		node, err := t.GetNodeByAccount(ctx, accountId)
		if err != nil {
			return err
		}

		result = &models.PlacementResult{Account: *account, Node: *node}
		pairing, err := s.pairing.HandleNewPlacement(ctx, t, *account, *node)
		if err != nil {
			return err
		}
		result.PairingsSettled = len(pairing.Records)
		result.PairingTotal = pairing.Total
		return nil
	})
	if errors.Is(err, store.ErrDuplicateProcessing) {
		zap.L().Warn("Placement already settled, skipping", zap.String("account_id", accountId))
		metrics.RecordDuplicate(store.EventPlacement)
		result.Duplicate = true
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reprocessing placement: %w", err)
	}

	metrics.RecordPlacement(result.PairingsSettled, result.PairingTotal)
	return result, nil
}

// RecordPurchase stores a committed purchase and distributes its commissions
// in one transaction.
func (s *Service) RecordPurchase(ctx context.Context, purchase models.Purchase) (*models.DistributionResult, error) {
	return s.distribute(ctx, purchase, true)
}

// DistributeForPurchase distributes commissions for a purchase recorded by
// the surrounding application.
func (s *Service) DistributeForPurchase(ctx context.Context, purchase models.Purchase) (*models.DistributionResult, error) {
	return s.distribute(ctx, purchase, false)
}

func (s *Service) distribute(ctx context.Context, purchase models.Purchase, insert bool) (*models.DistributionResult, error) {
	if purchase.PaidAt.IsZero() {
		purchase.PaidAt = s.now()
	}
	purchase.PaidAt = purchase.PaidAt.UTC()

	zap.L().Info("Distributing purchase commissions",
		zap.String("purchase_id", purchase.Id),
		zap.String("buyer_account_id", purchase.BuyerAccountId),
		zap.String("total_amount", purchase.TotalAmount.String()))

	var result *models.DistributionResult
	err := s.withTx(ctx, func(t *txStore) error {
		if insert {
			if err := t.InsertPurchase(ctx, purchase); err != nil {
				return err
			}
		}

		var err error
		result, err = s.unilevel.DistributeForPurchase(ctx, t, purchase)
		return err
	})
	if errors.Is(err, store.ErrDuplicateProcessing) {
		zap.L().Warn("Purchase already settled, skipping", zap.String("purchase_id", purchase.Id))
		metrics.RecordDuplicate(store.EventPurchase)

		existing, err := s.GetCommissionsByPurchase(ctx, purchase.Id)
		if err != nil {
			return nil, err
		}
		return &models.DistributionResult{
			PurchaseId:  purchase.Id,
			Commissions: existing,
			Total:       sumCommissions(existing),
			Duplicate:   true,
		}, nil
	}
	if err != nil {
		zap.L().Error("Commission distribution failed", zap.String("purchase_id", purchase.Id), zap.Error(err))
		return nil, err
	}

	metrics.RecordDistribution(result.Commissions)
	zap.L().Info("Purchase commissions distributed",
		zap.String("purchase_id", purchase.Id),
		zap.Int("commissions", len(result.Commissions)),
		zap.Int("skipped", result.Skipped),
		zap.String("total", result.Total.String()),
		zap.String("buyer_cumulative_spend", result.Maintenance.CumulativeSpend.String()),
		zap.Bool("buyer_active", result.Maintenance.Active))

	return result, nil
}
