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
	"encoding/json"
	"errors"
	"fmt"

	"genealogy-compensation-go/internal/models"
	"genealogy-compensation-go/internal/plan"
	"genealogy-compensation-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// nodeNamespace seeds node ids; an account has exactly one node.
var nodeNamespace = uuid.MustParse("0c9a7b52-41e3-5f86-8d2a-3e4f5a6b7c8d")

// queryer is satisfied by both *sql.DB and *sql.Tx
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func nodeIdFor(accountId string) string {
	return uuid.NewSHA1(nodeNamespace, []byte(accountId)).String()
}

// Place inserts the account and its node. The new paths are the parent's
// paths with the parent (and the side taken under it) prepended.
func (t *txStore) Place(ctx context.Context, req models.PlacementRequest, p *plan.Plan) (*models.Account, *models.GenealogyNode, error) {
	if _, err := getAccount(ctx, t.tx, req.AccountId); err == nil {
		return nil, nil, fmt.Errorf("%w: %s", store.ErrAccountExists, req.AccountId)
	} else if !errors.Is(err, store.ErrAccountNotFound) {
		return nil, nil, err
	}

	account := &models.Account{
		Id:               req.AccountId,
		SponsorAccountId: req.SponsorAccountId,
		AncestorPath:     []string{},
		BranchPath:       []models.Position{},
		SponsorPath:      []string{},
		Package:          req.Package,
		CreatedAt:        t.now,
	}
	node := &models.GenealogyNode{
		Id:        nodeIdFor(req.AccountId),
		AccountId: req.AccountId,
		Level:     1,
		CreatedAt: t.now,
	}

	if req.ParentAccountId == "" {
		var rootId string
		err := t.tx.QueryRowContext(ctx, queryGetRootNode).Scan(&rootId)
		if err == nil {
			return nil, nil, fmt.Errorf("%w: node %s", store.ErrRootExists, rootId)
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, nil, fmt.Errorf("failed to check for root: %w", err)
		}
	} else {
		parent, err := getAccount(ctx, t.tx, req.ParentAccountId)
		if errors.Is(err, store.ErrAccountNotFound) {
			return nil, nil, fmt.Errorf("%w: %s", store.ErrParentNotFound, req.ParentAccountId)
		} else if err != nil {
			return nil, nil, err
		}
		parentNode, err := getNodeByAccount(ctx, t.tx, req.ParentAccountId)
		if errors.Is(err, store.ErrAccountNotFound) {
			return nil, nil, fmt.Errorf("%w: %s has no placement", store.ErrParentNotFound, req.ParentAccountId)
		} else if err != nil {
			return nil, nil, err
		}

		var occupant string
		err = t.tx.QueryRowContext(ctx, queryGetChildAtPosition, parentNode.Id, string(req.Position)).Scan(&occupant)
		if err == nil {
			return nil, nil, fmt.Errorf("%w: %s of %s", store.ErrSlotOccupied, req.Position, req.ParentAccountId)
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, nil, fmt.Errorf("failed to check slot: %w", err)
		}

		position := req.Position
		node.ParentNodeId = &parentNode.Id
		node.Position = &position
		node.Level = parentNode.Level + 1

		account.PlacementParentAccountId = parent.Id
		account.AncestorPath = append([]string{parent.Id}, parent.AncestorPath...)
		account.BranchPath = append([]models.Position{position}, parent.BranchPath...)

		if account.SponsorAccountId == "" {
			account.SponsorAccountId = parent.Id
		}
	}

	if account.SponsorAccountId != "" {
		sponsor, err := getAccount(ctx, t.tx, account.SponsorAccountId)
		if errors.Is(err, store.ErrAccountNotFound) {
			return nil, nil, fmt.Errorf("%w: %s", store.ErrSponsorNotFound, account.SponsorAccountId)
		} else if err != nil {
			return nil, nil, err
		}
		account.SponsorPath = append([]string{sponsor.Id}, sponsor.SponsorPath...)
	}

	node.SettlementValue = p.SettlementValue(node.Level)

	ancestorPath, branchPath, sponsorPath, err := encodePaths(account)
	if err != nil {
		return nil, nil, err
	}

	_, err = t.tx.ExecContext(ctx, queryInsertAccount,
		account.Id, account.SponsorAccountId, account.PlacementParentAccountId,
		ancestorPath, branchPath, sponsorPath, account.Package, t.now, t.now)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to insert account: %w", err)
	}

	var position any
	if node.Position != nil {
		position = string(*node.Position)
	}
	_, err = t.tx.ExecContext(ctx, queryInsertNode,
		node.Id, node.AccountId, node.ParentNodeId, position, node.Level, node.SettlementValue.String(), node.CreatedAt)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to insert genealogy node: %w", err)
	}

	zap.L().Debug("Genealogy node inserted",
		zap.String("account_id", account.Id),
		zap.String("node_id", node.Id),
		zap.Int("level", node.Level),
		zap.Strings("ancestor_path", account.AncestorPath))

	return account, node, nil
}

// AncestorsOf reads up to maxDepth ancestors from the materialized path,
// nearest first.
func (t *txStore) AncestorsOf(_ context.Context, account models.Account, maxDepth int) ([]models.Ancestor, error) {
	return ancestorsFromPath(account, maxDepth)
}

// SponsorsOf reads up to maxDepth sponsors from the materialized sponsor path
func (t *txStore) SponsorsOf(_ context.Context, account models.Account, maxDepth int) ([]models.Ancestor, error) {
	n := min(maxDepth, len(account.SponsorPath))
	if n <= 0 {
		return nil, nil
	}
	sponsors := make([]models.Ancestor, n)
	for i := 0; i < n; i++ {
		sponsors[i] = models.Ancestor{AccountId: account.SponsorPath[i], Distance: i + 1}
	}
	return sponsors, nil
}

func ancestorsFromPath(account models.Account, maxDepth int) ([]models.Ancestor, error) {
	if len(account.BranchPath) != len(account.AncestorPath) {
		return nil, fmt.Errorf("account %s has %d ancestors but %d branch entries",
			account.Id, len(account.AncestorPath), len(account.BranchPath))
	}
	n := min(maxDepth, len(account.AncestorPath))
	if n <= 0 {
		return nil, nil
	}
	ancestors := make([]models.Ancestor, n)
	for i := 0; i < n; i++ {
		ancestors[i] = models.Ancestor{
			AccountId: account.AncestorPath[i],
			Distance:  i + 1,
			Side:      account.BranchPath[i],
		}
	}
	return ancestors, nil
}

func (t *txStore) GetAccount(ctx context.Context, accountId string) (*models.Account, error) {
	return getAccount(ctx, t.tx, accountId)
}

func (t *txStore) GetNodeByAccount(ctx context.Context, accountId string) (*models.GenealogyNode, error) {
	return getNodeByAccount(ctx, t.tx, accountId)
}

// Read side

func (s *Service) GetAccount(ctx context.Context, accountId string) (*models.Account, error) {
	zap.L().Debug("Querying account", zap.String("account_id", accountId))
	return getAccount(ctx, s.db, accountId)
}

// ListAccounts returns every account in placement order
func (s *Service) ListAccounts(ctx context.Context) ([]models.Account, error) {
	rows, err := s.db.QueryContext(ctx, queryListAccounts)
	if err != nil {
		return nil, fmt.Errorf("unable to query accounts: %w", err)
	}
	defer closeRows(rows)

	var accounts []models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account rows: %w", err)
	}
	return accounts, nil
}

func (s *Service) GetNodeByAccount(ctx context.Context, accountId string) (*models.GenealogyNode, error) {
	return getNodeByAccount(ctx, s.db, accountId)
}

func (s *Service) AncestorsOf(ctx context.Context, accountId string, maxDepth int) ([]models.Ancestor, error) {
	account, err := getAccount(ctx, s.db, accountId)
	if err != nil {
		return nil, err
	}
	return ancestorsFromPath(*account, maxDepth)
}

// GetChildren returns the left and right nodes placed under an account
func (s *Service) GetChildren(ctx context.Context, accountId string) ([]models.GenealogyNode, error) {
	node, err := getNodeByAccount(ctx, s.db, accountId)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, queryGetChildren, node.Id)
	if err != nil {
		return nil, fmt.Errorf("unable to query children: %w", err)
	}
	defer closeRows(rows)

	var children []models.GenealogyNode
	for rows.Next() {
		child, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		children = append(children, *child)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating child rows: %w", err)
	}
	return children, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func getAccount(ctx context.Context, q queryer, accountId string) (*models.Account, error) {
	account, err := scanAccount(q.QueryRowContext(ctx, queryGetAccount, accountId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrAccountNotFound, accountId)
	}
	return account, err
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var account models.Account
	var ancestorPath, branchPath, sponsorPath string
	err := row.Scan(
		&account.Id, &account.SponsorAccountId, &account.PlacementParentAccountId,
		&ancestorPath, &branchPath, &sponsorPath, &account.Package,
		&account.LeftPending, &account.RightPending, &account.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("unable to query account: %w", err)
	}

	if err := json.Unmarshal([]byte(ancestorPath), &account.AncestorPath); err != nil {
		return nil, fmt.Errorf("failed to decode ancestor path of %s: %w", account.Id, err)
	}
	if err := json.Unmarshal([]byte(branchPath), &account.BranchPath); err != nil {
		return nil, fmt.Errorf("failed to decode branch path of %s: %w", account.Id, err)
	}
	if err := json.Unmarshal([]byte(sponsorPath), &account.SponsorPath); err != nil {
		return nil, fmt.Errorf("failed to decode sponsor path of %s: %w", account.Id, err)
	}
	return &account, nil
}

func getNodeByAccount(ctx context.Context, q queryer, accountId string) (*models.GenealogyNode, error) {
	node, err := scanNode(q.QueryRowContext(ctx, queryGetNodeByAccount, accountId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no placement for %s", store.ErrAccountNotFound, accountId)
	}
	return node, err
}

func scanNode(row rowScanner) (*models.GenealogyNode, error) {
	var node models.GenealogyNode
	var parentNodeId, position sql.NullString
	var value string
	if err := row.Scan(&node.Id, &node.AccountId, &parentNodeId, &position, &node.Level, &value, &node.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan genealogy node: %w", err)
	}

	if parentNodeId.Valid {
		node.ParentNodeId = &parentNodeId.String
	}
	if position.Valid {
		p := models.Position(position.String)
		node.Position = &p
	}

	var err error
	node.SettlementValue, err = decimal.NewFromString(value)
	if err != nil {
		return nil, fmt.Errorf("failed to parse settlement value '%s': %w", value, err)
	}
	return &node, nil
}

func encodePaths(account *models.Account) (string, string, string, error) {
	ancestorPath, err := json.Marshal(account.AncestorPath)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to encode ancestor path: %w", err)
	}
	branchPath, err := json.Marshal(account.BranchPath)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to encode branch path: %w", err)
	}
	sponsorPath, err := json.Marshal(account.SponsorPath)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to encode sponsor path: %w", err)
	}
	return string(ancestorPath), string(branchPath), string(sponsorPath), nil
}
