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

package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Position is the side of its parent a node is placed on
type Position string

const (
	PositionLeft  Position = "left"
	PositionRight Position = "right"
)

// ParsePosition accepts "left"/"right" (case-insensitive, "l"/"r" shorthand)
func ParsePosition(s string) (Position, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left", "l":
		return PositionLeft, nil
	case "right", "r":
		return PositionRight, nil
	}
	return "", fmt.Errorf("invalid position %q", s)
}

func (p Position) Valid() bool {
	return p == PositionLeft || p == PositionRight
}

// GenealogyNode is one binary-tree placement. Immutable once created.
type GenealogyNode struct {
	Id              string          `db:"id"`
	AccountId       string          `db:"account_id"`
	ParentNodeId    *string         `db:"parent_node_id"` // nil only at the root
	Position        *Position       `db:"position"`       // nil only at the root
	Level           int             `db:"level"`          // root = 1
	SettlementValue decimal.Decimal `db:"settlement_value"`
	CreatedAt       time.Time       `db:"created_at"`
}

// IsRoot reports whether the node has no parent
func (n GenealogyNode) IsRoot() bool {
	return n.ParentNodeId == nil
}

// Account is a participant's commercial identity in the network.
//
// AncestorPath and BranchPath are materialized at placement time and are
// ordered nearest first: AncestorPath[0] is the placement parent and
// BranchPath[0] is the side of the parent this account hangs under.
// BranchPath[i] is therefore the subtree of AncestorPath[i] that contains
// this account.
type Account struct {
	Id                       string     `db:"id"`
	SponsorAccountId         string     `db:"sponsor_account_id"`
	PlacementParentAccountId string     `db:"placement_parent_account_id"`
	AncestorPath             []string   `db:"ancestor_path"`
	BranchPath               []Position `db:"branch_path"`
	SponsorPath              []string   `db:"sponsor_path"`
	Package                  string     `db:"package"`
	LeftPending              int64      `db:"left_pending"`
	RightPending             int64      `db:"right_pending"`
	CreatedAt                time.Time  `db:"created_at"`
}

// Ancestor is one entry of an ancestor walk
type Ancestor struct {
	AccountId string
	Distance  int      // 1 = immediate parent
	Side      Position // subtree of the ancestor the walk came up through
}

// PlacementRequest carries everything needed to place a new account.
// An empty ParentAccountId places the tree root.
type PlacementRequest struct {
	AccountId        string
	SponsorAccountId string
	ParentAccountId  string
	Position         Position
	Package          string
}

// PlacementResult is returned by a committed placement
type PlacementResult struct {
	Account         Account
	Node            GenealogyNode
	PairingsSettled int
	PairingTotal    decimal.Decimal
	Duplicate       bool
}
