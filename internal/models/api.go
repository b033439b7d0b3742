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
	"time"

	"github.com/shopspring/decimal"
)

// IncomeEntry represents an income row in an account's earnings history
type IncomeEntry struct {
	Id        string          `json:"id"`
	Source    string          `json:"source"` // "pairing", "unilevel"
	Amount    decimal.Decimal `json:"amount"`
	EventId   string          `json:"event_id"`
	CreatedAt time.Time       `json:"created_at"`
}

// PairingEntry represents a settled pairing bonus
type PairingEntry struct {
	Id           string          `json:"id"`
	Level        int             `json:"level"`
	SettledValue decimal.Decimal `json:"settled_value"`
	SourceNodeId string          `json:"source_node_id"`
	CreatedAt    time.Time       `json:"created_at"`
}

// CommissionEntry represents a settled unilevel commission
type CommissionEntry struct {
	Id            string          `json:"id"`
	BeneficiaryId string          `json:"beneficiary_account_id"`
	PurchaseId    string          `json:"purchase_id"`
	Level         int             `json:"level"`
	Amount        decimal.Decimal `json:"amount"`
	CreatedAt     time.Time       `json:"created_at"`
}

// AccountView is the public read shape of an account and its placement node
type AccountView struct {
	Id              string          `json:"id"`
	SponsorId       string          `json:"sponsor_account_id,omitempty"`
	ParentId        string          `json:"placement_parent_account_id,omitempty"`
	Position        string          `json:"position,omitempty"`
	Level           int             `json:"level"`
	SettlementValue decimal.Decimal `json:"settlement_value"`
	Package         string          `json:"package,omitempty"`
	LeftPending     int64           `json:"left_pending"`
	RightPending    int64           `json:"right_pending"`
	AncestorPath    []string        `json:"ancestor_path"`
}

// EarningsView is the JSON form of an EarningsSummary
type EarningsView struct {
	AccountId     string          `json:"account_id"`
	PairingTotal  decimal.Decimal `json:"pairing_total"`
	PairingCount  int             `json:"pairing_count"`
	UnilevelTotal decimal.Decimal `json:"unilevel_total"`
	UnilevelCount int             `json:"unilevel_count"`
	Total         decimal.Decimal `json:"total"`
}

// NodeView is the public read shape of a genealogy node
type NodeView struct {
	Id              string          `json:"id"`
	AccountId       string          `json:"account_id"`
	Position        string          `json:"position,omitempty"`
	Level           int             `json:"level"`
	SettlementValue decimal.Decimal `json:"settlement_value"`
	CreatedAt       time.Time       `json:"created_at"`
}

// PlacementResponse is returned to callers of the placement flow
type PlacementResponse struct {
	Success         bool            `json:"success"`
	Error           string          `json:"error,omitempty"`
	AccountId       string          `json:"account_id,omitempty"`
	NodeId          string          `json:"node_id,omitempty"`
	Level           int             `json:"level,omitempty"`
	PairingsSettled int             `json:"pairings_settled"`
	PairingTotal    decimal.Decimal `json:"pairing_total"`
	Duplicate       bool            `json:"duplicate,omitempty"`
}

// PurchaseResponse is returned to callers of the purchase flow
type PurchaseResponse struct {
	Success     bool              `json:"success"`
	Error       string            `json:"error,omitempty"`
	PurchaseId  string            `json:"purchase_id,omitempty"`
	Commissions []CommissionEntry `json:"commissions,omitempty"`
	Total       decimal.Decimal   `json:"total"`
	Skipped     int               `json:"skipped,omitempty"`
	Maintenance MaintenanceStatus `json:"buyer_maintenance"`
	Duplicate   bool              `json:"duplicate,omitempty"`
}
