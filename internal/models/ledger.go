package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// IncomeSource tags which engine produced an income row
type IncomeSource string

const (
	IncomeSourcePairing  IncomeSource = "pairing"
	IncomeSourceUnilevel IncomeSource = "unilevel"
)

// PairingHistoryRecord is one settled pairing bonus (append-only)
type PairingHistoryRecord struct {
	Id                   string          `db:"id"`
	BeneficiaryAccountId string          `db:"beneficiary_account_id"`
	Level                int             `db:"level"`
	SettledValue         decimal.Decimal `db:"settled_value"`
	SourceNodeId         string          `db:"source_node_id"`
	CreatedAt            time.Time       `db:"created_at"`
}

// CommissionRecord is one settled unilevel commission (append-only)
type CommissionRecord struct {
	Id                   string          `db:"id"`
	BeneficiaryAccountId string          `db:"beneficiary_account_id"`
	PurchaseId           string          `db:"purchase_id"`
	Level                int             `db:"level"`
	Amount               decimal.Decimal `db:"amount"`
	CreatedAt            time.Time       `db:"created_at"`
}

// IncomeHistoryRecord is the unified earnings row. ReferenceId points at the
// PairingHistoryRecord or CommissionRecord it mirrors; EventId is the node id
// or purchase id that triggered it.
type IncomeHistoryRecord struct {
	Id          string          `db:"id"`
	AccountId   string          `db:"account_id"`
	Amount      decimal.Decimal `db:"amount"`
	Source      IncomeSource    `db:"source"`
	ReferenceId string          `db:"reference_id"`
	EventId     string          `db:"event_id"`
	CreatedAt   time.Time       `db:"created_at"`
}

// MaintenanceRecord is the per-account eligibility state
type MaintenanceRecord struct {
	AccountId       string          `db:"account_id"`
	CumulativeSpend decimal.Decimal `db:"cumulative_spend"`
	Active          bool            `db:"active"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

// MaintenanceStatus is the read view of a MaintenanceRecord
type MaintenanceStatus struct {
	CumulativeSpend decimal.Decimal `json:"cumulative_spend"`
	Active          bool            `json:"active"`
}

// Purchase is a committed purchase supplied by the point-of-sale flow
type Purchase struct {
	Id             string          `db:"id"`
	BuyerAccountId string          `db:"buyer_account_id"`
	TotalAmount    decimal.Decimal `db:"total_amount"`
	PaidAt         time.Time       `db:"paid_at"`
}

// DistributionResult is returned by a committed commission distribution
type DistributionResult struct {
	PurchaseId  string
	Commissions []CommissionRecord
	Total       decimal.Decimal
	Skipped     int // beneficiaries skipped by the active gate
	Maintenance MaintenanceRecord
	Duplicate   bool
}

// EarningsSummary aggregates an account's income ledger
type EarningsSummary struct {
	AccountId     string
	PairingTotal  decimal.Decimal
	PairingCount  int
	UnilevelTotal decimal.Decimal
	UnilevelCount int
	Total         decimal.Decimal
}
