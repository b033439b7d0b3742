package store

import (
	"context"
	"errors"

	"genealogy-compensation-go/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across the engines and storage backends.
var (
	ErrSlotOccupied        = errors.New("placement slot occupied")
	ErrParentNotFound      = errors.New("placement parent not found")
	ErrBuyerNotFound       = errors.New("buyer account not found")
	ErrDuplicateProcessing = errors.New("event already processed")
	ErrRootExists          = errors.New("genealogy root already exists")
	ErrAccountExists       = errors.New("account already placed")
	ErrAccountNotFound     = errors.New("account not found")
	ErrSponsorNotFound     = errors.New("sponsor account not found")
	ErrInvalidPosition     = errors.New("invalid placement position")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrLedgerMismatch      = errors.New("income ledger mismatch")

	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// EventKind namespaces the ids claimed for idempotent processing
type EventKind string

const (
	EventPlacement EventKind = "placement"
	EventPurchase  EventKind = "purchase"
)

// Tx is the set of operations an engine performs inside the atomic unit that
// created its triggering event. Implementations must not commit.
type Tx interface {
	// ClaimEvent marks an event as processed. It returns ErrDuplicateProcessing
	// when the event was claimed before.
	ClaimEvent(ctx context.Context, kind EventKind, eventId string) error

	GetAccount(ctx context.Context, accountId string) (*models.Account, error)
	AncestorsOf(ctx context.Context, account models.Account, maxDepth int) ([]models.Ancestor, error)
	SponsorsOf(ctx context.Context, account models.Account, maxDepth int) ([]models.Ancestor, error)

	// LockCounters takes the write lock on each account's pairing counters.
	// Callers pass accounts nearest ancestor first and every caller uses that
	// order.
	LockCounters(ctx context.Context, accountIds []string) error
	// AddPending adds one unmatched unit on side and returns both counters
	AddPending(ctx context.Context, accountId string, side models.Position) (left, right int64, err error)
	// SettlePair consumes one unit from each side
	SettlePair(ctx context.Context, accountId string) error

	AppendPairing(ctx context.Context, record models.PairingHistoryRecord) error
	AppendCommission(ctx context.Context, record models.CommissionRecord) error
	AppendIncome(ctx context.Context, record models.IncomeHistoryRecord) error

	StatusOf(ctx context.Context, accountId string) (models.MaintenanceStatus, error)
	// RecordSpend adds amount to the account's cumulative spend and returns the
	// updated record. activate decides whether the new total turns the account
	// active; an active account stays active.
	RecordSpend(ctx context.Context, accountId string, amount decimal.Decimal, activate func(decimal.Decimal) bool) (models.MaintenanceRecord, error)
}

// CompensationStore is the contract of a storage backend as seen by the
// collaborators around the engines.
type CompensationStore interface {
	// --- Genealogy ---
	Place(ctx context.Context, req models.PlacementRequest) (*models.PlacementResult, error)
	GetAccount(ctx context.Context, accountId string) (*models.Account, error)
	ListAccounts(ctx context.Context) ([]models.Account, error)
	GetNodeByAccount(ctx context.Context, accountId string) (*models.GenealogyNode, error)
	GetChildren(ctx context.Context, accountId string) ([]models.GenealogyNode, error)
	AncestorsOf(ctx context.Context, accountId string, maxDepth int) ([]models.Ancestor, error)
	ReprocessPlacement(ctx context.Context, accountId string) (*models.PlacementResult, error)

	// --- Purchases ---
	RecordPurchase(ctx context.Context, purchase models.Purchase) (*models.DistributionResult, error)
	DistributeForPurchase(ctx context.Context, purchase models.Purchase) (*models.DistributionResult, error)

	// --- Ledger (read side) ---
	GetIncomeHistory(ctx context.Context, accountId string, limit, offset int) ([]models.IncomeHistoryRecord, error)
	GetPairingHistory(ctx context.Context, accountId string, limit, offset int) ([]models.PairingHistoryRecord, error)
	GetCommissionsByAccount(ctx context.Context, accountId string, limit, offset int) ([]models.CommissionRecord, error)
	GetCommissionsByPurchase(ctx context.Context, purchaseId string) ([]models.CommissionRecord, error)
	GetEarningsSummary(ctx context.Context, accountId string) (*models.EarningsSummary, error)
	ReconcileLedger(ctx context.Context) error

	// --- Maintenance ---
	StatusOf(ctx context.Context, accountId string) (models.MaintenanceStatus, error)

	// --- Lifecycle ---
	Close()
}
