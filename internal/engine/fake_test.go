package engine

import (
	"context"
	"fmt"

	"genealogy-compensation-go/internal/models"
	"genealogy-compensation-go/internal/store"

	"github.com/shopspring/decimal"
)

// fakeTx is an in-memory store.Tx that records the order of calls
type fakeTx struct {
	accounts    map[string]*models.Account
	claimed     map[string]bool
	maintenance map[string]models.MaintenanceRecord
	pairings    []models.PairingHistoryRecord
	commissions []models.CommissionRecord
	income      []models.IncomeHistoryRecord
	locked      [][]string
	calls       []string
}

func newFakeTx() *fakeTx {
	return &fakeTx{
		accounts:    map[string]*models.Account{},
		claimed:     map[string]bool{},
		maintenance: map[string]models.MaintenanceRecord{},
	}
}

// chain builds a straight line of accounts a0 <- a1 <- ... <- a(n-1), each
// hanging under its parent on side, and returns their ids root first
func (f *fakeTx) chain(n int, side models.Position) []string {
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		ids[i] = fmt.Sprintf("a%d", i)
		account := &models.Account{Id: ids[i], AncestorPath: []string{}, BranchPath: []models.Position{}, SponsorPath: []string{}}
		if i > 0 {
			parent := f.accounts[ids[i-1]]
			account.PlacementParentAccountId = parent.Id
			account.SponsorAccountId = parent.Id
			account.AncestorPath = append([]string{parent.Id}, parent.AncestorPath...)
			account.BranchPath = append([]models.Position{side}, parent.BranchPath...)
			account.SponsorPath = append([]string{parent.Id}, parent.SponsorPath...)
		}
		f.accounts[ids[i]] = account
	}
	return ids
}

// child adds an account under parent on side
func (f *fakeTx) child(id, parentId string, side models.Position) *models.Account {
	parent := f.accounts[parentId]
	account := &models.Account{
		Id:                       id,
		PlacementParentAccountId: parentId,
		SponsorAccountId:         parentId,
		AncestorPath:             append([]string{parentId}, parent.AncestorPath...),
		BranchPath:               append([]models.Position{side}, parent.BranchPath...),
		SponsorPath:              append([]string{parentId}, parent.SponsorPath...),
	}
	f.accounts[id] = account
	return account
}

func (f *fakeTx) ClaimEvent(_ context.Context, kind store.EventKind, eventId string) error {
	f.calls = append(f.calls, "claim")
	key := string(kind) + ":" + eventId
	if f.claimed[key] {
		return fmt.Errorf("%w: %s", store.ErrDuplicateProcessing, key)
	}
	f.claimed[key] = true
	return nil
}

func (f *fakeTx) GetAccount(_ context.Context, accountId string) (*models.Account, error) {
	account, ok := f.accounts[accountId]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrAccountNotFound, accountId)
	}
	copied := *account
	return &copied, nil
}

func (f *fakeTx) AncestorsOf(_ context.Context, account models.Account, maxDepth int) ([]models.Ancestor, error) {
	var ancestors []models.Ancestor
	for i := 0; i < len(account.AncestorPath) && i < maxDepth; i++ {
		ancestors = append(ancestors, models.Ancestor{AccountId: account.AncestorPath[i], Distance: i + 1, Side: account.BranchPath[i]})
	}
	return ancestors, nil
}

func (f *fakeTx) SponsorsOf(_ context.Context, account models.Account, maxDepth int) ([]models.Ancestor, error) {
	var sponsors []models.Ancestor
	for i := 0; i < len(account.SponsorPath) && i < maxDepth; i++ {
		sponsors = append(sponsors, models.Ancestor{AccountId: account.SponsorPath[i], Distance: i + 1})
	}
	return sponsors, nil
}

func (f *fakeTx) LockCounters(_ context.Context, accountIds []string) error {
	f.calls = append(f.calls, "lock")
	f.locked = append(f.locked, append([]string(nil), accountIds...))
	return nil
}

func (f *fakeTx) AddPending(_ context.Context, accountId string, side models.Position) (int64, int64, error) {
	f.calls = append(f.calls, "add:"+accountId)
	account, ok := f.accounts[accountId]
	if !ok {
		return 0, 0, store.ErrAccountNotFound
	}
	switch side {
	case models.PositionLeft:
		account.LeftPending++
	case models.PositionRight:
		account.RightPending++
	default:
		return 0, 0, store.ErrInvalidPosition
	}
	return account.LeftPending, account.RightPending, nil
}

func (f *fakeTx) SettlePair(_ context.Context, accountId string) error {
	f.calls = append(f.calls, "settle:"+accountId)
	account := f.accounts[accountId]
	if account.LeftPending < 1 || account.RightPending < 1 {
		return store.ErrConcurrentModification
	}
	account.LeftPending--
	account.RightPending--
	return nil
}

func (f *fakeTx) AppendPairing(_ context.Context, record models.PairingHistoryRecord) error {
	f.pairings = append(f.pairings, record)
	return nil
}

func (f *fakeTx) AppendCommission(_ context.Context, record models.CommissionRecord) error {
	f.commissions = append(f.commissions, record)
	return nil
}

func (f *fakeTx) AppendIncome(_ context.Context, record models.IncomeHistoryRecord) error {
	f.income = append(f.income, record)
	return nil
}

func (f *fakeTx) StatusOf(_ context.Context, accountId string) (models.MaintenanceStatus, error) {
	record := f.maintenance[accountId]
	if record.CumulativeSpend.IsZero() {
		record.CumulativeSpend = decimal.Zero
	}
	return models.MaintenanceStatus{CumulativeSpend: record.CumulativeSpend, Active: record.Active}, nil
}

func (f *fakeTx) RecordSpend(_ context.Context, accountId string, amount decimal.Decimal, activate func(decimal.Decimal) bool) (models.MaintenanceRecord, error) {
	record := f.maintenance[accountId]
	record.AccountId = accountId
	record.CumulativeSpend = record.CumulativeSpend.Add(amount)
	record.Active = record.Active || activate(record.CumulativeSpend)
	f.maintenance[accountId] = record
	return record, nil
}
