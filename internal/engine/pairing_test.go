package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"genealogy-compensation-go/internal/models"
	"genealogy-compensation-go/internal/plan"
	"genealogy-compensation-go/internal/store"

	"github.com/shopspring/decimal"
)

func nodeFor(account *models.Account, level int, p *plan.Plan) models.GenealogyNode {
	return models.GenealogyNode{
		Id:              "node-" + account.Id,
		AccountId:       account.Id,
		Level:           level,
		SettlementValue: p.SettlementValue(level),
		CreatedAt:       time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestHandleNewPlacement_LeftThenRight(t *testing.T) {
	ctx := context.Background()
	p := plan.Default()
	engine := NewPairing(p)
	tx := newFakeTx()
	tx.chain(1, models.PositionLeft)

	left := tx.child("left", "a0", models.PositionLeft)
	result, err := engine.HandleNewPlacement(ctx, tx, *left, nodeFor(left, 2, p))
	if err != nil {
		t.Fatalf("HandleNewPlacement(left) failed: %v", err)
	}
	if len(result.Records) != 0 {
		t.Fatalf("Expected no pairing after the first child, got %d", len(result.Records))
	}
	if tx.accounts["a0"].LeftPending != 1 || tx.accounts["a0"].RightPending != 0 {
		t.Fatalf("Expected root counters 1/0, got %d/%d", tx.accounts["a0"].LeftPending, tx.accounts["a0"].RightPending)
	}

	right := tx.child("right", "a0", models.PositionRight)
	node := nodeFor(right, 2, p)
	result, err = engine.HandleNewPlacement(ctx, tx, *right, node)
	if err != nil {
		t.Fatalf("HandleNewPlacement(right) failed: %v", err)
	}
	if len(result.Records) != 1 {
		t.Fatalf("Expected 1 pairing, got %d", len(result.Records))
	}

	record := result.Records[0]
	if record.BeneficiaryAccountId != "a0" {
		t.Errorf("Expected beneficiary a0, got %s", record.BeneficiaryAccountId)
	}
	if record.Level != 1 {
		t.Errorf("Expected level 1, got %d", record.Level)
	}
	if !record.SettledValue.Equal(decimal.NewFromInt(900)) {
		t.Errorf("Expected settled value 900, got %s", record.SettledValue.String())
	}
	if record.SourceNodeId != node.Id {
		t.Errorf("Expected source node %s, got %s", node.Id, record.SourceNodeId)
	}
	if !record.CreatedAt.Equal(node.CreatedAt) {
		t.Errorf("Expected created_at %v, got %v", node.CreatedAt, record.CreatedAt)
	}
	if tx.accounts["a0"].LeftPending != 0 || tx.accounts["a0"].RightPending != 0 {
		t.Errorf("Expected root counters 0/0 after settlement, got %d/%d", tx.accounts["a0"].LeftPending, tx.accounts["a0"].RightPending)
	}
	if !result.Total.Equal(decimal.NewFromInt(900)) {
		t.Errorf("Expected total 900, got %s", result.Total.String())
	}
}

func TestHandleNewPlacement_IncomeMirrorsPairing(t *testing.T) {
	ctx := context.Background()
	p := plan.Default()
	tx := newFakeTx()
	tx.chain(1, models.PositionLeft)
	tx.accounts["a0"].LeftPending = 1

	right := tx.child("right", "a0", models.PositionRight)
	node := nodeFor(right, 2, p)
	if _, err := NewPairing(p).HandleNewPlacement(ctx, tx, *right, node); err != nil {
		t.Fatalf("HandleNewPlacement failed: %v", err)
	}

	if len(tx.pairings) != 1 || len(tx.income) != 1 {
		t.Fatalf("Expected 1 pairing and 1 income row, got %d and %d", len(tx.pairings), len(tx.income))
	}
	income := tx.income[0]
	if income.Source != models.IncomeSourcePairing {
		t.Errorf("Expected source pairing, got %s", income.Source)
	}
	if income.ReferenceId != tx.pairings[0].Id {
		t.Errorf("Expected reference %s, got %s", tx.pairings[0].Id, income.ReferenceId)
	}
	if income.EventId != node.Id {
		t.Errorf("Expected event id %s, got %s", node.Id, income.EventId)
	}
	if income.AccountId != "a0" || !income.Amount.Equal(tx.pairings[0].SettledValue) {
		t.Errorf("Income row does not mirror pairing: %+v", income)
	}
}

func TestHandleNewPlacement_LocksBeforeCounters(t *testing.T) {
	ctx := context.Background()
	p := plan.Default()
	tx := newFakeTx()
	ids := tx.chain(4, models.PositionLeft)

	leaf := tx.child("leaf", ids[3], models.PositionRight)
	if _, err := NewPairing(p).HandleNewPlacement(ctx, tx, *leaf, nodeFor(leaf, 5, p)); err != nil {
		t.Fatalf("HandleNewPlacement failed: %v", err)
	}

	if len(tx.locked) != 1 {
		t.Fatalf("Expected one lock call, got %d", len(tx.locked))
	}
	wantOrder := []string{"a3", "a2", "a1", "a0"}
	for i, id := range wantOrder {
		if tx.locked[0][i] != id {
			t.Fatalf("Expected lock order %v, got %v", wantOrder, tx.locked[0])
		}
	}

	wantCalls := []string{"claim", "lock", "add:a3", "add:a2", "add:a1", "add:a0"}
	if len(tx.calls) != len(wantCalls) {
		t.Fatalf("Expected calls %v, got %v", wantCalls, tx.calls)
	}
	for i := range wantCalls {
		if tx.calls[i] != wantCalls[i] {
			t.Fatalf("Expected calls %v, got %v", wantCalls, tx.calls)
		}
	}

	// the leaf hangs right of a3 and in the left subtree of everything above
	if tx.accounts["a3"].RightPending != 1 || tx.accounts["a3"].LeftPending != 0 {
		t.Errorf("Expected a3 counters 0/1, got %d/%d", tx.accounts["a3"].LeftPending, tx.accounts["a3"].RightPending)
	}
	if tx.accounts["a0"].LeftPending != 1 {
		t.Errorf("Expected a0 left pending 1, got %d", tx.accounts["a0"].LeftPending)
	}
}

func TestHandleNewPlacement_DepthCap(t *testing.T) {
	ctx := context.Background()
	p := plan.Default()
	tx := newFakeTx()
	ids := tx.chain(12, models.PositionRight)
	for _, id := range ids {
		tx.accounts[id].LeftPending = 1
	}

	// climbing from the new node every ancestor receives a right unit
	leaf := tx.child("leaf", ids[11], models.PositionRight)
	result, err := NewPairing(p).HandleNewPlacement(ctx, tx, *leaf, nodeFor(leaf, 13, p))
	if err != nil {
		t.Fatalf("HandleNewPlacement failed: %v", err)
	}

	if len(result.Records) != plan.MaxPairingDepth {
		t.Fatalf("Expected %d pairings, got %d", plan.MaxPairingDepth, len(result.Records))
	}
	for i, record := range result.Records {
		if record.Level != i+1 {
			t.Errorf("Expected record %d at level %d, got %d", i, i+1, record.Level)
		}
		if record.Level > plan.MaxPairingDepth {
			t.Errorf("Pairing above the depth cap: level %d", record.Level)
		}
	}

	// a0 and a1 are 12 and 11 levels up and must be untouched
	for _, id := range []string{"a0", "a1"} {
		if tx.accounts[id].LeftPending != 1 || tx.accounts[id].RightPending != 0 {
			t.Errorf("Expected %s untouched at 1/0, got %d/%d", id, tx.accounts[id].LeftPending, tx.accounts[id].RightPending)
		}
	}

	// level 13 is past the settlement curve and carries 0
	if !result.Total.IsZero() {
		t.Errorf("Expected zero-valued pairings for a level 13 node, got %s", result.Total.String())
	}
}

func TestHandleNewPlacement_ConfiguredDepth(t *testing.T) {
	ctx := context.Background()
	p := plan.Default()
	p.PairingDepth = 3
	tx := newFakeTx()
	ids := tx.chain(6, models.PositionRight)
	for _, id := range ids {
		tx.accounts[id].LeftPending = 1
	}

	leaf := tx.child("leaf", ids[5], models.PositionRight)
	result, err := NewPairing(p).HandleNewPlacement(ctx, tx, *leaf, nodeFor(leaf, 7, p))
	if err != nil {
		t.Fatalf("HandleNewPlacement failed: %v", err)
	}
	if len(result.Records) != 3 {
		t.Fatalf("Expected 3 pairings, got %d", len(result.Records))
	}
	if tx.accounts["a2"].RightPending != 0 {
		t.Errorf("Expected a2 outside the walk, got right pending %d", tx.accounts["a2"].RightPending)
	}
}

func TestHandleNewPlacement_OnePairPerAncestor(t *testing.T) {
	ctx := context.Background()
	p := plan.Default()
	tx := newFakeTx()
	tx.chain(1, models.PositionLeft)
	tx.accounts["a0"].LeftPending = 3

	right := tx.child("right", "a0", models.PositionRight)
	result, err := NewPairing(p).HandleNewPlacement(ctx, tx, *right, nodeFor(right, 2, p))
	if err != nil {
		t.Fatalf("HandleNewPlacement failed: %v", err)
	}
	if len(result.Records) != 1 {
		t.Fatalf("Expected exactly one pairing, got %d", len(result.Records))
	}
	if tx.accounts["a0"].LeftPending != 2 || tx.accounts["a0"].RightPending != 0 {
		t.Errorf("Expected counters 2/0, got %d/%d", tx.accounts["a0"].LeftPending, tx.accounts["a0"].RightPending)
	}
}

func TestHandleNewPlacement_Root(t *testing.T) {
	ctx := context.Background()
	p := plan.Default()
	tx := newFakeTx()
	tx.chain(1, models.PositionLeft)
	root := tx.accounts["a0"]

	result, err := NewPairing(p).HandleNewPlacement(ctx, tx, *root, nodeFor(root, 1, p))
	if err != nil {
		t.Fatalf("HandleNewPlacement failed: %v", err)
	}
	if len(result.Records) != 0 || !result.Total.IsZero() {
		t.Errorf("Expected no pairings for the root, got %d", len(result.Records))
	}
	if len(tx.locked) != 0 {
		t.Errorf("Expected no counter locks for the root, got %v", tx.locked)
	}
}

func TestHandleNewPlacement_Duplicate(t *testing.T) {
	ctx := context.Background()
	p := plan.Default()
	engine := NewPairing(p)
	tx := newFakeTx()
	tx.chain(1, models.PositionLeft)
	tx.accounts["a0"].LeftPending = 1

	right := tx.child("right", "a0", models.PositionRight)
	node := nodeFor(right, 2, p)
	if _, err := engine.HandleNewPlacement(ctx, tx, *right, node); err != nil {
		t.Fatalf("First HandleNewPlacement failed: %v", err)
	}

	_, err := engine.HandleNewPlacement(ctx, tx, *right, node)
	if !errors.Is(err, store.ErrDuplicateProcessing) {
		t.Fatalf("Expected ErrDuplicateProcessing, got %v", err)
	}
	if len(tx.pairings) != 1 {
		t.Errorf("Expected the duplicate to post nothing, got %d pairings", len(tx.pairings))
	}
	if tx.accounts["a0"].RightPending != 0 {
		t.Errorf("Expected counters unchanged by the duplicate, got right pending %d", tx.accounts["a0"].RightPending)
	}
}

func TestHandleNewPlacement_NodeMismatch(t *testing.T) {
	ctx := context.Background()
	p := plan.Default()
	tx := newFakeTx()
	tx.chain(2, models.PositionLeft)

	node := nodeFor(tx.accounts["a0"], 1, p)
	if _, err := NewPairing(p).HandleNewPlacement(ctx, tx, *tx.accounts["a1"], node); err == nil {
		t.Fatal("Expected an error for a node of another account")
	}
}

func TestPairingRecordIdsAreDeterministic(t *testing.T) {
	a := pairingRecordId("node-1", "acct-1")
	b := pairingRecordId("node-1", "acct-1")
	c := pairingRecordId("node-1", "acct-2")
	if a != b {
		t.Errorf("Expected the same id for the same inputs, got %s and %s", a, b)
	}
	if a == c {
		t.Errorf("Expected different ids for different beneficiaries")
	}
	if incomeRecordId(a) == a {
		t.Errorf("Expected income id to differ from its reference id")
	}
}
