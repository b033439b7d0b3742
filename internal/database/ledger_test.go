package database

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

func TestLedgerTablesAreAppendOnly(t *testing.T) {
	service, cleanup := setupTestService(t, plan.Default())
	defer cleanup()
	ctx := context.Background()

	place(t, service, "root", "", "")
	place(t, service, "a", "root", models.PositionLeft)
	place(t, service, "b", "root", models.PositionRight)
	if _, err := service.RecordPurchase(ctx, models.Purchase{Id: "p1", BuyerAccountId: "a", TotalAmount: decimal.NewFromInt(10)}); err != nil {
		t.Fatalf("RecordPurchase failed: %v", err)
	}

	statements := []string{
		"UPDATE pairing_history SET settled_value = '1'",
		"DELETE FROM pairing_history",
		"UPDATE commission_records SET amount = '1'",
		"DELETE FROM commission_records",
		"UPDATE income_history SET amount = '1'",
		"DELETE FROM income_history",
		"UPDATE genealogy_nodes SET level = 9",
		"DELETE FROM genealogy_nodes",
	}
	for _, stmt := range statements {
		if _, err := service.db.Exec(stmt); err == nil {
			t.Errorf("Expected %q to be rejected", stmt)
		}
	}

	if err := service.ReconcileLedger(ctx); err != nil {
		t.Errorf("ReconcileLedger failed: %v", err)
	}
}

func TestLedgerUniqueness(t *testing.T) {
	service, cleanup := setupTestService(t, plan.Default())
	defer cleanup()

	place(t, service, "root", "", "")
	now := time.Now().UTC()

	_, err := service.db.Exec(queryInsertCommission, "c1", "root", "p1", 1, "100", now)
	if err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	if _, err := service.db.Exec(queryInsertCommission, "c2", "root", "p1", 1, "100", now); err == nil {
		t.Error("Expected a second commission for the same purchase and level to be rejected")
	}
	if _, err := service.db.Exec(queryInsertCommission, "c3", "root", "p1", 16, "10", now); err == nil {
		t.Error("Expected a level 16 commission to be rejected")
	}
	if _, err := service.db.Exec(queryInsertIncome, "i1", "root", "1", "bonus", "c1", "p1", now); err == nil {
		t.Error("Expected an unknown income source to be rejected")
	}
}

func TestReconcileLedger_DetectsMismatch(t *testing.T) {
	service, cleanup := setupTestService(t, plan.Default())
	defer cleanup()
	ctx := context.Background()

	place(t, service, "root", "", "")
	now := time.Now().UTC()

	// a commission with no income row
	if _, err := service.db.Exec(queryInsertCommission, "c1", "root", "p1", 1, "100", now); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	err := service.ReconcileLedger(ctx)
	if !errors.Is(err, store.ErrLedgerMismatch) {
		t.Fatalf("Expected ErrLedgerMismatch, got %v", err)
	}

	// an income row with the wrong amount is still a mismatch
	if _, err := service.db.Exec(queryInsertIncome, "i1", "root", "99", "unilevel", "c1", "p1", now); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := service.ReconcileLedger(ctx); !errors.Is(err, store.ErrLedgerMismatch) {
		t.Fatalf("Expected ErrLedgerMismatch for a wrong amount, got %v", err)
	}
}

func TestReconcileLedger_DetectsOrphanIncome(t *testing.T) {
	service, cleanup := setupTestService(t, plan.Default())
	defer cleanup()
	ctx := context.Background()

	place(t, service, "root", "", "")
	if _, err := service.db.Exec(queryInsertIncome, "i1", "root", "5", "pairing", "missing", "node", time.Now().UTC()); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := service.ReconcileLedger(ctx); !errors.Is(err, store.ErrLedgerMismatch) {
		t.Fatalf("Expected ErrLedgerMismatch, got %v", err)
	}
}

func TestGetEarningsSummary(t *testing.T) {
	service, cleanup := setupTestService(t, plan.Default())
	defer cleanup()
	ctx := context.Background()

	place(t, service, "root", "", "")
	place(t, service, "a", "root", models.PositionLeft)
	place(t, service, "b", "root", models.PositionRight)
	for i, buyer := range []string{"a", "b", "a"} {
		purchase := models.Purchase{
			Id:             "p" + string(rune('1'+i)),
			BuyerAccountId: buyer,
			TotalAmount:    decimal.RequireFromString("19.99"),
		}
		if _, err := service.RecordPurchase(ctx, purchase); err != nil {
			t.Fatalf("RecordPurchase failed: %v", err)
		}
	}

	summary, err := service.GetEarningsSummary(ctx, "root")
	if err != nil {
		t.Fatalf("GetEarningsSummary failed: %v", err)
	}
	if summary.PairingCount != 1 || !summary.PairingTotal.Equal(decimal.NewFromInt(900)) {
		t.Errorf("Expected 1 pairing of 900, got %d of %s", summary.PairingCount, summary.PairingTotal.String())
	}
	if summary.UnilevelCount != 3 || !summary.UnilevelTotal.Equal(decimal.NewFromInt(300)) {
		t.Errorf("Expected 3 commissions totalling 300, got %d totalling %s", summary.UnilevelCount, summary.UnilevelTotal.String())
	}
	if !summary.Total.Equal(decimal.NewFromInt(1200)) {
		t.Errorf("Expected total 1200, got %s", summary.Total.String())
	}

	empty, err := service.GetEarningsSummary(ctx, "a")
	if err != nil {
		t.Fatalf("GetEarningsSummary failed: %v", err)
	}
	if !empty.Total.IsZero() || empty.PairingCount+empty.UnilevelCount != 0 {
		t.Errorf("Expected an empty summary for a, got %+v", empty)
	}

	commissions, err := service.GetCommissionsByAccount(ctx, "root", 2, 0)
	if err != nil {
		t.Fatalf("GetCommissionsByAccount failed: %v", err)
	}
	if len(commissions) != 2 {
		t.Errorf("Expected the page limited to 2, got %d", len(commissions))
	}
	rest, err := service.GetCommissionsByAccount(ctx, "root", 2, 2)
	if err != nil {
		t.Fatalf("GetCommissionsByAccount failed: %v", err)
	}
	if len(rest) != 1 {
		t.Errorf("Expected 1 commission on the second page, got %d", len(rest))
	}

	income, err := service.GetIncomeHistory(ctx, "root", 10, 0)
	if err != nil {
		t.Fatalf("GetIncomeHistory failed: %v", err)
	}
	if len(income) != 4 {
		t.Errorf("Expected 4 income rows, got %d", len(income))
	}
}

func TestStatusOf(t *testing.T) {
	p := plan.Default()
	p.ActivationThreshold = decimal.NewFromInt(100)
	service, cleanup := setupTestService(t, p)
	defer cleanup()
	ctx := context.Background()

	place(t, service, "root", "", "")

	status, err := service.StatusOf(ctx, "root")
	if err != nil {
		t.Fatalf("StatusOf failed: %v", err)
	}
	if status.Active || !status.CumulativeSpend.IsZero() {
		t.Errorf("Expected zero spend and inactive before any purchase, got %+v", status)
	}

	amounts := []string{"40", "59.99", "0.01", "5"}
	wantActive := []bool{false, false, true, true}
	for i, amount := range amounts {
		result, err := service.RecordPurchase(ctx, models.Purchase{
			Id:             "s" + amount,
			BuyerAccountId: "root",
			TotalAmount:    decimal.RequireFromString(amount),
		})
		if err != nil {
			t.Fatalf("RecordPurchase failed: %v", err)
		}
		if result.Maintenance.Active != wantActive[i] {
			t.Errorf("After purchase %d expected active=%t, got %t", i+1, wantActive[i], result.Maintenance.Active)
		}
	}

	status, err = service.StatusOf(ctx, "root")
	if err != nil {
		t.Fatalf("StatusOf failed: %v", err)
	}
	if !status.CumulativeSpend.Equal(decimal.NewFromInt(105)) || !status.Active {
		t.Errorf("Expected spend 105 and active, got %s/%t", status.CumulativeSpend.String(), status.Active)
	}
}

func TestSponsorChainAndActiveGate(t *testing.T) {
	p := plan.Default()
	p.UnilevelChain = plan.ChainSponsor
	p.RequireActiveBeneficiary = true
	service, cleanup := setupTestService(t, p)
	defer cleanup()
	ctx := context.Background()

	place(t, service, "root", "", "")
	place(t, service, "a", "root", models.PositionLeft)
	// b is placed under a but sponsored by root
	if _, err := service.Place(ctx, models.PlacementRequest{AccountId: "b", SponsorAccountId: "root", ParentAccountId: "a", Position: models.PositionLeft}); err != nil {
		t.Fatalf("Place failed: %v", err)
	}

	// root has never purchased so it is inactive and skipped
	result, err := service.RecordPurchase(ctx, models.Purchase{Id: "p1", BuyerAccountId: "b", TotalAmount: decimal.NewFromInt(50)})
	if err != nil {
		t.Fatalf("RecordPurchase failed: %v", err)
	}
	if len(result.Commissions) != 0 || result.Skipped != 1 {
		t.Fatalf("Expected the inactive sponsor skipped, got %d commissions and %d skipped", len(result.Commissions), result.Skipped)
	}

	if _, err := service.RecordPurchase(ctx, models.Purchase{Id: "p2", BuyerAccountId: "root", TotalAmount: decimal.NewFromInt(1)}); err != nil {
		t.Fatalf("RecordPurchase failed: %v", err)
	}
	result, err = service.RecordPurchase(ctx, models.Purchase{Id: "p3", BuyerAccountId: "b", TotalAmount: decimal.NewFromInt(50)})
	if err != nil {
		t.Fatalf("RecordPurchase failed: %v", err)
	}
	if len(result.Commissions) != 1 || result.Commissions[0].BeneficiaryAccountId != "root" {
		t.Fatalf("Expected one commission to sponsor root, got %+v", result.Commissions)
	}
	if got := countRows(t, service, "income_history"); got != 1 {
		t.Errorf("Expected 1 income row, got %d", got)
	}
}
