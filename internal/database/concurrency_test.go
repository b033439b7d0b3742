package database

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"genealogy-compensation-go/internal/models"
	"genealogy-compensation-go/internal/plan"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

func setupFileService(t *testing.T) *Service {
	t.Helper()
	cfg := models.DatabaseConfig{
		Path:            filepath.Join(t.TempDir(), "compensation.db"),
		MaxOpenConns:    8,
		MaxIdleConns:    8,
		ConnMaxLifetime: time.Minute,
		ConnMaxIdleTime: time.Minute,
		PingTimeout:     5 * time.Second,
		BusyTimeout:     30 * time.Second,
	}
	service, err := NewService(context.Background(), cfg, plan.Default())
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	t.Cleanup(service.Close)
	return service
}

// TestConcurrentPlacementsSettleConsistently places the bottom row of a tree
// from many goroutines at once and checks that every ancestor ends up with
// min(L, R) pairings and L-P / R-P pending units, whatever the commit order.
func TestConcurrentPlacementsSettleConsistently(t *testing.T) {
	service := setupFileService(t)
	ctx := context.Background()

	// perfect tree of depth 4, placed sequentially
	place(t, service, "n1", "", "")
	for i := 2; i < 16; i++ {
		side := models.PositionLeft
		if i%2 == 1 {
			side = models.PositionRight
		}
		place(t, service, fmt.Sprintf("n%d", i), fmt.Sprintf("n%d", i/2), side)
	}

	// the next 16 leaves go in concurrently
	g, gctx := errgroup.WithContext(ctx)
	for i := 16; i < 32; i++ {
		id := fmt.Sprintf("n%d", i)
		parent := fmt.Sprintf("n%d", i/2)
		side := models.PositionLeft
		if i%2 == 1 {
			side = models.PositionRight
		}
		g.Go(func() error {
			_, err := service.Place(gctx, models.PlacementRequest{AccountId: id, ParentAccountId: parent, Position: side})
			if err != nil {
				return fmt.Errorf("place %s: %w", id, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("Concurrent placement failed: %v", err)
	}

	accounts, err := service.ListAccounts(ctx)
	if err != nil {
		t.Fatalf("ListAccounts failed: %v", err)
	}
	if len(accounts) != 31 {
		t.Fatalf("Expected 31 accounts, got %d", len(accounts))
	}

	// tally the units each ancestor received from its descendants
	left := map[string]int64{}
	right := map[string]int64{}
	for _, account := range accounts {
		for i, ancestor := range account.AncestorPath {
			if i >= plan.MaxPairingDepth {
				break
			}
			if account.BranchPath[i] == models.PositionLeft {
				left[ancestor]++
			} else {
				right[ancestor]++
			}
		}
	}

	for _, account := range accounts {
		l, r := left[account.Id], right[account.Id]
		pairs := min(l, r)

		history, err := service.GetPairingHistory(ctx, account.Id, 100, 0)
		if err != nil {
			t.Fatalf("GetPairingHistory failed: %v", err)
		}
		if int64(len(history)) != pairs {
			t.Errorf("Account %s: expected %d pairings (L=%d R=%d), got %d", account.Id, pairs, l, r, len(history))
		}
		if account.LeftPending != l-pairs || account.RightPending != r-pairs {
			t.Errorf("Account %s: expected pending %d/%d, got %d/%d", account.Id, l-pairs, r-pairs, account.LeftPending, account.RightPending)
		}
	}

	if err := service.ReconcileLedger(ctx); err != nil {
		t.Errorf("ReconcileLedger failed: %v", err)
	}
}

func TestConcurrentRedeliveryPaysOnce(t *testing.T) {
	service := setupFileService(t)
	ctx := context.Background()

	ids := placeChain(t, service, 6, models.PositionLeft)
	purchase := models.Purchase{Id: "order-race", BuyerAccountId: ids[5], TotalAmount: decimal.NewFromInt(100)}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			_, err := service.RecordPurchase(gctx, purchase)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("Concurrent RecordPurchase failed: %v", err)
	}

	if got := countRows(t, service, "commission_records"); got != 5 {
		t.Errorf("Expected 5 commission rows, got %d", got)
	}
	status, err := service.StatusOf(ctx, ids[5])
	if err != nil {
		t.Fatalf("StatusOf failed: %v", err)
	}
	if !status.CumulativeSpend.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected spend counted once, got %s", status.CumulativeSpend.String())
	}
}
