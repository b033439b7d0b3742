package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"genealogy-compensation-go/internal/api"
	"genealogy-compensation-go/internal/common"
	"genealogy-compensation-go/internal/config"
	"genealogy-compensation-go/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func printCommissions(resp *models.PurchaseResponse) {
	for i, c := range resp.Commissions {
		isLast := i == len(resp.Commissions)-1
		fmt.Printf("%s L%-2d %-36s %12s\n", common.BoxPrefix(isLast), c.Level, c.BeneficiaryId, common.FormatAmount(c.Amount))
	}
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	idFlag := flag.String("id", "", "Purchase id (defaults to a new UUID)")
	buyerFlag := flag.String("buyer", "", "Buyer account id (required)")
	amountFlag := flag.String("amount", "", "Purchase total, e.g. 1000.00 (required)")
	paidAtFlag := flag.String("paid-at", "", "Payment time in RFC3339 (defaults to now)")
	flag.Parse()

	if *buyerFlag == "" || *amountFlag == "" {
		zap.L().Fatal("Both flags are required: --buyer and --amount")
	}

	amount, err := decimal.NewFromString(*amountFlag)
	if err != nil {
		zap.L().Fatal("Invalid amount", zap.String("amount", *amountFlag), zap.Error(err))
	}

	purchase := models.Purchase{
		Id:             *idFlag,
		BuyerAccountId: *buyerFlag,
		TotalAmount:    amount,
	}
	if purchase.Id == "" {
		purchase.Id = uuid.New().String()
	}
	if *paidAtFlag != "" {
		purchase.PaidAt, err = time.Parse(time.RFC3339, *paidAtFlag)
		if err != nil {
			zap.L().Fatal("Invalid paid-at time", zap.String("paid_at", *paidAtFlag), zap.Error(err))
		}
	}

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	dbService, err := common.InitializeDatabase(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	service := api.NewCompensationService(dbService)
	resp, err := service.ProcessPurchase(ctx, purchase)
	if err != nil {
		zap.L().Fatal("Failed to process purchase", zap.Error(err))
	}
	if !resp.Success {
		fmt.Printf("✗ Purchase rejected: %s\n", resp.Error)
		os.Exit(1)
	}

	fmt.Println()
	if resp.Duplicate {
		common.PrintHeader("PURCHASE ALREADY SETTLED", common.DefaultWidth)
	} else {
		common.PrintHeader("PURCHASE COMMISSIONS", common.DefaultWidth)
	}
	common.PrintField("Purchase", resp.PurchaseId)
	common.PrintField("Buyer", purchase.BuyerAccountId)
	common.PrintField("Amount", common.FormatAmount(amount))
	common.PrintBoxSeparator(common.BoxWidth)
	printCommissions(resp)
	if resp.Skipped > 0 {
		common.PrintField("Skipped inactive", resp.Skipped)
	}

	summary := fmt.Sprintf("TOTAL: %s over %d levels | buyer spend %s (active: %t)",
		common.FormatAmount(resp.Total), len(resp.Commissions), common.FormatAmount(resp.Maintenance.CumulativeSpend), resp.Maintenance.Active)
	common.PrintFooter(summary, common.DefaultWidth)
}
