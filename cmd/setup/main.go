package main

import (
	"context"
	"flag"
	"fmt"

	"genealogy-compensation-go/internal/common"
	"genealogy-compensation-go/internal/config"
	"genealogy-compensation-go/internal/models"

	"go.uber.org/zap"
)

func printPlan(cfg *models.Config, pairingDepth, unilevelDepth int, chain string) {
	common.PrintHeader("COMPENSATION DATABASE READY", common.DefaultWidth)
	common.PrintField("Database", cfg.Database.Path)
	if cfg.PlanFile != "" {
		common.PrintField("Plan file", cfg.PlanFile)
	} else {
		common.PrintField("Plan file", "(defaults)")
	}
	common.PrintField("Pairing depth", pairingDepth)
	common.PrintField("Unilevel depth", unilevelDepth)
	common.PrintField("Unilevel chain", chain)
	common.PrintSeparator("=", common.DefaultWidth)
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	rootFlag := flag.String("root", "", "Account id of the genealogy root to create (optional)")
	packageFlag := flag.String("package", "", "Package of the root account (optional)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	// Opening the service creates every table, index and trigger
	dbService, err := common.InitializeDatabase(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	p := dbService.Plan()
	printPlan(cfg, p.PairingDepth, p.UnilevelDepth, string(p.UnilevelChain))

	if *rootFlag == "" {
		return
	}

	result, err := dbService.Place(ctx, models.PlacementRequest{
		AccountId: *rootFlag,
		Package:   *packageFlag,
	})
	if err != nil {
		zap.L().Fatal("Failed to create root account", zap.String("account_id", *rootFlag), zap.Error(err))
	}

	fmt.Printf("\n✓ Root account %s placed (node %s, settlement value %s)\n",
		result.Account.Id, result.Node.Id, result.Node.SettlementValue.String())
}
