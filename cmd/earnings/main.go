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

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"genealogy-compensation-go/internal/common"
	"genealogy-compensation-go/internal/config"
	"genealogy-compensation-go/internal/models"
	"genealogy-compensation-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type earningsStats struct {
	totalAccounts      int
	accountsWithIncome int
	totalIncomeRows    int
	totalPaid          decimal.Decimal
	totalPairingPaid   decimal.Decimal
	totalUnilevelPaid  decimal.Decimal
}

func formatEventId(eventId string) string {
	if eventId == "" {
		return "none"
	}
	if len(eventId) > 8 {
		return eventId[:8] + "..."
	}
	return eventId
}

func printIncome(entry models.IncomeHistoryRecord, isLast bool) {
	symbol := common.BoxPrefix(isLast)

	fmt.Printf("%s %-9s: %14s (event: %s, at: %s)\n",
		symbol,
		entry.Source,
		common.FormatAmount(entry.Amount),
		formatEventId(entry.EventId),
		entry.CreatedAt.Format("2006-01-02 15:04:05"))
}

func printAccountHeader(account common.AccountInfo, summary *models.EarningsSummary, status models.MaintenanceStatus) {
	fmt.Printf("\n┌─ Account: %s (depth %d)\n", account.Id, account.Depth)
	if account.SponsorId != "" {
		fmt.Printf("│  Sponsor: %s  Parent: %s\n", account.SponsorId, account.ParentId)
	}
	fmt.Printf("│  Pairing:  %s (%d)\n", common.FormatAmount(summary.PairingTotal), summary.PairingCount)
	fmt.Printf("│  Unilevel: %s (%d)\n", common.FormatAmount(summary.UnilevelTotal), summary.UnilevelCount)
	fmt.Printf("│  Spend:    %s (active: %t)\n", common.FormatAmount(status.CumulativeSpend), status.Active)
	common.PrintBoxSeparator(common.BoxWidth)
}

func processAccount(ctx context.Context, account common.AccountInfo, dbService store.CompensationStore, historyLimit int) (*models.EarningsSummary, error) {
	summary, err := dbService.GetEarningsSummary(ctx, account.Id)
	if err != nil {
		return nil, fmt.Errorf("failed to get earnings: %w", err)
	}

	if summary.PairingCount+summary.UnilevelCount == 0 {
		return summary, nil
	}

	status, err := dbService.StatusOf(ctx, account.Id)
	if err != nil {
		return nil, fmt.Errorf("failed to get maintenance status: %w", err)
	}

	history, err := dbService.GetIncomeHistory(ctx, account.Id, historyLimit, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to get income history: %w", err)
	}

	printAccountHeader(account, summary, status)
	for i, entry := range history {
		printIncome(entry, i == len(history)-1)
	}

	return summary, nil
}

func processAccountsAndGenerateReport(ctx context.Context, accounts []common.AccountInfo, dbService store.CompensationStore, historyLimit int, logger *zap.Logger) earningsStats {
	stats := earningsStats{
		totalPaid:         decimal.Zero,
		totalPairingPaid:  decimal.Zero,
		totalUnilevelPaid: decimal.Zero,
	}

	for _, account := range accounts {
		stats.totalAccounts++

		summary, err := processAccount(ctx, account, dbService, historyLimit)
		if err != nil {
			logger.Error("Failed to process account",
				zap.String("account_id", account.Id),
				zap.Error(err))
			continue
		}

		rows := summary.PairingCount + summary.UnilevelCount
		if rows > 0 {
			stats.accountsWithIncome++
			stats.totalIncomeRows += rows
			stats.totalPaid = stats.totalPaid.Add(summary.Total)
			stats.totalPairingPaid = stats.totalPairingPaid.Add(summary.PairingTotal)
			stats.totalUnilevelPaid = stats.totalUnilevelPaid.Add(summary.UnilevelTotal)
		}
	}

	return stats
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	accountFlag := flag.String("account", "", "Filter by specific account id (optional)")
	limitFlag := flag.Int("limit", 10, "Income rows to show per account")
	reconcileFlag := flag.Bool("reconcile", false, "Verify that ledger rows and income rows match one to one")
	flag.Parse()

	logger.Info("Starting earnings query")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Connecting to database", zap.String("path", cfg.Database.Path))
	dbService, err := common.InitializeDatabase(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	if *reconcileFlag {
		if err := dbService.ReconcileLedger(ctx); err != nil {
			fmt.Printf("✗ Ledger reconciliation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("✓ Ledger reconciliation passed")
		return
	}

	accounts, err := common.InitializeAccounts(ctx, dbService, *accountFlag, logger)
	if err != nil {
		logger.Fatal("Failed to initialize accounts", zap.Error(err))
	}

	common.PrintHeader("ACCOUNT EARNINGS REPORT", common.DefaultWidth)

	stats := processAccountsAndGenerateReport(ctx, accounts, dbService, *limitFlag, logger)

	summary := fmt.Sprintf("SUMMARY: %d of %d accounts earned %s (pairing %s, unilevel %s) over %d income rows",
		stats.accountsWithIncome, stats.totalAccounts, common.FormatAmount(stats.totalPaid),
		common.FormatAmount(stats.totalPairingPaid), common.FormatAmount(stats.totalUnilevelPaid), stats.totalIncomeRows)
	common.PrintFooter(summary, common.DefaultWidth)

	logger.Info("Earnings query completed",
		zap.Int("accounts_queried", stats.totalAccounts),
		zap.Int("accounts_with_income", stats.accountsWithIncome),
		zap.Int("income_rows", stats.totalIncomeRows))
}
