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

	"genealogy-compensation-go/internal/api"
	"genealogy-compensation-go/internal/common"
	"genealogy-compensation-go/internal/config"
	"genealogy-compensation-go/internal/models"

	"go.uber.org/zap"
)

func buildRequest(account, sponsor, parent, position, pkg string) (models.PlacementRequest, error) {
	if account == "" {
		return models.PlacementRequest{}, fmt.Errorf("account id cannot be empty")
	}
	if parent == "" {
		return models.PlacementRequest{}, fmt.Errorf("parent account id cannot be empty (use setup --root for the root)")
	}

	side, err := models.ParsePosition(position)
	if err != nil {
		return models.PlacementRequest{}, err
	}

	return models.PlacementRequest{
		AccountId:        account,
		SponsorAccountId: sponsor,
		ParentAccountId:  parent,
		Position:         side,
		Package:          pkg,
	}, nil
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	accountFlag := flag.String("account", "", "Id of the account to place (required)")
	sponsorFlag := flag.String("sponsor", "", "Sponsor account id (defaults to the parent)")
	parentFlag := flag.String("parent", "", "Placement parent account id (required)")
	positionFlag := flag.String("position", "", "Side under the parent: left or right (required)")
	packageFlag := flag.String("package", "", "Package purchased at enrollment (optional)")
	reprocessFlag := flag.Bool("reprocess", false, "Re-run pairing settlement for an existing placement")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	dbService, err := common.InitializeDatabase(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	if *reprocessFlag {
		result, err := dbService.ReprocessPlacement(ctx, *accountFlag)
		if err != nil {
			zap.L().Fatal("Failed to reprocess placement", zap.String("account_id", *accountFlag), zap.Error(err))
		}
		if result.Duplicate {
			fmt.Printf("Placement of %s was already settled, nothing to do\n", *accountFlag)
			return
		}
		fmt.Printf("✓ Settled %d pairing units (%s) for %s\n", result.PairingsSettled, common.FormatAmount(result.PairingTotal), *accountFlag)
		return
	}

	req, err := buildRequest(*accountFlag, *sponsorFlag, *parentFlag, *positionFlag, *packageFlag)
	if err != nil {
		zap.L().Fatal("Invalid placement", zap.Error(err))
	}

	service := api.NewCompensationService(dbService)
	resp, err := service.PlaceAccount(ctx, req)
	if err != nil {
		zap.L().Fatal("Failed to place account", zap.Error(err))
	}
	if !resp.Success {
		fmt.Printf("✗ Placement rejected: %s\n", resp.Error)
		os.Exit(1)
	}

	fmt.Println()
	common.PrintHeader("ACCOUNT PLACED", common.DefaultWidth)
	common.PrintField("Account", resp.AccountId)
	common.PrintField("Node", resp.NodeId)
	common.PrintField("Parent", fmt.Sprintf("%s (%s)", req.ParentAccountId, req.Position))
	common.PrintField("Level", resp.Level)
	common.PrintField("Pairings settled", resp.PairingsSettled)
	common.PrintField("Pairing total", common.FormatAmount(resp.PairingTotal))
	common.PrintSeparator("=", common.DefaultWidth)
	fmt.Println()
}
