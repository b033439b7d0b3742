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

package common

import (
	"context"
	"fmt"

	"genealogy-compensation-go/internal/store"

	"go.uber.org/zap"
)

// AccountInfo represents simplified account information for command-line utilities
type AccountInfo struct {
	Id        string
	SponsorId string
	ParentId  string
	Depth     int
}

// InitializeAccounts retrieves accounts based on an optional id filter.
// If accountFilter is provided, returns that single account.
// If accountFilter is empty, returns all accounts.
func InitializeAccounts(ctx context.Context, dbService store.CompensationStore, accountFilter string, logger *zap.Logger) ([]AccountInfo, error) {
	var accounts []AccountInfo

	if accountFilter != "" {
		logger.Info("Looking up account", zap.String("account_id", accountFilter))
		account, err := dbService.GetAccount(ctx, accountFilter)
		if err != nil {
			return nil, fmt.Errorf("account not found: %w", err)
		}
		accounts = append(accounts, AccountInfo{
			Id:        account.Id,
			SponsorId: account.SponsorAccountId,
			ParentId:  account.PlacementParentAccountId,
			Depth:     len(account.AncestorPath),
		})
	} else {
		allAccounts, err := dbService.ListAccounts(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get accounts: %w", err)
		}
		for _, a := range allAccounts {
			accounts = append(accounts, AccountInfo{
				Id:        a.Id,
				SponsorId: a.SponsorAccountId,
				ParentId:  a.PlacementParentAccountId,
				Depth:     len(a.AncestorPath),
			})
		}
	}

	logger.Info("Retrieved accounts", zap.Int("count", len(accounts)))
	return accounts, nil
}
