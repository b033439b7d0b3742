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

package api

import (
	"context"
	"errors"

	"genealogy-compensation-go/internal/models"
	"genealogy-compensation-go/internal/store"

	"go.uber.org/zap"
)

// PlaceAccount places a new account and reports the pairing bonuses it settled.
// Business rejections are returned in the response, not as an error.
func (s *CompensationService) PlaceAccount(ctx context.Context, req models.PlacementRequest) (*models.PlacementResponse, error) {
	if req.AccountId == "" || (req.ParentAccountId != "" && !req.Position.Valid()) {
		zap.L().Error("Invalid placement parameters",
			zap.String("account_id", req.AccountId),
			zap.String("parent_account_id", req.ParentAccountId),
			zap.String("position", string(req.Position)))
		return &models.PlacementResponse{
			Success: false,
			Error:   "invalid placement parameters",
		}, nil
	}

	result, err := s.store.Place(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrSlotOccupied),
			errors.Is(err, store.ErrParentNotFound),
			errors.Is(err, store.ErrSponsorNotFound),
			errors.Is(err, store.ErrAccountExists),
			errors.Is(err, store.ErrRootExists):
			zap.L().Warn("Placement rejected",
				zap.String("account_id", req.AccountId),
				zap.String("parent_account_id", req.ParentAccountId),
				zap.Error(err))
		default:
			return nil, err
		}

		return &models.PlacementResponse{
			Success: false,
			Error:   err.Error(),
		}, nil
	}

	return &models.PlacementResponse{
		Success:         true,
		AccountId:       result.Account.Id,
		NodeId:          result.Node.Id,
		Level:           result.Node.Level,
		PairingsSettled: result.PairingsSettled,
		PairingTotal:    result.PairingTotal,
		Duplicate:       result.Duplicate,
	}, nil
}
