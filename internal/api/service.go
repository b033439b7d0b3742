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
	"fmt"

	"genealogy-compensation-go/internal/store"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// CompensationService is the application-facing API over a compensation store
type CompensationService struct {
	store store.CompensationStore
}

func NewCompensationService(s store.CompensationStore) *CompensationService {
	return &CompensationService{
		store: s,
	}
}

type pinger interface {
	Ping(ctx context.Context) error
}

func (s *CompensationService) HealthCheck(ctx context.Context) error {
	p, ok := s.store.(pinger)
	if !ok {
		return nil
	}
	if err := p.Ping(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 || limit > maxPageLimit {
		limit = defaultPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
