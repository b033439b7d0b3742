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

package database

const (
	// Account queries
	queryInsertAccount = `
		INSERT INTO accounts (
			id, sponsor_account_id, placement_parent_account_id,
			ancestor_path, branch_path, sponsor_path, package, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetAccount = `
		SELECT id, sponsor_account_id, placement_parent_account_id,
		       ancestor_path, branch_path, sponsor_path, package,
		       left_pending, right_pending, created_at
		FROM accounts
		WHERE id = ?`

	queryListAccounts = `
		SELECT id, sponsor_account_id, placement_parent_account_id,
		       ancestor_path, branch_path, sponsor_path, package,
		       left_pending, right_pending, created_at
		FROM accounts
		ORDER BY created_at, id`

	queryLockAccountCounters = `
		UPDATE accounts SET version = version WHERE id = ?`

	queryAddLeftPending = `
		UPDATE accounts
		SET left_pending = left_pending + 1, version = version + 1, updated_at = ?
		WHERE id = ?
		RETURNING left_pending, right_pending`

	queryAddRightPending = `
		UPDATE accounts
		SET right_pending = right_pending + 1, version = version + 1, updated_at = ?
		WHERE id = ?
		RETURNING left_pending, right_pending`

	querySettlePair = `
		UPDATE accounts
		SET left_pending = left_pending - 1, right_pending = right_pending - 1,
		    version = version + 1, updated_at = ?
		WHERE id = ? AND left_pending >= 1 AND right_pending >= 1`

	// Genealogy queries
	queryInsertNode = `
		INSERT INTO genealogy_nodes (id, account_id, parent_node_id, position, level, settlement_value, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	queryGetNodeByAccount = `
		SELECT id, account_id, parent_node_id, position, level, settlement_value, created_at
		FROM genealogy_nodes
		WHERE account_id = ?`

	queryGetRootNode = `
		SELECT id FROM genealogy_nodes WHERE parent_node_id IS NULL LIMIT 1`

	queryGetChildAtPosition = `
		SELECT id FROM genealogy_nodes WHERE parent_node_id = ? AND position = ? LIMIT 1`

	queryGetChildren = `
		SELECT id, account_id, parent_node_id, position, level, settlement_value, created_at
		FROM genealogy_nodes
		WHERE parent_node_id = ?
		ORDER BY position`

	// Event queries
	queryClaimEvent = `
		INSERT INTO processed_events (kind, event_id, processed_at)
		VALUES (?, ?, ?)
		ON CONFLICT (kind, event_id) DO NOTHING`

	queryInsertPurchase = `
		INSERT INTO purchases (id, buyer_account_id, total_amount, paid_at, recorded_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`

	// Ledger queries
	queryInsertPairing = `
		INSERT INTO pairing_history (id, beneficiary_account_id, level, settled_value, source_node_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	queryInsertCommission = `
		INSERT INTO commission_records (id, beneficiary_account_id, purchase_id, level, amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	queryInsertIncome = `
		INSERT INTO income_history (id, account_id, amount, source, reference_id, event_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	queryGetIncomeHistory = `
		SELECT id, account_id, amount, source, reference_id, event_id, created_at
		FROM income_history
		WHERE account_id = ?
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?`

	queryGetIncomeAmountsByAccount = `
		SELECT source, amount
		FROM income_history
		WHERE account_id = ?`

	queryGetPairingHistory = `
		SELECT id, beneficiary_account_id, level, settled_value, source_node_id, created_at
		FROM pairing_history
		WHERE beneficiary_account_id = ?
		ORDER BY created_at DESC, level
		LIMIT ? OFFSET ?`

	queryGetCommissionsByAccount = `
		SELECT id, beneficiary_account_id, purchase_id, level, amount, created_at
		FROM commission_records
		WHERE beneficiary_account_id = ?
		ORDER BY created_at DESC, level
		LIMIT ? OFFSET ?`

	queryGetCommissionsByPurchase = `
		SELECT id, beneficiary_account_id, purchase_id, level, amount, created_at
		FROM commission_records
		WHERE purchase_id = ?
		ORDER BY level`

	// Reconciliation queries
	queryUnmatchedPairingIncome = `
		SELECT COUNT(*)
		FROM pairing_history p
		LEFT JOIN income_history i ON i.source = 'pairing' AND i.reference_id = p.id
		WHERE i.id IS NULL OR i.amount != p.settled_value OR i.account_id != p.beneficiary_account_id`

	queryUnmatchedCommissionIncome = `
		SELECT COUNT(*)
		FROM commission_records c
		LEFT JOIN income_history i ON i.source = 'unilevel' AND i.reference_id = c.id
		WHERE i.id IS NULL OR i.amount != c.amount OR i.account_id != c.beneficiary_account_id`

	queryOrphanIncome = `
		SELECT COUNT(*)
		FROM income_history i
		LEFT JOIN pairing_history p ON i.source = 'pairing' AND p.id = i.reference_id
		LEFT JOIN commission_records c ON i.source = 'unilevel' AND c.id = i.reference_id
		WHERE p.id IS NULL AND c.id IS NULL`

	// Maintenance queries
	queryGetMaintenance = `
		SELECT account_id, cumulative_spend, active, updated_at
		FROM maintenance_records
		WHERE account_id = ?`

	queryUpsertMaintenance = `
		INSERT INTO maintenance_records (account_id, cumulative_spend, active, purchase_count, updated_at)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT (account_id) DO UPDATE SET
			cumulative_spend = excluded.cumulative_spend,
			active = excluded.active,
			purchase_count = purchase_count + 1,
			updated_at = excluded.updated_at`
)
