package engine

import (
	"fmt"

	"github.com/google/uuid"
)

// ledgerNamespace seeds the name-based ids of ledger rows so that the same
// event always produces the same row ids.
var ledgerNamespace = uuid.MustParse("6f1c3a8e-2d4b-5c7e-9a10-b2c3d4e5f607")

func pairingRecordId(nodeId, beneficiaryId string) string {
	return uuid.NewSHA1(ledgerNamespace, []byte(fmt.Sprintf("pairing:%s:%s", nodeId, beneficiaryId))).String()
}

func commissionRecordId(purchaseId string, level int) string {
	return uuid.NewSHA1(ledgerNamespace, []byte(fmt.Sprintf("unilevel:%s:%d", purchaseId, level))).String()
}

func incomeRecordId(referenceId string) string {
	return uuid.NewSHA1(ledgerNamespace, []byte("income:"+referenceId)).String()
}
