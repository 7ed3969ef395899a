package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	TransactionCredit = "credit"
	TransactionDebit  = "debit"
)

// Transaction is one ledger entry: a detected on-chain transfer credited or
// debited against a Wallet. TxHash is the dedupe key; a partial unique index
// on (wallet_id, tx_hash) guarantees at most one row per hash even when scan
// cycles overlap.
type Transaction struct {
	ID              string          `db:"id" json:"id"`
	WalletID        string          `db:"wallet_id" json:"walletReference"`
	Amount          decimal.Decimal `db:"amount" json:"amount"`
	Type            string          `db:"type" json:"type"`
	TxHash          string          `db:"tx_hash" json:"txHash"`
	Metadata        json.RawMessage `db:"metadata" json:"metadata"`
	Confirmed       bool            `db:"confirmed" json:"confirmed"`
	ShouldAggregate bool            `db:"should_aggregate" json:"-"`
	IsDeleted       bool            `db:"is_deleted" json:"-"`
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updatedAt"`
}
