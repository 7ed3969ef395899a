package repository

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"keeway/models"
)

const uniqueViolation = "23505"

type TransactionPostgres struct {
	db *sqlx.DB
}

func NewTransactionPostgres(db *sqlx.DB) *TransactionPostgres {
	return &TransactionPostgres{db: db}
}

// CreateTransaction inserts one ledger entry. The partial unique index on
// (wallet_id, tx_hash) is the last line of defense against double recording;
// a violation comes back as ErrDuplicateTransaction.
func (r *TransactionPostgres) CreateTransaction(tx models.Transaction) (models.Transaction, error) {
	var created models.Transaction
	query := `INSERT INTO transaction
			(wallet_id, amount, type, tx_hash, metadata, confirmed, should_aggregate)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING *`
	err := r.db.Get(&created, query,
		tx.WalletID, tx.Amount, tx.Type, tx.TxHash, tx.Metadata, tx.Confirmed, tx.ShouldAggregate)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return models.Transaction{}, ErrDuplicateTransaction
		}
		return models.Transaction{}, errors.Wrap(err, "create transaction")
	}
	return created, nil
}

// TransactionExistsForApp checks the hash across every wallet of the app. One
// on-chain transaction can pay several deposit addresses of the same app and
// must still be credited once.
func (r *TransactionPostgres) TransactionExistsForApp(appID, txHash string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (
		SELECT 1 FROM transaction t
		JOIN wallet w ON w.id = t.wallet_id
		WHERE w.app_id = $1 AND t.tx_hash = $2 AND NOT t.is_deleted
	)`
	if err := r.db.Get(&exists, query, appID, txHash); err != nil {
		return false, errors.Wrap(err, "transaction exists")
	}
	return exists, nil
}

// Aggregates recomputes total credits and debits from the ledger itself.
// Only rows flagged should_aggregate count toward balances.
func (r *TransactionPostgres) Aggregates(walletID string) (decimal.Decimal, decimal.Decimal, error) {
	var row struct {
		Received decimal.Decimal `db:"received"`
		Spent    decimal.Decimal `db:"spent"`
	}
	query := `SELECT
			COALESCE(SUM(amount) FILTER (WHERE type = 'credit'), 0) AS received,
			COALESCE(SUM(amount) FILTER (WHERE type = 'debit'), 0) AS spent
		FROM transaction
		WHERE wallet_id = $1 AND should_aggregate AND NOT is_deleted`
	if err := r.db.Get(&row, query, walletID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, decimal.Zero, nil
		}
		return decimal.Zero, decimal.Zero, errors.Wrap(err, "aggregates")
	}
	return row.Received, row.Spent, nil
}

func (r *TransactionPostgres) ListTransactions(walletID string) ([]models.Transaction, error) {
	var txs []models.Transaction
	query := `SELECT * FROM transaction WHERE wallet_id = $1 AND NOT is_deleted ORDER BY created_at DESC`
	if err := r.db.Select(&txs, query, walletID); err != nil {
		return nil, errors.Wrap(err, "list transactions")
	}
	return txs, nil
}
