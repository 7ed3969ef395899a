package repository

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"keeway/models"
)

type WalletPostgres struct {
	db *sqlx.DB
}

func NewWalletPostgres(db *sqlx.DB) *WalletPostgres {
	return &WalletPostgres{db: db}
}

// NextWalletIndex allocates one index from the global derivation sequence.
// Indexes are never reused, even for deleted wallets.
func (r *WalletPostgres) NextWalletIndex() (int64, error) {
	var index int64
	if err := r.db.Get(&index, `SELECT nextval('wallet_index_seq')`); err != nil {
		return 0, errors.Wrap(err, "next wallet index")
	}
	return index, nil
}

func (r *WalletPostgres) CreateWallet(wallet models.Wallet) (models.Wallet, error) {
	var created models.Wallet
	query := `INSERT INTO wallet
			(app_id, token_id, address, index, contact_name, contact_email, contact_phone, target_amount, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING *`
	err := r.db.Get(&created, query,
		wallet.AppID, wallet.TokenID, wallet.Address, wallet.Index,
		wallet.ContactName, wallet.ContactEmail, wallet.ContactPhone,
		wallet.TargetAmount, wallet.ExpiresAt)
	if err != nil {
		return models.Wallet{}, errors.Wrap(err, "create wallet")
	}
	return r.hydrate(created)
}

func (r *WalletPostgres) GetWallet(appID, walletID string) (models.Wallet, error) {
	var wallet models.Wallet
	query := `SELECT * FROM wallet WHERE id = $1 AND app_id = $2 AND NOT is_deleted`
	if err := r.db.Get(&wallet, query, walletID, appID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Wallet{}, ErrNotFound
		}
		return models.Wallet{}, errors.Wrap(err, "get wallet")
	}
	return r.hydrate(wallet)
}

func (r *WalletPostgres) GetWalletByIndex(appID, tokenID string, index int64) (models.Wallet, error) {
	var wallet models.Wallet
	query := `SELECT * FROM wallet WHERE app_id = $1 AND token_id = $2 AND index = $3 AND NOT is_deleted`
	if err := r.db.Get(&wallet, query, appID, tokenID, index); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Wallet{}, ErrNotFound
		}
		return models.Wallet{}, errors.Wrap(err, "get wallet by index")
	}
	return r.hydrate(wallet)
}

func (r *WalletPostgres) ListWallets(appID string) ([]models.Wallet, error) {
	var wallets []models.Wallet
	query := `SELECT * FROM wallet WHERE app_id = $1 AND NOT is_deleted ORDER BY created_at DESC`
	if err := r.db.Select(&wallets, query, appID); err != nil {
		return nil, errors.Wrap(err, "list wallets")
	}
	return r.hydrateAll(wallets)
}

// ListActiveWallets returns every scannable wallet across all apps, reference
// data attached. This is the scan cycle's work list.
func (r *WalletPostgres) ListActiveWallets() ([]models.Wallet, error) {
	var wallets []models.Wallet
	query := `SELECT w.* FROM wallet w
		JOIN app a ON a.id = w.app_id
		WHERE w.active AND NOT w.is_deleted AND a.active AND NOT a.is_deleted
		ORDER BY w.created_at`
	if err := r.db.Select(&wallets, query); err != nil {
		return nil, errors.Wrap(err, "list active wallets")
	}
	return r.hydrateAll(wallets)
}

func (r *WalletPostgres) UpdateBalances(walletID string, platform, onChain, received, spent decimal.Decimal) error {
	query := `UPDATE wallet SET
			platform_balance = $2, on_chain_balance = $3,
			total_received = $4, total_spent = $5,
			updated_at = now()
		WHERE id = $1`
	result, err := r.db.Exec(query, walletID, platform, onChain, received, spent)
	if err != nil {
		return errors.Wrap(err, "update balances")
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *WalletPostgres) SetWalletActive(walletID string, active bool) error {
	result, err := r.db.Exec(`UPDATE wallet SET active = $2, updated_at = now() WHERE id = $1 AND NOT is_deleted`, walletID, active)
	if err != nil {
		return errors.Wrap(err, "set wallet active")
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *WalletPostgres) hydrate(wallet models.Wallet) (models.Wallet, error) {
	hydrated, err := r.hydrateAll([]models.Wallet{wallet})
	if err != nil {
		return models.Wallet{}, err
	}
	return hydrated[0], nil
}

// hydrateAll attaches the joined token and app rows. Reference tables are
// small, so they are loaded once per call rather than per wallet.
func (r *WalletPostgres) hydrateAll(wallets []models.Wallet) ([]models.Wallet, error) {
	if len(wallets) == 0 {
		return wallets, nil
	}

	var tokens []models.SupportedToken
	if err := r.db.Select(&tokens, `SELECT * FROM supported_token`); err != nil {
		return nil, errors.Wrap(err, "hydrate tokens")
	}
	tokenByID := make(map[string]models.SupportedToken, len(tokens))
	for _, t := range tokens {
		tokenByID[t.ID] = t
	}

	var apps []models.App
	if err := r.db.Select(&apps, `SELECT * FROM app`); err != nil {
		return nil, errors.Wrap(err, "hydrate apps")
	}
	appByID := make(map[string]models.App, len(apps))
	for _, a := range apps {
		appByID[a.ID] = a
	}

	for i := range wallets {
		token, ok := tokenByID[wallets[i].TokenID]
		if !ok {
			return nil, errors.Errorf("wallet %s references unknown token %s", wallets[i].ID, wallets[i].TokenID)
		}
		app, ok := appByID[wallets[i].AppID]
		if !ok {
			return nil, errors.Errorf("wallet %s references unknown app %s", wallets[i].ID, wallets[i].AppID)
		}
		wallets[i].Token = token
		wallets[i].App = app
	}
	return wallets, nil
}
