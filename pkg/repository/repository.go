package repository

import (
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"keeway/models"
)

var (
	ErrNotFound = errors.New("repository: not found")

	// ErrDuplicateTransaction surfaces the (wallet_id, tx_hash) uniqueness
	// violation. Overlapping scan cycles treat it as "already recorded".
	ErrDuplicateTransaction = errors.New("repository: transaction already recorded")
)

type App interface {
	CreateApp(input models.CreateAppInput, apiKey, secretKey string) (models.App, error)
	GetAppByAPIKey(apiKey string) (models.App, error)
	GetAppByID(id string) (models.App, error)
	UpdateApp(id string, input models.UpdateAppInput) (models.App, error)
	DeleteApp(id string) error
}

type Registry interface {
	GetToken(blockchain, network, symbol string) (models.SupportedToken, error)
	GetTokenByID(id string) (models.SupportedToken, error)
	ListVerifiedTokens() ([]models.SupportedToken, error)
	GetNetwork(name string) (models.Network, error)
	ListNetworks() ([]models.Network, error)
}

type Wallet interface {
	NextWalletIndex() (int64, error)
	CreateWallet(wallet models.Wallet) (models.Wallet, error)
	GetWallet(appID, walletID string) (models.Wallet, error)
	GetWalletByIndex(appID, tokenID string, index int64) (models.Wallet, error)
	ListWallets(appID string) ([]models.Wallet, error)
	ListActiveWallets() ([]models.Wallet, error)
	UpdateBalances(walletID string, platform, onChain, received, spent decimal.Decimal) error
	SetWalletActive(walletID string, active bool) error
}

type Transaction interface {
	CreateTransaction(tx models.Transaction) (models.Transaction, error)
	TransactionExistsForApp(appID, txHash string) (bool, error)
	Aggregates(walletID string) (received, spent decimal.Decimal, err error)
	ListTransactions(walletID string) ([]models.Transaction, error)
}

type Exchange interface {
	CreateExchangeUser(user models.ExchangeUser) (models.ExchangeUser, error)
	GetExchangeUserByID(appID, id string) (models.ExchangeUser, error)
	GetExchangeUserByLogin(appID, emailOrPhone string) (models.ExchangeUser, error)
	UpdateExchangeProfile(appID, id string, input models.UpdateProfileInput) (models.ExchangeUser, error)
	UpdateExchangePassword(appID, id, hash string, invalidateSessions bool) error
	MarkEmailVerified(appID, id string) error
	InvalidateSessions(appID, id string) error
	SetTotpSecret(appID, id, secret string) error
	NextExchangeUserIndex() (int64, error)
}

type Repository struct {
	App
	Registry
	Wallet
	Transaction
	Exchange
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{
		App:         NewAppPostgres(db),
		Registry:    NewRegistryPostgres(db),
		Wallet:      NewWalletPostgres(db),
		Transaction: NewTransactionPostgres(db),
		Exchange:    NewExchangePostgres(db),
	}
}
