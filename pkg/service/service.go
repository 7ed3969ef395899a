package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"keeway/models"
	"keeway/pkg/chain"
	"keeway/pkg/explorer"
	"keeway/pkg/pricing"
	"keeway/pkg/repository"
	"keeway/pkg/utils"
	"keeway/pkg/webhook"
)

type App interface {
	CreateApp(input models.CreateAppInput) (models.App, Credentials, error)
	GetApp(id string) (models.App, error)
	UpdateApp(id string, input models.UpdateAppInput) (models.App, error)
	DeleteApp(id string) error
	AuthenticateApp(apiKey string) (models.App, error)
}

type Misc interface {
	ListSupportedTokens() ([]models.SupportedToken, error)
	ListNetworks() ([]models.Network, error)
	TokenPrice(ctx context.Context, blockchain, network, symbol, currency string) (decimal.Decimal, error)
}

type Wallet interface {
	GenerateWallet(ctx context.Context, app models.App, input models.GenerateWalletInput) (models.WalletView, error)
	GetWallet(app models.App, walletID string) (models.WalletView, error)
	ListWallets(app models.App) ([]models.WalletView, error)
	WalletTransactions(app models.App, walletID string) ([]models.Transaction, error)
	Balance(ctx context.Context, app models.App, blockchain, network, token, address string) (models.BalanceView, error)
	SendCrypto(ctx context.Context, app models.App, input models.SendCryptoInput) (string, error)
}

type Reconciler interface {
	ScanWallet(ctx context.Context, wallet models.Wallet) (int, error)
	ScanAll(ctx context.Context) error
}

type Drainer interface {
	DrainWallet(ctx context.Context, wallet models.Wallet) error
	DrainAll(ctx context.Context) error
}

type Exchange interface {
	SignUp(app models.App, input models.SignUpInput) (models.ExchangeUser, error)
	SignIn(app models.App, input models.SignInInput) (string, error)
	VerifyEmail(app models.App, input models.VerifyInput) error
	InitiateReset(app models.App, input models.InitiateResetInput) error
	VerifyReset(app models.App, input models.VerifyInput) error
	ResetPassword(app models.App, input models.ResetPasswordInput) error
	SignOut(app models.App, userID string) error
	ParseToken(app models.App, token string) (models.ExchangeUser, error)
	UpdateProfile(app models.App, userID string, input models.UpdateProfileInput) (models.ExchangeUser, error)
	UpdatePassword(app models.App, userID string, input models.UpdatePasswordInput) error
	SetupTotp(app models.App, userID string) (TotpSetup, error)
	ValidateTotp(app models.App, userID string, input models.ValidateTotpInput) (bool, error)
	UserWallets(ctx context.Context, app models.App, userID string) ([]models.WalletView, error)
	UserTransactions(app models.App, userID string) ([]models.Transaction, error)
	UserSend(ctx context.Context, app models.App, userID string, input models.SendCryptoInput, totpToken string) (string, error)
}

// Credentials are returned exactly once, at app creation.
type Credentials struct {
	APIKey    string `json:"apiKey"`
	SecretKey string `json:"secretKey"`
}

type TotpSetup struct {
	Secret string `json:"secret"`
	URL    string `json:"url"`
}

type AuthConfig struct {
	SigningKey string
	TokenTTL   time.Duration
	Issuer     string
}

type Deps struct {
	Repos     *repository.Repository
	Chain     chain.Gateway
	Explorers *explorer.Registry
	Webhooks  *webhook.Sender
	Mailer    *utils.Mailer
	Pricing   *pricing.CoinGecko
	Auth      AuthConfig
	TestMode  bool
}

type Service struct {
	App
	Misc
	Wallet
	Reconciler
	Drainer
	Exchange
}

func NewService(deps Deps) *Service {
	// A typed nil pointer must not end up inside a non-nil interface, so the
	// optional side-effect deps are converted here.
	var webhooks notifier
	if deps.Webhooks != nil {
		webhooks = deps.Webhooks
	}
	var mail mailSender
	if deps.Mailer != nil {
		mail = deps.Mailer
	}
	var prices priceQuoter
	if deps.Pricing != nil {
		prices = deps.Pricing
	}

	return &Service{
		App:        NewAppService(deps.Repos),
		Misc:       NewMiscService(deps.Repos, prices),
		Wallet:     NewWalletService(deps.Repos, deps.Chain, deps.Explorers, prices),
		Reconciler: NewReconcileService(deps.Repos, deps.Chain, deps.Explorers, webhooks, mail, deps.TestMode),
		Drainer:    NewDrainService(deps.Repos, deps.Chain),
		Exchange:   NewExchangeService(deps.Repos, deps.Chain, mail, prices, deps.Auth),
	}
}
