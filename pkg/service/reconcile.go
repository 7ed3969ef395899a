package service

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"keeway/models"
	"keeway/pkg/chain"
	"keeway/pkg/explorer"
	"keeway/pkg/repository"
	"keeway/pkg/utils"
)

// Narrow views of the outbound dependencies, so tests can substitute fakes.
type sourceResolver interface {
	ForNetwork(network models.Network) (explorer.Source, error)
}

type notifier interface {
	Notify(ctx context.Context, webhookURL, secretKey string, event interface{}) error
}

type mailSender interface {
	Send(to, subject, htmlBody string) error
}

// DepositEvent is the webhook payload for a newly credited deposit.
type DepositEvent struct {
	Reference       string `json:"reference"`
	Status          string `json:"status"`
	TestMode        bool   `json:"testMode"`
	Token           string `json:"token"`
	Amount          string `json:"amount"`
	Blockchain      string `json:"blockchain"`
	Network         string `json:"network"`
	WalletReference string `json:"walletReference"`
	Timestamp       int64  `json:"timestamp"`
}

// ReconcileService turns raw explorer transactions into ledger entries and
// keeps wallet balances equal to the ledger's sums.
type ReconcileService struct {
	repos     *repository.Repository
	chain     chain.Gateway
	explorers sourceResolver
	webhooks  notifier
	mailer    mailSender
	testMode  bool
}

// NewReconcileService wires the reconciler. webhooks and mailer may be nil to
// disable the corresponding side effect; testMode is stamped on every webhook
// payload so consumers can tell testnet deposits from real money.
func NewReconcileService(repos *repository.Repository, gateway chain.Gateway, explorers sourceResolver, webhooks notifier, mailer mailSender, testMode bool) *ReconcileService {
	return &ReconcileService{repos: repos, chain: gateway, explorers: explorers, webhooks: webhooks, mailer: mailer, testMode: testMode}
}

// ScanAll runs one scan cycle over every active wallet. A single wallet's
// failure is logged and never aborts the rest of the cycle.
func (s *ReconcileService) ScanAll(ctx context.Context) error {
	wallets, err := s.repos.ListActiveWallets()
	if err != nil {
		return err
	}

	for _, wallet := range wallets {
		if wallet.ExpiresAt != nil && wallet.ExpiresAt.Before(time.Now()) {
			if err := s.repos.SetWalletActive(wallet.ID, false); err != nil {
				logrus.WithError(err).WithField("wallet", wallet.ID).Error("deactivate expired wallet")
			}
			continue
		}
		if _, err := s.ScanWallet(ctx, wallet); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"wallet":  wallet.ID,
				"address": wallet.Address,
			}).Error("scan wallet")
		}
	}
	return nil
}

// ScanWallet fetches the wallet's full transaction history, records every new
// confirmed credit, and refreshes balances. Returns how many entries were
// recorded.
func (s *ReconcileService) ScanWallet(ctx context.Context, wallet models.Wallet) (int, error) {
	network, err := s.repos.GetNetwork(wallet.Token.Network)
	if err != nil {
		return 0, err
	}
	source, err := s.explorers.ForNetwork(network)
	if err != nil {
		return 0, err
	}

	raws, err := source.Transactions(ctx, wallet.Address)
	if err != nil {
		return 0, err
	}

	recorded := 0
	for _, raw := range raws {
		normalized, err := source.Normalize(ctx, raw, wallet.Address)
		if err != nil {
			logrus.WithError(err).WithField("wallet", wallet.ID).Warn("normalize transaction")
			continue
		}
		tx, applied, err := s.apply(wallet, normalized)
		if err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"wallet": wallet.ID,
				"hash":   normalized.Hash,
			}).Error("record transaction")
			continue
		}
		if applied {
			recorded++
			s.fireSideEffects(wallet, network, tx)
		}
	}

	if err := s.refreshBalances(ctx, wallet, network); err != nil {
		return recorded, err
	}
	return recorded, nil
}

// apply runs the guard chain for one normalized transaction. Guard rejections
// are normal negative results, not errors.
func (s *ReconcileService) apply(wallet models.Wallet, n explorer.Normalized) (models.Transaction, bool, error) {
	if n.Type != models.TransactionCredit {
		return models.Transaction{}, false, nil
	}
	if !strings.EqualFold(n.Token, wallet.Token.Symbol) {
		return models.Transaction{}, false, nil
	}
	if !n.Amount.IsPositive() {
		return models.Transaction{}, false, nil
	}
	// Unconfirmed transactions are picked up by a later cycle.
	if !n.Confirmed {
		return models.Transaction{}, false, nil
	}

	// One on-chain transaction can pay several deposit addresses of the same
	// app; the hash is checked app-wide so it is credited only once.
	exists, err := s.repos.TransactionExistsForApp(wallet.AppID, n.Hash)
	if err != nil {
		return models.Transaction{}, false, err
	}
	if exists {
		return models.Transaction{}, false, nil
	}

	tx, err := s.repos.CreateTransaction(models.Transaction{
		WalletID:        wallet.ID,
		Amount:          n.Amount,
		Type:            models.TransactionCredit,
		TxHash:          n.Hash,
		Metadata:        n.Raw,
		Confirmed:       true,
		ShouldAggregate: true,
	})
	// A concurrent cycle won the insert race; the unique index makes this a
	// duplicate, not a failure.
	if errors.Is(err, repository.ErrDuplicateTransaction) {
		return models.Transaction{}, false, nil
	}
	if err != nil {
		return models.Transaction{}, false, err
	}
	return tx, true, nil
}

// refreshBalances recomputes the ledger sums and re-reads the on-chain
// balance. platform_balance always equals total_received - total_spent.
func (s *ReconcileService) refreshBalances(ctx context.Context, wallet models.Wallet, network models.Network) error {
	received, spent, err := s.repos.Aggregates(wallet.ID)
	if err != nil {
		return err
	}
	platform := received.Sub(spent)

	onChain, err := s.onChainBalance(ctx, wallet, network)
	if err != nil {
		// Keep ledger sums fresh even when the RPC is down.
		logrus.WithError(err).WithField("wallet", wallet.ID).Warn("on-chain balance unavailable")
		onChain = wallet.OnChainBalance
	}

	return s.repos.UpdateBalances(wallet.ID, platform, onChain, received, spent)
}

func (s *ReconcileService) onChainBalance(ctx context.Context, wallet models.Wallet, network models.Network) (decimal.Decimal, error) {
	if network.Blockchain == "bitcoin" {
		return explorerBalance(ctx, s.explorers, network, wallet.Address)
	}
	token := wallet.Token
	if token.IsNativeToken {
		return s.chain.NativeBalance(ctx, network, wallet.Address)
	}
	if token.ContractAddress == nil {
		return decimal.Zero, errors.Errorf("token %s has no contract address", token.Symbol)
	}
	return s.chain.ERC20Balance(ctx, network, *token.ContractAddress, wallet.Address)
}

// explorerBalance reads an address balance through the network's explorer.
// UTXO chains have no RPC gateway, so this is their only balance path.
func explorerBalance(ctx context.Context, explorers sourceResolver, network models.Network, address string) (decimal.Decimal, error) {
	source, err := explorers.ForNetwork(network)
	if err != nil {
		return decimal.Zero, err
	}
	reader, ok := source.(explorer.BalanceReader)
	if !ok {
		return decimal.Zero, errors.Errorf("service: no balance source for network %s", network.Name)
	}
	return reader.Balance(ctx, address)
}

// fireSideEffects delivers the webhook and deposit email without ever
// blocking or failing the scan cycle.
func (s *ReconcileService) fireSideEffects(wallet models.Wallet, network models.Network, tx models.Transaction) {
	event := DepositEvent{
		Reference:       tx.ID,
		Status:          "PAYMENT_RECEIVED",
		TestMode:        s.testMode,
		Token:           wallet.Token.Symbol,
		Amount:          tx.Amount.Shift(-wallet.Token.Decimals).String(),
		Blockchain:      network.Blockchain,
		Network:         network.Name,
		WalletReference: wallet.ID,
		Timestamp:       time.Now().Unix(),
	}

	if s.webhooks != nil && wallet.App.WebhookURL != "" {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := s.webhooks.Notify(ctx, wallet.App.WebhookURL, wallet.App.SecretKey, event); err != nil {
				logrus.WithError(err).WithField("wallet", wallet.ID).Warn("webhook delivery")
			}
		}()
	}

	if s.mailer != nil && wallet.ContactEmail != nil {
		to := *wallet.ContactEmail
		go func() {
			subject, body := utils.DepositEmail(wallet.App.DisplayName, wallet.App.SupportEmail, event.Amount, event.Token, wallet.Address)
			if err := s.mailer.Send(to, subject, body); err != nil {
				logrus.WithError(err).WithField("wallet", wallet.ID).Warn("deposit email")
			}
		}()
	}
}
