package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"keeway/models"
	"keeway/pkg/explorer"
	"keeway/pkg/repository"
)

// In-memory stand-ins for the Postgres repositories and the outbound
// gateways. They honor the same sentinel errors as the real implementations.

type fakeRegistry struct {
	tokens   []models.SupportedToken
	networks []models.Network
}

func (f *fakeRegistry) GetToken(blockchain, network, symbol string) (models.SupportedToken, error) {
	for _, t := range f.tokens {
		if t.Blockchain == blockchain && t.Network == network && t.Symbol == symbol {
			return t, nil
		}
	}
	return models.SupportedToken{}, repository.ErrNotFound
}

func (f *fakeRegistry) GetTokenByID(id string) (models.SupportedToken, error) {
	for _, t := range f.tokens {
		if t.ID == id {
			return t, nil
		}
	}
	return models.SupportedToken{}, repository.ErrNotFound
}

func (f *fakeRegistry) ListVerifiedTokens() ([]models.SupportedToken, error) {
	var out []models.SupportedToken
	for _, t := range f.tokens {
		if t.Verified {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeRegistry) GetNetwork(name string) (models.Network, error) {
	for _, n := range f.networks {
		if n.Name == name {
			return n, nil
		}
	}
	return models.Network{}, repository.ErrNotFound
}

func (f *fakeRegistry) ListNetworks() ([]models.Network, error) {
	return f.networks, nil
}

type balanceUpdate struct {
	platform, onChain, received, spent decimal.Decimal
}

type fakeWalletRepo struct {
	mu        sync.Mutex
	nextIndex int64
	tokens    []models.SupportedToken
	wallets   []models.Wallet
	balances  map[string]balanceUpdate
	inactive  map[string]bool
}

func newFakeWalletRepo(wallets ...models.Wallet) *fakeWalletRepo {
	return &fakeWalletRepo{
		wallets:  wallets,
		balances: make(map[string]balanceUpdate),
		inactive: make(map[string]bool),
	}
}

func (f *fakeWalletRepo) NextWalletIndex() (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextIndex++
	return f.nextIndex, nil
}

func (f *fakeWalletRepo) CreateWallet(wallet models.Wallet) (models.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wallet.ID = uuid.NewString()
	// Mirror WalletPostgres, which hydrates the joined token row on reads.
	if wallet.Token.ID == "" {
		for _, t := range f.tokens {
			if t.ID == wallet.TokenID {
				wallet.Token = t
				break
			}
		}
	}
	f.wallets = append(f.wallets, wallet)
	return wallet, nil
}

func (f *fakeWalletRepo) GetWallet(appID, walletID string) (models.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, w := range f.wallets {
		if w.ID == walletID && w.AppID == appID {
			return w, nil
		}
	}
	return models.Wallet{}, repository.ErrNotFound
}

func (f *fakeWalletRepo) GetWalletByIndex(appID, tokenID string, index int64) (models.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, w := range f.wallets {
		if w.AppID == appID && w.TokenID == tokenID && w.Index == index {
			return w, nil
		}
	}
	return models.Wallet{}, repository.ErrNotFound
}

func (f *fakeWalletRepo) ListWallets(appID string) ([]models.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Wallet
	for _, w := range f.wallets {
		if w.AppID == appID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *fakeWalletRepo) ListActiveWallets() ([]models.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Wallet
	for _, w := range f.wallets {
		if !f.inactive[w.ID] {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *fakeWalletRepo) UpdateBalances(walletID string, platform, onChain, received, spent decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[walletID] = balanceUpdate{platform, onChain, received, spent}
	return nil
}

func (f *fakeWalletRepo) SetWalletActive(walletID string, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inactive[walletID] = !active
	return nil
}

func (f *fakeWalletRepo) appOf(walletID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, w := range f.wallets {
		if w.ID == walletID {
			return w.AppID
		}
	}
	return ""
}

type fakeTxRepo struct {
	mu      sync.Mutex
	rows    []models.Transaction
	wallets *fakeWalletRepo
}

func (f *fakeTxRepo) CreateTransaction(tx models.Transaction) (models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.WalletID == tx.WalletID && row.TxHash == tx.TxHash {
			return models.Transaction{}, repository.ErrDuplicateTransaction
		}
	}
	tx.ID = uuid.NewString()
	f.rows = append(f.rows, tx)
	return tx, nil
}

func (f *fakeTxRepo) TransactionExistsForApp(appID, txHash string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.TxHash == txHash && f.wallets != nil && f.wallets.appOf(row.WalletID) == appID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeTxRepo) Aggregates(walletID string) (decimal.Decimal, decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	received, spent := decimal.Zero, decimal.Zero
	for _, row := range f.rows {
		if row.WalletID != walletID || !row.ShouldAggregate {
			continue
		}
		if row.Type == models.TransactionCredit {
			received = received.Add(row.Amount)
		} else {
			spent = spent.Add(row.Amount)
		}
	}
	return received, spent, nil
}

func (f *fakeTxRepo) ListTransactions(walletID string) ([]models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Transaction
	for _, row := range f.rows {
		if row.WalletID == walletID {
			out = append(out, row)
		}
	}
	return out, nil
}

type fakeGateway struct {
	mu          sync.Mutex
	balances    map[string]decimal.Decimal // address -> base units
	created     map[string]bool            // salt -> factory wallet exists
	createCalls []string
	drainCalls  []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		balances: make(map[string]decimal.Decimal),
		created:  make(map[string]bool),
	}
}

func (f *fakeGateway) NativeBalance(_ context.Context, _ models.Network, address string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[address], nil
}

func (f *fakeGateway) ERC20Balance(_ context.Context, _ models.Network, _, address string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[address], nil
}

func (f *fakeGateway) DeriveAddress(_ context.Context, network models.Network, salt string) (string, error) {
	return "0xderived-" + network.Name + "-" + salt[:10], nil
}

func (f *fakeGateway) IsWalletCreated(_ context.Context, _ models.Network, salt string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created[salt], nil
}

func (f *fakeGateway) CreateWallet(_ context.Context, _ models.Network, salt string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created[salt] = true
	f.createCalls = append(f.createCalls, salt)
	return nil
}

func (f *fakeGateway) DrainNative(_ context.Context, _ models.Network, salt string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drainCalls = append(f.drainCalls, salt)
	return nil
}

func (f *fakeGateway) DrainERC20(_ context.Context, _ models.Network, salt, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drainCalls = append(f.drainCalls, salt)
	return nil
}

func (f *fakeGateway) TransferNative(_ context.Context, _ models.Network, _ string, _ decimal.Decimal) (string, error) {
	return "0xtransfer-" + uuid.NewString(), nil
}

func (f *fakeGateway) TransferERC20(_ context.Context, _ models.Network, _, _ string, _ decimal.Decimal) (string, error) {
	return "0xtransfer-" + uuid.NewString(), nil
}

func (f *fakeGateway) SendNative(_ context.Context, _ models.Network, _ string, _ decimal.Decimal) (string, error) {
	return "0xsend-" + uuid.NewString(), nil
}

func (f *fakeGateway) SendERC20(_ context.Context, _ models.Network, _, _ string, _ decimal.Decimal) (string, error) {
	return "0xsend-" + uuid.NewString(), nil
}

// fakeSource round-trips Normalized values through json so Transactions and
// Normalize behave like a real adapter. It also serves an address balance,
// like the blockstream adapter does.
type fakeSource struct {
	txs     []explorer.Normalized
	balance decimal.Decimal
}

func (f *fakeSource) Balance(_ context.Context, _ string) (decimal.Decimal, error) {
	return f.balance, nil
}

func (f *fakeSource) Transactions(_ context.Context, _ string) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(f.txs))
	for _, n := range f.txs {
		raw, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, nil
}

func (f *fakeSource) Normalize(_ context.Context, raw json.RawMessage, _ string) (explorer.Normalized, error) {
	var n explorer.Normalized
	if err := json.Unmarshal(raw, &n); err != nil {
		return explorer.Normalized{}, err
	}
	return n, nil
}

type fakeResolver struct {
	source explorer.Source
}

func (f *fakeResolver) ForNetwork(_ models.Network) (explorer.Source, error) {
	return f.source, nil
}

type fakeNotifier struct {
	events chan DepositEvent
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{events: make(chan DepositEvent, 8)}
}

func (f *fakeNotifier) Notify(_ context.Context, _, _ string, event interface{}) error {
	if e, ok := event.(DepositEvent); ok {
		f.events <- e
	}
	return nil
}

type fakeQuoter struct {
	prices map[string]decimal.Decimal // coingecko id -> usd price
}

func (f *fakeQuoter) Price(_ context.Context, coinGeckoID, _ string) (decimal.Decimal, error) {
	price, ok := f.prices[coinGeckoID]
	if !ok {
		return decimal.Zero, errors.New("no quote")
	}
	return price, nil
}

type fakeExchangeRepo struct {
	mu        sync.Mutex
	users     []models.ExchangeUser
	nextIndex int64
}

func (f *fakeExchangeRepo) CreateExchangeUser(user models.ExchangeUser) (models.ExchangeUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user.ID = uuid.NewString()
	f.users = append(f.users, user)
	return user, nil
}

func (f *fakeExchangeRepo) GetExchangeUserByID(appID, id string) (models.ExchangeUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id && u.AppID == appID {
			return u, nil
		}
	}
	return models.ExchangeUser{}, repository.ErrNotFound
}

func (f *fakeExchangeRepo) GetExchangeUserByLogin(appID, emailOrPhone string) (models.ExchangeUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.AppID == appID && (u.Email == emailOrPhone || u.Phone == emailOrPhone) {
			return u, nil
		}
	}
	return models.ExchangeUser{}, repository.ErrNotFound
}

func (f *fakeExchangeRepo) UpdateExchangeProfile(appID, id string, input models.UpdateProfileInput) (models.ExchangeUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, u := range f.users {
		if u.ID == id && u.AppID == appID {
			if input.FirstName != nil {
				f.users[i].FirstName = *input.FirstName
			}
			if input.LastName != nil {
				f.users[i].LastName = *input.LastName
			}
			if input.Username != nil {
				f.users[i].Username = *input.Username
			}
			return f.users[i], nil
		}
	}
	return models.ExchangeUser{}, repository.ErrNotFound
}

func (f *fakeExchangeRepo) UpdateExchangePassword(appID, id, hash string, invalidateSessions bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, u := range f.users {
		if u.ID == id && u.AppID == appID {
			f.users[i].Password = hash
			if invalidateSessions {
				f.users[i].LoginValidFrom = time.Now()
			}
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeExchangeRepo) MarkEmailVerified(appID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, u := range f.users {
		if u.ID == id && u.AppID == appID {
			f.users[i].VerifiedEmail = true
			f.users[i].Active = true
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeExchangeRepo) InvalidateSessions(appID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, u := range f.users {
		if u.ID == id && u.AppID == appID {
			f.users[i].LoginValidFrom = time.Now()
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeExchangeRepo) SetTotpSecret(appID, id, secret string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, u := range f.users {
		if u.ID == id && u.AppID == appID {
			f.users[i].TotpSecret = secret
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeExchangeRepo) NextExchangeUserIndex() (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextIndex++
	return f.nextIndex, nil
}
