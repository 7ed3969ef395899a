package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keeway/models"
	"keeway/pkg/explorer"
	"keeway/pkg/repository"
)

func testWallet() models.Wallet {
	token := models.SupportedToken{
		ID:            "tok-eth",
		Blockchain:    "ethereum",
		Network:       "goerli",
		Symbol:        "ETH",
		Decimals:      18,
		IsNativeToken: true,
		Verified:      true,
	}
	return models.Wallet{
		ID:      "w1",
		AppID:   "a1",
		TokenID: token.ID,
		Address: "0xDeposit00000000000000000000000000000001",
		Index:   7,
		Active:  true,
		Token:   token,
		App:     models.App{ID: "a1", Name: "acme", DisplayName: "Acme", SecretKey: "top-secret", Active: true},
	}
}

func newReconcileHarness(wallet models.Wallet, txs []explorer.Normalized) (*ReconcileService, *fakeTxRepo, *fakeWalletRepo, *fakeGateway) {
	walletRepo := newFakeWalletRepo(wallet)
	txRepo := &fakeTxRepo{wallets: walletRepo}
	gateway := newFakeGateway()
	repos := &repository.Repository{
		Registry:    &fakeRegistry{networks: []models.Network{{Name: "goerli", Blockchain: "ethereum", ChainID: 5}}},
		Wallet:      walletRepo,
		Transaction: txRepo,
	}
	svc := NewReconcileService(repos, gateway, &fakeResolver{source: &fakeSource{txs: txs}}, nil, nil, false)
	return svc, txRepo, walletRepo, gateway
}

func credit(hash, amount string) explorer.Normalized {
	return explorer.Normalized{
		Hash:      hash,
		Amount:    decimal.RequireFromString(amount),
		Type:      models.TransactionCredit,
		Token:     "ETH",
		Confirmed: true,
	}
}

func TestScanWalletRecordsCreditsAndBalances(t *testing.T) {
	wallet := testWallet()
	svc, txRepo, walletRepo, gateway := newReconcileHarness(wallet, []explorer.Normalized{
		credit("0xh1", "100"),
		credit("0xh2", "50"),
	})

	// A prior spend already sits in the ledger.
	_, err := txRepo.CreateTransaction(models.Transaction{
		WalletID: wallet.ID, Amount: decimal.NewFromInt(30),
		Type: models.TransactionDebit, TxHash: "0xspend", ShouldAggregate: true,
	})
	require.NoError(t, err)

	gateway.balances[wallet.Address] = decimal.NewFromInt(1000)

	recorded, err := svc.ScanWallet(context.Background(), wallet)
	require.NoError(t, err)
	assert.Equal(t, 2, recorded)
	assert.Len(t, txRepo.rows, 3)

	got := walletRepo.balances[wallet.ID]
	assert.Equal(t, "150", got.received.String())
	assert.Equal(t, "30", got.spent.String())
	assert.Equal(t, "120", got.platform.String())
	assert.Equal(t, "1000", got.onChain.String())
	assert.True(t, got.platform.Equal(got.received.Sub(got.spent)))
}

func TestScanWalletGuards(t *testing.T) {
	wallet := testWallet()
	svc, txRepo, _, _ := newReconcileHarness(wallet, []explorer.Normalized{
		{Hash: "0xdebit", Amount: decimal.NewFromInt(10), Type: models.TransactionDebit, Token: "ETH", Confirmed: true},
		{Hash: "0xwrongtoken", Amount: decimal.NewFromInt(10), Type: models.TransactionCredit, Token: "USDC", Confirmed: true},
		{Hash: "0xzero", Amount: decimal.Zero, Type: models.TransactionCredit, Token: "ETH", Confirmed: true},
		{Hash: "0xpending", Amount: decimal.NewFromInt(10), Type: models.TransactionCredit, Token: "ETH", Confirmed: false},
	})

	recorded, err := svc.ScanWallet(context.Background(), wallet)
	require.NoError(t, err)
	assert.Zero(t, recorded)
	assert.Empty(t, txRepo.rows)
}

func TestScanWalletTokenMatchIsCaseInsensitive(t *testing.T) {
	wallet := testWallet()
	n := credit("0xcase", "5")
	n.Token = "eth"
	svc, txRepo, _, _ := newReconcileHarness(wallet, []explorer.Normalized{n})

	recorded, err := svc.ScanWallet(context.Background(), wallet)
	require.NoError(t, err)
	assert.Equal(t, 1, recorded)
	assert.Len(t, txRepo.rows, 1)
}

func TestScanWalletDeduplicatesByHash(t *testing.T) {
	wallet := testWallet()
	svc, txRepo, walletRepo, _ := newReconcileHarness(wallet, []explorer.Normalized{
		credit("0xsame", "100"),
		credit("0xsame", "100"),
	})

	recorded, err := svc.ScanWallet(context.Background(), wallet)
	require.NoError(t, err)
	assert.Equal(t, 1, recorded)
	assert.Len(t, txRepo.rows, 1)

	// A second full cycle over the same history records nothing new and
	// leaves balances untouched.
	recorded, err = svc.ScanWallet(context.Background(), wallet)
	require.NoError(t, err)
	assert.Zero(t, recorded)
	assert.Len(t, txRepo.rows, 1)
	assert.Equal(t, "100", walletRepo.balances[wallet.ID].platform.String())
}

func TestScanWalletSkipsHashRecordedForSiblingWallet(t *testing.T) {
	// One transaction pays two deposit addresses of the same app. Whichever
	// wallet is scanned first takes the credit; the other sees a duplicate.
	first := testWallet()
	second := testWallet()
	second.ID = "w2"
	second.Address = "0xDeposit00000000000000000000000000000002"
	second.Index = 8

	walletRepo := newFakeWalletRepo(first, second)
	txRepo := &fakeTxRepo{wallets: walletRepo}
	repos := &repository.Repository{
		Registry:    &fakeRegistry{networks: []models.Network{{Name: "goerli", Blockchain: "ethereum", ChainID: 5}}},
		Wallet:      walletRepo,
		Transaction: txRepo,
	}
	source := &fakeSource{txs: []explorer.Normalized{credit("0xshared", "25")}}
	svc := NewReconcileService(repos, newFakeGateway(), &fakeResolver{source: source}, nil, nil, false)

	recorded, err := svc.ScanWallet(context.Background(), first)
	require.NoError(t, err)
	assert.Equal(t, 1, recorded)

	recorded, err = svc.ScanWallet(context.Background(), second)
	require.NoError(t, err)
	assert.Zero(t, recorded)
	assert.Len(t, txRepo.rows, 1)
}

func TestScanWalletBitcoinBalanceFromExplorer(t *testing.T) {
	token := models.SupportedToken{
		ID: "tok-btc", Blockchain: "bitcoin", Network: "bitcoin-testnet",
		Symbol: "BTC", Decimals: 8, IsNativeToken: true, Verified: true,
	}
	wallet := models.Wallet{
		ID: "wbtc", AppID: "a1", TokenID: token.ID,
		Address: "tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx",
		Index:   9, Active: true, Token: token,
		App: models.App{ID: "a1", Active: true},
	}

	walletRepo := newFakeWalletRepo(wallet)
	txRepo := &fakeTxRepo{wallets: walletRepo}
	repos := &repository.Repository{
		Registry:    &fakeRegistry{networks: []models.Network{{Name: "bitcoin-testnet", Blockchain: "bitcoin"}}},
		Wallet:      walletRepo,
		Transaction: txRepo,
	}
	source := &fakeSource{
		txs:     []explorer.Normalized{{Hash: "btc1", Amount: decimal.NewFromInt(20000000), Type: models.TransactionCredit, Token: "btc", Confirmed: true}},
		balance: decimal.NewFromInt(20000000),
	}
	svc := NewReconcileService(repos, newFakeGateway(), &fakeResolver{source: source}, nil, nil, false)

	recorded, err := svc.ScanWallet(context.Background(), wallet)
	require.NoError(t, err)
	assert.Equal(t, 1, recorded)

	// The gateway cannot serve bitcoin; the explorer reports the balance.
	got := walletRepo.balances[wallet.ID]
	assert.Equal(t, "20000000", got.onChain.String())
	assert.Equal(t, "20000000", got.platform.String())
}

func TestDepositWebhookCarriesTestModeFlag(t *testing.T) {
	wallet := testWallet()
	wallet.App.WebhookURL = "https://acme.example/hooks"

	walletRepo := newFakeWalletRepo(wallet)
	txRepo := &fakeTxRepo{wallets: walletRepo}
	repos := &repository.Repository{
		Registry:    &fakeRegistry{networks: []models.Network{{Name: "goerli", Blockchain: "ethereum", ChainID: 5}}},
		Wallet:      walletRepo,
		Transaction: txRepo,
	}
	source := &fakeSource{txs: []explorer.Normalized{credit("0xtest", "5000000000000000000")}}
	hooks := newFakeNotifier()
	svc := NewReconcileService(repos, newFakeGateway(), &fakeResolver{source: source}, hooks, nil, true)

	_, err := svc.ScanWallet(context.Background(), wallet)
	require.NoError(t, err)

	select {
	case event := <-hooks.events:
		assert.True(t, event.TestMode)
		assert.Equal(t, "PAYMENT_RECEIVED", event.Status)
		assert.Equal(t, "5", event.Amount)
	case <-time.After(2 * time.Second):
		t.Fatal("webhook was not delivered")
	}
}

func TestScanAllDeactivatesExpiredWallets(t *testing.T) {
	wallet := testWallet()
	expired := time.Now().Add(-time.Hour)
	wallet.ExpiresAt = &expired

	svc, txRepo, walletRepo, _ := newReconcileHarness(wallet, []explorer.Normalized{credit("0xlate", "9")})

	require.NoError(t, svc.ScanAll(context.Background()))
	assert.True(t, walletRepo.inactive[wallet.ID])
	assert.Empty(t, txRepo.rows)
}
