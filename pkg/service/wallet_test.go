package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keeway/models"
	"keeway/pkg/repository"
)

func TestBalanceBitcoinReadsExplorer(t *testing.T) {
	repos := &repository.Repository{
		Registry: &fakeRegistry{
			tokens: []models.SupportedToken{
				{ID: "tok-btc", Blockchain: "bitcoin", Network: "bitcoin-testnet", Symbol: "BTC", Decimals: 8, IsNativeToken: true, CoinGeckoID: "bitcoin", Verified: true},
			},
			networks: []models.Network{{Name: "bitcoin-testnet", Blockchain: "bitcoin"}},
		},
	}
	source := &fakeSource{balance: decimal.NewFromInt(150000000)}
	svc := NewWalletService(repos, newFakeGateway(), &fakeResolver{source: source}, nil)

	app := models.App{ID: "a1", Active: true}
	view, err := svc.Balance(context.Background(), app, "bitcoin", "bitcoin-testnet", "BTC", "tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx")
	require.NoError(t, err)
	assert.Equal(t, "1.5", view.Balance.String())
	assert.Empty(t, view.FiatCurrency)
}

func TestBalanceQuotesFiat(t *testing.T) {
	usdc := "0xC0ffee0000000000000000000000000000000001"
	repos := &repository.Repository{
		Registry: &fakeRegistry{
			tokens: []models.SupportedToken{
				{ID: "tok-usdc", Blockchain: "ethereum", Network: "goerli", Symbol: "USDC", Decimals: 6, ContractAddress: &usdc, CoinGeckoID: "usd-coin", Verified: true},
			},
			networks: []models.Network{{Name: "goerli", Blockchain: "ethereum", ChainID: 5}},
		},
	}
	gateway := newFakeGateway()
	gateway.balances["0xholder"] = decimal.New(250, 6)
	prices := &fakeQuoter{prices: map[string]decimal.Decimal{"usd-coin": decimal.NewFromInt(1)}}
	svc := NewWalletService(repos, gateway, &fakeResolver{source: &fakeSource{}}, prices)

	app := models.App{ID: "a1", Active: true}
	view, err := svc.Balance(context.Background(), app, "ethereum", "goerli", "USDC", "0xholder")
	require.NoError(t, err)
	assert.Equal(t, "250", view.Balance.String())
	assert.Equal(t, "usd", view.FiatCurrency)
	assert.Equal(t, "250", view.FiatValue.String())
}
