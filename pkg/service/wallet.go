package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"keeway/internal/salt"
	"keeway/models"
	"keeway/pkg/chain"
	"keeway/pkg/repository"
)

var (
	ErrWalletNotFound      = errors.New("service: wallet not found")
	ErrNetworkNotFound     = errors.New("service: network not found")
	ErrAddressNotSupported = errors.New("service: address derivation not supported on this network")
)

type WalletService struct {
	repos     *repository.Repository
	chain     chain.Gateway
	explorers sourceResolver
	pricing   priceQuoter
}

func NewWalletService(repos *repository.Repository, gateway chain.Gateway, explorers sourceResolver, p priceQuoter) *WalletService {
	return &WalletService{repos: repos, chain: gateway, explorers: explorers, pricing: p}
}

// GenerateWallet derives a fresh deposit address for the app. The index comes
// from a global sequence, the salt from the app's secret key, and the address
// from the factory contract, so re-deriving with the same inputs always gives
// the same address.
func (s *WalletService) GenerateWallet(ctx context.Context, app models.App, input models.GenerateWalletInput) (models.WalletView, error) {
	token, err := s.verifiedToken(input.Blockchain, input.Network, input.Token)
	if err != nil {
		return models.WalletView{}, err
	}
	network, err := s.network(token.Network)
	if err != nil {
		return models.WalletView{}, err
	}

	index, err := s.repos.NextWalletIndex()
	if err != nil {
		return models.WalletView{}, err
	}
	address, err := s.chain.DeriveAddress(ctx, network, salt.Compute(app.SecretKey, index))
	if errors.Is(err, chain.ErrUnsupportedBlockchain) {
		return models.WalletView{}, ErrAddressNotSupported
	}
	if err != nil {
		return models.WalletView{}, err
	}

	wallet := models.Wallet{
		AppID:        app.ID,
		TokenID:      token.ID,
		Address:      address,
		Index:        index,
		TargetAmount: input.TargetAmount,
	}
	if input.ContactName != "" {
		wallet.ContactName = &input.ContactName
	}
	if input.ContactEmail != "" {
		wallet.ContactEmail = &input.ContactEmail
	}
	if input.ContactPhone != "" {
		wallet.ContactPhone = &input.ContactPhone
	}
	if input.AddressValidity > 0 {
		expires := time.Now().Add(time.Duration(input.AddressValidity) * time.Second)
		wallet.ExpiresAt = &expires
	}

	created, err := s.repos.CreateWallet(wallet)
	if err != nil {
		return models.WalletView{}, err
	}
	return created.View(), nil
}

func (s *WalletService) GetWallet(app models.App, walletID string) (models.WalletView, error) {
	wallet, err := s.repos.GetWallet(app.ID, walletID)
	if errors.Is(err, repository.ErrNotFound) {
		return models.WalletView{}, ErrWalletNotFound
	}
	if err != nil {
		return models.WalletView{}, err
	}
	return wallet.View(), nil
}

func (s *WalletService) ListWallets(app models.App) ([]models.WalletView, error) {
	wallets, err := s.repos.ListWallets(app.ID)
	if err != nil {
		return nil, err
	}
	views := make([]models.WalletView, 0, len(wallets))
	for _, w := range wallets {
		views = append(views, w.View())
	}
	return views, nil
}

func (s *WalletService) WalletTransactions(app models.App, walletID string) ([]models.Transaction, error) {
	wallet, err := s.repos.GetWallet(app.ID, walletID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.repos.ListTransactions(wallet.ID)
}

// Balance reads the live on-chain balance of any address in major units.
func (s *WalletService) Balance(ctx context.Context, app models.App, blockchain, network, token, address string) (models.BalanceView, error) {
	supported, err := s.verifiedToken(blockchain, network, token)
	if err != nil {
		return models.BalanceView{}, err
	}
	net, err := s.network(supported.Network)
	if err != nil {
		return models.BalanceView{}, err
	}

	balance, err := s.baseUnitBalance(ctx, net, supported, address)
	if err != nil {
		return models.BalanceView{}, err
	}

	view := models.BalanceView{
		Token:   supported,
		Balance: balance.Shift(-supported.Decimals),
	}
	if s.pricing != nil {
		if price, err := s.pricing.Price(ctx, supported.CoinGeckoID, "usd"); err == nil {
			view.FiatCurrency = "usd"
			view.FiatValue = view.Balance.Mul(price)
		}
	}
	return view, nil
}

// SendCrypto pays out from the spender treasury account.
func (s *WalletService) SendCrypto(ctx context.Context, app models.App, input models.SendCryptoInput) (string, error) {
	token, err := s.verifiedToken(input.Blockchain, input.Network, input.Token)
	if err != nil {
		return "", err
	}
	network, err := s.network(token.Network)
	if err != nil {
		return "", err
	}

	amount := input.Amount.Shift(token.Decimals)
	if !amount.IsPositive() {
		return "", errors.New("service: amount must be positive")
	}

	if token.IsNativeToken {
		return s.chain.SendNative(ctx, network, input.To, amount)
	}
	if token.ContractAddress == nil {
		return "", errors.Errorf("service: token %s has no contract address", token.Symbol)
	}
	return s.chain.SendERC20(ctx, network, *token.ContractAddress, input.To, amount)
}

func (s *WalletService) verifiedToken(blockchain, network, symbol string) (models.SupportedToken, error) {
	token, err := s.repos.GetToken(blockchain, network, symbol)
	if errors.Is(err, repository.ErrNotFound) {
		return models.SupportedToken{}, ErrTokenNotSupported
	}
	if err != nil {
		return models.SupportedToken{}, err
	}
	if !token.Verified {
		return models.SupportedToken{}, ErrTokenNotSupported
	}
	return token, nil
}

func (s *WalletService) network(name string) (models.Network, error) {
	network, err := s.repos.GetNetwork(name)
	if errors.Is(err, repository.ErrNotFound) {
		return models.Network{}, ErrNetworkNotFound
	}
	return network, err
}

func (s *WalletService) baseUnitBalance(ctx context.Context, network models.Network, token models.SupportedToken, address string) (decimal.Decimal, error) {
	if network.Blockchain == "bitcoin" {
		return explorerBalance(ctx, s.explorers, network, address)
	}
	if token.IsNativeToken {
		return s.chain.NativeBalance(ctx, network, address)
	}
	if token.ContractAddress == nil {
		return decimal.Zero, errors.Errorf("service: token %s has no contract address", token.Symbol)
	}
	return s.chain.ERC20Balance(ctx, network, *token.ContractAddress, address)
}
