package service

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"keeway/models"
	"keeway/pkg/repository"
)

var ErrTokenNotSupported = errors.New("service: token not supported")

// priceQuoter is the slice of pkg/pricing the services need. May be nil when
// fiat quotes are disabled.
type priceQuoter interface {
	Price(ctx context.Context, coinGeckoID, currency string) (decimal.Decimal, error)
}

type MiscService struct {
	repos   *repository.Repository
	pricing priceQuoter
}

func NewMiscService(repos *repository.Repository, p priceQuoter) *MiscService {
	return &MiscService{repos: repos, pricing: p}
}

func (s *MiscService) ListSupportedTokens() ([]models.SupportedToken, error) {
	return s.repos.ListVerifiedTokens()
}

func (s *MiscService) ListNetworks() ([]models.Network, error) {
	return s.repos.ListNetworks()
}

func (s *MiscService) TokenPrice(ctx context.Context, blockchain, network, symbol, currency string) (decimal.Decimal, error) {
	token, err := s.repos.GetToken(blockchain, network, symbol)
	if errors.Is(err, repository.ErrNotFound) {
		return decimal.Zero, ErrTokenNotSupported
	}
	if err != nil {
		return decimal.Zero, err
	}
	if currency == "" {
		currency = "usd"
	}
	if s.pricing == nil {
		return decimal.Zero, errors.New("service: pricing disabled")
	}
	return s.pricing.Price(ctx, token.CoinGeckoID, currency)
}
