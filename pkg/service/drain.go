package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"keeway/internal/salt"
	"keeway/models"
	"keeway/pkg/chain"
	"keeway/pkg/repository"
)

// DrainService sweeps deposit wallets into the factory treasury once their
// on-chain balance crosses the token's drain threshold.
type DrainService struct {
	repos *repository.Repository
	chain chain.Gateway
}

func NewDrainService(repos *repository.Repository, gateway chain.Gateway) *DrainService {
	return &DrainService{repos: repos, chain: gateway}
}

func (s *DrainService) DrainAll(ctx context.Context) error {
	wallets, err := s.repos.ListActiveWallets()
	if err != nil {
		return err
	}

	for _, wallet := range wallets {
		if err := s.DrainWallet(ctx, wallet); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"wallet":  wallet.ID,
				"address": wallet.Address,
			}).Error("drain wallet")
		}
	}
	return nil
}

// DrainWallet sweeps one wallet if its on-chain balance meets the threshold.
// Below threshold is a silent skip. The factory-side wallet is created on
// first drain.
func (s *DrainService) DrainWallet(ctx context.Context, wallet models.Wallet) error {
	threshold := wallet.Token.DrainThreshold()
	if threshold.IsZero() || wallet.OnChainBalance.LessThan(threshold) {
		return nil
	}

	network, err := s.repos.GetNetwork(wallet.Token.Network)
	if err != nil {
		return err
	}

	walletSalt := salt.Compute(wallet.App.SecretKey, wallet.Index)
	created, err := s.chain.IsWalletCreated(ctx, network, walletSalt)
	if err != nil {
		return err
	}
	if !created {
		if err := s.chain.CreateWallet(ctx, network, walletSalt); err != nil {
			return err
		}
	}

	if wallet.Token.IsNativeToken {
		err = s.chain.DrainNative(ctx, network, walletSalt)
	} else if wallet.Token.ContractAddress != nil {
		err = s.chain.DrainERC20(ctx, network, walletSalt, *wallet.Token.ContractAddress)
	} else {
		return nil
	}
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"wallet":  wallet.ID,
		"address": wallet.Address,
		"token":   wallet.Token.Symbol,
		"balance": wallet.OnChainBalance.String(),
	}).Info("wallet drained")
	return nil
}
