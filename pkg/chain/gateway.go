package chain

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"keeway/models"
)

var ErrUnsupportedBlockchain = errors.New("chain: blockchain not supported")

// Gateway is everything the platform does against a chain: read balances,
// derive factory addresses from salts, sweep deposit wallets and move funds
// out of the treasury. The production implementation speaks JSON-RPC through
// go-ethereum; tests substitute a fake.
type Gateway interface {
	NativeBalance(ctx context.Context, network models.Network, address string) (decimal.Decimal, error)
	ERC20Balance(ctx context.Context, network models.Network, contractAddress, address string) (decimal.Decimal, error)

	// DeriveAddress is the read-only getAddress(salt) on the wallet factory.
	// The same salt always maps to the same address for a given deployment.
	DeriveAddress(ctx context.Context, network models.Network, salt string) (string, error)

	IsWalletCreated(ctx context.Context, network models.Network, salt string) (bool, error)
	CreateWallet(ctx context.Context, network models.Network, salt string) error
	DrainNative(ctx context.Context, network models.Network, salt string) error
	DrainERC20(ctx context.Context, network models.Network, salt, tokenAddress string) error

	TransferNative(ctx context.Context, network models.Network, to string, amount decimal.Decimal) (string, error)
	TransferERC20(ctx context.Context, network models.Network, tokenAddress, to string, amount decimal.Decimal) (string, error)

	SendNative(ctx context.Context, network models.Network, to string, amount decimal.Decimal) (string, error)
	SendERC20(ctx context.Context, network models.Network, contractAddress, to string, amount decimal.Decimal) (string, error)
}
