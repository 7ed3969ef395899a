package explorer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"keeway/models"
)

// Normalized is the canonical shape every source adapter reduces its
// transactions to before the ledger sees them.
type Normalized struct {
	Hash      string          `json:"hash"`
	Amount    decimal.Decimal `json:"amount"` // base units
	Type      string          `json:"type"`   // credit | debit
	Token     string          `json:"token"`
	Confirmed bool            `json:"confirmed"`
	Raw       json.RawMessage `json:"transaction"`
}

// Source is one explorer/provider backend. Transactions fetches the complete
// history for an address (paginating until the source is exhausted); Normalize
// reduces one raw payload to the canonical shape. Normalize must be
// deterministic: the same raw payload always yields the same output.
type Source interface {
	Transactions(ctx context.Context, address string) ([]json.RawMessage, error)
	Normalize(ctx context.Context, raw json.RawMessage, walletAddress string) (Normalized, error)
}

// BalanceReader is implemented by sources that can also report an address's
// balance in base units. UTXO chains have no RPC gateway, so their balance
// reads go through the explorer.
type BalanceReader interface {
	Balance(ctx context.Context, address string) (decimal.Decimal, error)
}

var ErrUnsupportedNetwork = errors.New("explorer: network not supported")

// Registry hands out the Source for a network. Constructed once at boot and
// injected wherever transactions are pulled.
type Registry struct {
	client         *resty.Client
	covalentAPIKey string
}

func NewRegistry(covalentAPIKey string) *Registry {
	return &Registry{
		client:         resty.New().SetTimeout(30 * time.Second),
		covalentAPIKey: covalentAPIKey,
	}
}

func (r *Registry) ForNetwork(network models.Network) (Source, error) {
	switch network.Name {
	case "altlayer-devnet", "metis-goerli", "trust-testnet":
		return NewBlockscout(r.client, network.Explorer, network.Name), nil
	case "goerli", "bsc-testnet":
		return NewCovalent(r.client, r.covalentAPIKey, network.ChainID, network.Name), nil
	case "zksync-goerli", "zksync-mainnet":
		return NewZkSync(r.client, network.Explorer), nil
	case "bitcoin-testnet", "bitcoin":
		return NewBlockstream(r.client, network.Explorer), nil
	default:
		return nil, errors.Wrap(ErrUnsupportedNetwork, network.Name)
	}
}
