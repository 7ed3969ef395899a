package chain

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"keeway/models"
)

const erc20ABIJSON = `[
	{"constant":true,"inputs":[{"name":"account","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}
]`

// Wallet factory contract: CREATE2-style per-salt sub-wallets with drain and
// treasury transfer operations. Only the methods the platform calls.
const factoryABIJSON = `[
	{"inputs":[{"name":"salt","type":"bytes"}],"name":"getAddress","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"salt","type":"bytes"}],"name":"isCreated","outputs":[{"name":"","type":"bool"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"account","type":"address"}],"name":"isPermitted","outputs":[{"name":"","type":"bool"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"salt","type":"bytes"}],"name":"createWallet","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"name":"salt","type":"bytes"}],"name":"drainETH","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"name":"salt","type":"bytes"},{"name":"erc20","type":"address"}],"name":"drainERC20","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"name":"amount","type":"uint256"},{"name":"to","type":"address"}],"name":"transferETH","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"name":"tracker","type":"address"},{"name":"amount","type":"uint256"},{"name":"to","type":"address"}],"name":"transferERC20","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}
]`

// Ethereum implements Gateway over go-ethereum for every EVM network in the
// registry. RPC clients are dialed lazily and reused per network.
type Ethereum struct {
	spenderKey *ecdsa.PrivateKey
	factoryABI abi.ABI
	erc20ABI   abi.ABI

	mu      sync.Mutex
	clients map[string]*ethclient.Client
}

func NewEthereum(spenderPrivateKey string) (*Ethereum, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(spenderPrivateKey, "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "chain: bad spender private key")
	}

	factoryABI, err := abi.JSON(strings.NewReader(factoryABIJSON))
	if err != nil {
		return nil, errors.Wrap(err, "chain: factory abi")
	}
	erc20ABI, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		return nil, errors.Wrap(err, "chain: erc20 abi")
	}

	return &Ethereum{
		spenderKey: key,
		factoryABI: factoryABI,
		erc20ABI:   erc20ABI,
		clients:    make(map[string]*ethclient.Client),
	}, nil
}

func (e *Ethereum) client(network models.Network) (*ethclient.Client, error) {
	if network.Blockchain != "ethereum" {
		return nil, errors.Wrap(ErrUnsupportedBlockchain, network.Blockchain)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if client, ok := e.clients[network.Name]; ok {
		return client, nil
	}
	client, err := ethclient.Dial(network.RPC)
	if err != nil {
		return nil, errors.Wrapf(err, "chain: dial %s", network.Name)
	}
	e.clients[network.Name] = client
	return client, nil
}

func (e *Ethereum) NativeBalance(ctx context.Context, network models.Network, address string) (decimal.Decimal, error) {
	client, err := e.client(network)
	if err != nil {
		return decimal.Zero, err
	}
	balance, err := client.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "chain: native balance %s", network.Name)
	}
	return decimal.NewFromBigInt(balance, 0), nil
}

func (e *Ethereum) ERC20Balance(ctx context.Context, network models.Network, contractAddress, address string) (decimal.Decimal, error) {
	client, err := e.client(network)
	if err != nil {
		return decimal.Zero, err
	}

	input, err := e.erc20ABI.Pack("balanceOf", common.HexToAddress(address))
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "chain: pack balanceOf")
	}
	contract := common.HexToAddress(contractAddress)
	output, err := client.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: input}, nil)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "chain: erc20 balance %s", network.Name)
	}

	results, err := e.erc20ABI.Unpack("balanceOf", output)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "chain: unpack balanceOf")
	}
	balance, ok := results[0].(*big.Int)
	if !ok {
		return decimal.Zero, errors.New("chain: balanceOf returned non-integer")
	}
	return decimal.NewFromBigInt(balance, 0), nil
}

func (e *Ethereum) factory(network models.Network) (*bind.BoundContract, *ethclient.Client, error) {
	client, err := e.client(network)
	if err != nil {
		return nil, nil, err
	}
	address := common.HexToAddress(network.WalletFactory)
	return bind.NewBoundContract(address, e.factoryABI, client, client, client), client, nil
}

func saltBytes(salt string) ([]byte, error) {
	decoded, err := hexutil.Decode(salt)
	if err != nil {
		return nil, errors.Wrap(err, "chain: bad salt")
	}
	return decoded, nil
}

func (e *Ethereum) DeriveAddress(ctx context.Context, network models.Network, salt string) (string, error) {
	factory, _, err := e.factory(network)
	if err != nil {
		return "", err
	}
	raw, err := saltBytes(salt)
	if err != nil {
		return "", err
	}

	var results []interface{}
	if err := factory.Call(&bind.CallOpts{Context: ctx}, &results, "getAddress", raw); err != nil {
		return "", errors.Wrapf(err, "chain: getAddress %s", network.Name)
	}
	address, ok := results[0].(common.Address)
	if !ok {
		return "", errors.New("chain: getAddress returned non-address")
	}
	return address.Hex(), nil
}

func (e *Ethereum) IsWalletCreated(ctx context.Context, network models.Network, salt string) (bool, error) {
	factory, _, err := e.factory(network)
	if err != nil {
		return false, err
	}
	raw, err := saltBytes(salt)
	if err != nil {
		return false, err
	}

	var results []interface{}
	if err := factory.Call(&bind.CallOpts{Context: ctx}, &results, "isCreated", raw); err != nil {
		return false, errors.Wrapf(err, "chain: isCreated %s", network.Name)
	}
	created, ok := results[0].(bool)
	if !ok {
		return false, errors.New("chain: isCreated returned non-bool")
	}
	return created, nil
}

// transactor builds signed-write options for the spender account and verifies
// the factory still permits it before any state-changing call.
func (e *Ethereum) transactor(ctx context.Context, network models.Network, factory *bind.BoundContract) (*bind.TransactOpts, error) {
	var results []interface{}
	spender := crypto.PubkeyToAddress(e.spenderKey.PublicKey)
	if err := factory.Call(&bind.CallOpts{Context: ctx}, &results, "isPermitted", spender); err != nil {
		return nil, errors.Wrapf(err, "chain: isPermitted %s", network.Name)
	}
	if permitted, ok := results[0].(bool); !ok || !permitted {
		return nil, errors.Errorf("chain: spender %s not permitted on %s", spender.Hex(), network.Name)
	}

	opts, err := bind.NewKeyedTransactorWithChainID(e.spenderKey, big.NewInt(network.ChainID))
	if err != nil {
		return nil, errors.Wrap(err, "chain: transactor")
	}
	opts.Context = ctx
	return opts, nil
}

func (e *Ethereum) CreateWallet(ctx context.Context, network models.Network, salt string) error {
	return e.transactFactory(ctx, network, "createWallet", func(raw []byte) []interface{} {
		return []interface{}{raw}
	}, salt)
}

func (e *Ethereum) DrainNative(ctx context.Context, network models.Network, salt string) error {
	return e.transactFactory(ctx, network, "drainETH", func(raw []byte) []interface{} {
		return []interface{}{raw}
	}, salt)
}

func (e *Ethereum) DrainERC20(ctx context.Context, network models.Network, salt, tokenAddress string) error {
	return e.transactFactory(ctx, network, "drainERC20", func(raw []byte) []interface{} {
		return []interface{}{raw, common.HexToAddress(tokenAddress)}
	}, salt)
}

func (e *Ethereum) transactFactory(ctx context.Context, network models.Network, method string, args func([]byte) []interface{}, salt string) error {
	factory, _, err := e.factory(network)
	if err != nil {
		return err
	}
	raw, err := saltBytes(salt)
	if err != nil {
		return err
	}
	opts, err := e.transactor(ctx, network, factory)
	if err != nil {
		return err
	}
	if _, err := factory.Transact(opts, method, args(raw)...); err != nil {
		return errors.Wrapf(err, "chain: %s %s", method, network.Name)
	}
	return nil
}

func (e *Ethereum) TransferNative(ctx context.Context, network models.Network, to string, amount decimal.Decimal) (string, error) {
	factory, _, err := e.factory(network)
	if err != nil {
		return "", err
	}
	opts, err := e.transactor(ctx, network, factory)
	if err != nil {
		return "", err
	}
	tx, err := factory.Transact(opts, "transferETH", amount.BigInt(), common.HexToAddress(to))
	if err != nil {
		return "", errors.Wrapf(err, "chain: transferETH %s", network.Name)
	}
	return tx.Hash().Hex(), nil
}

func (e *Ethereum) TransferERC20(ctx context.Context, network models.Network, tokenAddress, to string, amount decimal.Decimal) (string, error) {
	factory, _, err := e.factory(network)
	if err != nil {
		return "", err
	}
	opts, err := e.transactor(ctx, network, factory)
	if err != nil {
		return "", err
	}
	tx, err := factory.Transact(opts, "transferERC20", common.HexToAddress(tokenAddress), amount.BigInt(), common.HexToAddress(to))
	if err != nil {
		return "", errors.Wrapf(err, "chain: transferERC20 %s", network.Name)
	}
	return tx.Hash().Hex(), nil
}

// SendNative moves value from the spender account itself, not the factory.
func (e *Ethereum) SendNative(ctx context.Context, network models.Network, to string, amount decimal.Decimal) (string, error) {
	client, err := e.client(network)
	if err != nil {
		return "", err
	}

	from := crypto.PubkeyToAddress(e.spenderKey.PublicKey)
	nonce, err := client.PendingNonceAt(ctx, from)
	if err != nil {
		return "", errors.Wrapf(err, "chain: nonce %s", network.Name)
	}
	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return "", errors.Wrapf(err, "chain: gas price %s", network.Name)
	}

	balance, err := client.BalanceAt(ctx, from, nil)
	if err != nil {
		return "", errors.Wrapf(err, "chain: spender balance %s", network.Name)
	}
	if decimal.NewFromBigInt(balance, 0).LessThan(amount) {
		return "", errors.New("chain: insufficient spender balance")
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &[]common.Address{common.HexToAddress(to)}[0],
		Value:    amount.BigInt(),
		Gas:      21000,
		GasPrice: gasPrice,
	})
	signed, err := types.SignTx(tx, types.NewEIP155Signer(big.NewInt(network.ChainID)), e.spenderKey)
	if err != nil {
		return "", errors.Wrap(err, "chain: sign")
	}
	if err := client.SendTransaction(ctx, signed); err != nil {
		return "", errors.Wrapf(err, "chain: send %s", network.Name)
	}
	return signed.Hash().Hex(), nil
}

func (e *Ethereum) SendERC20(ctx context.Context, network models.Network, contractAddress, to string, amount decimal.Decimal) (string, error) {
	client, err := e.client(network)
	if err != nil {
		return "", err
	}

	from := crypto.PubkeyToAddress(e.spenderKey.PublicKey)
	input, err := e.erc20ABI.Pack("transfer", common.HexToAddress(to), amount.BigInt())
	if err != nil {
		return "", errors.Wrap(err, "chain: pack transfer")
	}

	nonce, err := client.PendingNonceAt(ctx, from)
	if err != nil {
		return "", errors.Wrapf(err, "chain: nonce %s", network.Name)
	}
	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return "", errors.Wrapf(err, "chain: gas price %s", network.Name)
	}

	contract := common.HexToAddress(contractAddress)
	gasLimit, err := client.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &contract, Data: input})
	if err != nil {
		return "", errors.Wrapf(err, "chain: estimate gas %s", network.Name)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &contract,
		Data:     input,
		Gas:      gasLimit,
		GasPrice: gasPrice,
	})
	signed, err := types.SignTx(tx, types.NewEIP155Signer(big.NewInt(network.ChainID)), e.spenderKey)
	if err != nil {
		return "", errors.Wrap(err, "chain: sign")
	}
	if err := client.SendTransaction(ctx, signed); err != nil {
		return "", errors.Wrapf(err, "chain: send %s", network.Name)
	}
	return signed.Hash().Hex(), nil
}
