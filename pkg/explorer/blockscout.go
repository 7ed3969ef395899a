package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const blockscoutPageSize = 10000

// Blockscout serves the Etherscan-compatible API of the L2 explorers
// (altlayer-devnet, metis-goerli, trust-testnet). One address history is the
// union of normal, token and internal transactions.
type Blockscout struct {
	client  *resty.Client
	baseURL string
	network string

	mu      sync.Mutex
	symbols map[string]string // contract address -> token symbol
}

func NewBlockscout(client *resty.Client, baseURL, network string) *Blockscout {
	return &Blockscout{
		client:  client,
		baseURL: baseURL,
		network: network,
		symbols: make(map[string]string),
	}
}

type blockscoutEnvelope struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Result  []json.RawMessage `json:"result"`
}

type blockscoutTx struct {
	Hash            string `json:"hash"`
	TransactionHash string `json:"transactionHash"` // internal txs only
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"`
	ContractAddress string `json:"contractAddress"`
	TokenSymbol     string `json:"tokenSymbol"` // tokentx only
}

func (b *Blockscout) Transactions(ctx context.Context, address string) ([]json.RawMessage, error) {
	var all []json.RawMessage
	for _, action := range []string{"txlist", "tokentx", "txlistinternal"} {
		txs, err := b.paginate(ctx, action, address)
		if err != nil {
			return nil, err
		}
		all = append(all, txs...)
	}
	return all, nil
}

func (b *Blockscout) paginate(ctx context.Context, action, address string) ([]json.RawMessage, error) {
	var all []json.RawMessage
	for page := 1; ; page++ {
		var envelope blockscoutEnvelope
		resp, err := b.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"module":  "account",
				"action":  action,
				"address": address,
				"page":    fmt.Sprint(page),
				"offset":  fmt.Sprint(blockscoutPageSize),
			}).
			SetResult(&envelope).
			Get(b.baseURL)
		if err != nil {
			return nil, errors.Wrapf(err, "blockscout %s %s", b.network, action)
		}
		if resp.IsError() {
			return nil, errors.Errorf("blockscout %s %s: %s", b.network, action, resp.Status())
		}
		if len(envelope.Result) == 0 {
			return all, nil
		}
		all = append(all, envelope.Result...)
	}
}

func (b *Blockscout) Normalize(ctx context.Context, raw json.RawMessage, walletAddress string) (Normalized, error) {
	var tx blockscoutTx
	if err := json.Unmarshal(raw, &tx); err != nil {
		return Normalized{}, errors.Wrap(err, "blockscout normalize")
	}

	hash := tx.Hash
	if hash == "" {
		hash = tx.TransactionHash
	}

	kind := "debit"
	if strings.EqualFold(tx.To, walletAddress) {
		kind = "credit"
	}

	amount, err := decimal.NewFromString(tx.Value)
	if err != nil {
		return Normalized{}, errors.Wrapf(err, "blockscout normalize %s", hash)
	}

	symbol := tx.TokenSymbol
	if tx.ContractAddress == "" {
		symbol = b.nativeSymbol()
	} else if symbol == "" {
		symbol, err = b.tokenSymbol(ctx, tx.ContractAddress)
		if err != nil {
			return Normalized{}, err
		}
	}

	return Normalized{
		Hash:      hash,
		Amount:    amount,
		Type:      kind,
		Token:     symbol,
		Confirmed: true,
		Raw:       raw,
	}, nil
}

func (b *Blockscout) nativeSymbol() string {
	switch b.network {
	case "altlayer-devnet":
		return "ALT"
	case "trust-testnet":
		return "TST"
	default:
		return "METIS"
	}
}

// tokenSymbol resolves an ERC-20 symbol via the explorer's token endpoint.
// Symbols never change, so hits are cached for the life of the process.
func (b *Blockscout) tokenSymbol(ctx context.Context, contractAddress string) (string, error) {
	key := strings.ToLower(contractAddress)

	b.mu.Lock()
	symbol, ok := b.symbols[key]
	b.mu.Unlock()
	if ok {
		return symbol, nil
	}

	var envelope struct {
		Result struct {
			Symbol string `json:"symbol"`
		} `json:"result"`
	}
	resp, err := b.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"module":          "token",
			"action":          "getToken",
			"contractaddress": contractAddress,
		}).
		SetResult(&envelope).
		Get(b.baseURL)
	if err != nil {
		return "", errors.Wrapf(err, "blockscout %s getToken", b.network)
	}
	if resp.IsError() || envelope.Result.Symbol == "" {
		return "", errors.Errorf("blockscout %s getToken %s: no symbol", b.network, contractAddress)
	}

	b.mu.Lock()
	b.symbols[key] = envelope.Result.Symbol
	b.mu.Unlock()

	return envelope.Result.Symbol, nil
}
