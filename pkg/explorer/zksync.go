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

// ZkSync serves the zkSync v2 REST API. Pagination is cursor-based: each page
// is requested "older than" the last transaction hash of the previous page.
type ZkSync struct {
	client  *resty.Client
	baseURL string

	mu      sync.Mutex
	symbols map[int64]string // token id -> symbol
}

func NewZkSync(client *resty.Client, baseURL string) *ZkSync {
	return &ZkSync{client: client, baseURL: baseURL, symbols: make(map[int64]string)}
}

type zkSyncTx struct {
	TxHash string `json:"txHash"`
	Status string `json:"status"`
	Op     struct {
		Type    string `json:"type"`
		From    string `json:"from"`
		To      string `json:"to"`
		TokenID int64  `json:"tokenId"`
		Amount  string `json:"amount"`
	} `json:"op"`
}

func (z *ZkSync) Transactions(ctx context.Context, address string) ([]json.RawMessage, error) {
	var all []json.RawMessage
	from := "latest"
	for {
		var envelope struct {
			Result struct {
				List []json.RawMessage `json:"list"`
			} `json:"result"`
		}
		url := fmt.Sprintf("%s/accounts/%s/transactions", z.baseURL, address)
		resp, err := z.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"from":      from,
				"limit":     "100",
				"direction": "older",
			}).
			SetResult(&envelope).
			Get(url)
		if err != nil {
			return nil, errors.Wrap(err, "zksync transactions")
		}
		if resp.IsError() {
			return nil, errors.Errorf("zksync transactions: %s", resp.Status())
		}

		list := envelope.Result.List
		if len(list) == 0 {
			return all, nil
		}

		var last zkSyncTx
		if err := json.Unmarshal(list[len(list)-1], &last); err != nil {
			return nil, errors.Wrap(err, "zksync transactions")
		}
		// Cursor did not advance: the final page repeats its last entry.
		if last.TxHash == from {
			return append(all, list...), nil
		}

		all = append(all, list...)
		from = last.TxHash
	}
}

func (z *ZkSync) Normalize(ctx context.Context, raw json.RawMessage, walletAddress string) (Normalized, error) {
	var tx zkSyncTx
	if err := json.Unmarshal(raw, &tx); err != nil {
		return Normalized{}, errors.Wrap(err, "zksync normalize")
	}

	kind := "debit"
	if strings.EqualFold(tx.Op.To, walletAddress) {
		kind = "credit"
	}

	amount, err := decimal.NewFromString(tx.Op.Amount)
	if err != nil {
		return Normalized{}, errors.Wrapf(err, "zksync normalize %s", tx.TxHash)
	}

	symbol := "ETH"
	if tx.Op.TokenID != 0 {
		symbol, err = z.tokenSymbol(ctx, tx.Op.TokenID)
		if err != nil {
			return Normalized{}, err
		}
	}

	return Normalized{
		Hash:      tx.TxHash,
		Amount:    amount,
		Type:      kind,
		Token:     symbol,
		Confirmed: tx.Status == "finalized" || tx.Status == "committed",
		Raw:       raw,
	}, nil
}

func (z *ZkSync) tokenSymbol(ctx context.Context, id int64) (string, error) {
	z.mu.Lock()
	symbol, ok := z.symbols[id]
	z.mu.Unlock()
	if ok {
		return symbol, nil
	}

	var envelope struct {
		Result struct {
			Symbol string `json:"symbol"`
		} `json:"result"`
	}
	resp, err := z.client.R().
		SetContext(ctx).
		SetResult(&envelope).
		Get(fmt.Sprintf("%s/tokens/%d", z.baseURL, id))
	if err != nil {
		return "", errors.Wrapf(err, "zksync token %d", id)
	}
	if resp.IsError() || envelope.Result.Symbol == "" {
		return "", errors.Errorf("zksync token %d: no symbol", id)
	}

	z.mu.Lock()
	z.symbols[id] = envelope.Result.Symbol
	z.mu.Unlock()

	return envelope.Result.Symbol, nil
}
