package explorer

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Blockstream serves bitcoin deposit addresses through the blockstream.info
// Esplora API. A transaction credits the wallet when none of its inputs spend
// from the wallet; the amount is the sum of outputs paying the wallet.
type Blockstream struct {
	client  *resty.Client
	baseURL string
}

func NewBlockstream(client *resty.Client, baseURL string) *Blockstream {
	return &Blockstream{client: client, baseURL: baseURL}
}

type blockstreamTx struct {
	TxID string `json:"txid"`
	Vin  []struct {
		Prevout struct {
			Address string          `json:"scriptpubkey_address"`
			Value   decimal.Decimal `json:"value"`
		} `json:"prevout"`
	} `json:"vin"`
	Vout []struct {
		Address string          `json:"scriptpubkey_address"`
		Value   decimal.Decimal `json:"value"`
	} `json:"vout"`
	Status struct {
		Confirmed bool `json:"confirmed"`
	} `json:"status"`
}

func (b *Blockstream) Transactions(ctx context.Context, address string) ([]json.RawMessage, error) {
	if !ValidBase58Address(address) {
		return nil, errors.Errorf("blockstream transactions: invalid address %s", address)
	}

	var all []json.RawMessage
	url := fmt.Sprintf("%s/address/%s/txs", b.baseURL, address)
	for {
		var page []json.RawMessage
		resp, err := b.client.R().SetContext(ctx).SetResult(&page).Get(url)
		if err != nil {
			return nil, errors.Wrap(err, "blockstream transactions")
		}
		if resp.IsError() {
			return nil, errors.Errorf("blockstream transactions: %s", resp.Status())
		}
		if len(page) == 0 {
			return all, nil
		}
		all = append(all, page...)

		var last blockstreamTx
		if err := json.Unmarshal(page[len(page)-1], &last); err != nil {
			return nil, errors.Wrap(err, "blockstream transactions")
		}
		url = fmt.Sprintf("%s/address/%s/txs/chain/%s", b.baseURL, address, last.TxID)
	}
}

func (b *Blockstream) Normalize(_ context.Context, raw json.RawMessage, walletAddress string) (Normalized, error) {
	var tx blockstreamTx
	if err := json.Unmarshal(raw, &tx); err != nil {
		return Normalized{}, errors.Wrap(err, "blockstream normalize")
	}

	kind := "credit"
	for _, in := range tx.Vin {
		if strings.EqualFold(in.Prevout.Address, walletAddress) {
			kind = "debit"
			break
		}
	}

	subtotal := decimal.Zero
	for _, out := range tx.Vout {
		if strings.EqualFold(out.Address, walletAddress) {
			subtotal = subtotal.Add(out.Value)
		}
	}

	return Normalized{
		Hash:      tx.TxID,
		Amount:    subtotal,
		Type:      kind,
		Token:     "btc",
		Confirmed: tx.Status.Confirmed,
		Raw:       raw,
	}, nil
}

// Balance is the confirmed balance in satoshis: funded minus spent outputs
// from the address stats endpoint.
func (b *Blockstream) Balance(ctx context.Context, address string) (decimal.Decimal, error) {
	if !ValidBase58Address(address) {
		return decimal.Zero, errors.Errorf("blockstream balance: invalid address %s", address)
	}

	var stats struct {
		ChainStats struct {
			Funded decimal.Decimal `json:"funded_txo_sum"`
			Spent  decimal.Decimal `json:"spent_txo_sum"`
		} `json:"chain_stats"`
	}
	resp, err := b.client.R().
		SetContext(ctx).
		SetResult(&stats).
		Get(fmt.Sprintf("%s/address/%s", b.baseURL, address))
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "blockstream balance")
	}
	if resp.IsError() {
		return decimal.Zero, errors.Errorf("blockstream balance: %s", resp.Status())
	}
	return stats.ChainStats.Funded.Sub(stats.ChainStats.Spent), nil
}

// ValidBase58Address reports whether a legacy bitcoin address decodes to 25
// bytes with a correct double-SHA256 checksum. Bech32 addresses (bc1/tb1) are
// accepted without a checksum pass.
func ValidBase58Address(address string) bool {
	lower := strings.ToLower(address)
	if strings.HasPrefix(lower, "bc1") || strings.HasPrefix(lower, "tb1") {
		return len(address) >= 14
	}

	decoded, err := base58.Decode(address)
	if err != nil || len(decoded) != 25 {
		return false
	}

	payload, checksum := decoded[:21], decoded[21:]
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	return bytes.Equal(checksum, second[:4])
}
