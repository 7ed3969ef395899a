package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	covalentBaseURL  = "https://api.covalenthq.com"
	covalentPageSize = 1000
)

// Covalent serves goerli and bsc-testnet through the Covalent unified API.
// ERC-20 transfers arrive as log events on a zero-value transaction, so
// normalization has to look inside the first decoded Transfer event.
type Covalent struct {
	client  *resty.Client
	apiKey  string
	chainID int64
	network string
}

func NewCovalent(client *resty.Client, apiKey string, chainID int64, network string) *Covalent {
	return &Covalent{client: client, apiKey: apiKey, chainID: chainID, network: network}
}

type covalentTx struct {
	TxHash    string `json:"tx_hash"`
	ToAddress string `json:"to_address"`
	Value     string `json:"value"`
	Success   bool   `json:"successful"`
	LogEvents []struct {
		TickerSymbol string `json:"sender_contract_ticker_symbol"`
		Decoded      struct {
			Name   string `json:"name"`
			Params []struct {
				Name  string `json:"name"`
				Value string `json:"value"`
			} `json:"params"`
		} `json:"decoded"`
	} `json:"log_events"`
}

func (c *Covalent) Transactions(ctx context.Context, address string) ([]json.RawMessage, error) {
	var all []json.RawMessage
	for page := 0; ; page++ {
		var envelope struct {
			Data struct {
				Items []json.RawMessage `json:"items"`
			} `json:"data"`
		}
		url := fmt.Sprintf("%s/v1/%d/address/%s/transactions_v2/", covalentBaseURL, c.chainID, address)
		resp, err := c.client.R().
			SetContext(ctx).
			SetBasicAuth(c.apiKey, "").
			SetQueryParams(map[string]string{
				"page-number": fmt.Sprint(page),
				"page-size":   fmt.Sprint(covalentPageSize),
			}).
			SetResult(&envelope).
			Get(url)
		if err != nil {
			return nil, errors.Wrapf(err, "covalent %s", c.network)
		}
		if resp.IsError() {
			return nil, errors.Errorf("covalent %s: %s", c.network, resp.Status())
		}
		if len(envelope.Data.Items) == 0 {
			return all, nil
		}
		all = append(all, envelope.Data.Items...)
	}
}

func (c *Covalent) Normalize(_ context.Context, raw json.RawMessage, walletAddress string) (Normalized, error) {
	var tx covalentTx
	if err := json.Unmarshal(raw, &tx); err != nil {
		return Normalized{}, errors.Wrap(err, "covalent normalize")
	}

	receiver := tx.ToAddress
	amount, err := decimal.NewFromString(tx.Value)
	if err != nil {
		return Normalized{}, errors.Wrapf(err, "covalent normalize %s", tx.TxHash)
	}
	symbol := ""
	if amount.IsPositive() {
		symbol = c.nativeSymbol()
	}

	// Zero native value: an ERC-20 transfer described by the first log event.
	if symbol == "" {
		if len(tx.LogEvents) == 0 {
			return Normalized{}, errors.Errorf("covalent normalize %s: no log events", tx.TxHash)
		}
		event := tx.LogEvents[0]
		if len(event.Decoded.Params) < 3 {
			return Normalized{}, errors.Errorf("covalent normalize %s: undecoded event", tx.TxHash)
		}
		symbol = event.TickerSymbol
		receiver = event.Decoded.Params[1].Value
		amount, err = decimal.NewFromString(event.Decoded.Params[2].Value)
		if err != nil {
			return Normalized{}, errors.Wrapf(err, "covalent normalize %s", tx.TxHash)
		}
	}

	kind := "debit"
	if strings.EqualFold(receiver, walletAddress) {
		kind = "credit"
	}

	return Normalized{
		Hash:      tx.TxHash,
		Amount:    amount,
		Type:      kind,
		Token:     symbol,
		Confirmed: true,
		Raw:       raw,
	}, nil
}

func (c *Covalent) nativeSymbol() string {
	if c.network == "bsc-testnet" {
		return "BNB"
	}
	return "ETH"
}
