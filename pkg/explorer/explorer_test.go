package explorer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keeway/models"
)

func testClient() *resty.Client {
	return resty.New().SetTimeout(5 * time.Second)
}

func TestRegistryForNetwork(t *testing.T) {
	registry := NewRegistry("cov-key")

	source, err := registry.ForNetwork(models.Network{Name: "altlayer-devnet", Explorer: "https://devnet-explorer.altlayer.io/api"})
	require.NoError(t, err)
	assert.IsType(t, &Blockscout{}, source)

	source, err = registry.ForNetwork(models.Network{Name: "goerli", ChainID: 5})
	require.NoError(t, err)
	assert.IsType(t, &Covalent{}, source)

	source, err = registry.ForNetwork(models.Network{Name: "bitcoin-testnet", Explorer: "https://blockstream.info/testnet/api"})
	require.NoError(t, err)
	assert.IsType(t, &Blockstream{}, source)

	_, err = registry.ForNetwork(models.Network{Name: "solana-devnet"})
	assert.ErrorIs(t, err, ErrUnsupportedNetwork)
}

func TestBlockscoutNormalize(t *testing.T) {
	source := NewBlockscout(testClient(), "http://unused", "altlayer-devnet")
	wallet := "0xAbCd00000000000000000000000000000000Ef12"

	tests := []struct {
		name      string
		raw       string
		wantType  string
		wantToken string
		wantHash  string
		wantAmt   string
	}{
		{
			name:      "native credit, case-insensitive recipient",
			raw:       `{"hash":"0xaaa","to":"0xabcd00000000000000000000000000000000ef12","value":"1000","contractAddress":""}`,
			wantType:  "credit",
			wantToken: "ALT",
			wantHash:  "0xaaa",
			wantAmt:   "1000",
		},
		{
			name:      "native debit",
			raw:       `{"hash":"0xbbb","to":"0x9999999999999999999999999999999999999999","value":"5","contractAddress":""}`,
			wantType:  "debit",
			wantToken: "ALT",
			wantHash:  "0xbbb",
			wantAmt:   "5",
		},
		{
			name:      "token transfer uses reported symbol",
			raw:       `{"hash":"0xccc","to":"0xABCD00000000000000000000000000000000EF12","value":"250","contractAddress":"0x1234","tokenSymbol":"KWT"}`,
			wantType:  "credit",
			wantToken: "KWT",
			wantHash:  "0xccc",
			wantAmt:   "250",
		},
		{
			name:      "internal tx falls back to transactionHash",
			raw:       `{"transactionHash":"0xddd","to":"0xabcd00000000000000000000000000000000ef12","value":"77","contractAddress":""}`,
			wantType:  "credit",
			wantToken: "ALT",
			wantHash:  "0xddd",
			wantAmt:   "77",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := source.Normalize(context.Background(), json.RawMessage(tt.raw), wallet)
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, got.Type)
			assert.Equal(t, tt.wantToken, got.Token)
			assert.Equal(t, tt.wantHash, got.Hash)
			assert.Equal(t, tt.wantAmt, got.Amount.String())
			assert.True(t, got.Confirmed)
		})
	}
}

func TestBlockscoutNormalizeIdempotent(t *testing.T) {
	source := NewBlockscout(testClient(), "http://unused", "metis-goerli")
	raw := json.RawMessage(`{"hash":"0xeee","to":"0xfeed","value":"42","contractAddress":""}`)

	first, err := source.Normalize(context.Background(), raw, "0xFEED")
	require.NoError(t, err)
	second, err := source.Normalize(context.Background(), raw, "0xFEED")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBlockscoutTransactionsPaginates(t *testing.T) {
	pages := map[string]int{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		action := r.URL.Query().Get("action")
		pages[action]++
		w.Header().Set("Content-Type", "application/json")
		// txlist returns one non-empty page, everything else is empty.
		if action == "txlist" && r.URL.Query().Get("page") == "1" {
			w.Write([]byte(`{"status":"1","result":[{"hash":"0x1"},{"hash":"0x2"}]}`))
			return
		}
		w.Write([]byte(`{"status":"1","result":[]}`))
	}))
	defer server.Close()

	source := NewBlockscout(testClient(), server.URL, "altlayer-devnet")
	txs, err := source.Transactions(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Len(t, txs, 2)

	// Pagination stops after the first empty page of each action.
	assert.Equal(t, 2, pages["txlist"])
	assert.Equal(t, 1, pages["tokentx"])
	assert.Equal(t, 1, pages["txlistinternal"])
}

func TestCovalentNormalize(t *testing.T) {
	source := NewCovalent(testClient(), "key", 5, "goerli")
	wallet := "0x00000000000000000000000000000000000000aa"

	t.Run("native transfer", func(t *testing.T) {
		raw := json.RawMessage(`{"tx_hash":"0x1","to_address":"0x00000000000000000000000000000000000000AA","value":"900"}`)
		got, err := source.Normalize(context.Background(), raw, wallet)
		require.NoError(t, err)
		assert.Equal(t, "credit", got.Type)
		assert.Equal(t, "ETH", got.Token)
		assert.Equal(t, "900", got.Amount.String())
	})

	t.Run("erc20 transfer decoded from log event", func(t *testing.T) {
		raw := json.RawMessage(`{
			"tx_hash":"0x2","to_address":"0xcontract","value":"0",
			"log_events":[{
				"sender_contract_ticker_symbol":"USDC",
				"decoded":{"name":"Transfer","params":[
					{"name":"from","value":"0xdead"},
					{"name":"to","value":"0x00000000000000000000000000000000000000aa"},
					{"name":"value","value":"123456"}
				]}
			}]
		}`)
		got, err := source.Normalize(context.Background(), raw, wallet)
		require.NoError(t, err)
		assert.Equal(t, "credit", got.Type)
		assert.Equal(t, "USDC", got.Token)
		assert.Equal(t, "123456", got.Amount.String())
	})

	t.Run("zero-value transaction without events fails", func(t *testing.T) {
		raw := json.RawMessage(`{"tx_hash":"0x3","to_address":"0xdead","value":"0"}`)
		_, err := source.Normalize(context.Background(), raw, wallet)
		assert.Error(t, err)
	})
}

func TestZkSyncNormalize(t *testing.T) {
	source := NewZkSync(testClient(), "http://unused")
	wallet := "0xFFff000000000000000000000000000000000001"

	raw := json.RawMessage(`{"txHash":"0xzk1","status":"finalized","op":{"type":"Transfer","to":"0xffff000000000000000000000000000000000001","tokenId":0,"amount":"31337"}}`)
	got, err := source.Normalize(context.Background(), raw, wallet)
	require.NoError(t, err)
	assert.Equal(t, "credit", got.Type)
	assert.Equal(t, "ETH", got.Token)
	assert.Equal(t, "31337", got.Amount.String())
	assert.True(t, got.Confirmed)

	raw = json.RawMessage(`{"txHash":"0xzk2","status":"pending","op":{"type":"Transfer","to":"0xother","tokenId":0,"amount":"1"}}`)
	got, err = source.Normalize(context.Background(), raw, wallet)
	require.NoError(t, err)
	assert.Equal(t, "debit", got.Type)
	assert.False(t, got.Confirmed)
}

func TestBlockstreamNormalize(t *testing.T) {
	source := NewBlockstream(testClient(), "http://unused")
	wallet := "tb1qdeposit"

	t.Run("credit sums matching vouts", func(t *testing.T) {
		raw := json.RawMessage(`{
			"txid":"btc1",
			"vin":[{"prevout":{"scriptpubkey_address":"tb1qsomeoneelse","value":500}}],
			"vout":[
				{"scriptpubkey_address":"tb1qdeposit","value":120},
				{"scriptpubkey_address":"tb1qchange","value":300},
				{"scriptpubkey_address":"tb1qdeposit","value":80}
			],
			"status":{"confirmed":true}
		}`)
		got, err := source.Normalize(context.Background(), raw, wallet)
		require.NoError(t, err)
		assert.Equal(t, "credit", got.Type)
		assert.Equal(t, "200", got.Amount.String())
		assert.Equal(t, "btc", got.Token)
		assert.Equal(t, "btc1", got.Hash)
		assert.True(t, got.Confirmed)
	})

	t.Run("spend from wallet is a debit", func(t *testing.T) {
		raw := json.RawMessage(`{
			"txid":"btc2",
			"vin":[{"prevout":{"scriptpubkey_address":"tb1qdeposit","value":500}}],
			"vout":[{"scriptpubkey_address":"tb1qelsewhere","value":490}],
			"status":{"confirmed":false}
		}`)
		got, err := source.Normalize(context.Background(), raw, wallet)
		require.NoError(t, err)
		assert.Equal(t, "debit", got.Type)
		assert.False(t, got.Confirmed)
	})
}

func TestBlockstreamBalance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"chain_stats":{"funded_txo_sum":150000000,"spent_txo_sum":40000000}}`))
	}))
	defer server.Close()

	source := NewBlockstream(testClient(), server.URL)

	balance, err := source.Balance(context.Background(), "mfWyW5fc9NUj75YAnFgoRLrjxgLDn2MMth")
	require.NoError(t, err)
	assert.Equal(t, "110000000", balance.String())

	_, err = source.Balance(context.Background(), "not-an-address")
	assert.Error(t, err)
}

func TestBlockstreamRejectsInvalidAddress(t *testing.T) {
	source := NewBlockstream(testClient(), "http://unused")
	_, err := source.Transactions(context.Background(), "not-an-address")
	assert.Error(t, err)
}

func TestValidBase58Address(t *testing.T) {
	assert.True(t, ValidBase58Address("mfWyW5fc9NUj75YAnFgoRLrjxgLDn2MMth"))
	assert.True(t, ValidBase58Address("tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx"))
	assert.False(t, ValidBase58Address("mfWyW5fc9NUj75YAnFgoRLrjxgLDn2MMtj")) // bad checksum
	assert.False(t, ValidBase58Address("not-an-address"))
}
