package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SupportedToken describes one (blockchain, network, symbol) tuple. Immutable
// after verification except balance-irrelevant metadata.
type SupportedToken struct {
	ID                 string          `db:"id" json:"id"`
	Blockchain         string          `db:"blockchain" json:"blockchain"`
	Network            string          `db:"network" json:"network"`
	Symbol             string          `db:"symbol" json:"symbol"`
	Name               string          `db:"name" json:"name"`
	Decimals           int32           `db:"decimals" json:"decimals"`
	ContractAddress    *string         `db:"contract_address" json:"contractAddress"`
	IsNativeToken      bool            `db:"is_native_token" json:"isNativeToken"`
	CoinGeckoID        string          `db:"coin_gecko_id" json:"coinGeckoId"`
	MinimumDrainAmount decimal.Decimal `db:"minimum_drain_amount" json:"minimumDrainAmount"`
	Verified           bool            `db:"verified" json:"verified"`
	CreatedAt          time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updatedAt"`
}

// DrainThreshold is minimumDrainAmount scaled to base units.
func (t SupportedToken) DrainThreshold() decimal.Decimal {
	return t.MinimumDrainAmount.Shift(t.Decimals)
}
