package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet is one deposit address for one App × one SupportedToken × one
// derivation index. Address and index are immutable; balances are rewritten by
// the reconciler. Rows are soft-deleted, never removed.
//
// Invariant after every reconciliation:
// PlatformBalance == TotalReceived - TotalSpent.
type Wallet struct {
	ID              string          `db:"id" json:"reference"`
	AppID           string          `db:"app_id" json:"-"`
	TokenID         string          `db:"token_id" json:"-"`
	Address         string          `db:"address" json:"address"`
	Index           int64           `db:"index" json:"index"`
	ContactName     *string         `db:"contact_name" json:"contactName"`
	ContactEmail    *string         `db:"contact_email" json:"contactEmail"`
	ContactPhone    *string         `db:"contact_phone" json:"contactPhone"`
	TargetAmount    decimal.Decimal `db:"target_amount" json:"targetAmount"`
	PlatformBalance decimal.Decimal `db:"platform_balance" json:"platformBalance"`
	OnChainBalance  decimal.Decimal `db:"on_chain_balance" json:"onChainBalance"`
	TotalReceived   decimal.Decimal `db:"total_received" json:"totalReceived"`
	TotalSpent      decimal.Decimal `db:"total_spent" json:"totalSpent"`
	Active          bool            `db:"active" json:"active"`
	IsDeleted       bool            `db:"is_deleted" json:"-"`
	ExpiresAt       *time.Time      `db:"expires_at" json:"expiresAt"`
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updatedAt"`

	// Joined reference data, populated by repository reads.
	Token SupportedToken `db:"-" json:"token"`
	App   App            `db:"-" json:"-"`
}

// WalletView is a Wallet with balances rescaled to major units for API output.
type WalletView struct {
	Reference       string          `json:"reference"`
	Address         string          `json:"address"`
	Index           int64           `json:"index"`
	Token           SupportedToken  `json:"token"`
	PlatformBalance decimal.Decimal `json:"platformBalance"`
	OnChainBalance  decimal.Decimal `json:"onChainBalance"`
	TotalReceived   decimal.Decimal `json:"totalReceived"`
	TotalSpent      decimal.Decimal `json:"totalSpent"`
	FiatCurrency    string          `json:"fiatCurrency,omitempty"`
	FiatValue       decimal.Decimal `json:"fiatValue"`
	ContactName     *string         `json:"contactName,omitempty"`
	ContactEmail    *string         `json:"contactEmail,omitempty"`
	ContactPhone    *string         `json:"contactPhone,omitempty"`
	ExpiresAt       *time.Time      `json:"expiresAt,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// View rescales base-unit balances by the token's decimals.
func (w Wallet) View() WalletView {
	d := -w.Token.Decimals
	return WalletView{
		Reference:       w.ID,
		Address:         w.Address,
		Index:           w.Index,
		Token:           w.Token,
		PlatformBalance: w.PlatformBalance.Shift(d),
		OnChainBalance:  w.OnChainBalance.Shift(d),
		TotalReceived:   w.TotalReceived.Shift(d),
		TotalSpent:      w.TotalSpent.Shift(d),
		ContactName:     w.ContactName,
		ContactEmail:    w.ContactEmail,
		ContactPhone:    w.ContactPhone,
		ExpiresAt:       w.ExpiresAt,
		CreatedAt:       w.CreatedAt,
	}
}

// BalanceView is an app's aggregate platform balance for one token, in major
// units, with an optional fiat quote.
type BalanceView struct {
	Token        SupportedToken  `json:"token"`
	Balance      decimal.Decimal `json:"balance"`
	FiatCurrency string          `json:"fiatCurrency,omitempty"`
	FiatValue    decimal.Decimal `json:"fiatValue,omitempty"`
}

type GenerateWalletInput struct {
	Blockchain      string          `json:"blockchain" binding:"required"`
	Network         string          `json:"network" binding:"required"`
	Token           string          `json:"token" binding:"required"`
	ContactName     string          `json:"contactName"`
	ContactEmail    string          `json:"contactEmail"`
	ContactPhone    string          `json:"contactPhone"`
	TargetAmount    decimal.Decimal `json:"targetAmount"`
	AddressValidity int64           `json:"addressValidity"` // seconds
}

type SendCryptoInput struct {
	Blockchain string          `json:"blockchain" binding:"required"`
	Network    string          `json:"network" binding:"required"`
	Token      string          `json:"token" binding:"required"`
	To         string          `json:"to" binding:"required"`
	Amount     decimal.Decimal `json:"amount" binding:"required"`
}
