package models

import "time"

// Network is reference data for one chain: where to poll, where to call, and
// which wallet factory derives deposit addresses on it.
type Network struct {
	ID            string    `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Blockchain    string    `db:"blockchain" json:"blockchain"`
	ChainID       int64     `db:"chain_id" json:"chainId"`
	RPC           string    `db:"rpc" json:"rpc"`
	Explorer      string    `db:"explorer" json:"explorer"`
	WalletFactory string    `db:"wallet_factory" json:"walletFactory"`
	ParentNetwork *string   `db:"parent_network" json:"parentNetwork"`
	IsDeleted     bool      `db:"is_deleted" json:"-"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`
}
