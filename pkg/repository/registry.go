package repository

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"keeway/models"
)

// RegistryPostgres reads the supported-token and network reference tables.
// Both are seeded by migrations and change rarely.
type RegistryPostgres struct {
	db *sqlx.DB
}

func NewRegistryPostgres(db *sqlx.DB) *RegistryPostgres {
	return &RegistryPostgres{db: db}
}

func (r *RegistryPostgres) GetToken(blockchain, network, symbol string) (models.SupportedToken, error) {
	var token models.SupportedToken
	query := `SELECT * FROM supported_token
		WHERE blockchain = $1 AND network = $2 AND lower(symbol) = lower($3)`
	if err := r.db.Get(&token, query, blockchain, network, symbol); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.SupportedToken{}, ErrNotFound
		}
		return models.SupportedToken{}, errors.Wrap(err, "get token")
	}
	return token, nil
}

func (r *RegistryPostgres) GetTokenByID(id string) (models.SupportedToken, error) {
	var token models.SupportedToken
	if err := r.db.Get(&token, `SELECT * FROM supported_token WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.SupportedToken{}, ErrNotFound
		}
		return models.SupportedToken{}, errors.Wrap(err, "get token by id")
	}
	return token, nil
}

func (r *RegistryPostgres) ListVerifiedTokens() ([]models.SupportedToken, error) {
	var tokens []models.SupportedToken
	if err := r.db.Select(&tokens, `SELECT * FROM supported_token WHERE verified ORDER BY blockchain, network, symbol`); err != nil {
		return nil, errors.Wrap(err, "list verified tokens")
	}
	return tokens, nil
}

func (r *RegistryPostgres) GetNetwork(name string) (models.Network, error) {
	var network models.Network
	query := `SELECT * FROM network WHERE name = $1 AND NOT is_deleted`
	if err := r.db.Get(&network, query, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Network{}, ErrNotFound
		}
		return models.Network{}, errors.Wrap(err, "get network")
	}
	return network, nil
}

func (r *RegistryPostgres) ListNetworks() ([]models.Network, error) {
	var networks []models.Network
	if err := r.db.Select(&networks, `SELECT * FROM network WHERE NOT is_deleted ORDER BY name`); err != nil {
		return nil, errors.Wrap(err, "list networks")
	}
	return networks, nil
}
