package repository

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"keeway/models"
)

type ExchangePostgres struct {
	db *sqlx.DB
}

func NewExchangePostgres(db *sqlx.DB) *ExchangePostgres {
	return &ExchangePostgres{db: db}
}

func (r *ExchangePostgres) CreateExchangeUser(user models.ExchangeUser) (models.ExchangeUser, error) {
	var created models.ExchangeUser
	query := `INSERT INTO exchange_user
			(app_id, first_name, last_name, username, email, phone, password, index)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING *`
	err := r.db.Get(&created, query,
		user.AppID, user.FirstName, user.LastName, user.Username,
		user.Email, user.Phone, user.Password, user.Index)
	if err != nil {
		return models.ExchangeUser{}, errors.Wrap(err, "create exchange user")
	}
	return created, nil
}

func (r *ExchangePostgres) GetExchangeUserByID(appID, id string) (models.ExchangeUser, error) {
	var user models.ExchangeUser
	query := `SELECT * FROM exchange_user WHERE id = $1 AND app_id = $2 AND NOT is_deleted`
	if err := r.db.Get(&user, query, id, appID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ExchangeUser{}, ErrNotFound
		}
		return models.ExchangeUser{}, errors.Wrap(err, "get exchange user")
	}
	return user, nil
}

// GetExchangeUserByLogin resolves a sign-in identifier, which may be either
// the email or the phone number.
func (r *ExchangePostgres) GetExchangeUserByLogin(appID, emailOrPhone string) (models.ExchangeUser, error) {
	var user models.ExchangeUser
	query := `SELECT * FROM exchange_user
		WHERE app_id = $1 AND (lower(email) = lower($2) OR phone = $2) AND NOT is_deleted`
	if err := r.db.Get(&user, query, appID, emailOrPhone); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ExchangeUser{}, ErrNotFound
		}
		return models.ExchangeUser{}, errors.Wrap(err, "get exchange user by login")
	}
	return user, nil
}

func (r *ExchangePostgres) UpdateExchangeProfile(appID, id string, input models.UpdateProfileInput) (models.ExchangeUser, error) {
	var user models.ExchangeUser
	query := `UPDATE exchange_user SET
			first_name = COALESCE($3, first_name),
			last_name = COALESCE($4, last_name),
			username = COALESCE($5, username),
			updated_at = now()
		WHERE id = $1 AND app_id = $2 AND NOT is_deleted
		RETURNING *`
	err := r.db.Get(&user, query, id, appID, input.FirstName, input.LastName, input.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ExchangeUser{}, ErrNotFound
		}
		return models.ExchangeUser{}, errors.Wrap(err, "update exchange profile")
	}
	return user, nil
}

// UpdateExchangePassword stores the new hash and, when requested, moves
// login_valid_from forward so previously issued tokens stop validating.
func (r *ExchangePostgres) UpdateExchangePassword(appID, id, hash string, invalidateSessions bool) error {
	query := `UPDATE exchange_user SET
			password = $3,
			login_valid_from = CASE WHEN $4 THEN now() ELSE login_valid_from END,
			updated_at = now()
		WHERE id = $1 AND app_id = $2 AND NOT is_deleted`
	result, err := r.db.Exec(query, id, appID, hash, invalidateSessions)
	if err != nil {
		return errors.Wrap(err, "update exchange password")
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ExchangePostgres) MarkEmailVerified(appID, id string) error {
	query := `UPDATE exchange_user SET verified_email = true, active = true, updated_at = now()
		WHERE id = $1 AND app_id = $2 AND NOT is_deleted`
	result, err := r.db.Exec(query, id, appID)
	if err != nil {
		return errors.Wrap(err, "mark email verified")
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// InvalidateSessions moves login_valid_from forward; tokens issued before now
// stop validating.
func (r *ExchangePostgres) InvalidateSessions(appID, id string) error {
	query := `UPDATE exchange_user SET login_valid_from = now(), updated_at = now()
		WHERE id = $1 AND app_id = $2 AND NOT is_deleted`
	result, err := r.db.Exec(query, id, appID)
	if err != nil {
		return errors.Wrap(err, "invalidate sessions")
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ExchangePostgres) SetTotpSecret(appID, id, secret string) error {
	query := `UPDATE exchange_user SET totp_secret = $3, updated_at = now()
		WHERE id = $1 AND app_id = $2 AND NOT is_deleted`
	result, err := r.db.Exec(query, id, appID, secret)
	if err != nil {
		return errors.Wrap(err, "set totp secret")
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// NextExchangeUserIndex draws from the same derivation sequence as wallets so
// a user's deposit addresses across tokens share one index.
func (r *ExchangePostgres) NextExchangeUserIndex() (int64, error) {
	var index int64
	if err := r.db.Get(&index, `SELECT nextval('wallet_index_seq')`); err != nil {
		return 0, errors.Wrap(err, "next exchange user index")
	}
	return index, nil
}
