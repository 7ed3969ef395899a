package repository

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"keeway/models"
)

type AppPostgres struct {
	db *sqlx.DB
}

func NewAppPostgres(db *sqlx.DB) *AppPostgres {
	return &AppPostgres{db: db}
}

func (r *AppPostgres) CreateApp(input models.CreateAppInput, apiKey, secretKey string) (models.App, error) {
	var app models.App
	query := `INSERT INTO app (name, display_name, support_email, webhook_url, api_key, secret_key)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING *`
	err := r.db.Get(&app, query, input.Name, input.DisplayName, input.SupportEmail, input.WebhookURL, apiKey, secretKey)
	if err != nil {
		return models.App{}, errors.Wrap(err, "create app")
	}
	return app, nil
}

func (r *AppPostgres) GetAppByAPIKey(apiKey string) (models.App, error) {
	var app models.App
	query := `SELECT * FROM app WHERE api_key = $1 AND NOT is_deleted`
	if err := r.db.Get(&app, query, apiKey); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.App{}, ErrNotFound
		}
		return models.App{}, errors.Wrap(err, "get app by api key")
	}
	return app, nil
}

func (r *AppPostgres) GetAppByID(id string) (models.App, error) {
	var app models.App
	query := `SELECT * FROM app WHERE id = $1 AND NOT is_deleted`
	if err := r.db.Get(&app, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.App{}, ErrNotFound
		}
		return models.App{}, errors.Wrap(err, "get app")
	}
	return app, nil
}

func (r *AppPostgres) UpdateApp(id string, input models.UpdateAppInput) (models.App, error) {
	var app models.App
	query := `UPDATE app SET
			display_name = COALESCE($2, display_name),
			support_email = COALESCE($3, support_email),
			webhook_url = COALESCE($4, webhook_url),
			updated_at = now()
		WHERE id = $1 AND NOT is_deleted
		RETURNING *`
	err := r.db.Get(&app, query, id, input.DisplayName, input.SupportEmail, input.WebhookURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.App{}, ErrNotFound
		}
		return models.App{}, errors.Wrap(err, "update app")
	}
	return app, nil
}

func (r *AppPostgres) DeleteApp(id string) error {
	result, err := r.db.Exec(`UPDATE app SET is_deleted = true, active = false, updated_at = now() WHERE id = $1 AND NOT is_deleted`, id)
	if err != nil {
		return errors.Wrap(err, "delete app")
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
