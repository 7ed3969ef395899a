package models

import "time"

// App is a tenant. Its secretKey signs wallet salts and webhook payloads and
// never changes after creation.
type App struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	DisplayName  string    `db:"display_name" json:"displayName"`
	SupportEmail string    `db:"support_email" json:"supportEmail"`
	WebhookURL   string    `db:"webhook_url" json:"webhookUrl"`
	APIKey       string    `db:"api_key" json:"-"`
	SecretKey    string    `db:"secret_key" json:"-"`
	Active       bool      `db:"active" json:"active"`
	IsDeleted    bool      `db:"is_deleted" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

type CreateAppInput struct {
	Name         string `json:"name" binding:"required"`
	DisplayName  string `json:"displayName"`
	SupportEmail string `json:"supportEmail"`
	WebhookURL   string `json:"webhookUrl"`
}

type UpdateAppInput struct {
	DisplayName  *string `json:"displayName"`
	SupportEmail *string `json:"supportEmail"`
	WebhookURL   *string `json:"webhookUrl"`
}
