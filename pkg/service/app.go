package service

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"keeway/models"
	"keeway/pkg/repository"
)

var (
	ErrAppNotFound   = errors.New("service: app not found")
	ErrAppInactive   = errors.New("service: app is inactive")
	ErrInvalidAPIKey = errors.New("service: invalid api key")
)

type AppService struct {
	repos *repository.Repository
}

func NewAppService(repos *repository.Repository) *AppService {
	return &AppService{repos: repos}
}

// CreateApp registers a tenant and mints its credentials. The secret key is
// shown exactly once; only its role as an HMAC key matters afterwards.
func (s *AppService) CreateApp(input models.CreateAppInput) (models.App, Credentials, error) {
	creds := Credentials{
		APIKey:    "kwy_" + uuid.NewString(),
		SecretKey: "kws_" + uuid.NewString(),
	}
	if input.DisplayName == "" {
		input.DisplayName = input.Name
	}

	app, err := s.repos.CreateApp(input, creds.APIKey, creds.SecretKey)
	if err != nil {
		return models.App{}, Credentials{}, err
	}
	return app, creds, nil
}

func (s *AppService) GetApp(id string) (models.App, error) {
	app, err := s.repos.GetAppByID(id)
	if errors.Is(err, repository.ErrNotFound) {
		return models.App{}, ErrAppNotFound
	}
	return app, err
}

func (s *AppService) UpdateApp(id string, input models.UpdateAppInput) (models.App, error) {
	app, err := s.repos.UpdateApp(id, input)
	if errors.Is(err, repository.ErrNotFound) {
		return models.App{}, ErrAppNotFound
	}
	return app, err
}

func (s *AppService) DeleteApp(id string) error {
	err := s.repos.DeleteApp(id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrAppNotFound
	}
	return err
}

// AuthenticateApp resolves an x-api-key header to its tenant.
func (s *AppService) AuthenticateApp(apiKey string) (models.App, error) {
	if apiKey == "" {
		return models.App{}, ErrInvalidAPIKey
	}
	app, err := s.repos.GetAppByAPIKey(apiKey)
	if errors.Is(err, repository.ErrNotFound) {
		return models.App{}, ErrInvalidAPIKey
	}
	if err != nil {
		return models.App{}, err
	}
	if !app.Active {
		return models.App{}, ErrAppInactive
	}
	return app, nil
}
