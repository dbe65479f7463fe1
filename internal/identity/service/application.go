package service

import (
	"context"
	"errors"
	"time"

	"github.com/keyfold/identity/internal/identity/domain"
	"github.com/keyfold/identity/internal/identity/store"
	"github.com/keyfold/identity/pkg/cryptox"
	"github.com/keyfold/identity/pkg/idx"
	"github.com/keyfold/identity/pkg/slogx"
)

// ApplicationService registers applications and manages their secrets.
type ApplicationService struct {
	Store   store.Store
	Secrets *cryptox.Cipher
}

// CreateApplication registers an application for the given owner. The
// generated secret key is returned in plaintext exactly once; only its
// encrypted form is stored.
func (s *ApplicationService) CreateApplication(
	ctx context.Context,
	userID idx.ID,
	name, homepageURL, callbackURL string,
) (domain.Application, cryptox.SecretKey, error) {
	log := slogx.FromContext(ctx)

	if _, err := s.Store.Users().GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Application{}, "", UserNotFoundError{ID: userID}
		}
		return domain.Application{}, "", err
	}

	secret, err := cryptox.GenerateSecret()
	if err != nil {
		return domain.Application{}, "", err
	}

	app := domain.NewApplication(userID, name, s.Secrets.EncryptSecret(secret), homepageURL, callbackURL, time.Now())
	if err := s.Store.Applications().CreateApplication(ctx, app); err != nil {
		return domain.Application{}, "", err
	}

	log.Info("application created", "application_id", app.ID.String(), "user_id", userID.String())
	return app, secret, nil
}

// RotateSecret replaces an application's secret, returning the new plaintext
// once. Outstanding codes and tokens stay valid; only future token grants
// need the new secret.
func (s *ApplicationService) RotateSecret(ctx context.Context, applicationID idx.ID) (cryptox.SecretKey, error) {
	log := slogx.FromContext(ctx)

	app, err := s.Store.Applications().GetApplicationByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrApplicationNotFound
		}
		return "", err
	}

	secret, err := cryptox.GenerateSecret()
	if err != nil {
		return "", err
	}

	app.SecretKey = s.Secrets.EncryptSecret(secret)
	app.UpdatedAt = time.Now()
	if err := s.Store.Applications().UpdateApplication(ctx, app); err != nil {
		return "", err
	}

	log.Info("application secret rotated", "application_id", app.ID.String())
	return secret, nil
}
