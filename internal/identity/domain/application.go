package domain

import (
	"time"

	"github.com/keyfold/identity/pkg/cryptox"
	"github.com/keyfold/identity/pkg/idx"
)

// Application is a registered OAuth-style client owned by a user. The
// owner never changes after creation, and the secret is only ever held in
// its encrypted form.
type Application struct {
	ID          idx.ID
	UserID      idx.ID
	Name        string
	SecretKey   cryptox.EncryptedSecretKey
	HomepageURL string
	CallbackURL string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewApplication constructs an application with a fresh id for the given
// owner.
func NewApplication(
	userID idx.ID,
	name string,
	secretKey cryptox.EncryptedSecretKey,
	homepageURL, callbackURL string,
	now time.Time,
) Application {
	return Application{
		ID:          idx.New(),
		UserID:      userID,
		Name:        name,
		SecretKey:   secretKey,
		HomepageURL: homepageURL,
		CallbackURL: callbackURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
