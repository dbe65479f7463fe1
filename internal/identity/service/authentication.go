package service

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/time/rate"

	"github.com/keyfold/identity/internal/identity/domain"
	"github.com/keyfold/identity/internal/identity/obs"
	"github.com/keyfold/identity/internal/identity/store"
	"github.com/keyfold/identity/pkg/slogx"
)

// ErrTooManyAttempts is returned when an email exceeds its login budget.
var ErrTooManyAttempts = errors.New("too many authentication attempts")

const (
	// 5 attempts per minute per email, with a burst of 5.
	defaultLoginRate  = rate.Limit(5.0 / 60.0)
	defaultLoginBurst = 5
)

// AuthenticationService verifies user credentials. A wrong email and a wrong
// password are indistinguishable to the caller: both return a nil user and a
// nil error, so the response never reveals which half failed.
type AuthenticationService struct {
	Store   store.Store
	Metrics *obs.Metrics

	// Rate and Burst override the per-email throttle; zero values use the
	// defaults above.
	Rate  rate.Limit
	Burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// Authenticate loads the user by email and verifies the password against the
// stored hash. Returns (nil, nil) on unknown email or failed verification.
func (s *AuthenticationService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	log := slogx.FromContext(ctx)

	if !s.allow(email) {
		log.Warn("authentication throttled", "email", email)
		return nil, ErrTooManyAttempts
	}

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.Metrics.AuthenticationFailed()
			return nil, nil
		}
		return nil, err
	}

	if !user.Password.Verify(password) {
		s.Metrics.AuthenticationFailed()
		return nil, nil
	}

	return &user, nil
}

func (s *AuthenticationService) allow(email string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.limiters == nil {
		s.limiters = make(map[string]*rate.Limiter)
	}
	lim, ok := s.limiters[email]
	if !ok {
		r, b := s.Rate, s.Burst
		if r <= 0 {
			r = defaultLoginRate
		}
		if b <= 0 {
			b = defaultLoginBurst
		}
		lim = rate.NewLimiter(r, b)
		s.limiters[email] = lim
	}
	return lim.Allow()
}
