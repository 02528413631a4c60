package provider

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"golang.org/x/crypto/bcrypt"
)

// MaxLoginAttempts is the number of failed logins an account gets
// inside the cooldown window.
var MaxLoginAttempts = 5

// CoolDownPeriod is the window after which the attempt counter resets.
var CoolDownPeriod = 24 * time.Hour

// Local is the email/password strategy. Mandatory; every deployment
// carries it.
type Local struct {
	store  UserStore
	logger Logger

	// now is swapped in tests
	now func() time.Time
}

func NewLocal(store UserStore, logger Logger) *Local {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Local{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

func (l *Local) Name() string {
	return "local"
}

// Verify checks the password against the stored hash. Unknown emails
// and wrong passwords both come back as ErrBadCredentials. Failed
// attempts are counted; past MaxLoginAttempts inside CoolDownPeriod the
// account cools off.
func (l *Local) Verify(ctx context.Context, email, password string) (*Account, error) {
	account, err := l.store.AccountByEmail(ctx, email)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrBadCredentials
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve account during verification")
	}

	if account.Deactivated {
		return nil, ErrAccountSuspended
	}

	attempts := account.LoginAttempts
	if account.LoginAttemptAt != nil && l.now().Sub(*account.LoginAttemptAt) > CoolDownPeriod {
		attempts = 0
	}

	if attempts > MaxLoginAttempts {
		return nil, ErrTooManyAttempts
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		if err2 := l.store.TrackAttemptedLogin(ctx, account.ID); err2 != nil {
			return nil, errors.Wrap(err2, errors.CategoryInternal, "failed to track login attempt")
		}
		return nil, ErrBadCredentials
	}

	if err := l.store.TrackSuccessfulLogin(ctx, account.ID); err != nil {
		l.logger.Error("failed to track successful login: %v", err)
	}

	return account, nil
}
