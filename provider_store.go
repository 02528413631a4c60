package identity

import (
	"context"

	errors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/taskvine/identity/provider"
)

// ProviderStore adapts the users repository to the provider registry:
// local login lookups and session deserialization.
type ProviderStore struct {
	repo RepositoryManager
}

var _ provider.UserStore = (*ProviderStore)(nil)

func NewProviderStore(repo RepositoryManager) *ProviderStore {
	return &ProviderStore{repo: repo}
}

func (s *ProviderStore) AccountByEmail(ctx context.Context, email string) (*provider.Account, error) {
	user, err := s.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return providerAccount(user), nil
}

func (s *ProviderStore) AccountByID(ctx context.Context, id string) (*provider.Account, error) {
	user, err := s.repo.Users().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return providerAccount(user), nil
}

func (s *ProviderStore) TrackAttemptedLogin(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "user id is not a uuid")
	}
	return s.repo.Users().TrackAttemptedLogin(ctx, &User{ID: uid})
}

func (s *ProviderStore) TrackSuccessfulLogin(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "user id is not a uuid")
	}
	return s.repo.Users().TrackSucccessfulLogin(ctx, &User{ID: uid})
}

func providerAccount(user *User) *provider.Account {
	if user == nil {
		return nil
	}

	return &provider.Account{
		ID:             user.ID.String(),
		Email:          user.Email,
		Name:           user.Name,
		Role:           user.Role,
		PasswordHash:   user.PasswordHash,
		Deactivated:    user.Deactivated(),
		LoginAttempts:  user.LoginAttempts,
		LoginAttemptAt: user.LoginAttemptAt,
	}
}
