package signup_test

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/taskvine/identity/mailer"
	"github.com/taskvine/identity/signup"
)

// MockStore implements signup.Store
type MockStore struct {
	mock.Mock
}

func (m *MockStore) AccountByEmail(ctx context.Context, email string) (*signup.Account, error) {
	args := m.Called(ctx, email)
	account, _ := args.Get(0).(*signup.Account)
	return account, args.Error(1)
}

func (m *MockStore) AccountByDiscordID(ctx context.Context, discordID string) (*signup.Account, error) {
	args := m.Called(ctx, discordID)
	account, _ := args.Get(0).(*signup.Account)
	return account, args.Error(1)
}

func (m *MockStore) Commit(ctx context.Context, req signup.Request) (*signup.Account, error) {
	args := m.Called(ctx, req)
	account, _ := args.Get(0).(*signup.Account)
	return account, args.Error(1)
}

// MockGuild implements signup.GuildChecker
type MockGuild struct {
	mock.Mock
}

func (m *MockGuild) IsUserInGuild(ctx context.Context, userID, guildID string) bool {
	args := m.Called(ctx, userID, guildID)
	return args.Bool(0)
}

// MockMailer implements mailer.Mailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, msg mailer.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}
