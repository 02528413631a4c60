package signup_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/taskvine/identity/mailer"
	"github.com/taskvine/identity/signup"
)

func validRequest() signup.Request {
	return signup.Request{
		Name:      "Pepe Rone",
		Email:     "pepe@example.com",
		Password:  "correct-horse",
		TeamName:  "acme",
		InviteID:  "inv-123",
		DiscordID: "123456789012345678",
		Timezone:  "America/New_York",
	}
}

func notFound() error {
	return errors.New("record not found", errors.CategoryNotFound)
}

func newOrchestrator(t *testing.T, store *MockStore, guild *MockGuild, mail *MockMailer) *signup.Orchestrator {
	t.Helper()

	opts := []signup.Option{}
	if guild != nil {
		opts = append(opts, signup.WithGuildChecker(guild, "guild-1"))
	}
	if mail != nil {
		opts = append(opts, signup.WithMailer(mail))
	}

	o, err := signup.New(store, opts...)
	require.NoError(t, err)
	return o
}

func TestNewRequiresStore(t *testing.T) {
	_, err := signup.New(nil)
	require.Error(t, err)
}

func TestSignupRejectsMissingTeamName(t *testing.T) {
	store := &MockStore{}
	o := newOrchestrator(t, store, nil, nil)

	req := validRequest()
	req.TeamName = ""

	_, err := o.Signup(context.Background(), req)
	assert.True(t, errors.Is(err, signup.ErrTeamNameRequired))
	store.AssertNotCalled(t, "Commit", mock.Anything, mock.Anything)
}

func TestSignupInviteGateFiresBeforeDiscordGate(t *testing.T) {
	store := &MockStore{}
	o := newOrchestrator(t, store, nil, nil)

	req := validRequest()
	req.InviteID = ""
	req.DiscordID = ""

	_, err := o.Signup(context.Background(), req)
	assert.True(t, errors.Is(err, signup.ErrInviteRequired))
}

func TestSignupRejectsMissingDiscordID(t *testing.T) {
	store := &MockStore{}
	o := newOrchestrator(t, store, nil, nil)

	req := validRequest()
	req.DiscordID = ""

	_, err := o.Signup(context.Background(), req)
	assert.True(t, errors.Is(err, signup.ErrDiscordIDRequired))
}

func TestSignupRejectsMalformedDiscordIDBeforeAnyLookup(t *testing.T) {
	cases := []string{
		"12345",                // 5 digits
		"1234567890123456",     // 16 digits
		"12345678901234567890", // 20 digits
		"12345678901234567a",   // non-digit
	}

	for _, id := range cases {
		store := &MockStore{}
		guild := &MockGuild{}
		o := newOrchestrator(t, store, guild, nil)

		req := validRequest()
		req.DiscordID = id

		_, err := o.Signup(context.Background(), req)
		assert.True(t, errors.Is(err, signup.ErrDiscordIDInvalid), "id %q", id)
		store.AssertNotCalled(t, "AccountByDiscordID", mock.Anything, mock.Anything)
		guild.AssertNotCalled(t, "IsUserInGuild", mock.Anything, mock.Anything, mock.Anything)
	}
}

func TestSignupAcceptsSnowflakeLengths(t *testing.T) {
	assert.True(t, signup.ValidDiscordID("12345678901234567"))   // 17
	assert.True(t, signup.ValidDiscordID("123456789012345678"))  // 18
	assert.True(t, signup.ValidDiscordID("1234567890123456789")) // 19
	assert.False(t, signup.ValidDiscordID(""))
}

func TestSignupRejectsBoundDiscordID(t *testing.T) {
	store := &MockStore{}
	store.On("AccountByDiscordID", mock.Anything, "123456789012345678").
		Return(&signup.Account{ID: "u9"}, nil)

	guild := &MockGuild{}
	o := newOrchestrator(t, store, guild, nil)

	_, err := o.Signup(context.Background(), validRequest())
	require.Error(t, err)

	var e *errors.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, signup.TextCodeDiscordIDTaken, e.TextCode)
	assert.Equal(t, "123456789012345678", e.Metadata["discord_id"])
	guild.AssertNotCalled(t, "IsUserInGuild", mock.Anything, mock.Anything, mock.Anything)
}

func TestSignupRejectsWhenGuildCheckerAbsent(t *testing.T) {
	store := &MockStore{}
	store.On("AccountByDiscordID", mock.Anything, mock.Anything).Return(nil, notFound())

	o := newOrchestrator(t, store, nil, nil)

	_, err := o.Signup(context.Background(), validRequest())
	assert.True(t, errors.Is(err, signup.ErrGuildCheckFailed))
}

func TestSignupRejectsNonMember(t *testing.T) {
	store := &MockStore{}
	store.On("AccountByDiscordID", mock.Anything, mock.Anything).Return(nil, notFound())

	guild := &MockGuild{}
	guild.On("IsUserInGuild", mock.Anything, "123456789012345678", "guild-1").Return(false)

	o := newOrchestrator(t, store, guild, nil)

	_, err := o.Signup(context.Background(), validRequest())
	assert.True(t, errors.Is(err, signup.ErrGuildCheckFailed))
	store.AssertNotCalled(t, "Commit", mock.Anything, mock.Anything)
}

func TestSignupRejectsProviderConflict(t *testing.T) {
	store := &MockStore{}
	store.On("AccountByDiscordID", mock.Anything, mock.Anything).Return(nil, notFound())
	store.On("AccountByEmail", mock.Anything, "pepe@example.com").
		Return(&signup.Account{ID: "u1", Provider: "google"}, nil)

	guild := &MockGuild{}
	guild.On("IsUserInGuild", mock.Anything, mock.Anything, mock.Anything).Return(true)

	o := newOrchestrator(t, store, guild, nil)

	_, err := o.Signup(context.Background(), validRequest())
	assert.True(t, errors.Is(err, signup.ErrProviderConflict))
}

func TestSignupRejectsDeactivatedAccount(t *testing.T) {
	store := &MockStore{}
	store.On("AccountByDiscordID", mock.Anything, mock.Anything).Return(nil, notFound())
	store.On("AccountByEmail", mock.Anything, mock.Anything).
		Return(&signup.Account{ID: "u1", Provider: "local", Deactivated: true}, nil)

	guild := &MockGuild{}
	guild.On("IsUserInGuild", mock.Anything, mock.Anything, mock.Anything).Return(true)

	o := newOrchestrator(t, store, guild, nil)

	_, err := o.Signup(context.Background(), validRequest())
	assert.True(t, errors.Is(err, signup.ErrAccountDeactivated))
}

func TestSignupHappyPathCommitsOnceAndSendsOneEmail(t *testing.T) {
	store := &MockStore{}
	store.On("AccountByDiscordID", mock.Anything, mock.Anything).Return(nil, notFound())
	store.On("AccountByEmail", mock.Anything, mock.Anything).Return(nil, notFound())
	store.On("Commit", mock.Anything, mock.Anything).
		Return(&signup.Account{ID: "u1", Email: "pepe@example.com", Name: "Pepe Rone"}, nil).
		Once()

	guild := &MockGuild{}
	guild.On("IsUserInGuild", mock.Anything, mock.Anything, mock.Anything).Return(true)

	sent := make(chan struct{}, 1)
	mail := &MockMailer{}
	mail.On("Send", mock.Anything, mock.MatchedBy(func(msg mailer.Message) bool {
		return len(msg.Recipients) == 1 && msg.Recipients[0] == "pepe@example.com"
	})).Run(func(mock.Arguments) {
		sent <- struct{}{}
	}).Return(nil).Once()

	outcomes := []string{}
	o := newOrchestrator(t, store, guild, mail)
	o.OnOutcome = func(code string) { outcomes = append(outcomes, code) }

	account, err := o.Signup(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, "u1", account.ID)

	select {
	case <-sent:
	case <-time.After(time.Second):
		t.Fatal("welcome email never dispatched")
	}

	store.AssertNumberOfCalls(t, "Commit", 1)
	mail.AssertExpectations(t)
	assert.Equal(t, []string{"ok"}, outcomes)
}

func TestSignupCommitFailureSendsNoEmail(t *testing.T) {
	store := &MockStore{}
	store.On("AccountByDiscordID", mock.Anything, mock.Anything).Return(nil, notFound())
	store.On("AccountByEmail", mock.Anything, mock.Anything).Return(nil, notFound())
	store.On("Commit", mock.Anything, mock.Anything).Return(nil, signup.ErrEmailTaken)

	guild := &MockGuild{}
	guild.On("IsUserInGuild", mock.Anything, mock.Anything, mock.Anything).Return(true)

	mail := &MockMailer{}

	o := newOrchestrator(t, store, guild, mail)

	_, err := o.Signup(context.Background(), validRequest())
	assert.True(t, errors.Is(err, signup.ErrEmailTaken))
	mail.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestCheckRunsGatesWithoutCommit(t *testing.T) {
	store := &MockStore{}
	store.On("AccountByDiscordID", mock.Anything, mock.Anything).Return(nil, notFound())
	store.On("AccountByEmail", mock.Anything, mock.Anything).Return(nil, notFound())

	guild := &MockGuild{}
	guild.On("IsUserInGuild", mock.Anything, mock.Anything, mock.Anything).Return(true)

	o := newOrchestrator(t, store, guild, nil)

	require.NoError(t, o.Check(context.Background(), validRequest()))
	store.AssertNotCalled(t, "Commit", mock.Anything, mock.Anything)
}

func TestNormalizePhone(t *testing.T) {
	got, err := signup.NormalizePhone("(212) 555-0175")
	require.NoError(t, err)
	assert.Equal(t, "+12125550175", got)

	_, err = signup.NormalizePhone("not a number")
	require.Error(t, err)
}
