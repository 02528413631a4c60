// Package signup runs the invite-only registration pipeline: ordered
// gates that short-circuit on the first failure, then a single
// transactional commit and a best-effort welcome email.
package signup

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/taskvine/identity/mailer"
)

// Logger is implemented by the application logger.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Request is the registration payload.
type Request struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	TeamName  string `json:"team_name"`
	InviteID  string `json:"invite_id"`
	DiscordID string `json:"discord_id"`
	Phone     string `json:"phone"`
	Timezone  string `json:"timezone"`
}

// Account is the created (or conflicting) user as the orchestrator
// sees it.
type Account struct {
	ID          string
	Email       string
	Name        string
	Provider    string
	DiscordID   string
	TeamID      string
	Deactivated bool
}

// Store is what the orchestrator needs from persistence. Lookups
// return a not-found error for absent rows. Commit creates the user,
// redeems the invite, and attaches the team in one transaction; it
// returns the structured conflict errors from this package when a
// uniqueness constraint fires.
type Store interface {
	AccountByEmail(ctx context.Context, email string) (*Account, error)
	AccountByDiscordID(ctx context.Context, discordID string) (*Account, error)
	Commit(ctx context.Context, req Request) (*Account, error)
}

// GuildChecker confirms community membership. Satisfied by the gateway.
type GuildChecker interface {
	IsUserInGuild(ctx context.Context, userID, guildID string) bool
}

// Orchestrator owns the gate sequence. Construct one per process and
// share it.
type Orchestrator struct {
	store   Store
	guild   GuildChecker
	guildID string
	mail    mailer.Mailer
	logger  Logger

	// OnOutcome receives the text code of every finished signup
	// ("ok" on success). Wired to metrics by the application.
	OnOutcome func(code string)
}

type Option func(*Orchestrator)

func WithGuildChecker(guild GuildChecker, guildID string) Option {
	return func(o *Orchestrator) {
		o.guild = guild
		o.guildID = guildID
	}
}

func WithMailer(m mailer.Mailer) Option {
	return func(o *Orchestrator) {
		if m != nil {
			o.mail = m
		}
	}
}

func WithLogger(logger Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func New(store Store, opts ...Option) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("signup orchestrator requires a store", errors.CategoryOperation)
	}

	o := &Orchestrator{
		store:  store,
		mail:   mailer.NewNoop(nil),
		logger: noopLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	return o, nil
}

// Signup runs the gates and, when they all pass, commits the new
// account. The commit runs on a detached context so a dropped client
// connection cannot leave the invite half-redeemed.
func (o *Orchestrator) Signup(ctx context.Context, req Request) (*Account, error) {
	if err := o.gates(ctx, req); err != nil {
		o.outcome(err)
		return nil, err
	}

	account, err := o.store.Commit(context.WithoutCancel(ctx), req)
	if err != nil {
		o.logger.Error("signup commit failed email=%s error=%v", req.Email, err)
		o.outcome(err)
		return nil, err
	}

	o.logger.Info("user signed up id=%s email=%s team=%s", account.ID, account.Email, req.TeamName)
	o.outcome(nil)

	go o.sendWelcome(account)

	return account, nil
}

// Check runs every gate without committing. Backs the dry-run endpoint
// the clients poll while the user fills the form.
func (o *Orchestrator) Check(ctx context.Context, req Request) error {
	err := o.gates(ctx, req)
	if err != nil {
		o.outcome(err)
	}
	return err
}

func (o *Orchestrator) gates(ctx context.Context, req Request) error {
	if req.TeamName == "" {
		return ErrTeamNameRequired
	}

	if req.InviteID == "" {
		return ErrInviteRequired
	}

	if req.DiscordID == "" {
		return ErrDiscordIDRequired
	}

	if !ValidDiscordID(req.DiscordID) {
		return ErrDiscordIDInvalid
	}

	if err := validateRequest(req); err != nil {
		return err
	}

	if err := o.checkDiscordUnbound(ctx, req.DiscordID); err != nil {
		return err
	}

	if err := o.checkGuildMembership(ctx, req.DiscordID); err != nil {
		return err
	}

	return o.checkEmailHistory(ctx, req.Email)
}

func (o *Orchestrator) checkDiscordUnbound(ctx context.Context, discordID string) error {
	existing, err := o.store.AccountByDiscordID(ctx, discordID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil
		}
		return errors.Wrap(err, errors.CategoryInternal, "discord id lookup failed")
	}

	o.logger.Warn("signup rejected, discord id bound discord_id=%s existing=%s", discordID, existing.ID)

	return errors.New(ErrDiscordIDTaken.Message, ErrDiscordIDTaken.Category).
		WithTextCode(ErrDiscordIDTaken.TextCode).
		WithCode(errors.CodeConflict).
		WithMetadata(map[string]any{"discord_id": discordID})
}

func (o *Orchestrator) checkGuildMembership(ctx context.Context, discordID string) error {
	if o.guild == nil || o.guildID == "" {
		o.logger.Error("guild membership check unavailable, rejecting discord_id=%s", discordID)
		return ErrGuildCheckFailed
	}

	if !o.guild.IsUserInGuild(ctx, discordID, o.guildID) {
		o.logger.Warn("guild membership denied discord_id=%s guild=%s", discordID, o.guildID)
		return ErrGuildCheckFailed
	}

	return nil
}

func (o *Orchestrator) checkEmailHistory(ctx context.Context, email string) error {
	existing, err := o.store.AccountByEmail(ctx, email)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil
		}
		return errors.Wrap(err, errors.CategoryInternal, "email lookup failed")
	}

	if existing.Provider != "" && existing.Provider != "local" {
		return ErrProviderConflict
	}

	if existing.Deactivated {
		return ErrAccountDeactivated
	}

	// an active local duplicate surfaces as ErrEmailTaken at commit
	return nil
}

func (o *Orchestrator) sendWelcome(account *Account) {
	msg := mailer.Message{
		Subject:    "Welcome to Taskvine",
		HTML:       welcomeBody(account.Name),
		Recipients: []string{account.Email},
	}

	if err := o.mail.Send(context.Background(), msg); err != nil {
		o.logger.Error("welcome email failed recipient=%s error=%v", account.Email, err)
	}
}

func (o *Orchestrator) outcome(err error) {
	if o.OnOutcome == nil {
		return
	}

	if err == nil {
		o.OnOutcome("ok")
		return
	}

	var e *errors.Error
	if errors.As(err, &e) && e.TextCode != "" {
		o.OnOutcome(e.TextCode)
		return
	}

	o.OnOutcome(TextCodeFailed)
}

func welcomeBody(name string) string {
	if name == "" {
		name = "there"
	}
	return "<p>Hi " + name + ",</p>" +
		"<p>Your account is ready. Jump back in and say hello to your team.</p>"
}

type noopLogger struct{}

func (noopLogger) Debug(format string, args ...any) {}
func (noopLogger) Info(format string, args ...any)  {}
func (noopLogger) Warn(format string, args ...any)  {}
func (noopLogger) Error(format string, args ...any) {}
