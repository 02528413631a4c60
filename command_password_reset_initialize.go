package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/taskvine/identity/mailer"
	"github.com/uptrace/bun"
)

// PasswordResetTTL bounds how long a reset link stays valid.
var PasswordResetTTL = 24 * time.Hour

type InitializePasswordResetMessage struct {
	Email string `json:"email" example:"pepe.rone@example.com" doc:"Account email."`
	// BaseURL prefixes the reset link placed in the email.
	BaseURL string `json:"-"`
}

func (p InitializePasswordResetMessage) Type() string { return "user.password_reset" }

// InitializePasswordResetHandler records the reset request and mails a
// signed link. An unknown email completes silently; the response never
// discloses whether the account exists.
type InitializePasswordResetHandler struct {
	repo   RepositoryManager
	tokens TokenService
	mail   mailer.Mailer
	logger Logger
}

func NewInitializePasswordResetHandler(repo RepositoryManager, tokens TokenService, mail mailer.Mailer) *InitializePasswordResetHandler {
	if mail == nil {
		mail = mailer.NewNoop(nil)
	}
	return &InitializePasswordResetHandler{
		repo:   repo,
		tokens: tokens,
		mail:   mail,
		logger: defLogger{},
	}
}

func (h *InitializePasswordResetHandler) WithLogger(logger Logger) *InitializePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	reset := &PasswordReset{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var token string

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().GetByEmail(ctx, event.Email)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return nil
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password reset")
		}

		reset.UserID = &user.ID
		reset.Email = user.Email
		reset.Status = ResetRequestedStatus
		if reset, err = h.repo.PasswordResets().CreateTx(ctx, tx, reset); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create password reset record")
		}

		token, err = h.tokens.Mint(user.ID, user.Email, PurposePasswordReset, PasswordResetTTL)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mint password reset token")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to initialize password reset")
	}

	if token == "" {
		// unknown account, nothing to send
		return nil
	}

	go h.sendResetEmail(reset.Email, event.BaseURL, token)

	return nil
}

func (h *InitializePasswordResetHandler) sendResetEmail(email, baseURL, token string) {
	link := baseURL + "/update-password?token=" + token

	msg := mailer.Message{
		Subject:    "Reset your password",
		HTML:       "<p>A password reset was requested for this address.</p><p><a href=\"" + link + "\">Choose a new password</a></p>",
		Recipients: []string{email},
	}

	if err := h.mail.Send(context.Background(), msg); err != nil {
		h.logger.Error("password reset email failed recipient=%s error=%v", email, err)
	}
}
