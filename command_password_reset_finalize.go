package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type FinalizePasswordResetMessage struct {
	Token    string `json:"token" doc:"Signed password reset token from the email link."`
	Password string `json:"password" example:"some_secret_word" doc:"New password."`
}

func (p FinalizePasswordResetMessage) Type() string { return "user.password_reset_finalize" }

// FinalizePasswordResetHandler burns the reset request and writes the
// new password hash. The token is single-flow: minting and validation
// both pin the password reset purpose.
type FinalizePasswordResetHandler struct {
	repo   RepositoryManager
	tokens TokenService
	logger Logger
}

func NewFinalizePasswordResetHandler(repo RepositoryManager, tokens TokenService) *FinalizePasswordResetHandler {
	return &FinalizePasswordResetHandler{
		repo:   repo,
		tokens: tokens,
		logger: defLogger{},
	}
}

func (h *FinalizePasswordResetHandler) WithLogger(logger Logger) *FinalizePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *FinalizePasswordResetHandler) Execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset finalization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *FinalizePasswordResetHandler) execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	claims, err := h.tokens.Validate(event.Token, PurposePasswordReset)
	if err != nil {
		return err
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		reset := &PasswordReset{}
		err := tx.NewSelect().
			Model(reset).
			Where("?TableAlias.user_id = ?", userID).
			Where("?TableAlias.status = ?", ResetRequestedStatus).
			Order("created_at DESC").
			Limit(1).
			Scan(ctx)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return goerrors.New("invalid or expired password reset token", goerrors.CategoryNotFound).
					WithCode(goerrors.CodeNotFound)
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not retrieve password reset request")
		}

		if reset.CreatedAt == nil {
			return goerrors.New("password reset record is missing creation date", goerrors.CategoryInternal)
		}

		expired, err := IsOutsideThresholdPeriod(*reset.CreatedAt, "24h")
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check token expiration period")
		}

		if expired {
			return goerrors.New("password reset token has expired", goerrors.CategoryValidation).
				WithTextCode(TextCodeTokenExpired)
		}

		passwordHash, err := HashPassword(event.Password)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new password provided")
		}

		if err := h.repo.Users().ResetPasswordTx(ctx, tx, userID, passwordHash); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user password in database")
		}

		now := time.Now()
		reset.Status = ResetChangedStatus
		reset.ResetedAt = &now
		if _, err := h.repo.PasswordResets().UpdateTx(ctx, tx, reset); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update password reset status")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to finalize password reset")
	}

	h.logger.Info("password reset completed user=%s", userID)

	return nil
}
