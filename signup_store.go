package identity

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	errors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/taskvine/identity/signup"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

// unique constraints the signup commit can trip
const (
	constraintUsersEmail     = "users_email_key"
	constraintUsersDiscordID = "users_discord_id_key"
	constraintTeamsName      = "teams_name_key"
)

const sqlstateUniqueViolation = "23505"

// SignupStore adapts the repository manager to the signup pipeline.
type SignupStore struct {
	repo   RepositoryManager
	logger Logger

	// now is swapped in tests
	now func() time.Time
}

var _ signup.Store = (*SignupStore)(nil)

func NewSignupStore(repo RepositoryManager) *SignupStore {
	return &SignupStore{
		repo:   repo,
		logger: defLogger{},
		now:    time.Now,
	}
}

func (s *SignupStore) WithLogger(logger Logger) *SignupStore {
	if logger != nil {
		s.logger = logger
	}
	return s
}

func (s *SignupStore) AccountByEmail(ctx context.Context, email string) (*signup.Account, error) {
	user, err := s.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return signupAccount(user), nil
}

func (s *SignupStore) AccountByDiscordID(ctx context.Context, discordID string) (*signup.Account, error) {
	user, err := s.repo.Users().GetByDiscordID(ctx, discordID)
	if err != nil {
		return nil, err
	}
	return signupAccount(user), nil
}

// Commit creates the user, redeems the invite, and resolves the team in
// one transaction. When the invite points at the team named in the
// request the user joins it; otherwise a new team is created with the
// user as owner.
func (s *SignupStore) Commit(ctx context.Context, req signup.Request) (*signup.Account, error) {
	inviteID, err := uuid.Parse(strings.TrimSpace(req.InviteID))
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "invite id is not valid").
			WithTextCode(signup.TextCodeInviteRequired)
	}

	var created *User

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		invite, err := s.repo.Invites().GetPendingTx(ctx, tx, inviteID)
		if err != nil {
			return err
		}
		if !invite.Redeemable(s.now()) {
			return errors.New("invite has expired", errors.CategoryAuthz).
				WithTextCode(signup.TextCodeInviteRequired)
		}

		hash, err := HashPassword(req.Password)
		if err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "failed to hash password")
		}

		user := &User{
			Email:        strings.ToLower(strings.TrimSpace(req.Email)),
			Name:         req.Name,
			DiscordID:    req.DiscordID,
			Timezone:     req.Timezone,
			Provider:     ProviderLocal,
			PasswordHash: hash,
		}
		user.Username = usernameFromEmail(user.Email)

		if id, err := hashid.NewUUID(user.Email); err == nil {
			user.ID = id
		}

		if req.Phone != "" {
			phone, err := signup.NormalizePhone(req.Phone)
			if err != nil {
				return err
			}
			user.Phone = phone
		}

		if invite.Team != nil && strings.EqualFold(invite.Team.Name, req.TeamName) {
			user.TeamID = &invite.TeamID
			if role, ok := ParseRole(invite.Role); ok {
				user.Role = role
			} else {
				user.Role = RoleMember
			}
		} else {
			team := &Team{
				Name:    req.TeamName,
				OwnerID: &user.ID,
			}
			if team, err = s.repo.Teams().CreateTx(ctx, tx, team); err != nil {
				return err
			}
			user.TeamID = &team.ID
			user.Role = RoleOwner
		}

		if created, err = s.repo.Users().CreateTx(ctx, tx, user); err != nil {
			return err
		}

		return s.repo.Invites().MarkRedeemedTx(ctx, tx, invite.ID)
	})

	if err != nil {
		return nil, mapSignupCommitError(err)
	}

	return signupAccount(created), nil
}

// mapSignupCommitError turns unique violations into the structured
// conflicts the pipeline promises. Constraint names are the contract
// with the schema; anything unrecognized degrades to the generic
// failure.
func mapSignupCommitError(err error) error {
	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.TextCode != "" {
		return richErr
	}

	var pgErr pgdriver.Error
	if stderrors.As(err, &pgErr) && pgErr.Field('C') == sqlstateUniqueViolation {
		switch pgErr.Field('n') {
		case constraintUsersEmail:
			return signup.ErrEmailTaken
		case constraintUsersDiscordID:
			return signup.ErrDiscordIDTaken
		case constraintTeamsName:
			return signup.ErrTeamNameTaken
		}
	}

	return errors.Wrap(err, signup.ErrSignupFailed.Category, signup.ErrSignupFailed.Message).
		WithTextCode(signup.ErrSignupFailed.TextCode)
}

func signupAccount(user *User) *signup.Account {
	if user == nil {
		return nil
	}

	account := &signup.Account{
		ID:          user.ID.String(),
		Email:       user.Email,
		Name:        user.Name,
		Provider:    user.Provider,
		DiscordID:   user.DiscordID,
		Deactivated: user.Deactivated(),
	}
	if user.TeamID != nil {
		account.TeamID = user.TeamID.String()
	}

	return account
}

func usernameFromEmail(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}
