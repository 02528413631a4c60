package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's role within their team
type UserRole = string

const (
	// RoleMember is a regular team member (view, edit)
	RoleMember UserRole = "member"
	// RoleAdmin can manage team settings (view, edit, create)
	RoleAdmin UserRole = "admin"
	// RoleOwner created the team (view, edit, create, delete)
	RoleOwner UserRole = "owner"
)

// AuthProvider identifies which strategy created or owns an account.
type AuthProvider = string

const (
	ProviderLocal   AuthProvider = "local"
	ProviderGoogle  AuthProvider = "google"
	ProviderDiscord AuthProvider = "discord"
)

// User is the account model
type User struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             uuid.UUID    `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role           UserRole     `bun:"user_role,notnull" json:"user_role,omitempty"`
	Name           string       `bun:"name,notnull" json:"name,omitempty"`
	Username       string       `bun:"username,notnull,unique" json:"username,omitempty"`
	Email          string       `bun:"email,notnull,unique" json:"email,omitempty"`
	Phone          string       `bun:"phone_number" json:"phone_number,omitempty"`
	DiscordID      string       `bun:"discord_id,nullzero,unique" json:"discord_id,omitempty"`
	Timezone       string       `bun:"timezone" json:"timezone,omitempty"`
	Provider       AuthProvider `bun:"provider,notnull,default:'local'" json:"provider,omitempty"`
	PasswordHash   string       `bun:"password_hash" json:"-"`
	EmailValidated bool         `bun:"is_email_verified" json:"is_email_verified,omitempty"`
	TeamID         *uuid.UUID   `bun:"team_id,nullzero,type:uuid" json:"team_id,omitempty"`
	Team           *Team        `bun:"rel:belongs-to,join:team_id=id" json:"team,omitempty"`
	LoginAttempts  int          `bun:"login_attempts" json:"login_attempts,omitempty"`
	LoginAttemptAt *time.Time   `bun:"login_attempt_at" json:"login_attempt_at,omitempty"`
	LoggedInAt     *time.Time   `bun:"loggedin_at" json:"loggedin_at,omitempty"`
	DeactivatedAt  *time.Time   `bun:"deactivated_at,nullzero" json:"deactivated_at,omitempty"`
	CreatedAt      *time.Time   `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time   `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt      *time.Time   `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Deactivated reports whether the account was deactivated.
func (u *User) Deactivated() bool {
	return u != nil && u.DeactivatedAt != nil
}

// Team is the tenant boundary; every user belongs to exactly one team.
type Team struct {
	bun.BaseModel `bun:"table:teams,alias:tm"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string     `bun:"name,notnull,unique" json:"name,omitempty"`
	OwnerID       *uuid.UUID `bun:"owner_id,nullzero,type:uuid" json:"owner_id,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// TeamInvite is the pre-existing invitation every signup must reference.
type TeamInvite struct {
	bun.BaseModel `bun:"table:team_invites,alias:inv"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	TeamID        uuid.UUID  `bun:"team_id,notnull,type:uuid" json:"team_id,omitempty"`
	Team          *Team      `bun:"rel:belongs-to,join:team_id=id" json:"team,omitempty"`
	Email         string     `bun:"email" json:"email,omitempty"`
	Role          UserRole   `bun:"user_role,notnull,default:'member'" json:"user_role,omitempty"`
	RedeemedAt    *time.Time `bun:"redeemed_at,nullzero" json:"redeemed_at,omitempty"`
	ExpiresAt     *time.Time `bun:"expires_at,nullzero" json:"expires_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Redeemable reports whether the invite can still be used.
func (i *TeamInvite) Redeemable(now time.Time) bool {
	if i == nil || i.RedeemedAt != nil {
		return false
	}
	if i.ExpiresAt != nil && now.After(*i.ExpiresAt) {
		return false
	}
	return true
}

const (
	// ResetRequestedStatus is the requested status
	ResetRequestedStatus = "requested"
	// ResetExpiredStatus is the expired status
	ResetExpiredStatus = "expired"
	// ResetChangedStatus is the changed status
	ResetChangedStatus = "changed"
)

// PasswordReset tracks an in-flight password reset request
type PasswordReset struct {
	bun.BaseModel `bun:"table:password_reset,alias:pwdr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        *uuid.UUID `bun:"user_id,notnull" json:"user_id,omitempty"`
	User          *User      `bun:"rel:has-one,join:user_id=id" json:"user,omitempty"`
	Status        string     `bun:"status,notnull" json:"status,omitempty"`
	Email         string     `bun:"email,notnull" json:"email,omitempty"`
	ResetedAt     *time.Time `bun:"reseted_at,nullzero" json:"reseted_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// identity view accessors

func (u *User) Identity() Identity { return userIdentity{u} }

type userIdentity struct{ user *User }

func (a userIdentity) ID() string       { return a.user.ID.String() }
func (a userIdentity) Username() string { return a.user.Username }
func (a userIdentity) Email() string    { return a.user.Email }
func (a userIdentity) Role() string     { return a.user.Role }
