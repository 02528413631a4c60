package identity

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Invites interface {
	repository.Repository[*TeamInvite]

	GetPendingTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*TeamInvite, error)
	MarkRedeemedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
}

type invites struct {
	repository.Repository[*TeamInvite]
	db *bun.DB
}

var _ Invites = (*invites)(nil)

func NewInvitesRepository(db *bun.DB) Invites {
	repo := repository.NewRepository[*TeamInvite](db, repository.ModelHandlers[*TeamInvite]{
		NewRecord: func() *TeamInvite { return &TeamInvite{} },
		GetID: func(i *TeamInvite) uuid.UUID {
			if i == nil {
				return uuid.Nil
			}
			return i.ID
		},
		SetID: func(i *TeamInvite, id uuid.UUID) {
			if i != nil {
				i.ID = id
			}
		},
	})

	return &invites{
		Repository: repo,
		db:         db,
	}
}

// GetPendingTx returns the invite only when it has not been redeemed.
// Expiry is checked by the caller against its own clock.
func (a *invites) GetPendingTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*TeamInvite, error) {
	record := &TeamInvite{}
	err := tx.NewSelect().
		Model(record).
		Relation("Team").
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.redeemed_at IS NULL").
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"invite_id": id.String(),
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *invites) MarkRedeemedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	_, err := tx.NewUpdate().
		Model((*TeamInvite)(nil)).
		Set("redeemed_at = current_timestamp").
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.redeemed_at IS NULL").
		Exec(ctx)
	return err
}
