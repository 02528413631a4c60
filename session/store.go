package session

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type sessionRow struct {
	bun.BaseModel `bun:"table:sessions,alias:sess"`
	ID            string         `bun:"id,pk"`
	UserID        string         `bun:"user_id,nullzero"`
	Data          map[string]any `bun:"data,type:jsonb"`
	ExpiresAt     time.Time      `bun:"expires_at,notnull"`
	CreatedAt     time.Time      `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt     time.Time      `bun:"updated_at,notnull,default:current_timestamp"`
}

// BunStore persists session records in a relational sessions table.
type BunStore struct {
	db     *bun.DB
	logger Logger

	// lifecycle hooks, all optional
	OnConnect    func()
	OnDisconnect func()
	OnError      func(err error)
}

// NewBunStore creates the store and verifies connectivity.
func NewBunStore(ctx context.Context, db *bun.DB) (*BunStore, error) {
	s := &BunStore{
		db:     db,
		logger: defLogger{},
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "session store cannot reach database")
	}

	if s.OnConnect != nil {
		s.OnConnect()
	}

	return s, nil
}

func (s *BunStore) WithLogger(logger Logger) *BunStore {
	if logger != nil {
		s.logger = logger
	}
	return s
}

func (s *BunStore) Get(ctx context.Context, id string) (*Record, error) {
	row := &sessionRow{}
	err := s.db.NewSelect().
		Model(row).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.expires_at > ?", time.Now()).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		s.emitError(err)
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load session")
	}

	return &Record{
		ID:        row.ID,
		UserID:    row.UserID,
		Data:      row.Data,
		ExpiresAt: row.ExpiresAt,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

func (s *BunStore) Save(ctx context.Context, record *Record) error {
	now := time.Now()
	row := &sessionRow{
		ID:        record.ID,
		UserID:    record.UserID,
		Data:      record.Data,
		ExpiresAt: record.ExpiresAt,
		CreatedAt: record.CreatedAt,
		UpdatedAt: now,
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}

	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (id) DO UPDATE").
		Set("user_id = EXCLUDED.user_id").
		Set("data = EXCLUDED.data").
		Set("expires_at = EXCLUDED.expires_at").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)

	if err != nil {
		s.emitError(err)
		return errors.Wrap(err, errors.CategoryInternal, "failed to save session")
	}

	return nil
}

// Touch implements rolling expiry without rewriting the payload.
func (s *BunStore) Touch(ctx context.Context, id string, expiresAt time.Time) error {
	_, err := s.db.NewUpdate().
		Model((*sessionRow)(nil)).
		Set("expires_at = ?", expiresAt).
		Set("updated_at = ?", time.Now()).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)

	if err != nil {
		s.emitError(err)
		return errors.Wrap(err, errors.CategoryInternal, "failed to touch session")
	}

	return nil
}

func (s *BunStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.NewDelete().
		Model((*sessionRow)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)

	if err != nil {
		s.emitError(err)
		return errors.Wrap(err, errors.CategoryInternal, "failed to delete session")
	}

	return nil
}

// DeleteExpired sweeps records past their expiry. Meant to run on a timer.
func (s *BunStore) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.db.NewDelete().
		Model((*sessionRow)(nil)).
		Where("?TableAlias.expires_at <= ?", time.Now()).
		Exec(ctx)

	if err != nil {
		s.emitError(err)
		return 0, errors.Wrap(err, errors.CategoryInternal, "failed to sweep sessions")
	}

	n, _ := res.RowsAffected()
	return n, nil
}

// Close runs the disconnect hook. The *bun.DB is owned by the caller.
func (s *BunStore) Close() {
	if s.OnDisconnect != nil {
		s.OnDisconnect()
	}
}

func (s *BunStore) emitError(err error) {
	if s.OnError != nil {
		s.OnError(err)
	}
}

func isNoRows(err error) bool {
	return stderrors.Is(err, sql.ErrNoRows)
}

type defLogger struct{}

func (defLogger) Debug(format string, args ...any) {}
func (defLogger) Info(format string, args ...any)  {}
func (defLogger) Warn(format string, args ...any)  {}
func (defLogger) Error(format string, args ...any) {}
