package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/goliatone/go-authgate"
	repobun "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// DefaultSlot is the row holding the shell's signed-in session.
const DefaultSlot = "current"

var _ authgate.SessionStore = (*SessionStore)(nil)

// SessionModel is the Bun model for the persisted shell session.
type SessionModel struct {
	bun.BaseModel `bun:"table:shell_sessions"`

	Slot      string     `bun:"slot,pk"`
	ID        uuid.UUID  `bun:"id,notnull,type:uuid"`
	UserID    string     `bun:"user_id,notnull"`
	Email     string     `bun:"email"`
	Token     string     `bun:"token"`
	Provider  string     `bun:"provider"`
	ExpiresAt *time.Time `bun:"expires_at"`
	CreatedAt time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
}

// Option customizes the session store.
type Option func(*SessionStore)

// WithSlot stores the session under a different row key, e.g. one per
// shell profile.
func WithSlot(slot string) Option {
	return func(s *SessionStore) {
		if slot != "" {
			s.slot = slot
		}
	}
}

// SessionStore implements authgate.SessionStore using Bun.
type SessionStore struct {
	db   *bun.DB
	slot string
}

// NewSessionStore creates a new store.
func NewSessionStore(db *bun.DB, opts ...Option) *SessionStore {
	s := &SessionStore{db: db, slot: DefaultSlot}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// OpenSQLite opens a SQLite database through the bun driver shim.
func OpenSQLite(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}
	sqldb.SetMaxOpenConns(1)
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

// CreateSchema creates the sessions table when missing.
func (s *SessionStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*SessionModel)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

// Load implements authgate.SessionStore.
func (s *SessionStore) Load(ctx context.Context) (*authgate.StoredSession, error) {
	var model SessionModel
	err := s.db.NewSelect().
		Model(&model).
		Where("slot = ?", s.slot).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repobun.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows) {
			return nil, authgate.ErrNoSession
		}
		return nil, err
	}
	return toStoredSession(&model), nil
}

// Save implements authgate.SessionStore.
func (s *SessionStore) Save(ctx context.Context, session *authgate.StoredSession) error {
	if session == nil {
		return authgate.ErrNoSession
	}

	model := s.fromStoredSession(session)
	model.UpdatedAt = time.Now()

	_, err := s.db.NewInsert().
		Model(model).
		On("CONFLICT (slot) DO UPDATE").
		Set("id = EXCLUDED.id").
		Set("user_id = EXCLUDED.user_id").
		Set("email = EXCLUDED.email").
		Set("token = EXCLUDED.token").
		Set("provider = EXCLUDED.provider").
		Set("expires_at = EXCLUDED.expires_at").
		Set("created_at = EXCLUDED.created_at").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)

	return err
}

// Clear implements authgate.SessionStore.
func (s *SessionStore) Clear(ctx context.Context) error {
	_, err := s.db.NewDelete().
		Model((*SessionModel)(nil)).
		Where("slot = ?", s.slot).
		Exec(ctx)
	return err
}

func toStoredSession(m *SessionModel) *authgate.StoredSession {
	out := &authgate.StoredSession{
		UserID:    m.UserID,
		Email:     m.Email,
		Token:     m.Token,
		Provider:  m.Provider,
		CreatedAt: m.CreatedAt,
	}
	if m.ExpiresAt != nil {
		at := *m.ExpiresAt
		out.ExpiresAt = &at
	}
	return out
}

func (s *SessionStore) fromStoredSession(session *authgate.StoredSession) *SessionModel {
	created := session.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	return &SessionModel{
		Slot:      s.slot,
		ID:        uuid.New(),
		UserID:    session.UserID,
		Email:     session.Email,
		Token:     session.Token,
		Provider:  session.Provider,
		ExpiresAt: session.ExpiresAt,
		CreatedAt: created,
	}
}
