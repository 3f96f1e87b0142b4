// Package memory is an in-process identity provider. Accounts live in memory;
// the signed-in session goes through an authgate.SessionCache so it can be
// persisted like any other provider's session.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-authgate"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Name identifies the provider in errors and stored sessions.
const Name = "memory"

const (
	MessageInvalidCredentials = "Invalid credentials"
	MessageEmailTaken         = "Email already registered"
)

var _ authgate.IdentityProvider = (*Provider)(nil)

type account struct {
	id    string
	email string
	hash  string
}

// Option customizes the provider.
type Option func(*Provider)

// WithBcryptCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(p *Provider) {
		p.cost = cost
	}
}

// WithDeterministicIDs derives user ids from the email with hashid instead
// of random uuids.
func WithDeterministicIDs() Option {
	return func(p *Provider) {
		p.deterministic = true
	}
}

func WithSigningKey(key []byte) Option {
	return func(p *Provider) {
		if len(key) > 0 {
			p.tokens.signingKey = key
		}
	}
}

// WithTokenTTL sets how long issued sessions stay valid.
func WithTokenTTL(ttl time.Duration) Option {
	return func(p *Provider) {
		if ttl > 0 {
			p.tokens.ttl = ttl
		}
	}
}

// WithSessionCache shares a session cache, typically backed by a persistent
// store.
func WithSessionCache(cache *authgate.SessionCache) Option {
	return func(p *Provider) {
		if cache != nil {
			p.cache = cache
		}
	}
}

func WithLogger(logger authgate.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) Option {
	return func(p *Provider) {
		if clock != nil {
			p.now = clock
		}
	}
}

// Provider implements authgate.IdentityProvider. It is safe for concurrent use.
type Provider struct {
	mu            sync.Mutex
	accounts      map[string]account
	cache         *authgate.SessionCache
	tokens        tokenIssuer
	cost          int
	deterministic bool
	logger        authgate.Logger
	now           func() time.Time
}

func New(opts ...Option) *Provider {
	p := &Provider{
		accounts: map[string]account{},
		tokens: tokenIssuer{
			signingKey: []byte(uuid.NewString()),
			issuer:     Name,
			ttl:        24 * time.Hour,
		},
		cost:   bcrypt.DefaultCost,
		logger: nopLogger{},
		now:    time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	if p.cache == nil {
		p.cache = authgate.NewSessionCache(nil, authgate.WithCacheClock(p.now))
	}

	return p
}

// SignIn checks the credentials and starts a session.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*authgate.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, authgate.Unavailable(Name, "sign_in", err)
	}

	p.mu.Lock()
	acc, ok := p.accounts[normalizeEmail(email)]
	p.mu.Unlock()

	if !ok {
		return nil, authgate.Rejected(Name, "sign_in", MessageInvalidCredentials)
	}

	if err := comparePassword(password, acc.hash); err != nil {
		p.logger.Debug("memory provider password mismatch", "user_id", acc.id)
		return nil, authgate.Rejected(Name, "sign_in", MessageInvalidCredentials)
	}

	return p.start(ctx, acc)
}

// Register creates an account and signs it in.
func (p *Provider) Register(ctx context.Context, email, password string) (*authgate.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, authgate.Unavailable(Name, "register", err)
	}

	key := normalizeEmail(email)
	hash, err := hashPassword(password, p.cost)
	if err != nil {
		return nil, &authgate.ProviderError{
			Provider:  Name,
			Operation: "register",
			Reason:    authgate.ReasonRejected,
			Err:       err,
		}
	}

	p.mu.Lock()
	if _, exists := p.accounts[key]; exists {
		p.mu.Unlock()
		return nil, authgate.Rejected(Name, "register", MessageEmailTaken)
	}
	acc := account{id: p.newID(key), email: strings.TrimSpace(email), hash: hash}
	p.accounts[key] = acc
	p.mu.Unlock()

	p.logger.Info("memory provider registered account", "user_id", acc.id)
	return p.start(ctx, acc)
}

// SignOut drops the current session.
func (p *Provider) SignOut() {
	p.cache.Clear(context.Background())
}

// CurrentSession returns the cached session, if any.
func (p *Provider) CurrentSession() *authgate.Session {
	return p.cache.Current()
}

// Restore loads a persisted session into the cache.
func (p *Provider) Restore(ctx context.Context) error {
	return p.cache.Restore(ctx)
}

// Token returns the bearer token of the current session.
func (p *Provider) Token() string {
	if s := p.cache.Stored(); s != nil && !s.Expired(p.now()) {
		return s.Token
	}
	return ""
}

// ParseToken validates a token issued by this provider.
func (p *Provider) ParseToken(token string) (*Claims, error) {
	return p.tokens.parse(token, p.now())
}

func (p *Provider) start(ctx context.Context, acc account) (*authgate.Session, error) {
	now := p.now()
	token, expiresAt, err := p.tokens.sign(acc.id, acc.email, now)
	if err != nil {
		return nil, &authgate.ProviderError{
			Provider:  Name,
			Operation: "sign_in",
			Reason:    authgate.ReasonUnavailable,
			Err:       err,
		}
	}

	stored := &authgate.StoredSession{
		UserID:    acc.id,
		Email:     acc.email,
		Token:     token,
		Provider:  Name,
		ExpiresAt: &expiresAt,
		CreatedAt: now,
	}
	if err := p.cache.Store(ctx, stored); err != nil {
		p.logger.Warn("memory provider could not persist session", "user_id", acc.id, "error", err)
	}

	return stored.Session(), nil
}

func (p *Provider) newID(email string) string {
	if p.deterministic {
		if id, err := hashid.NewUUID(email); err == nil {
			return id.String()
		}
	}
	return uuid.NewString()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
