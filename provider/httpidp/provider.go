// Package httpidp is a client for the JSON identity provider API
// (POST {base}/auth/login, /auth/register, /auth/logout, /auth/refresh).
package httpidp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-authgate"
	goerrors "github.com/goliatone/go-errors"
)

// Name identifies the provider in errors and stored sessions.
const Name = "http"

const (
	maxBodySize   = 1 << 20
	revokeTimeout = 10 * time.Second
)

var _ authgate.IdentityProvider = (*Provider)(nil)

// Config configures the provider.
type Config struct {
	// BaseURL is the API root, e.g. "http://10.0.2.2:8080/api".
	BaseURL string

	// HTTPClient overrides the default client.
	HTTPClient *http.Client

	// Timeout applies to the default client. Default: 15 seconds.
	Timeout time.Duration

	// Cache holds the signed-in session. Default: in memory.
	Cache *authgate.SessionCache

	Logger authgate.Logger

	// Clock overrides time.Now (useful for tests).
	Clock func() time.Time
}

// Validate checks the configuration.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.BaseURL, validation.Required, is.URL),
	)
}

// Provider implements authgate.IdentityProvider over HTTP.
type Provider struct {
	baseURL string
	client  *http.Client
	cache   *authgate.SessionCache
	logger  authgate.Logger
	now     func() time.Time
}

// New validates cfg and returns a provider.
func New(cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "httpidp: invalid configuration")
	}

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	cache := cfg.Cache
	if cache == nil {
		cache = authgate.NewSessionCache(nil, authgate.WithCacheClock(now))
	}

	logger := cfg.Logger
	if logger == nil {
		logger = nopLogger{}
	}

	return &Provider{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		client:  client,
		cache:   cache,
		logger:  logger,
		now:     now,
	}, nil
}

// SignIn exchanges credentials for a session token.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*authgate.Session, error) {
	return p.login(ctx, "sign_in", email, password)
}

// Register creates the account, then signs it in. The API requires a first
// and last name; they are derived from the email.
func (p *Provider) Register(ctx context.Context, email, password string) (*authgate.Session, error) {
	first, last := splitName(email)
	body := credentials{Email: email, Password: password, FirstName: first, LastName: last}

	env, err := p.post(ctx, "register", "/auth/register", body, "")
	if err != nil {
		return nil, err
	}

	var data registerData
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, p.malformed("register", err)
		}
	}
	p.logger.Info("httpidp registered account", "user_id", string(data.User.ID))

	return p.login(ctx, "register", email, password)
}

// SignOut drops the local session right away and revokes the token on the
// server in the background.
func (p *Provider) SignOut() {
	stored := p.cache.Stored()
	p.cache.Clear(context.Background())

	if stored == nil || stored.Token == "" {
		return
	}

	go func(token string) {
		ctx, cancel := context.WithTimeout(context.Background(), revokeTimeout)
		defer cancel()
		if _, err := p.post(ctx, "sign_out", "/auth/logout", nil, token); err != nil {
			p.logger.Warn("httpidp token revoke failed", "error", err)
		}
	}(stored.Token)
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

// Refresh trades the current token for a new one and extends the session.
func (p *Provider) Refresh(ctx context.Context) error {
	stored := p.cache.Stored()
	if stored == nil || stored.Token == "" {
		return authgate.ErrNoSession
	}

	env, err := p.post(ctx, "refresh", "/auth/refresh", nil, stored.Token)
	if err != nil {
		return err
	}

	var data sessionData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return p.malformed("refresh", err)
	}
	if data.Token == "" {
		return p.malformed("refresh", fmt.Errorf("missing token"))
	}

	stored.Token = data.Token
	stored.ExpiresAt = p.expiry(data)
	if id := string(data.User.ID); id != "" {
		stored.UserID = id
	}
	if data.User.Email != "" {
		stored.Email = data.User.Email
	}

	return p.cache.Store(ctx, stored)
}

func (p *Provider) login(ctx context.Context, op, email, password string) (*authgate.Session, error) {
	env, err := p.post(ctx, op, "/auth/login", credentials{Email: email, Password: password}, "")
	if err != nil {
		return nil, err
	}

	var data sessionData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, p.malformed(op, err)
	}
	if data.Token == "" || data.User.ID == "" {
		return nil, p.malformed(op, fmt.Errorf("missing token or user id"))
	}

	userEmail := data.User.Email
	if userEmail == "" {
		userEmail = email
	}

	stored := &authgate.StoredSession{
		UserID:    string(data.User.ID),
		Email:     userEmail,
		Token:     data.Token,
		Provider:  Name,
		ExpiresAt: p.expiry(data),
		CreatedAt: p.now(),
	}
	if err := p.cache.Store(ctx, stored); err != nil {
		p.logger.Warn("httpidp could not persist session", "user_id", stored.UserID, "error", err)
	}

	return stored.Session(), nil
}

// expiry prefers expires_in and falls back to the token's exp claim.
func (p *Provider) expiry(data sessionData) *time.Time {
	if data.ExpiresIn > 0 {
		at := p.now().Add(time.Duration(data.ExpiresIn) * time.Second)
		return &at
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(data.Token, claims); err != nil {
		return nil
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	at := exp.Time
	return &at
}

func (p *Provider) post(ctx context.Context, op, path string, body any, token string) (envelope, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return envelope{}, p.malformed(op, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, reader)
	if err != nil {
		return envelope{}, authgate.Unavailable(Name, op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return envelope{}, authgate.Unavailable(Name, op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return envelope{}, authgate.Unavailable(Name, op, err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode >= http.StatusInternalServerError {
		return envelope{}, &authgate.ProviderError{
			Provider:  Name,
			Operation: op,
			Reason:    authgate.ReasonUnavailable,
			Status:    resp.StatusCode,
			Err:       fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return envelope{}, &authgate.ProviderError{
			Provider:  Name,
			Operation: op,
			Reason:    authgate.ReasonRejected,
			Status:    resp.StatusCode,
			Code:      env.errorCode(),
			Message:   env.errorMessage(),
		}
	}

	if decodeErr != nil {
		return envelope{}, p.malformed(op, decodeErr)
	}

	return env, nil
}

func (p *Provider) malformed(op string, err error) error {
	return &authgate.ProviderError{
		Provider:  Name,
		Operation: op,
		Reason:    authgate.ReasonUnknown,
		Err:       fmt.Errorf("malformed response: %w", err),
	}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
