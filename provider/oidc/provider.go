// Package oidc signs users in against an OpenID Connect issuer with the
// OAuth2 resource owner password grant and verifies the returned ID token.
package oidc

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"github.com/goliatone/go-authgate"
	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/oauth2"
)

// Name identifies the provider in errors and stored sessions.
const Name = "oidc"

// MessageRegistrationUnsupported is returned by Register.
const MessageRegistrationUnsupported = "Registration is not supported by this identity provider"

var _ authgate.IdentityProvider = (*Provider)(nil)

// Config configures discovery and the OAuth2 client.
type Config struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	// Scopes default to openid, email and profile.
	Scopes []string
	// HTTPClient is used for discovery, JWKS and token requests.
	HTTPClient *http.Client
}

func (c Config) scopes() []string {
	if len(c.Scopes) > 0 {
		return c.Scopes
	}
	return []string{gooidc.ScopeOpenID, "email", "profile"}
}

// Option customizes the provider.
type Option func(*Provider)

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

// WithHTTPClient sets the client used for token requests.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) {
		p.client = client
	}
}

// Provider implements authgate.IdentityProvider on an OIDC issuer.
type Provider struct {
	oauthCfg oauth2.Config
	verifier *gooidc.IDTokenVerifier
	client   *http.Client
	cache    *authgate.SessionCache
	logger   authgate.Logger
}

// New discovers the issuer configuration and returns a provider.
func New(ctx context.Context, cfg Config, opts ...Option) (*Provider, error) {
	if strings.TrimSpace(cfg.Issuer) == "" {
		return nil, goerrors.New("oidc: issuer is required", goerrors.CategoryValidation)
	}
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, goerrors.New("oidc: client id is required", goerrors.CategoryValidation)
	}

	if cfg.HTTPClient != nil {
		ctx = gooidc.ClientContext(ctx, cfg.HTTPClient)
	}

	issuer, err := gooidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "oidc: failed to discover issuer")
	}

	endpoint := issuer.Endpoint()
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	oauthCfg := oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     endpoint,
		Scopes:       cfg.scopes(),
	}

	verifier := issuer.Verifier(&gooidc.Config{ClientID: cfg.ClientID})

	return NewWithVerifier(oauthCfg, verifier, append([]Option{WithHTTPClient(cfg.HTTPClient)}, opts...)...), nil
}

// NewWithVerifier builds a provider from an explicit OAuth2 configuration and
// ID token verifier, skipping discovery.
func NewWithVerifier(cfg oauth2.Config, verifier *gooidc.IDTokenVerifier, opts ...Option) *Provider {
	p := &Provider{
		oauthCfg: cfg,
		verifier: verifier,
		logger:   nopLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.cache == nil {
		p.cache = authgate.NewSessionCache(nil)
	}
	return p
}

type idClaims struct {
	Email string `json:"email"`
}

// SignIn runs the password grant and verifies the ID token.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*authgate.Session, error) {
	if p.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)
	}

	tok, err := p.oauthCfg.PasswordCredentialsToken(ctx, email, password)
	if err != nil {
		return nil, classify("sign_in", err)
	}

	raw, _ := tok.Extra("id_token").(string)
	if raw == "" {
		return nil, &authgate.ProviderError{
			Provider:  Name,
			Operation: "sign_in",
			Reason:    authgate.ReasonUnknown,
			Err:       errors.New("token response carried no id_token"),
		}
	}

	idToken, err := p.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, &authgate.ProviderError{
			Provider:  Name,
			Operation: "sign_in",
			Reason:    authgate.ReasonUnknown,
			Err:       err,
		}
	}

	var claims idClaims
	if err := idToken.Claims(&claims); err != nil {
		p.logger.Warn("oidc id token claims unreadable", "error", err)
	}
	if claims.Email == "" {
		claims.Email = email
	}

	expiresAt := idToken.Expiry
	if !tok.Expiry.IsZero() && tok.Expiry.Before(expiresAt) {
		expiresAt = tok.Expiry
	}

	stored := &authgate.StoredSession{
		UserID:    idToken.Subject,
		Email:     claims.Email,
		Token:     tok.AccessToken,
		Provider:  Name,
		ExpiresAt: &expiresAt,
		CreatedAt: time.Now(),
	}
	if err := p.cache.Store(ctx, stored); err != nil {
		p.logger.Warn("oidc could not persist session", "user_id", stored.UserID, "error", err)
	}

	return stored.Session(), nil
}

// Register is not offered by OIDC issuers.
func (p *Provider) Register(_ context.Context, _, _ string) (*authgate.Session, error) {
	return nil, authgate.Rejected(Name, "register", MessageRegistrationUnsupported)
}

// SignOut drops the local session. Issuer side logout needs a browser and is
// not attempted.
func (p *Provider) SignOut() {
	p.cache.Clear(context.Background())
}

func (p *Provider) CurrentSession() *authgate.Session {
	return p.cache.Current()
}

// Restore loads a persisted session into the cache.
func (p *Provider) Restore(ctx context.Context) error {
	return p.cache.Restore(ctx)
}

func classify(op string, err error) error {
	var rerr *oauth2.RetrieveError
	if !errors.As(err, &rerr) {
		return authgate.Unavailable(Name, op, err)
	}

	status := 0
	if rerr.Response != nil {
		status = rerr.Response.StatusCode
	}

	if status >= http.StatusInternalServerError {
		return &authgate.ProviderError{
			Provider:  Name,
			Operation: op,
			Reason:    authgate.ReasonUnavailable,
			Status:    status,
			Code:      rerr.ErrorCode,
			Err:       err,
		}
	}

	return &authgate.ProviderError{
		Provider:  Name,
		Operation: op,
		Reason:    authgate.ReasonRejected,
		Status:    status,
		Code:      rerr.ErrorCode,
		Message:   strings.TrimSpace(rerr.ErrorDescription),
		Err:       err,
	}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
