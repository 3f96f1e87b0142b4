package oidc_test

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-authgate"
	"github.com/goliatone/go-authgate/provider/oidc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const (
	testIssuer   = "https://issuer.test"
	testClientID = "shell"
)

type issuer struct {
	t   *testing.T
	key *rsa.PrivateKey
	srv *httptest.Server
}

func newIssuer(t *testing.T) *issuer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	is := &issuer{t: t, key: key}
	is.srv = httptest.NewServer(http.HandlerFunc(is.token))
	t.Cleanup(is.srv.Close)
	return is
}

func (is *issuer) token(w http.ResponseWriter, r *http.Request) {
	require.NoError(is.t, r.ParseForm())
	w.Header().Set("Content-Type", "application/json")

	if r.Form.Get("grant_type") != "password" || r.Form.Get("client_id") != testClientID {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_request"})
		return
	}

	switch r.Form.Get("password") {
	case "pw12345":
	case "boom":
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "temporarily_unavailable"})
		return
	default:
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error":             "invalid_grant",
			"error_description": "Invalid user credentials",
		})
		return
	}

	now := time.Now()
	idToken, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":   testIssuer,
		"aud":   testClientID,
		"sub":   "user-1",
		"email": r.Form.Get("username"),
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}).SignedString(is.key)
	require.NoError(is.t, err)

	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token": "access-1",
		"token_type":   "Bearer",
		"expires_in":   3600,
		"id_token":     idToken,
	})
}

func (is *issuer) provider() *oidc.Provider {
	verifier := gooidc.NewVerifier(testIssuer,
		&gooidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&is.key.PublicKey}},
		&gooidc.Config{ClientID: testClientID},
	)

	cfg := oauth2.Config{
		ClientID: testClientID,
		Endpoint: oauth2.Endpoint{
			TokenURL:  is.srv.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		Scopes: []string{gooidc.ScopeOpenID, "email"},
	}

	return oidc.NewWithVerifier(cfg, verifier, oidc.WithHTTPClient(is.srv.Client()))
}

func TestSignIn(t *testing.T) {
	p := newIssuer(t).provider()

	session, err := p.SignIn(context.Background(), "a@b.com", "pw12345")
	require.NoError(t, err)
	assert.Equal(t, &authgate.Session{UserID: "user-1", Email: "a@b.com"}, session)
	assert.Equal(t, session, p.CurrentSession())

	p.SignOut()
	assert.Nil(t, p.CurrentSession())
}

func TestSignInRejected(t *testing.T) {
	p := newIssuer(t).provider()

	_, err := p.SignIn(context.Background(), "a@b.com", "wrong")
	require.Error(t, err)

	var perr *authgate.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, authgate.ReasonRejected, perr.Reason)
	assert.Equal(t, "invalid_grant", perr.Code)
	assert.Equal(t, "Invalid user credentials", authgate.MessageOf(err))
}

func TestSignInIssuerDown(t *testing.T) {
	p := newIssuer(t).provider()

	_, err := p.SignIn(context.Background(), "a@b.com", "boom")
	require.Error(t, err)
	assert.Equal(t, authgate.ReasonUnavailable, authgate.ReasonOf(err))
}

func TestSignInRejectsForeignSignature(t *testing.T) {
	is := newIssuer(t)
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	verifier := gooidc.NewVerifier(testIssuer,
		&gooidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&other.PublicKey}},
		&gooidc.Config{ClientID: testClientID},
	)
	p := oidc.NewWithVerifier(oauth2.Config{
		ClientID: testClientID,
		Endpoint: oauth2.Endpoint{TokenURL: is.srv.URL + "/token", AuthStyle: oauth2.AuthStyleInParams},
	}, verifier)

	_, err = p.SignIn(context.Background(), "a@b.com", "pw12345")
	require.Error(t, err)
	assert.Nil(t, p.CurrentSession())
}

func TestRegisterUnsupported(t *testing.T) {
	p := newIssuer(t).provider()

	_, err := p.Register(context.Background(), "a@b.com", "pw12345")
	require.Error(t, err)
	assert.Equal(t, authgate.ReasonRejected, authgate.ReasonOf(err))
	assert.Equal(t, oidc.MessageRegistrationUnsupported, authgate.MessageOf(err))
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := oidc.New(context.Background(), oidc.Config{ClientID: testClientID})
	assert.Error(t, err)

	_, err = oidc.New(context.Background(), oidc.Config{Issuer: testIssuer})
	assert.Error(t, err)
}
