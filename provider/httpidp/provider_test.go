package httpidp_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-authgate"
	"github.com/goliatone/go-authgate/provider/httpidp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu       sync.Mutex
	users    map[string]string
	requests []string
	bodies   []map[string]any
	logout   chan string
	expires  int64
	token    string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		users:   map[string]string{},
		logout:  make(chan string, 1),
		expires: 3600,
		token:   "tok-1",
	}
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, r.URL.Path)
	body := map[string]any{}
	_ = json.NewDecoder(r.Body).Decode(&body)
	f.bodies = append(f.bodies, body)

	w.Header().Set("Content-Type", "application/json")
	email, _ := body["email"].(string)
	password, _ := body["password"].(string)

	switch r.URL.Path {
	case "/api/auth/login":
		if stored, ok := f.users[email]; !ok || stored != password {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": true, "message": "Invalid credentials", "code": 401})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"message": "Login successful",
			"data": map[string]any{
				"token":      f.token,
				"expires_in": f.expires,
				"user":       map[string]any{"id": 42, "email": email},
			},
		})
	case "/api/auth/register":
		if len(password) < 8 {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error":  "Validation failed",
				"errors": map[string][]string{"password": {"The password must be at least 8 characters"}},
			})
			return
		}
		f.users[email] = password
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"user": map[string]any{"id": 42, "email": email}},
		})
	case "/api/auth/logout":
		f.logout <- r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "message": "Logged out successfully"})
	case "/api/auth/refresh":
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"token": "tok-2", "expires_in": 60},
		})
	default:
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func newProvider(t *testing.T, api http.Handler) *httpidp.Provider {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	p, err := httpidp.New(httpidp.Config{BaseURL: srv.URL + "/api", HTTPClient: srv.Client()})
	require.NoError(t, err)
	return p
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := httpidp.New(httpidp.Config{})
	assert.Error(t, err)

	_, err = httpidp.New(httpidp.Config{BaseURL: "not a url"})
	assert.Error(t, err)
}

func TestSignIn(t *testing.T) {
	api := newFakeAPI()
	api.users["a@b.com"] = "pw12345"
	p := newProvider(t, api)

	session, err := p.SignIn(context.Background(), "a@b.com", "pw12345")
	require.NoError(t, err)
	assert.Equal(t, &authgate.Session{UserID: "42", Email: "a@b.com"}, session)
	assert.Equal(t, session, p.CurrentSession())
	assert.Equal(t, "tok-1", p.Token())
}

func TestSignInRejected(t *testing.T) {
	p := newProvider(t, newFakeAPI())

	_, err := p.SignIn(context.Background(), "a@b.com", "nope")
	require.Error(t, err)

	var perr *authgate.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, authgate.ReasonRejected, perr.Reason)
	assert.Equal(t, http.StatusUnauthorized, perr.Status)
	assert.Equal(t, "401", perr.Code)
	assert.Equal(t, "Invalid credentials", authgate.MessageOf(err))
	assert.Nil(t, p.CurrentSession())
}

func TestServerErrorIsUnavailable(t *testing.T) {
	p := newProvider(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := p.SignIn(context.Background(), "a@b.com", "pw12345")
	require.Error(t, err)
	assert.Equal(t, authgate.ReasonUnavailable, authgate.ReasonOf(err))
	assert.Empty(t, authgate.MessageOf(err))
}

func TestTransportErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p, err := httpidp.New(httpidp.Config{BaseURL: url, Timeout: time.Second})
	require.NoError(t, err)

	_, err = p.SignIn(context.Background(), "a@b.com", "pw12345")
	require.Error(t, err)
	assert.Equal(t, authgate.ReasonUnavailable, authgate.ReasonOf(err))
}

func TestRegisterThenLogin(t *testing.T) {
	api := newFakeAPI()
	p := newProvider(t, api)

	session, err := p.Register(context.Background(), "jane.doe@b.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, "42", session.UserID)

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Equal(t, []string{"/api/auth/register", "/api/auth/login"}, api.requests)
	assert.Equal(t, "Jane", api.bodies[0]["first_name"])
	assert.Equal(t, "Doe", api.bodies[0]["last_name"])
}

func TestRegisterValidationMessage(t *testing.T) {
	p := newProvider(t, newFakeAPI())

	_, err := p.Register(context.Background(), "a@b.com", "short")
	require.Error(t, err)
	assert.Equal(t, authgate.ReasonRejected, authgate.ReasonOf(err))
	assert.Equal(t, "The password must be at least 8 characters", authgate.MessageOf(err))
}

func TestSignOutRevokesToken(t *testing.T) {
	api := newFakeAPI()
	api.users["a@b.com"] = "pw12345"
	p := newProvider(t, api)

	_, err := p.SignIn(context.Background(), "a@b.com", "pw12345")
	require.NoError(t, err)

	p.SignOut()
	assert.Nil(t, p.CurrentSession())

	select {
	case header := <-api.logout:
		assert.Equal(t, "Bearer tok-1", header)
	case <-time.After(5 * time.Second):
		t.Fatal("logout was not called")
	}
}

func TestExpiryFromTokenClaims(t *testing.T) {
	exp := time.Now().Add(-time.Minute).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 42,
		"email":   "a@b.com",
		"exp":     exp.Unix(),
	}).SignedString([]byte("server-secret"))
	require.NoError(t, err)

	api := newFakeAPI()
	api.users["a@b.com"] = "pw12345"
	api.expires = 0
	api.token = token
	p := newProvider(t, api)

	_, err = p.SignIn(context.Background(), "a@b.com", "pw12345")
	require.NoError(t, err)
	assert.Nil(t, p.CurrentSession(), "a token that already expired is not a session")
}

func TestRefresh(t *testing.T) {
	api := newFakeAPI()
	api.users["a@b.com"] = "pw12345"
	p := newProvider(t, api)

	require.ErrorIs(t, p.Refresh(context.Background()), authgate.ErrNoSession)

	_, err := p.SignIn(context.Background(), "a@b.com", "pw12345")
	require.NoError(t, err)
	require.NoError(t, p.Refresh(context.Background()))

	assert.Equal(t, "tok-2", p.Token())
	assert.Equal(t, &authgate.Session{UserID: "42", Email: "a@b.com"}, p.CurrentSession())
}
