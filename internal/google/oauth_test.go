package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const clientSecretsJSON = `{
  "installed": {
    "client_id": "test-client.apps.googleusercontent.com",
    "client_secret": "test-secret",
    "auth_uri": "https://accounts.google.com/o/oauth2/auth",
    "token_uri": "https://oauth2.googleapis.com/token",
    "redirect_uris": ["http://localhost"]
  }
}`

func TestLoadClientConfig(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "credentials.json")
	present := filepath.Join(dir, "client_secret_1.json")
	require.NoError(t, os.WriteFile(present, []byte(clientSecretsJSON), 0600))

	conf, err := LoadClientConfig(missing, present)

	require.NoError(t, err)
	assert.Equal(t, "test-client.apps.googleusercontent.com", conf.ClientID)
	assert.Equal(t, "test-secret", conf.ClientSecret)
	assert.Equal(t, DefaultOAuthScopes, conf.Scopes)
}

func TestLoadClientConfig_NotFound(t *testing.T) {
	_, err := LoadClientConfig(filepath.Join(t.TempDir(), "credentials.json"))

	var authErr *AuthenticationError
	require.True(t, errors.As(err, &authErr))
	assert.True(t, errors.Is(err, ErrClientSecretsNotFound))
	assert.Contains(t, err.Error(), "credentials.json")
}

func TestLoadClientConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"web":`), 0600))

	_, err := LoadClientConfig(path)

	var authErr *AuthenticationError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, "parse client secrets", authErr.Op)
}

// fakeGoogle serves a consent endpoint that immediately redirects back with a
// code, and a token endpoint that mints tokens.
type fakeGoogle struct {
	*httptest.Server
	code         string
	callbackCode string
	tokenCalls   atomic.Int32
	lastVerifier atomic.Value
}

func newFakeGoogle(t *testing.T) *fakeGoogle {
	t.Helper()
	f := &fakeGoogle{code: "auth-code", callbackCode: "auth-code"}
	mux := http.NewServeMux()
	mux.HandleFunc("/auth", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		target := q.Get("redirect_uri") + "?code=" + f.callbackCode + "&state=" + q.Get("state")
		http.Redirect(w, r, target, http.StatusFound)
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		n := f.tokenCalls.Add(1)
		f.lastVerifier.Store(r.PostForm.Get("code_verifier"))

		switch r.PostForm.Get("grant_type") {
		case "authorization_code":
			if r.PostForm.Get("code") != f.code {
				http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
				return
			}
		case "refresh_token":
		default:
			http.Error(w, `{"error":"unsupported_grant_type"}`, http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  fmt.Sprintf("access-%d", n),
			"refresh_token": "refresh",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	})
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeGoogle) config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		Scopes:       DefaultOAuthScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   f.URL + "/auth",
			TokenURL:  f.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// browse follows the consent URL the way a browser would.
func browse(url string) error {
	go func() {
		resp, err := http.Get(url)
		if err == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}
	}()
	return nil
}

func TestAuthorize(t *testing.T) {
	fake := newFakeGoogle(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var out strings.Builder

	tok, err := Authorize(ctx, fake.config(), browse, &out)

	require.NoError(t, err)
	assert.Equal(t, "access-1", tok.AccessToken)
	assert.Equal(t, "refresh", tok.RefreshToken)
	assert.Contains(t, out.String(), fake.URL+"/auth")
	assert.NotEmpty(t, fake.lastVerifier.Load(), "PKCE verifier must be sent")
}

func TestAuthorize_StateMismatch(t *testing.T) {
	fake := newFakeGoogle(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tamper := func(u string) error {
		go func() {
			resp, err := http.Get(u)
			if err != nil {
				return
			}
			_ = resp.Body.Close()
		}()
		return nil
	}
	conf := fake.config()
	// Point consent at a handler that drops the state parameter.
	conf.Endpoint.AuthURL = fake.URL + "/auth-nostate"
	fake.Config.Handler.(*http.ServeMux).HandleFunc("/auth-nostate", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, r.URL.Query().Get("redirect_uri")+"?code=auth-code&state=forged", http.StatusFound)
	})

	_, err := Authorize(ctx, conf, tamper, io.Discard)

	var authErr *AuthenticationError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, "consent", authErr.Op)
	assert.Contains(t, err.Error(), "state mismatch")
	assert.Equal(t, int32(0), fake.tokenCalls.Load())
}

func TestAuthorize_ContextCancelled(t *testing.T) {
	fake := newFakeGoogle(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Authorize(ctx, fake.config(), nil, io.Discard)

	var authErr *AuthenticationError
	require.True(t, errors.As(err, &authErr))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestTokenSource_PersistsRefreshedToken(t *testing.T) {
	fake := newFakeGoogle(t)
	store := NewTokenStore(filepath.Join(t.TempDir(), "token.json"))
	require.NoError(t, store.Save(&oauth2.Token{
		AccessToken:  "stale",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(-time.Hour),
	}))

	var results []string
	ts, err := TokenSource(context.Background(), fake.config(), store,
		WithRefreshObserver(func(result string) { results = append(results, result) }))
	require.NoError(t, err)

	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "access-1", tok.AccessToken)
	assert.Equal(t, []string{"success"}, results)

	saved, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "access-1", saved.AccessToken)
	assert.Equal(t, "refresh", saved.RefreshToken)
}

func TestTokenSource_ValidTokenNotRewritten(t *testing.T) {
	fake := newFakeGoogle(t)
	store := NewTokenStore(filepath.Join(t.TempDir(), "token.json"))
	require.NoError(t, store.Save(&oauth2.Token{
		AccessToken: "fresh",
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(time.Hour),
	}))

	var results []string
	ts, err := TokenSource(context.Background(), fake.config(), store,
		WithRefreshObserver(func(result string) { results = append(results, result) }))
	require.NoError(t, err)
	tok, err := ts.Token()
	require.NoError(t, err)

	assert.Equal(t, "fresh", tok.AccessToken)
	assert.Empty(t, results)
	assert.Equal(t, int32(0), fake.tokenCalls.Load())
}

func TestTokenSource_NoToken(t *testing.T) {
	store := NewTokenStore(filepath.Join(t.TempDir(), "token.json"))

	_, err := TokenSource(context.Background(), &oauth2.Config{}, store)

	var authErr *AuthenticationError
	require.True(t, errors.As(err, &authErr))
	assert.True(t, errors.Is(err, ErrTokenNotFound))
}

func TestHTTPClient_SetsBearer(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	client := HTTPClient(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "abc", TokenType: "Bearer"}))
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, "Bearer abc", got)
}
