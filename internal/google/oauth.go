package google

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// URLOpener opens the consent URL, normally in the user's browser.
type URLOpener func(url string) error

// LoadClientConfig reads OAuth client secrets from the first existing path and
// returns a config requesting DefaultOAuthScopes.
func LoadClientConfig(paths ...string) (*oauth2.Config, error) {
	for _, path := range paths {
		b, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, &AuthenticationError{Op: "read client secrets", Err: err}
		}

		conf, err := google.ConfigFromJSON(b, DefaultOAuthScopes...)
		if err != nil {
			return nil, &AuthenticationError{
				Op:  "parse client secrets",
				Err: fmt.Errorf("%s: %w", path, err),
			}
		}
		slog.Debug("loaded OAuth client secrets", "path", path)
		return conf, nil
	}

	return nil, &AuthenticationError{
		Op: "load client secrets",
		Err: fmt.Errorf("%w (looked in %s); download a Desktop OAuth client from the Google Cloud Console",
			ErrClientSecretsNotFound, strings.Join(paths, ", ")),
	}
}

type callbackResult struct {
	code string
	err  error
}

// Authorize runs the installed-app consent flow. It listens on a loopback
// port, sends the user to Google's consent page and exchanges the returned
// code for a token. The consent URL is always printed to out; open may be nil.
func Authorize(ctx context.Context, conf *oauth2.Config, open URLOpener, out io.Writer) (*oauth2.Token, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, &AuthenticationError{Op: "start callback listener", Err: err}
	}

	c := *conf
	c.RedirectURL = "http://" + ln.Addr().String() + "/callback"

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	authURL := c.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.S256ChallengeOption(verifier),
	)

	results := make(chan callbackResult, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		res := parseCallback(r, state)
		if res.err != nil {
			http.Error(w, "Authentication failed: "+res.err.Error(), http.StatusBadRequest)
		} else {
			fmt.Fprintln(w, "Authentication complete. You can close this window and return to the terminal.")
		}
		select {
		case results <- res:
		default:
		}
	})

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Debug("OAuth callback server stopped", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	fmt.Fprintf(out, "Opening your browser for Google authorization.\nIf it does not open, visit:\n\n  %s\n\n", authURL)
	if open != nil {
		if err := open(authURL); err != nil {
			slog.Debug("could not open browser", "error", err)
		}
	}

	var res callbackResult
	select {
	case <-ctx.Done():
		return nil, &AuthenticationError{Op: "wait for consent", Err: ctx.Err()}
	case res = <-results:
	}
	if res.err != nil {
		return nil, &AuthenticationError{Op: "consent", Err: res.err}
	}

	tok, err := c.Exchange(ctx, res.code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, &AuthenticationError{Op: "exchange authorization code", Err: err}
	}
	return tok, nil
}

func parseCallback(r *http.Request, state string) callbackResult {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		return callbackResult{err: fmt.Errorf("consent denied: %s", e)}
	}
	if q.Get("state") != state {
		return callbackResult{err: errors.New("state mismatch in OAuth callback")}
	}
	code := q.Get("code")
	if code == "" {
		return callbackResult{err: errors.New("missing authorization code")}
	}
	return callbackResult{code: code}
}

// HTTPClient returns an HTTP client authenticated by ts.
// The client is configured to use HTTP/1.1 to avoid HTTP/2 protocol errors.
func HTTPClient(ts oauth2.TokenSource) *http.Client {
	return &http.Client{
		Transport: &oauth2.Transport{
			Source: ts,
			Base: &http.Transport{
				Proxy:             http.ProxyFromEnvironment,
				ForceAttemptHTTP2: false,
			},
		},
	}
}

// NewClient loads the stored token and returns an authenticated client that
// persists refreshed tokens to store.
func NewClient(ctx context.Context, conf *oauth2.Config, store *TokenStore, opts ...TokenSourceOption) (*http.Client, error) {
	ts, err := TokenSource(ctx, conf, store, opts...)
	if err != nil {
		return nil, err
	}
	return HTTPClient(ts), nil
}
