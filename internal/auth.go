package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// NewYouTubeService builds an authorised YouTube service from the stored token.
// Refreshed tokens are written back to the token location.
func NewYouTubeService(ctx context.Context, config *Config) (*youtube.Service, error) {
	cfg, err := googleConfig(ctx, config.ClientSecrets)
	if err != nil {
		return nil, err
	}

	tok, err := loadToken(ctx, config.TokenFile)
	if err != nil {
		return nil, err
	}

	ts := &savingTokenSource{
		base: cfg.TokenSource(ctx, tok),
		last: tok,
		save: func(t *oauth2.Token) error { return saveToken(ctx, t, config.TokenFile) },
	}

	svc, err := youtube.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, ts)))
	if err != nil {
		return nil, fmt.Errorf("could not create youtube service: %w", err)
	}
	return svc, nil
}

// Authorize runs the installed-app OAuth flow on a loopback listener and
// stores the resulting token
func Authorize(ctx context.Context, config *Config, ui UIManager) error {
	cfg, err := googleConfig(ctx, config.ClientSecrets)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("starting callback listener: %w", err)
	}
	cfg.RedirectURL = "http://" + ln.Addr().String() + "/"

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	authURL := cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.S256ChallengeOption(verifier))

	results := make(chan authCallback, 1)
	var once sync.Once
	srv := &http.Server{
		ReadHeaderTimeout: 10 * time.Second,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cb := callbackFromQuery(r.URL.Query(), state)
			if cb.err != nil {
				http.Error(w, cb.err.Error(), http.StatusBadRequest)
			} else {
				fmt.Fprintln(w, "Authorisation complete. You can close this window.")
			}
			once.Do(func() { results <- cb })
		}),
	}
	go func() { _ = srv.Serve(ln) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	ui.Println("Open the following URL in your browser to authorise YouTube uploads:")
	ui.Println(authURL)

	var cb authCallback
	select {
	case cb = <-results:
	case <-ctx.Done():
		return ctx.Err()
	}
	if cb.err != nil {
		return cb.err
	}

	tok, err := cfg.Exchange(ctx, cb.code, oauth2.VerifierOption(verifier))
	if err != nil {
		return fmt.Errorf("exchanging authorisation code: %w", err)
	}
	if err := saveToken(ctx, tok, config.TokenFile); err != nil {
		return fmt.Errorf("could not save new token: %w", err)
	}

	ui.Printf("Token saved to %s\n", config.TokenFile)
	return nil
}

type authCallback struct {
	code string
	err  error
}

func callbackFromQuery(q url.Values, state string) authCallback {
	if e := q.Get("error"); e != "" {
		return authCallback{err: fmt.Errorf("authorisation denied: %s", e)}
	}
	if q.Get("state") != state {
		return authCallback{err: errors.New("authorisation state mismatch")}
	}
	code := q.Get("code")
	if code == "" {
		return authCallback{err: errors.New("authorisation code missing")}
	}
	return authCallback{code: code}
}

// savingTokenSource persists the token whenever the underlying source refreshes it
type savingTokenSource struct {
	base oauth2.TokenSource
	save func(*oauth2.Token) error

	mu   sync.Mutex
	last *oauth2.Token
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: refreshing token: %w", ErrTransferFailure, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil || s.last.AccessToken != tok.AccessToken {
		if err := s.save(tok); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not save refreshed token: %v\n", err)
		}
		s.last = tok
	}
	return tok, nil
}

// googleConfig builds the OAuth config from the client secrets JSON
func googleConfig(ctx context.Context, secretsURI string) (*oauth2.Config, error) {
	secrets, err := readURI(ctx, secretsURI)
	if err != nil {
		return nil, fmt.Errorf("could not get client secrets: %w", err)
	}

	cfg, err := google.ConfigFromJSON(secrets, youtube.YoutubeUploadScope)
	if err != nil {
		return nil, fmt.Errorf("could not create config from client secrets: %w", err)
	}
	return cfg, nil
}

func loadToken(ctx context.Context, uri string) (*oauth2.Token, error) {
	data, err := readURI(ctx, uri)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ErrNoToken
		}
		return nil, fmt.Errorf("could not load token: %w", err)
	}

	tok := &oauth2.Token{}
	if err := json.Unmarshal(data, tok); err != nil {
		return nil, fmt.Errorf("could not decode token: %w", err)
	}
	return tok, nil
}

func saveToken(ctx context.Context, tok *oauth2.Token, uri string) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}
	return writeURI(ctx, uri, data)
}

// readURI reads a local file or a gs://bucket/object
func readURI(ctx context.Context, uri string) ([]byte, error) {
	if !strings.HasPrefix(uri, "gs://") {
		return os.ReadFile(uri)
	}

	obj, closeClient, err := storageObject(ctx, uri)
	if err != nil {
		return nil, err
	}
	defer closeClient()

	r, err := obj.NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not read bucket object: %w", err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

// writeURI writes a local file (mode 0600) or a gs://bucket/object
func writeURI(ctx context.Context, uri string, data []byte) error {
	if !strings.HasPrefix(uri, "gs://") {
		if err := EnsureDirs(filepath.Dir(uri)); err != nil {
			return fmt.Errorf("creating token directory: %w", err)
		}
		return os.WriteFile(uri, data, 0600)
	}

	obj, closeClient, err := storageObject(ctx, uri)
	if err != nil {
		return err
	}
	defer closeClient()

	w := obj.NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("could not write bucket object: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("could not close written object: %w", err)
	}
	return nil
}

func storageObject(ctx context.Context, uri string) (*storage.ObjectHandle, func(), error) {
	bucket, object, err := GoogleStorageAddr(uri)
	if err != nil {
		return nil, nil, fmt.Errorf("could not parse uri: %w", err)
	}

	c, err := storage.NewClient(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("could not create storage client: %w", err)
	}
	return c.Bucket(bucket).Object(object), func() { _ = c.Close() }, nil
}

// GoogleStorageAddr splits gs://bucket/object
func GoogleStorageAddr(addr string) (bucket, object string, err error) {
	u, err := url.Parse(addr)
	if err != nil {
		return "", "", err
	}
	if u.Scheme != "gs" {
		return "", "", fmt.Errorf("url does not have gs scheme: %s", u)
	}
	object = strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || object == "" {
		return "", "", fmt.Errorf("url needs a bucket and object: %s", u)
	}
	return u.Host, object, nil
}
