package googleauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// ErrNotConnected is returned when no Google account has been linked yet.
var ErrNotConnected = errors.New("google account not connected")

var scopes = []string{
	calendar.CalendarEventsScope,
	oauth2api.UserinfoEmailScope,
	oauth2api.UserinfoProfileScope,
}

// UserInfo is the linked account's identity, shown in the settings UI.
type UserInfo struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
}

// Service manages the OAuth link with a single Google account. The token
// lives in a JSON file next to the rest of the backend's state, so a
// restart keeps the account connected.
type Service struct {
	credentialsFile string
	tokenFile       string
	redirectURL     string

	mu     sync.Mutex
	config *oauth2.Config
}

func NewService(credentialsFile, tokenFile, redirectURL string) *Service {
	return &Service{
		credentialsFile: credentialsFile,
		tokenFile:       tokenFile,
		redirectURL:     redirectURL,
	}
}

func (s *Service) oauthConfig() (*oauth2.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.config != nil {
		return s.config, nil
	}

	b, err := os.ReadFile(s.credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read client secret file %s: %w", s.credentialsFile, err)
	}
	config, err := google.ConfigFromJSON(b, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse client secret file: %w", err)
	}
	if s.redirectURL != "" {
		config.RedirectURL = s.redirectURL
	}
	s.config = config
	return config, nil
}

// AuthURL returns the consent page URL to redirect the user to.
// AccessTypeOffline plus the consent prompt makes Google hand back a
// refresh token even for repeat authorizations.
func (s *Service) AuthURL(state string) (string, error) {
	config, err := s.oauthConfig()
	if err != nil {
		return "", err
	}
	return config.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	), nil
}

// Exchange trades the callback's authorization code for a token and
// persists it.
func (s *Service) Exchange(ctx context.Context, code string) error {
	config, err := s.oauthConfig()
	if err != nil {
		return err
	}
	tok, err := config.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchange authorization code: %w", err)
	}
	return s.saveToken(tok)
}

// Connected reports whether a usable token is on disk.
func (s *Service) Connected() bool {
	_, err := s.loadToken()
	return err == nil
}

// HTTPClient returns an authenticated client that refreshes the access
// token transparently. Refreshed tokens are written back to disk so the
// next process start does not repeat the consent flow.
func (s *Service) HTTPClient(ctx context.Context) (*http.Client, error) {
	config, err := s.oauthConfig()
	if err != nil {
		return nil, err
	}
	tok, err := s.loadToken()
	if err != nil {
		return nil, ErrNotConnected
	}

	source := config.TokenSource(ctx, tok)
	current, err := source.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	if current.AccessToken != tok.AccessToken || current.RefreshToken != tok.RefreshToken {
		if err := s.saveToken(current); err != nil {
			log.Printf("googleauth: could not persist refreshed token: %v", err)
		}
	}
	return oauth2.NewClient(ctx, source), nil
}

// User fetches the linked account's profile.
func (s *Service) User(ctx context.Context) (UserInfo, error) {
	client, err := s.HTTPClient(ctx)
	if err != nil {
		return UserInfo{}, err
	}
	svc, err := oauth2api.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return UserInfo{}, fmt.Errorf("userinfo service: %w", err)
	}
	info, err := svc.Userinfo.Get().Do()
	if err != nil {
		return UserInfo{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	return UserInfo{Email: info.Email, Name: info.Name, Picture: info.Picture}, nil
}

// Logout forgets the stored token. The Google-side grant is left alone.
func (s *Service) Logout() error {
	err := os.Remove(s.tokenFile)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}

func (s *Service) loadToken() (*oauth2.Token, error) {
	f, err := os.Open(s.tokenFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("decode token file %s: %w", s.tokenFile, err)
	}
	return tok, nil
}

func (s *Service) saveToken(tok *oauth2.Token) error {
	if dir := filepath.Dir(s.tokenFile); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create token directory: %w", err)
		}
	}
	f, err := os.OpenFile(s.tokenFile, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	return nil
}
