package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

// expirySkew refreshes the token slightly before it actually expires so
// an in-flight request never carries a just-expired token.
const expirySkew = 60 * time.Second

// oauthToken mirrors the token file written by the mail-init bootstrap.
type oauthToken struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	Expiry       time.Time `json:"expiry"`
}

func (t *oauthToken) valid() bool {
	return t.AccessToken != "" && time.Now().Add(expirySkew).Before(t.Expiry)
}

// tokenManager loads the OAuth token from disk and refreshes it against
// the Google token endpoint when it expires. The refreshed token is
// written back so restarts pick up the newest access token.
type tokenManager struct {
	path         string
	clientID     string
	clientSecret string
	tokenURL     string
	client       *http.Client

	mu  sync.Mutex
	tok *oauthToken
}

func newTokenManager(cfg Config, client *http.Client) *tokenManager {
	return &tokenManager{
		path:         cfg.TokenFile,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		tokenURL:     cfg.OAuthTokenURL,
		client:       client,
	}
}

// AccessToken returns a valid bearer token, refreshing it if needed.
func (m *tokenManager) AccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tok == nil {
		tok, err := loadTokenFile(m.path)
		if err != nil {
			return "", fmt.Errorf("load token file: %w", err)
		}
		m.tok = tok
	}

	if m.tok.valid() {
		return m.tok.AccessToken, nil
	}

	if err := m.refresh(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenExpired, err)
	}
	return m.tok.AccessToken, nil
}

// refresh exchanges the refresh token for a new access token and persists
// the result. Caller holds m.mu.
func (m *tokenManager) refresh(ctx context.Context) error {
	if m.tok.RefreshToken == "" {
		return fmt.Errorf("token file has no refresh token")
	}

	form := url.Values{
		"client_id":     {m.clientID},
		"client_secret": {m.clientSecret},
		"refresh_token": {m.tok.RefreshToken},
		"grant_type":    {"refresh_token"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.tokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("token refresh request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read refresh response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("token refresh returned HTTP %d", resp.StatusCode)
	}

	var refreshed struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
		TokenType   string `json:"token_type"`
	}
	if err := json.Unmarshal(body, &refreshed); err != nil {
		return fmt.Errorf("decode refresh response: %w", err)
	}
	if refreshed.AccessToken == "" {
		return fmt.Errorf("refresh response has no access token")
	}

	m.tok.AccessToken = refreshed.AccessToken
	m.tok.Expiry = time.Now().Add(time.Duration(refreshed.ExpiresIn) * time.Second)
	if refreshed.TokenType != "" {
		m.tok.TokenType = refreshed.TokenType
	}

	if err := saveTokenFile(m.path, m.tok); err != nil {
		// 保存失敗は致命的ではない。次回起動時に再リフレッシュするだけ。
		slog.Warn("failed to persist refreshed token", slog.Any("error", err))
	}

	slog.Info("oauth token refreshed", slog.Time("expiry", m.tok.Expiry))
	return nil
}

func loadTokenFile(path string) (*oauthToken, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tok oauthToken
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, fmt.Errorf("%s contains no usable token", path)
	}
	return &tok, nil
}

func saveTokenFile(path string, tok *oauthToken) error {
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return err
	}
	// トークンは秘匿情報なので0600で書く
	return os.WriteFile(path, data, 0o600)
}
