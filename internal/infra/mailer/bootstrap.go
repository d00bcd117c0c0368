package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// One-time Gmail OAuth bootstrap. The running services only refresh an
// existing token (see token.go); this file produces the first token file
// from an authorization code obtained through the browser consent flow.

const (
	defaultAuthURL = "https://accounts.google.com/o/oauth2/v2/auth"

	// gmailSendScope is the narrowest scope that allows sending mail.
	// The digest never needs to read the mailbox.
	gmailSendScope = "https://www.googleapis.com/auth/gmail.send"
)

// AuthCodeURL builds the Google consent URL for the gmail.send scope.
// access_type=offline と prompt=consent でリフレッシュトークンを確実に貰う。
func AuthCodeURL(cfg Config, redirectURI string) string {
	params := url.Values{
		"client_id":     {cfg.ClientID},
		"redirect_uri":  {redirectURI},
		"response_type": {"code"},
		"scope":         {gmailSendScope},
		"access_type":   {"offline"},
		"prompt":        {"consent"},
	}
	return defaultAuthURL + "?" + params.Encode()
}

// ExchangeAuthCode exchanges an authorization code for tokens and writes
// the token file at cfg.TokenFile. The file is what the gmail provider
// loads and refreshes at runtime.
func ExchangeAuthCode(ctx context.Context, cfg Config, code, redirectURI string) error {
	form := url.Values{
		"client_id":     {cfg.ClientID},
		"client_secret": {cfg.ClientSecret},
		"code":          {code},
		"grant_type":    {"authorization_code"},
		"redirect_uri":  {redirectURI},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.OAuthTokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create exchange request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := &http.Client{Timeout: cfg.Timeout}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("token exchange request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read exchange response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("token exchange returned HTTP %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var granted struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
		TokenType    string `json:"token_type"`
	}
	if err := json.Unmarshal(body, &granted); err != nil {
		return fmt.Errorf("decode exchange response: %w", err)
	}
	if granted.AccessToken == "" {
		return fmt.Errorf("exchange response has no access token")
	}
	if granted.RefreshToken == "" {
		// リフレッシュトークンなしでは期限切れ後に送信できなくなる
		return fmt.Errorf("exchange response has no refresh token (re-run consent with prompt=consent)")
	}

	tok := &oauthToken{
		AccessToken:  granted.AccessToken,
		RefreshToken: granted.RefreshToken,
		TokenType:    granted.TokenType,
		Expiry:       time.Now().Add(time.Duration(granted.ExpiresIn) * time.Second),
	}
	if err := saveTokenFile(cfg.TokenFile, tok); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
