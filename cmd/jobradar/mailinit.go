package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"

	"jobradar/internal/infra/mailer"
)

var mailInitCode string

var mailInitCmd = &cobra.Command{
	Use:   "mail-init",
	Short: "Run the one-time Gmail OAuth consent flow",
	Long: `mail-init obtains the initial Gmail OAuth token. It prints the
consent URL, waits for the redirect on a local callback server, and
writes the token file the gmail provider refreshes at runtime.

On a headless machine, open the URL elsewhere and pass the resulting
code with --code.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMailInit()
	},
}

func init() {
	mailInitCmd.Flags().StringVar(&mailInitCode, "code", "",
		"authorization code obtained out of band (skips the local callback server)")
	rootCmd.AddCommand(mailInitCmd)
}

func runMailInit() error {
	logger := initLogger()

	cfg, err := mailer.LoadConfigFromEnv()
	if err != nil {
		return fmt.Errorf("load mail configuration: %w", err)
	}
	if cfg.Provider != mailer.ProviderGmail {
		return fmt.Errorf("mail-init requires MAIL_PROVIDER=gmail (got %q)", cfg.Provider)
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return fmt.Errorf("GMAIL_CLIENT_ID and GMAIL_CLIENT_SECRET must be set")
	}

	redirectURI := os.Getenv("GMAIL_REDIRECT_URI")
	if redirectURI == "" {
		redirectURI = "http://localhost:8089/callback"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	code := mailInitCode
	if code == "" {
		fmt.Println("Open this URL in a browser and approve access:")
		fmt.Println()
		fmt.Println("  " + mailer.AuthCodeURL(cfg, redirectURI))
		fmt.Println()

		code, err = waitForAuthCode(ctx, redirectURI)
		if err != nil {
			return err
		}
	}

	if err := mailer.ExchangeAuthCode(ctx, cfg, code, redirectURI); err != nil {
		return err
	}
	logger.Info("token file written", slog.String("path", cfg.TokenFile))
	return nil
}

// waitForAuthCode runs a one-shot HTTP server on the redirect URI's port
// and captures the code query parameter from the OAuth redirect.
func waitForAuthCode(ctx context.Context, redirectURI string) (string, error) {
	u, err := parseRedirectURI(redirectURI)
	if err != nil {
		return "", err
	}

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(u.path, func(w http.ResponseWriter, r *http.Request) {
		if errMsg := r.URL.Query().Get("error"); errMsg != "" {
			http.Error(w, "consent denied", http.StatusBadRequest)
			errCh <- fmt.Errorf("consent denied: %s", errMsg)
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "Authorization received. You can close this tab.")
		codeCh <- code
	})

	srv := &http.Server{
		Addr:              u.addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("callback server: %w", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	select {
	case code := <-codeCh:
		return code, nil
	case err := <-errCh:
		return "", err
	case <-ctx.Done():
		return "", fmt.Errorf("timed out waiting for the OAuth redirect")
	}
}

type redirectEndpoint struct {
	addr string
	path string
}

// parseRedirectURI extracts the listen address and path from the
// configured redirect URI. Only localhost redirects make sense here.
func parseRedirectURI(redirectURI string) (redirectEndpoint, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return redirectEndpoint{}, fmt.Errorf("invalid redirect URI %q: %w", redirectURI, err)
	}
	host := u.Hostname()
	if host != "localhost" && host != "127.0.0.1" {
		return redirectEndpoint{}, fmt.Errorf("redirect URI must point at localhost, got %q", host)
	}
	port := u.Port()
	if port == "" {
		port = "80"
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	return redirectEndpoint{addr: ":" + port, path: path}, nil
}
