// Package main provides the Spotify authorization tool.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/trackdeck/trackdeck/internal/infra/config"
	"github.com/trackdeck/trackdeck/internal/infra/logger"
	"github.com/trackdeck/trackdeck/internal/infra/secrets"
	"github.com/trackdeck/trackdeck/internal/infra/spotify"
)

var (
	app        = kingpin.New("trackdeck-auth", "Spotify authorization tool for trackdeck")
	configPath = app.Flag("config", "Config file path").Default("config.yaml").String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()
	kingpin.MustParse(app.Parse(os.Args[1:]))

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if err := logger.Init(logger.Config{Output: cfg.Log.Output, Level: cfg.Log.Level, File: cfg.Log.File}); err != nil {
		return err
	}

	store, err := secrets.New(cfg.Secrets.Dir)
	if err != nil {
		return err
	}
	client, err := spotify.New(spotify.Config{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		RedirectURL:  cfg.RedirectURL(),
	}, store)
	if err != nil {
		return err
	}

	state := uuid.New().String()
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("state") != state {
			http.Error(w, "State mismatch", http.StatusForbidden)
			return
		}
		code, err := spotify.CallbackCode(r.URL.Query())
		if err != nil {
			http.Error(w, "Authorization failed", http.StatusForbidden)
			errCh <- err
			return
		}
		fmt.Fprintln(w, "Authorization complete. You can close this window and return to the terminal.")
		codeCh <- code
	})

	server := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Spotify.CallbackPort), Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	fmt.Println("Please visit the following URL to authorize trackdeck:")
	fmt.Println("")
	fmt.Println(client.AuthURL(state))
	fmt.Println("")
	fmt.Println("Waiting for authorization...")

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := client.ExchangeCode(ctx, code); err != nil {
		return err
	}

	if user, ok := client.CurrentUser(); ok {
		fmt.Println("")
		fmt.Printf("Signed in as %s (%s)\n", user.DisplayName, user.ID)
	}
	return nil
}
