package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/jrsteele09/go-finance-web/api"
	"github.com/jrsteele09/go-finance-web/auth"
	"github.com/jrsteele09/go-finance-web/internal/cli"
	"github.com/jrsteele09/go-finance-web/internal/config"
	"github.com/jrsteele09/go-finance-web/internal/logging"
	"github.com/jrsteele09/go-finance-web/storage"
	"github.com/jrsteele09/go-finance-web/token"
)

func main() {
	_ = godotenv.Load()

	if err := run(); err != nil {
		if errors.Is(err, cli.ErrUsage) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c, err := config.Load(config.GetEnv("CONFIG_FILE", ""))
	if err != nil {
		return err
	}
	if os.Getenv("LOG_LEVEL") == "" {
		_ = os.Setenv("LOG_LEVEL", "warn")
	}
	logging.Setup(c)

	store, closeStore, err := openStore(ctx, c)
	if err != nil {
		return err
	}
	defer closeStore()

	client := api.New(c.GetAPIBaseURL(), token.NewStoreTokenSource(store), api.WithTimeout(c.GetAPITimeout()))
	app, err := cli.New(auth.NewSession(client, store), client, store, c.GetGuardRejectExpired(), os.Stdin, os.Stdout)
	if err != nil {
		return err
	}

	return app.Run(ctx, os.Args[1:])
}

// openStore keeps tokens between runs: Redis when configured, otherwise a
// file, by default under the home directory.
func openStore(ctx context.Context, c config.Config) (storage.Store, func() error, error) {
	if c.GetTokenStore() == config.TokenStoreRedis {
		return storage.Open(ctx, c)
	}

	path := c.GetTokenFile()
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, nil, fmt.Errorf("locate home directory: %w", err)
		}
		path = filepath.Join(home, ".financecli", "tokens.yaml")
	}
	return storage.NewFileStore(path), func() error { return nil }, nil
}
