package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jrsteele09/go-finance-web/apifake"
	"github.com/jrsteele09/go-finance-web/internal/config"
	"github.com/jrsteele09/go-finance-web/internal/logging"
	"github.com/jrsteele09/go-finance-web/users"
	"github.com/rs/zerolog/log"
)

func main() {
	_ = godotenv.Load()

	addr := flag.String("addr", ":8000", "listen address")
	prefix := flag.String("prefix", "/api", "path prefix the API is mounted under")
	secret := flag.String("secret", "", "HS256 signing secret (random when empty)")
	accessTTL := flag.Duration("access-ttl", 5*time.Minute, "access token lifetime")
	seedEmail := flag.String("seed-email", "demo@example.com", "email of a seeded account (empty for none)")
	seedPassword := flag.String("seed-password", "demo-pass-1", "password of the seeded account")
	flag.Parse()

	logging.Setup(config.New())

	opts := []apifake.Option{apifake.WithAccessTTL(*accessTTL)}
	if *secret != "" {
		opts = append(opts, apifake.WithSecret(*secret))
	}
	backend := apifake.New(opts...)

	if *seedEmail != "" {
		if _, err := backend.AddAccount(*seedEmail, *seedPassword, users.Profile{FirstName: "Demo", LastName: "User"}); err != nil {
			log.Fatal().Err(err).Msg("failed to seed account")
		}
		if err := backend.SeedLedger(*seedEmail); err != nil {
			log.Fatal().Err(err).Msg("failed to seed ledger")
		}
		log.Info().Str("email", *seedEmail).Msg("seeded account")
	}

	server := &http.Server{Addr: *addr, Handler: http.StripPrefix(*prefix, backend)}
	go func() {
		log.Info().Msgf("Mock API listening on %s%s", *addr, *prefix)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server.ListenAndServe")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Err(err).Msg("server.Shutdown")
	}
}
