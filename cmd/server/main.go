package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/jrsteele09/go-finance-web/internal/config"
	"github.com/jrsteele09/go-finance-web/internal/logging"
	"github.com/jrsteele09/go-finance-web/server"
	"github.com/jrsteele09/go-finance-web/server/clientsession"
	"github.com/jrsteele09/go-finance-web/storage"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("failed to load .env")
	}

	runWithRetry(run, time.Second)
	log.Info().Msg("Server stopped")
}

// runWithRetry calls run until it returns without an error, pausing for
// backoff after every failure.
func runWithRetry(run func() error, backoff time.Duration) {
	for {
		err := run()
		if err == nil {
			return
		}
		log.Error().Err(err).Dur("backoff", backoff).Msg("Error running server, retrying")
		time.Sleep(backoff)
	}
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("stack", string(debug.Stack())).Msgf("Recovered from panic: %v", r)
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.Load(config.GetEnv("CONFIG_FILE", ""))
	if err != nil {
		return err
	}
	logging.Setup(c)
	displayAppname(c.GetAppName())

	tokens, closeTokens, err := storage.Open(context.Background(), c)
	if err != nil {
		return fmt.Errorf("open token store: %w", err)
	}
	defer closeTokens()
	log.Info().Str("token_store", c.GetTokenStore()).Str("api", c.GetAPIBaseURL()).Msg("backends configured")

	handler, err := server.New(c, tokens, clientsession.NewInMemoryRepo())
	if err != nil {
		return err
	}
	defer handler.Close()

	httpServer := &http.Server{Addr: c.GetPort(), Handler: handler}
	serveErr := make(chan error, 1)
	go func() { serveErr <- listenAndServe(httpServer) }()

	select {
	case err := <-serveErr:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(httpServer)
}

func listenAndServe(server *http.Server) error {
	log.Info().Msgf("Server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
