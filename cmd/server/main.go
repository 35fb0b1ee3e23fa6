package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-kyc-onboarding/backend"
	"github.com/jrsteele09/go-kyc-onboarding/internal/config"
	"github.com/jrsteele09/go-kyc-onboarding/internal/logging"
	"github.com/jrsteele09/go-kyc-onboarding/server"
	"github.com/jrsteele09/go-kyc-onboarding/token/keys"
	"github.com/rs/zerolog/log"
)

const signingKeyID = "kyc-mock-1"

func main() {
	c := config.New()
	logging.Setup(c.GetEnv(), c.GetLogLevel())

	for {
		if err := run(c); err != nil {
			log.Error().Err(err).Msg("Error running server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("Server stopped")
}

func run(c config.Config) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Msgf("Recovered from panic: %v", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	displayAppname(c.GetAppName())

	handler, err := newHandler(c)
	if err != nil {
		return err
	}

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

func newHandler(c config.Config) (*server.Server, error) {
	keyPair, err := keys.LoadOrGenerate(signingKeyID, filepath.Join(c.GetDataFolder(), "signing-key.pem"))
	if err != nil {
		return nil, fmt.Errorf("signing key: %w", err)
	}
	signer := keys.NewKeyPairSigner(keyPair)

	svc, err := backend.NewDemoService(c, signer)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("base_url", c.GetBaseURL()).
		Str("demo_user", c.GetDemoUserEmail()).
		Float64("latency_scale", c.GetLatencyScale()).
		Float64("failure_rate", c.GetFailureRate()).
		Msg("mock API configured")

	return server.New(c, svc, signer)
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
