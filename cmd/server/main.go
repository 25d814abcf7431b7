package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-token-server/clientauth"
	"github.com/jrsteele09/go-token-server/clients/sqliterepo"
	"github.com/jrsteele09/go-token-server/endpoint"
	"github.com/jrsteele09/go-token-server/internal/config"
	"github.com/jrsteele09/go-token-server/server"
	"github.com/jrsteele09/go-token-server/sessions"
	"github.com/jrsteele09/go-token-server/token"
	"github.com/jrsteele09/go-token-server/users/repofake"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatalf("Error running server: %s\n", err)
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Printf("Server stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName())

	tokenEndpoint, cleanup, err := buildTokenEndpoint(c)
	if err != nil {
		return fmt.Errorf("buildTokenEndpoint: %w", err)
	}
	defer cleanup()

	httpServer := &http.Server{Addr: c.GetPort(), Handler: server.New(c, tokenEndpoint)}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

// buildTokenEndpoint wires the token issuance core: signer, token handlers,
// session manager, client directory and client auth verifier.
func buildTokenEndpoint(c config.Config) (*endpoint.TokenEndpoint, func(), error) {
	clientStore, err := sqliterepo.New(filepath.Join(c.GetDataFolder(), "clients.db"))
	if err != nil {
		return nil, nil, fmt.Errorf("sqliterepo.New: %w", err)
	}
	if err := clientStore.ApplyMigrations(); err != nil {
		clientStore.Close()
		return nil, nil, fmt.Errorf("clientStore.ApplyMigrations: %w", err)
	}

	signer := token.NewHMACSigner(c.GetSigningSecret())
	handlers := token.NewHandlerSet(token.HandlerConfig{
		Issuer:          c.GetBaseURL(),
		CodeLength:      c.GetCodeGenerationLength(),
		AccessLifetime:  c.GetDefaultAccessTokenExpiry(),
		RefreshLifetime: c.GetDefaultRefreshTokenExpiry(),
	}, signer)

	policy := sessions.StaticPolicy{UsageRules: sessions.DefaultUsageRules(
		c.GetAuthCodeTimeout(),
		c.GetDefaultAccessTokenExpiry(),
		c.GetDefaultRefreshTokenExpiry(),
	)}
	sessionManager, err := sessions.NewManager(
		sessions.NewInMemoryRepo(), handlers, c.GetSessionSalt(),
		sessions.WithPolicy(policy),
		sessions.WithGrantLifetime(c.GetGrantExpiry()),
	)
	if err != nil {
		clientStore.Close()
		return nil, nil, fmt.Errorf("sessions.NewManager: %w", err)
	}

	verifier, err := clientauth.NewVerifier(clientStore, c.GetBaseURL()+server.RouteOAuth2Token)
	if err != nil {
		clientStore.Close()
		return nil, nil, fmt.Errorf("clientauth.NewVerifier: %w", err)
	}

	tokenEndpoint, err := endpoint.New(sessionManager, verifier,
		endpoint.WithRevokeRefreshOnIssue(c.GetRevokeRefreshOnIssue()),
		endpoint.WithUserRepo(repofake.NewFakeUserRepo()),
	)
	if err != nil {
		clientStore.Close()
		return nil, nil, fmt.Errorf("endpoint.New: %w", err)
	}
	return tokenEndpoint, func() { clientStore.Close() }, nil
}

func listenAndServe(server *http.Server) error {
	log.Printf("Server listening on %s\n", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
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
