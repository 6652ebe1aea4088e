// Package app provides application-level wiring for the statement worker:
// ledger repository, query engine, object store, and executor.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"statement-worker/internal/config"
	"statement-worker/internal/db/repository"
	"statement-worker/internal/domain"
	"statement-worker/internal/engine"
	"statement-worker/internal/middleware"
	"statement-worker/internal/runner"
	"statement-worker/internal/store"
)

// Deps holds the external dependencies that main() must provide: database
// handles and config. The app package does not open connections itself.
type Deps struct {
	Cfg     *config.Config
	EngineD *sql.DB // DuckDB connection the statements run against
	WriteDB *sql.DB // SQLite ledger, write pool
	ReadDB  *sql.DB // SQLite ledger, read pool
	Logger  *slog.Logger
}

// App holds the fully-wired application.
type App struct {
	Ledger   domain.Ledger
	Engine   domain.QueryEngine
	Store    domain.ObjectStore
	Executor *runner.Executor
}

// New wires repositories, the query engine, the object store, and the
// executor from the provided deps.
func New(ctx context.Context, deps Deps) (*App, error) {
	cfg := deps.Cfg

	ledger := repository.NewJobRepo(deps.WriteDB, deps.ReadDB)
	eng := engine.NewDuckDBEngine(deps.EngineD, int(cfg.EngineBatchRows), deps.Logger)

	objStore, err := store.NewFromConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("configure object store: %w", err)
	}

	exec := runner.NewExecutor(ledger, eng, objStore, cfg.ResultsBucket, cfg.FlushThresholdBytes, deps.Logger)

	return &App{
		Ledger:   ledger,
		Engine:   eng,
		Store:    objStore,
		Executor: exec,
	}, nil
}

// NewJWTValidator builds the validator selected by the auth config: OIDC
// when an issuer or JWKS URL is set, otherwise HS256 with the shared secret.
// Returns nil when no auth is configured at all.
func NewJWTValidator(ctx context.Context, auth *config.AuthConfig) (middleware.JWTValidator, error) {
	switch {
	case auth.JWKSURL != "":
		return middleware.NewOIDCValidatorFromJWKS(ctx, auth.JWKSURL, auth.IssuerURL, auth.Audience, auth.AllowedIssuers)
	case auth.IssuerURL != "":
		return middleware.NewOIDCValidator(ctx, auth.IssuerURL, auth.Audience, auth.AllowedIssuers)
	case auth.JWTSecret != "":
		return middleware.NewHS256Validator(auth.JWTSecret)
	default:
		return nil, nil
	}
}
