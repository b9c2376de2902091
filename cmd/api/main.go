package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"

	"github.com/ovaphlow/pitchfork/service-charging-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-charging-go/internal/config"
	"github.com/ovaphlow/pitchfork/service-charging-go/internal/httpx"
	"github.com/ovaphlow/pitchfork/service-charging-go/internal/router"
	"github.com/ovaphlow/pitchfork/service-charging-go/internal/station"
	stationrepo "github.com/ovaphlow/pitchfork/service-charging-go/internal/station/repo"
	"github.com/ovaphlow/pitchfork/service-charging-go/internal/token"
	"github.com/ovaphlow/pitchfork/service-charging-go/internal/user"
	userrepo "github.com/ovaphlow/pitchfork/service-charging-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-charging-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-charging-go/pkg/utilities"
)

func main() {
	// load .env file if present so os.Getenv picks values from it
	// this is best-effort: if no .env exists, continue (use defaults or real env)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// init logger
	lg, err := utilities.Init(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Infow("starting service-charging-go", "env", cfg.Env, "port", cfg.Port, "owner_only_mutations", cfg.OwnerOnlyMutations)

	// init db
	sqlDB, err := database.Connect(cfg.Database)
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer sqlDB.Close()

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), time.Minute)
	if err := database.Migrate(migrateCtx, sqlDB, sugar); err != nil {
		cancelMigrate()
		sugar.Fatalf("db migrate: %v", err)
	}
	cancelMigrate()

	// wrap with sqlx for convenience in repos/services
	sqlxDB := sqlx.NewDb(sqlDB, "postgres")

	tokens := token.NewService(cfg.JWTSecret, cfg.TokenTTL)
	resp := httpx.NewResponder(sugar, cfg.Dev())

	users := user.NewUserService(userrepo.NewUserRepo(sqlxDB), user.BcryptHasher{Cost: user.PasswordCost})
	stations := station.NewService(stationrepo.NewStationRepo(sqlxDB), station.WithOwnerOnlyMutations(cfg.OwnerOnlyMutations))

	handler := router.RegisterRoutes(router.Deps{
		Logger:      sugar,
		Responder:   resp,
		DB:          sqlxDB,
		Gateway:     auth.NewGateway(tokens),
		Users:       user.NewHandler(users, tokens, resp, sugar),
		Stations:    station.NewHandler(stations, resp, sugar),
		CORSOrigins: cfg.CORSOrigins,
	})

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       2 * cfg.WriteTimeout,
	}

	// run server in background
	go func() {
		sugar.Infow("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()

	sugar.Info("shutting down")

	// give a short grace period for in-flight requests
	doneCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}
