// Command seed registers (or logs in) a demo user and creates sample charging
// stations owned by it. Existing data is left untouched.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-charging-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-charging-go/internal/station"
	stationrepo "github.com/ovaphlow/pitchfork/service-charging-go/internal/station/repo"
	"github.com/ovaphlow/pitchfork/service-charging-go/internal/user"
	"github.com/ovaphlow/pitchfork/service-charging-go/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-charging-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-charging-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-charging-go/pkg/utilities"
)

var sampleStations = []string{
	`{"name":"Downtown Station","location":{"type":"Point","coordinates":[-73.935242,40.730610]},"status":"available","powerOutput":50,"connectorType":"Type 2"}`,
	`{"name":"Central Park Station","location":{"type":"Point","coordinates":[-73.965354,40.782865]},"status":"in_use","powerOutput":100,"connectorType":"CCS"}`,
	`{"name":"Brooklyn Station","location":{"type":"Point","coordinates":[-73.949721,40.678178]},"status":"available","powerOutput":75,"connectorType":"CHAdeMO"}`,
}

type accounts interface {
	Register(ctx context.Context, email, password string) (*entity.User, error)
	Verify(ctx context.Context, email, password string) (*entity.User, error)
}

// seed makes sure the demo user exists and creates the sample stations
// through the validating service. It returns the number of stations created.
func seed(ctx context.Context, users accounts, stations *station.Service, email, password string, logger *zap.SugaredLogger) (int, error) {
	u, err := users.Register(ctx, email, password)
	if apperr.KindOf(err) == apperr.KindConflict {
		u, err = users.Verify(ctx, email, password)
	}
	if err != nil {
		return 0, fmt.Errorf("seed user: %w", err)
	}
	logger.Infow("seed user ready", "user_id", u.ID, "email", u.Email)

	created := 0
	for _, raw := range sampleStations {
		var in station.Input
		if err := json.Unmarshal([]byte(raw), &in); err != nil {
			return created, fmt.Errorf("decode sample: %w", err)
		}
		st, err := stations.Create(ctx, in, u.ID)
		if err != nil {
			return created, fmt.Errorf("create %q: %w", in.Name.Value, err)
		}
		created++
		logger.Infow("station created", "station_id", st.ID, "name", st.Name)
	}
	return created, nil
}

func main() {
	email := flag.String("email", "demo@example.com", "seed user email")
	password := flag.String("password", "demo1234", "seed user password")
	flag.Parse()

	// best-effort, same as the API
	_ = godotenv.Load()

	// init logger
	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()
	sugar := lg.Sugar()

	// init db
	sqlDB, err := database.Connect(database.ConfigFromEnv())
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer sqlDB.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := database.Migrate(ctx, sqlDB, sugar); err != nil {
		sugar.Fatalf("db migrate: %v", err)
	}

	sqlxDB := sqlx.NewDb(sqlDB, "postgres")
	users := user.NewUserService(userrepo.NewUserRepo(sqlxDB), user.BcryptHasher{Cost: user.PasswordCost})
	stations := station.NewService(stationrepo.NewStationRepo(sqlxDB))

	n, err := seed(ctx, users, stations, *email, *password, sugar)
	if err != nil {
		sugar.Fatalf("seed: %v", err)
	}
	sugar.Infow("seed complete", "stations", n)
}
