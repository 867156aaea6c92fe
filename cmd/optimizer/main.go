package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"

	"canal-optimization-service/internal/adapters/dispatch"
	"canal-optimization-service/internal/adapters/results"
	"canal-optimization-service/internal/adapters/topology"
	"canal-optimization-service/internal/config"
	"canal-optimization-service/internal/domain"
	"canal-optimization-service/internal/platform/db"
	"canal-optimization-service/internal/ports"
	"canal-optimization-service/internal/services"
)

// main is the application composition root.
// It wires concrete adapters (Postgres topology, SQLite results, Redis
// dispatch) behind ports and executes one optimization run over the
// pending request batch.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	configPath := getEnv("CONFIG_PATH", "")
	resultsPath := getEnv("RESULTS_DB_PATH", "data/results.db")
	requestsPath := getEnv("REQUESTS_PATH", "data/requests.json")
	sourceNode := getEnv("SOURCE_NODE_ID", "")

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			log.Fatal(err)
		}
		cfg = loaded
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	pg, err := db.OpenPostgres(databaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer pg.Close()

	lite, err := db.OpenSQLite(resultsPath)
	if err != nil {
		log.Fatal(err)
	}
	defer lite.Close()

	if err := results.InitSchema(lite); err != nil {
		log.Fatal(err)
	}

	var dispatcher ports.GateDispatcher
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		dispatcher = dispatch.NewRedisGateDispatcher(redis.NewClient(&redis.Options{Addr: addr}))
	}

	source := topology.NewPostgresSnapshotSource(pg)
	store := results.NewSqliteResultStore(lite)
	notifier := dispatch.NewLogAlertNotifier()

	orch := services.NewOrchestrator(cfg, store, dispatcher, notifier)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	snap, err := source.FetchSnapshot(ctx)
	if err != nil {
		log.Fatal(err)
	}

	requests, err := loadRequests(requestsPath)
	if err != nil {
		log.Fatal(err)
	}

	result, plans, err := orch.Run(ctx, services.RunInput{
		Snapshot:     snap,
		Requests:     requests,
		SourceNodeID: sourceNode,
	})
	if err != nil {
		log.Fatal(err)
	}

	log.Printf("run_id=%s requests=%d outcomes=%d plans=%d efficiency=%.1f%% suboptimal=%t time_limited=%t",
		result.RunID, len(requests), len(result.Outcomes), len(plans),
		result.EfficiencyPc, result.Suboptimal, result.TimeLimited)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func loadRequests(path string) ([]domain.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load requests: read %q: %w", path, err)
	}

	var requests []domain.Request
	if err := json.Unmarshal(data, &requests); err != nil {
		return nil, fmt.Errorf("load requests: parse %q: %w", path, err)
	}
	return requests, nil
}
