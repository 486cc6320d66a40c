// Lattice daemon - serves the DID-authenticated social coordination API
// described in spec.md over HTTP.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/tcsenpai/lattice/pkg/api"
	"github.com/tcsenpai/lattice/pkg/auth"
	"github.com/tcsenpai/lattice/pkg/config"
	"github.com/tcsenpai/lattice/pkg/content"
	"github.com/tcsenpai/lattice/pkg/exp"
	"github.com/tcsenpai/lattice/pkg/feed"
	"github.com/tcsenpai/lattice/pkg/identity"
	"github.com/tcsenpai/lattice/pkg/idgen"
	"github.com/tcsenpai/lattice/pkg/noncecache"
	"github.com/tcsenpai/lattice/pkg/ratelimit"
	"github.com/tcsenpai/lattice/pkg/store/postgres"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: Could not load %s file: %v", envPath, err)
		log.Printf("Continuing with existing environment variables...")
	} else {
		log.Printf("Loaded environment from %s", envPath)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	gin.SetMode(cfg.GinMode)

	log.Printf("Starting latticed")
	log.Printf("HTTP Port: %s", cfg.HTTPPort)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := postgres.Open(ctx, postgres.Config{
		Host: cfg.DBHost, Port: cfg.DBPort, User: cfg.DBUser, Password: cfg.DBPassword,
		Database: cfg.DBName, SSLMode: cfg.DBSSLMode,
		MaxOpenConns: cfg.DBMaxOpenConns, MaxIdleConns: cfg.DBMaxIdleConns,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Printf("Error closing database store: %v", err)
		}
	}()
	log.Println("Connected to PostgreSQL database")

	ids := idgen.New()
	ledger := exp.New(st, ids)
	limiter := ratelimit.New(st)
	nonces := noncecache.New(cfg.NonceCacheCapacity, cfg.NonceTTL)
	authn := auth.New(st, nonces)

	identitySvc := identity.New(st, ledger)
	contentSvc := content.New(st, ledger, limiter, ids)
	votes := content.NewVoteService(contentSvc, ids)
	reports := content.NewReportService(contentSvc, ids)
	feedSvc := feed.New(st, ledger)

	log.Println("Services initialized")

	sweepDone := startSweepLoop(ctx, limiter, cfg.RateLimitSweepEvery)
	defer func() {
		stop()
		<-sweepDone
	}()

	srv := api.New(st, ledger, identitySvc, contentSvc, votes, reports, feedSvc, authn, st)
	router := srv.Router()

	log.Printf("HTTP server listening on :%s", cfg.HTTPPort)
	if err := router.Run(":" + cfg.HTTPPort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// startSweepLoop runs the best-effort rate-limit bucket sweep (spec.md
// §4.13) on a ticker, stopping when ctx is cancelled. The returned
// channel closes once the loop has exited.
func startSweepLoop(ctx context.Context, limiter *ratelimit.Limiter, every time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := limiter.Sweep(ctx); err != nil {
					log.Printf("rate limit sweep failed: %v", err)
				}
			}
		}
	}()
	return done
}
