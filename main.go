package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"github.com/podium-data/delivery.report/internal/api"
	"github.com/podium-data/delivery.report/internal/config"
	"github.com/podium-data/delivery.report/internal/db"
	"github.com/podium-data/delivery.report/internal/monitoring"
	"github.com/podium-data/delivery.report/internal/version"
	"github.com/podium-data/delivery.report/internal/vision/storage/sqlite"
)

var (
	listen        = flag.String("listen", ":8080", "Listen address")
	dbPath        = flag.String("db", "delivery_report.db", "Path to the SQLite database")
	migrationsDir = flag.String("migrations", "db/migrations", "Path to the migrations directory")
	tuningPath    = flag.String("tuning", "", "Optional tuning overrides JSON file")
	showVersion   = flag.Bool("version", false, "Print version and exit")
)

func main() {
	// .env is optional; flags and environment still apply without it
	_ = godotenv.Load()
	flag.Parse()

	if *showVersion {
		fmt.Println(version.FullVersion())
		return
	}

	logger := slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: "15:04:05",
		}),
	)
	slog.SetDefault(logger)
	monitoring.SetLogger(func(format string, v ...interface{}) {
		logger.Info(fmt.Sprintf(format, v...))
	})

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	// Validate tuning overrides up front so a bad file fails at startup,
	// not when the first session is created.
	if *tuningPath != "" {
		if _, err := config.LoadSessionConfig(*tuningPath); err != nil {
			log.Fatalf("invalid tuning config %s: %v", *tuningPath, err)
		}
		slog.Info("loaded tuning overrides", "path", *tuningPath)
	}

	database, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := database.MigrateUp(*migrationsDir); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	store := sqlite.NewObservationsStore(database.DB)

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()
		mux.Handle("/api/", api.NewServer(store).ServeMux())

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			slog.Info("report API listening", "addr", *listen, "db", *dbPath)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		slog.Info("shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "err", err)
		}
	}()

	wg.Wait()
	slog.Info("graceful shutdown complete")
}
