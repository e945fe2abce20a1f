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

	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"mlm-project/config"
	"mlm-project/db"
	"mlm-project/handlers"
	"mlm-project/logger"
	"mlm-project/mlm"
	"mlm-project/repository"
	"mlm-project/routers"
	"mlm-project/scheduler"
)

func main() {
	// Load config
	configPath := os.Getenv("MLM_CONFIG")
	if configPath == "" {
		configPath = config.DefaultPath
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Println("Config file error:", err)
		os.Exit(1)
	}

	if err := logger.InitLogger(cfg.Log.AppLogFile, cfg.Log.Level); err != nil {
		fmt.Println("Failed to initialize logger:", err)
		os.Exit(1)
	}
	defer logger.Logger.Sync()

	logger.Logger.Info("Starting compensation engine...")

	// Connect to LevelDB
	ldb, err := db.NewLevelDB(cfg.LevelDB.Path)
	if err != nil {
		logger.Logger.Fatal("Failed to open leveldb", zap.Error(err))
	}
	defer ldb.Close()

	location, err := cfg.Scheduler.Location()
	if err != nil {
		logger.Logger.Fatal("Invalid scheduler timezone", zap.String("timezone", cfg.Scheduler.Timezone), zap.Error(err))
	}
	clock := clockwork.NewRealClock()

	participantRepo := repository.NewParticipantRepository(ldb)
	engine := mlm.NewEngine(participantRepo,
		mlm.WithClock(clock),
		mlm.WithLocation(location),
		mlm.WithWorkers(cfg.Accrual.Workers),
	)
	logger.Logger.Info("Compensation engine ready",
		zap.String("current_cycle", engine.CurrentCycle()),
		zap.Int("stages", len(engine.Tables().Stages)),
		zap.String("default_max_roi", engine.Tables().DefaultMaxRoi.String()))

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = scheduler.New(scheduler.Config{Clock: clock, Location: location, Jobs: engine})
		if err != nil {
			logger.Logger.Fatal("Failed to create scheduler", zap.Error(err))
		}
		sched.Start(ctx)
	}

	h := handlers.NewHandler(engine, cfg.Store.BulkReadTimeout)

	// Setup router
	r := mux.NewRouter()
	routers.RegisterRoutes(r, h)

	// HTTP Server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           cors.Default().Handler(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Logger.Error("Server stopped", zap.Error(err))
			stop()
		}
	}()

	logger.Logger.Info("Server running on port", zap.Int("port", cfg.Server.Port))

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Logger.Info("Shutdown signal received, exiting...")
	case <-ctx.Done():
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Warn("Server shutdown incomplete", zap.Error(err))
	}
	if sched != nil {
		<-sched.Done()
	}
}
