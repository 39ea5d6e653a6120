package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"PatternRadar/internal/config"
	"PatternRadar/internal/history"
	"PatternRadar/internal/scan"
	"PatternRadar/internal/scheduler"
	"PatternRadar/internal/source"
	"PatternRadar/internal/store"

	"github.com/joho/godotenv"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] PatternRadar starting...")

	// .env first so CONFIG_PATH and overrides can live there.
	_ = godotenv.Load()

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Init bar cache
	st, err := store.NewSQLiteStore(cfg.Database.SQLitePath)
	if err != nil {
		log.Fatalf("[FATAL] open series store: %v", err)
	}
	defer st.Close()

	// Init remote source
	var src source.RemoteSource
	if cfg.DataSource.Provider == "mock" {
		src = source.NewMockSource()
	} else {
		src = source.NewYahooSource(cfg.DataSource.Proxy)
	}
	log.Printf("[INFO] data source: %s", src.Name())

	// Init loader and scanner
	loader := history.NewLoader(st, src)
	loader.Concurrency = cfg.Scan.Concurrency
	loader.Limiter = history.NewRateLimiter(cfg.Scan.RatePerMinute)

	sc := scan.NewScanner(loader)
	sc.LookbackDays = cfg.Scan.LookbackDays
	sc.UseCache = !cfg.Scan.NoCache
	sc.Recorder = st

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, sc, cfg.Universe)
	if err := sched.Register(cfg.Schedule.ScanCron); err != nil {
		log.Fatalf("[FATAL] register cron task: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, scanning now")
		go sched.RunScanNow()
	}

	log.Println("[INFO] PatternRadar is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	log.Println("[INFO] PatternRadar stopped")
}
