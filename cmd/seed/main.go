// Command seed loads the demo vacation calendar into the configured store.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"go.uber.org/zap"

	"github.com/warp/vacation-calendar/app"
	"github.com/warp/vacation-calendar/config"
	"github.com/warp/vacation-calendar/logging"
	"github.com/warp/vacation-calendar/seed"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	reset := flag.Bool("reset", false, "Delete every stored vacation before seeding")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}
	defer a.Close()

	if *reset && a.Store != nil {
		if err := a.Store.Reset(ctx); err != nil {
			logger.Error("reset failed", zap.Error(err))
			return
		}
		fmt.Println("Store cleared")
	}

	records, err := seed.Load(ctx, a.Engine, logger)
	if err != nil {
		logger.Error("seed failed", zap.Error(err))
		return
	}
	for _, rec := range records {
		fmt.Printf("  %s: %s - %s\n", rec.EmployeeName, rec.StartDate, rec.EndDate)
	}
	fmt.Printf("Loaded %d demo vacations\n", len(records))
}
