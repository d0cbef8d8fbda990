/*
main.go - Chat export importer

PURPOSE:
  Imports vacation announcements from a messenger chat export directory.
  Every *.json file holds an array of messages; each message goes through
  the extraction oracle and is stored unless the employee already has a
  vacation starting the same day.

USAGE:
  importer [-config path] <export-dir>

OUTPUT:
  One progress line per message, then the final counts.
  Exit status 1 when nothing could be read or the run was interrupted.

SEE ALSO:
  - ingest/importer.go: Import loop and progress lines
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/warp/vacation-calendar/app"
	"github.com/warp/vacation-calendar/config"
	"github.com/warp/vacation-calendar/ingest"
	"github.com/warp/vacation-calendar/logging"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-config path] <export-dir>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	dir := flag.Arg(0)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}

	os.Exit(run(cfg, logger, dir))
}

func run(cfg *config.Config, logger *zap.Logger, dir string) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", zap.Error(err))
		return 1
	}
	defer a.Close()

	msgs, err := ingest.ReadExportDir(dir, logger)
	if err != nil {
		logger.Error("reading export", zap.String("dir", dir), zap.Error(err))
		return 1
	}
	if len(msgs) == 0 {
		fmt.Fprintf(os.Stderr, "no messages found in %s\n", dir)
		return 1
	}

	fmt.Printf("Found %d messages\n", len(msgs))
	report, err := a.Pipeline.Import(ctx, msgs, os.Stdout)

	fmt.Println()
	fmt.Printf("Imported: %d\n", report.Imported)
	fmt.Printf("Skipped:  %d\n", report.Skipped)
	fmt.Printf("Failed:   %d\n", report.Failed)

	if err != nil {
		logger.Warn("import interrupted", zap.Error(err))
		return 1
	}
	return 0
}
