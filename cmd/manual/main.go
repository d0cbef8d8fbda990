/*
main.go - Manual vacation entry

PURPOSE:
  Adds vacations by hand, one at a time with prompts or as a batch of
  pipe-separated lines.

USAGE:
  manual [-config path]          interactive menu
  manual [-config path] batch    read batch lines from stdin

BATCH FORMAT:
  name | employee id | start | end | comment
  The id and comment may be empty. An empty line ends the batch.

SEE ALSO:
  - ingest/manual.go: Prompts, batch parsing and policies
*/
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/warp/vacation-calendar/app"
	"github.com/warp/vacation-calendar/config"
	"github.com/warp/vacation-calendar/ingest"
	"github.com/warp/vacation-calendar/logging"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
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

	// One reader for the menu and the prompts so no input is lost to buffering.
	in := bufio.NewReader(os.Stdin)

	mode := flag.Arg(0)
	if mode == "" {
		fmt.Println("1. Add one vacation")
		fmt.Println("2. Add a batch")
		fmt.Print("Choice: ")
		line, _ := in.ReadString('\n')
		mode = strings.TrimSpace(line)
	}

	switch mode {
	case "1", "single":
		if _, err := a.Pipeline.RunInteractive(ctx, in, os.Stdout); err != nil {
			a.Close()
			os.Exit(1)
		}
	case "2", "batch":
		batch(ctx, a.Pipeline, in)
	default:
		fmt.Fprintf(os.Stderr, "unknown choice %q\n", mode)
		a.Close()
		os.Exit(1)
	}
}

func batch(ctx context.Context, p *ingest.Pipeline, in io.Reader) {
	fmt.Println("Enter vacations as: name | employee id | start | end | comment")
	fmt.Println("Finish with an empty line.")
	report := p.AddBatch(ctx, in, os.Stdout)
	fmt.Printf("\nAdded: %d, failed: %d\n", report.Added, report.Failed)
}
