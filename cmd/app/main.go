package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ETFWatch/internal/di"
	"ETFWatch/internal/domain/models"
	"ETFWatch/pkg/config"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config/config.yaml", "config file path")
	job := flag.String("job", "", "run one pipeline and exit: price or pe")
	dryRun := flag.Bool("dry-run", false, "render notifications without sending them")
	serve := flag.Bool("serve", false, "run the scheduler and HTTP API until interrupted")
	flag.Parse()

	if (*job == "") == !*serve {
		log.Printf("exactly one of -job or -serve is required")
		flag.Usage()
		os.Exit(2)
	}

	// Load config
	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s transport=%s cache=%s dry_run=%t", cfg.Environment, cfg.Delivery.Transport, cfg.Cache.Backend, *dryRun)

	// Wire DI: Initialize all dependencies
	app, err := di.InitializeApp(cfg, di.RunOptions{DryRun: *dryRun})
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	code := 0
	if *serve {
		if err := app.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("app error: %v", err)
			code = 1
		}
	} else {
		res, err := app.RunOnce(ctx, models.Pipeline(*job))
		if err != nil {
			log.Printf("%s job failed: %v", *job, err)
			code = 1
		} else {
			log.Printf("%s job done: outcome=%s", *job, res.Outcome)
		}
	}

	stop()
	if err := app.Close(); err != nil {
		log.Printf("shutdown: %v", err)
	}
	os.Exit(code)
}
