// sweep evaluates SLA breaches and overdue loans once and prints the
// report as JSON. Schedule it from cron when the API server runs with
// SWEEP_SCHEDULE empty.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"ministry-assetloan/internal/adapters/cache"
	"ministry-assetloan/internal/adapters/messaging"
	"ministry-assetloan/internal/adapters/persistence/repositories"
	"ministry-assetloan/internal/config"
	"ministry-assetloan/internal/core/services"

	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var breaches, overdue, publish bool
	var timeout time.Duration

	flagSet := pflag.NewFlagSet("sweep", pflag.ContinueOnError)
	flagSet.BoolVar(&breaches, "breaches", true, "report tickets past their SLA deadline")
	flagSet.BoolVar(&overdue, "overdue", true, "report loans past their end date")
	flagSet.BoolVar(&publish, "publish", false, "publish non-empty reports to the event broker")
	flagSet.DurationVar(&timeout, "timeout", 2*time.Minute, "abort the sweep after this long")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer config.CloseDatabase()

	slaTable, err := config.LoadSLATable(cfg.Workflow.SLAConfigPath)
	if err != nil {
		return fmt.Errorf("load SLA table: %w", err)
	}

	var publisher messaging.Publisher = messaging.LogPublisher{}
	if publish && cfg.Messaging.URL != "" {
		rabbit, err := messaging.NewRabbitPublisher(cfg.Messaging.URL, cfg.Messaging.Exchange)
		if err != nil {
			return fmt.Errorf("connect broker: %w", err)
		}
		defer rabbit.Close()
		publisher = rabbit
	}

	svc := services.NewServices(services.Deps{
		Repos:     repositories.NewRepositories(db),
		Config:    cfg,
		SLA:       slaTable,
		Publisher: publisher,
		Cache:     cache.NewMemoryStore(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	report, err := svc.Sweep.Sweep(ctx, services.SweepOptions{
		Breaches: breaches,
		Overdue:  overdue,
		Publish:  publish,
	})
	if err != nil {
		return err
	}
	log.Println("✅ Sweep completed")

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
