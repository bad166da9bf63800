package main

import (
	"context"
	"flag"
	"log"
	"os"

	"FlatPull/internal/di"
	"FlatPull/pkg/config"
	"FlatPull/pkg/util"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config/config.yaml", "config file path")
	start := flag.String("start", "", "first day to retrieve, YYYY-MM-DD (inclusive)")
	end := flag.String("end", "", "day after the last day to retrieve, YYYY-MM-DD (exclusive)")
	assets := flag.String("assets", "", "comma separated asset types to enable: stocks,options,crypto,forex")
	normalize := flag.Bool("normalize", true, "derive per-ticker parquet files")
	flag.Parse()

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	// Load config; flags win over YAML and environment
	cfg, err := config.LoadWithEnv(*configPath, func(c *config.Config) error {
		if *start != "" {
			c.Retrieval.Start = *start
		}
		if *end != "" {
			c.Retrieval.End = *end
		}
		if set["normalize"] {
			c.Retrieval.Normalize = *normalize
		}
		if *assets != "" {
			return c.EnableOnly(util.SplitList(*assets, false))
		}
		return nil
	})
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	// Wire DI: Initialize all dependencies
	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// Run application (blocks until every series is done or a signal arrives)
	if err := app.Run(context.Background()); err != nil {
		log.Printf("run finished with errors: %v", err)
		os.Exit(1)
	}
}
