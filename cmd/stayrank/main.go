package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/david/stayrank/internal/api"
	"github.com/david/stayrank/internal/db"
	"github.com/david/stayrank/internal/ingest"
	"github.com/david/stayrank/internal/judge"
	"github.com/david/stayrank/internal/pipeline"
	"github.com/david/stayrank/internal/report"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	// Missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "stayrank",
		Usage: "Collect, score and rank vacation-rental listings",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "cache-dir",
				Value:   ".stayrank-cache",
				Usage:   "Directory for the stage result cache",
				EnvVars: []string{"STAYRANK_CACHE_DIR"},
			},
			&cli.StringFlag{
				Name:    "source-config",
				Value:   "source.yaml",
				Usage:   "Override path for the source config (embedded default otherwise)",
				EnvVars: []string{"STAYRANK_SOURCE_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			rankCommand(),
			collectCommand(),
			showCommand(),
			serveCommand(),
			cacheCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rankCommand() *cli.Command {
	return &cli.Command{
		Name:  "rank",
		Usage: "Run the full pipeline and print the ranked listings",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "ollama-url",
				Usage:   "Base URL of the Ollama server",
				EnvVars: []string{"OLLAMA_URL"},
			},
			&cli.StringFlag{
				Name:    "model",
				Usage:   "Judgment model name",
				EnvVars: []string{"STAYRANK_MODEL"},
			},
			&cli.IntFlag{
				Name:  "workers",
				Value: 4,
				Usage: "Concurrent judgment calls",
			},
			&cli.StringFlag{
				Name:  "json",
				Usage: "Also write the full result to this JSON file",
			},
			&cli.BoolFlag{
				Name:  "no-db",
				Usage: "Skip persisting listings and scores to Postgres",
			},
		},
		Action: func(c *cli.Context) error {
			ctx := c.Context

			driver, err := buildDriver(c)
			if err != nil {
				return err
			}

			result, err := driver.Run(ctx)
			if err != nil {
				return err
			}
			log.Printf("[stayrank] run complete: %d urls, %d extracted (%d dropped), %d judged (%d failed), %d scored",
				result.Stats.URLsFound, result.Stats.Extracted, result.Stats.ExtractFailures,
				result.Stats.Judged, result.Stats.JudgeFailures, result.Stats.Scored)

			if !c.Bool("no-db") {
				if err := persist(ctx, result); err != nil {
					return err
				}
			}

			if path := c.String("json"); path != "" {
				if err := writeJSON(path, result); err != nil {
					return err
				}
			}

			report.RenderRanking(os.Stdout, result)
			return nil
		},
	}
}

func collectCommand() *cli.Command {
	return &cli.Command{
		Name:  "collect",
		Usage: "Collect and extract listings without judging or scoring",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-db",
				Usage: "Skip persisting listings to Postgres",
			},
		},
		Action: func(c *cli.Context) error {
			ctx := c.Context

			cfg, cache, err := loadSourceAndCache(c)
			if err != nil {
				return err
			}

			fetcher := ingest.NewCollyFetcher(cfg.Fetch)
			collector := ingest.NewCollector(cfg, fetcher)
			extractor := ingest.NewExtractor(cfg, fetcher)

			urls, err := pipeline.Run(ctx, cache, pipeline.StageCollect, cfg,
				func(ctx context.Context, _ *ingest.SourceConfig) ([]string, error) {
					return collector.Collect(ctx)
				})
			if err != nil {
				return err
			}

			var store *db.Store
			if !c.Bool("no-db") {
				pool, err := db.Connect(ctx)
				if err != nil {
					return fmt.Errorf("failed to connect to database: %w", err)
				}
				defer pool.Close()
				if err := db.ApplyMigrations(ctx, pool); err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				store = db.NewStore(pool)
			}

			extracted := 0
			for _, u := range urls {
				l, err := pipeline.Run(ctx, cache, pipeline.StageExtract, u, extractor.Extract)
				if err != nil {
					log.Printf("[collect] dropping %s: %v", u, err)
					continue
				}
				extracted++

				if store == nil {
					continue
				}
				if err := store.UpsertListing(ctx, l); err != nil {
					log.Printf("[collect] failed to save %s: %v", l.Ref, err)
				}
			}

			log.Printf("[collect] %d/%d listings extracted", extracted, len(urls))
			return nil
		},
	}
}

func showCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Print one listing's full scorecard with reasons",
		ArgsUsage: "<ref>",
		Action: func(c *cli.Context) error {
			ref := c.Args().First()
			if ref == "" {
				return fmt.Errorf("usage: stayrank show <ref>")
			}
			ctx := c.Context

			pool, err := db.Connect(ctx)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer pool.Close()

			rl, err := db.NewStore(pool).GetByRef(ctx, ref)
			if err != nil {
				return err
			}
			report.RenderDetail(os.Stdout, &rl.Listing, &rl.Enrichment)
			return nil
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the ranked browse and voting API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "port",
				Value:   "8080",
				EnvVars: []string{"PORT"},
			},
		},
		Action: func(c *cli.Context) error {
			ctx := c.Context

			pool, err := db.Connect(ctx)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer pool.Close()

			if err := db.ApplyMigrations(ctx, pool); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			srv := api.NewServer(pool)
			log.Printf("[stayrank] serving on port %s", c.String("port"))
			return srv.Start(c.String("port"))
		},
	}
}

func cacheCommand() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect or clear the stage result cache",
		Subcommands: []*cli.Command{
			{
				Name:  "stats",
				Usage: "Show entry count and size",
				Action: func(c *cli.Context) error {
					cache, err := pipeline.NewCache(c.String("cache-dir"))
					if err != nil {
						return err
					}
					entries, bytes, err := cache.Stats()
					if err != nil {
						return err
					}
					fmt.Printf("%s: %d entries, %.1f KiB\n", cache.Dir(), entries, float64(bytes)/1024)
					return nil
				},
			},
			{
				Name:  "clear",
				Usage: "Remove every cached stage result",
				Action: func(c *cli.Context) error {
					cache, err := pipeline.NewCache(c.String("cache-dir"))
					if err != nil {
						return err
					}
					removed, err := cache.Clear()
					if err != nil {
						return err
					}
					fmt.Printf("removed %d entries from %s\n", removed, cache.Dir())
					return nil
				},
			},
		},
	}
}

func buildDriver(c *cli.Context) (*pipeline.Driver, error) {
	cfg, cache, err := loadSourceAndCache(c)
	if err != nil {
		return nil, err
	}

	fetcher := ingest.NewCollyFetcher(cfg.Fetch)
	return &pipeline.Driver{
		Cache:     cache,
		Source:    cfg,
		Collector: ingest.NewCollector(cfg, fetcher),
		Extractor: ingest.NewExtractor(cfg, fetcher),
		Judge:     judge.NewClient(c.String("ollama-url"), c.String("model")),
		Workers:   c.Int("workers"),
	}, nil
}

func loadSourceAndCache(c *cli.Context) (*ingest.SourceConfig, *pipeline.Cache, error) {
	cfg, err := ingest.LoadSource(c.String("source-config"))
	if err != nil {
		return nil, nil, err
	}
	cache, err := pipeline.NewCache(c.String("cache-dir"))
	if err != nil {
		return nil, nil, err
	}
	return cfg, cache, nil
}

func persist(ctx context.Context, result *pipeline.Result) error {
	pool, err := db.Connect(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	store := db.NewStore(pool)
	saved := 0
	for _, l := range result.Listings {
		if err := store.UpsertListing(ctx, l); err != nil {
			log.Printf("[stayrank] failed to save listing %s: %v", l.Ref, err)
		}
	}
	for _, e := range result.Enrichments {
		if err := store.UpsertEnrichment(ctx, e); err != nil {
			log.Printf("[stayrank] failed to save scores for %s: %v", e.Ref, err)
			continue
		}
		saved++
	}
	log.Printf("[stayrank] persisted %d/%d enrichments", saved, len(result.Enrichments))
	return nil
}

func writeJSON(path string, result *pipeline.Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
