// Command pitchside-cli runs single extractions without the service.
//
// Usage:
//
//	pitchside-cli events --url https://www.whoscored.com/Matches/1729462/Live --out events.csv
//	pitchside-cli summary --match 12580787
//	pitchside-cli registry refresh --team 2697
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/fortuna/pitchside/internal/analysis"
	"github.com/fortuna/pitchside/internal/browser"
	"github.com/fortuna/pitchside/internal/config"
	"github.com/fortuna/pitchside/internal/ingest/sofascore"
	"github.com/fortuna/pitchside/internal/ingest/whoscored"
	"github.com/fortuna/pitchside/internal/scheduler"
	"github.com/fortuna/pitchside/internal/store"
	"github.com/fortuna/pitchside/internal/store/repository"
)

var logger = log.New(os.Stderr, "[pitchside] ", log.LstdFlags)

func main() {
	config.LoadDotEnv()

	root := &cobra.Command{
		Use:          "pitchside-cli",
		Short:        "Football match centre extraction CLI",
		SilenceUsage: true,
	}

	root.AddCommand(eventsCmd())
	root.AddCommand(summaryCmd())
	root.AddCommand(registryCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// events command
// --------------------------------------------------------------------------

func eventsCmd() *cobra.Command {
	var url, out, rawOut string
	var printSummary bool
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Extract the normalized event table of a match centre page",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBrowser(func(ctx context.Context, cfg config.Config, b *browser.Browser) error {
				pages := whoscored.NewClient(b, log.New(os.Stderr, "[whoscored] ", log.LstdFlags))
				analyzer := analysis.NewAnalyzer(pages, nil, 0, log.New(os.Stderr, "[analysis] ", log.LstdFlags))

				start := time.Now()
				res, err := analyzer.Analyze(ctx, url)
				if err != nil {
					return fmt.Errorf("%s: %w", analysis.Kind(err), err)
				}
				logger.Printf("✓ %d events for match %s in %v", res.Table.Len(), res.Record.MatchID, time.Since(start).Round(time.Millisecond))

				if err := writeTo(out, cmd.OutOrStdout(), func(w io.Writer) error {
					return res.Table.WriteCSV(w)
				}); err != nil {
					return err
				}
				if rawOut != "" {
					raw, err := res.RawJSON()
					if err != nil {
						return err
					}
					if err := os.WriteFile(rawOut, raw, 0o644); err != nil {
						return fmt.Errorf("write raw json: %w", err)
					}
				}
				if printSummary {
					return printJSON(cmd.ErrOrStderr(), res.Summary)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "Match centre URL")
	cmd.Flags().StringVar(&out, "out", "", "CSV output file (default stdout)")
	cmd.Flags().StringVar(&rawOut, "raw", "", "Also write the match object as JSON to this file")
	cmd.Flags().BoolVar(&printSummary, "summary", false, "Print zone and entry summary to stderr")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

// --------------------------------------------------------------------------
// summary command
// --------------------------------------------------------------------------

func summaryCmd() *cobra.Command {
	var matchID int64
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Fetch momentum, score, statistics and lineups of a SofaScore match",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBrowser(func(ctx context.Context, cfg config.Config, b *browser.Browser) error {
				client := sofascore.New(cfg.SofaScoreBaseURL, b, log.New(os.Stderr, "[sofascore] ", log.LstdFlags))
				summary, err := client.FetchSummary(ctx, matchID)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), summary)
			})
		},
	}
	cmd.Flags().Int64Var(&matchID, "match", 0, "SofaScore match id")
	_ = cmd.MarkFlagRequired("match")
	return cmd
}

// --------------------------------------------------------------------------
// registry command
// --------------------------------------------------------------------------

func registryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Maintain the tracked match registry",
	}
	cmd.AddCommand(registryRefreshCmd())
	return cmd
}

func registryRefreshCmd() *cobra.Command {
	var teamID int64
	var path string
	var withDB bool
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Add today's fixtures of the tracked team to the registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBrowser(func(ctx context.Context, cfg config.Config, b *browser.Browser) error {
				sched := scheduler.DefaultConfig()
				sched.TrackedTeamID = cfg.TrackedTeamID
				sched.RegistryPath = cfg.RegistryPath
				sched.Retention = cfg.RegistryRetention
				if cmd.Flags().Changed("team") {
					sched.TrackedTeamID = teamID
				}
				if path != "" {
					sched.RegistryPath = path
				}

				var matches scheduler.MatchStore
				if withDB {
					db, err := store.NewDatabase(cfg.DatabaseURL)
					if err != nil {
						return fmt.Errorf("connect to database: %w", err)
					}
					defer db.Close()
					if err := db.RunMigrations(ctx); err != nil {
						return err
					}
					matches = repository.NewMatchRepository(db)
				}

				client := sofascore.New(cfg.SofaScoreBaseURL, b, log.New(os.Stderr, "[sofascore] ", log.LstdFlags))
				res, err := scheduler.NewOrchestrator(client, matches, nil, sched).RefreshWithRetry(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	cmd.Flags().Int64Var(&teamID, "team", 0, "SofaScore team id (default TRACKED_TEAM_ID)")
	cmd.Flags().StringVar(&path, "path", "", "Registry CSV (default REGISTRY_PATH)")
	cmd.Flags().BoolVar(&withDB, "db", false, "Mirror the registry into Postgres")
	return cmd
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// withBrowser loads config, starts a browser and cancels on interrupt.
func withBrowser(fn func(ctx context.Context, cfg config.Config, b *browser.Browser) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg := config.Load()
	b := browser.New(cfg.Browser, log.New(os.Stderr, "[browser] ", log.LstdFlags))
	defer b.Close()

	return fn(ctx, cfg, b)
}

func writeTo(path string, stdout io.Writer, write func(io.Writer) error) error {
	if path == "" {
		return write(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	logger.Printf("✓ Wrote %s", path)
	return nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
