package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"boincstats/lib/boinc"
	configlibsql "boincstats/lib/configutil/libsql"
	"boincstats/lib/diskcache"
	"boincstats/lib/serviceutil"
	"boincstats/lib/taskstore"
	"boincstats/lib/telemetry"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	scrapeSite     *string
	scrapeDb       *string
	scrapePreserve *bool
)

func init() {
	scrapeSite = scrapeCmd.Flags().String("site", "", "Only scrape the site with this name.")
	scrapeDb = scrapeCmd.Flags().String("db", "", "The database to write tasks to, overrides the config.")
	scrapePreserve = scrapeCmd.Flags().Bool("preserve-cache", false, "Keep stale cache files on disk.")
	rootCmd.AddCommand(scrapeCmd)
}

func setupTelemetry(ctx context.Context, cfg Config, probes ...telemetry.Probe) func() {
	t, err := telemetry.Setup(ctx, "boinc-cli", cfg.Telemetry)
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	if t.MeterProvider != nil {
		telemetry.InstrumentPerfStats(ctx, time.Second*15, probes...)
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		err := t.Shutdown(ctx)
		if err != nil {
			slog.Warn("failed to shutdown telemetry", "err", err)
		}
	}
}

// runSources runs every site pipeline on its own goroutine.
func runSources(ctx context.Context, sources []Source) []boinc.Harvest {
	harvests := make([]boinc.Harvest, len(sources))
	wg := sync.WaitGroup{}
	for i, src := range sources {
		wg.Add(1)
		go func() {
			defer wg.Done()
			t1 := time.Now()
			harvests[i] = src.Scrape(ctx)
			slog.Info(
				"scraped site",
				"site", src.Name(),
				"tasks", len(harvests[i].Tasks),
				"seconds", time.Since(t1).Seconds(),
			)
		}()
	}
	wg.Wait()
	return harvests
}

func mergeHarvests(harvests []boinc.Harvest) ([]boinc.Project, []boinc.Task) {
	var projects []boinc.Project
	var tasks []boinc.Task
	var badges []boinc.Badge
	for _, h := range harvests {
		projects = append(projects, h.Projects...)
		tasks = append(tasks, h.Tasks...)
		badges = append(badges, h.Badges...)
	}
	return boinc.Merge(projects, tasks, badges), tasks
}

func formatStates(states map[string]int, order []string) string {
	var parts []string
	for _, label := range order {
		if n := states[label]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", label, n))
		}
	}
	return strings.Join(parts, ", ")
}

func printProjects(projects []boinc.Project, states *boinc.StateSet) {
	sorted := make([]boinc.Project, len(projects))
	copy(sorted, projects)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Project", "Tasks", "Credit", "Run time", "CPU time", "States", "Badges"})
	for _, p := range sorted {
		stats := p.Statistics()
		credit := stats.Credit
		if p.Reported != nil && p.Reported.Credit > credit {
			credit = p.Reported.Credit
		}
		t.AppendRow(table.Row{
			p.Name,
			stats.Results,
			fmt.Sprintf("%.2f", credit),
			boinc.FormatDuration(stats.RunTime),
			boinc.FormatDuration(stats.CPUTime),
			formatStates(stats.States, states.Labels()),
			len(p.Badges),
		})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

// storeTasks upserts tasks into the configured database.
func storeTasks(ctx context.Context, dbConfig configlibsql.Struct, tasks []boinc.Task) error {
	database, err := dbConfig.OpenDB()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer database.Close()

	store := taskstore.NewStore(database)
	err = store.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("migrate db: %w", err)
	}
	err = store.Push(ctx, time.Now(), tasks)
	if err != nil {
		return fmt.Errorf("store tasks: %w", err)
	}
	return nil
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--site <name>] [--db <path/to/history.db>] [--preserve-cache]",
	Short: "Scrapes the configured sites, prints their projects and stores their tasks.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		ctx := cmd.Context()
		cfg := readConfig()

		cache, err := diskcache.New(diskcache.Options{
			Dir:      cfg.cacheDir(),
			Preserve: *scrapePreserve,
		})
		if err != nil {
			serviceutil.Fatal("failed to open cache", err)
		}
		defer setupTelemetry(ctx, cfg, telemetry.Probe{
			Name: "cache_entries",
			Read: func() int64 { return int64(cache.Len()) },
		})()
		indexed := cache.Refresh(ctx)
		slog.Debug("refreshed cache", "dir", cache.Dir(), "entries", indexed)

		states := boinc.DefaultStates()
		tel := telemetry.SlogAPI{}
		var sources []Source
		for _, site := range cfg.Sites {
			if *scrapeSite != "" && site.Name != *scrapeSite {
				continue
			}
			src, err := newSource(site, cache, states, tel)
			if err != nil {
				return fmt.Errorf("create site client: %w", err)
			}
			sources = append(sources, src)
		}
		if len(sources) == 0 {
			return fmt.Errorf("no site to scrape")
		}

		harvests := runSources(ctx, sources)
		projects, tasks := mergeHarvests(harvests)
		printProjects(projects, states)

		dbConfig := cfg.Database
		if *scrapeDb != "" {
			dbConfig.File = *scrapeDb
			dbConfig.Url = ""
		}
		if dbConfig.File == "" && dbConfig.Url == "" {
			return nil
		}
		err = storeTasks(ctx, dbConfig, tasks)
		if err != nil {
			return err
		}
		slog.Info("stored tasks", "count", len(tasks))
		return nil
	},
}
