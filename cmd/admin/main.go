// Command admin inspects and exports the recording store from the
// command line: counts, recent listings, bulk export and a config echo.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"database/sql"

	_ "github.com/go-sql-driver/mysql"
	"github.com/spellbank/backend/internal/config"
	"github.com/spellbank/backend/internal/services"
	"github.com/spellbank/backend/internal/store"
	"go.uber.org/zap"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	if cmd == "debug" {
		handleDebug(cfg)
		return
	}

	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	logger := zap.NewNop()
	recordStore := store.NewMySQLStore(db, store.NewLocalBlobs(cfg.AudioBase))
	query := services.NewQueryService(recordStore, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	switch cmd {
	case "counts":
		handleCounts(ctx, query, args)
	case "list":
		handleList(ctx, query, args)
	case "export":
		handleExport(ctx, query, args)
	default:
		printUsage()
		os.Exit(1)
	}
}

func handleCounts(ctx context.Context, query *services.QueryService, args []string) {
	fs := flag.NewFlagSet("counts", flag.ExitOnError)
	byUsername := fs.Bool("by-username", false, "group counts by username instead of label")
	_ = fs.Parse(args)

	groupBy := store.GroupByLabel
	if *byUsername {
		groupBy = store.GroupByUsername
	}

	counts, err := query.Counts(ctx, groupBy)
	if err != nil {
		log.Fatalf("counts failed: %v", err)
	}

	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	total := 0
	for _, key := range keys {
		fmt.Printf("%-30s %d\n", key, counts[key])
		total += counts[key]
	}
	fmt.Printf("%-30s %d\n", "total", total)
}

func handleList(ctx context.Context, query *services.QueryService, args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	limit := fs.Int("limit", 20, "maximum number of records to show")
	_ = fs.Parse(args)

	summaries, err := query.ListRecent(ctx, *limit)
	if err != nil {
		log.Fatalf("list failed: %v", err)
	}

	for _, summary := range summaries {
		meta := summary.Metadata
		fmt.Printf("%s  %-20s %-15s %6.2fs  %s\n",
			meta.CreatedAt.UTC().Format(time.RFC3339),
			meta.Label,
			meta.Username,
			meta.DurationSeconds,
			summary.ID,
		)
	}
	fmt.Printf("%d record(s)\n", len(summaries))
}

func handleExport(ctx context.Context, query *services.QueryService, args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	outDir := fs.String("outdir", "export", "destination directory for audio files")
	csvPath := fs.String("csv", "export/index.csv", "path of the tabular index file")
	_ = fs.Parse(args)

	result, err := query.ExportAll(ctx, *outDir, *csvPath)
	if err != nil {
		log.Fatalf("export failed: %v", err)
	}

	fmt.Printf("exported %d record(s), skipped %d\n", result.Exported, result.Skipped)
}

func handleDebug(cfg *config.Config) {
	fmt.Printf("db:          %s@%s:%d/%s\n", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)
	fmt.Printf("audio base:  %s\n", cfg.AudioBase)
	fmt.Printf("labels:      %v\n", cfg.Labels)
	fmt.Printf("server port: %d\n", cfg.Server.Port)
	fmt.Printf("log level:   %s\n", cfg.Logging.Level)
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `usage: admin <command> [flags]

commands:
  counts [--by-username]          record counts grouped by label or username
  list   [--limit N]              newest records first
  export [--outdir D] [--csv F]   write payloads and a CSV index to disk
  debug                           echo the effective configuration`)
}
