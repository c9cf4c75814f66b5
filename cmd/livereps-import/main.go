package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	_ "time/tzdata"

	"github.com/claude/livereps/internal/config"
	"github.com/claude/livereps/internal/ingest"
	"github.com/claude/livereps/internal/ingest/alpha"
	"github.com/claude/livereps/internal/localstore"
	"github.com/claude/livereps/internal/storage"
	"github.com/claude/livereps/internal/upload"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	csvPath := flag.String("path", "", "path to an Alpha Progression CSV export (required)")
	login := flag.String("user", "local", "login of the user the sessions belong to")
	dryRun := flag.Bool("dry-run", false, "parse and report counts without writing to the database")
	serverURL := flag.String("server", "", "send exports to a remote LiveReps server instead of the database")
	apiKey := flag.String("api-key", os.Getenv("LIVEREPS_AUTH_API_KEY"), "API key for -server")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *csvPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: livereps-import -config config.yaml -path export.csv [-user login] [-dry-run]\n")
		fmt.Fprintf(os.Stderr, "       livereps-import -server <URL> [-api-key key] -path export.csv [more.csv ...]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if *serverURL != "" && !*dryRun {
		os.Exit(uploadRemote(*serverURL, *apiKey, append([]string{*csvPath}, flag.Args()...), log))
	}

	f, err := os.Open(*csvPath)
	if err != nil {
		log.Error("failed to open export", "path", *csvPath, "error", err)
		os.Exit(1)
	}
	defer f.Close()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	loc, err := cfg.Session.Location()
	if err != nil {
		log.Error("invalid session timezone", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	if *dryRun {
		log.Info("DRY RUN mode: no data will be written to the database")
		workouts, err := alpha.ParseIn(f, loc)
		if err != nil {
			log.Error("parse failed", "error", err)
			os.Exit(1)
		}
		res := &ingest.Result{SessionsReceived: len(workouts)}
		for _, w := range workouts {
			res.SetsReceived += w.WorkingSets()
			for _, e := range w.Exercises {
				res.WarmupsIgnored += len(e.Warmups)
			}
		}
		printResult(res)
		return
	}

	type importStore interface {
		alpha.Importer
		GetOrCreateUser(ctx context.Context, login, displayName string) (int, error)
	}
	var store importStore
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		ls, err := localstore.Open(ctx, cfg.Database.Path)
		if err != nil {
			log.Error("failed to open sqlite store", "error", err)
			os.Exit(1)
		}
		defer ls.Close()
		store = ls
	default:
		dsn := cfg.Database.DSN()
		if err := storage.RunMigrations(dsn, cfg.Database.Migrations); err != nil {
			log.Error("migration failed", "error", err)
			os.Exit(1)
		}
		log.Info("migrations applied")
		db, err := storage.New(ctx, dsn, false)
		if err != nil {
			log.Error("failed to connect database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		store = db
	}
	log.Info("database connected", "driver", cfg.Database.Driver)

	userID, err := store.GetOrCreateUser(ctx, *login, *login)
	if err != nil {
		log.Error("failed to resolve user", "login", *login, "error", err)
		os.Exit(1)
	}

	res, err := alpha.NewProvider(store, loc, log).Ingest(ctx, f, userID)
	if err != nil {
		log.Error("import failed", "error", err)
		os.Exit(1)
	}

	printResult(res)
	log.Info("import complete", "user_id", userID)
}

// uploadRemote sends exports to a LiveReps server and returns the exit code.
// The server attributes the sessions to the caller it identifies.
func uploadRemote(serverURL, apiKey string, paths []string, log *slog.Logger) int {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Error("failed to get home directory", "error", err)
		return 1
	}
	state, err := upload.OpenStateDB(filepath.Join(homeDir, ".livereps-import"))
	if err != nil {
		log.Error("failed to open state database", "error", err)
		return 1
	}
	defer state.Close()

	u := upload.New(upload.NewClient(serverURL, apiKey), state, serverURL, log)
	stats, err := u.Run(context.Background(), paths)
	fmt.Println()
	fmt.Println("=== Upload Summary ===")
	fmt.Printf("  Files total:       %d\n", stats.FilesTotal)
	fmt.Printf("  Files uploaded:    %d\n", stats.FilesUploaded)
	fmt.Printf("  Files skipped:     %d (already uploaded)\n", stats.FilesSkipped)
	fmt.Printf("  Files errored:     %d\n", stats.FilesErrored)
	printResult(&stats.Result)
	if err != nil {
		log.Error("upload failed", "error", err)
		return 1
	}
	return 0
}

func printResult(res *ingest.Result) {
	fmt.Println()
	fmt.Println("=== Import Summary ===")
	fmt.Printf("  Sessions received: %d\n", res.SessionsReceived)
	fmt.Printf("  Sessions inserted: %d\n", res.SessionsInserted)
	fmt.Printf("  Sessions skipped:  %d (already imported)\n", res.SessionsSkipped)
	fmt.Printf("  Sets received:     %d\n", res.SetsReceived)
	fmt.Printf("  Sets inserted:     %d\n", res.SetsInserted)
	fmt.Printf("  Warmups ignored:   %d\n", res.WarmupsIgnored)
	fmt.Println()
}
