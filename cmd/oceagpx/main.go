package main

import (
	"bufio"
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shaunagostinho/oceagpx/internal/gps"
	"github.com/shaunagostinho/oceagpx/internal/server"
	"github.com/shaunagostinho/oceagpx/web"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	dbPath := flag.String("db", "", "Plotter log database (SQLite)")
	demo := flag.Bool("demo", false, "Use simulated voyages instead of a database")
	list := flag.Bool("list", false, "List recorded voyages")
	records := flag.String("records", "", "Record IDs to export, e.g. 1,2,3")
	merged := flag.Bool("merged", false, "Export all records into one file")
	out := flag.String("out", "", "Output file (merged) or directory (single)")
	maxPoints := flag.Int("max-points", -1, "Point budget per export, 0 = unlimited (default from config)")
	yes := flag.Bool("yes", false, "Never ask for the output path")
	serve := flag.Bool("serve", false, "Start the map preview server")
	listenAddr := flag.String("listen", "", "Override listen address (e.g. :8080)")
	inspect := flag.String("inspect", "", "Summarize a GPX file and exit")
	flag.Parse()

	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("[main] oceagpx starting")

	if *inspect != "" {
		if err := runInspect(os.Stdout, *inspect); err != nil {
			log.Fatalf("[main] inspect: %v", err)
		}
		return
	}

	cfg := server.LoadConfig(*configPath)

	if *dbPath != "" {
		cfg.Source.Type = "sqlite"
		cfg.Source.DBPath = *dbPath
	}
	if *demo {
		cfg.Source.Type = "demo"
	}
	if *maxPoints >= 0 {
		cfg.Export.MaxPoints = *maxPoints
	}
	if *listenAddr != "" {
		cfg.Server.ListenAddr = *listenAddr
	}

	// Create context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("[main] received %v, shutting down", sig)
		cancel()
	}()

	source, err := openSource(cfg)
	if err != nil {
		log.Fatalf("[main] %v", err)
	}
	defer source.Close()

	if *serve {
		// The API reports errors until the source connects
		go waitForSource(ctx, source, time.Minute)

		srv := server.New(cfg, source, web.FS)
		if err := srv.Run(ctx); err != nil {
			log.Printf("[main] server exited: %v", err)
		}
		return
	}

	if err := source.Connect(); err != nil {
		log.Fatalf("[main] %v", err)
	}
	rememberSource(cfg)

	switch {
	case *list:
		if err := runList(ctx, os.Stdout, source); err != nil {
			log.Fatalf("[main] list: %v", err)
		}

	case *records != "":
		ids, err := parseRecordIDs(*records)
		if err != nil {
			log.Fatalf("[main] %v", err)
		}
		req := exportRequest{
			ids:    ids,
			merged: *merged,
			out:    *out,
			yes:    *yes,
			input:  bufio.NewReader(os.Stdin),
		}
		if failed := runExport(ctx, os.Stdout, cfg, source, req); failed > 0 {
			os.Exit(1)
		}

	default:
		flag.Usage()
		os.Exit(2)
	}
}

// openSource builds the configured navigation-log source.
func openSource(cfg *server.Config) (gps.Provider, error) {
	switch cfg.Source.Type {
	case "demo":
		return gps.NewDemoProvider(), nil
	default:
		path := cfg.DBPath()
		if path == "" {
			return nil, errNoDatabase
		}
		return gps.NewSQLite(gps.SQLiteConfig{
			Path:     path,
			Location: cfg.Location(),
		}), nil
	}
}

// rememberSource persists the database path for the next run. Nothing else
// from cfg reaches the file.
func rememberSource(cfg *server.Config) {
	if cfg.Source.Type == "demo" {
		return
	}
	if err := cfg.PersistLastDBPath(cfg.DBPath()); err != nil {
		log.Printf("[config] save failed: %v", err)
	}
}

// waitForSource connects the source in serve mode, where the database may
// sit on a card or share that is not mounted yet. The delay doubles up to
// maxDelay; an error is logged only when it differs from the previous one.
func waitForSource(ctx context.Context, source gps.Provider, maxDelay time.Duration) bool {
	delay := time.Second
	var lastErr string

	for attempt := 1; ; attempt++ {
		err := source.Connect()
		if err == nil {
			log.Printf("[source] %s connected (attempt %d)", source.Name(), attempt)
			return true
		}
		if msg := err.Error(); msg != lastErr {
			log.Printf("[source] %v (retrying)", err)
			lastErr = msg
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
		delay = min(delay*2, maxDelay)
	}
}
