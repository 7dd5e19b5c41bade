package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/dejo1307/assocgen/internal/config"
	"github.com/dejo1307/assocgen/internal/engine"
	"github.com/dejo1307/assocgen/internal/renderers/report"
	"github.com/dejo1307/assocgen/internal/server"
)

func main() {
	// Ensure log output goes to stderr, never stdout (MCP uses stdout for JSON-RPC)
	log.SetOutput(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Check for --generate flag
	generateMode := false
	cfgPath := "assocgen.yaml"
	for _, arg := range os.Args[1:] {
		if arg == "--generate" {
			generateMode = true
		} else {
			cfgPath = arg
		}
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		// If config file doesn't exist, use defaults
		fmt.Fprintf(os.Stderr, "warning: %v, using defaults\n", err)
		cfg = config.Default()
	}

	eng, err := engine.New(cfg)
	if err != nil {
		log.Fatalf("failed to create engine: %v", err)
	}
	eng.RegisterRenderer(report.New(cfg.MaxReportLines))

	repoPath, err := filepath.Abs(cfg.Repo)
	if err != nil {
		log.Fatalf("failed to resolve repo path: %v", err)
	}

	// One-shot expansion mode
	if generateMode {
		run, err := eng.Expand(ctx, repoPath)
		if err != nil {
			log.Fatalf("expansion failed: %v", err)
		}

		if err := eng.WriteArtifacts(repoPath); err != nil {
			log.Fatalf("failed to write artifacts: %v", err)
		}

		fmt.Fprintf(os.Stderr, "\nExpansion complete:\n")
		fmt.Fprintf(os.Stderr, "  Repository:   %s\n", run.Meta.RepoPath)
		fmt.Fprintf(os.Stderr, "  Swift files:  %d (%d changed)\n", run.Meta.FileCount, run.Meta.ChangedCount)
		fmt.Fprintf(os.Stderr, "  Properties:   %d\n", run.Meta.ExpansionCount)
		fmt.Fprintf(os.Stderr, "  Diagnostics:  %d\n", run.Meta.DiagnosticCount)
		fmt.Fprintf(os.Stderr, "  Duration:     %s\n", run.Meta.Duration)
		fmt.Fprintf(os.Stderr, "  Output:       %s\n", filepath.Join(repoPath, cfg.Output.Dir))
		for _, d := range run.Diagnostics {
			fmt.Fprintln(os.Stderr, d)
		}
		if run.Meta.DiagnosticCount > 0 {
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Auto-load the previous run if available, so queries work immediately
	// without requiring an expand_repo call first.
	recordsPath := filepath.Join(repoPath, cfg.Output.Dir, engine.RecordsFile)
	if _, err := os.Stat(recordsPath); err == nil {
		log.Printf("[main] loading previous run from %s", recordsPath)
		if err := eng.LoadRun(repoPath); err != nil {
			log.Printf("[main] warning: failed to load previous run: %v", err)
		}
	}

	// MCP server mode (default)
	srv, err := server.New(eng, cfg)
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}

	if err := srv.Run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
