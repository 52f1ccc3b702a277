package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/docship/internal/config"
	apperrors "git.home.luguber.info/inful/docship/internal/errors"
	"git.home.luguber.info/inful/docship/internal/gitinfo"
	"git.home.luguber.info/inful/docship/internal/history"
	"git.home.luguber.info/inful/docship/internal/metrics"
	"git.home.luguber.info/inful/docship/internal/pipeline"
)

var CLI struct {
	Config  string `short:"c" help:"Pipeline document path" default:".docship.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Run struct {
		Leg         string `help:"Run a single matrix variant"`
		Parallel    bool   `help:"Run matrix legs concurrently (each leg stays sequential)"`
		Branch      string `help:"Override the resolved current branch"`
		MetricsAddr string `help:"Serve Prometheus metrics on this address for the run's duration"`
		HistoryDB   string `default:".docship/history.db" help:"SQLite history database path (empty disables history)"`
	} `cmd:"" help:"Execute the pipeline"`

	Validate struct{} `cmd:"" help:"Parse and validate the pipeline document"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new pipeline document"`

	History struct {
		HistoryDB string `default:".docship/history.db" help:"SQLite history database path"`
		Limit     int    `default:"20" help:"Number of legs to list"`
	} `cmd:"" help:"List recent pipeline legs"`
}

func main() {
	ctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	switch ctx.Command() {
	case "run":
		if err := runPipeline(); err != nil {
			slog.Error("Pipeline failed", "category", string(apperrors.GetCategory(err)), "error", err)
			os.Exit(1)
		}
	case "validate":
		if err := runValidate(); err != nil {
			slog.Error("Validation failed", "error", err)
			os.Exit(1)
		}
	case "init":
		if err := config.Init(CLI.Config, CLI.Init.Force); err != nil {
			slog.Error("Init failed", "error", err)
			os.Exit(1)
		}
		slog.Info("Wrote pipeline document", "path", CLI.Config)
	case "history":
		if err := runHistory(); err != nil {
			slog.Error("History failed", "error", err)
			os.Exit(1)
		}
	}
}

func runPipeline() error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return err
	}

	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolve working directory: %w", err)
	}

	branch := CLI.Run.Branch
	if branch == "" {
		branch = gitinfo.CurrentBranch(workDir)
	}
	if origin, err := gitinfo.OriginURL(workDir); err == nil {
		slog.Debug("Resolved repository identity", "origin", origin, "slug", gitinfo.Slug(origin))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	deps := pipeline.Deps{}

	if CLI.Run.HistoryDB != "" {
		if err := os.MkdirAll(filepath.Dir(CLI.Run.HistoryDB), 0o750); err != nil {
			return fmt.Errorf("create history directory: %w", err)
		}
		store, err := history.NewSQLiteStore(CLI.Run.HistoryDB)
		if err != nil {
			return fmt.Errorf("open history store: %w", err)
		}
		defer store.Close()
		deps.Store = store
	}

	if CLI.Run.MetricsAddr != "" {
		recorder := metrics.NewPrometheusRecorder()
		deps.Recorder = recorder
		server := &http.Server{Addr: CLI.Run.MetricsAddr, Handler: recorder.Handler()}
		go func() {
			slog.Info("Serving metrics", "addr", CLI.Run.MetricsAddr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Warn("Metrics listener stopped", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer shutdownCancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	slog.Info("Starting pipeline",
		"toolchain", cfg.Toolchain,
		"variants", len(cfg.Variants()),
		"branch", branch,
		"deploy_configured", cfg.Deploy != nil)

	results, err := pipeline.Run(ctx, cfg, pipeline.Options{
		Branch:      branch,
		WorkDir:     workDir,
		OnlyVariant: CLI.Run.Leg,
		Parallel:    CLI.Run.Parallel,
		Deps:        deps,
	})
	for _, res := range results {
		slog.Info("Leg result",
			"variant", res.Variant,
			"phase", string(res.Phase),
			"duration", res.Duration.Round(time.Millisecond).String())
	}
	return err
}

func runValidate() error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return err
	}

	fmt.Printf("Pipeline document %s is valid\n", CLI.Config)
	fmt.Printf("  toolchain:       %s\n", cfg.Toolchain)
	fmt.Printf("  matrix variants: %v\n", cfg.Variants())
	fmt.Printf("  build commands:  %d\n", len(cfg.Script))
	fmt.Printf("  pre-deploy:      %d\n", len(cfg.BeforeDeploy))
	if cfg.Deploy != nil {
		fmt.Printf("  deploy:          %s to branch %q when on %q (keep_history=%v)\n",
			cfg.Deploy.Provider, cfg.Deploy.PagesBranch, cfg.Deploy.OnBranch, cfg.Deploy.KeepHistory)
	} else {
		fmt.Println("  deploy:          not configured (never deploys)")
	}
	return nil
}

func runHistory() error {
	if _, err := os.Stat(CLI.History.HistoryDB); err != nil {
		return fmt.Errorf("no history database at %s", CLI.History.HistoryDB)
	}
	store, err := history.NewSQLiteStore(CLI.History.HistoryDB)
	if err != nil {
		return err
	}
	defer store.Close()

	legs, err := store.RecentLegs(context.Background(), CLI.History.Limit)
	if err != nil {
		return err
	}
	if len(legs) == 0 {
		fmt.Println("No pipeline legs recorded")
		return nil
	}

	fmt.Printf("%-36s  %-10s  %-16s  %-18s  %s\n", "LEG", "VARIANT", "BRANCH", "PHASE", "STARTED")
	for _, leg := range legs {
		fmt.Printf("%-36s  %-10s  %-16s  %-18s  %s\n",
			leg.ID, leg.Variant, leg.Branch, leg.Phase,
			leg.StartedAt.Format(time.RFC3339))
	}
	return nil
}
