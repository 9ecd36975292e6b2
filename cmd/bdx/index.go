package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/priyagupta108/bdx/internal/elfread"
	"github.com/priyagupta108/bdx/internal/indexer"
	"github.com/priyagupta108/bdx/internal/store"
	"github.com/priyagupta108/bdx/pkg/config"
	bdxerrors "github.com/priyagupta108/bdx/pkg/errors"
)

func runIndex(args []string) error {
	fs := flag.NewFlagSet("index", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	useCompdb := fs.Bool("c", false, "discover object files via compile_commands.json")
	metricsAddr := fs.String("metrics-addr", "", "serve Prometheus metrics on this address for the duration of the run")
	configPath := fs.String("config", "", "path to an optional YAML config file")
	var o opts
	fs.Var(&o, "o", "indexer option as key=value (repeatable): num_processes, index_relocations, min_symbol_size, use_dwarfdump")
	fs.Var(&o, "opt", "long form of -o")
	if err := fs.Parse(args); err != nil {
		return bdxerrors.Newf(bdxerrors.ErrUsage, "%v", err)
	}
	if err := common.resolve(*useCompdb); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if err := applyOpts(&cfg.Indexer, o); err != nil {
		return err
	}
	if *metricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.ListenAddr = *metricsAddr
	}

	logger := setupLogger()
	m := setupMetrics(cfg.Metrics)

	st, err := store.OpenWithMetrics(common.indexPath, m)
	if err != nil {
		return err
	}

	var compdbPath string
	if *useCompdb {
		if path, ok := elfread.FindCompilationDatabase(common.directory); ok {
			compdbPath = path
		} else {
			return bdxerrors.Newf(bdxerrors.ErrUsage, "no compile_commands.json found above %s", common.directory)
		}
	}
	discovered, err := elfread.Discover(common.directory, compdbPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	idx := indexer.New(st, cfg.Indexer, m, logger)
	summary, err := indexer.Run(ctx, idx, discovered)
	if err != nil {
		return err
	}

	if summary.NoOp {
		fmt.Println("Nothing to do, index is up to date.")
		return nil
	}
	fmt.Printf("Files indexed: %d (out of %d changed files)\n", summary.Added+summary.Changed, summary.Added+summary.Changed+len(summary.Failed))
	fmt.Printf("Files removed from index: %d\n", summary.Removed)
	for _, f := range summary.Failed {
		fmt.Fprintf(os.Stderr, "warning: failed to parse %s: %v\n", f.Path, f.Err)
	}
	return nil
}
