package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/priyagupta108/bdx/internal/elfread"
	"github.com/priyagupta108/bdx/internal/search"
	"github.com/priyagupta108/bdx/internal/store"
	"github.com/priyagupta108/bdx/pkg/config"
	bdxerrors "github.com/priyagupta108/bdx/pkg/errors"
	"github.com/priyagupta108/bdx/pkg/logger"
	"github.com/priyagupta108/bdx/pkg/metrics"
)

// commonFlags holds the -d/--directory and --index-path flags shared by
// every subcommand; resolve fills in their defaults (§E.1).
type commonFlags struct {
	directory string
	indexPath string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.directory, "directory", "", "path to the binary directory")
	fs.StringVar(&c.directory, "d", "", "path to the binary directory (shorthand)")
	fs.StringVar(&c.indexPath, "index-path", "", "path to the store (default: derived cache path)")
}

// resolve fills in directory/indexPath defaults per §E.1: when directory is
// unset, useCompdb controls whether to search upward for
// compile_commands.json (used by `bdx index -c`) before falling back to the
// working directory; a guessed directory prints a one-line note to stderr.
func (c *commonFlags) resolve(useCompdb bool) error {
	if c.directory == "" {
		dir, guessed := guessDirectory(useCompdb)
		c.directory = dir
		if guessed {
			fmt.Fprintf(os.Stderr, "note: using %s as binary directory\n", c.directory)
		}
	}
	abs, err := filepath.Abs(c.directory)
	if err != nil {
		return bdxerrors.Newf(bdxerrors.ErrUsage, "resolving directory %s: %v", c.directory, err)
	}
	c.directory = abs

	if c.indexPath == "" {
		if env := os.Getenv("BDX_INDEX_DIR"); env != "" {
			c.indexPath = env
		} else {
			c.indexPath = defaultIndexPath(c.directory)
		}
	}
	return nil
}

func guessDirectory(useCompdb bool) (dir string, guessed bool) {
	cwd, err := os.Getwd()
	if err != nil {
		return ".", true
	}
	if useCompdb {
		if compdb, ok := elfread.FindCompilationDatabase(cwd); ok {
			return filepath.Dir(compdb), true
		}
	}
	return cwd, true
}

// defaultIndexPath mirrors the original tool's SymbolIndex.default_path:
// $XDG_CACHE_HOME/bdx/index/<absolute binary dir, "/" replaced by "!">,
// falling back to ~/.cache when XDG_CACHE_HOME is unset.
func defaultIndexPath(directory string) string {
	cacheRoot := os.Getenv("XDG_CACHE_HOME")
	if cacheRoot == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		cacheRoot = filepath.Join(home, ".cache")
	}
	parts := strings.TrimPrefix(directory, string(filepath.Separator))
	basename := strings.ReplaceAll(parts, string(filepath.Separator), "!")
	return filepath.Join(cacheRoot, "bdx", "index", basename)
}

// opts accumulates repeated -o/--opt key=value flags for `bdx index`.
type opts map[string]string

func (o *opts) String() string { return fmt.Sprintf("%v", *o) }

func (o *opts) Set(kv string) error {
	idx := strings.IndexByte(kv, '=')
	if idx < 0 {
		return bdxerrors.Newf(bdxerrors.ErrUsage, "invalid -o value %q, expected key=value", kv)
	}
	if *o == nil {
		*o = make(opts)
	}
	(*o)[kv[:idx]] = kv[idx+1:]
	return nil
}

// applyOpts overrides an IndexerConfig from the -o/--opt key=value flags,
// per §6's "Options via -o/--opt key=value".
func applyOpts(cfg *config.IndexerConfig, o opts) error {
	for k, v := range o {
		switch k {
		case "num_processes":
			n, err := parseIntOpt(k, v)
			if err != nil {
				return err
			}
			cfg.NumProcesses = n
		case "index_relocations":
			b, err := parseBoolOpt(k, v)
			if err != nil {
				return err
			}
			cfg.IndexRelocations = b
		case "min_symbol_size":
			n, err := parseIntOpt(k, v)
			if err != nil {
				return err
			}
			cfg.MinSymbolSize = int64(n)
		case "use_dwarfdump":
			b, err := parseBoolOpt(k, v)
			if err != nil {
				return err
			}
			cfg.UseDwarfdump = b
		default:
			return bdxerrors.Newf(bdxerrors.ErrUsage, "unknown -o option %q", k)
		}
	}
	return nil
}

func parseIntOpt(key, v string) (int, error) {
	n := 0
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
		return 0, bdxerrors.Newf(bdxerrors.ErrUsage, "invalid value %q for -o %s", v, key)
	}
	return n, nil
}

func parseBoolOpt(key, v string) (bool, error) {
	switch v {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	default:
		return false, bdxerrors.Newf(bdxerrors.ErrUsage, "invalid boolean value %q for -o %s", v, key)
	}
}

// openStoreAndSearcher opens the store at indexPath and wraps it in a
// Searcher, for the read-only subcommands (search, graph, files).
func openStoreAndSearcher(indexPath string) (*store.Store, *search.Searcher, error) {
	return openStoreAndSearcherWithMetrics(indexPath, nil)
}

func openStoreAndSearcherWithMetrics(indexPath string, m *metrics.Metrics) (*store.Store, *search.Searcher, error) {
	st, err := store.OpenWithMetrics(indexPath, m)
	if err != nil {
		return nil, nil, err
	}
	return st, search.NewWithMetrics(st, m), nil
}

func setupLogger() *slog.Logger {
	level := os.Getenv("BDX_LOG_LEVEL")
	format := os.Getenv("BDX_LOG_FORMAT")
	return logger.Setup(level, format)
}

// setupMetrics creates the process's metrics registry and, when cfg enables
// it, starts the /metrics scrape server per §D's optional "--metrics-addr
// pprof-style /metrics endpoint for long index runs".
func setupMetrics(cfg config.MetricsConfig) *metrics.Metrics {
	m := metrics.New()
	if cfg.Enabled {
		metrics.StartServer(cfg.ListenAddr)
	}
	return m
}
