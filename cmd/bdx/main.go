// Command bdx indexes ELF object files for symbol and relocation search
// (§6 of the specification): `bdx index` builds or refreshes a store,
// `bdx search` queries it, `bdx graph` walks relocation edges between two
// query-selected node sets, and `bdx files` lists what's indexed.
package main

import (
	"fmt"
	"os"

	bdxerrors "github.com/priyagupta108/bdx/pkg/errors"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return bdxerrors.ExitCode(bdxerrors.New(bdxerrors.ErrUsage, "missing command"))
	}

	var err error
	switch args[0] {
	case "index":
		err = runIndex(args[1:])
	case "search":
		err = runSearch(args[1:])
	case "graph":
		err = runGraph(args[1:])
	case "files":
		err = runFiles(args[1:])
	case "-h", "--help", "help":
		usage()
		return 0
	default:
		usage()
		return bdxerrors.ExitCode(bdxerrors.Newf(bdxerrors.ErrUsage, "unknown command %q", args[0]))
	}

	if err != nil {
		printErr(err)
		return bdxerrors.ExitCode(err)
	}
	return 0
}

func printErr(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
}

func usage() {
	fmt.Fprintln(os.Stderr, `bdx — ELF symbol and relocation indexer

Usage:
  bdx index [-d DIR | -c] [-o key=value]...
  bdx search [-n N] [--demangle-names] [-f FORMAT] QUERY...
  bdx graph [-n N] [--algorithm {BFS,DFS,ASTAR}] SRC_QUERY SINK_QUERY
  bdx files

Common flags (index/search/graph/files):
  -d, --directory   path to the binary directory
      --index-path  path to the store (default: cache dir derived from -d)`)
}
