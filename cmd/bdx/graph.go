package main

import (
	"flag"
	"os"

	"github.com/priyagupta108/bdx/internal/graph"
	"github.com/priyagupta108/bdx/internal/output"
	"github.com/priyagupta108/bdx/internal/query"
	bdxerrors "github.com/priyagupta108/bdx/pkg/errors"
	"github.com/priyagupta108/bdx/pkg/metrics"
)

func runGraph(args []string) error {
	fs := flag.NewFlagSet("graph", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	limit := fs.Int("n", 10, "maximum number of paths to find")
	algo := fs.String("algorithm", "BFS", "traversal algorithm: BFS, DFS, or ASTAR")
	maxDepth := fs.Int("max-depth", 0, "maximum edges per path (0 means unbounded)")
	if err := fs.Parse(args); err != nil {
		return bdxerrors.Newf(bdxerrors.ErrUsage, "%v", err)
	}
	if err := common.resolve(false); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return bdxerrors.New(bdxerrors.ErrUsage, "graph requires exactly two arguments: SRC_QUERY SINK_QUERY")
	}

	srcQ, err := query.Parse(fs.Arg(0))
	if err != nil {
		return err
	}
	sinkQ, err := query.Parse(fs.Arg(1))
	if err != nil {
		return err
	}

	algorithm, err := parseAlgorithm(*algo)
	if err != nil {
		return err
	}

	m := metrics.New()
	_, searcher, err := openStoreAndSearcherWithMetrics(common.indexPath, m)
	if err != nil {
		return err
	}

	eng := graph.NewWithMetrics(searcher, m)
	paths, err := eng.Run(srcQ, sinkQ, graph.Options{Algorithm: algorithm, Limit: *limit, MaxDepth: *maxDepth})
	if err != nil {
		return err
	}

	return output.WriteDOT(os.Stdout, paths)
}

func parseAlgorithm(s string) (graph.Algorithm, error) {
	switch s {
	case string(graph.BFS), "":
		return graph.BFS, nil
	case string(graph.DFS):
		return graph.DFS, nil
	case string(graph.AStar):
		return graph.AStar, nil
	default:
		return "", bdxerrors.Newf(bdxerrors.ErrUsage, "unknown algorithm %q (expected BFS, DFS, or ASTAR)", s)
	}
}
