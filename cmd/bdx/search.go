package main

import (
	"flag"
	"os"
	"strings"

	"github.com/priyagupta108/bdx/internal/elfread"
	"github.com/priyagupta108/bdx/internal/output"
	"github.com/priyagupta108/bdx/internal/query"
	bdxerrors "github.com/priyagupta108/bdx/pkg/errors"
	"github.com/priyagupta108/bdx/pkg/metrics"
)

func runSearch(args []string) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	limit := fs.Int("n", 0, "limit the number of results")
	format := fs.String("f", "", "output format: json, sexp, or a {field} template")
	demangleNames := fs.Bool("demangle-names", false, "demangle symbol names in output")
	demanglerPath := fs.String("demangler-path", "", "path to the demangler binary (default c++filt)")
	if err := fs.Parse(args); err != nil {
		return bdxerrors.Newf(bdxerrors.ErrUsage, "%v", err)
	}
	if err := common.resolve(false); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return bdxerrors.New(bdxerrors.ErrUsage, "search requires at least one query argument")
	}

	q, err := query.Parse(strings.Join(fs.Args(), " "))
	if err != nil {
		return err
	}

	m := metrics.New()
	_, searcher, err := openStoreAndSearcherWithMetrics(common.indexPath, m)
	if err != nil {
		return err
	}

	results, err := searcher.Search(q, *limit)
	if err != nil {
		return err
	}

	fmtStr := *format
	if fmtStr == "" {
		fmtStr = output.DefaultTemplate
	}
	var demangler *elfread.Demangler
	if *demangleNames {
		demangler = elfread.NewDemanglerWithMetrics(*demanglerPath, m)
	}
	return output.NewWriter(os.Stdout, fmtStr, demangler).WriteAll(results)
}
