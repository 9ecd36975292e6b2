package main

import (
	"flag"
	"fmt"
	"sort"

	bdxerrors "github.com/priyagupta108/bdx/pkg/errors"
)

// runFiles implements the supplemented `bdx files` subcommand (SPEC_FULL.md
// §E.2): a thin read over the manifest listing every indexed path.
func runFiles(args []string) error {
	fs := flag.NewFlagSet("files", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		return bdxerrors.Newf(bdxerrors.ErrUsage, "%v", err)
	}
	if err := common.resolve(false); err != nil {
		return err
	}

	st, _, err := openStoreAndSearcher(common.indexPath)
	if err != nil {
		return err
	}
	manifest, err := st.LoadManifest()
	if err != nil {
		return err
	}

	paths := make([]string, 0, len(manifest.Files))
	for path := range manifest.Files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		fmt.Println(path)
	}
	return nil
}
