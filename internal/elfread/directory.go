package elfread

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
)

// isReadableELF reports whether data begins with the ELF magic number.
func isReadableELF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("\x7fELF"))
}

// Discover returns the set of candidate object file paths under dir,
// per the supplemented file-discovery front end (SPEC_FULL.md §E.4): when
// compdbPath is non-empty, candidates come from compile_commands.json;
// otherwise dir is walked recursively and every regular file beginning with
// the ELF magic is a candidate.
func Discover(dir, compdbPath string) ([]string, error) {
	if compdbPath != "" {
		return DiscoverFromCompilationDatabase(compdbPath)
	}
	return discoverByWalk(dir)
}

func discoverByWalk(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.Mode().IsRegular() {
			return nil
		}
		header := make([]byte, 4)
		f, err := os.Open(p)
		if err != nil {
			return nil
		}
		defer f.Close()
		n, _ := f.Read(header)
		if n < 4 || !isReadableELF(header) {
			return nil
		}
		paths = append(paths, p)
		return nil
	})
	return paths, err
}
