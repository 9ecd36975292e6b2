package elfread

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// compileCommand is the minimal subset of a compile_commands.json entry bdx
// needs: enough to recover the object file each translation unit produced.
// Parsing this format is explicitly out of scope per §1 ("trivial glue
// yielding a list of object file paths"); this is that glue.
type compileCommand struct {
	Directory string   `json:"directory"`
	File      string   `json:"file"`
	Output    string   `json:"output"`
	Command   string   `json:"command"`
	Arguments []string `json:"arguments"`
}

// DiscoverFromCompilationDatabase reads a compile_commands.json and returns
// the resolved object file path for each entry.
func DiscoverFromCompilationDatabase(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading compilation database %s: %w", path, err)
	}
	var entries []compileCommand
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing compilation database %s: %w", path, err)
	}

	var paths []string
	for _, e := range entries {
		out := resolveOutput(e)
		if !filepath.IsAbs(out) {
			out = filepath.Join(e.Directory, out)
		}
		paths = append(paths, out)
	}
	return paths, nil
}

// resolveOutput recovers the object file an entry produced, preferring an
// explicit Output field, then scanning Arguments/Command for "-o", falling
// back to "<source>.o".
func resolveOutput(e compileCommand) string {
	if e.Output != "" {
		return e.Output
	}
	if out := findDashO(e.Arguments); out != "" {
		return out
	}
	if out := findDashO(strings.Fields(e.Command)); out != "" {
		return out
	}
	return e.File + ".o"
}

func findDashO(args []string) string {
	for i, a := range args {
		if a == "-o" && i+1 < len(args) {
			return args[i+1]
		}
		if strings.HasPrefix(a, "-o") && len(a) > 2 {
			return a[2:]
		}
	}
	return ""
}

// FindCompilationDatabase walks upward from dir looking for a
// compile_commands.json, stopping at the filesystem root.
func FindCompilationDatabase(dir string) (string, bool) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	for {
		candidate := filepath.Join(dir, "compile_commands.json")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
