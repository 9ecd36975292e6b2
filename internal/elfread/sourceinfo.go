package elfread

import (
	"debug/elf"
	"os/exec"
	"path"
	"regexp"
)

// sourceFile resolves the object's primary compilation unit's source path,
// per §4.1 step 4: debug info first, an external dwarfdump-like collaborator
// as a fallback when debug info is absent and one is configured.
func sourceFile(path_ string, f *elf.File, opts Options) string {
	if src := sourceFromDWARF(f); src != "" {
		return src
	}
	if opts.UseDwarfdump {
		return sourceFromDwarfdump(path_, opts)
	}
	return ""
}

func sourceFromDWARF(f *elf.File) string {
	data, err := f.DWARF()
	if err != nil {
		return ""
	}
	reader := data.Reader()
	entry, err := reader.Next()
	if err != nil || entry == nil {
		return ""
	}
	name, _ := entry.Val(0x03).(string)    // DW_AT_name
	compDir, _ := entry.Val(0x1b).(string) // DW_AT_comp_dir
	if name == "" {
		return ""
	}
	if path.IsAbs(name) || compDir == "" {
		return name
	}
	return path.Join(compDir, name)
}

var dwarfdumpNameRe = regexp.MustCompile(`DW_AT_name\("([^"]+)"\)`)
var dwarfdumpCompDirRe = regexp.MustCompile(`DW_AT_comp_dir\("([^"]+)"\)`)

// sourceFromDwarfdump shells out to an external dwarfdump-equivalent (§9's
// external collaborator boundary), falling back to an empty source on any
// failure (missing binary, non-zero exit, unparsable output).
func sourceFromDwarfdump(objPath string, opts Options) string {
	binPath := opts.DwarfdumpPath
	if binPath == "" {
		binPath = "dwarfdump"
	}
	out, err := exec.Command(binPath, "-r", objPath).Output()
	if err != nil {
		return ""
	}
	return parseDwarfdumpOutput(out)
}

func parseDwarfdumpOutput(out []byte) string {
	nameMatch := dwarfdumpNameRe.FindSubmatch(out)
	if nameMatch == nil {
		return ""
	}
	name := string(nameMatch[1])
	if path.IsAbs(name) {
		return name
	}
	compDirMatch := dwarfdumpCompDirRe.FindSubmatch(out)
	if compDirMatch == nil {
		return name
	}
	return path.Join(string(compDirMatch[1]), name)
}
