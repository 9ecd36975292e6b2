// Package output renders search results and graph paths for the CLI, per
// §6's record output formats and DOT emission for `bdx graph`.
package output

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/priyagupta108/bdx/internal/elfread"
	"github.com/priyagupta108/bdx/internal/record"
)

// DefaultTemplate is used when the caller supplies no -f/--format, matching
// the original tool's default rendering.
const DefaultTemplate = "{basename}: {name}"

// Format selects a record rendering per §6.
type Format string

const (
	JSON     Format = "json"
	SExp     Format = "sexp"
	Template Format = "" // non-empty values other than "json"/"sexp" are printf-style templates
)

// Writer renders a sequence of symbol records to an io.Writer in one of
// §6's output formats, optionally attaching demangled names.
type Writer struct {
	w         io.Writer
	format    string
	demangler *elfread.Demangler
}

func NewWriter(w io.Writer, format string, demangler *elfread.Demangler) *Writer {
	return &Writer{w: w, format: format, demangler: demangler}
}

// WriteAll renders every record in syms, one line at a time. When a
// demangler is configured, every unique raw name is demangled in one batch
// up front rather than once per record.
func (out *Writer) WriteAll(syms []record.Symbol) error {
	var demangled map[string]string
	if out.demangler != nil {
		names := make([]string, len(syms))
		for i, s := range syms {
			names[i] = s.Name
		}
		demangled = out.demangler.DemangleBatch(names)
	}

	for _, s := range syms {
		line := out.render(s, demangled)
		if _, err := io.WriteString(out.w, line+"\n"); err != nil {
			return err
		}
	}
	return nil
}

func (out *Writer) render(s record.Symbol, demangled map[string]string) string {
	var demangledName string
	hasDemangled := false
	if demangled != nil {
		if d, ok := demangled[s.Name]; ok && d != s.Name {
			demangledName, hasDemangled = d, true
		}
	}

	switch Format(out.format) {
	case JSON:
		return renderJSON(s, demangledName, hasDemangled)
	case SExp:
		return renderSExp(s, demangledName, hasDemangled)
	default:
		return renderTemplate(out.format, s, demangledName, hasDemangled)
	}
}

func jsonEscape(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func renderJSON(s record.Symbol, demangledName string, hasDemangled bool) string {
	var b strings.Builder
	b.WriteByte('{')
	fmt.Fprintf(&b, `"path":%s,`, jsonEscape(s.Path))
	fmt.Fprintf(&b, `"name":%s,`, jsonEscape(s.Name))
	fmt.Fprintf(&b, `"section":%s,`, jsonEscape(s.Section))
	fmt.Fprintf(&b, `"address":%d,`, s.Address)
	fmt.Fprintf(&b, `"size":%d,`, s.Size)
	fmt.Fprintf(&b, `"type":%s,`, jsonEscape(string(s.Type)))
	b.WriteString(`"relocations":[`)
	for i, r := range s.Relocations {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(jsonEscape(r))
	}
	b.WriteString("],")
	fmt.Fprintf(&b, `"mtime":%d`, s.MTime.UnixNano())
	if hasDemangled {
		fmt.Fprintf(&b, `,"demangled":%s`, jsonEscape(demangledName))
	}
	b.WriteByte('}')
	return b.String()
}

func sexpEscape(s string) string {
	return strconv.Quote(s)
}

func renderSExp(s record.Symbol, demangledName string, hasDemangled bool) string {
	var b strings.Builder
	b.WriteByte('(')
	fmt.Fprintf(&b, "(path %s)", sexpEscape(s.Path))
	fmt.Fprintf(&b, " (name %s)", sexpEscape(s.Name))
	fmt.Fprintf(&b, " (section %s)", sexpEscape(s.Section))
	fmt.Fprintf(&b, " (address %d)", s.Address)
	fmt.Fprintf(&b, " (size %d)", s.Size)
	fmt.Fprintf(&b, " (type %s)", sexpEscape(string(s.Type)))
	b.WriteString(" (relocations (")
	for i, r := range s.Relocations {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(sexpEscape(r))
	}
	b.WriteString("))")
	fmt.Fprintf(&b, " (mtime %d)", s.MTime.UnixNano())
	if hasDemangled {
		fmt.Fprintf(&b, " (demangled %s)", sexpEscape(demangledName))
	}
	b.WriteByte(')')
	return b.String()
}

// fieldValue resolves a record field by name to its textual form; an
// unknown field renders empty, per §6's template format rule.
func fieldValue(field string, s record.Symbol, demangledName string, hasDemangled bool) string {
	switch field {
	case "basename":
		return filepath.Base(s.Path)
	case "path":
		return s.Path
	case "name":
		return s.Name
	case "section":
		return s.Section
	case "address":
		return strconv.FormatUint(s.Address, 10)
	case "size":
		return strconv.FormatUint(s.Size, 10)
	case "type":
		return string(s.Type)
	case "relocations":
		return strings.Join(s.Relocations, ",")
	case "mtime":
		return strconv.FormatInt(s.MTime.UnixNano(), 10)
	case "source":
		return s.Source
	case "demangled":
		if hasDemangled {
			return demangledName
		}
		return ""
	default:
		return ""
	}
}

// renderTemplate substitutes every "{field}" occurrence in tmpl with the
// record's corresponding value, matching the original tool's str.format
// templates; an unrecognized field name renders empty rather than erroring,
// since a template is also valid shell-quoted CLI input where a typo should
// degrade gracefully instead of aborting a long-running search.
func renderTemplate(tmpl string, s record.Symbol, demangledName string, hasDemangled bool) string {
	var b strings.Builder
	for i := 0; i < len(tmpl); {
		if tmpl[i] == '{' {
			end := strings.IndexByte(tmpl[i+1:], '}')
			if end >= 0 {
				field := tmpl[i+1 : i+1+end]
				b.WriteString(fieldValue(field, s, demangledName, hasDemangled))
				i += 1 + end + 1
				continue
			}
		}
		b.WriteByte(tmpl[i])
		i++
	}
	return b.String()
}
