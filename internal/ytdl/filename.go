package ytdl

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	maxTitleRunes   = 120
	fallbackTitle   = "video"
	titleSeparators = `/\:*?"<>|`
)

// SuggestedFilename proposes "<title> [<id>].<ext>" for a download, with
// diacritics folded away and characters that are unsafe on common
// filesystems removed.
func SuggestedFilename(m *Manifest, f Format) string {
	title := fallbackTitle
	id := ""
	ext := f.Ext
	if m != nil {
		if t := sanitizeTitle(m.DisplayTitle()); t != "" {
			title = t
		}
		id = sanitizeTitle(m.ID)
		if ext == "" {
			ext = m.Ext
		}
	}

	name := title
	if id != "" && id != title {
		name += " [" + id + "]"
	}
	if ext = strings.Trim(sanitizeTitle(ext), "."); ext != "" {
		name += "." + ext
	}
	return name
}

// SuggestedPath joins SuggestedFilename onto dir and returns it as a literal
// -o output template.
func SuggestedPath(dir string, m *Manifest, f Format) string {
	return EscapeTemplate(filepath.Join(dir, SuggestedFilename(m, f)))
}

// EscapeTemplate makes path safe to pass as -o. The tool expands %(field)s
// sequences in the template, so a literal percent sign is written as %%.
func EscapeTemplate(path string) string {
	return strings.ReplaceAll(path, "%", "%%")
}

func sanitizeTitle(value string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), value)
	if err != nil {
		folded = value
	}

	var b strings.Builder
	lastSpace := false
	for _, r := range folded {
		switch {
		case strings.ContainsRune(titleSeparators, r):
			r = '-'
		case unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			if lastSpace {
				continue
			}
			r = ' '
		}
		lastSpace = r == ' '
		b.WriteRune(r)
	}

	cleaned := strings.Trim(b.String(), " .-")
	if runesOf := []rune(cleaned); len(runesOf) > maxTitleRunes {
		cleaned = strings.TrimSpace(string(runesOf[:maxTitleRunes]))
	}
	return cleaned
}
