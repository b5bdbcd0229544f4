package address

import (
	"regexp"
	"strings"
)

// DefaultExtension is appended to prompt paths that lack a recognized suffix
// and names every file written to the prompt store.
const DefaultExtension = ".prompt.md"

// RecognizedExtensions lists the suffixes left untouched by
// AddDefaultExtension, most specific first.
var RecognizedExtensions = []string{
	DefaultExtension,
	".chatmode.md",
	".instructions.md",
	".md",
}

var (
	lastExtensionRegex = regexp.MustCompile(`\.[^.]*$`)
	nameSeparators     = func(r rune) bool { return r == '/' || r == '\\' || r == ':' }
)

// PromptName derives the canonical prompt name from an address: the last
// path segment with the compound default extension, or otherwise one
// extension, removed.
//
// It must be applied to the address as written, before AddDefaultExtension.
func PromptName(raw string) string {
	segments := strings.FieldsFunc(raw, nameSeparators)
	if len(segments) == 0 {
		return raw
	}

	last := segments[len(segments)-1]
	if strings.HasSuffix(last, DefaultExtension) {
		return strings.TrimSuffix(last, DefaultExtension)
	}
	return lastExtensionRegex.ReplaceAllString(last, "")
}

// AddDefaultExtension appends DefaultExtension unless path already ends in a
// recognized extension. An unrecognized extension is kept and the default is
// appended after it.
func AddDefaultExtension(path string) string {
	for _, ext := range RecognizedExtensions {
		if strings.HasSuffix(path, ext) {
			return path
		}
	}
	return path + DefaultExtension
}
