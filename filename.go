package brandpdf

import (
	"regexp"
	"strings"
)

// Output file naming.
const (
	FilenamePrefix  = "StepGuide_"
	DefaultBaseName = "Branded_PDF"
)

var (
	whitespaceRun  = regexp.MustCompile(`\s+`)
	pathSeparators = strings.NewReplacer("/", "_", "\\", "_")
)

// OutputFilename builds the download name for a branded document from the
// user's base name and the title: "StepGuide_<base>_<title>.pdf" with every
// whitespace run and path separator replaced by an underscore, so the result
// is always a single path element. When both parts are blank the name falls
// back to DefaultBaseName.
func OutputFilename(base, title string) string {
	base = strings.TrimSpace(base)
	title = strings.TrimSpace(title)

	name := DefaultBaseName
	if base != "" || title != "" {
		name = pathSeparators.Replace(whitespaceRun.ReplaceAllString(base+"_"+title, "_"))
	}
	return FilenamePrefix + name + ".pdf"
}
