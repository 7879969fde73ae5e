package converter

import (
	"regexp"
	"strings"

	"github.com/abadojack/whatlanggo"
)

var fencedBlockRegex = regexp.MustCompile("(?s)```.*?```")

// DetectDocumentLanguage returns the ISO 639-3 code of a migration document's
// prose. Fenced code blocks are ignored. Returns "und" when detection is unsure.
func DetectDocumentLanguage(markdown string) string {
	prose := strings.TrimSpace(fencedBlockRegex.ReplaceAllString(markdown, " "))
	if prose == "" {
		return "und"
	}

	info := whatlanggo.Detect(prose)
	code := info.Lang.Iso6393()
	if code == "" {
		return "und"
	}
	if info.IsReliable() || info.Confidence >= 0.3 {
		return code
	}
	return "und"
}
