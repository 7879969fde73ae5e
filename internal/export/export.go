// Package export turns editor contents into downloadable files.
package export

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ichi0g0y/legacy-code-converter/internal/analysis"
	"github.com/ichi0g0y/legacy-code-converter/internal/prompt"
)

// Kind selects which artifact to build.
type Kind string

const (
	KindLegacy    Kind = "legacy"
	KindGenerated Kind = "generated"
	KindAnalysis  Kind = "analysis"
)

const (
	MIMEPlain    = "text/plain"
	MIMEMarkdown = "text/markdown"
)

var (
	ErrNoContent   = errors.New("no content to download")
	ErrUnknownKind = errors.New("unknown export kind")
)

// Artifact is a file ready to be served as an attachment.
type Artifact struct {
	FileName string
	MIMEType string
	Content  string
}

// ContentType is MIMEType with an explicit UTF-8 charset.
func (a Artifact) ContentType() string {
	return a.MIMEType + "; charset=utf-8"
}

// Build creates the artifact for kind. content is the legacy source for
// KindLegacy and KindAnalysis and the converted output for KindGenerated;
// toLanguage decides whether generated output is code or a migration document.
func Build(kind Kind, content, toLanguage string) (Artifact, error) {
	if content == "" {
		return Artifact{}, ErrNoContent
	}

	switch Kind(strings.ToLower(strings.TrimSpace(string(kind)))) {
	case KindLegacy:
		return Artifact{FileName: "legacy_code.txt", MIMEType: MIMEPlain, Content: content}, nil
	case KindGenerated:
		if prompt.IsDocumentTarget(toLanguage) {
			return Artifact{FileName: "documentation.md", MIMEType: MIMEMarkdown, Content: content}, nil
		}
		return Artifact{FileName: "generated_code.txt", MIMEType: MIMEPlain, Content: content}, nil
	case KindAnalysis:
		return Artifact{
			FileName: "legacy_analysis.md",
			MIMEType: MIMEMarkdown,
			Content:  analysis.LegacyAnalysisMarkdown(content),
		}, nil
	default:
		return Artifact{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}
