// Package demo fabricates conversion output without calling a provider.
package demo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ichi0g0y/legacy-code-converter/internal/analysis"
	"github.com/ichi0g0y/legacy-code-converter/internal/prompt"
	"github.com/ichi0g0y/legacy-code-converter/internal/samples"
)

// EchoLines is the number of input lines echoed back by the generic fallback.
const EchoLines = 12

// sampleFingerprint identifies the bundled Ember sample after normalize.
// This is a heuristic, not a classifier: near-matches take the generic fallback.
var sampleFingerprint = []string{
	"userpostscomponent",
	"@tracked",
	"@action",
	"fetchposts",
}

var normalizer = strings.NewReplacer(`"`, "", "'", "", "`", "")

// Responder returns canned conversions after an artificial delay.
type Responder struct {
	Delay time.Duration
}

func NewResponder(delay time.Duration) *Responder {
	return &Responder{Delay: delay}
}

// Convert waits for the configured delay (cut short if ctx ends) and returns the
// canned output for the input. It never fails.
func (r *Responder) Convert(ctx context.Context, sourceCode, fromLanguage, toLanguage string) string {
	if r.Delay > 0 {
		timer := time.NewTimer(r.Delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}
	}
	return Render(sourceCode, fromLanguage, toLanguage)
}

// Render is the deterministic part of Convert.
func Render(sourceCode, fromLanguage, toLanguage string) string {
	if prompt.IsDocumentTarget(toLanguage) {
		return analysis.LegacyAnalysisMarkdown(sourceCode)
	}
	if MatchesSample(sourceCode) {
		return samples.ReactUserPosts
	}
	return echo(sourceCode, fromLanguage, toLanguage)
}

// MatchesSample reports whether code looks like the bundled Ember sample.
func MatchesSample(code string) bool {
	normalized := normalize(code)
	for _, marker := range sampleFingerprint {
		if !strings.Contains(normalized, marker) {
			return false
		}
	}
	return true
}

// Banner is the comment header of the generic fallback output.
func Banner(fromLanguage, toLanguage string) string {
	return fmt.Sprintf("// Demo conversion from %s to %s\n"+
		"// Demo mode does not call a model. Pick Perplexity, OpenAI or Claude for a real conversion.\n"+
		"// First %d lines of the input follow.\n", fromLanguage, toLanguage, EchoLines)
}

func echo(code, fromLanguage, toLanguage string) string {
	lines := strings.Split(code, "\n")
	if len(lines) > EchoLines {
		lines = lines[:EchoLines]
	}
	return Banner(fromLanguage, toLanguage) + "\n" + strings.Join(lines, "\n")
}

func normalize(code string) string {
	stripped := strings.Join(strings.Fields(code), "")
	return strings.ToLower(normalizer.Replace(stripped))
}
