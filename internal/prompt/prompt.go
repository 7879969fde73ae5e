// Package prompt builds the system and user messages sent to a provider.
package prompt

import (
	"fmt"
	"strings"
)

// DocumentTarget is the target stack that selects the migration document mode.
const DocumentTarget = "english"

// ManualConversionPlaceholder is the comment the model must leave for fragments it cannot convert.
const ManualConversionPlaceholder = "// TODO: Manual conversion required"

// DocumentSections are the mandatory sections of a migration document, in order.
var DocumentSections = []string{
	"Overview",
	"Key Components",
	"Data Flow",
	"State Management",
	"Migration Strategy",
	"Potential Challenges",
}

var sectionDescriptions = map[string]string{
	"Overview":             "A summary of the legacy code's functionality.",
	"Key Components":       "A breakdown of the main components, classes, and functions.",
	"Data Flow":            "An explanation of how data moves through the application.",
	"State Management":     "Analysis of how state is managed.",
	"Migration Strategy":   "A recommended step-by-step plan for migrating to a modern framework.",
	"Potential Challenges": "A list of potential issues and how to mitigate them.",
}

// Pair is the immutable system/user message pair for one conversion.
type Pair struct {
	System string
	User   string
}

// IsDocumentTarget reports whether toLanguage selects the migration document mode.
func IsDocumentTarget(toLanguage string) bool {
	return strings.EqualFold(strings.TrimSpace(toLanguage), DocumentTarget)
}

// Build returns the prompt pair for converting sourceCode from one stack to another.
func Build(fromLanguage, toLanguage, sourceCode string) Pair {
	return Pair{
		System: SystemPrompt(fromLanguage, toLanguage),
		User:   UserPrompt(fromLanguage, toLanguage, sourceCode),
	}
}

func SystemPrompt(fromLanguage, toLanguage string) string {
	if IsDocumentTarget(toLanguage) {
		return documentSystemPrompt(fromLanguage)
	}
	return codeSystemPrompt(fromLanguage, toLanguage)
}

// UserPrompt embeds the source verbatim in a generic fenced block.
func UserPrompt(fromLanguage, toLanguage, sourceCode string) string {
	return fmt.Sprintf("Convert the following %s code to %s:\n\n```\n%s\n```", fromLanguage, toLanguage, sourceCode)
}

func documentSystemPrompt(fromLanguage string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are an expert software architect. Your task is to analyze the provided legacy code written in %s and generate a comprehensive architectural migration document.\n", fromLanguage)
	sb.WriteString("The document should include:\n")
	for i, section := range DocumentSections {
		fmt.Fprintf(&sb, "%d.  **%s**: %s\n", i+1, section, sectionDescriptions[section])
	}
	sb.WriteString("Format the output as a clean, well-structured Markdown document.")
	return sb.String()
}

func codeSystemPrompt(fromLanguage, toLanguage string) string {
	return fmt.Sprintf(`You are an expert code converter. Your task is to convert the given code from %s to %s.
- Provide only the converted code.
- Do not include any explanations, comments, or apologies.
- Ensure the generated code is clean, modern, and follows best practices for %s.
- If you cannot convert a specific part, leave a `+"`%s`"+` comment.`, fromLanguage, toLanguage, toLanguage, ManualConversionPlaceholder)
}
