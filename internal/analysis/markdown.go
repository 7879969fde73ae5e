// Package analysis renders the legacy code analysis report.
//
// The report is a fixed template filled with structural statistics of the input. It does
// not look at what the code means.
package analysis

import (
	"strings"
	"text/template"
	"unicode/utf8"
)

// PreviewLength is the number of characters of the input quoted in the overview.
const PreviewLength = 300

const noImports = "No imports detected."

// Stats are the structural statistics interpolated into the report.
type Stats struct {
	Preview     string
	Truncated   bool
	Characters  int
	Lines       int
	ImportLines []string
}

var reportTemplate = template.Must(template.New("legacy_analysis").Parse(`# Legacy Code Analysis

The following is a high-level overview, structure, and analysis of the provided legacy code.

---

## 1. Code Overview

This section provides an overview of the core logic, main features, and intended behavior present in the legacy code.

` + "```" + `
{{.Preview}}{{if .Truncated}}...{{end}}
` + "```" + `

- **Length**: {{.Characters}} characters
- **Contains {{.Lines}} lines**

## 2. Key Components & Responsibilities

- **Top-level elements (e.g., classes, components, main functions)**:
  Try to identify core logged components, exported entities, or main loops.
- **Action handlers (methods, event handlers, etc):**
  List/add details if you see clearly named or marked functions.

## 3. Data Flow & State Management

- **State variables:**
  Briefly list any ` + "`@tracked`, `useState`" + `, computed props, or global objects observed.
- **Data flow:**
  Note if the code fetches from APIs, updates UI from state changes, or handles side effects.

## 4. Dependencies & Integrations

- Any notable imports (libraries, APIs, internal utils):
` + "```" + `
{{.ImportsBlock}}
` + "```" + `

## 5. Areas of Technical Debt

- Are there detected anti-patterns (e.g., direct DOM manipulation, tight coupling, lack of error handling)?
- Detect manual state sync, duplicated logic, lack of modularization, poor separation of concerns if possible.
- Highlight any “magic values”, very long functions, mix of concerns, etc.

## 6. Summary & Recommendations

- Identify biggest risks for refactoring or migration
- Suggest first steps (e.g., write characterization tests, extract API calls, modularize state).

---

*This document was automatically generated. Please review and edit for completeness and accuracy!*
`))

// Collect computes the report statistics for code.
func Collect(code string) Stats {
	s := Stats{
		Characters: utf8.RuneCountInString(code),
		Lines:      strings.Count(code, "\n") + 1,
	}

	s.Preview = code
	if s.Characters > PreviewLength {
		s.Preview = string([]rune(code)[:PreviewLength])
		s.Truncated = true
	}

	for _, line := range strings.Split(code, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "import ") {
			s.ImportLines = append(s.ImportLines, line)
		}
	}
	return s
}

// ImportsBlock is the body of the dependencies code block.
func (s Stats) ImportsBlock() string {
	if len(s.ImportLines) == 0 {
		return noImports
	}
	return strings.Join(s.ImportLines, "\n")
}

// LegacyAnalysisMarkdown renders the analysis report for code.
func LegacyAnalysisMarkdown(code string) string {
	var sb strings.Builder
	// The template is fixed and Stats always satisfies it.
	_ = reportTemplate.Execute(&sb, Collect(code))
	return sb.String()
}
