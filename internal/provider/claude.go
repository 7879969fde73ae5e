package provider

import (
	"encoding/json"

	"github.com/ichi0g0y/legacy-code-converter/internal/prompt"
)

const (
	DefaultClaudeBaseURL = "https://api.anthropic.com/v1"
	ClaudeModel          = "claude-opus-4-20250514"
	AnthropicVersion     = "2023-06-01"
	ClaudeMaxTokens      = 4096

	messagesPath = "/messages"
)

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeRequest struct {
	Model       string          `json:"model"`
	System      string          `json:"system"`
	Messages    []claudeMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
}

type claudeResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string  `json:"type"`
		Text *string `json:"text"`
	} `json:"content"`
	Usage *struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// claudeSpec is the Anthropic Messages API: key header plus version header, a
// separate system field, text at content[0].text.
type claudeSpec struct {
	endpoint string
}

func newClaudeSpec(baseURL string) *claudeSpec {
	return &claudeSpec{endpoint: joinURL(baseURL, DefaultClaudeBaseURL, messagesPath)}
}

func (s *claudeSpec) Provider() Provider { return Claude }
func (s *claudeSpec) Model() string      { return ClaudeModel }

func (s *claudeSpec) BuildRequest(p prompt.Pair, credential string) HTTPRequest {
	return HTTPRequest{
		URL: s.endpoint,
		Headers: map[string]string{
			"x-api-key":         credential,
			"anthropic-version": AnthropicVersion,
		},
		Body: claudeRequest{
			Model:       ClaudeModel,
			System:      p.System,
			Messages:    []claudeMessage{{Role: "user", Content: p.User}},
			MaxTokens:   ClaudeMaxTokens,
			Temperature: defaultTemperature,
		},
	}
}

func (s *claudeSpec) ParseResponse(body []byte) (Completion, error) {
	var parsed claudeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Completion{}, &NetworkError{Provider: Claude, Err: err}
	}
	if len(parsed.Content) == 0 || parsed.Content[0].Text == nil {
		return Completion{}, &ResponseShapeError{Provider: Claude, Path: "content[0].text"}
	}

	c := Completion{Text: *parsed.Content[0].Text, Model: parsed.Model}
	if c.Model == "" {
		c.Model = ClaudeModel
	}
	if parsed.Usage != nil {
		c.Usage = Usage{InputTokens: parsed.Usage.InputTokens, OutputTokens: parsed.Usage.OutputTokens}
	}
	return c, nil
}
