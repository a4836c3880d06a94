package model

import (
	"regexp"
	"strings"
	"unicode"
)

// PromptRequest is the body of POST /prompt/generate. An empty TemplateName
// lets the backend use its default template.
type PromptRequest struct {
	UserInput    string `json:"user_input"`
	TemplateName string `json:"template_name,omitempty"`
}

// PromptResult carries the rendered prompt.
type PromptResult struct {
	Prompt string `json:"prompt"`
}

// GeminiImportRequest is the body of POST /import/gemini.
type GeminiImportRequest struct {
	URL string `json:"url"`
}

// GeminiImport is a shared Gemini conversation converted to markdown, with
// the suggested analysis prompt and filename.
type GeminiImport struct {
	Success   bool   `json:"success"`
	Title     string `json:"title"`
	Markdown  string `json:"markdown"`
	Prompt    string `json:"prompt"`
	Filename  string `json:"filename"`
	TurnCount int    `json:"turn_count"`
}

var shareIDPattern = regexp.MustCompile(`share/([a-zA-Z0-9]+)`)

// ShareID extracts the conversation id from a Gemini share link.
func ShareID(shareURL string) (string, bool) {
	m := shareIDPattern.FindStringSubmatch(shareURL)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// SanitizeTitle keeps letters, digits, spaces, dots and underscores, then
// trims trailing whitespace. The backend derives filenames the same way.
func SanitizeTitle(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '.' || r == '_' {
			b.WriteRune(r)
		}
	}
	return strings.TrimRightFunc(b.String(), unicode.IsSpace)
}
