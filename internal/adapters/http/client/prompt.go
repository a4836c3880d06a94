package client

import (
	"context"
	"net/http"

	"github.com/okian/insightpipe/internal/domain/model"
)

// GeneratePrompt renders the backend's default template around userInput.
func (c *Client) GeneratePrompt(ctx context.Context, userInput string) (model.PromptResult, error) {
	return c.GeneratePromptWithTemplate(ctx, userInput, "")
}

// GeneratePromptWithTemplate renders a named template. An empty name sends
// no template_name and the backend picks its default.
func (c *Client) GeneratePromptWithTemplate(ctx context.Context, userInput, template string) (model.PromptResult, error) {
	var out model.PromptResult
	req := model.PromptRequest{UserInput: userInput, TemplateName: template}
	if err := c.do(ctx, opPrompt, http.MethodPost, c.endpoint("prompt", "generate"), req, &out); err != nil {
		return model.PromptResult{}, err
	}
	return out, nil
}

// ImportGemini asks the backend to fetch a shared Gemini conversation and
// convert it to markdown. Nothing is stored; save the result separately.
func (c *Client) ImportGemini(ctx context.Context, shareURL string) (model.GeminiImport, error) {
	var out model.GeminiImport
	req := model.GeminiImportRequest{URL: shareURL}
	if err := c.do(ctx, opImport, http.MethodPost, c.endpoint("import", "gemini"), req, &out); err != nil {
		return model.GeminiImport{}, err
	}
	return out, nil
}
