package client

import (
	"context"
	"net/http"

	"github.com/okian/insightpipe/internal/domain/model"
)

// SaveDocument stores content under title. Overwrite defaults to true; a
// failure surfaces the backend's detail message when it sends one.
func (c *Client) SaveDocument(ctx context.Context, title, content string, opts ...SaveOption) (model.SaveResult, error) {
	settings := saveSettings{overwrite: true}
	for _, opt := range opts {
		opt(&settings)
	}

	var out model.SaveResult
	req := model.SaveRequest{Title: title, Content: content, Overwrite: settings.overwrite}
	if err := c.do(ctx, opSave, http.MethodPost, c.endpoint("docs", "save"), req, &out); err != nil {
		return model.SaveResult{}, err
	}
	return out, nil
}

// ListDocuments returns the stored documents, newest first.
func (c *Client) ListDocuments(ctx context.Context) ([]model.DocumentSummary, error) {
	var out []model.DocumentSummary
	if err := c.do(ctx, opList, http.MethodGet, c.endpoint("docs"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetDocument loads one document. filename is percent-encoded as a single
// path segment.
func (c *Client) GetDocument(ctx context.Context, filename string) (model.Document, error) {
	var out model.Document
	if err := c.do(ctx, opGet, http.MethodGet, c.endpoint("docs", filename), nil, &out); err != nil {
		return model.Document{}, err
	}
	return out, nil
}

// DeleteDocument removes one document.
func (c *Client) DeleteDocument(ctx context.Context, filename string) (model.DeleteResult, error) {
	var out model.DeleteResult
	if err := c.do(ctx, opDelete, http.MethodDelete, c.endpoint("docs", filename), nil, &out); err != nil {
		return model.DeleteResult{}, err
	}
	return out, nil
}
