package client

import (
	"context"
	"net/http"

	"github.com/okian/insightpipe/internal/domain/model"
)

// HealthCheck probes the backend's health endpoint.
func (c *Client) HealthCheck(ctx context.Context) (model.Health, error) {
	var out model.Health
	if err := c.do(ctx, opHealth, http.MethodGet, c.healthURL, nil, &out); err != nil {
		return model.Health{}, err
	}
	return out, nil
}
