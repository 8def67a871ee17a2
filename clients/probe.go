package clients

import (
	"context"
	"net/http"
	"time"
)

// HealthProbe reports whether the fiscal authority gateway is reachable.
// It is the connectivity monitor's network-reachability signal.
type HealthProbe struct {
	baseURL string
	client  *http.Client
}

func NewHealthProbe(baseURL string) *HealthProbe {
	return &HealthProbe{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 3 * time.Second,
		},
	}
}

func (p *HealthProbe) Online(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/health", nil)
	if err != nil {
		return false
	}

	res, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer res.Body.Close()

	return res.StatusCode < http.StatusBadRequest
}
