package decision

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// HTTPProvider requests decisions from an external agent endpoint. The agent
// receives the market context as JSON and answers with a decision object;
// whatever it answers is run through the tolerant parser.
type HTTPProvider struct {
	client *resty.Client
}

type HTTPProviderConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

func NewHTTPProvider(cfg HTTPProviderConfig) (*HTTPProvider, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("provider url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client := resty.New()
	client.SetBaseURL(cfg.URL)
	client.SetTimeout(timeout)
	client.SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}
	return &HTTPProvider{client: client}, nil
}

func (p *HTTPProvider) RequestDecision(ctx context.Context, mctx MarketContext) (Decision, error) {
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(mctx).
		Post("")
	if err != nil {
		return Hold(mctx.Symbol, "http request failed"), err
	}
	if resp.StatusCode() >= 300 {
		return Hold(mctx.Symbol, "http status "+resp.Status()), fmt.Errorf("provider returned status %d", resp.StatusCode())
	}
	return Parse(resp.Body(), mctx.Symbol), nil
}
