package pricing

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"solana-strategy-engine/internal/domain"
)

// Default configuration values.
const (
	DefaultTimeout    = 5 * time.Second
	DefaultMaxRetries = 2
	DefaultRetryDelay = 200 * time.Millisecond
)

// HTTPProvider implements Provider against a Jupiter-style quote API.
type HTTPProvider struct {
	baseURL    string
	client     *http.Client
	maxRetries int
	retryDelay time.Duration
}

// ProviderOption configures HTTPProvider.
type ProviderOption func(*HTTPProvider)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ProviderOption {
	return func(p *HTTPProvider) {
		p.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ProviderOption {
	return func(p *HTTPProvider) {
		p.maxRetries = n
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) ProviderOption {
	return func(p *HTTPProvider) {
		p.client = client
	}
}

// NewHTTPProvider creates a quote provider for the given API base URL.
func NewHTTPProvider(baseURL string, opts ...ProviderOption) *HTTPProvider {
	p := &HTTPProvider{
		baseURL:    baseURL,
		client:     &http.Client{Timeout: DefaultTimeout},
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// quoteResponse is the raw API response.
type quoteResponse struct {
	InputMint       string `json:"inputMint"`
	OutputMint      string `json:"outputMint"`
	InAmount        string `json:"inAmount"`
	OutAmount       string `json:"outAmount"`
	PriceImpactPct  string `json:"priceImpactPct"`
	SwapTransaction string `json:"swapTransaction,omitempty"` // base64
	Error           string `json:"error,omitempty"`
}

// Quote fetches a priced quote. Returns *domain.QuoteError when the
// service reports no route or responds with an unusable payload.
func (p *HTTPProvider) Quote(ctx context.Context, req Request) (*domain.Quote, error) {
	q := url.Values{}
	q.Set("inputMint", req.InputMint)
	q.Set("outputMint", req.OutputMint)
	q.Set("amount", strconv.FormatUint(req.Amount, 10))
	q.Set("slippageBps", strconv.Itoa(req.SlippageBps))
	if req.Mode != "" {
		q.Set("mode", req.Mode)
	}
	endpoint := p.baseURL + "/quote?" + q.Encode()

	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(p.retryDelay):
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}

		resp, err := p.client.Do(httpReq)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
			continue
		}

		var raw quoteResponse
		if err := json.Unmarshal(body, &raw); err != nil {
			lastErr = fmt.Errorf("unmarshal response: %w", err)
			continue
		}

		if raw.Error != "" {
			return nil, &domain.QuoteError{Reason: raw.Error}
		}

		return p.toQuote(req, &raw)
	}

	return nil, &domain.QuoteError{Reason: fmt.Sprintf("max retries exceeded: %v", lastErr)}
}

// toQuote converts the raw response into a domain quote.
func (p *HTTPProvider) toQuote(req Request, raw *quoteResponse) (*domain.Quote, error) {
	inAmount, err := strconv.ParseUint(raw.InAmount, 10, 64)
	if err != nil {
		return nil, &domain.QuoteError{Reason: fmt.Sprintf("bad inAmount %q", raw.InAmount)}
	}
	outAmount, err := strconv.ParseUint(raw.OutAmount, 10, 64)
	if err != nil {
		return nil, &domain.QuoteError{Reason: fmt.Sprintf("bad outAmount %q", raw.OutAmount)}
	}
	if outAmount == 0 {
		return nil, &domain.QuoteError{Reason: "zero output amount"}
	}

	impact := 0.0
	if raw.PriceImpactPct != "" {
		impact, err = strconv.ParseFloat(raw.PriceImpactPct, 64)
		if err != nil {
			return nil, &domain.QuoteError{Reason: fmt.Sprintf("bad priceImpactPct %q", raw.PriceImpactPct)}
		}
	}

	var swapTx []byte
	if raw.SwapTransaction != "" {
		swapTx, err = base64.StdEncoding.DecodeString(raw.SwapTransaction)
		if err != nil {
			return nil, &domain.QuoteError{Reason: "bad swapTransaction encoding"}
		}
	}

	return &domain.Quote{
		InputMint:       req.InputMint,
		OutputMint:      req.OutputMint,
		InAmount:        inAmount,
		OutAmount:       outAmount,
		PriceImpactPct:  impact,
		SlippageBps:     req.SlippageBps,
		Mode:            req.Mode,
		SwapTransaction: swapTx,
		FetchedAt:       time.Now(),
	}, nil
}

var _ Provider = (*HTTPProvider)(nil)
