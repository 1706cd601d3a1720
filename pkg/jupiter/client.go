package jupiter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/tranche-vault/pkg/metrics"
	"github.com/code-payments/tranche-vault/pkg/tranche"
)

// Reference: https://station.jup.ag/docs/apis/swap-api

const (
	DefaultApiBaseUrl = "https://quote-api.jup.ag/v6/"

	quoteEndpointName = "quote"

	metricsStructName = "jupiter.client"
)

type Client struct {
	baseUrl          string
	httpClient       *http.Client
	forceDirectRoute bool
}

// NewClient returns a new Jupiter client for quoting swaps between tranche
// mints
func NewClient(baseUrl string) *Client {
	return &Client{
		baseUrl:    baseUrl,
		httpClient: http.DefaultClient,
	}
}

// WithDirectRoutesOnly restricts quotes to single-hop routes, which keeps the
// quoted venue the same as the vault strategy's pool.
func (c *Client) WithDirectRoutesOnly() *Client {
	c.forceDirectRoute = true
	return c
}

// Quote implements tranche.Quoter. The minimum output is Jupiter's
// otherAmountThreshold, which already has the requested slippage applied.
func (c *Client) Quote(ctx context.Context, req *tranche.QuoteRequest) (*tranche.Quote, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Quote")
	defer tracer.End()

	quote, err := c.getQuote(ctx, req)
	if err != nil {
		tracer.OnError(err)
		return nil, err
	}
	return quote, nil
}

func (c *Client) getQuote(ctx context.Context, req *tranche.QuoteRequest) (*tranche.Quote, error) {
	url := fmt.Sprintf(
		"%s%s?inputMint=%s&outputMint=%s&amount=%d&slippageBps=%d&onlyDirectRoutes=%v&swapMode=ExactIn",
		c.baseUrl,
		quoteEndpointName,
		base58.Encode(req.InputMint),
		base58.Encode(req.OutputMint),
		req.Amount,
		req.SlippageBps,
		c.forceDirectRoute,
	)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "error creating http request")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "error executing http request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "error reading response body")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("received http status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed jsonQuote
	err = json.Unmarshal(respBody, &parsed)
	if err != nil {
		return nil, errors.Wrap(err, "error unmarshalling json response")
	}

	inAmount, err := strconv.ParseUint(parsed.InAmount, 10, 64)
	if err != nil {
		return nil, errors.Wrap(err, "error parsing input amount")
	}

	outAmount, err := strconv.ParseUint(parsed.OutAmount, 10, 64)
	if err != nil {
		return nil, errors.Wrap(err, "error parsing output amount")
	}

	minOutAmount, err := strconv.ParseUint(parsed.OtherAmountThreshold, 10, 64)
	if err != nil {
		return nil, errors.Wrap(err, "error parsing minimum output amount")
	}

	return &tranche.Quote{
		InAmount:     inAmount,
		OutAmount:    outAmount,
		MinOutAmount: minOutAmount,
	}, nil
}

type jsonQuote struct {
	InAmount             string `json:"inAmount"`
	OutAmount            string `json:"outAmount"`
	OtherAmountThreshold string `json:"otherAmountThreshold"`
}
