package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/storekit/mediator/domain"
	"github.com/storekit/mediator/usecase"
)

// Client resolves product info over HTTP. The endpoint is expected to
// answer GET {base}/products?ids=a,b,c with a JSON body of the form
// {"products": {"a": {"title": ...}, ...}}.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *fasthttp.Client
	logger  *zap.Logger
}

var _ usecase.CatalogService = (*Client)(nil)

type productInfoResponse struct {
	Products map[string]*domain.Attributes `json:"products"`
}

// NewClient creates a catalog client for the given base URL.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		http: &fasthttp.Client{
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		},
		logger: logger,
	}
}

// RequestProductInfo fetches attributes for the given ids.
func (c *Client) RequestProductInfo(ctx context.Context, productIDs []string) (domain.ProductInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fmt.Sprintf("%s/products?ids=%s",
		c.baseURL, url.QueryEscape(strings.Join(productIDs, ","))))
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	if err := c.http.DoTimeout(req, resp, timeout); err != nil {
		return nil, fmt.Errorf("catalog request failed: %w", err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("catalog request returned status %d", resp.StatusCode())
	}

	var parsed productInfoResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("catalog response malformed: %w", err)
	}

	c.logger.Debug("product info fetched",
		zap.Int("requested", len(productIDs)),
		zap.Int("returned", len(parsed.Products)))
	return parsed.Products, nil
}
