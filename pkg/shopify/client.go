package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/reiger65/stonewhistle-workshop-manager/pkg/config"
	pkgerrors "github.com/reiger65/stonewhistle-workshop-manager/pkg/errors"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/logger"
)

const (
	accessTokenHeader = "X-Shopify-Access-Token"
	defaultPageSize   = 250
	defaultCallDelay  = 550 * time.Millisecond
)

var (
	errShopDomainRequired  = errors.New("shopify shop domain is required")
	errAccessTokenRequired = errors.New("shopify access token is required")
	errLoggerRequired      = errors.New("shopify logger is required")
)

// Client pulls orders from the Shopify admin API with paging and a fixed
// inter-call delay. Retries on transient failure are the caller's concern.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	pageSize   int
	callDelay  time.Duration
	logger     *logger.Logger
}

// Option tweaks client construction; used by tests to point at a fake server.
type Option func(*Client)

// WithBaseURL overrides the admin API base URL.
func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(base, "/") }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient validates the credentials and builds the API wrapper.
func NewClient(ctx context.Context, cfg config.ShopifyConfig, logg *logger.Logger, opts ...Option) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	domain := strings.TrimSpace(cfg.ShopDomain)
	if domain == "" {
		return nil, errShopDomainRequired
	}
	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		return nil, errAccessTokenRequired
	}

	version := cfg.APIVersion
	if version == "" {
		version = "2024-01"
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 || pageSize > defaultPageSize {
		pageSize = defaultPageSize
	}
	callDelay := cfg.CallDelay
	if callDelay <= 0 {
		callDelay = defaultCallDelay
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    fmt.Sprintf("https://%s/admin/api/%s", domain, version),
		token:      token,
		pageSize:   pageSize,
		callDelay:  callDelay,
		logger:     logg,
	}
	for _, opt := range opts {
		opt(c)
	}

	logg.Info(ctx, "shopify client initialized")
	return c, nil
}

// ListOrders pulls every order matching params, following page_info cursors
// until the feed is exhausted.
func (c *Client) ListOrders(ctx context.Context, params ListOrdersParams) ([]Order, error) {
	var (
		orders   []Order
		pageInfo string
		page     int
	)

	for {
		page++
		if page > 1 {
			if err := c.waitBetweenCalls(ctx); err != nil {
				return nil, err
			}
		}

		q := params.query(c.pageSize)
		if pageInfo != "" {
			// Shopify rejects filter params alongside a cursor.
			q = url.Values{}
			q.Set("limit", strconv.Itoa(c.pageSize))
			q.Set("page_info", pageInfo)
		}

		logCtx := c.logger.WithFields(ctx, map[string]any{"page": page, "fetched": len(orders)})
		c.logger.Info(logCtx, "shopify orders page request")

		var envelope ordersEnvelope
		next, err := c.get(ctx, "/orders.json", q, &envelope)
		if err != nil {
			return nil, err
		}

		for _, raw := range envelope.Orders {
			orders = append(orders, raw.normalize())
		}

		if next == "" {
			break
		}
		pageInfo = next
	}

	logCtx := c.logger.WithField(ctx, "count", len(orders))
	c.logger.Info(logCtx, "shopify orders fetched")
	return orders, nil
}

// GetOrderByName fetches a single order by its platform name (e.g. "#1042").
func (c *Client) GetOrderByName(ctx context.Context, name string) (*Order, error) {
	q := url.Values{}
	q.Set("status", "any")
	q.Set("name", name)
	q.Set("limit", "1")

	var envelope ordersEnvelope
	if _, err := c.get(ctx, "/orders.json", q, &envelope); err != nil {
		return nil, err
	}
	if len(envelope.Orders) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("order %s not found on platform", name))
	}
	order := envelope.Orders[0].normalize()
	return &order, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, dest any) (string, error) {
	reqURL := c.baseURL + path
	if len(q) > 0 {
		reqURL += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build shopify request")
	}
	req.Header.Set(accessTokenHeader, c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "shopify request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", pkgerrors.New(codeForStatus(resp.StatusCode),
			fmt.Sprintf("shopify responded %d for %s", resp.StatusCode, path))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode shopify response")
	}

	return nextPageInfo(resp.Header.Get("Link")), nil
}

func (c *Client) waitBetweenCalls(ctx context.Context) error {
	timer := time.NewTimer(c.callDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// nextPageInfo extracts the page_info cursor from a Link header of the form
// <https://shop/admin/api/2024-01/orders.json?page_info=XYZ&limit=250>; rel="next".
func nextPageInfo(linkHeader string) string {
	for _, part := range strings.Split(linkHeader, ",") {
		if !strings.Contains(part, `rel="next"`) {
			continue
		}
		start := strings.Index(part, "<")
		end := strings.Index(part, ">")
		if start < 0 || end <= start {
			continue
		}
		u, err := url.Parse(part[start+1 : end])
		if err != nil {
			continue
		}
		return u.Query().Get("page_info")
	}
	return ""
}

func codeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return pkgerrors.CodeDependency
	default:
		if status >= 400 && status < 500 {
			return pkgerrors.CodeValidation
		}
		return pkgerrors.CodeDependency
	}
}
