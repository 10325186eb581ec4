// Package fyers implements the broker gateway against the Fyers v3 REST API.
package fyers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"options-core/pkg/broker"
)

// Fyers numeric order-type codes.
const (
	codeLimit  = 1
	codeMarket = 2
)

// Client wraps REST access to the Fyers trading and data APIs.
type Client struct {
	ClientID    string
	AccessToken string
	BaseURL     string
	DataBaseURL string
	HTTPClient  *http.Client
}

// NewClient builds a REST client authenticated with an app client ID and an
// access token obtained out-of-band (token acquisition is not handled here).
func NewClient(clientID, accessToken string) *Client {
	return &Client{
		ClientID:    clientID,
		AccessToken: accessToken,
		BaseURL:     "https://api-t1.fyers.in/api/v3",
		DataBaseURL: "https://api-t1.fyers.in/data",
		HTTPClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) authHeader() string {
	return c.ClientID + ":" + c.AccessToken
}

func (c *Client) do(ctx context.Context, method, url string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", c.authHeader())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	// Fyers reports application errors inside the envelope with a 200, but
	// auth and routing failures surface as HTTP errors.
	if res.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("fyers %s status %d", url, res.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// PlaceOrder submits a single order via the synchronous order endpoint.
func (c *Client) PlaceOrder(ctx context.Context, reqOrder broker.OrderRequest) (broker.OrderResult, error) {
	product := reqOrder.ProductType
	if product == "" {
		product = broker.ProductIntraday
	}
	typeCode := codeMarket
	limitPrice := 0.0
	if reqOrder.Type == broker.OrderTypeLimit {
		typeCode = codeLimit
		limitPrice = reqOrder.LimitPrice
	}

	payload := map[string]any{
		"symbol":       reqOrder.Symbol,
		"qty":          reqOrder.Qty,
		"type":         typeCode,
		"side":         int(reqOrder.Side),
		"productType":  product,
		"limitPrice":   limitPrice,
		"stopPrice":    0,
		"validity":     "DAY",
		"disclosedQty": 0,
		"offlineOrder": false,
		"stopLoss":     reqOrder.StopLoss,
		"takeProfit":   reqOrder.TakeProfit,
	}

	var result broker.OrderResult
	if err := c.do(ctx, http.MethodPost, c.BaseURL+"/orders/sync", payload, &result); err != nil {
		return broker.OrderResult{}, err
	}
	return result, nil
}

// Positions fetches the current net position book.
func (c *Client) Positions(ctx context.Context) (broker.PositionsResult, error) {
	var result broker.PositionsResult
	if err := c.do(ctx, http.MethodGet, c.BaseURL+"/positions", nil, &result); err != nil {
		return broker.PositionsResult{}, err
	}
	return result, nil
}

// Orders fetches the order book.
func (c *Client) Orders(ctx context.Context) (broker.OrdersResult, error) {
	var result broker.OrdersResult
	if err := c.do(ctx, http.MethodGet, c.BaseURL+"/orders", nil, &result); err != nil {
		return broker.OrdersResult{}, err
	}
	return result, nil
}

// HistoryResult is the candle envelope from the data API. Each candle is
// [epochSeconds, open, high, low, close, volume].
type HistoryResult struct {
	Status  string      `json:"s"`
	Message string      `json:"message"`
	Candles [][]float64 `json:"candles"`
}

func (r HistoryResult) OK() bool { return r.Status == broker.StatusOK }

// History fetches historical candles for a symbol at the given resolution
// (venue string, e.g. "5"), covering the trailing window of `days` days.
func (c *Client) History(ctx context.Context, symbol, resolution string, days int) (HistoryResult, error) {
	to := time.Now()
	from := to.AddDate(0, 0, -days)

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("resolution", resolution)
	params.Set("date_format", "0")
	params.Set("range_from", strconv.FormatInt(from.Unix(), 10))
	params.Set("range_to", strconv.FormatInt(to.Unix(), 10))
	params.Set("cont_flag", "1")

	var result HistoryResult
	u := fmt.Sprintf("%s/history?%s", c.DataBaseURL, params.Encode())
	if err := c.do(ctx, http.MethodGet, u, nil, &result); err != nil {
		return HistoryResult{}, err
	}
	return result, nil
}
