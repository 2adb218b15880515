// Package rest 订单控制台的 REST API 客户端
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/betbot/orderconsole/internal/domain"
	sdkhttp "github.com/betbot/orderconsole/pkg/sdk/http"
)

// Client 对接 /api/accounts 与 /api/orders
type Client struct {
	http *sdkhttp.Client
}

// NewClient 创建 REST 客户端
func NewClient(httpClient *sdkhttp.Client) *Client {
	return &Client{http: httpClient}
}

func accountPath(userID string, suffix string) string {
	return "/api/accounts/" + url.PathEscape(userID) + suffix
}

// ListOrders GET /api/orders?user_id=<id>
// 响应体不是数组时按空列表处理
func (c *Client) ListOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	resp, err := c.http.DoRequest(ctx, http.MethodGet, "/api/orders", &sdkhttp.RequestOptions{
		Params: map[string]any{"user_id": userID},
	})
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(resp.Body())
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return []domain.Order{}, nil
	}
	var orders []domain.Order
	if err := json.Unmarshal(trimmed, &orders); err != nil {
		return nil, errors.Wrap(err, "decode orders")
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}

// GetBalance GET /api/accounts/<id>/balance
// balance 缺失或不是数字时返回 0
func (c *Client) GetBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	resp, err := c.http.DoRequest(ctx, http.MethodGet, accountPath(userID, "/balance"), nil)
	if err != nil {
		return decimal.Zero, err
	}
	var body struct {
		Balance json.RawMessage `json:"balance"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return decimal.Zero, nil
	}
	return parseBalance(body.Balance), nil
}

func parseBalance(raw json.RawMessage) decimal.Decimal {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// CreateAccount POST /api/accounts
func (c *Client) CreateAccount(ctx context.Context, userID string) error {
	_, err := c.http.DoRequest(ctx, http.MethodPost, "/api/accounts", &sdkhttp.RequestOptions{
		Data: map[string]any{"user_id": userID},
	})
	return err
}

// Deposit POST /api/accounts/<id>/deposit
func (c *Client) Deposit(ctx context.Context, userID string, amount decimal.Decimal) error {
	_, err := c.http.DoRequest(ctx, http.MethodPost, accountPath(userID, "/deposit"), &sdkhttp.RequestOptions{
		Data: map[string]any{"amount": json.Number(amount.String())},
	})
	return err
}

// CreateOrder POST /api/orders
// 服务端返回完整订单对象（带非空 id）时返回该订单，否则返回 nil，由调用方整表刷新
func (c *Client) CreateOrder(ctx context.Context, userID string, amount decimal.Decimal, description string) (*domain.Order, error) {
	resp, err := c.http.DoRequest(ctx, http.MethodPost, "/api/orders", &sdkhttp.RequestOptions{
		Data: map[string]any{
			"user_id":     userID,
			"amount":      json.Number(amount.String()),
			"description": description,
		},
	})
	if err != nil {
		return nil, err
	}

	// 响应体不是 JSON 对象（空、纯文本）时视为没有返回订单
	trimmed := bytes.TrimSpace(resp.Body())
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, nil
	}
	var created domain.Order
	if err := json.Unmarshal(trimmed, &created); err != nil || created.ID == "" {
		return nil, nil
	}
	return &created, nil
}
