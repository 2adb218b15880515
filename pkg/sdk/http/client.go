package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// HeaderRequestID 每个请求附带的追踪 ID
const HeaderRequestID = "X-Request-Id"

type Client struct {
	client *resty.Client
}

// Options 客户端选项
type Options struct {
	Timeout   time.Duration
	UserAgent string
}

// NewClient 创建 REST 客户端
func NewClient(host string, opts Options) *Client {
	host = strings.TrimRight(host, "/")
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "order-console"
	}

	// 不做自动重试：失败直接交给调用方转成界面通知
	client := resty.New().
		SetTimeout(opts.Timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", opts.UserAgent)
	if host != "" {
		client.SetBaseURL(host)
	}

	return &Client{client: client}
}

type RequestOptions struct {
	Headers map[string]string
	Data    any
	Params  map[string]any
}

// 仅设置本次请求的默认 Header（不要再改 client 级 Header）
func (c *Client) newRequest(ctx context.Context) *resty.Request {
	r := c.client.R()
	if ctx != nil {
		r.SetContext(ctx)
	}
	r.SetHeader("Accept", "application/json")
	r.SetHeader(HeaderRequestID, uuid.NewString())
	return r
}

// DoRequest 发送请求，响应体由调用方从 resp.Body() 自行解析
// （服务端的 Content-Type 不可靠，响应体也不一定是 JSON）
// 非 2xx 响应返回 *APIError
func (c *Client) DoRequest(ctx context.Context, method, endpoint string, opt *RequestOptions) (*resty.Response, error) {
	rc := c.newRequest(ctx)
	if opt != nil {
		for k, v := range opt.Headers {
			rc.SetHeader(k, v)
		}
		if opt.Params != nil {
			rc.SetQueryParamsFromValues(toValues(opt.Params))
		}
		if opt.Data != nil {
			rc.SetHeader("Content-Type", "application/json")
			rc.SetBody(opt.Data)
		}
	}

	var (
		resp *resty.Response
		err  error
	)
	switch strings.ToUpper(method) {
	case http.MethodGet:
		resp, err = rc.Get(endpoint)
	case http.MethodPost:
		resp, err = rc.Post(endpoint)
	case http.MethodDelete:
		resp, err = rc.Delete(endpoint)
	case http.MethodPut:
		resp, err = rc.Put(endpoint)
	default:
		return nil, fmt.Errorf("unsupported method: %s", method)
	}
	if err != nil {
		return resp, errors.Wrapf(err, "%s %s", method, endpoint)
	}
	if !resp.IsSuccess() {
		return resp, ParseHTTPError(resp)
	}
	return resp, nil
}

func toValues(m map[string]any) map[string][]string {
	v := make(map[string][]string, len(m))
	for k, val := range m {
		switch t := val.(type) {
		case []string:
			v[k] = t
		default:
			v[k] = []string{fmt.Sprint(val)}
		}
	}
	return v
}

// APIError 非 2xx 响应
type APIError struct {
	StatusCode int
	Status     string
	Body       any
}

func (e *APIError) Error() string {
	return fmt.Sprintf("http non-2xx: %d %v", e.StatusCode, e.Body)
}

// ParseHTTPError 把非 2xx 响应转成 *APIError；响应体能解析成 JSON 时保留结构
func ParseHTTPError(resp *resty.Response) error {
	if resp == nil {
		return errors.New("http: nil response")
	}
	if resp.IsSuccess() {
		return nil
	}
	var body any
	b := resp.Body()
	_ = json.Unmarshal(b, &body)
	if body == nil {
		body = string(b)
	}
	return errors.WithStack(&APIError{
		StatusCode: resp.StatusCode(),
		Status:     resp.Status(),
		Body:       body,
	})
}
