package httpclient

import (
	"context"
	"fmt"
	"time"

	"resty.dev/v3"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// HTTPClientConfig 配置参数
type HTTPClientConfig struct {
	Timeout        time.Duration     // 请求超时时间
	RateLimit      int               // 每分钟请求次数，<=0 表示不限流
	MaxRetries     int               // 最大尝试次数（含首次），默认 3
	RetryBaseDelay time.Duration     // 指数退避基础间隔，默认 500ms
	UserAgent      string            // 可选 User-Agent
	Headers        map[string]string // 每个请求都携带的固定 header（API key 等）
}

// HTTPClient 是一个通用的 HTTP 客户端
type HTTPClient struct {
	client    *resty.Client
	logger    *zap.Logger
	limiter   *rate.Limiter
	attempts  int
	baseDelay time.Duration
}

// NewHTTPClient 创建一个新的 HTTP 客户端
func NewHTTPClient(cfg HTTPClientConfig, logger *zap.Logger) *HTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultAttempts
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = DefaultBaseDelay
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(float64(cfg.RateLimit) / 60)
	}
	limiter := rate.NewLimiter(limit, 1)

	// 重试由 Retry 统一处理，resty 自身不重试
	restyClient := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		AddRequestMiddleware(func(c *resty.Client, r *resty.Request) error {
			// 为限流器等待创建带超时的上下文
			limiterCtx, cancel := context.WithTimeout(r.Context(), cfg.Timeout)
			defer cancel()

			if err := limiter.Wait(limiterCtx); err != nil {
				logger.Warn("Rate limiter wait failed", zap.Error(err))
				return err
			}
			if cfg.UserAgent != "" {
				r.SetHeader("User-Agent", cfg.UserAgent)
			}
			for k, v := range cfg.Headers {
				if v != "" {
					r.SetHeader(k, v)
				}
			}
			logger.Debug("Outgoing request", zap.String("url", r.URL))
			return nil
		}).
		AddResponseMiddleware(func(c *resty.Client, resp *resty.Response) error {
			if resp.StatusCode() >= 400 {
				logger.Warn("HTTP request failed",
					zap.Int("status", resp.StatusCode()),
					zap.String("url", resp.Request.URL),
				)
			}
			return nil
		})

	return &HTTPClient{
		client:    restyClient,
		logger:    logger,
		limiter:   limiter,
		attempts:  cfg.MaxRetries,
		baseDelay: cfg.RetryBaseDelay,
	}
}

// Get 发起 GET 请求并解析 JSON 响应，失败按指数退避重试
func (c *HTTPClient) Get(ctx context.Context, url string, queryParams map[string]string, headers map[string]string, out interface{}) error {
	return Retry(ctx, c.attempts, c.baseDelay, func(attempt int) error {
		req := c.client.R().
			SetContext(ctx).
			SetQueryParams(queryParams).
			SetResult(out)
		if headers != nil {
			req.SetHeaders(headers)
		}

		resp, err := req.Get(url)
		if err != nil {
			c.logger.Warn("HTTP GET request failed", zap.String("url", url), zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		return checkStatus(resp)
	})
}

// PostJSON 发起 JSON POST 请求，失败按指数退避重试
func (c *HTTPClient) PostJSON(ctx context.Context, url string, body interface{}, headers map[string]string, out interface{}) error {
	return c.postJSON(ctx, c.attempts, url, body, headers, out)
}

// PostJSONOnce 只发一次，用于下单、建钱包这类不能重放的请求
func (c *HTTPClient) PostJSONOnce(ctx context.Context, url string, body interface{}, headers map[string]string, out interface{}) error {
	return c.postJSON(ctx, 1, url, body, headers, out)
}

func (c *HTTPClient) postJSON(ctx context.Context, attempts int, url string, body interface{}, headers map[string]string, out interface{}) error {
	return Retry(ctx, attempts, c.baseDelay, func(attempt int) error {
		req := c.client.R().
			SetContext(ctx).
			SetBody(body).
			SetResult(out)
		if headers != nil {
			req.SetHeaders(headers)
		}
		req.SetHeader("Content-Type", "application/json")

		resp, err := req.Post(url)
		if err != nil {
			c.logger.Warn("HTTP POST JSON request failed", zap.String("url", url), zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		return checkStatus(resp)
	})
}

func checkStatus(resp *resty.Response) error {
	code := resp.StatusCode()
	if code < 400 {
		return nil
	}
	httpErr := &HTTPError{Code: code, Message: truncate(resp.String(), 256)}
	// 4xx 中除 408/429 外均为请求本身的问题，重试无意义
	if code < 500 && code != 408 && code != 429 {
		return Permanent(httpErr)
	}
	return httpErr
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// HTTPError 自定义错误结构体
type HTTPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error %d: %s", e.Code, e.Message)
}
