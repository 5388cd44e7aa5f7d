package coinapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"coinapi-go/internal/config"
	"coinapi-go/internal/period"
)

const (
	// APIKeyHeader 为 CoinAPI 鉴权请求头。
	APIKeyHeader = "X-CoinAPI-Key"

	maxErrorBody = 512
)

// Client 负责与 CoinAPI Market Data REST API 交互并实现重试机制。
type Client struct {
	cfg        config.CoinAPIConfig
	logger     *zap.Logger
	httpClient *http.Client
	baseURL    string
}

// NewClient 构造 CoinAPI 客户端。
func NewClient(cfg config.CoinAPIConfig, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("coinapi: base_url 无效 %q", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		cfg:        cfg,
		logger:     logger,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(base.String(), "/"),
	}, nil
}

// TimeseriesData 查询 exchangerate/{base}/{quote}/history，获取交易对在时间区间内的历史汇率。
// start、end 为零值或 limit<=0 时不传对应参数，由服务端使用默认值。
func (c *Client) TimeseriesData(
	ctx context.Context,
	base, quote AssetName,
	p period.Period,
	start, end time.Time,
	limit int,
) (TimeseriesData, error) {
	if err := base.Validate(); err != nil {
		return nil, err
	}
	if err := quote.Validate(); err != nil {
		return nil, err
	}
	if !p.Valid() {
		return nil, fmt.Errorf("coinapi: %w: %s", period.ErrUnknownPeriod, p)
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return nil, fmt.Errorf("coinapi: time_end %s 早于 time_start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}

	params := url.Values{}
	params.Set("period_id", p.String())
	if !start.IsZero() {
		params.Set("time_start", start.UTC().Format(time.RFC3339))
	}
	if !end.IsZero() {
		params.Set("time_end", end.UTC().Format(time.RFC3339))
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	route := fmt.Sprintf("exchangerate/%s/%s/history", url.PathEscape(base.String()), url.PathEscape(quote.String()))

	var data TimeseriesData
	if err := c.get(ctx, route, params, &data); err != nil {
		return nil, err
	}

	c.logger.Debug("历史汇率获取完成",
		zap.String("base", base.String()),
		zap.String("quote", quote.String()),
		zap.Stringer("period", p),
		zap.Int("rows", len(data)),
	)

	return data, nil
}

// ExchangeRate 查询 exchangerate/{base}/{quote}，获取当前汇率。
func (c *Client) ExchangeRate(ctx context.Context, base, quote AssetName) (ExchangeRate, error) {
	if err := base.Validate(); err != nil {
		return ExchangeRate{}, err
	}
	if err := quote.Validate(); err != nil {
		return ExchangeRate{}, err
	}

	route := fmt.Sprintf("exchangerate/%s/%s", url.PathEscape(base.String()), url.PathEscape(quote.String()))

	var rate ExchangeRate
	if err := c.get(ctx, route, nil, &rate); err != nil {
		return ExchangeRate{}, err
	}
	return rate, nil
}

// Assets 查询 assets，可按资产代码过滤。
func (c *Client) Assets(ctx context.Context, filter ...AssetName) (Assets, error) {
	params := url.Values{}
	if len(filter) > 0 {
		ids := make([]string, 0, len(filter))
		for _, id := range filter {
			if err := id.Validate(); err != nil {
				return nil, err
			}
			ids = append(ids, id.String())
		}
		params.Set("filter_asset_id", strings.Join(ids, ";"))
	}

	var assets Assets
	if err := c.get(ctx, "assets", params, &assets); err != nil {
		return nil, err
	}
	return assets, nil
}

// Exchanges 查询 exchanges，可按交易所代码过滤。
func (c *Client) Exchanges(ctx context.Context, filter ...string) (Exchanges, error) {
	params := url.Values{}
	if len(filter) > 0 {
		params.Set("filter_exchange_id", strings.Join(filter, ";"))
	}

	var exchanges Exchanges
	if err := c.get(ctx, "exchanges", params, &exchanges); err != nil {
		return nil, err
	}
	return exchanges, nil
}

// get 以 GET 请求 route，并将 JSON 响应解码到 out。
func (c *Client) get(ctx context.Context, route string, params url.Values, out interface{}) error {
	endpoint := c.baseURL + "/" + route
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	return c.callWithRetry(ctx, route, func() error {
		body, err := c.do(ctx, endpoint)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("coinapi: 解析 %s 响应失败: %w", route, err)
		}
		return nil
	})
}

func (c *Client) do(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("coinapi: 构造请求失败: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set(APIKeyHeader, c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("coinapi: 读取响应失败: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := strings.TrimSpace(string(body))
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: snippet}
	}

	return body, nil
}

func (c *Client) callWithRetry(ctx context.Context, operation string, fn func() error) error {
	attempt := 0
	delay := c.cfg.Retry.MinDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	maxDelay := c.cfg.Retry.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 5 * time.Second
	}
	maxAttempts := c.cfg.Retry.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		attempt++
		start := time.Now()
		err := fn()
		duration := time.Since(start)
		if err == nil {
			if attempt > 1 {
				c.logger.Info("CoinAPI 调用重试后成功",
					zap.String("operation", operation),
					zap.Int("attempts", attempt),
					zap.Duration("latency", duration),
				)
			}
			return nil
		}

		if !IsRetryable(err) || attempt >= maxAttempts {
			c.logger.Error("CoinAPI 调用失败",
				zap.String("operation", operation),
				zap.Int("attempts", attempt),
				zap.Duration("latency", duration),
				zap.Error(err),
			)
			return err
		}

		wait := delay
		if wait > maxDelay {
			wait = maxDelay
		}

		c.logger.Warn("CoinAPI 调用失败，等待重试",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}
