package coingecko

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/KNICEX/market-scanner/internal/service/marketindex"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
)

const defaultBaseURL = "https://api.coingecko.com/api/v3"

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	RetryCount int
}

type Client struct {
	cli     *resty.Client
	breaker *gobreaker.CircuitBreaker
}

var _ marketindex.Service = (*Client)(nil)

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}

	cli := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(time.Second).
		SetRetryMaxWaitTime(10 * time.Second).
		SetRetryAfter(func(client *resty.Client, resp *resty.Response) (time.Duration, error) {
			// 429 限流时优先使用 Retry-After 头
			if resp.StatusCode() == 429 {
				if retryAfter := resp.Header().Get("Retry-After"); retryAfter != "" {
					if seconds, err := time.ParseDuration(retryAfter + "s"); err == nil {
						return seconds, nil
					}
				}
				return 10 * time.Second, nil
			}
			return 0, nil
		})

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "coingecko",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Client{cli: cli, breaker: breaker}
}

type coinMarketResp struct {
	ID                string   `json:"id"`
	Symbol            string   `json:"symbol"`
	Name              string   `json:"name"`
	CurrentPrice      float64  `json:"current_price"`
	TotalVolume       float64  `json:"total_volume"`
	PriceChangePct24h *float64 `json:"price_change_percentage_24h"`
}

func (c *Client) TopMarkets(ctx context.Context, limit int) ([]marketindex.CoinMarket, error) {
	perPage := limit
	if perPage > 250 {
		perPage = 250
	}
	res, err := c.breaker.Execute(func() (any, error) {
		var out []coinMarketResp
		resp, err := c.cli.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"vs_currency":             "usd",
				"order":                   "market_cap_desc",
				"per_page":                strconv.Itoa(perPage),
				"page":                    "1",
				"price_change_percentage": "24h",
			}).
			SetResult(&out).
			Get("/coins/markets")
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("coins/markets: http %d", resp.StatusCode())
		}
		return out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", marketindex.ErrUnavailable, err)
	}

	raw := res.([]coinMarketResp)
	coins := make([]marketindex.CoinMarket, 0, len(raw))
	for _, r := range raw {
		coin := marketindex.CoinMarket{
			ID:           r.ID,
			Symbol:       r.Symbol,
			Name:         r.Name,
			CurrentPrice: decimal.NewFromFloat(r.CurrentPrice),
			Volume24h:    decimal.NewFromFloat(r.TotalVolume),
		}
		if r.PriceChangePct24h != nil {
			coin.PriceChangePct24h = *r.PriceChangePct24h
		}
		coins = append(coins, coin)
	}
	return coins, nil
}

type marketChartResp struct {
	Prices       [][]float64 `json:"prices"`
	TotalVolumes [][]float64 `json:"total_volumes"`
}

func (c *Client) MarketChart(ctx context.Context, coinID string, days int) (marketindex.Chart, error) {
	res, err := c.breaker.Execute(func() (any, error) {
		var out marketChartResp
		resp, err := c.cli.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"vs_currency": "usd",
				"days":        strconv.Itoa(days),
				"interval":    "hourly",
			}).
			SetResult(&out).
			Get(fmt.Sprintf("/coins/%s/market_chart", coinID))
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("market_chart: http %d", resp.StatusCode())
		}
		return out, nil
	})
	if err != nil {
		return marketindex.Chart{}, fmt.Errorf("%w: %v", marketindex.ErrUnavailable, err)
	}

	raw := res.(marketChartResp)
	return marketindex.Chart{
		Prices:  convertPoints(raw.Prices),
		Volumes: convertPoints(raw.TotalVolumes),
	}, nil
}

func convertPoints(rows [][]float64) []marketindex.ChartPoint {
	points := make([]marketindex.ChartPoint, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		points = append(points, marketindex.ChartPoint{
			Time:  time.UnixMilli(int64(row[0])),
			Value: decimal.NewFromFloat(row[1]),
		})
	}
	return points
}
