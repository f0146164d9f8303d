package marketindex

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrUnavailable 行情指数服务不可用(网络错误/熔断器打开)
var ErrUnavailable = errors.New("marketindex: provider unavailable")

// CoinMarket 按市值排名的币种行情
type CoinMarket struct {
	ID                string
	Symbol            string
	Name              string
	CurrentPrice      decimal.Decimal
	Volume24h         decimal.Decimal
	PriceChangePct24h float64
}

type ChartPoint struct {
	Time  time.Time
	Value decimal.Decimal
}

// Chart 低粒度的价格/成交量时间序列
type Chart struct {
	Prices  []ChartPoint
	Volumes []ChartPoint
}

type Service interface {
	TopMarkets(ctx context.Context, limit int) ([]CoinMarket, error)
	// MarketChart 返回最近 days 天的小时级价格/成交量序列
	MarketChart(ctx context.Context, coinID string, days int) (Chart, error)
}

// SymbolLookup 币种符号到指数提供方coin id的映射, 每轮扫描构建一次
type SymbolLookup map[string]string

func (l SymbolLookup) CoinID(symbol string) (string, bool) {
	id, ok := l[strings.ToUpper(symbol)]
	return id, ok
}

// BuildSymbolLookup 同一符号对应多个币种时, 取24h成交量更大的那个
func BuildSymbolLookup(coins []CoinMarket) SymbolLookup {
	lookup := make(SymbolLookup, len(coins))
	volumes := make(map[string]decimal.Decimal, len(coins))
	for _, c := range coins {
		sym := strings.ToUpper(c.Symbol)
		if sym == "" || c.ID == "" {
			continue
		}
		if prev, ok := volumes[sym]; ok && prev.GreaterThanOrEqual(c.Volume24h) {
			continue
		}
		lookup[sym] = c.ID
		volumes[sym] = c.Volume24h
	}
	return lookup
}
