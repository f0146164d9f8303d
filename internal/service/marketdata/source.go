package marketdata

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/KNICEX/market-scanner/internal/service/discovery"
	"github.com/KNICEX/market-scanner/internal/service/exchange"
	"github.com/KNICEX/market-scanner/internal/service/marketindex"
)

// Source 为候选标的提供指定周期的K线
// 数据不可用时返回 exchange.ErrNoData, 永远不返回部分解析的结果
type Source interface {
	Bars(ctx context.Context, cand discovery.Candidate, interval exchange.Interval, limit int) ([]exchange.Kline, error)
}

// ExchangeSource 主数据源, 按候选所属交易所路由
type ExchangeSource struct {
	markets map[string]exchange.MarketService
}

var _ Source = (*ExchangeSource)(nil)

func NewExchangeSource(markets map[string]exchange.MarketService) *ExchangeSource {
	return &ExchangeSource{markets: markets}
}

func (s *ExchangeSource) Bars(ctx context.Context, cand discovery.Candidate, interval exchange.Interval, limit int) ([]exchange.Kline, error) {
	svc, ok := s.markets[cand.ExchangeID]
	if !ok {
		return nil, fmt.Errorf("%w: unknown exchange %s", exchange.ErrNoData, cand.ExchangeID)
	}
	return svc.GetKlines(ctx, cand.Pair, interval, limit)
}

// FallbackSource 次级数据源, 从指数提供方的低粒度价格/成交量序列合成K线
type FallbackSource struct {
	index  marketindex.Service
	lookup marketindex.SymbolLookup
}

var _ Source = (*FallbackSource)(nil)

func NewFallbackSource(index marketindex.Service, lookup marketindex.SymbolLookup) *FallbackSource {
	return &FallbackSource{index: index, lookup: lookup}
}

func (s *FallbackSource) Bars(ctx context.Context, cand discovery.Candidate, interval exchange.Interval, limit int) ([]exchange.Kline, error) {
	coinID, ok := s.lookup.CoinID(cand.Pair.Base)
	if !ok {
		return nil, fmt.Errorf("%w: no provider id for %s", exchange.ErrNoData, cand.Pair.Base)
	}

	days := chartDays(interval, limit)
	chart, err := s.index.MarketChart(ctx, coinID, days)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", exchange.ErrNoData, err)
	}

	bars := Resample(chart, interval)
	if len(bars) == 0 {
		return nil, exchange.ErrNoData
	}
	if len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	return bars, nil
}

// chartDays 取够覆盖 limit 根K线的天数, 多取一天防止边界截断
func chartDays(interval exchange.Interval, limit int) int {
	span := interval.Duration() * time.Duration(limit)
	days := int(math.Ceil(span.Hours()/24)) + 1
	if days < 1 {
		days = 1
	}
	return days
}

// CompositeSource 先用主数据源, 数据缺失或根数不足时回退到次级数据源
type CompositeSource struct {
	primary  Source
	fallback Source
	// minBars 各周期触发回退的最小K线根数
	minBars map[exchange.Interval]int
}

var _ Source = (*CompositeSource)(nil)

func NewCompositeSource(primary, fallback Source, minBars map[exchange.Interval]int) *CompositeSource {
	return &CompositeSource{primary: primary, fallback: fallback, minBars: minBars}
}

func (s *CompositeSource) Bars(ctx context.Context, cand discovery.Candidate, interval exchange.Interval, limit int) ([]exchange.Kline, error) {
	bars, err := s.primary.Bars(ctx, cand, interval, limit)
	if err == nil && len(bars) >= s.minBars[interval] {
		return bars, nil
	}
	if err != nil {
		slog.Debug("primary source miss", "candidate", cand.AssetKey(), "interval", interval, "error", err)
	}
	fbBars, fbErr := s.fallback.Bars(ctx, cand, interval, limit)
	if fbErr != nil {
		// 回退也失败时, 主数据源的短结果好过什么都没有
		if err == nil && len(bars) > 0 {
			return bars, nil
		}
		return nil, fbErr
	}
	return fbBars, nil
}
