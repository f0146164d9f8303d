package binance

import (
	"context"
	"log/slog"
	"strings"

	"github.com/KNICEX/market-scanner/internal/service/exchange"
	"github.com/adshao/go-binance/v2"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// 常见计价币种, 按优先级排列
var knownQuotes = []string{"USDT", "BUSD", "USDC", "USD", "BTC", "ETH"}

// SplitSymbol 拆分 BTCUSDT 形式的交易对
func SplitSymbol(s string) exchange.TradingPair {
	s = strings.ToUpper(s)
	for _, q := range knownQuotes {
		if strings.HasSuffix(s, q) && len(s) > len(q) {
			return exchange.TradingPair{Base: strings.TrimSuffix(s, q), Quote: q}
		}
	}
	return exchange.TradingPair{}
}

type SymbolService struct {
	cli *binance.Client
}

var _ exchange.SymbolService = (*SymbolService)(nil)

func NewSymbolService(cli *binance.Client) *SymbolService {
	return &SymbolService{cli: cli}
}

// volumeExtractor 从24h行情中提取成交额估计, 按顺序尝试, 取第一个成功的
type volumeExtractor func(stats *binance.PriceChangeStats) (decimal.Decimal, bool)

var volumeExtractors = []volumeExtractor{
	// 交易所直接上报的计价币种成交额
	func(stats *binance.PriceChangeStats) (decimal.Decimal, bool) {
		v, err := decimal.NewFromString(stats.QuoteVolume)
		if err != nil || v.IsZero() {
			return decimal.Zero, false
		}
		return v, true
	},
	// 基础币种成交量 * 最新价
	func(stats *binance.PriceChangeStats) (decimal.Decimal, bool) {
		vol, err := decimal.NewFromString(stats.Volume)
		if err != nil {
			return decimal.Zero, false
		}
		price, err := decimal.NewFromString(stats.LastPrice)
		if err != nil || price.IsZero() {
			return decimal.Zero, false
		}
		return vol.Mul(price), true
	},
}

func extractVolume(stats *binance.PriceChangeStats) (decimal.Decimal, bool) {
	for _, extract := range volumeExtractors {
		if v, ok := extract(stats); ok {
			return v, true
		}
	}
	return decimal.Zero, false
}

func (svc *SymbolService) GetAllMarkets(ctx context.Context) ([]exchange.Market, error) {
	stats, err := svc.cli.NewListPriceChangeStatsService().Do(ctx)
	if err != nil {
		return nil, err
	}

	markets := lo.FilterMap(stats, func(item *binance.PriceChangeStats, index int) (exchange.Market, bool) {
		pair := SplitSymbol(item.Symbol)
		if pair.IsZero() {
			return exchange.Market{}, false
		}
		vol, ok := extractVolume(item)
		if !ok {
			slog.Debug("no volume estimate for market", "symbol", item.Symbol)
		}
		return exchange.Market{
			Pair:           pair,
			QuoteVolume24h: vol,
			HasVolume:      ok,
		}, true
	})
	return markets, nil
}
