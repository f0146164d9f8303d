package binance

import (
	"context"
	"fmt"
	"time"

	"github.com/KNICEX/market-scanner/internal/service/exchange"
	"github.com/adshao/go-binance/v2"
)

var _ exchange.MarketService = (*MarketService)(nil)

type MarketService struct {
	cli *binance.Client
}

// NewMarketService 创建市场数据服务
func NewMarketService(cli *binance.Client) *MarketService {
	return &MarketService{cli: cli}
}

func (m *MarketService) convertKlines(klines []*binance.Kline) ([]exchange.Kline, error) {
	kls := make([]exchange.Kline, len(klines))
	for i, k := range klines {
		kl, err := parseKline(k)
		if err != nil {
			// 任何一根K线解析失败都视为整段数据不可用, 不返回截断结果
			return nil, fmt.Errorf("parse kline: %w", err)
		}
		kls[i] = kl
	}
	return kls, nil
}

func (m *MarketService) GetKlines(ctx context.Context, pair exchange.TradingPair, interval exchange.Interval, limit int) ([]exchange.Kline, error) {
	// 币安API使用 BTCUSDT 格式，不是 BTC/USDT
	res, err := m.cli.NewKlinesService().
		Symbol(pair.ToString()).
		Interval(interval.ToString()).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", exchange.ErrNoData, err)
	}
	if len(res) == 0 {
		return nil, exchange.ErrNoData
	}
	kls, err := m.convertKlines(res)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", exchange.ErrNoData, err)
	}
	return kls, nil
}

func parseKline(k *binance.Kline) (exchange.Kline, error) {
	fields := []string{k.Open, k.Close, k.High, k.Low, k.Volume, k.QuoteAssetVolume}
	parsed, err := parseDecimals(fields)
	if err != nil {
		return exchange.Kline{}, err
	}
	return exchange.Kline{
		OpenTime:         time.UnixMilli(k.OpenTime),
		CloseTime:        time.UnixMilli(k.CloseTime),
		Open:             parsed[0],
		Close:            parsed[1],
		High:             parsed[2],
		Low:              parsed[3],
		Volume:           parsed[4],
		QuoteAssetVolume: parsed[5],
	}, nil
}
