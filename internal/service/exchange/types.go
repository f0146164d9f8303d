package exchange

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNoData 交易所没有返回可用的K线数据
var ErrNoData = errors.New("exchange: no kline data")

// TradingPair 交易对
type TradingPair struct {
	Base  string
	Quote string
}

func (p TradingPair) IsZero() bool {
	return p.Base == "" || p.Quote == ""
}

func (p TradingPair) ToString() string {
	return fmt.Sprintf("%s%s", p.Base, p.Quote)
}

func (p TradingPair) ToSlashString() string {
	return fmt.Sprintf("%s/%s", p.Base, p.Quote)
}

type Interval string

func (i Interval) ToString() string {
	return string(i)
}

func (i Interval) Duration() time.Duration {
	switch i {
	case Interval1m:
		return time.Minute
	case Interval5m:
		return 5 * time.Minute
	case Interval15m:
		return 15 * time.Minute
	case Interval30m:
		return 30 * time.Minute
	case Interval1h:
		return time.Hour
	case Interval4h:
		return 4 * time.Hour
	case Interval1d:
		return 24 * time.Hour
	default:
		return 0
	}
}

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval30m Interval = "30m"
	Interval1h  Interval = "1h"
	Interval4h  Interval = "4h"
	Interval1d  Interval = "1d"
)

type Kline struct {
	OpenTime         time.Time
	CloseTime        time.Time
	Open             decimal.Decimal
	Close            decimal.Decimal
	High             decimal.Decimal
	Low              decimal.Decimal
	Volume           decimal.Decimal // 成交量
	QuoteAssetVolume decimal.Decimal // 成交额
}

// Market 交易所市场信息
// QuoteVolume24h 为交易所上报的24h成交额估计, 部分交易所不提供该字段,
// 此时 HasVolume 为 false, 流动性判断交给下游K线数据
type Market struct {
	Pair           TradingPair
	QuoteVolume24h decimal.Decimal
	HasVolume      bool
}

type MarketService interface {
	// GetKlines 返回按开盘时间升序排列的最近 limit 根K线
	GetKlines(ctx context.Context, pair TradingPair, interval Interval, limit int) ([]Kline, error)
}

type SymbolService interface {
	GetAllMarkets(ctx context.Context) ([]Market, error)
}
