package signal

import (
	"github.com/KNICEX/market-scanner/internal/service/exchange"
	"github.com/KNICEX/market-scanner/pkg/decimalx"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// 各指标的最小K线根数要求
const (
	minBarsVolumeChange = 48
	minBarsRSI          = 20
	minBarsMACD         = 35

	rsiPeriod        = 14
	macdFastPeriod   = 12
	macdSlowPeriod   = 26
	macdSignalPeriod = 9
)

// MinHourlyBars 命中全部规则所需的小时级K线根数
const MinHourlyBars = minBarsVolumeChange

// Vector 一个候选在一轮扫描中的指标向量, nil 字段表示该指标数据不足
type Vector struct {
	VolumeChangePct24h *float64
	PricePct15vs1h     *float64
	RSI1h              *float64
	MACDBullishCross   bool
	LastClose          *float64
}

// Complete 三个数值指标是否全部可用
func (v Vector) Complete() bool {
	return v.VolumeChangePct24h != nil && v.PricePct15vs1h != nil && v.RSI1h != nil
}

type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Compute 从小时级和细粒度K线计算指标向量
// 每个指标独立判断数据是否足够, 不足时对应字段为 nil, 不会报错
// 相同的输入永远产生相同的向量
func (e *Engine) Compute(hourly, fine []exchange.Kline) Vector {
	var v Vector

	if len(hourly) > 0 {
		v.LastClose = lo.ToPtr(hourly[len(hourly)-1].Close.InexactFloat64())
	}

	if len(hourly) >= minBarsVolumeChange {
		volumes := lo.Map(hourly, func(k exchange.Kline, index int) decimal.Decimal {
			return k.Volume
		})
		last24 := decimalx.Sum(volumes[len(volumes)-24:])
		prev24 := decimalx.Sum(volumes[len(volumes)-48 : len(volumes)-24])
		if prev24.IsPositive() {
			pct := last24.Div(prev24).Sub(decimal.NewFromInt(1)).Mul(decimal.NewFromInt(100))
			v.VolumeChangePct24h = lo.ToPtr(pct.InexactFloat64())
		}
	}

	if len(fine) >= 1 && len(hourly) >= 2 {
		fineClose := fine[len(fine)-1].Close.InexactFloat64()
		hourAgoClose := hourly[len(hourly)-2].Close.InexactFloat64()
		if hourAgoClose > 0 {
			v.PricePct15vs1h = lo.ToPtr((fineClose/hourAgoClose - 1.0) * 100.0)
		}
	}

	closes := lo.Map(hourly, func(k exchange.Kline, index int) float64 {
		return k.Close.InexactFloat64()
	})

	if len(hourly) >= minBarsRSI {
		if rsi, ok := RSI(closes, rsiPeriod); ok {
			v.RSI1h = lo.ToPtr(rsi)
		}
	}

	if len(hourly) >= minBarsMACD {
		v.MACDBullishCross = MACDCross(closes, macdFastPeriod, macdSlowPeriod, macdSignalPeriod)
	}

	return v
}
