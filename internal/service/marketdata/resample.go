package marketdata

import (
	"sort"
	"time"

	"github.com/KNICEX/market-scanner/internal/service/exchange"
	"github.com/KNICEX/market-scanner/internal/service/marketindex"
	"github.com/shopspring/decimal"
)

type bucket struct {
	open, high, low, close decimal.Decimal
	volume                 decimal.Decimal
	hasPrice               bool
}

// Resample 把低粒度的价格/成交量序列聚合成目标周期的K线
// open=桶内首个价格, high=最大, low=最小, close=最后一个, volume=桶内成交量之和
// 没有价格样本的桶直接丢弃, 不做前向填充
func Resample(chart marketindex.Chart, interval exchange.Interval) []exchange.Kline {
	step := interval.Duration()
	if step <= 0 {
		return nil
	}

	buckets := make(map[int64]*bucket)

	prices := sortedPoints(chart.Prices)
	for _, p := range prices {
		key := p.Time.Truncate(step).Unix()
		b, ok := buckets[key]
		if !ok {
			b = &bucket{}
			buckets[key] = b
		}
		if !b.hasPrice {
			b.open = p.Value
			b.high = p.Value
			b.low = p.Value
			b.hasPrice = true
		}
		b.high = decimal.Max(b.high, p.Value)
		b.low = decimal.Min(b.low, p.Value)
		b.close = p.Value
	}

	for _, v := range chart.Volumes {
		key := v.Time.Truncate(step).Unix()
		if b, ok := buckets[key]; ok {
			b.volume = b.volume.Add(v.Value)
		}
	}

	keys := make([]int64, 0, len(buckets))
	for k, b := range buckets {
		if b.hasPrice {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	bars := make([]exchange.Kline, 0, len(keys))
	for _, k := range keys {
		b := buckets[k]
		openTime := time.Unix(k, 0).UTC()
		bars = append(bars, exchange.Kline{
			OpenTime:  openTime,
			CloseTime: openTime.Add(step),
			Open:      b.open,
			High:      b.high,
			Low:       b.low,
			Close:     b.close,
			Volume:    b.volume,
		})
	}
	return bars
}

func sortedPoints(points []marketindex.ChartPoint) []marketindex.ChartPoint {
	out := make([]marketindex.ChartPoint, len(points))
	copy(out, points)
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}
