package signal

// Thresholds 告警规则阈值, 所有条件同时成立才触发
type Thresholds struct {
	VolumeChangeMinPct float64
	PriceMinPct        float64
	PriceMaxPct        float64
	RSIMin             float64
	RSIMax             float64
}

// DefaultThresholds TradingView规则的默认值
func DefaultThresholds() Thresholds {
	return Thresholds{
		VolumeChangeMinPct: 150.0,
		PriceMinPct:        3.0,
		PriceMaxPct:        15.0,
		RSIMin:             50.0,
		RSIMax:             70.0,
	}
}

// Evaluate 数值指标缺失的向量直接视为无信号, 不参与规则判断
func (t Thresholds) Evaluate(v Vector) bool {
	if !v.Complete() {
		return false
	}
	if *v.VolumeChangePct24h < t.VolumeChangeMinPct {
		return false
	}
	if *v.PricePct15vs1h < t.PriceMinPct || *v.PricePct15vs1h > t.PriceMaxPct {
		return false
	}
	if *v.RSI1h < t.RSIMin || *v.RSI1h > t.RSIMax {
		return false
	}
	return v.MACDBullishCross
}
