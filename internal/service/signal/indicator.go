package signal

// EMA 指数移动平均, 以首个值作为种子
// 返回与输入等长的序列, k = 2/(n+1)
func EMA(values []float64, period int) []float64 {
	if len(values) == 0 || period <= 0 {
		return nil
	}
	k := 2.0 / (float64(period) + 1.0)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = values[i]*k + out[i-1]*(1.0-k)
	}
	return out
}

// RSI Wilder平滑的相对强弱指数
// 前 period 个涨跌幅的简单均值作为种子, 之后 avg = (prev*(period-1) + cur) / period
// 数据不足以产生有效值时 ok 为 false
func RSI(closes []float64, period int) (value float64, ok bool) {
	if period <= 0 || len(closes) < period+1 {
		return 0, false
	}

	var gainSum, lossSum float64
	for i := 1; i <= period; i++ {
		diff := closes[i] - closes[i-1]
		if diff > 0 {
			gainSum += diff
		} else {
			lossSum -= diff
		}
	}
	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)

	for i := period + 1; i < len(closes); i++ {
		diff := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if diff > 0 {
			gain = diff
		} else {
			loss = -diff
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100, true
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), true
}

// MACDCross 判断最后一步是否发生MACD金叉
// MACD线 = EMA(fast) - EMA(slow), 信号线 = MACD线的EMA(signalPeriod)
// 仅当前一根在信号线下方且当前这根到达或越过信号线时为 true
func MACDCross(closes []float64, fast, slow, signalPeriod int) bool {
	if len(closes) < 2 {
		return false
	}
	emaFast := EMA(closes, fast)
	emaSlow := EMA(closes, slow)
	macd := make([]float64, len(closes))
	for i := range closes {
		macd[i] = emaFast[i] - emaSlow[i]
	}
	signalLine := EMA(macd, signalPeriod)

	n := len(macd)
	prevBelow := macd[n-2] < signalLine[n-2]
	curAtOrAbove := macd[n-1] >= signalLine[n-1]
	return prevBelow && curAtOrAbove
}
