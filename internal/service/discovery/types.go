package discovery

import (
	"fmt"

	"github.com/KNICEX/market-scanner/internal/service/exchange"
	"github.com/shopspring/decimal"
)

// Candidate 一轮扫描中的候选标的, 同一基础币种在不同交易所是不同的候选
type Candidate struct {
	ExchangeID string
	Pair       exchange.TradingPair
	// EstimatedVolume 交易所上报的24h成交额估计, HasVolume 为 false 时未知
	EstimatedVolume decimal.Decimal
	HasVolume       bool
}

// AssetKey 去重标识 exchange:base
func (c Candidate) AssetKey() string {
	return fmt.Sprintf("%s:%s", c.ExchangeID, c.Pair.Base)
}
