package exchange

import (
	"context"

	"golang.org/x/time/rate"
)

// ThrottledMarketService 在每次请求前等待令牌, 避免触发交易所限流
type ThrottledMarketService struct {
	inner   MarketService
	limiter *rate.Limiter
}

var _ MarketService = (*ThrottledMarketService)(nil)

// NewThrottledMarketService rps 为该交易所允许的每秒请求数
func NewThrottledMarketService(inner MarketService, rps float64) *ThrottledMarketService {
	return &ThrottledMarketService{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

func (s *ThrottledMarketService) GetKlines(ctx context.Context, pair TradingPair, interval Interval, limit int) ([]Kline, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return s.inner.GetKlines(ctx, pair, interval, limit)
}
