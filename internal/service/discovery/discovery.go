package discovery

import (
	"context"
	"log/slog"

	"github.com/KNICEX/market-scanner/internal/service/exchange"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// 可接受的计价币种(稳定币/法币锚定)
var defaultAcceptedQuotes = []string{"USDT", "BUSD", "USDC", "USD"}

type Config struct {
	// MinQuoteVolume 24h成交额下限(USD等值), 仅对交易所上报了成交额的市场立即生效
	MinQuoteVolume decimal.Decimal
	// MaxCandidates 0 表示不限制
	MaxCandidates  int
	AcceptedQuotes []string
}

type Service struct {
	exchanges map[string]exchange.SymbolService
	order     []string
	cfg       Config
	accepted  map[string]struct{}
}

// NewService exchanges 按 order 给出的顺序枚举, 保证每轮候选顺序稳定
func NewService(exchanges map[string]exchange.SymbolService, order []string, cfg Config) *Service {
	quotes := cfg.AcceptedQuotes
	if len(quotes) == 0 {
		quotes = defaultAcceptedQuotes
	}
	return &Service{
		exchanges: exchanges,
		order:     order,
		cfg:       cfg,
		accepted: lo.SliceToMap(quotes, func(q string) (string, struct{}) {
			return q, struct{}{}
		}),
	}
}

// Discover 枚举所有配置交易所的市场并过滤出候选集合
// 单个交易所不可达只记录日志并跳过, 全部不可达时返回空集合而不是错误
func (s *Service) Discover(ctx context.Context) []Candidate {
	var candidates []Candidate
	for _, id := range s.order {
		svc, ok := s.exchanges[id]
		if !ok {
			continue
		}
		markets, err := svc.GetAllMarkets(ctx)
		if err != nil {
			slog.Error("failed to load exchange markets", "exchange", id, "error", err)
			continue
		}
		candidates = append(candidates, s.filter(id, markets)...)
		if s.cfg.MaxCandidates > 0 && len(candidates) >= s.cfg.MaxCandidates {
			candidates = candidates[:s.cfg.MaxCandidates]
			break
		}
	}
	slog.Info("discovery finished", "candidates", len(candidates))
	return candidates
}

func (s *Service) filter(exchangeID string, markets []exchange.Market) []Candidate {
	return lo.FilterMap(markets, func(m exchange.Market, index int) (Candidate, bool) {
		if _, ok := s.accepted[m.Pair.Quote]; !ok {
			return Candidate{}, false
		}
		// 交易所没有上报成交额时保留候选, 把流动性判断推迟给K线数据
		if m.HasVolume && m.QuoteVolume24h.LessThan(s.cfg.MinQuoteVolume) {
			return Candidate{}, false
		}
		return Candidate{
			ExchangeID:      exchangeID,
			Pair:            m.Pair,
			EstimatedVolume: m.QuoteVolume24h,
			HasVolume:       m.HasVolume,
		}, true
	})
}
