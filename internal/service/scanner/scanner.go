package scanner

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/KNICEX/market-scanner/internal/entity"
	"github.com/KNICEX/market-scanner/internal/service/dedup"
	"github.com/KNICEX/market-scanner/internal/service/discovery"
	"github.com/KNICEX/market-scanner/internal/service/exchange"
	"github.com/KNICEX/market-scanner/internal/service/marketdata"
	"github.com/KNICEX/market-scanner/internal/service/marketindex"
	"github.com/KNICEX/market-scanner/internal/service/notification"
	"github.com/KNICEX/market-scanner/internal/service/signal"
	"github.com/KNICEX/market-scanner/pkg/metricsx"
	"github.com/google/uuid"
)

type Config struct {
	DedupWindow time.Duration
	Thresholds  signal.Thresholds
	// Concurrency 每轮同时处理的候选数量上限
	Concurrency int
	HourlyLimit int
	FineLimit   int
	// MinHourlyBars 主数据源低于该根数时触发回退合成
	MinHourlyBars int

	// 指数兜底告警(交易所数据之外的24h涨幅扫描)
	IndexTop          int
	IndexSweepEnabled bool
	IndexMinPct       float64
	IndexMinVolumeUSD float64
}

func DefaultConfig() Config {
	return Config{
		DedupWindow:       6 * time.Hour,
		Thresholds:        signal.DefaultThresholds(),
		Concurrency:       4,
		HourlyLimit:       72,
		FineLimit:         8,
		MinHourlyBars:     signal.MinHourlyBars,
		IndexTop:          200,
		IndexSweepEnabled: true,
		IndexMinPct:       15.0,
		IndexMinVolumeUSD: 100000.0,
	}
}

type Scanner struct {
	discoverySvc *discovery.Service
	primary      marketdata.Source
	index        marketindex.Service
	engine       *signal.Engine
	ledger       *dedup.Ledger
	notifier     notification.Notifier
	recorder     *metricsx.Recorder
	cfg          Config
}

func NewScanner(
	discoverySvc *discovery.Service,
	primary marketdata.Source,
	index marketindex.Service,
	ledger *dedup.Ledger,
	notifier notification.Notifier,
	recorder *metricsx.Recorder,
	cfg Config,
) *Scanner {
	return &Scanner{
		discoverySvc: discoverySvc,
		primary:      primary,
		index:        index,
		engine:       signal.NewEngine(),
		ledger:       ledger,
		notifier:     notifier,
		recorder:     recorder,
		cfg:          cfg,
	}
}

// Scan 跑一轮完整扫描, 返回本轮发出告警的 asset key 列表
// 单个候选的任何失败只影响它自己, 不会中断整轮扫描
func (s *Scanner) Scan(ctx context.Context) ([]string, error) {
	passID := uuid.NewString()
	logger := slog.With("pass", passID)
	start := time.Now()
	logger.Info("scan pass started")

	coins, err := s.index.TopMarkets(ctx, s.cfg.IndexTop)
	if err != nil {
		logger.Error("failed to load index markets, fallback synthesis disabled for this pass", "error", err)
		s.recorder.RecordError("index")
		coins = nil
	}

	// 符号到指数coin id的映射每轮重建一次, 不做进程级缓存
	lookup := marketindex.BuildSymbolLookup(coins)
	source := marketdata.NewCompositeSource(
		s.primary,
		marketdata.NewFallbackSource(s.index, lookup),
		map[exchange.Interval]int{
			exchange.Interval1h:  s.cfg.MinHourlyBars,
			exchange.Interval15m: 1,
		},
	)

	candidates := s.discoverySvc.Discover(ctx)

	var (
		mu      sync.Mutex
		alerted []string
		wg      sync.WaitGroup
	)
	sem := make(chan struct{}, s.cfg.Concurrency)

	for _, cand := range candidates {
		// 超过整轮截止时间后不再调度新的候选, 在途的让它跑完
		if ctx.Err() != nil {
			logger.Warn("pass deadline reached, stop scheduling candidates")
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(cand discovery.Candidate) {
			defer wg.Done()
			defer func() { <-sem }()
			if key, ok := s.processCandidate(ctx, logger, source, cand); ok {
				mu.Lock()
				alerted = append(alerted, key)
				mu.Unlock()
			}
		}(cand)
	}
	wg.Wait()

	if s.cfg.IndexSweepEnabled {
		alerted = append(alerted, s.indexSweep(ctx, logger, coins, alerted)...)
	}

	s.recorder.RecordPass(time.Since(start))
	logger.Info("scan pass finished",
		"candidates", len(candidates),
		"alerts", len(alerted),
		"duration", time.Since(start))
	return alerted, nil
}

// processCandidate 返回 (assetKey, 是否发出了告警)
func (s *Scanner) processCandidate(ctx context.Context, logger *slog.Logger, source marketdata.Source, cand discovery.Candidate) (string, bool) {
	s.recorder.RecordCandidate()

	hourly, err := source.Bars(ctx, cand, exchange.Interval1h, s.cfg.HourlyLimit)
	if err != nil {
		logger.Debug("skip candidate, no hourly bars", "candidate", cand.AssetKey(), "error", err)
		return "", false
	}
	fine, err := source.Bars(ctx, cand, exchange.Interval15m, s.cfg.FineLimit)
	if err != nil {
		logger.Debug("skip candidate, no fine bars", "candidate", cand.AssetKey(), "error", err)
		return "", false
	}

	vector := s.engine.Compute(hourly, fine)
	if !vector.Complete() {
		logger.Debug("skip candidate, insufficient metrics", "candidate", cand.AssetKey())
		return "", false
	}
	if !s.cfg.Thresholds.Evaluate(vector) {
		return "", false
	}

	key := cand.AssetKey()
	release := s.ledger.Acquire(key)
	defer release()

	if s.ledger.WasAlertedRecently(ctx, key, s.cfg.DedupWindow) {
		logger.Info("skip recent alert", "assetKey", key)
		return "", false
	}

	text := formatIndicatorAlert(cand, vector)
	if err := s.notifier.Notify(ctx, text); err != nil {
		// 发送失败不写账本, 避免把去重窗口花在一条没人收到的消息上
		logger.Error("failed to deliver alert", "assetKey", key, "error", err)
		s.recorder.RecordError("notify")
		return "", false
	}

	if err := s.ledger.Record(ctx, entity.Alert{
		AssetKey:  key,
		Symbol:    cand.Pair.Base,
		AlertType: entity.AlertTypeIndicator,
		Pct:       *vector.PricePct15vs1h,
		Volume:    *vector.VolumeChangePct24h,
	}); err != nil {
		logger.Error("failed to record alert", "assetKey", key, "error", err)
		s.recorder.RecordError("ledger")
	}
	s.recorder.RecordAlert(entity.AlertTypeIndicator)
	logger.Info("alert sent", "assetKey", key,
		"volPct", *vector.VolumeChangePct24h,
		"pricePct", *vector.PricePct15vs1h,
		"rsi", *vector.RSI1h)
	return key, true
}

// indexSweep 交易所数据覆盖不到的币种, 用指数24h涨幅做兜底告警
func (s *Scanner) indexSweep(ctx context.Context, logger *slog.Logger, coins []marketindex.CoinMarket, already []string) []string {
	// already 里是 "exchange:BASE" 形式的 asset key, 取符号部分和指数符号对齐
	seen := make(map[string]struct{}, len(already))
	for _, key := range already {
		if i := strings.LastIndex(key, ":"); i >= 0 {
			seen[strings.ToUpper(key[i+1:])] = struct{}{}
		}
	}

	var alerted []string
	for _, coin := range coins {
		if ctx.Err() != nil {
			break
		}
		if _, ok := seen[strings.ToUpper(coin.Symbol)]; ok {
			continue
		}
		if coin.PriceChangePct24h < s.cfg.IndexMinPct {
			continue
		}
		vol := coin.Volume24h.InexactFloat64()
		if vol < s.cfg.IndexMinVolumeUSD {
			continue
		}

		release := s.ledger.Acquire(coin.ID)
		if s.ledger.WasAlertedRecently(ctx, coin.ID, s.cfg.DedupWindow) {
			release()
			continue
		}

		text := formatIndexAlert(coin)
		if err := s.notifier.Notify(ctx, text); err != nil {
			logger.Error("failed to deliver index alert", "coin", coin.ID, "error", err)
			s.recorder.RecordError("notify")
			release()
			continue
		}
		if err := s.ledger.Record(ctx, entity.Alert{
			AssetKey:  coin.ID,
			Symbol:    coin.Symbol,
			AlertType: entity.AlertType24hPct,
			Pct:       coin.PriceChangePct24h,
			Volume:    vol,
		}); err != nil {
			logger.Error("failed to record index alert", "coin", coin.ID, "error", err)
			s.recorder.RecordError("ledger")
		}
		release()
		s.recorder.RecordAlert(entity.AlertType24hPct)
		alerted = append(alerted, coin.ID)
	}
	return alerted
}
