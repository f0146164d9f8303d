package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/KNICEX/market-scanner/internal/entity"
	"github.com/KNICEX/market-scanner/internal/service/dedup"
	"github.com/KNICEX/market-scanner/internal/service/discovery"
	"github.com/KNICEX/market-scanner/internal/service/exchange"
	"github.com/KNICEX/market-scanner/internal/service/marketdata"
	"github.com/KNICEX/market-scanner/internal/service/marketindex"
	"github.com/KNICEX/market-scanner/pkg/metricsx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryAlertRepo struct {
	mu     sync.Mutex
	alerts []entity.Alert
}

func (r *memoryAlertRepo) Create(ctx context.Context, alert entity.Alert) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, alert)
	return int64(len(r.alerts)), nil
}

func (r *memoryAlertRepo) ExistsSince(ctx context.Context, assetKey string, cutoff time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.alerts {
		if a.AssetKey == assetKey && !a.AlertTime.Before(cutoff) {
			return true, nil
		}
	}
	return false, nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (n *fakeNotifier) Notify(ctx context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.messages = append(n.messages, text)
	return nil
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

type fakeSymbolService struct {
	markets []exchange.Market
}

func (f *fakeSymbolService) GetAllMarkets(ctx context.Context) ([]exchange.Market, error) {
	return f.markets, nil
}

type fakeIndexService struct {
	coins []marketindex.CoinMarket
	err   error
}

func (f *fakeIndexService) TopMarkets(ctx context.Context, limit int) ([]marketindex.CoinMarket, error) {
	return f.coins, f.err
}

func (f *fakeIndexService) MarketChart(ctx context.Context, coinID string, days int) (marketindex.Chart, error) {
	return marketindex.Chart{}, marketindex.ErrUnavailable
}

// fakeBarsSource 以 "assetKey/interval" 为键返回固定K线
type fakeBarsSource struct {
	bars map[string][]exchange.Kline
}

func (f *fakeBarsSource) Bars(ctx context.Context, cand discovery.Candidate, interval exchange.Interval, limit int) ([]exchange.Kline, error) {
	klines, ok := f.bars[cand.AssetKey()+"/"+string(interval)]
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", cand.AssetKey(), interval, exchange.ErrNoData)
	}
	return klines, nil
}

// 先横盘再阴跌最后拉升3根, MACD在最后一根金叉
func triggeringCloses() []float64 {
	price := 100.0
	closes := make([]float64, 0, 72)
	for i := 0; i < 59; i++ {
		closes = append(closes, price)
	}
	for i := 0; i < 10; i++ {
		price *= 1 - 0.003
		closes = append(closes, price)
	}
	for i := 0; i < 3; i++ {
		price *= 1 + 0.01
		closes = append(closes, price)
	}
	return closes
}

// 72根小时K线: 最近24根成交量300, 之前24根100, 收盘价满足全部指标阈值
func triggeringHourly() []exchange.Kline {
	closes := triggeringCloses()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	klines := make([]exchange.Kline, len(closes))
	for i, c := range closes {
		volume := 10.0
		switch {
		case i >= len(closes)-24:
			volume = 12.5
		case i >= len(closes)-48:
			volume = 100.0 / 24.0
		}
		openTime := start.Add(time.Duration(i) * time.Hour)
		klines[i] = exchange.Kline{
			OpenTime:  openTime,
			CloseTime: openTime.Add(time.Hour),
			Open:      decimal.NewFromFloat(c),
			High:      decimal.NewFromFloat(c),
			Low:       decimal.NewFromFloat(c),
			Close:     decimal.NewFromFloat(c),
			Volume:    decimal.NewFromFloat(volume),
		}
	}
	return klines
}

func triggeringFine(hourly []exchange.Kline) []exchange.Kline {
	last := hourly[len(hourly)-2].Close.InexactFloat64() * 1.03
	start := time.Date(2025, 1, 4, 0, 0, 0, 0, time.UTC)
	return []exchange.Kline{{
		OpenTime:  start,
		CloseTime: start.Add(15 * time.Minute),
		Close:     decimal.NewFromFloat(last),
		Volume:    decimal.NewFromFloat(1),
	}}
}

type fixture struct {
	scanner  *Scanner
	repo     *memoryAlertRepo
	notifier *fakeNotifier
	now      *time.Time
}

func newFixture(t *testing.T, markets []exchange.Market, source marketdata.Source, index marketindex.Service, cfg Config) *fixture {
	t.Helper()
	repo := &memoryAlertRepo{}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := &fixture{repo: repo, notifier: &fakeNotifier{}, now: &now}

	ledger := dedup.NewLedger(repo, dedup.WithClock(func() time.Time { return *f.now }))
	discoverySvc := discovery.NewService(
		map[string]exchange.SymbolService{"binance": &fakeSymbolService{markets: markets}},
		[]string{"binance"},
		discovery.Config{MinQuoteVolume: decimal.NewFromInt(150_000)},
	)
	f.scanner = NewScanner(discoverySvc, source, index, ledger, f.notifier, metricsx.New(prometheus.NewRegistry()), cfg)
	return f
}

func btcMarket() exchange.Market {
	return exchange.Market{
		Pair:           exchange.TradingPair{Base: "BTC", Quote: "USDT"},
		QuoteVolume24h: decimal.NewFromInt(5_000_000),
		HasVolume:      true,
	}
}

func btcSource() *fakeBarsSource {
	hourly := triggeringHourly()
	return &fakeBarsSource{bars: map[string][]exchange.Kline{
		"binance:BTC/" + string(exchange.Interval1h):  hourly,
		"binance:BTC/" + string(exchange.Interval15m): triggeringFine(hourly),
	}}
}

func TestScanner_Scan_AlertFlow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IndexSweepEnabled = false
	f := newFixture(t, []exchange.Market{btcMarket()}, btcSource(), &fakeIndexService{}, cfg)

	alerted, err := f.scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"binance:BTC"}, alerted)

	require.Equal(t, 1, f.notifier.count())
	assert.Contains(t, f.notifier.messages[0], "ALERT BTC/USDT")
	assert.Contains(t, f.notifier.messages[0], "MACD bullish crossover: true")

	require.Len(t, f.repo.alerts, 1)
	alert := f.repo.alerts[0]
	assert.Equal(t, "binance:BTC", alert.AssetKey)
	assert.Equal(t, "BTC", alert.Symbol)
	assert.Equal(t, entity.AlertTypeIndicator, alert.AlertType)
	assert.InDelta(t, 3.0, alert.Pct, 0.01)
	assert.InDelta(t, 200.0, alert.Volume, 0.01)
}

func TestScanner_Scan_DedupWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IndexSweepEnabled = false
	f := newFixture(t, []exchange.Market{btcMarket()}, btcSource(), &fakeIndexService{}, cfg)
	ctx := context.Background()

	alerted, err := f.scanner.Scan(ctx)
	require.NoError(t, err)
	assert.Len(t, alerted, 1)

	// 窗口内的第二轮被抑制
	*f.now = f.now.Add(2 * time.Hour)
	alerted, err = f.scanner.Scan(ctx)
	require.NoError(t, err)
	assert.Empty(t, alerted)
	assert.Equal(t, 1, f.notifier.count())

	// 窗口过期后重新告警
	*f.now = f.now.Add(5 * time.Hour)
	alerted, err = f.scanner.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"binance:BTC"}, alerted)
	assert.Equal(t, 2, f.notifier.count())
	assert.Len(t, f.repo.alerts, 2)
}

func TestScanner_Scan_FailedDeliveryNotRecorded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IndexSweepEnabled = false
	f := newFixture(t, []exchange.Market{btcMarket()}, btcSource(), &fakeIndexService{}, cfg)
	f.notifier.err = errors.New("telegram: 502")
	ctx := context.Background()

	alerted, err := f.scanner.Scan(ctx)
	require.NoError(t, err)
	assert.Empty(t, alerted)
	assert.Empty(t, f.repo.alerts)

	// 投递恢复后下一轮立即告警, 去重窗口没有被失败的那条占用
	f.notifier.err = nil
	alerted, err = f.scanner.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"binance:BTC"}, alerted)
}

func TestScanner_Scan_NoSignalNoAlert(t *testing.T) {
	// 全程横盘: 成交量无变化, 价格无变化, 不可能触发
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	flat := make([]exchange.Kline, 72)
	for i := range flat {
		openTime := start.Add(time.Duration(i) * time.Hour)
		flat[i] = exchange.Kline{
			OpenTime:  openTime,
			CloseTime: openTime.Add(time.Hour),
			Close:     decimal.NewFromInt(100),
			Volume:    decimal.NewFromInt(10),
		}
	}
	source := &fakeBarsSource{bars: map[string][]exchange.Kline{
		"binance:BTC/" + string(exchange.Interval1h):  flat,
		"binance:BTC/" + string(exchange.Interval15m): flat[:1],
	}}

	cfg := DefaultConfig()
	cfg.IndexSweepEnabled = false
	f := newFixture(t, []exchange.Market{btcMarket()}, source, &fakeIndexService{}, cfg)

	alerted, err := f.scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Empty(t, alerted)
	assert.Equal(t, 0, f.notifier.count())
}

func TestScanner_Scan_MissingBarsSkipsCandidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IndexSweepEnabled = false
	f := newFixture(t, []exchange.Market{btcMarket()}, &fakeBarsSource{bars: map[string][]exchange.Kline{}}, &fakeIndexService{}, cfg)

	alerted, err := f.scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Empty(t, alerted)
}

func TestScanner_Scan_IndexSweep(t *testing.T) {
	coins := []marketindex.CoinMarket{
		{ID: "moon-coin", Symbol: "moon", Name: "Moon", CurrentPrice: decimal.NewFromFloat(0.5),
			Volume24h: decimal.NewFromInt(500_000), PriceChangePct24h: 22.5},
		{ID: "slow-coin", Symbol: "slow", Name: "Slow", CurrentPrice: decimal.NewFromInt(1),
			Volume24h: decimal.NewFromInt(500_000), PriceChangePct24h: 5.0},
		{ID: "thin-coin", Symbol: "thin", Name: "Thin", CurrentPrice: decimal.NewFromInt(1),
			Volume24h: decimal.NewFromInt(10_000), PriceChangePct24h: 30.0},
	}

	cfg := DefaultConfig()
	f := newFixture(t, nil, &fakeBarsSource{}, &fakeIndexService{coins: coins}, cfg)

	alerted, err := f.scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"moon-coin"}, alerted)

	require.Equal(t, 1, f.notifier.count())
	assert.Contains(t, f.notifier.messages[0], "INDEX ALERT: MOON / Moon")
	assert.Contains(t, f.notifier.messages[0], "coingecko.com/en/coins/moon-coin")

	require.Len(t, f.repo.alerts, 1)
	assert.Equal(t, entity.AlertType24hPct, f.repo.alerts[0].AlertType)
	assert.Equal(t, "moon-coin", f.repo.alerts[0].AssetKey)

	// 窗口内重复扫描不再告警
	alerted, err = f.scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Empty(t, alerted)
}

func TestScanner_Scan_IndexSweepSkipsAlreadyAlertedSymbol(t *testing.T) {
	// BTC 已经由指标规则告警, 指数兜底不应对同一符号重复告警
	coins := []marketindex.CoinMarket{
		{ID: "bitcoin", Symbol: "btc", Name: "Bitcoin", CurrentPrice: decimal.NewFromInt(60000),
			Volume24h: decimal.NewFromInt(1_000_000_000), PriceChangePct24h: 20.0},
	}

	cfg := DefaultConfig()
	f := newFixture(t, []exchange.Market{btcMarket()}, btcSource(), &fakeIndexService{coins: coins}, cfg)

	alerted, err := f.scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"binance:BTC"}, alerted)
	assert.Equal(t, 1, f.notifier.count())
}

// countingSource 记录取数次数
type countingSource struct {
	inner marketdata.Source
	calls atomic.Int32
}

func (c *countingSource) Bars(ctx context.Context, cand discovery.Candidate, interval exchange.Interval, limit int) ([]exchange.Kline, error) {
	c.calls.Add(1)
	return c.inner.Bars(ctx, cand, interval, limit)
}

func TestScanner_Scan_DeadlineStopsScheduling(t *testing.T) {
	// 50个都会触发的候选, 但整轮截止时间已过: 不再调度新候选, 也不发任何告警
	markets := make([]exchange.Market, 0, 50)
	bars := map[string][]exchange.Kline{}
	hourly := triggeringHourly()
	fine := triggeringFine(hourly)
	for i := 0; i < 50; i++ {
		base := fmt.Sprintf("COIN%02d", i)
		markets = append(markets, exchange.Market{
			Pair:           exchange.TradingPair{Base: base, Quote: "USDT"},
			QuoteVolume24h: decimal.NewFromInt(5_000_000),
			HasVolume:      true,
		})
		bars["binance:"+base+"/"+string(exchange.Interval1h)] = hourly
		bars["binance:"+base+"/"+string(exchange.Interval15m)] = fine
	}
	source := &countingSource{inner: &fakeBarsSource{bars: bars}}

	cfg := DefaultConfig()
	cfg.IndexSweepEnabled = false
	f := newFixture(t, markets, source, &fakeIndexService{}, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	alerted, err := f.scanner.Scan(ctx)
	require.NoError(t, err)
	assert.Empty(t, alerted)
	assert.Equal(t, int32(0), source.calls.Load())
	assert.Equal(t, 0, f.notifier.count())
	assert.Empty(t, f.repo.alerts)
}

func TestScanner_Scan_IndexUnavailable(t *testing.T) {
	// 指数服务不可用时整轮继续, 主数据源的候选照常处理
	cfg := DefaultConfig()
	f := newFixture(t, []exchange.Market{btcMarket()}, btcSource(), &fakeIndexService{err: marketindex.ErrUnavailable}, cfg)

	alerted, err := f.scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"binance:BTC"}, alerted)
}
