package dedup

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/KNICEX/market-scanner/internal/entity"
	"github.com/KNICEX/market-scanner/internal/repo"
)

// Ledger 告警去重账本
// 同一 asset key 的检查和写入通过 per-key 锁串行化, 不同 key 互不影响
type Ledger struct {
	repo repo.AlertRepo
	// failClosed 为 false 时(默认), 账本读取失败视为"最近未告警",
	// 宁可重复告警也不漏报, 这是刻意保留的策略
	failClosed bool
	now        func() time.Time

	mu   sync.Mutex
	keys map[string]*keyLock
}

type keyLock struct {
	mu sync.Mutex
	// refs 持有或等待该key的调用方数量, 归零时从map里移除
	refs int
}

type Option func(l *Ledger)

func WithFailClosed(failClosed bool) Option {
	return func(l *Ledger) {
		l.failClosed = failClosed
	}
}

// WithClock 测试用, 替换账本时钟
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

func NewLedger(alertRepo repo.AlertRepo, opts ...Option) *Ledger {
	l := &Ledger{
		repo: alertRepo,
		now:  time.Now,
		keys: make(map[string]*keyLock),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire 锁住一个 asset key, 调用方在检查-发送-记录整个窗口内持有
func (l *Ledger) Acquire(assetKey string) (release func()) {
	l.mu.Lock()
	lock, ok := l.keys[assetKey]
	if !ok {
		lock = &keyLock{}
		l.keys[assetKey] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		l.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.keys, assetKey)
		}
		l.mu.Unlock()
	}
}

func (l *Ledger) WasAlertedRecently(ctx context.Context, assetKey string, window time.Duration) bool {
	cutoff := l.now().Add(-window)
	exists, err := l.repo.ExistsSince(ctx, assetKey, cutoff)
	if err != nil {
		slog.Error("ledger read failed", "assetKey", assetKey, "failClosed", l.failClosed, "error", err)
		return l.failClosed
	}
	return exists
}

// Record 写入一条告警记录, 告警时间取账本时钟而不是扫描开始时间
func (l *Ledger) Record(ctx context.Context, alert entity.Alert) error {
	alert.AlertTime = l.now()
	_, err := l.repo.Create(ctx, alert)
	return err
}
