package dedup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/KNICEX/market-scanner/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryAlertRepo struct {
	mu      sync.Mutex
	alerts  []entity.Alert
	readErr error
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
	if r.readErr != nil {
		return false, r.readErr
	}
	for _, a := range r.alerts {
		if a.AssetKey == assetKey && !a.AlertTime.Before(cutoff) {
			return true, nil
		}
	}
	return false, nil
}

func TestLedger_RecencyWindow(t *testing.T) {
	repo := &memoryAlertRepo{}
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	ledger := NewLedger(repo, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	assert.False(t, ledger.WasAlertedRecently(ctx, "binance:BTC", 6*time.Hour))

	err := ledger.Record(ctx, entity.Alert{AssetKey: "binance:BTC", Symbol: "BTC"})
	require.NoError(t, err)

	// 刚记录过, 窗口内命中
	assert.True(t, ledger.WasAlertedRecently(ctx, "binance:BTC", 6*time.Hour))
	// 其他key不受影响
	assert.False(t, ledger.WasAlertedRecently(ctx, "binance:ETH", 6*time.Hour))

	// 时钟前进2小时仍在窗口内
	now = now.Add(2 * time.Hour)
	assert.True(t, ledger.WasAlertedRecently(ctx, "binance:BTC", 6*time.Hour))

	// 超过6小时后窗口过期
	now = now.Add(5 * time.Hour)
	assert.False(t, ledger.WasAlertedRecently(ctx, "binance:BTC", 6*time.Hour))
}

func TestLedger_RecordUsesLedgerClock(t *testing.T) {
	repo := &memoryAlertRepo{}
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	ledger := NewLedger(repo, WithClock(func() time.Time { return now }))

	err := ledger.Record(context.Background(), entity.Alert{
		AssetKey: "binance:BTC",
		// 调用方填的时间会被账本时钟覆盖
		AlertTime: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, now, repo.alerts[0].AlertTime)
}

func TestLedger_ReadFailurePolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("fail open by default", func(t *testing.T) {
		repo := &memoryAlertRepo{readErr: errors.New("connection refused")}
		ledger := NewLedger(repo)
		// 账本不可读时宁可重复告警, 视为最近未告警
		assert.False(t, ledger.WasAlertedRecently(ctx, "binance:BTC", 6*time.Hour))
	})

	t.Run("fail closed when configured", func(t *testing.T) {
		repo := &memoryAlertRepo{readErr: errors.New("connection refused")}
		ledger := NewLedger(repo, WithFailClosed(true))
		assert.True(t, ledger.WasAlertedRecently(ctx, "binance:BTC", 6*time.Hour))
	})
}

func TestLedger_AcquireSerializesSameKey(t *testing.T) {
	ledger := NewLedger(&memoryAlertRepo{})

	release := ledger.Acquire("binance:BTC")

	acquired := make(chan struct{})
	released := make(chan struct{})
	go func() {
		r := ledger.Acquire("binance:BTC")
		close(acquired)
		r()
		close(released)
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire should block while the key is held")
	case <-time.After(50 * time.Millisecond):
	}

	// 不同key不互斥
	other := ledger.Acquire("binance:ETH")
	other()

	release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second acquire should proceed after release")
	}

	// 全部释放后key状态被回收, 锁map不随历史key数量增长
	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("goroutine should release the key")
	}
	ledger.mu.Lock()
	assert.Empty(t, ledger.keys)
	ledger.mu.Unlock()
}

func TestLedger_AcquireDoesNotLeakKeys(t *testing.T) {
	ledger := NewLedger(&memoryAlertRepo{})

	for i := 0; i < 100; i++ {
		release := ledger.Acquire("binance:COIN" + string(rune('A'+i%26)))
		release()
	}

	ledger.mu.Lock()
	assert.Empty(t, ledger.keys)
	ledger.mu.Unlock()
}
