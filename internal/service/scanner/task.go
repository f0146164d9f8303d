package scanner

import (
	"context"
	"time"

	"github.com/KNICEX/market-scanner/internal/schedule"
)

// ScanTask 把扫描器适配成调度任务, 并给每轮加整体截止时间
type ScanTask struct {
	scanner     *Scanner
	passTimeout time.Duration
}

func NewScanTask(scanner *Scanner, passTimeout time.Duration) schedule.Task {
	return &ScanTask{
		scanner:     scanner,
		passTimeout: passTimeout,
	}
}

func (t *ScanTask) Run(ctx context.Context) error {
	if t.passTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.passTimeout)
		defer cancel()
	}
	_, err := t.scanner.Scan(ctx)
	return err
}

func (t *ScanTask) Name() string {
	return "market scan task"
}
