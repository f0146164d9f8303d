package schedule

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Runner 按固定间隔运行任务
// 上一轮还没结束时跳过本次触发, 保证任务不会重入
type Runner struct {
	task     Task
	interval time.Duration
	running  atomic.Bool
}

func NewRunner(task Task, interval time.Duration) *Runner {
	return &Runner{
		task:     task,
		interval: interval,
	}
}

// Start 阻塞运行直到 ctx 取消, 启动时立刻跑一轮
func (r *Runner) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.tryRun(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tryRun(ctx)
		}
	}
}

func (r *Runner) tryRun(ctx context.Context) {
	if !r.running.CompareAndSwap(false, true) {
		slog.Warn("previous run still in progress, skip tick", "task", r.task.Name())
		return
	}
	go func() {
		defer r.running.Store(false)
		if err := r.task.Run(ctx); err != nil {
			slog.Error("task run failed", "task", r.task.Name(), "error", err)
		}
	}()
}
