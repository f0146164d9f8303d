package schedule

import "context"

// Task 一个可以被周期调度的任务
type Task interface {
	Run(ctx context.Context) error
	Name() string
}
