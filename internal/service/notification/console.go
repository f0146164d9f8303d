package notification

import (
	"context"
	"fmt"
)

// ConsoleNotifier 打印到标准输出, dry-run 时使用
type ConsoleNotifier struct{}

var _ Notifier = ConsoleNotifier{}

func (c ConsoleNotifier) Notify(ctx context.Context, text string) error {
	fmt.Println(text)
	return nil
}
