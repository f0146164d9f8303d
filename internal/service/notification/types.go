package notification

import "context"

// Notifier 告警消息发送通道, 消息内容由调用方组装
type Notifier interface {
	Notify(ctx context.Context, text string) error
}
