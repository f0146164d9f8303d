package ioc

import (
	"os"
	"strconv"

	"github.com/KNICEX/market-scanner/internal/service/notification"
	"github.com/KNICEX/market-scanner/internal/service/notification/telegram"
	"github.com/spf13/viper"
)

// InitNotifier 默认使用telegram通道, notify.dry_run 时只打印到控制台
// 凭证缺失是配置错误, 进程拒绝启动
func InitNotifier() notification.Notifier {
	if viper.GetBool("notify.dry_run") {
		return notification.ConsoleNotifier{}
	}

	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	chatIDRaw := os.Getenv("TELEGRAM_CHAT_ID")
	if token == "" || chatIDRaw == "" {
		panic("set TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID in environment")
	}
	chatID, err := strconv.ParseInt(chatIDRaw, 10, 64)
	if err != nil {
		panic("TELEGRAM_CHAT_ID must be an integer: " + err.Error())
	}
	return telegram.NewService(token, chatID)
}
