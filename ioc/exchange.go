package ioc

import (
	"log/slog"

	internalbinance "github.com/KNICEX/market-scanner/internal/service/exchange/binance"

	"github.com/KNICEX/market-scanner/internal/service/exchange"
	"github.com/adshao/go-binance/v2"
	"github.com/spf13/viper"
)

// InitExchanges 按配置的交易所列表构建市场/符号服务
// 返回的顺序与配置一致, 用于保证候选枚举顺序稳定
func InitExchanges() (map[string]exchange.MarketService, map[string]exchange.SymbolService, []string) {
	type Config struct {
		Exchanges         []string `mapstructure:"exchanges"`
		RequestsPerSecond float64  `mapstructure:"requests_per_second"`
	}

	var cfg Config
	if err := viper.UnmarshalKey("scan", &cfg); err != nil {
		panic(err)
	}
	if len(cfg.Exchanges) == 0 {
		cfg.Exchanges = []string{"binance"}
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2.5 // 等价于请求间隔0.4s
	}

	markets := make(map[string]exchange.MarketService)
	symbols := make(map[string]exchange.SymbolService)
	var order []string

	for _, name := range cfg.Exchanges {
		switch name {
		case "binance":
			cli := InitBinanceCli()
			markets[name] = exchange.NewThrottledMarketService(
				internalbinance.NewMarketService(cli), cfg.RequestsPerSecond)
			symbols[name] = internalbinance.NewSymbolService(cli)
			order = append(order, name)
		default:
			slog.Warn("unsupported exchange in config, skipped", "exchange", name)
		}
	}
	if len(order) == 0 {
		panic("no usable exchange configured")
	}
	return markets, symbols, order
}

func InitBinanceCli() *binance.Client {
	type Config struct {
		ApiKey    string `mapstructure:"api_key"`
		ApiSecret string `mapstructure:"api_secret"`
	}

	var cfg Config
	if err := viper.UnmarshalKey("cex.binance", &cfg); err != nil {
		panic(err)
	}

	return binance.NewClient(cfg.ApiKey, cfg.ApiSecret)
}
