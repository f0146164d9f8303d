package ioc

import (
	"time"

	"github.com/KNICEX/market-scanner/internal/service/marketindex"
	"github.com/KNICEX/market-scanner/internal/service/marketindex/coingecko"
	"github.com/spf13/viper"
)

func InitMarketIndex() marketindex.Service {
	type Config struct {
		BaseURL    string `mapstructure:"base_url"`
		TimeoutSec int    `mapstructure:"timeout_sec"`
		RetryCount int    `mapstructure:"retry_count"`
	}

	var cfg Config
	if err := viper.UnmarshalKey("coingecko", &cfg); err != nil {
		panic(err)
	}

	return coingecko.NewClient(coingecko.Config{
		BaseURL:    cfg.BaseURL,
		Timeout:    time.Duration(cfg.TimeoutSec) * time.Second,
		RetryCount: cfg.RetryCount,
	})
}
