package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KNICEX/market-scanner/internal/schedule"
	"github.com/KNICEX/market-scanner/internal/service/dedup"
	"github.com/KNICEX/market-scanner/internal/service/discovery"
	"github.com/KNICEX/market-scanner/internal/service/marketdata"
	"github.com/KNICEX/market-scanner/internal/service/scanner"
	signalsvc "github.com/KNICEX/market-scanner/internal/service/signal"
	"github.com/KNICEX/market-scanner/ioc"
	"github.com/KNICEX/market-scanner/pkg/decimalx"
	"github.com/KNICEX/market-scanner/pkg/metricsx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func initViper() {
	// --config=./config/xxx.yaml
	file := pflag.String("config", "./config/config.yaml", "specify config file")
	pflag.Parse()

	// 秘钥走 .env / 环境变量, 其余配置走yaml
	_ = godotenv.Load()

	setDefaults()

	viper.SetConfigFile(*file)
	err := viper.ReadInConfig()
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %s \n", err))
	}
}

func setDefaults() {
	viper.SetDefault("scan.interval_sec", 300)
	viper.SetDefault("scan.pass_timeout_sec", 240)
	viper.SetDefault("scan.concurrency", 4)
	viper.SetDefault("scan.requests_per_second", 2.5)
	viper.SetDefault("discovery.min_quote_volume_usd", 10000)
	viper.SetDefault("bars.hourly_limit", 72)
	viper.SetDefault("bars.fine_limit", 8)
	viper.SetDefault("bars.min_hourly", signalsvc.MinHourlyBars)
	viper.SetDefault("rules.volume_change_min_pct", 150.0)
	viper.SetDefault("rules.price_min_pct", 3.0)
	viper.SetDefault("rules.price_max_pct", 15.0)
	viper.SetDefault("rules.rsi_min", 50.0)
	viper.SetDefault("rules.rsi_max", 70.0)
	viper.SetDefault("dedup.window_hours", 6)
	viper.SetDefault("dedup.fail_closed", false)
	viper.SetDefault("index.top", 200)
	viper.SetDefault("index.sweep_enabled", true)
	viper.SetDefault("index.min_pct", 15.0)
	viper.SetDefault("index.min_volume_usd", 100000.0)
}

func scanConfig() scanner.Config {
	cfg := scanner.DefaultConfig()
	cfg.DedupWindow = time.Duration(viper.GetInt("dedup.window_hours")) * time.Hour
	cfg.Concurrency = viper.GetInt("scan.concurrency")
	cfg.HourlyLimit = viper.GetInt("bars.hourly_limit")
	cfg.FineLimit = viper.GetInt("bars.fine_limit")
	cfg.MinHourlyBars = viper.GetInt("bars.min_hourly")
	cfg.Thresholds = signalsvc.Thresholds{
		VolumeChangeMinPct: viper.GetFloat64("rules.volume_change_min_pct"),
		PriceMinPct:        viper.GetFloat64("rules.price_min_pct"),
		PriceMaxPct:        viper.GetFloat64("rules.price_max_pct"),
		RSIMin:             viper.GetFloat64("rules.rsi_min"),
		RSIMax:             viper.GetFloat64("rules.rsi_max"),
	}
	cfg.IndexTop = viper.GetInt("index.top")
	cfg.IndexSweepEnabled = viper.GetBool("index.sweep_enabled")
	cfg.IndexMinPct = viper.GetFloat64("index.min_pct")
	cfg.IndexMinVolumeUSD = viper.GetFloat64("index.min_volume_usd")
	return cfg
}

func main() {
	initViper()

	alertRepo := ioc.InitAlertRepo()
	ledger := dedup.NewLedger(alertRepo, dedup.WithFailClosed(viper.GetBool("dedup.fail_closed")))

	markets, symbols, order := ioc.InitExchanges()
	indexSvc := ioc.InitMarketIndex()
	notifier := ioc.InitNotifier()
	recorder := metricsx.New(prometheus.DefaultRegisterer)

	discoverySvc := discovery.NewService(symbols, order, discovery.Config{
		MinQuoteVolume: decimalx.MustFromString(viper.GetString("discovery.min_quote_volume_usd")),
		MaxCandidates:  viper.GetInt("discovery.max_candidates"),
		AcceptedQuotes: viper.GetStringSlice("discovery.accepted_quotes"),
	})

	scan := scanner.NewScanner(
		discoverySvc,
		marketdata.NewExchangeSource(markets),
		indexSvc,
		ledger,
		notifier,
		recorder,
		scanConfig(),
	)

	if addr := viper.GetString("metrics.addr"); addr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(addr, mux); err != nil {
				slog.Error("metrics server stopped", "error", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	task := scanner.NewScanTask(scan, time.Duration(viper.GetInt("scan.pass_timeout_sec"))*time.Second)
	runner := schedule.NewRunner(task, time.Duration(viper.GetInt("scan.interval_sec"))*time.Second)
	runner.Start(ctx)
}
