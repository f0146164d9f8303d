package scanner

import (
	"fmt"
	"strings"

	"github.com/KNICEX/market-scanner/internal/service/discovery"
	"github.com/KNICEX/market-scanner/internal/service/marketindex"
	"github.com/KNICEX/market-scanner/internal/service/signal"
)

func formatIndicatorAlert(cand discovery.Candidate, v signal.Vector) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ALERT %s (%s)\n", cand.Pair.ToSlashString(), cand.ExchangeID)
	if v.LastClose != nil {
		fmt.Fprintf(&b, "Price: $%.8f\n", *v.LastClose)
	}
	fmt.Fprintf(&b, "Vol change 24h: %.1f%%\n", *v.VolumeChangePct24h)
	fmt.Fprintf(&b, "Price 15m vs 1h: %.2f%%\n", *v.PricePct15vs1h)
	fmt.Fprintf(&b, "RSI 1h: %.1f\n", *v.RSI1h)
	fmt.Fprintf(&b, "MACD bullish crossover: %v", v.MACDBullishCross)
	return b.String()
}

func formatIndexAlert(coin marketindex.CoinMarket) string {
	var b strings.Builder
	fmt.Fprintf(&b, "INDEX ALERT: %s / %s\n", strings.ToUpper(coin.Symbol), coin.Name)
	fmt.Fprintf(&b, "Price: $%s\n", coin.CurrentPrice.String())
	fmt.Fprintf(&b, "24h Change: %.2f%%\n", coin.PriceChangePct24h)
	fmt.Fprintf(&b, "24h Volume: $%s\n", coin.Volume24h.Round(0).String())
	fmt.Fprintf(&b, "https://www.coingecko.com/en/coins/%s", coin.ID)
	return b.String()
}
