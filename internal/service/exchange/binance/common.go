package binance

import "github.com/shopspring/decimal"

func parseDecimals(fields []string) ([]decimal.Decimal, error) {
	out := make([]decimal.Decimal, len(fields))
	for i, f := range fields {
		d, err := decimal.NewFromString(f)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}
