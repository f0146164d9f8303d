package decimalx

import "github.com/shopspring/decimal"

func Sum(ds []decimal.Decimal) decimal.Decimal {
	var sum decimal.Decimal
	for _, d := range ds {
		sum = sum.Add(d)
	}
	return sum
}
