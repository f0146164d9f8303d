package decimalx

import "github.com/shopspring/decimal"

// MustFromString 只用于解析进程自身的配置常量, 非法输入直接panic
func MustFromString(s string) decimal.Decimal {
	res, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return res
}
