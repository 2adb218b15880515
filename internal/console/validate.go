package console

import (
	"math"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ErrInvalidAmount 金额不是有限正数
var ErrInvalidAmount = errors.New("amount must be a finite positive number")

// ParseAmount 解析用户输入的金额；空串、非数字、非有限值、<=0 都返回 ErrInvalidAmount
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	// 超出 float64 范围的值发到服务端会变成 Infinity
	if f, _ := d.Float64(); math.IsInf(f, 0) || math.IsNaN(f) {
		return decimal.Zero, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}
