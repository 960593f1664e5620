package service

import "github.com/shopspring/decimal"

// calculateFee вычисляет комиссию: max(минимальная, сумма × ставка).
// Дробный результат округляется вверх, чтобы комиссия не терялась на
// округлении минимальных единиц.
func calculateFee(amount int64, rate decimal.Decimal, minFee int64) int64 {
	fee := decimal.NewFromInt(amount).Mul(rate).Ceil().IntPart()
	if fee < minFee {
		return minFee
	}
	return fee
}
