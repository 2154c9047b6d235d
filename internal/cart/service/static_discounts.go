package service

import (
	"context"

	"github.com/shopspring/decimal"
)

// StaticDiscounts resolves codes from a fixed table. Amounts larger
// than the cart total are clamped by the aggregate, not here.
type StaticDiscounts struct {
	codes map[string]decimal.Decimal
}

func NewStaticDiscounts(codes map[string]decimal.Decimal) *StaticDiscounts {
	return &StaticDiscounts{codes: codes}
}

func (s *StaticDiscounts) Resolve(_ context.Context, code string, _ decimal.Decimal) (decimal.Decimal, error) {
	amount, ok := s.codes[code]
	if !ok {
		return decimal.Zero, ErrDiscountNotFound
	}
	return amount, nil
}
