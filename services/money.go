package services

import "github.com/shopspring/decimal"

// money converts a stored amount to a decimal rounded to cents.
func money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}

func moneyPtr(v *float64) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return money(*v)
}

func toFloat(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func floatPtr(d decimal.Decimal) *float64 {
	f := toFloat(d)
	return &f
}

// splitEvenly divides total into n cent-exact shares. Remainder cents go one
// each to the leading shares, so the shares always sum to total.
func splitEvenly(total decimal.Decimal, n int) []decimal.Decimal {
	if n <= 0 {
		return nil
	}
	cents := total.Shift(2).Round(0).IntPart()
	base := cents / int64(n)
	rem := cents % int64(n)

	shares := make([]decimal.Decimal, n)
	for i := range shares {
		c := base
		if int64(i) < rem {
			c++
		}
		shares[i] = decimal.New(c, -2)
	}
	return shares
}
