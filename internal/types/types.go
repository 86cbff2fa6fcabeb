// README: Common value objects shared across modules.
package types

// ID identifies loads, carriers, shippers, and matches.
type ID string

// Point is a geographic coordinate in decimal degrees.
type Point struct {
	Lat float64
	Lng float64
}

type Money struct {
	Amount   int64 // cents
	Currency string
}

// Dollars returns the amount as a float for display and rate math.
func (m Money) Dollars() float64 {
	return float64(m.Amount) / 100.0
}

// FromDollars builds a Money from a dollar amount, rounding to the nearest cent.
func FromDollars(v float64, currency string) Money {
	cents := int64(v*100 + 0.5)
	if v < 0 {
		cents = int64(v*100 - 0.5)
	}
	return Money{Amount: cents, Currency: currency}
}
