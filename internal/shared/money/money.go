package money

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Amount is a fixed-point currency amount in paise (minor units).
type Amount int64

const paisePerRupee = 100

func FromRupees(rupees float64) Amount {
	return Amount(math.Round(rupees * paisePerRupee))
}

func FromPaise(paise int64) Amount { return Amount(paise) }

// ParseRupees parses a decimal string like "500", "500.5" or "500.00".
func ParseRupees(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return FromRupees(f), nil
}

func (a Amount) Paise() int64 { return int64(a) }

func (a Amount) Rupees() float64 { return float64(a) / paisePerRupee }

func (a Amount) IsPositive() bool { return a > 0 }

// Percent returns p percent of the amount, rounded to the nearest paisa.
// Used for tax computation on order totals.
func (a Amount) Percent(p float64) Amount {
	return Amount(math.Round(float64(a) * p / 100))
}

func (a Amount) String() string { return Format("INR", a) }

// Format renders an amount with its currency symbol.
func Format(currency string, a Amount) string {
	major := a.Rupees()
	switch currency {
	case "INR":
		return fmt.Sprintf("₹%.2f", major)
	case "USD":
		return fmt.Sprintf("$%.2f", major)
	default:
		return fmt.Sprintf("%.2f %s", major, currency)
	}
}
