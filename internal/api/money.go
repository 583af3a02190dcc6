package api

import (
	"fmt"
	"math"
	"strings"
)

// FormatPrice renders amount with the symbol of an ISO currency code, dropping
// the fraction when the amount is whole. Unknown codes are printed as a
// prefix. An empty code means INR.
func FormatPrice(currency string, amount float64) string {
	symbol := currencySymbol(currency)
	if amount == math.Trunc(amount) {
		return fmt.Sprintf("%s%.0f", symbol, amount)
	}
	return fmt.Sprintf("%s%.2f", symbol, amount)
}

func currencySymbol(currency string) string {
	code := strings.ToUpper(strings.TrimSpace(currency))
	switch code {
	case "", "INR":
		return "₹"
	case "USD":
		return "$"
	case "EUR":
		return "€"
	case "GBP":
		return "£"
	default:
		return code + " "
	}
}
