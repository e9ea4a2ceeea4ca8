package model

import "fmt"

// Currency identifies the traded asset pair leg. Settlement itself runs on
// the escrow asset and is out of scope here.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyCHF Currency = "CHF"
	CurrencyJPY Currency = "JPY"
)

var currencies = map[string]Currency{
	"USD": CurrencyUSD,
	"EUR": CurrencyEUR,
	"GBP": CurrencyGBP,
	"CHF": CurrencyCHF,
	"JPY": CurrencyJPY,
}

func CurrencyBySymbol(symbol string) (Currency, error) {
	if c, ok := currencies[symbol]; ok {
		return c, nil
	}
	return "", fmt.Errorf("unknown currency symbol %q", symbol)
}
