package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestCorrelationRoundTrip(t *testing.T) {
	ts := time.Unix(0, 1700000000123456789)
	p := Payment{
		Counterparty:    "bob",
		Amount:          decimal.RequireFromString("27"),
		Currency:        CurrencyUSD,
		CorrelationText: EncodeCorrelation(ts),
	}

	key, err := p.CorrelationKey("alice")
	if err != nil {
		t.Fatalf("correlation key: %v", err)
	}
	want := NewOrderKey("alice", CurrencyUSD, ts)
	if key != want {
		t.Errorf("got %v, want %v", key, want)
	}
}

func TestCorrelationParseFailure(t *testing.T) {
	p := Payment{CorrelationText: "garbage", Currency: CurrencyUSD}
	if _, err := p.CorrelationKey("alice"); err == nil {
		t.Error("expected parse error")
	}
}

func TestFingerprintDistinguishesPayments(t *testing.T) {
	base := Payment{
		Counterparty:    "bob",
		Amount:          decimal.RequireFromString("27"),
		Currency:        CurrencyUSD,
		CorrelationText: "1700000000000000000",
	}
	other := base
	other.Amount = decimal.RequireFromString("13.5")

	if base.Fingerprint() == other.Fingerprint() {
		t.Error("payments with different amounts must not collide")
	}
	if base.Fingerprint() != base.Fingerprint() {
		t.Error("fingerprint must be stable")
	}
}

func TestCurrencyBySymbol(t *testing.T) {
	c, err := CurrencyBySymbol("USD")
	if err != nil || c != CurrencyUSD {
		t.Errorf("got %v, %v", c, err)
	}
	if _, err := CurrencyBySymbol("XYZ"); err == nil {
		t.Error("expected error for unknown symbol")
	}
}

func TestOrderAvailableAndNotional(t *testing.T) {
	o := Order{
		Quantity: decimal.RequireFromString("5"),
		Reserved: decimal.RequireFromString("2"),
		Price:    decimal.RequireFromString("9"),
	}
	if !o.Available().Equal(decimal.RequireFromString("3")) {
		t.Errorf("available = %s", o.Available())
	}
	if !o.Notional().Equal(decimal.RequireFromString("45")) {
		t.Errorf("notional = %s", o.Notional())
	}
}
