package journal

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/peertrade/tradecore/pkg/engine/model"
)

func sampleOrder(status model.Status) model.Order {
	return model.Order{
		Side:      model.Ask,
		Trader:    "alice",
		Currency:  model.CurrencyUSD,
		Quantity:  decimal.RequireFromString("3"),
		Price:     decimal.RequireFromString("9"),
		Timestamp: time.Unix(0, 1700000000000000000),
		Status:    status,
	}
}

func TestAppendAndEvents(t *testing.T) {
	j := New(4)
	now := time.Now()

	o := sampleOrder(model.StatusOpen)
	j.Append(model.NewOrderEvent(o, now))
	o.Status = model.StatusPartlyFilled
	j.Append(model.NewOrderEvent(o, now.Add(time.Second)))

	evs := j.Events(o.Key())
	if len(evs) != 2 {
		t.Fatalf("expected 2 events, got %d", len(evs))
	}
	if evs[0].Status != model.StatusOpen || evs[1].Status != model.StatusPartlyFilled {
		t.Errorf("event order wrong: %s, %s", evs[0].Status, evs[1].Status)
	}
}

func TestFeedReceivesEvents(t *testing.T) {
	j := New(4)
	ev := model.NewOrderEvent(sampleOrder(model.StatusOpen), time.Now())
	j.Append(ev)

	select {
	case got := <-j.Feed():
		if got.EventID != ev.EventID {
			t.Errorf("wrong event on feed")
		}
	default:
		t.Fatal("expected event on feed")
	}
}

func TestFullFeedDoesNotBlock(t *testing.T) {
	j := New(1)
	j.Append(model.NewOrderEvent(sampleOrder(model.StatusOpen), time.Now()))
	// second append must drop the feed copy, not stall
	j.Append(model.NewOrderEvent(sampleOrder(model.StatusPartlyFilled), time.Now()))

	o := sampleOrder(model.StatusOpen)
	if len(j.Events(o.Key())) != 2 {
		t.Errorf("history must keep both events")
	}
}

func TestSettledDedup(t *testing.T) {
	j := New(4)

	if !j.MarkSettled("fp-1") {
		t.Fatal("first mark must succeed")
	}
	if j.MarkSettled("fp-1") {
		t.Error("second mark must report duplicate")
	}
	if !j.Settled("fp-1") {
		t.Error("fingerprint must be recorded")
	}
	if j.Settled("fp-2") {
		t.Error("unknown fingerprint reported settled")
	}
}
