package types

import "testing"

func buildSeries(closes ...float64) Series {
	s := make(Series, len(closes))
	for i, c := range closes {
		s[i] = PriceBar{Close: c, High: c + 1, Low: c - 1, Volume: 100}
	}
	return s
}

func TestSeriesHelpers(t *testing.T) {
	s := buildSeries(1, 2, 3, 4, 5)

	closes := s.Closes()
	if len(closes) != 5 || closes[4] != 5 {
		t.Fatalf("unexpected closes: %v", closes)
	}

	last, ok := s.Last()
	if !ok || last.Close != 5 {
		t.Fatalf("unexpected last bar: %+v (ok %v)", last, ok)
	}

	tail := s.Tail(2)
	if len(tail) != 2 || tail[0].Close != 4 {
		t.Fatalf("unexpected tail: %v", tail.Closes())
	}
	if got := s.Tail(10); len(got) != 5 {
		t.Fatalf("oversized tail must return the whole series, got %d bars", len(got))
	}
}

func TestSeriesEmpty(t *testing.T) {
	var s Series
	if _, ok := s.Last(); ok {
		t.Fatal("empty series has no last bar")
	}
	if len(s.Closes()) != 0 {
		t.Fatal("empty series has no closes")
	}
}

func TestTradingSignalActionable(t *testing.T) {
	if (TradingSignal{Direction: Flat, Size: 1}).Actionable() {
		t.Fatal("flat signal is never actionable")
	}
	if (TradingSignal{Direction: Long, Size: 0}).Actionable() {
		t.Fatal("zero-size signal is not actionable")
	}
	if !(TradingSignal{Direction: Short, Size: 2}).Actionable() {
		t.Fatal("sized directional signal must be actionable")
	}
}
