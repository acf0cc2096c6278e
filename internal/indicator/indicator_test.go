package indicator

import (
	"testing"
	"time"

	"tradewind/internal/domain"
)

func seriesOf(t *testing.T, prices ...float64) *domain.PriceSeries {
	t.Helper()
	s := domain.NewPriceSeries("AAPL")
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i, p := range prices {
		o := domain.PriceObservation{
			InstrumentID: "AAPL",
			Timestamp:    base.AddDate(0, 0, i),
			Price:        p,
			Volume:       1000,
		}
		if err := s.Append(o); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	return s
}

func TestComputeSignalInsufficientHistory(t *testing.T) {
	// Anything shorter than the long window is pre-warmup: NONE, not an error.
	for n := 0; n < 5; n++ {
		prices := make([]float64, n)
		for i := range prices {
			prices[i] = 100
		}
		s := seriesOf(t, prices...)
		sig := ComputeSignal(s, 2, 5)
		if sig.Kind != domain.SignalNone {
			t.Errorf("len=%d: Kind = %q, want NONE", n, sig.Kind)
		}
	}
}

func TestComputeSignalCrossUp(t *testing.T) {
	// Five flat prices then a jump: short MA(2) crosses above long MA(5)
	// exactly at the last observation.
	s := seriesOf(t, 100, 100, 100, 100, 100, 110)

	sig := ComputeSignal(s, 2, 5)
	if sig.Kind != domain.SignalCrossUp {
		t.Fatalf("Kind = %q, want MA_CROSS_UP", sig.Kind)
	}
	// short MA = (100+110)/2 = 105, long MA = (100*4+110)/5 = 102.
	if got, want := sig.Value, 105.0-102.0; got != want {
		t.Errorf("Value = %v, want %v", got, want)
	}
	if sig.ShortWindow != 2 || sig.LongWindow != 5 {
		t.Errorf("windows = (%d,%d), want (2,5)", sig.ShortWindow, sig.LongWindow)
	}
}

func TestComputeSignalCrossDown(t *testing.T) {
	s := seriesOf(t, 100, 100, 100, 100, 100, 90)

	sig := ComputeSignal(s, 2, 5)
	if sig.Kind != domain.SignalCrossDown {
		t.Fatalf("Kind = %q, want MA_CROSS_DOWN", sig.Kind)
	}
}

func TestComputeSignalNoFlip(t *testing.T) {
	// Short MA already above long MA at both observations: no flip.
	s := seriesOf(t, 100, 100, 100, 100, 100, 110, 112)

	sig := ComputeSignal(s, 2, 5)
	if sig.Kind != domain.SignalNone {
		t.Errorf("Kind = %q, want NONE (no flip)", sig.Kind)
	}
}

func TestComputeSignalExactWarmup(t *testing.T) {
	// At exactly longWindow observations the current MAs exist but there is
	// no preceding ordering, so no crossover can be reported.
	s := seriesOf(t, 100, 100, 100, 100, 110)

	sig := ComputeSignal(s, 2, 5)
	if sig.Kind != domain.SignalNone {
		t.Errorf("Kind = %q, want NONE at exact warmup", sig.Kind)
	}
	if sig.Value == 0 {
		t.Error("Value should be populated once the long window is filled")
	}
}

func TestComputeSignalDeterministic(t *testing.T) {
	s := seriesOf(t, 100, 101, 99, 102, 98, 103, 104, 96, 105)

	a := ComputeSignal(s, 2, 5)
	b := ComputeSignal(s, 2, 5)
	if a != b {
		t.Errorf("repeated ComputeSignal differs: %+v vs %+v", a, b)
	}
}

func TestComputeSignalInvalidWindows(t *testing.T) {
	s := seriesOf(t, 100, 100, 100, 100, 100, 110)

	for _, tc := range [][2]int{{0, 5}, {2, 0}, {5, 5}, {5, 2}} {
		sig := ComputeSignal(s, tc[0], tc[1])
		if sig.Kind != domain.SignalNone {
			t.Errorf("windows (%d,%d): Kind = %q, want NONE", tc[0], tc[1], sig.Kind)
		}
	}
}
