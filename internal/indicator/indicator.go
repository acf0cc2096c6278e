// Package indicator computes technical signals from price series. All
// functions are pure: identical inputs always yield identical signals, which
// is what makes backtests reproducible.
package indicator

import (
	"tradewind/internal/domain"
)

// MovingAverage returns the arithmetic mean of the last window prices ending
// at index end (inclusive). The caller must ensure end-window+1 >= 0.
func MovingAverage(s *domain.PriceSeries, end, window int) float64 {
	sum := 0.0
	for i := end - window + 1; i <= end; i++ {
		sum += s.At(i).Price
	}
	return sum / float64(window)
}

// ComputeSignal detects a moving-average crossover at the latest observation
// of the series. A flip from short<=long to short>long emits MA_CROSS_UP; the
// reverse flip emits MA_CROSS_DOWN.
//
// Fewer than longWindow observations is the expected pre-warmup state, not an
// error: the signal kind is NONE. A crossover additionally needs the ordering
// at the preceding observation, so the earliest possible flip is at
// longWindow+1 observations.
func ComputeSignal(s *domain.PriceSeries, shortWindow, longWindow int) domain.Signal {
	sig := domain.Signal{
		Kind:        domain.SignalNone,
		ShortWindow: shortWindow,
		LongWindow:  longWindow,
	}
	if shortWindow <= 0 || longWindow <= 0 || shortWindow >= longWindow {
		return sig
	}
	n := s.Len()
	if n < longWindow {
		return sig
	}

	curShort := MovingAverage(s, n-1, shortWindow)
	curLong := MovingAverage(s, n-1, longWindow)
	sig.Value = curShort - curLong

	if n < longWindow+1 {
		// No preceding ordering to compare against yet.
		return sig
	}

	prevShort := MovingAverage(s, n-2, shortWindow)
	prevLong := MovingAverage(s, n-2, longWindow)

	switch {
	case prevShort <= prevLong && curShort > curLong:
		sig.Kind = domain.SignalCrossUp
	case prevShort >= prevLong && curShort < curLong:
		sig.Kind = domain.SignalCrossDown
	}
	return sig
}
