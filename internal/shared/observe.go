package shared

import "time"

// CalcObserver receives timings for derived-state calculations.
type CalcObserver interface {
	ObserveCalculation(calculator string, started time.Time, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveCalculation(string, time.Time, error) {}

// ObserverOrNop returns o, or a no-op observer when o is nil.
func ObserverOrNop(o CalcObserver) CalcObserver {
	if o == nil {
		return nopObserver{}
	}
	return o
}
