package mkv

import "math"

// DefaultTCSErrorLimit is the relative-error bound TCSFromSecDiv aims to
// stay under (not a hard limit — pathological inputs can exceed it).
const DefaultTCSErrorLimit = 1e-4

// TCSFromSecDiv picks a (timecode-scale, element-multiplier) pair so
// that source timestamps expressed as multiples of 1/sdiv seconds, with
// inter-frame deltas sharing the greatest common divisor tdGCD, can be
// represented as integer multiples of tcs ticks after scaling by
// elmult, within errorLim relative error. errorLim <= 0 selects
// DefaultTCSErrorLimit.
//
// Ported from the bisection search in
// _examples/original_source/mcio_matroska.py's
// MatroskaBuilder.tcs_from_secdiv: the reference error term is
// ival = 1e9*tdGCD/sdiv, split across tcs and elmult by balancing their
// magnitudes (geometric mean of the factor), then refined by bisection
// when the balanced point misses errorLim and a degenerate elmult of
// 1/tdGCD doesn't already do better.
func TCSFromSecDiv(sdiv int64, tdGCD int64, errorLim float64) (tcs uint64, elmult float64, relError float64) {
	if errorLim <= 0 {
		errorLim = DefaultTCSErrorLimit
	}
	if tdGCD <= 0 {
		tdGCD = 1
	}

	ival := float64(tdGCD) * 1e9 / float64(sdiv)
	getError := func(em float64) float64 {
		tcsF := math.Round(1e9 / float64(sdiv) / em)
		oval := tcsF * math.Round(float64(tdGCD)*em)
		return math.Abs(ival-oval) / ival
	}

	elmultMinErr := math.Sqrt((1e9/float64(sdiv))*float64(tdGCD)) / float64(tdGCD)
	elmultMin := 1 / float64(tdGCD)
	if getError(elmultMin) <= getError(elmultMinErr) {
		elmultMinErr = elmultMin
	}

	em := elmultMin
	delta := (elmultMinErr - elmultMin) / 2
	if delta > 0 && getError(em) > errorLim {
		for delta > math.Pow(2, -64) {
			if getError(em) < errorLim {
				em -= delta
			} else {
				em += delta
			}
			delta /= 2
		}
	}

	tcsF := math.Round(1e9 / float64(sdiv) / em)
	return uint64(tcsF), em, getError(em)
}
