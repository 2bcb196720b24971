package mkv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTCSFromSecDivExactMillisecond(t *testing.T) {
	// Timestamps expressed as multiples of 1/1000s (milliseconds), no
	// shared inter-frame divisor: the balanced point is exact.
	tcs, elmult, relErr := TCSFromSecDiv(1000, 1, 0)
	assert.Equal(t, uint64(1_000_000), tcs)
	assert.InDelta(t, 1.0, elmult, 1e-9)
	assert.InDelta(t, 0.0, relErr, 1e-9)
}

func TestTCSFromSecDivWithinDefaultErrorLimit(t *testing.T) {
	// 30 fps source: 1/30s timestamps. The degenerate elmult of 1 is
	// already within the default error tolerance (the balanced point is
	// not), so bisection never triggers.
	tcs, _, relErr := TCSFromSecDiv(30, 1, 0)
	assert.InDelta(t, float64(1e9)/30, float64(tcs), 1)
	assert.Less(t, relErr, DefaultTCSErrorLimit)
}

func TestTCSFromSecDivHonoursExplicitErrorLimit(t *testing.T) {
	tcs, _, relErr := TCSFromSecDiv(1001, 30000, 1e-6)
	assert.Greater(t, tcs, uint64(0))
	assert.Less(t, relErr, 1e-3) // bisection narrows error, doesn't guarantee the limit exactly
}

func TestTCSFromSecDivDefaultsTdGCD(t *testing.T) {
	// tdGCD <= 0 is clamped to 1, matching "no shared divisor observed yet".
	tcs, _, _ := TCSFromSecDiv(1000, 0, 0)
	assert.Equal(t, uint64(1_000_000), tcs)
}

func TestTCSFromSecDivZeroErrorLimitUsesDefault(t *testing.T) {
	_, _, relErrDefault := TCSFromSecDiv(1001, 30000, 0)
	_, _, relErrExplicit := TCSFromSecDiv(1001, 30000, DefaultTCSErrorLimit)
	assert.Equal(t, relErrExplicit, relErrDefault)
}
