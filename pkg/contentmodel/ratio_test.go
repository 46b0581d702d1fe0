package contentmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr(f float64) *float64 { return &f }

func TestScaledRatios_AllSpecified(t *testing.T) {
	ratios := ScaledRatios([]*float64{ptr(0.25), ptr(0.75)}, 1)

	assert.InDelta(t, 0.25, ratios[0], 1e-9)
	assert.InDelta(t, 0.75, ratios[1], 1e-9)
}

func TestScaledRatios_UnspecifiedSharesRemainder(t *testing.T) {
	// Two unspecified siblings split the remaining 0.6 evenly: 0.3 each.
	ratios := ScaledRatios([]*float64{ptr(0.4), nil, nil}, 1)

	assert.InDelta(t, 0.4, ratios[0], 1e-9)
	assert.InDelta(t, 0.3, ratios[1], 1e-9)
	assert.InDelta(t, 0.3, ratios[2], 1e-9)

	var sum float64
	for _, r := range ratios {
		sum += r
	}
	assert.InDelta(t, 1.0, sum, 1e-9, "sibling ratios must renormalize to sum to 1")
}

func TestScaledRatios_AllUnspecified(t *testing.T) {
	ratios := ScaledRatios([]*float64{nil, nil, nil, nil}, 1)

	for _, r := range ratios {
		assert.InDelta(t, 0.25, r, 1e-9)
	}
}

func TestScaledRatios_AppliesParentRatio(t *testing.T) {
	ratios := ScaledRatios([]*float64{ptr(0.5), ptr(0.5)}, 0.4)

	assert.InDelta(t, 0.2, ratios[0], 1e-9)
	assert.InDelta(t, 0.2, ratios[1], 1e-9)
}

func TestScaledRatios_OverspecifiedFallsBackToMean(t *testing.T) {
	// Specified ratios already sum to >= 1; unspecified siblings get the
	// mean of the specified ones, then everything renormalizes to 1.
	ratios := ScaledRatios([]*float64{ptr(0.6), ptr(0.6), nil}, 1)

	var sum float64
	for _, r := range ratios {
		sum += r
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestScaledRatios_Empty(t *testing.T) {
	ratios := ScaledRatios(nil, 1)
	assert.Empty(t, ratios)
}
