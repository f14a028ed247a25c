package core

import (
	"testing"

	"price-stream/src/models"

	"github.com/stretchr/testify/assert"
)

func series(values ...float64) []models.MTick {
	out := make([]models.MTick, len(values))
	for i, v := range values {
		out[i] = models.MTick{Value: v}
	}
	return out
}

func TestMinMaxMean(t *testing.T) {
	cases := []struct {
		name string
		in   []models.MTick
		want models.MMinMaxMean
	}{
		{"empty", nil, models.MMinMaxMean{}},
		{"single", series(5), models.MMinMaxMean{Min: 5, Max: 5, Mean: 5}},
		{"three", series(1, 2, 3), models.MMinMaxMean{Min: 1, Max: 3, Mean: 2}},
		{"unordered", series(10, -4, 7, 3), models.MMinMaxMean{Min: -4, Max: 10, Mean: 4}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MinMaxMean(tc.in))
		})
	}
}

func TestChangeSinceStart(t *testing.T) {
	assert.Equal(t, models.MChange{}, ChangeSinceStart(nil))
	assert.Equal(t, models.MChange{}, ChangeSinceStart(series(7)))

	got := ChangeSinceStart(series(100, 110))
	assert.InDelta(t, 10, got.Absolute, 1e-9)
	assert.InDelta(t, 10.0, got.Percentage, 1e-9)

	got = ChangeSinceStart(series(50000, 50500))
	assert.InDelta(t, 500, got.Absolute, 1e-9)
	assert.Equal(t, 1.0, RoundTo(got.Percentage, 2))

	got = ChangeSinceStart(series(200, 150, 150))
	assert.InDelta(t, -50, got.Absolute, 1e-9)
	assert.InDelta(t, -25, got.Percentage, 1e-9)
}

func TestChangeSinceStart_ZeroBase(t *testing.T) {
	got := ChangeSinceStart(series(0, 5))
	assert.Equal(t, 5.0, got.Absolute)
	assert.Equal(t, 0.0, got.Percentage)
}

func TestChangeSinceStart_FullPrecision(t *testing.T) {
	got := ChangeSinceStart(series(3, 4))
	assert.InDelta(t, 33.333333333, got.Percentage, 1e-6)
	assert.Equal(t, 33.33, RoundTo(got.Percentage, 2))
}

func TestCalculateMeanStd(t *testing.T) {
	m, s := CalculateMeanStd(nil)
	assert.Zero(t, m)
	assert.Zero(t, s)

	m, s = CalculateMeanStd([]float64{4})
	assert.Equal(t, 4.0, m)
	assert.Zero(t, s)

	m, s = CalculateMeanStd([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.Equal(t, 5.0, m)
	assert.InDelta(t, 2.0, s, 1e-12)
}

func TestRoundTo(t *testing.T) {
	assert.Equal(t, 1.0, RoundTo(0.999, 2))
	assert.Equal(t, 1.23, RoundTo(1.2345, 2))
	assert.Equal(t, -1.24, RoundTo(-1.235, 2))
	assert.Equal(t, 12.0, RoundTo(12.4, 0))
}

func TestValues(t *testing.T) {
	assert.Equal(t, []float64{1, 2}, Values(series(1, 2)))
	assert.Empty(t, Values(nil))
}
