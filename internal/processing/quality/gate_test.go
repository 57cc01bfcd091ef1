package quality

import (
	"testing"

	"sketch-sprite/internal/models"
	"sketch-sprite/internal/opencv/safe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func filled(t *testing.T, rows, cols int, matType gocv.MatType, v float64) *safe.Mat {
	t.Helper()
	m, err := safe.NewMatFromScalar(gocv.NewScalar(v, v, v, 0), rows, cols, matType, "fixture")
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m
}

func TestDecide(t *testing.T) {
	gate := NewGate(DefaultParams())

	tests := []struct {
		name     string
		fg       float64
		border   float64
		accepted bool
	}{
		{"white border small subject", 0.04, 0.9, true},
		{"white border lower edge inclusive", 0.03, 0.9, true},
		{"white border upper edge inclusive", 0.95, 0.9, true},
		{"white border too little", 0.02, 0.9, false},
		{"white border too much", 0.96, 0.9, false},
		{"dark border needs more foreground", 0.04, 0.5, false},
		{"dark border in range", 0.5, 0.5, true},
		{"dark border too much", 0.8, 0.5, false},
		{"threshold itself is strict", 0.8, 0.7, false},
		{"black image", 1.0, 0.0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := gate.Decide(models.QualityMetrics{ForegroundRatio: tt.fg, PerimeterWhiteness: tt.border, PerimeterWhitenessOK: true})
			assert.Equal(t, tt.accepted, d.Accepted)
			if tt.accepted {
				assert.Empty(t, d.Reason)
			} else {
				assert.Contains(t, d.Reason, "outside")
			}
		})
	}
}

func TestDecide_Deterministic(t *testing.T) {
	gate := NewGate(DefaultParams())
	m := models.QualityMetrics{ForegroundRatio: 0.74, PerimeterWhiteness: 0.3, PerimeterWhitenessOK: true}
	first := gate.Decide(m)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, gate.Decide(m))
	}
}

func TestPerimeterWhiteness(t *testing.T) {
	white := filled(t, 10, 10, gocv.MatTypeCV8UC3, 255)
	assert.InDelta(t, 1.0, PerimeterWhiteness(white, 30), 1e-9)

	black := filled(t, 10, 10, gocv.MatTypeCV8UC3, 0)
	assert.InDelta(t, 0.0, PerimeterWhiteness(black, 30), 1e-9)

	// darken the whole top row: 10 of the 36 border pixels
	for i := 0; i < 10*3; i++ {
		white.GetMat().SetUCharAt(0, i, 0)
	}
	assert.InDelta(t, 26.0/36.0, PerimeterWhiteness(white, 30), 1e-9)
}

func TestEvaluate_BlackImageRejected(t *testing.T) {
	src := filled(t, 300, 300, gocv.MatTypeCV8UC3, 0)
	full := filled(t, 300, 300, gocv.MatTypeCV8UC1, 255)

	d, err := NewGate(DefaultParams()).Evaluate(full, src)
	require.NoError(t, err)

	assert.False(t, d.Accepted)
	assert.InDelta(t, 1.0, d.Metrics.ForegroundRatio, 1e-9)
	assert.InDelta(t, 0.0, d.Metrics.PerimeterWhiteness, 1e-9)
	assert.Equal(t, DefaultParams().Strict, d.Bounds)
}

func TestEvaluate_RejectsMismatchedSizes(t *testing.T) {
	src := filled(t, 20, 20, gocv.MatTypeCV8UC3, 255)
	m := filled(t, 10, 10, gocv.MatTypeCV8UC1, 0)

	_, err := NewGate(DefaultParams()).Evaluate(m, src)
	assert.Error(t, err)
}
