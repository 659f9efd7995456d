package utils

import (
	"math"
	"testing"
)

func TestMean(t *testing.T) {
	tests := []struct {
		name string
		vals []float64
		want float64
	}{
		{"empty", nil, math.NaN()},
		{"single", []float64{4}, 4},
		{"several", []float64{1, 2, 3, 4}, 2.5},
		{"negative", []float64{-2, 2}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Mean(tt.vals)
			if math.IsNaN(tt.want) != math.IsNaN(got) || (!math.IsNaN(tt.want) && got != tt.want) {
				t.Errorf("Mean(%v) = %v, want %v", tt.vals, got, tt.want)
			}
		})
	}
}

func TestSampleStd(t *testing.T) {
	if !math.IsNaN(SampleStd(nil)) {
		t.Error("SampleStd of empty slice should be NaN")
	}
	if !math.IsNaN(SampleStd([]float64{3})) {
		t.Error("SampleStd of one value should be NaN")
	}
	// Sample std with ddof=1: {2, 4} has mean 3, variance (1+1)/1 = 2.
	got := SampleStd([]float64{2, 4})
	want := math.Sqrt(2)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("SampleStd = %v, want %v", got, want)
	}
}

func TestPercentile(t *testing.T) {
	vals := []float64{15, 20, 35, 40, 50}
	tests := []struct {
		name string
		p    float64
		want float64
	}{
		{"min", 0, 15},
		{"max", 100, 50},
		{"median", 50, 35},
		// Linear interpolation between ranks: p40 sits 0.6 of the way
		// from 20 to 35.
		{"interpolated", 40, 29},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percentile(vals, tt.p)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Percentile(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestPercentileDoesNotMutateInput(t *testing.T) {
	vals := []float64{3, 1, 2}
	Percentile(vals, 50)
	if vals[0] != 3 || vals[1] != 1 || vals[2] != 2 {
		t.Errorf("input reordered: %v", vals)
	}
}

func TestQuantileMatchesPercentile(t *testing.T) {
	vals := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if q, p := Quantile(vals, 0.97), Percentile(vals, 97); q != p {
		t.Errorf("Quantile(0.97) = %v, Percentile(97) = %v", q, p)
	}
	if !math.IsNaN(Quantile(nil, 0.5)) {
		t.Error("Quantile of empty slice should be NaN")
	}
}
