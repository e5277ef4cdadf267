package evaluation

import (
	"math"
	"testing"
)

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{0.8, 0.6})
	if math.Abs(s.Mean-0.7) > 1e-9 {
		t.Errorf("Mean = %v, want 0.7", s.Mean)
	}
	if math.Abs(s.Std-0.1) > 1e-9 {
		t.Errorf("Std = %v, want 0.1 (population)", s.Std)
	}
	if s.Min != 0.6 || s.Max != 0.8 {
		t.Errorf("Min/Max = %v/%v", s.Min, s.Max)
	}
}

func TestSummarize_Single(t *testing.T) {
	s := Summarize([]float64{0.5})
	if s.Mean != 0.5 || s.Std != 0 || s.Min != 0.5 || s.Max != 0.5 {
		t.Errorf("unexpected stats: %+v", s)
	}
}

func TestSummarize_Empty(t *testing.T) {
	if s := Summarize(nil); s != (Stats{}) {
		t.Errorf("expected zero stats, got %+v", s)
	}
}

func TestReportMeanRecall(t *testing.T) {
	r := Report{PerK: map[int]Stats{5: {Mean: 0.7}}}
	if m, ok := r.MeanRecall(5); !ok || m != 0.7 {
		t.Errorf("MeanRecall(5) = %v, %v", m, ok)
	}
	if _, ok := r.MeanRecall(10); ok {
		t.Error("MeanRecall(10) should be absent")
	}
}
