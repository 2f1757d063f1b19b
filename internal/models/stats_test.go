package models

import (
	"math"
	"testing"
)

func TestItemTimeStatFold(t *testing.T) {
	var stat ItemTimeStat

	stat = stat.Fold(10)
	if stat.TotalPreparations != 1 || stat.AvgTimeMinutes != 10 || stat.MinTimeMinutes != 10 || stat.MaxTimeMinutes != 10 {
		t.Fatalf("after first sample: %+v", stat)
	}

	stat = stat.Fold(20)
	if stat.TotalPreparations != 2 {
		t.Errorf("count = %d, want 2", stat.TotalPreparations)
	}
	if stat.AvgTimeMinutes != 15 {
		t.Errorf("avg = %.2f, want 15", stat.AvgTimeMinutes)
	}

	stat = stat.Fold(4)
	if stat.MinTimeMinutes != 4 {
		t.Errorf("min = %.2f, want 4", stat.MinTimeMinutes)
	}
	if stat.MaxTimeMinutes != 20 {
		t.Errorf("max = %.2f, want 20", stat.MaxTimeMinutes)
	}
	wantAvg := (10.0 + 20.0 + 4.0) / 3.0
	if math.Abs(stat.AvgTimeMinutes-wantAvg) > 1e-9 {
		t.Errorf("avg = %.6f, want %.6f", stat.AvgTimeMinutes, wantAvg)
	}
}
