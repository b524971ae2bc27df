package engine

import "testing"

func TestAggregate(t *testing.T) {
	out := syntheticOutput(map[string]map[string]float64{
		"s1": {"a": 0.2},
		"s2": {"a": 0.4},
		"s3": {"a": 0.6},
		"s4": {"a": 0.8},
	}, []string{"a"})

	aggs := Aggregate(out, 0.6)
	if len(aggs) != 1 {
		t.Fatalf("expected one aggregate, got %d", len(aggs))
	}
	a := aggs[0]
	if a.StudentCount != 4 {
		t.Fatalf("student count = %d", a.StudentCount)
	}
	if !almostEqual(a.Mean, 0.5) {
		t.Fatalf("mean = %v, want 0.5", a.Mean)
	}
	if !almostEqual(a.Median, 0.5) {
		t.Fatalf("median = %v, want 0.5", a.Median)
	}
	// 0.2 and 0.4 are strictly below threshold; 0.6 is not.
	if a.BelowThresholdCount != 2 {
		t.Fatalf("below threshold = %d, want 2", a.BelowThresholdCount)
	}
	if a.Std <= 0 {
		t.Fatalf("std = %v, want positive", a.Std)
	}
}

func TestAggregateOddMedianAndEmpty(t *testing.T) {
	out := syntheticOutput(map[string]map[string]float64{
		"s1": {"a": 0.1},
		"s2": {"a": 0.9},
		"s3": {"a": 0.3},
	}, []string{"a"})
	aggs := Aggregate(out, 0.5)
	if !almostEqual(aggs[0].Median, 0.3) {
		t.Fatalf("median = %v, want 0.3", aggs[0].Median)
	}

	empty := &ComputeOutput{Order: []string{"a"}}
	aggs = Aggregate(empty, 0.5)
	if aggs[0].StudentCount != 0 || aggs[0].Mean != 0 {
		t.Fatalf("empty aggregate = %+v", aggs[0])
	}
}
