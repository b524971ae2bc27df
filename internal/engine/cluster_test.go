package engine

import (
	"reflect"
	"testing"
)

func f(v float64) *float64 { return &v }

func syntheticOutput(finals map[string]map[string]float64, order []string) *ComputeOutput {
	out := &ComputeOutput{Order: order}
	students := make([]string, 0, len(finals))
	for sid := range finals {
		students = append(students, sid)
	}
	// Sorted like the propagator emits.
	for i := 0; i < len(students); i++ {
		for j := i + 1; j < len(students); j++ {
			if students[j] < students[i] {
				students[i], students[j] = students[j], students[i]
			}
		}
	}
	for _, sid := range students {
		sr := StudentResult{StudentID: sid, Concepts: map[string]*ConceptResult{}}
		for _, cid := range order {
			v := finals[sid][cid]
			sr.Concepts[cid] = &ConceptResult{ConceptID: cid, Direct: f(v), Final: v}
		}
		out.Students = append(out.Students, sr)
	}
	return out
}

func TestClusterSeparatesStrongAndWeak(t *testing.T) {
	out := syntheticOutput(map[string]map[string]float64{
		"s1": {"a": 0.9, "b": 0.95},
		"s2": {"a": 0.85, "b": 0.9},
		"s3": {"a": 0.1, "b": 0.2},
		"s4": {"a": 0.15, "b": 0.1},
	}, []string{"a", "b"})

	co := Cluster(out, 2)
	if len(co.Clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(co.Clusters))
	}
	if co.Assignments["s1"] != co.Assignments["s2"] {
		t.Fatal("strong students should cluster together")
	}
	if co.Assignments["s3"] != co.Assignments["s4"] {
		t.Fatal("weak students should cluster together")
	}
	if co.Assignments["s1"] == co.Assignments["s3"] {
		t.Fatal("strong and weak students should separate")
	}
	// s1 has the smallest index, so its cluster gets label cluster_1.
	if co.Assignments["s1"] != "cluster_1" {
		t.Fatalf("assignment for s1 = %q, want cluster_1", co.Assignments["s1"])
	}
}

func TestClusterIdenticalStudentsCollapse(t *testing.T) {
	out := syntheticOutput(map[string]map[string]float64{
		"s1": {"a": 0.5},
		"s2": {"a": 0.5},
		"s3": {"a": 0.5},
	}, []string{"a"})

	co := Cluster(out, 4)
	if len(co.Clusters) != 1 {
		t.Fatalf("identical students must collapse to one cluster, got %d", len(co.Clusters))
	}
	c := co.Clusters[0]
	if c.StudentCount != 3 || c.Label != "cluster_1" {
		t.Fatalf("unexpected cluster: %+v", c)
	}
	for sid, label := range co.Assignments {
		if label != "cluster_1" {
			t.Fatalf("assignment for %s = %q", sid, label)
		}
	}
}

func TestClusterSingleStudent(t *testing.T) {
	out := syntheticOutput(map[string]map[string]float64{
		"only": {"a": 0.4, "b": 0.6},
	}, []string{"a", "b"})

	co := Cluster(out, 4)
	if len(co.Clusters) != 1 {
		t.Fatalf("expected one cluster, got %d", len(co.Clusters))
	}
	if co.Assignments["only"] != "cluster_1" {
		t.Fatalf("assignment = %q", co.Assignments["only"])
	}
}

func TestClusterDeterministic(t *testing.T) {
	finals := map[string]map[string]float64{}
	students := []string{"s01", "s02", "s03", "s04", "s05", "s06", "s07", "s08"}
	for i, sid := range students {
		finals[sid] = map[string]float64{
			"a": float64(i) / 8,
			"b": float64((i*3)%8) / 8,
			"c": float64((i*5)%8) / 8,
		}
	}
	out := syntheticOutput(finals, []string{"a", "b", "c"})

	first := Cluster(out, 3)
	for i := 0; i < 5; i++ {
		if again := Cluster(out, 3); !reflect.DeepEqual(again, first) {
			t.Fatal("clustering differs between identical runs")
		}
	}
}

func TestClusterImputesMissingDirect(t *testing.T) {
	out := syntheticOutput(map[string]map[string]float64{
		"s1": {"a": 0.8, "b": 0.8},
		"s2": {"a": 0.2, "b": 0.2},
	}, []string{"a", "b"})
	// s2 has no result at all on b; the column mean fills the gap.
	delete(out.Students[1].Concepts, "b")

	co := Cluster(out, 2)
	if len(co.Clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(co.Clusters))
	}
	for _, c := range co.Clusters {
		for cid, v := range c.Centroid {
			if v != v {
				t.Fatalf("centroid for %s is NaN", cid)
			}
		}
	}
}

func TestClusterTopWeakConcepts(t *testing.T) {
	out := syntheticOutput(map[string]map[string]float64{
		"s1": {"a": 0.9, "b": 0.9, "c": 0.9},
		"s2": {"a": 0.1, "b": 0.9, "c": 0.5},
	}, []string{"a", "b", "c"})

	co := Cluster(out, 2)
	var weak *ClusterSummary
	for i := range co.Clusters {
		if co.Clusters[i].Label == co.Assignments["s2"] {
			weak = &co.Clusters[i]
		}
	}
	if weak == nil {
		t.Fatal("missing cluster for s2")
	}
	// a sits furthest below the class mean for s2's cluster.
	if len(weak.TopWeakConcepts) == 0 || weak.TopWeakConcepts[0] != "a" {
		t.Fatalf("top weak concepts = %v, want a first", weak.TopWeakConcepts)
	}
}
