package engine

import (
	"fmt"
	"math"
	"sort"
)

// ClusterSummary describes one discovered student group.
type ClusterSummary struct {
	Label           string             `json:"cluster_label"`
	StudentCount    int                `json:"student_count"`
	Centroid        map[string]float64 `json:"centroid"`
	TopWeakConcepts []string           `json:"top_weak_concepts"`
}

// ClusterOutput holds the clustering result: summaries plus the per-student
// assignment map.
type ClusterOutput struct {
	Clusters    []ClusterSummary  `json:"clusters"`
	Assignments map[string]string `json:"assignments"`
}

const maxKMeansIterations = 100

// Cluster groups students by their final readiness vectors using a fully
// deterministic k-means: feature matrix rows follow the sorted student order,
// missing direct evidence is imputed with the column mean, centroids are
// seeded from evenly spaced distinct rows, and ties in assignment go to the
// lowest centroid index. The effective k never exceeds the number of distinct
// rows, so duplicate students collapse into one cluster instead of producing
// empties.
func Cluster(out *ComputeOutput, k int) *ClusterOutput {
	co := &ClusterOutput{Assignments: map[string]string{}}
	if len(out.Students) == 0 || len(out.Order) == 0 {
		return co
	}

	concepts := out.Order
	n := len(out.Students)
	dim := len(concepts)

	// Feature matrix of final readiness, one row per student.
	rows := make([][]float64, n)
	for i, sr := range out.Students {
		row := make([]float64, dim)
		for j, cid := range concepts {
			if cr := sr.Concepts[cid]; cr != nil {
				row[j] = cr.Final
			} else {
				row[j] = math.NaN()
			}
		}
		rows[i] = row
	}
	imputeColumnMeans(rows)

	distinct := distinctRowIndexes(rows)
	effK := k
	if effK > len(distinct) {
		effK = len(distinct)
	}
	if effK < 1 {
		effK = 1
	}

	centroids := make([][]float64, effK)
	for c := 0; c < effK; c++ {
		src := rows[distinct[c*len(distinct)/effK]]
		centroids[c] = append([]float64(nil), src...)
	}

	assign := make([]int, n)
	for iter := 0; iter < maxKMeansIterations; iter++ {
		changed := false
		for i, row := range rows {
			best := 0
			bestDist := sqDist(row, centroids[0])
			for c := 1; c < effK; c++ {
				if d := sqDist(row, centroids[c]); d < bestDist {
					best, bestDist = c, d
				}
			}
			if assign[i] != best {
				assign[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}
		sums := make([][]float64, effK)
		counts := make([]int, effK)
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, row := range rows {
			c := assign[i]
			counts[c]++
			for j, v := range row {
				sums[c][j] += v
			}
		}
		for c := 0; c < effK; c++ {
			if counts[c] == 0 {
				continue
			}
			for j := range sums[c] {
				centroids[c][j] = sums[c][j] / float64(counts[c])
			}
		}
	}

	// Relabel clusters by the smallest member index so labels are stable.
	firstMember := make([]int, effK)
	for c := range firstMember {
		firstMember[c] = n
	}
	for i, c := range assign {
		if i < firstMember[c] {
			firstMember[c] = i
		}
	}
	type clusterOrd struct{ orig, first int }
	ords := make([]clusterOrd, 0, effK)
	for c := 0; c < effK; c++ {
		if firstMember[c] < n {
			ords = append(ords, clusterOrd{orig: c, first: firstMember[c]})
		}
	}
	sort.Slice(ords, func(i, j int) bool { return ords[i].first < ords[j].first })

	globalMean := make([]float64, dim)
	for _, row := range rows {
		for j, v := range row {
			globalMean[j] += v
		}
	}
	for j := range globalMean {
		globalMean[j] /= float64(n)
	}

	label := make([]string, effK)
	for rank, o := range ords {
		label[o.orig] = fmt.Sprintf("cluster_%d", rank+1)

		count := 0
		for _, c := range assign {
			if c == o.orig {
				count++
			}
		}
		centroid := make(map[string]float64, dim)
		for j, cid := range concepts {
			centroid[cid] = centroids[o.orig][j]
		}
		co.Clusters = append(co.Clusters, ClusterSummary{
			Label:           label[o.orig],
			StudentCount:    count,
			Centroid:        centroid,
			TopWeakConcepts: topWeakConcepts(concepts, centroids[o.orig], globalMean, 3),
		})
	}

	for i, sr := range out.Students {
		co.Assignments[sr.StudentID] = label[assign[i]]
	}
	return co
}

// topWeakConcepts picks the concepts where the centroid sits furthest below
// the class mean, most negative gap first, concept id breaking ties.
func topWeakConcepts(concepts []string, centroid, globalMean []float64, limit int) []string {
	type gap struct {
		cid  string
		diff float64
	}
	gaps := make([]gap, len(concepts))
	for j, cid := range concepts {
		gaps[j] = gap{cid: cid, diff: centroid[j] - globalMean[j]}
	}
	sort.Slice(gaps, func(i, j int) bool {
		if gaps[i].diff != gaps[j].diff {
			return gaps[i].diff < gaps[j].diff
		}
		return gaps[i].cid < gaps[j].cid
	})
	if limit > len(gaps) {
		limit = len(gaps)
	}
	out := make([]string, 0, limit)
	for _, g := range gaps[:limit] {
		out = append(out, g.cid)
	}
	return out
}

func imputeColumnMeans(rows [][]float64) {
	if len(rows) == 0 {
		return
	}
	dim := len(rows[0])
	for j := 0; j < dim; j++ {
		var sum float64
		count := 0
		for _, row := range rows {
			if !math.IsNaN(row[j]) {
				sum += row[j]
				count++
			}
		}
		fill := 0.0
		if count > 0 {
			fill = sum / float64(count)
		}
		for _, row := range rows {
			if math.IsNaN(row[j]) {
				row[j] = fill
			}
		}
	}
}

// distinctRowIndexes returns the indexes of the first occurrence of each
// distinct row, preserving row order.
func distinctRowIndexes(rows [][]float64) []int {
	seen := map[string]bool{}
	var idxs []int
	for i, row := range rows {
		key := fmt.Sprintf("%v", row)
		if !seen[key] {
			seen[key] = true
			idxs = append(idxs, i)
		}
	}
	return idxs
}

func sqDist(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
