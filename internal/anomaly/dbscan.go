package anomaly

import "math"

const (
	// NoiseLabel marks points that belong to no density cluster.
	NoiseLabel = -1

	defaultEps    = 0.5
	defaultMinPts = 5
)

// DBSCAN groups points by density. Points in no cluster are labeled
// NoiseLabel and treated as outliers downstream.
type DBSCAN struct {
	Eps    float64
	MinPts int
}

// NewDBSCAN returns a clusterer with the standard parameters.
func NewDBSCAN() *DBSCAN {
	return &DBSCAN{Eps: defaultEps, MinPts: defaultMinPts}
}

func euclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Cluster labels each row with a cluster index, or NoiseLabel for outliers.
func (d *DBSCAN) Cluster(matrix [][]float64) []int {
	n := len(matrix)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = NoiseLabel
	}
	if n == 0 {
		return labels
	}

	visited := make([]bool, n)
	cluster := 0
	for i := 0; i < n; i++ {
		if visited[i] {
			continue
		}
		visited[i] = true
		neighbors := d.regionQuery(matrix, i)
		if len(neighbors) < d.MinPts {
			continue
		}
		labels[i] = cluster
		d.expandCluster(matrix, labels, visited, neighbors, cluster)
		cluster++
	}
	return labels
}

func (d *DBSCAN) expandCluster(matrix [][]float64, labels []int, visited []bool, seeds []int, cluster int) {
	for k := 0; k < len(seeds); k++ {
		j := seeds[k]
		if !visited[j] {
			visited[j] = true
			neighbors := d.regionQuery(matrix, j)
			if len(neighbors) >= d.MinPts {
				seeds = append(seeds, neighbors...)
			}
		}
		if labels[j] == NoiseLabel {
			labels[j] = cluster
		}
	}
}

func (d *DBSCAN) regionQuery(matrix [][]float64, i int) []int {
	var neighbors []int
	for j := range matrix {
		if euclidean(matrix[i], matrix[j]) <= d.Eps {
			neighbors = append(neighbors, j)
		}
	}
	return neighbors
}
