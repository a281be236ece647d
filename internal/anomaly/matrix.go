package anomaly

import (
	"math"
	"sort"

	"github.com/skytrace/skytrace/internal/dataset"
)

// Feature matrix columns: twelve numeric features plus three encoded
// categoricals.
var featureColumns = []string{
	"hour", "day_of_week", "is_weekend", "is_business_hours",
	"login_count", "unique_ips", "unique_browsers", "unique_os",
	"hour_std", "weekend_ratio", "business_hours_ratio", "login_frequency",
	"browser_encoded", "os_encoded", "device_type_encoded",
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// BuildMatrix converts feature records into the numeric matrix consumed by
// the detectors, encoding categoricals through per-run tables. NaN values
// degrade to 0.
func BuildMatrix(features []dataset.FeatureRecord) [][]float64 {
	browsers := make([]string, len(features))
	oses := make([]string, len(features))
	devices := make([]string, len(features))
	for i, f := range features {
		browsers[i] = f.Browser
		oses[i] = f.OS
		devices[i] = f.DeviceType
	}
	browserTable := BuildEncodingTable(browsers)
	osTable := BuildEncodingTable(oses)
	deviceTable := BuildEncodingTable(devices)

	matrix := make([][]float64, len(features))
	for i, f := range features {
		row := []float64{
			float64(f.Hour),
			float64(f.DayOfWeek),
			boolToFloat(f.Weekend),
			boolToFloat(f.BusinessHours),
			float64(f.LoginCount),
			float64(f.UniqueIPs),
			float64(f.UniqueBrowsers),
			float64(f.UniqueOS),
			f.HourStd,
			f.WeekendRatio,
			f.BusinessHoursRatio,
			f.LoginFrequency,
			float64(browserTable.Encode(f.Browser)),
			float64(osTable.Encode(f.OS)),
			float64(deviceTable.Encode(f.DeviceType)),
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				row[j] = 0
			}
		}
		matrix[i] = row
	}
	return matrix
}

// StandardScale standardizes each column to zero mean and unit variance.
// Zero-variance columns scale to all zeros rather than dividing by zero.
func StandardScale(matrix [][]float64) [][]float64 {
	if len(matrix) == 0 {
		return nil
	}
	rows, cols := len(matrix), len(matrix[0])

	means := make([]float64, cols)
	for _, row := range matrix {
		for j, v := range row {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= float64(rows)
	}

	stds := make([]float64, cols)
	for _, row := range matrix {
		for j, v := range row {
			d := v - means[j]
			stds[j] += d * d
		}
	}
	for j := range stds {
		stds[j] = math.Sqrt(stds[j] / float64(rows))
	}

	scaled := make([][]float64, rows)
	for i, row := range matrix {
		scaled[i] = make([]float64, cols)
		for j, v := range row {
			if stds[j] == 0 {
				continue
			}
			scaled[i][j] = (v - means[j]) / stds[j]
		}
	}
	return scaled
}

// maxPCAComponents caps the dimensionality fed to the density clustering.
const maxPCAComponents = 10

// ReduceDimensions projects the matrix onto its top principal components
// when the raw dimensionality exceeds the cap. The reduction is used only
// for clustering stability. Input is expected to be standardized (centered).
func ReduceDimensions(matrix [][]float64) [][]float64 {
	if len(matrix) == 0 || len(matrix[0]) <= maxPCAComponents {
		return matrix
	}
	rows, cols := len(matrix), len(matrix[0])

	// Covariance of the centered data.
	cov := make([][]float64, cols)
	for i := range cov {
		cov[i] = make([]float64, cols)
	}
	for _, row := range matrix {
		for i := 0; i < cols; i++ {
			for j := i; j < cols; j++ {
				cov[i][j] += row[i] * row[j]
			}
		}
	}
	denom := float64(rows - 1)
	if denom < 1 {
		denom = 1
	}
	for i := 0; i < cols; i++ {
		for j := i; j < cols; j++ {
			cov[i][j] /= denom
			cov[j][i] = cov[i][j]
		}
	}

	values, vectors := jacobiEigen(cov)

	// Order components by descending eigenvalue.
	order := make([]int, cols)
	for i := range order {
		order[i] = i
	}
	for i := 0; i < cols; i++ {
		for j := i + 1; j < cols; j++ {
			if values[order[j]] > values[order[i]] {
				order[i], order[j] = order[j], order[i]
			}
		}
	}

	k := maxPCAComponents
	if k > cols {
		k = cols
	}
	reduced := make([][]float64, rows)
	for i, row := range matrix {
		reduced[i] = make([]float64, k)
		for c := 0; c < k; c++ {
			comp := order[c]
			var dot float64
			for j := 0; j < cols; j++ {
				dot += row[j] * vectors[j][comp]
			}
			reduced[i][c] = dot
		}
	}
	return reduced
}

// jacobiEigen computes the eigenvalues and eigenvectors of a symmetric
// matrix using the cyclic Jacobi rotation method. Returns the eigenvalues
// and a matrix whose columns are the corresponding eigenvectors.
func jacobiEigen(a [][]float64) ([]float64, [][]float64) {
	n := len(a)
	// Work on a copy; accumulate rotations in v.
	m := make([][]float64, n)
	v := make([][]float64, n)
	for i := 0; i < n; i++ {
		m[i] = make([]float64, n)
		v[i] = make([]float64, n)
		copy(m[i], a[i])
		v[i][i] = 1
	}

	const maxSweeps = 100
	const tol = 1e-10

	for sweep := 0; sweep < maxSweeps; sweep++ {
		var off float64
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				off += m[i][j] * m[i][j]
			}
		}
		if off < tol {
			break
		}

		for p := 0; p < n-1; p++ {
			for q := p + 1; q < n; q++ {
				if math.Abs(m[p][q]) < tol/float64(n*n) {
					continue
				}
				theta := (m[q][q] - m[p][p]) / (2 * m[p][q])
				t := 1 / (math.Abs(theta) + math.Sqrt(theta*theta+1))
				if theta < 0 {
					t = -t
				}
				c := 1 / math.Sqrt(t*t+1)
				s := t * c

				for i := 0; i < n; i++ {
					mip, miq := m[i][p], m[i][q]
					m[i][p] = c*mip - s*miq
					m[i][q] = s*mip + c*miq
				}
				for i := 0; i < n; i++ {
					mpi, mqi := m[p][i], m[q][i]
					m[p][i] = c*mpi - s*mqi
					m[q][i] = s*mpi + c*mqi
				}
				for i := 0; i < n; i++ {
					vip, viq := v[i][p], v[i][q]
					v[i][p] = c*vip - s*viq
					v[i][q] = s*vip + c*viq
				}
			}
		}
	}

	values := make([]float64, n)
	for i := 0; i < n; i++ {
		values[i] = m[i][i]
	}
	return values, v
}

// quantile returns the q-th quantile of xs using linear interpolation
// between order statistics. Returns 0 for empty input.
func quantile(xs []float64, q float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
