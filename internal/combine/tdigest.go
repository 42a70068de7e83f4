package combine

import (
	"math"
	"sort"
)

// centroid is a weighted point representing a cluster of nearby
// values inside a TDigest.
type centroid struct {
	mean   float64
	weight float64
}

// TDigestAcc is the accumulator TDigest reduces into: a compressed,
// mean-sorted list of centroids plus running total weight and
// extrema, following "Computing Extremely Accurate Quantiles Using
// t-Digests" (Dunning).
type TDigestAcc struct {
	compression float64
	centroids   []centroid
	totalWeight float64
	min, max    float64
}

func newTDigestAcc(compression float64) TDigestAcc {
	return TDigestAcc{
		compression: compression,
		min:         math.Inf(1),
		max:         math.Inf(-1),
	}
}

func (d *TDigestAcc) add(value float64) {
	if !isFinite(value) {
		return
	}
	d.min = math.Min(d.min, value)
	d.max = math.Max(d.max, value)
	d.centroids = append(d.centroids, centroid{mean: value, weight: 1})
	d.totalWeight++
	if float64(len(d.centroids)) > d.compression*2 {
		d.compress()
	}
}

func (d *TDigestAcc) mergeFrom(other TDigestAcc) {
	if other.totalWeight == 0 {
		return
	}
	d.min = math.Min(d.min, other.min)
	d.max = math.Max(d.max, other.max)
	d.centroids = append(d.centroids, other.centroids...)
	d.totalWeight += other.totalWeight
	d.compress()
}

func (d *TDigestAcc) kSize(q float64) float64 {
	if q < 0 {
		q = 0
	}
	if q > 1 {
		q = 1
	}
	return math.Max(d.compression*q*(1-q)/2, 1)
}

func (d *TDigestAcc) compress() {
	if len(d.centroids) == 0 {
		return
	}
	sort.Slice(d.centroids, func(i, j int) bool { return d.centroids[i].mean < d.centroids[j].mean })

	compressed := make([]centroid, 0, len(d.centroids))
	cumulative := 0.0
	current := d.centroids[0]

	for _, c := range d.centroids[1:] {
		proposed := current.weight + c.weight
		q0 := cumulative / d.totalWeight
		q1 := (cumulative + proposed) / d.totalWeight
		limit := math.Min(d.kSize(q0), d.kSize(q1))

		if proposed <= limit {
			current.mean = (current.mean*current.weight + c.mean*c.weight) / proposed
			current.weight = proposed
		} else {
			cumulative += current.weight
			compressed = append(compressed, current)
			current = c
		}
	}
	compressed = append(compressed, current)
	d.centroids = compressed
}

// Quantile estimates the value at rank q in [0, 1] via linear
// interpolation between adjacent centroids.
func (d TDigestAcc) Quantile(q float64) float64 {
	if len(d.centroids) == 0 {
		return math.NaN()
	}
	if q < 0 {
		q = 0
	}
	if q > 1 {
		q = 1
	}
	if q == 0 || len(d.centroids) == 1 {
		return d.min
	}
	if q == 1 {
		return d.max
	}

	target := q * d.totalWeight
	cumulative := 0.0

	for i, c := range d.centroids {
		next := cumulative + c.weight
		if next >= target {
			if next-cumulative < 1e-9 {
				return c.mean
			}
			fraction := (target - cumulative) / c.weight
			left := d.min
			if i > 0 {
				left = d.centroids[i-1].mean
			}
			right := d.max
			if i < len(d.centroids)-1 {
				right = d.centroids[i+1].mean
			}
			return left + fraction*(right-left)
		}
		cumulative = next
	}
	return d.max
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// TDigest is the liftable combiner wrapping TDigestAcc for use within
// the combine algebra: element type float64, accumulator TDigestAcc,
// output TDigestAcc (callers query Quantile on the finished digest).
type TDigest struct {
	Compression float64
}

// NewTDigest constructs a TDigest combiner; compression controls the
// accuracy/memory tradeoff (typical range 20-1000) and is used as
// given.
func NewTDigest(compression float64) TDigest {
	return TDigest{Compression: compression}
}

func (t TDigest) Create() TDigestAcc { return newTDigestAcc(t.Compression) }

func (t TDigest) AddInput(acc TDigestAcc, v float64) TDigestAcc {
	acc.add(v)
	return acc
}

func (t TDigest) Merge(a, b TDigestAcc) TDigestAcc {
	a.mergeFrom(b)
	return a
}

func (t TDigest) Finish(acc TDigestAcc) TDigestAcc { return acc }

func (t TDigest) BuildFromGroup(values []float64) TDigestAcc {
	acc := newTDigestAcc(t.Compression)
	for _, v := range values {
		acc.add(v)
	}
	return acc
}

var _ Liftable[float64, TDigestAcc, TDigestAcc] = TDigest{}
