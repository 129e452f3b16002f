package snapshot

import (
	"math"
)

// ----------------------------------------------------------------------------
// Size Statistics
// ----------------------------------------------------------------------------

// SizeStats summarizes a set of record sizes in bytes
type SizeStats struct {
	Count        int     `json:"count"`
	Total        int64   `json:"total"`
	Min          int     `json:"min"`
	Max          int     `json:"max"`
	Mean         float64 `json:"mean"`
	StdDeviation float64 `json:"std_deviation"`
}

// NewSizeStats computes count, total, min, max, mean and the population standard deviation
func NewSizeStats(sizes []int) SizeStats {
	if len(sizes) == 0 {
		return SizeStats{}
	}

	st := SizeStats{
		Count: len(sizes),
		Min:   sizes[0],
		Max:   sizes[0],
	}
	for _, v := range sizes {
		st.Total += int64(v)
		if v < st.Min {
			st.Min = v
		}
		if v > st.Max {
			st.Max = v
		}
	}
	st.Mean = float64(st.Total) / float64(len(sizes))

	var sumSquaredDiffs float64
	for _, v := range sizes {
		diff := float64(v) - st.Mean
		sumSquaredDiffs += diff * diff
	}
	st.StdDeviation = math.Sqrt(sumSquaredDiffs / float64(len(sizes)))

	return st
}

// ----------------------------------------------------------------------------
// Size Histogram
// ----------------------------------------------------------------------------

// histogramBoundaries cover the full record range: every record fits into 64 KiB
var histogramBoundaries = []int{0, 16, 64, 256, 1024, 4096, 16384, MaxRecordLen}

// SizeHistogram counts record sizes into exponential buckets.
// Bucket i holds sizes in (Boundaries[i-1], Boundaries[i]], bucket 0 only empty records.
type SizeHistogram struct {
	Boundaries []int
	Buckets    []int
}

// NewSizeHistogram builds a histogram over the given sizes
func NewSizeHistogram(sizes []int) SizeHistogram {
	h := SizeHistogram{
		Boundaries: histogramBoundaries,
		Buckets:    make([]int, len(histogramBoundaries)),
	}
	for _, size := range sizes {
		for i, boundary := range h.Boundaries {
			if size <= boundary {
				h.Buckets[i]++
				break
			}
		}
	}
	return h
}

// ----------------------------------------------------------------------------
// Snapshot Summary
// ----------------------------------------------------------------------------

// Summary describes the content of a decoded snapshot
type Summary struct {
	Entries int           `json:"entries"`
	Keys    SizeStats     `json:"keys"`
	Values  SizeStats     `json:"values"`
	Sizes   SizeHistogram `json:"-"`
	Digest  Digest        `json:"-"`
}

// Summarize computes key and value statistics for the decoded snapshot m
func Summarize(m map[string][]byte) (Summary, error) {
	keySizes := make([]int, 0, len(m))
	valueSizes := make([]int, 0, len(m))
	for k, v := range m {
		keySizes = append(keySizes, len(k))
		valueSizes = append(valueSizes, len(v))
	}

	digest, err := ComputeDigest(m)
	if err != nil {
		return Summary{}, err
	}

	return Summary{
		Entries: len(m),
		Keys:    NewSizeStats(keySizes),
		Values:  NewSizeStats(valueSizes),
		Sizes:   NewSizeHistogram(valueSizes),
		Digest:  digest,
	}, nil
}
