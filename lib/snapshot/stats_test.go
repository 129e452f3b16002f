package snapshot

import (
	"math"
	"testing"
)

func TestNewSizeStats(t *testing.T) {
	st := NewSizeStats([]int{2, 4, 4, 4, 5, 5, 7, 9})

	if st.Count != 8 || st.Total != 40 || st.Min != 2 || st.Max != 9 {
		t.Errorf("unexpected stats %+v", st)
	}
	if st.Mean != 5 {
		t.Errorf("expected mean 5, got %f", st.Mean)
	}
	if math.Abs(st.StdDeviation-2) > 1e-9 {
		t.Errorf("expected std deviation 2, got %f", st.StdDeviation)
	}

	if empty := NewSizeStats(nil); empty != (SizeStats{}) {
		t.Errorf("expected zero stats, got %+v", empty)
	}
}

func TestSizeHistogram(t *testing.T) {
	h := NewSizeHistogram([]int{0, 1, 16, 17, 1000, MaxRecordLen})

	want := []int{1, 2, 1, 0, 1, 0, 0, 1}
	for i, n := range want {
		if h.Buckets[i] != n {
			t.Errorf("bucket %d (<= %d): got %d, want %d", i, h.Boundaries[i], h.Buckets[i], n)
		}
	}
}

func TestSummarize(t *testing.T) {
	sum, err := Summarize(map[string][]byte{
		"a":   []byte("1"),
		"bbb": []byte("333"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if sum.Entries != 2 || sum.Keys.Total != 4 || sum.Values.Max != 3 {
		t.Errorf("unexpected summary %+v", sum)
	}
	if sum.Digest == (Digest{}) {
		t.Error("expected a digest")
	}
}
