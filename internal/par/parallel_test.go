package par

import (
	"sync/atomic"
	"testing"
)

func TestForCoversEveryIndexOnce(t *testing.T) {
	for _, workers := range []int{1, 2, 4, 7, 16} {
		n := 1000
		hits := make([]int32, n)
		For(n, workers, 8, func(_, start, end int) {
			for i := start; i < end; i++ {
				atomic.AddInt32(&hits[i], 1)
			}
		})
		for i, h := range hits {
			if h != 1 {
				t.Fatalf("workers=%d: index %d visited %d times", workers, i, h)
			}
		}
	}
}

func TestForSmallInputStaysSerial(t *testing.T) {
	var calls int32
	For(10, 8, 64, func(w, start, end int) {
		atomic.AddInt32(&calls, 1)
		if w != 0 || start != 0 || end != 10 {
			t.Errorf("serial path got (%d, %d, %d)", w, start, end)
		}
	})
	if calls != 1 {
		t.Errorf("serial path ran %d times", calls)
	}
}

func TestForPartitionFixedByInputs(t *testing.T) {
	record := func() [][2]int {
		var mu [64][2]int
		var count int32
		For(512, 4, 8, func(w, start, end int) {
			mu[w] = [2]int{start, end}
			atomic.AddInt32(&count, 1)
		})
		return append([][2]int(nil), mu[:count]...)
	}
	a, b := record(), record()
	if len(a) != len(b) {
		t.Fatalf("worker counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("worker %d ranges differ: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestForZeroLength(t *testing.T) {
	ran := false
	For(0, 4, 8, func(_, start, end int) {
		ran = true
		if start != 0 || end != 0 {
			t.Errorf("range (%d, %d)", start, end)
		}
	})
	if !ran {
		t.Error("callback skipped for empty range")
	}
}
